package httpapi

import (
	"context"
	"net/http"

	"notes-client/internal/converter"
	"notes-client/internal/gateway"
	"notes-client/internal/model"
)

var _ gateway.NotesGateway = (*Notes)(nil)

// Notes реализация gateway.NotesGateway поверх REST API
type Notes struct {
	c *Client
}

// NewNotes создает шлюз заметок
func NewNotes(c *Client) *Notes {
	return &Notes{c: c}
}

func (n *Notes) FetchPage(ctx context.Context, q model.PageQuery) (model.Page[model.Note], error) {
	var dto converter.PageDTO
	if err := n.c.do(ctx, http.MethodGet, "/v1/notes", converter.QueryToValues(q), nil, &dto); err != nil {
		return model.Page[model.Note]{}, err
	}
	return converter.DTOToPage(&dto), nil
}

func (n *Notes) Create(ctx context.Context, note model.Note) (model.Note, error) {
	var dto converter.NoteDTO
	if err := n.c.do(ctx, http.MethodPost, "/v1/notes", nil, converter.ModelToDTO(note), &dto); err != nil {
		return model.Note{}, err
	}
	return converter.DTOToModel(&dto), nil
}

func (n *Notes) Update(ctx context.Context, id string, note model.Note) (model.Note, error) {
	var dto converter.NoteDTO
	if err := n.c.do(ctx, http.MethodPut, notePath(id), nil, converter.ModelToDTO(note), &dto); err != nil {
		return model.Note{}, err
	}
	return converter.DTOToModel(&dto), nil
}

func (n *Notes) Delete(ctx context.Context, id string) error {
	return n.c.do(ctx, http.MethodDelete, notePath(id), nil, nil, nil)
}

func (n *Notes) ToggleCompletion(ctx context.Context, id string) (model.Note, error) {
	var dto converter.NoteDTO
	if err := n.c.do(ctx, http.MethodPost, notePath(id)+"/toggle", nil, nil, &dto); err != nil {
		return model.Note{}, err
	}
	return converter.DTOToModel(&dto), nil
}

func (n *Notes) ListCategories(ctx context.Context) ([]string, error) {
	var resp converter.CategoriesResponse
	if err := n.c.do(ctx, http.MethodGet, "/v1/categories", nil, nil, &resp); err != nil {
		return nil, err
	}
	return nonNil(resp.Categories), nil
}

func (n *Notes) ListTags(ctx context.Context) ([]string, error) {
	var resp converter.TagsResponse
	if err := n.c.do(ctx, http.MethodGet, "/v1/tags", nil, nil, &resp); err != nil {
		return nil, err
	}
	return nonNil(resp.Tags), nil
}

func (n *Notes) GetStatistics(ctx context.Context) (model.Statistics, error) {
	var resp converter.StatisticsResponse
	if err := n.c.do(ctx, http.MethodGet, "/v1/statistics", nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Statistics == nil {
		resp.Statistics = model.Statistics{}
	}
	return resp.Statistics, nil
}

func notePath(id string) string {
	return "/v1/notes/" + id
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
