// Package converter JSON представления REST API заметок и конвертация
// между ними и доменными моделями. Используется клиентом (httpapi) и dev-сервером.
package converter

import (
	"time"

	"notes-client/internal/model"
)

// NoteDTO JSON представление заметки. Временные метки в RFC 3339 (как Timestamp в protojson).
type NoteDTO struct {
	ID          string   `json:"id,omitempty"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	IsCompleted bool     `json:"isCompleted"`
	CreatedAt   string   `json:"createdAt,omitempty"`
	UpdatedAt   string   `json:"updatedAt,omitempty"`
	OwnerID     string   `json:"ownerId,omitempty"`
	Tags        []string `json:"tags"`
	Priority    string   `json:"priority,omitempty"`
	Category    string   `json:"category,omitempty"`
}

// PageDTO JSON представление страницы заметок
type PageDTO struct {
	Items       []*NoteDTO `json:"items"`
	TotalCount  int        `json:"totalCount"`
	Page        int        `json:"page"`
	PageSize    int        `json:"pageSize"`
	TotalPages  int        `json:"totalPages"`
	HasNext     bool       `json:"hasNext"`
	HasPrevious bool       `json:"hasPrevious"`
}

// DTOToModel конвертирует DTO в domain модель
func DTOToModel(dto *NoteDTO) model.Note {
	if dto == nil {
		return model.Note{}
	}

	return model.Note{
		ID:          dto.ID,
		Title:       dto.Title,
		Content:     dto.Content,
		IsCompleted: dto.IsCompleted,
		CreatedAt:   parseTime(dto.CreatedAt),
		UpdatedAt:   parseTime(dto.UpdatedAt),
		OwnerID:     dto.OwnerID,
		Tags:        append([]string{}, dto.Tags...),
		Priority:    model.ParsePriority(dto.Priority),
		Category:    dto.Category,
	}
}

// ModelToDTO конвертирует domain модель Note в DTO
func ModelToDTO(note model.Note) *NoteDTO {
	tags := note.Tags
	if tags == nil {
		tags = []string{}
	}

	return &NoteDTO{
		ID:          note.ID,
		Title:       note.Title,
		Content:     note.Content,
		IsCompleted: note.IsCompleted,
		CreatedAt:   formatTime(note.CreatedAt),
		UpdatedAt:   formatTime(note.UpdatedAt),
		OwnerID:     note.OwnerID,
		Tags:        append([]string{}, tags...),
		Priority:    string(note.Priority),
		Category:    note.Category,
	}
}

// ModelsToDTOs конвертирует слайс domain моделей в слайс DTO
func ModelsToDTOs(notes []model.Note) []*NoteDTO {
	dtos := make([]*NoteDTO, len(notes))
	for i, note := range notes {
		dtos[i] = ModelToDTO(note)
	}
	return dtos
}

// PageToDTO конвертирует страницу заметок в DTO
func PageToDTO(page model.Page[model.Note]) *PageDTO {
	return &PageDTO{
		Items:       ModelsToDTOs(page.Items),
		TotalCount:  page.TotalCount,
		Page:        page.Page,
		PageSize:    page.PageSize,
		TotalPages:  page.TotalPages,
		HasNext:     page.HasNext,
		HasPrevious: page.HasPrevious,
	}
}

// DTOToPage конвертирует DTO страницы в domain модель
func DTOToPage(dto *PageDTO) model.Page[model.Note] {
	if dto == nil {
		return model.Page[model.Note]{Items: []model.Note{}}
	}

	items := make([]model.Note, 0, len(dto.Items))
	for _, item := range dto.Items {
		items = append(items, DTOToModel(item))
	}

	return model.Page[model.Note]{
		Items:       items,
		TotalCount:  dto.TotalCount,
		Page:        dto.Page,
		PageSize:    dto.PageSize,
		TotalPages:  dto.TotalPages,
		HasNext:     dto.HasNext,
		HasPrevious: dto.HasPrevious,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
