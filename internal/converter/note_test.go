package converter

import (
	"encoding/json"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notes-client/internal/model"
	"notes-client/internal/remoteerr"
)

func TestModelToDTO_TimestampsAndDefaults(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 30, 0, 500, time.FixedZone("UTC+3", 3*3600))
	note := model.Note{ID: "1", Title: "t", Content: "c", CreatedAt: at, UpdatedAt: at, Priority: model.PriorityHigh}

	dto := ModelToDTO(note)
	assert.Equal(t, "2026-03-01T09:30:00.0000005Z", dto.CreatedAt)
	assert.Equal(t, []string{}, dto.Tags)
	assert.Equal(t, "high", dto.Priority)

	back := DTOToModel(dto)
	assert.True(t, at.Equal(back.CreatedAt))
	assert.Equal(t, model.PriorityHigh, back.Priority)
}

func TestDTOToModel_MissingFields(t *testing.T) {
	n := DTOToModel(&NoteDTO{Title: "t", Content: "c", Priority: "bogus"})

	assert.Equal(t, model.PriorityMedium, n.Priority)
	assert.Equal(t, []string{}, n.Tags)
	assert.True(t, n.CreatedAt.IsZero())
	assert.Equal(t, model.Note{}, DTOToModel(nil))
}

func TestDTOToModel_TagsOmittedInJSON(t *testing.T) {
	var dto NoteDTO
	require.NoError(t, json.Unmarshal([]byte(`{"id":"1","title":"t","content":"c"}`), &dto))

	n := DTOToModel(&dto)
	require.NotNil(t, n.Tags)
	assert.Empty(t, n.Tags)
	assert.Equal(t, model.PriorityMedium, n.Priority)
}

func TestDTOToPage(t *testing.T) {
	page := model.NewPage([]model.Note{{ID: "a", Title: "a", Content: "c"}}, 3, 1, 1)

	back := DTOToPage(PageToDTO(page))
	assert.Equal(t, 3, back.TotalCount)
	assert.Equal(t, 3, back.TotalPages)
	assert.True(t, back.HasNext)
	require.Len(t, back.Items, 1)
	assert.Equal(t, "a", back.Items[0].ID)

	assert.Empty(t, DTOToPage(nil).Items)
}

func TestQueryValues(t *testing.T) {
	q := model.PageQuery{
		Page:     2,
		PageSize: 10,
		Filter: model.NoteFilter{
			SearchText: "milk",
			Category:   model.Ptr(""),
			Tags:       []string{"home", "urgent"},
			Priority:   model.Ptr(model.PriorityLow),
			Completed:  model.Ptr(false),
		},
		Sort: model.NoteSort{Field: model.SortByTitle, Direction: model.SortAsc},
	}

	v := QueryToValues(q)
	assert.Equal(t, "home,urgent", v.Get(ParamTags))
	assert.True(t, v.Has(ParamCategory), "empty category is still a constraint")

	back, err := ValuesToQuery(v)
	require.NoError(t, err)
	assert.Equal(t, q.Page, back.Page)
	assert.Equal(t, q.PageSize, back.PageSize)
	assert.True(t, q.Filter.Equal(back.Filter))
	assert.Equal(t, q.Sort, back.Sort)
}

func TestValuesToQuery_Defaults(t *testing.T) {
	q, err := ValuesToQuery(url.Values{})
	require.NoError(t, err)

	assert.Equal(t, 1, q.Page)
	assert.Zero(t, q.PageSize)
	assert.True(t, q.Filter.IsZero())
	assert.Equal(t, model.DefaultSort(), q.Sort)
}

func TestValuesToQuery_Invalid(t *testing.T) {
	_, err := ValuesToQuery(url.Values{
		ParamPage:      {"0"},
		ParamPriority:  {"critical"},
		ParamCompleted: {"maybe"},
	})

	var e *remoteerr.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, remoteerr.KindValidation, e.Kind)
	assert.Contains(t, e.Fields, ParamPage)
	assert.Contains(t, e.Fields, ParamPriority)
	assert.Contains(t, e.Fields, ParamCompleted)
}
