package model

import "slices"

// Page страница результатов постраничной выборки
type Page[T any] struct {
	Items       []T  `json:"items"`
	TotalCount  int  `json:"totalCount"`
	Page        int  `json:"page"`
	PageSize    int  `json:"pageSize"`
	TotalPages  int  `json:"totalPages"`
	HasNext     bool `json:"hasNext"`
	HasPrevious bool `json:"hasPrevious"`
}

// NewPage собирает страницу и вычисляет производные поля по общему количеству
func NewPage[T any](items []T, totalCount, page, pageSize int) Page[T] {
	totalPages := 0
	if pageSize > 0 {
		totalPages = (totalCount + pageSize - 1) / pageSize
	}
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:       items,
		TotalCount:  totalCount,
		Page:        page,
		PageSize:    pageSize,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrevious: page > 1,
	}
}

// NoteFilter фильтр выборки заметок. nil-указатели означают "без ограничения".
type NoteFilter struct {
	SearchText string
	Category   *string
	Tags       []string
	Priority   *Priority
	Completed  *bool
}

// IsZero фильтр не содержит ни одного ограничения
func (f NoteFilter) IsZero() bool {
	return f.SearchText == "" && f.Category == nil && len(f.Tags) == 0 && f.Priority == nil && f.Completed == nil
}

// Equal структурное сравнение фильтров (теги - поэлементно, с учетом порядка)
func (f NoteFilter) Equal(o NoteFilter) bool {
	return f.SearchText == o.SearchText &&
		equalPtr(f.Category, o.Category) &&
		slices.Equal(f.Tags, o.Tags) &&
		equalPtr(f.Priority, o.Priority) &&
		equalPtr(f.Completed, o.Completed)
}

// Clone возвращает глубокую копию фильтра
func (f NoteFilter) Clone() NoteFilter {
	return NoteFilter{
		SearchText: f.SearchText,
		Category:   clonePtr(f.Category),
		Tags:       slices.Clone(f.Tags),
		Priority:   clonePtr(f.Priority),
		Completed:  clonePtr(f.Completed),
	}
}

// SortField поле сортировки
type SortField string

const (
	SortByCreatedAt SortField = "createdAt"
	SortByUpdatedAt SortField = "updatedAt"
	SortByTitle     SortField = "title"
	SortByPriority  SortField = "priority"
)

// IsValid проверяет, что поле сортировки поддерживается
func (f SortField) IsValid() bool {
	switch f {
	case SortByCreatedAt, SortByUpdatedAt, SortByTitle, SortByPriority:
		return true
	}
	return false
}

// SortDirection направление сортировки
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// NoteSort описание сортировки
type NoteSort struct {
	Field     SortField
	Direction SortDirection
}

// DefaultSort сортировка по умолчанию: сначала последние измененные
func DefaultSort() NoteSort {
	return NoteSort{Field: SortByUpdatedAt, Direction: SortDesc}
}

// Normalize подставляет значения по умолчанию для пустых или неизвестных полей
func (s NoteSort) Normalize() NoteSort {
	if !s.Field.IsValid() {
		s.Field = SortByUpdatedAt
	}
	if s.Direction != SortAsc {
		s.Direction = SortDesc
	}
	return s
}

// PageQuery параметры запроса страницы заметок
type PageQuery struct {
	Page     int
	PageSize int
	Filter   NoteFilter
	Sort     NoteSort
}

// Statistics агрегированные счетчики по коллекции
type Statistics map[string]int

// Ключи счетчиков статистики
const (
	StatTotal     = "total"
	StatCompleted = "completed"
	StatPending   = "pending"
)

// PriorityStatKey ключ счетчика заметок с заданным приоритетом
func PriorityStatKey(p Priority) string {
	return "priority:" + string(p)
}

// Ptr возвращает указатель на значение (для полей фильтра)
func Ptr[T any](v T) *T {
	return &v
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
