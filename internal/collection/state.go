package collection

import (
	"maps"
	"slices"
	"time"

	"notes-client/internal/model"
	"notes-client/internal/remoteerr"
)

// Phase фаза загрузки коллекции
type Phase int

const (
	PhaseInitial Phase = iota
	PhaseLoading
	PhaseLoaded
	PhaseRefreshing
	PhaseLoadingMore
	PhaseError
)

// String возвращает имя фазы
func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseLoaded:
		return "loaded"
	case PhaseRefreshing:
		return "refreshing"
	case PhaseLoadingMore:
		return "loadingMore"
	case PhaseError:
		return "error"
	default:
		return "initial"
	}
}

// Pagination дескриптор пагинации
type Pagination struct {
	Page        int
	PageSize    int
	TotalCount  int
	TotalPages  int
	HasNext     bool
	HasPrevious bool
}

// recount пересчитывает производные поля после локального изменения TotalCount
func (p *Pagination) recount() {
	if p.TotalCount < 0 {
		p.TotalCount = 0
	}
	p.TotalPages = 0
	if p.PageSize > 0 {
		p.TotalPages = (p.TotalCount + p.PageSize - 1) / p.PageSize
	}
	p.HasNext = p.Page < p.TotalPages
	p.HasPrevious = p.Page > 1
}

// State снапшот Collection Store
type State struct {
	Notes      []model.Note // Конкатенация страниц с последней смены фильтра/сортировки или refresh
	Pagination Pagination
	Filter     model.NoteFilter
	Sort       model.NoteSort
	Phase      Phase
	Err        *remoteerr.Error

	Categories []string
	Tags       []string
	Statistics model.Statistics

	LastSync time.Time // Время последней успешной загрузки страницы
}

// IsEmpty в загруженном окне нет заметок
func (s State) IsEmpty() bool {
	return len(s.Notes) == 0
}

// HasNext есть следующая страница
func (s State) HasNext() bool {
	return s.Pagination.HasNext
}

// IsLoading выполняется загрузка первой страницы, refresh или догрузка
func (s State) IsLoading() bool {
	switch s.Phase {
	case PhaseLoading, PhaseRefreshing, PhaseLoadingMore:
		return true
	}
	return false
}

// CanLoadMore есть следующая страница и нет загрузки в полете
func (s State) CanLoadMore() bool {
	return s.Pagination.HasNext && s.Phase != PhaseLoading && s.Phase != PhaseLoadingMore
}

// Message сообщение об ошибке для отображения
func (s State) Message() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Message
}

// Clone возвращает глубокую копию снапшота
func (s State) Clone() State {
	out := s
	out.Notes = make([]model.Note, len(s.Notes))
	for i, n := range s.Notes {
		out.Notes[i] = n.Clone()
	}
	out.Filter = s.Filter.Clone()
	out.Err = s.Err.Clone()
	out.Categories = slices.Clone(s.Categories)
	out.Tags = slices.Clone(s.Tags)
	out.Statistics = maps.Clone(s.Statistics)
	return out
}
