package collection

import (
	"context"
	"slices"

	"notes-client/internal/model"
)

// SearchNotes задает строку поиска
func (s *Store) SearchNotes(ctx context.Context, text string) error {
	return s.requery(ctx, func(f *model.NoteFilter, _ *model.NoteSort) bool {
		if f.SearchText == text {
			return false
		}
		f.SearchText = text
		return true
	})
}

// FilterByCategory ограничивает выборку категорией; nil снимает ограничение
func (s *Store) FilterByCategory(ctx context.Context, category *string) error {
	return s.requery(ctx, func(f *model.NoteFilter, _ *model.NoteSort) bool {
		if samePtr(f.Category, category) {
			return false
		}
		f.Category = copyPtr(category)
		return true
	})
}

// FilterByTags ограничивает выборку заметками, содержащими все теги
func (s *Store) FilterByTags(ctx context.Context, tags []string) error {
	return s.requery(ctx, func(f *model.NoteFilter, _ *model.NoteSort) bool {
		if slices.Equal(f.Tags, tags) {
			return false
		}
		f.Tags = slices.Clone(tags)
		return true
	})
}

// FilterByPriority ограничивает выборку приоритетом; nil снимает ограничение
func (s *Store) FilterByPriority(ctx context.Context, priority *model.Priority) error {
	return s.requery(ctx, func(f *model.NoteFilter, _ *model.NoteSort) bool {
		if samePtr(f.Priority, priority) {
			return false
		}
		f.Priority = copyPtr(priority)
		return true
	})
}

// FilterByCompletion ограничивает выборку по отметке о выполнении; nil снимает ограничение
func (s *Store) FilterByCompletion(ctx context.Context, completed *bool) error {
	return s.requery(ctx, func(f *model.NoteFilter, _ *model.NoteSort) bool {
		if samePtr(f.Completed, completed) {
			return false
		}
		f.Completed = copyPtr(completed)
		return true
	})
}

// ChangeSorting меняет сортировку
func (s *Store) ChangeSorting(ctx context.Context, sort model.NoteSort) error {
	sort = sort.Normalize()
	return s.requery(ctx, func(_ *model.NoteFilter, cur *model.NoteSort) bool {
		if *cur == sort {
			return false
		}
		*cur = sort
		return true
	})
}

// ClearAllFilters снимает все ограничения фильтра; сортировка сохраняется
func (s *Store) ClearAllFilters(ctx context.Context) error {
	return s.requery(ctx, func(f *model.NoteFilter, _ *model.NoteSort) bool {
		if f.IsZero() {
			return false
		}
		*f = model.NoteFilter{}
		return true
	})
}

// requery применяет изменение фильтра или сортировки. Если значение не
// изменилось, шлюз не вызывается; иначе выполняется refresh с первой страницы.
func (s *Store) requery(ctx context.Context, change func(*model.NoteFilter, *model.NoteSort) bool) error {
	s.mu.Lock()
	if !change(&s.state.Filter, &s.state.Sort) {
		s.mu.Unlock()
		return nil
	}
	s.log.Debug().Str("search", s.state.Filter.SearchText).
		Str("sort", string(s.state.Sort.Field)+" "+string(s.state.Sort.Direction)).
		Msg("query changed")
	q := s.beginLoadLocked(true)
	s.mu.Unlock()
	s.outbox.Flush()

	return s.runLoad(ctx, q, 0)
}

func samePtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
