package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"notes-client/internal/gateway"
	"notes-client/internal/model"
	"notes-client/internal/remoteerr"

	"github.com/google/uuid"
)

// DefaultPageSize размер страницы, если в запросе он не задан
const DefaultPageSize = 20

// ErrNoteNotFound возвращается, когда заметка не найдена
var ErrNoteNotFound = remoteerr.NotFound("note not found").WithCodes(remoteerr.CodeNoteNotFound)

var _ gateway.NotesGateway = (*Notes)(nil)

// Notes in-memory шлюз заметок одного владельца на основе map
type Notes struct {
	faults

	mu      sync.RWMutex
	ownerID string
	notes   map[string]model.Note
	now     func() time.Time
}

// NotesOption настраивает in-memory шлюз заметок
type NotesOption func(*Notes)

// WithClock подменяет источник времени (для тестов)
func WithClock(now func() time.Time) NotesOption {
	return func(n *Notes) {
		n.now = now
	}
}

// WithLatency добавляет задержку перед каждой операцией
func WithLatency(d time.Duration) NotesOption {
	return func(n *Notes) {
		n.latency = d
	}
}

// NewNotes создает новый in-memory шлюз заметок для владельца ownerID
func NewNotes(ownerID string, opts ...NotesOption) *Notes {
	n := &Notes{
		ownerID: ownerID,
		notes:   make(map[string]model.Note),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Seed добавляет заметки как есть (ID генерируется, если не задан)
func (r *Notes) Seed(notes ...model.Note) []model.Note {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.Note, 0, len(notes))
	for _, note := range notes {
		if note.ID == "" {
			note.ID = uuid.New().String()
		}
		if note.CreatedAt.IsZero() {
			note.CreatedAt = r.now()
		}
		if note.UpdatedAt.Before(note.CreatedAt) {
			note.UpdatedAt = note.CreatedAt
		}
		if note.OwnerID == "" {
			note.OwnerID = r.ownerID
		}
		note.Tags = model.NormalizeTags(note.Tags)
		if note.Priority == "" {
			note.Priority = model.PriorityMedium
		}
		r.notes[note.ID] = note
		out = append(out, note.Clone())
	}
	return out
}

// Len возвращает количество хранимых заметок
func (r *Notes) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.notes)
}

// FetchPage возвращает страницу заметок с учетом фильтра и сортировки
func (r *Notes) FetchPage(ctx context.Context, q model.PageQuery) (model.Page[model.Note], error) {
	if err := r.take(ctx, OpFetch); err != nil {
		return model.Page[model.Note]{}, err
	}

	page := max(q.Page, 1)
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	r.mu.RLock()
	matched := make([]model.Note, 0, len(r.notes))
	for _, note := range r.notes {
		if matches(note, q.Filter) {
			matched = append(matched, note.Clone())
		}
	}
	r.mu.RUnlock()

	sortNotes(matched, q.Sort.Normalize())

	start := min((page-1)*pageSize, len(matched))
	end := min(start+pageSize, len(matched))

	return model.NewPage(matched[start:end], len(matched), page, pageSize), nil
}

// Create создает новую заметку и возвращает созданную заметку с ID
func (r *Notes) Create(ctx context.Context, note model.Note) (model.Note, error) {
	if err := r.take(ctx, OpCreate); err != nil {
		return model.Note{}, err
	}

	// Валидация: title и content не должны быть пустыми
	if err := note.Validate(); err != nil {
		return model.Note{}, err
	}

	now := r.now()
	created := model.Note{
		ID:          uuid.New().String(),
		Title:       strings.TrimSpace(note.Title),
		Content:     strings.TrimSpace(note.Content),
		IsCompleted: note.IsCompleted,
		CreatedAt:   now,
		UpdatedAt:   now,
		OwnerID:     r.ownerID,
		Tags:        model.NormalizeTags(note.Tags),
		Priority:    cmp.Or(note.Priority, model.PriorityMedium),
		Category:    strings.TrimSpace(note.Category),
	}

	r.mu.Lock()
	r.notes[created.ID] = created
	r.mu.Unlock()

	return created.Clone(), nil
}

// Update обновляет заметку с указанным ID
func (r *Notes) Update(ctx context.Context, id string, note model.Note) (model.Note, error) {
	if err := r.take(ctx, OpUpdate); err != nil {
		return model.Note{}, err
	}
	if id == "" {
		return model.Note{}, remoteerr.Validation("id cannot be empty", remoteerr.CodeIDRequired)
	}
	if err := note.Validate(); err != nil {
		return model.Note{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.notes[id]
	if !exists {
		return model.Note{}, ErrNoteNotFound
	}

	existing.Title = strings.TrimSpace(note.Title)
	existing.Content = strings.TrimSpace(note.Content)
	existing.IsCompleted = note.IsCompleted
	existing.Tags = model.NormalizeTags(note.Tags)
	existing.Priority = cmp.Or(note.Priority, model.PriorityMedium)
	existing.Category = strings.TrimSpace(note.Category)
	existing.UpdatedAt = r.touch(existing)

	r.notes[id] = existing
	return existing.Clone(), nil
}

// Delete удаляет заметку по ID
func (r *Notes) Delete(ctx context.Context, id string) error {
	if err := r.take(ctx, OpDelete); err != nil {
		return err
	}
	if id == "" {
		return remoteerr.Validation("id cannot be empty", remoteerr.CodeIDRequired)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.notes[id]; !exists {
		return ErrNoteNotFound
	}
	delete(r.notes, id)
	return nil
}

// ToggleCompletion инвертирует отметку о выполнении
func (r *Notes) ToggleCompletion(ctx context.Context, id string) (model.Note, error) {
	if err := r.take(ctx, OpToggle); err != nil {
		return model.Note{}, err
	}
	if id == "" {
		return model.Note{}, remoteerr.Validation("id cannot be empty", remoteerr.CodeIDRequired)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.notes[id]
	if !exists {
		return model.Note{}, ErrNoteNotFound
	}
	existing.IsCompleted = !existing.IsCompleted
	existing.UpdatedAt = r.touch(existing)
	r.notes[id] = existing

	return existing.Clone(), nil
}

// ListCategories возвращает непустые категории в алфавитном порядке
func (r *Notes) ListCategories(ctx context.Context) ([]string, error) {
	if err := r.take(ctx, OpCategories); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	categories := make([]string, 0)
	for _, note := range r.notes {
		if note.Category != "" && !slices.Contains(categories, note.Category) {
			categories = append(categories, note.Category)
		}
	}
	slices.Sort(categories)
	return categories, nil
}

// ListTags возвращает все используемые теги в алфавитном порядке
func (r *Notes) ListTags(ctx context.Context) ([]string, error) {
	if err := r.take(ctx, OpTags); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	tags := make([]string, 0)
	for _, note := range r.notes {
		for _, tag := range note.Tags {
			if !slices.Contains(tags, tag) {
				tags = append(tags, tag)
			}
		}
	}
	slices.Sort(tags)
	return tags, nil
}

// GetStatistics возвращает счетчики: всего, выполнено, в работе и по приоритетам
func (r *Notes) GetStatistics(ctx context.Context) (model.Statistics, error) {
	if err := r.take(ctx, OpStatistics); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := model.Statistics{
		model.StatTotal:     len(r.notes),
		model.StatCompleted: 0,
		model.StatPending:   0,
	}
	for _, p := range model.Priorities {
		stats[model.PriorityStatKey(p)] = 0
	}
	for _, note := range r.notes {
		if note.IsCompleted {
			stats[model.StatCompleted]++
		} else {
			stats[model.StatPending]++
		}
		stats[model.PriorityStatKey(note.Priority)]++
	}
	return stats, nil
}

// touch возвращает новое время обновления, не раньше CreatedAt
func (r *Notes) touch(note model.Note) time.Time {
	now := r.now()
	if now.Before(note.CreatedAt) {
		return note.CreatedAt
	}
	return now
}

// matches проверяет заметку на соответствие фильтру
func matches(note model.Note, f model.NoteFilter) bool {
	if q := strings.ToLower(strings.TrimSpace(f.SearchText)); q != "" {
		found := strings.Contains(strings.ToLower(note.Title), q) ||
			strings.Contains(strings.ToLower(note.Content), q) ||
			slices.ContainsFunc(note.Tags, func(tag string) bool {
				return strings.Contains(strings.ToLower(tag), q)
			})
		if !found {
			return false
		}
	}
	if f.Category != nil && !strings.EqualFold(note.Category, *f.Category) {
		return false
	}
	for _, tag := range f.Tags {
		if !note.HasTag(tag) {
			return false
		}
	}
	if f.Priority != nil && note.Priority != *f.Priority {
		return false
	}
	if f.Completed != nil && note.IsCompleted != *f.Completed {
		return false
	}
	return true
}

// sortNotes сортирует по полю и направлению; при равенстве - по ID для стабильной пагинации
func sortNotes(notes []model.Note, s model.NoteSort) {
	slices.SortFunc(notes, func(a, b model.Note) int {
		var c int
		switch s.Field {
		case model.SortByCreatedAt:
			c = a.CreatedAt.Compare(b.CreatedAt)
		case model.SortByTitle:
			c = strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		case model.SortByPriority:
			c = cmp.Compare(a.Priority.Rank(), b.Priority.Rank())
		default:
			c = a.UpdatedAt.Compare(b.UpdatedAt)
		}
		if s.Direction == model.SortDesc {
			c = -c
		}
		if c == 0 {
			c = strings.Compare(a.ID, b.ID)
		}
		return c
	})
}
