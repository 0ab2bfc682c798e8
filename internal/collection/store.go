// Package collection клиентское представление коллекции заметок: постраничная
// выборка под активными фильтром и сортировкой, оптимистичные правки с откатом
// и сверка с асинхронными ответами шлюза.
//
// Блокировка Store отпускается на время каждого вызова шлюза. Ответы применяются
// по id в момент прихода: ответ для id, которого уже нет в списке, ничего не меняет.
package collection

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"notes-client/internal/gateway"
	"notes-client/internal/metrics"
	"notes-client/internal/model"
	"notes-client/internal/notify"
	"notes-client/internal/remoteerr"
)

// DefaultPageSize размер страницы по умолчанию
const DefaultPageSize = 20

// pendingToggle незавершенная оптимистичная правка. Живет только на время вызова
// шлюза; удаление заметки и замена списка делают запись недействительной.
type pendingToggle struct {
	id       string
	original model.Note
	valid    bool
}

// Store Collection Store
type Store struct {
	notes gateway.NotesGateway
	log   zerolog.Logger
	now   func() time.Time

	ch     *notify.Channel[State]
	outbox *notify.Outbox[State]

	mu      sync.Mutex
	state   State
	pending map[string]*pendingToggle
}

// Option настраивает Store
type Option func(*Store)

// WithLogger задает логгер
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// WithPageSize задает размер страницы
func WithPageSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.state.Pagination.PageSize = n
		}
	}
}

// WithClock подменяет источник времени для LastSync
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New создает Store в фазе initial. Загрузка выполняется явно через LoadNotes.
func New(notes gateway.NotesGateway, opts ...Option) *Store {
	ch := notify.New[State]()
	s := &Store{
		notes:   notes,
		log:     zerolog.Nop(),
		now:     time.Now,
		ch:      ch,
		outbox:  notify.NewOutbox(ch),
		pending: make(map[string]*pendingToggle),
		state: State{
			Notes:      []model.Note{},
			Pagination: Pagination{Page: 1, PageSize: DefaultPageSize},
			Sort:       model.DefaultSort(),
			Phase:      PhaseInitial,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State возвращает текущий снапшот
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Subscribe подписывает на снапшоты после каждого перехода
func (s *Store) Subscribe(fn func(State)) *notify.Subscription {
	return s.ch.Subscribe(fn)
}

// LoadNotes загружает текущую страницу. refresh сбрасывает на первую страницу
// и очищает список; загрузка в пустой список идет в фазе loading; иначе фаза
// не меняется (фоновая перезагрузка).
func (s *Store) LoadNotes(ctx context.Context, refresh bool) error {
	s.mu.Lock()
	q := s.beginLoadLocked(refresh)
	s.mu.Unlock()
	s.outbox.Flush()

	return s.runLoad(ctx, q, 0)
}

// LoadMoreNotes догружает следующую страницу. Ничего не делает, если следующей
// страницы нет или загрузка уже идет. При ошибке номер страницы откатывается.
func (s *Store) LoadMoreNotes(ctx context.Context) error {
	s.mu.Lock()
	if !s.state.CanLoadMore() {
		s.mu.Unlock()
		return nil
	}
	prevPage := s.state.Pagination.Page
	s.state.Pagination.Page = prevPage + 1
	s.state.Phase = PhaseLoadingMore
	s.state.Err = nil
	q := s.queryLocked()
	s.enqueueLocked()
	s.mu.Unlock()
	s.outbox.Flush()

	return s.runLoad(ctx, q, prevPage)
}

// Reset возвращает Store в начальное состояние с сохранением размера страницы
// (например, после выхода пользователя)
func (s *Store) Reset() {
	s.mu.Lock()
	s.invalidateAllLocked()
	s.state = State{
		Notes:      []model.Note{},
		Pagination: Pagination{Page: 1, PageSize: s.state.Pagination.PageSize},
		Sort:       model.DefaultSort(),
		Phase:      PhaseInitial,
	}
	s.enqueueLocked()
	s.mu.Unlock()
	s.outbox.Flush()
}

// ClearError выходит из фазы error: в loaded, если хотя бы одна страница была
// загружена, иначе в initial
func (s *Store) ClearError() {
	s.mu.Lock()
	if s.state.Phase != PhaseError && s.state.Err == nil {
		s.mu.Unlock()
		return
	}
	if s.state.Phase == PhaseError {
		if s.state.LastSync.IsZero() {
			s.state.Phase = PhaseInitial
		} else {
			s.state.Phase = PhaseLoaded
		}
	}
	s.state.Err = nil
	s.enqueueLocked()
	s.mu.Unlock()
	s.outbox.Flush()
}

// beginLoadLocked шаг 1 протокола загрузки; возвращает запрос для шлюза
func (s *Store) beginLoadLocked(refresh bool) model.PageQuery {
	switch {
	case refresh:
		s.state.Pagination.Page = 1
		s.state.Notes = []model.Note{}
		s.invalidateAllLocked()
		s.state.Phase = PhaseRefreshing
		s.state.Err = nil
		s.enqueueLocked()
	case len(s.state.Notes) == 0:
		s.state.Phase = PhaseLoading
		s.state.Err = nil
		s.enqueueLocked()
	}
	return s.queryLocked()
}

// runLoad шаги 2-4 протокола загрузки. rollbackPage > 0 означает догрузку:
// при ошибке номер страницы возвращается к rollbackPage.
func (s *Store) runLoad(ctx context.Context, q model.PageQuery, rollbackPage int) error {
	page, err := s.notes.FetchPage(ctx, q)
	metrics.GatewayCall("notes.fetch_page", err)

	s.mu.Lock()
	defer func() {
		s.mu.Unlock()
		s.outbox.Flush()
	}()

	if err != nil {
		e := remoteerr.From(err)
		s.log.Warn().Err(err).Int("page", q.Page).Strs("codes", e.Codes).Msg("load notes failed")
		if rollbackPage > 0 && s.state.Pagination.Page == q.Page {
			s.state.Pagination.Page = rollbackPage
		}
		s.state.Phase = PhaseError
		s.state.Err = e
		s.enqueueLocked()
		return e
	}

	items := make([]model.Note, 0, len(page.Items))
	for _, n := range page.Items {
		items = append(items, n.Clone())
	}

	if q.Page <= 1 {
		s.invalidateAllLocked()
		s.state.Notes = items
	} else {
		s.state.Notes = append(s.state.Notes, items...)
	}

	s.state.Pagination = Pagination{
		Page:        page.Page,
		PageSize:    page.PageSize,
		TotalCount:  page.TotalCount,
		TotalPages:  page.TotalPages,
		HasNext:     page.HasNext,
		HasPrevious: page.HasPrevious,
	}
	if s.state.Pagination.Page <= 0 {
		s.state.Pagination.Page = q.Page
	}
	if s.state.Pagination.PageSize <= 0 {
		s.state.Pagination.PageSize = q.PageSize
	}
	s.state.LastSync = s.now()
	s.state.Phase = PhaseLoaded
	s.state.Err = nil
	s.enqueueLocked()

	s.log.Debug().Int("page", s.state.Pagination.Page).Int("items", len(items)).
		Int("total", s.state.Pagination.TotalCount).Msg("notes loaded")
	return nil
}

// queryLocked текущий запрос страницы с копией фильтра
func (s *Store) queryLocked() model.PageQuery {
	return model.PageQuery{
		Page:     s.state.Pagination.Page,
		PageSize: s.state.Pagination.PageSize,
		Filter:   s.state.Filter.Clone(),
		Sort:     s.state.Sort,
	}
}

// enqueueLocked ставит снапшот в очередь публикации; вызывается под mu
func (s *Store) enqueueLocked() {
	s.outbox.Enqueue(s.state.Clone())
}

// indexLocked индекс заметки с id в списке или -1
func (s *Store) indexLocked(id string) int {
	for i := range s.state.Notes {
		if s.state.Notes[i].ID == id {
			return i
		}
	}
	return -1
}

// invalidateLocked делает недействительной незавершенную правку для id
func (s *Store) invalidateLocked(id string) {
	if p, ok := s.pending[id]; ok {
		p.valid = false
		delete(s.pending, id)
	}
}

// invalidateAllLocked делает недействительными все незавершенные правки (замена списка)
func (s *Store) invalidateAllLocked() {
	for id, p := range s.pending {
		p.valid = false
		delete(s.pending, id)
	}
}
