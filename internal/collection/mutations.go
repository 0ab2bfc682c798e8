package collection

import (
	"context"

	"notes-client/internal/metrics"
	"notes-client/internal/model"
	"notes-client/internal/remoteerr"
)

// CreateNote создает заметку. Сохраненная копия вставляется в начало списка,
// общий счетчик увеличивается.
func (s *Store) CreateNote(ctx context.Context, note model.Note) (model.Note, error) {
	created, err := s.notes.Create(ctx, note)
	metrics.GatewayCall("notes.create", err)
	if err != nil {
		return model.Note{}, s.fail("create note", err)
	}

	s.mu.Lock()
	s.state.Notes = append([]model.Note{created.Clone()}, s.state.Notes...)
	s.state.Pagination.TotalCount++
	s.state.Pagination.recount()
	s.enqueueLocked()
	s.mu.Unlock()
	s.outbox.Flush()

	s.log.Debug().Str("id", created.ID).Msg("note created")
	return created, nil
}

// UpdateNote обновляет заметку. Если заметка с id есть в списке, она заменяется
// на месте; незавершенная оптимистичная правка для id становится недействительной.
func (s *Store) UpdateNote(ctx context.Context, id string, note model.Note) (model.Note, error) {
	updated, err := s.notes.Update(ctx, id, note)
	metrics.GatewayCall("notes.update", err)
	if err != nil {
		return model.Note{}, s.fail("update note", err)
	}

	s.mu.Lock()
	if i := s.indexLocked(id); i >= 0 {
		s.state.Notes[i] = updated.Clone()
		s.invalidateLocked(id)
		s.enqueueLocked()
	}
	s.mu.Unlock()
	s.outbox.Flush()

	return updated, nil
}

// DeleteNote удаляет заметку. Счетчик уменьшается на единицу (не ниже нуля)
// даже если заметки нет в загруженном окне.
func (s *Store) DeleteNote(ctx context.Context, id string) error {
	err := s.notes.Delete(ctx, id)
	metrics.GatewayCall("notes.delete", err)
	if err != nil {
		return s.fail("delete note", err)
	}

	s.mu.Lock()
	if i := s.indexLocked(id); i >= 0 {
		s.state.Notes = append(s.state.Notes[:i:i], s.state.Notes[i+1:]...)
	}
	s.invalidateLocked(id)
	s.state.Pagination.TotalCount--
	s.state.Pagination.recount()
	s.enqueueLocked()
	s.mu.Unlock()
	s.outbox.Flush()

	return nil
}

// ToggleNoteCompletion оптимистично инвертирует отметку о выполнении. Если
// заметки с id нет в списке, ничего не делает и возвращает nil. При ошибке шлюза
// исходная заметка восстанавливается, если за время вызова ее не удалили и
// список не был заменен.
func (s *Store) ToggleNoteCompletion(ctx context.Context, id string) (*model.Note, error) {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return nil, nil
	}
	original := s.state.Notes[i].Clone()
	s.state.Notes[i] = original.WithCompletionToggled()
	p := &pendingToggle{id: id, original: original, valid: true}
	s.invalidateLocked(id)
	s.pending[id] = p
	s.enqueueLocked()
	s.mu.Unlock()
	s.outbox.Flush()

	res, err := s.notes.ToggleCompletion(ctx, id)
	metrics.GatewayCall("notes.toggle", err)

	s.mu.Lock()
	defer func() {
		s.mu.Unlock()
		s.outbox.Flush()
	}()

	valid := p.valid
	if s.pending[id] == p {
		delete(s.pending, id)
	}
	p.valid = false

	if err != nil {
		e := remoteerr.From(err)
		if j := s.indexLocked(id); valid && j >= 0 {
			s.state.Notes[j] = p.original.Clone()
			metrics.Rollback()
			s.enqueueLocked()
		} else {
			s.log.Debug().Str("id", id).Msg("toggle rollback skipped")
		}
		s.log.Warn().Err(err).Str("id", id).Strs("codes", e.Codes).Msg("toggle completion failed")
		s.failLocked(e)
		return nil, e
	}

	if j := s.indexLocked(id); j >= 0 {
		s.state.Notes[j] = res.Clone()
		s.enqueueLocked()
	}
	return &res, nil
}

// fail записывает классифицированную ошибку мутации в состояние
func (s *Store) fail(op string, err error) *remoteerr.Error {
	e := remoteerr.From(err)
	s.log.Warn().Err(err).Str("op", op).Strs("codes", e.Codes).Msg("mutation failed")

	s.mu.Lock()
	s.failLocked(e)
	s.mu.Unlock()
	s.outbox.Flush()

	return e
}

// failLocked переводит Store в фазу error. Пока в полете загрузка страницы,
// фаза сохраняется (она держит защиту от параллельной догрузки), меняется только Err.
func (s *Store) failLocked(e *remoteerr.Error) {
	if !s.state.IsLoading() {
		s.state.Phase = PhaseError
	}
	s.state.Err = e
	s.enqueueLocked()
}
