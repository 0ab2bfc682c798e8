package collection

import (
	"notes-client/internal/model"
)

// NoteByID ищет заметку в загруженном окне
func (s *Store) NoteByID(id string) (model.Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexLocked(id); i >= 0 {
		return s.state.Notes[i].Clone(), true
	}
	return model.Note{}, false
}

// NotesByCategory заметки загруженного окна с категорией
func (s *Store) NotesByCategory(category string) []model.Note {
	return s.where(func(n *model.Note) bool { return n.Category == category })
}

// NotesByPriority заметки загруженного окна с приоритетом
func (s *Store) NotesByPriority(priority model.Priority) []model.Note {
	return s.where(func(n *model.Note) bool { return n.Priority == priority })
}

// CompletedNotes выполненные заметки загруженного окна
func (s *Store) CompletedNotes() []model.Note {
	return s.where(func(n *model.Note) bool { return n.IsCompleted })
}

// PendingNotes невыполненные заметки загруженного окна
func (s *Store) PendingNotes() []model.Note {
	return s.where(func(n *model.Note) bool { return !n.IsCompleted })
}

// NewNote черновик новой заметки со значениями по умолчанию
func (s *Store) NewNote() model.Note {
	return model.NewNote()
}

func (s *Store) where(pred func(*model.Note) bool) []model.Note {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []model.Note{}
	for i := range s.state.Notes {
		if pred(&s.state.Notes[i]) {
			out = append(out, s.state.Notes[i].Clone())
		}
	}
	return out
}
