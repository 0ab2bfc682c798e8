package session

import (
	"notes-client/internal/model"
	"notes-client/internal/remoteerr"
)

// Phase фаза сессии
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseAuthenticating
	PhaseAuthenticated
	PhaseUnauthenticated
	PhaseFailed
)

// String возвращает имя фазы
func (p Phase) String() string {
	switch p {
	case PhaseAuthenticating:
		return "authenticating"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhaseFailed:
		return "failed"
	default:
		return "uninitialized"
	}
}

// State снапшот Session Store.
// В фазе failed User содержит предыдущую личность только для отображения.
// Err в фазе authenticated означает, что последняя операция с профилем не удалась;
// в фазе unauthenticated - что не удалось восстановить сессию или операция требовала входа.
type State struct {
	Phase Phase
	User  *model.User
	Err   *remoteerr.Error
}

// IsAuthenticated сессия активна
func (s State) IsAuthenticated() bool {
	return s.Phase == PhaseAuthenticated && s.User != nil
}

// IsLoading идет вход, регистрация, выход или инициализация
func (s State) IsLoading() bool {
	return s.Phase == PhaseAuthenticating
}

// Message сообщение об ошибке для отображения (пусто, если ошибки нет)
func (s State) Message() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Message
}

// Clone возвращает глубокую копию снапшота
func (s State) Clone() State {
	out := State{Phase: s.Phase, Err: s.Err.Clone()}
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	return out
}
