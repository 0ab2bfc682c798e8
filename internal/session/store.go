// Package session единый источник истины о текущем пользователе: конечный автомат
// фаз аутентификации поверх gateway.AuthGateway и правила валидации учетных данных.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"notes-client/internal/gateway"
	"notes-client/internal/metrics"
	"notes-client/internal/model"
	"notes-client/internal/notify"
	"notes-client/internal/remoteerr"
)

// ErrBusy возвращается, если операция того же вида уже выполняется
var ErrBusy = errors.New("session: operation already in progress")

// ErrNotAuthenticated операция требует активной сессии
var ErrNotAuthenticated = remoteerr.Unauthorized("not authenticated").WithCodes(remoteerr.CodeNotAuthenticated)

// Store Session Store. Безопасен для вызова из нескольких горутин:
// блокировка отпускается на время каждого вызова шлюза.
type Store struct {
	auth gateway.AuthGateway
	log  zerolog.Logger

	ch     *notify.Channel[State]
	outbox *notify.Outbox[State]
	sub    *notify.Subscription
	once   sync.Once

	mu          sync.Mutex
	state       State
	initialized bool
	busy        bool // initialize/login/register/logout
	profileBusy bool // changePassword/updateProfile/deleteAccount
}

// Option настраивает Store
type Option func(*Store)

// WithLogger задает логгер
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// New создает Store и подписывается на внеполосные события шлюза.
// Начальная фаза uninitialized; Initialize вызывается явно.
func New(auth gateway.AuthGateway, opts ...Option) *Store {
	ch := notify.New[State]()
	s := &Store{
		auth:   auth,
		log:    zerolog.Nop(),
		ch:     ch,
		outbox: notify.NewOutbox(ch),
		state:  State{Phase: PhaseUninitialized},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sub = auth.Subscribe(s.onAuthEvent)
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

// Dispose отписывается от событий шлюза. Повторные вызовы безопасны.
func (s *Store) Dispose() {
	s.once.Do(func() {
		s.sub.Unsubscribe()
	})
}

// Initialize восстанавливает сессию через шлюз: authenticated, если шлюз сообщает
// о действующей сессии, иначе unauthenticated. Сбой шлюза остается в Err.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	s.busy = true
	s.setLocked(State{Phase: PhaseAuthenticating, User: s.state.User})
	s.mu.Unlock()
	s.outbox.Flush()

	err := s.auth.Initialize(ctx)
	metrics.GatewayCall("auth.initialize", err)

	s.mu.Lock()
	s.busy = false
	s.initialized = true
	var e *remoteerr.Error
	if err != nil {
		e = remoteerr.From(err)
		s.log.Warn().Err(err).Strs("codes", e.Codes).Msg("session restore failed")
		s.setLocked(State{Phase: PhaseUnauthenticated, Err: e})
	} else {
		s.setLocked(s.derive())
	}
	s.mu.Unlock()
	s.outbox.Flush()

	if e != nil {
		return e
	}
	return nil
}

// Login выполняет вход. Пустые или некорректные учетные данные отклоняются
// без обращения к шлюзу.
func (s *Store) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	return s.authenticate(ctx, "auth.login", ValidateLogin(email, password), func(ctx context.Context) (model.User, error) {
		return s.auth.Login(ctx, email, password)
	})
}

// Register регистрирует пользователя и открывает сессию
func (s *Store) Register(ctx context.Context, req gateway.RegisterRequest) error {
	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	return s.authenticate(ctx, "auth.register", ValidateRegistration(req), func(ctx context.Context) (model.User, error) {
		return s.auth.Register(ctx, req)
	})
}

// authenticate общий протокол login/register: защита от повторного входа,
// локальная валидация, authenticating -> authenticated | failed
func (s *Store) authenticate(ctx context.Context, op string, invalid error, call func(context.Context) (model.User, error)) error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	previous := s.state.User

	if invalid != nil {
		e := remoteerr.From(invalid)
		s.setLocked(State{Phase: PhaseFailed, User: previous, Err: e})
		s.mu.Unlock()
		s.outbox.Flush()
		return e
	}

	s.busy = true
	s.setLocked(State{Phase: PhaseAuthenticating, User: previous})
	s.mu.Unlock()
	s.outbox.Flush()

	user, err := call(ctx)
	metrics.GatewayCall(op, err)

	s.mu.Lock()
	s.busy = false
	s.initialized = true
	var e *remoteerr.Error
	if err != nil {
		e = remoteerr.From(err)
		s.log.Warn().Err(err).Str("op", op).Strs("codes", e.Codes).Msg("authentication failed")
		s.setLocked(State{Phase: PhaseFailed, User: previous, Err: e})
	} else {
		s.setLocked(State{Phase: PhaseAuthenticated, User: &user})
	}
	s.mu.Unlock()
	s.outbox.Flush()

	if e != nil {
		return e
	}
	return nil
}

// Logout завершает сессию. Локальная личность очищается всегда;
// ошибка удаленного вызова только логируется.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	s.busy = true
	s.setLocked(State{Phase: PhaseAuthenticating, User: s.state.User})
	s.mu.Unlock()
	s.outbox.Flush()

	err := s.auth.Logout(ctx)
	metrics.GatewayCall("auth.logout", err)
	if err != nil {
		s.log.Warn().Err(err).Msg("remote logout failed, local session cleared anyway")
	}

	s.mu.Lock()
	s.busy = false
	s.initialized = true
	s.setLocked(State{Phase: PhaseUnauthenticated})
	s.mu.Unlock()
	s.outbox.Flush()
	return nil
}

// CheckAuthStatus до инициализации выполняет Initialize, иначе пересчитывает фазу
// по снапшоту шлюза без сетевого запроса. Фаза failed сохраняется до ClearError.
func (s *Store) CheckAuthStatus(ctx context.Context) error {
	s.mu.Lock()
	if !s.initialized && !s.busy {
		s.mu.Unlock()
		return s.Initialize(ctx)
	}
	if s.busy {
		s.mu.Unlock()
		return nil
	}

	derived := s.derive()
	switch s.state.Phase {
	case PhaseFailed:
		// Ошибку не сбрасываем молча, обновляем только сохраненную личность
		if derived.User != nil {
			s.setLocked(State{Phase: PhaseFailed, User: derived.User, Err: s.state.Err})
		}
	default:
		if derived.Phase != s.state.Phase || !sameUser(derived.User, s.state.User) {
			s.setLocked(derived)
		}
	}
	s.mu.Unlock()
	s.outbox.Flush()
	return nil
}

// ChangePassword меняет пароль; новый пароль проверяется по правилам новых паролей
func (s *Store) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	var invalid error
	if err := ValidatePassword(currentPassword, false); err != nil {
		invalid = err
	} else if err := ValidatePassword(newPassword, true); err != nil {
		invalid = err
	}

	_, err := s.profileOp(ctx, "auth.change_password", invalid, func(ctx context.Context) (*model.User, error) {
		return nil, s.auth.ChangePassword(ctx, currentPassword, newPassword)
	})
	return err
}

// UpdateProfile обновляет профиль и заменяет личность в снапшоте
func (s *Store) UpdateProfile(ctx context.Context, upd gateway.ProfileUpdate) error {
	var invalid error
	if upd.Username != nil {
		invalid = ValidateUsername(*upd.Username)
	}

	user, err := s.profileOp(ctx, "auth.update_profile", invalid, func(ctx context.Context) (*model.User, error) {
		u, err := s.auth.UpdateProfile(ctx, upd)
		if err != nil {
			return nil, err
		}
		return &u, nil
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.state.Phase == PhaseAuthenticated && user != nil && s.state.User != nil && s.state.User.ID == user.ID {
		s.setLocked(State{Phase: PhaseAuthenticated, User: user})
	}
	s.mu.Unlock()
	s.outbox.Flush()
	return nil
}

// DeleteAccount удаляет учетную запись; при успехе фаза unauthenticated
func (s *Store) DeleteAccount(ctx context.Context) error {
	_, err := s.profileOp(ctx, "auth.delete_account", nil, func(ctx context.Context) (*model.User, error) {
		return nil, s.auth.DeleteAccount(ctx)
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.setLocked(State{Phase: PhaseUnauthenticated})
	s.mu.Unlock()
	s.outbox.Flush()
	return nil
}

// profileOp общий протокол операций с профилем: требует authenticated,
// держит собственный флаг занятости и не меняет фазу на время вызова.
// Ошибка записывается в Err при сохранении фазы authenticated. Вызов без сессии
// публикует ErrNotAuthenticated, не меняя фазу; отказ по занятости (ErrBusy)
// состояние не меняет, как и у входа.
func (s *Store) profileOp(ctx context.Context, op string, invalid error, call func(context.Context) (*model.User, error)) (*model.User, error) {
	s.mu.Lock()
	if s.state.Phase != PhaseAuthenticated {
		s.setLocked(State{Phase: s.state.Phase, User: s.state.User, Err: ErrNotAuthenticated})
		s.mu.Unlock()
		s.outbox.Flush()
		return nil, ErrNotAuthenticated
	}
	if s.profileBusy {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	if invalid != nil {
		e := remoteerr.From(invalid)
		s.setLocked(State{Phase: PhaseAuthenticated, User: s.state.User, Err: e})
		s.mu.Unlock()
		s.outbox.Flush()
		return nil, e
	}
	s.profileBusy = true
	s.mu.Unlock()

	user, err := call(ctx)
	metrics.GatewayCall(op, err)

	s.mu.Lock()
	s.profileBusy = false
	if err != nil {
		e := remoteerr.From(err)
		s.log.Warn().Err(err).Str("op", op).Msg("profile operation failed")
		if s.state.Phase == PhaseAuthenticated {
			s.setLocked(State{Phase: PhaseAuthenticated, User: s.state.User, Err: e})
		}
		s.mu.Unlock()
		s.outbox.Flush()
		return nil, e
	}
	if s.state.Err != nil && s.state.Phase == PhaseAuthenticated {
		s.setLocked(State{Phase: PhaseAuthenticated, User: s.state.User})
	}
	s.mu.Unlock()
	s.outbox.Flush()
	return user, nil
}

// ClearError failed -> authenticated при наличии личности, иначе unauthenticated.
// В остальных фазах только сбрасывает Err.
func (s *Store) ClearError() {
	s.mu.Lock()
	switch {
	case s.state.Phase == PhaseFailed && s.state.User != nil:
		s.setLocked(State{Phase: PhaseAuthenticated, User: s.state.User})
	case s.state.Phase == PhaseFailed:
		s.setLocked(State{Phase: PhaseUnauthenticated})
	case s.state.Err != nil:
		s.setLocked(State{Phase: s.state.Phase, User: s.state.User})
	}
	s.mu.Unlock()
	s.outbox.Flush()
}

// onAuthEvent применяет внеполосное событие шлюза напрямую, минуя authenticating.
// До Initialize и во время входа/выхода события игнорируются: результат
// выполняемой операции важнее.
func (s *Store) onAuthEvent(ev gateway.AuthEvent) {
	s.mu.Lock()
	if !s.initialized || s.state.Phase == PhaseAuthenticating {
		s.mu.Unlock()
		s.log.Debug().Bool("session_valid", ev.SessionValid).Msg("auth event ignored")
		return
	}

	switch {
	case !ev.SessionValid && s.state.Phase == PhaseFailed:
		s.setLocked(State{Phase: PhaseFailed, Err: s.state.Err})
	case !ev.SessionValid:
		s.setLocked(State{Phase: PhaseUnauthenticated})
	case ev.User == nil:
		// Сессия действительна, личность не изменилась
	case s.state.Phase == PhaseFailed:
		s.setLocked(State{Phase: PhaseFailed, User: ev.User, Err: s.state.Err})
	default:
		s.setLocked(State{Phase: PhaseAuthenticated, User: ev.User, Err: s.state.Err})
	}
	s.mu.Unlock()
	s.outbox.Flush()
}

// derive фаза по снапшоту шлюза (без сети)
func (s *Store) derive() State {
	if !s.auth.IsSessionValid() {
		return State{Phase: PhaseUnauthenticated}
	}
	user := s.auth.CurrentIdentity()
	if user == nil {
		return State{Phase: PhaseUnauthenticated}
	}
	return State{Phase: PhaseAuthenticated, User: user}
}

// setLocked заменяет состояние и ставит снапшот в очередь публикации; вызывается под mu
func (s *Store) setLocked(next State) {
	prev := s.state.Phase
	s.state = next.Clone()
	if prev != next.Phase {
		metrics.SessionTransition(next.Phase.String())
		s.log.Debug().Str("from", prev.String()).Str("to", next.Phase.String()).Msg("session transition")
	}
	s.outbox.Enqueue(s.state.Clone())
}

func sameUser(a, b *model.User) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
