package httpapi

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"notes-client/internal/converter"
	"notes-client/internal/gateway"
	"notes-client/internal/model"
	"notes-client/internal/notify"
	"notes-client/internal/remoteerr"
)

var _ gateway.AuthGateway = (*Auth)(nil)

var errNoSession = remoteerr.Unauthorized("not authenticated").WithCodes(remoteerr.CodeNotAuthenticated)

// Auth реализация gateway.AuthGateway поверх REST API. Пока сессия открыта,
// держит поток GET /v1/auth/events и публикует его строки как AuthEvent.
type Auth struct {
	c      *Client
	log    zerolog.Logger
	events *notify.Channel[gateway.AuthEvent]

	watchEvents      bool
	reconnectInitial time.Duration
	reconnectMax     time.Duration

	mu          sync.Mutex
	user        *model.User
	watchCancel context.CancelFunc
	watchDone   chan struct{}
}

// AuthOption настраивает Auth
type AuthOption func(*Auth)

// WithEventStream включает поток событий сессии с параметрами переподключения
func WithEventStream(enabled bool, initial, maxInterval time.Duration) AuthOption {
	return func(a *Auth) {
		a.watchEvents = enabled
		if initial > 0 {
			a.reconnectInitial = initial
		}
		if maxInterval > 0 {
			a.reconnectMax = maxInterval
		}
	}
}

// NewAuth создает шлюз аутентификации
func NewAuth(c *Client, opts ...AuthOption) *Auth {
	a := &Auth{
		c:                c,
		log:              c.log,
		events:           notify.New[gateway.AuthEvent](),
		reconnectInitial: 500 * time.Millisecond,
		reconnectMax:     30 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Close останавливает поток событий
func (a *Auth) Close() error {
	a.stopWatch()
	return nil
}

// Initialize восстанавливает сохраненный токен и проверяет его через GET /v1/auth/session.
// Отвергнутый сервером токен молча удаляется.
func (a *Auth) Initialize(ctx context.Context) error {
	token, err := a.c.tokens.Load()
	if err != nil {
		return remoteerr.Wrap(err, remoteerr.KindUnknown, "cannot read session token")
	}
	if token == "" {
		a.setUser(nil)
		return nil
	}

	var resp converter.SessionResponse
	if err := a.c.do(ctx, http.MethodGet, "/v1/auth/session", nil, nil, &resp); err != nil {
		var e *remoteerr.Error
		if errors.As(err, &e) && (e.Kind == remoteerr.KindUnauthorized || e.Kind == remoteerr.KindAuthentication) {
			a.log.Info().Msg("stored session rejected")
			a.clearLocal()
			return nil
		}
		return err
	}

	a.open(resp.User)
	return nil
}

func (a *Auth) Login(ctx context.Context, email, password string) (model.User, error) {
	var resp converter.SessionResponse
	req := converter.LoginRequest{Email: email, Password: password}
	if err := a.c.do(ctx, http.MethodPost, "/v1/auth/login", nil, req, &resp); err != nil {
		return model.User{}, err
	}
	return a.start(resp)
}

func (a *Auth) Register(ctx context.Context, req gateway.RegisterRequest) (model.User, error) {
	var resp converter.SessionResponse
	if err := a.c.do(ctx, http.MethodPost, "/v1/auth/register", nil, req, &resp); err != nil {
		return model.User{}, err
	}
	return a.start(resp)
}

// Logout закрывает сессию на сервере. Локальное состояние очищается в любом случае.
func (a *Auth) Logout(ctx context.Context) error {
	a.stopWatch()

	var err error
	if token, _ := a.c.tokens.Load(); token != "" {
		err = a.c.do(ctx, http.MethodPost, "/v1/auth/logout", nil, nil, nil)
	}
	a.clearLocal()
	return err
}

func (a *Auth) CurrentIdentity() *model.User {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.user == nil {
		return nil
	}
	u := *a.user
	return &u
}

func (a *Auth) IsSessionValid() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.user != nil
}

func (a *Auth) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	if !a.IsSessionValid() {
		return errNoSession
	}
	req := converter.PasswordChangeRequest{CurrentPassword: currentPassword, NewPassword: newPassword}
	err := a.c.do(ctx, http.MethodPost, "/v1/auth/password", nil, req, nil)
	a.checkExpired(err)
	return err
}

func (a *Auth) UpdateProfile(ctx context.Context, upd gateway.ProfileUpdate) (model.User, error) {
	if !a.IsSessionValid() {
		return model.User{}, errNoSession
	}
	var user model.User
	if err := a.c.do(ctx, http.MethodPatch, "/v1/auth/profile", nil, upd, &user); err != nil {
		a.checkExpired(err)
		return model.User{}, err
	}
	a.setUser(&user)
	return user, nil
}

func (a *Auth) DeleteAccount(ctx context.Context) error {
	if !a.IsSessionValid() {
		return errNoSession
	}
	if err := a.c.do(ctx, http.MethodDelete, "/v1/auth/account", nil, nil, nil); err != nil {
		a.checkExpired(err)
		return err
	}
	a.stopWatch()
	a.clearLocal()
	return nil
}

func (a *Auth) Subscribe(fn func(gateway.AuthEvent)) *notify.Subscription {
	return a.events.Subscribe(fn)
}

// start сохраняет токен новой сессии и открывает ее
func (a *Auth) start(resp converter.SessionResponse) (model.User, error) {
	a.stopWatch()
	if err := a.c.tokens.Save(resp.Token); err != nil {
		return model.User{}, remoteerr.Wrap(err, remoteerr.KindUnknown, "cannot store session token")
	}
	a.open(resp.User)
	return resp.User, nil
}

func (a *Auth) open(user model.User) {
	a.mu.Lock()
	u := user
	a.user = &u
	a.startWatchLocked()
	a.mu.Unlock()
}

func (a *Auth) setUser(user *model.User) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if user == nil {
		a.user = nil
		return
	}
	u := *user
	a.user = &u
}

// clearLocal удаляет токен и личность
func (a *Auth) clearLocal() {
	if err := a.c.tokens.Clear(); err != nil {
		a.log.Warn().Err(err).Msg("failed to clear session token")
	}
	a.setUser(nil)
}

// checkExpired закрывает локальную сессию, если сервер отверг токен, и сообщает подписчикам
func (a *Auth) checkExpired(err error) {
	var e *remoteerr.Error
	if !errors.As(err, &e) || e.Kind != remoteerr.KindUnauthorized {
		return
	}
	a.stopWatch()
	a.expire()
}

// expire очищает сессию и публикует событие невалидной сессии
func (a *Auth) expire() {
	if !a.IsSessionValid() {
		return
	}
	a.clearLocal()
	a.log.Info().Msg("session expired")
	a.events.Publish(gateway.AuthEvent{SessionValid: false})
}
