package memory

import (
	"context"
	"sync"
	"time"

	"notes-client/internal/gateway"
	"notes-client/internal/model"
	"notes-client/internal/notify"
)

var _ gateway.AuthGateway = (*Auth)(nil)

// Auth in-memory шлюз аутентификации одного клиента поверх общего реестра Accounts.
// Внеполосные изменения (отзыв токена, правка профиля с другого устройства)
// приходят через Accounts и транслируются подписчикам как gateway.AuthEvent.
type Auth struct {
	faults

	accounts *Accounts
	sub      *notify.Subscription
	events   *notify.Channel[gateway.AuthEvent]

	mu    sync.RWMutex
	token string
	user  *model.User
}

// AuthOption настраивает in-memory шлюз аутентификации
type AuthOption func(*Auth)

// WithAuthLatency добавляет задержку перед каждой удаленной операцией
func WithAuthLatency(d time.Duration) AuthOption {
	return func(a *Auth) {
		a.latency = d
	}
}

// WithToken восстанавливает ранее сохраненный токен (проверяется в Initialize)
func WithToken(token string) AuthOption {
	return func(a *Auth) {
		a.token = token
	}
}

// NewAuth создает шлюз аутентификации для реестра accounts
func NewAuth(accounts *Accounts, opts ...AuthOption) *Auth {
	a := &Auth{
		accounts: accounts,
		events:   notify.New[gateway.AuthEvent](),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.sub = accounts.Subscribe(a.onAccountEvent)
	return a
}

// Close отписывается от реестра учетных записей
func (a *Auth) Close() {
	a.sub.Unsubscribe()
}

// Token возвращает текущий токен сессии (пусто, если сессии нет)
func (a *Auth) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

// Initialize проверяет восстановленный токен; невалидный токен молча сбрасывается
func (a *Auth) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token == "" {
		return nil
	}
	user, err := a.accounts.Authenticate(a.token)
	if err != nil {
		a.token = ""
		a.user = nil
		return nil
	}
	a.user = &user
	return nil
}

// Login выполняет вход
func (a *Auth) Login(ctx context.Context, email, password string) (model.User, error) {
	if err := a.take(ctx, OpLogin); err != nil {
		return model.User{}, err
	}

	user, token, err := a.accounts.Login(email, password)
	if err != nil {
		return model.User{}, err
	}
	a.setSession(token, user)
	return user, nil
}

// Register регистрирует пользователя и открывает сессию
func (a *Auth) Register(ctx context.Context, req gateway.RegisterRequest) (model.User, error) {
	if err := a.take(ctx, OpRegister); err != nil {
		return model.User{}, err
	}

	user, token, err := a.accounts.Register(req)
	if err != nil {
		return model.User{}, err
	}
	a.setSession(token, user)
	return user, nil
}

// Logout очищает локальную сессию до удаленного вызова: событие отзыва
// собственного токена уже не относится к этому клиенту
func (a *Auth) Logout(ctx context.Context) error {
	token := a.clearSession()

	if err := a.take(ctx, OpLogout); err != nil {
		return err
	}
	if token == "" {
		return nil
	}
	return a.accounts.Logout(token)
}

// CurrentIdentity возвращает копию текущего пользователя
func (a *Auth) CurrentIdentity() *model.User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.user == nil {
		return nil
	}
	u := *a.user
	return &u
}

// IsSessionValid сессия есть и токен не отозван
func (a *Auth) IsSessionValid() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token != "" && a.user != nil
}

// ChangePassword меняет пароль текущего пользователя
func (a *Auth) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	if err := a.take(ctx, OpChangePassword); err != nil {
		return err
	}
	return a.accounts.ChangePassword(a.Token(), currentPassword, newPassword)
}

// UpdateProfile обновляет профиль текущего пользователя
func (a *Auth) UpdateProfile(ctx context.Context, upd gateway.ProfileUpdate) (model.User, error) {
	if err := a.take(ctx, OpUpdateProfile); err != nil {
		return model.User{}, err
	}

	user, err := a.accounts.UpdateProfile(a.Token(), upd)
	if err != nil {
		return model.User{}, err
	}

	a.mu.Lock()
	a.user = &user
	a.mu.Unlock()
	return user, nil
}

// DeleteAccount удаляет учетную запись и закрывает сессию
func (a *Auth) DeleteAccount(ctx context.Context) error {
	if err := a.take(ctx, OpDeleteAccount); err != nil {
		return err
	}

	token := a.Token()
	if err := a.accounts.DeleteAccount(token); err != nil {
		return err
	}
	a.clearSession()
	return nil
}

// Subscribe подписывает на внеполосные события сессии
func (a *Auth) Subscribe(fn func(gateway.AuthEvent)) *notify.Subscription {
	return a.events.Subscribe(fn)
}

// ExpireSession отзывает текущий токен на стороне реестра, имитируя истечение сессии
func (a *Auth) ExpireSession() {
	if token := a.Token(); token != "" {
		_ = a.accounts.Logout(token)
	}
}

func (a *Auth) onAccountEvent(ev AccountEvent) {
	a.mu.Lock()
	if ev.Token == "" || ev.Token != a.token {
		a.mu.Unlock()
		return
	}

	out := gateway.AuthEvent{SessionValid: ev.SessionValid}
	if ev.SessionValid && ev.User != nil {
		u := *ev.User
		a.user = &u
		copied := u
		out.User = &copied
	} else if !ev.SessionValid {
		a.token = ""
		a.user = nil
	}
	a.mu.Unlock()

	a.events.Publish(out)
}

func (a *Auth) setSession(token string, user model.User) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = token
	a.user = &user
}

func (a *Auth) clearSession() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	token := a.token
	a.token = ""
	a.user = nil
	return token
}
