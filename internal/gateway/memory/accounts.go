package memory

import (
	"errors"
	"strings"
	"sync"
	"time"

	"notes-client/internal/gateway"
	"notes-client/internal/model"
	"notes-client/internal/notify"
	"notes-client/internal/remoteerr"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrSessionExpired возвращается для неизвестного или отозванного токена
var ErrSessionExpired = remoteerr.Unauthorized("session expired")

// ErrInvalidCredentials возвращается при неверном email или пароле
var ErrInvalidCredentials = remoteerr.Authentication("invalid email or password")

// AccountEvent событие сессии: изменение профиля или отзыв токена
type AccountEvent struct {
	Token        string
	UserID       string
	User         *model.User
	SessionValid bool
}

type account struct {
	user         model.User
	passwordHash []byte
}

// Accounts in-memory реестр учетных записей и сессий (несколько пользователей)
type Accounts struct {
	mu       sync.RWMutex
	accounts map[string]*account // userID -> account
	sessions map[string]string   // token -> userID
	cost     int
	now      func() time.Time
	events   *notify.Channel[AccountEvent]
}

// AccountsOption настраивает реестр учетных записей
type AccountsOption func(*Accounts)

// WithBcryptCost задает стоимость bcrypt (в тестах - bcrypt.MinCost)
func WithBcryptCost(cost int) AccountsOption {
	return func(a *Accounts) {
		a.cost = cost
	}
}

// WithAccountsClock подменяет источник времени
func WithAccountsClock(now func() time.Time) AccountsOption {
	return func(a *Accounts) {
		a.now = now
	}
}

// NewAccounts создает пустой реестр учетных записей
func NewAccounts(opts ...AccountsOption) *Accounts {
	a := &Accounts{
		accounts: make(map[string]*account),
		sessions: make(map[string]string),
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
		events:   notify.New[AccountEvent](),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Subscribe подписывает на события сессий
func (a *Accounts) Subscribe(fn func(AccountEvent)) *notify.Subscription {
	return a.events.Subscribe(fn)
}

// Watchers возвращает количество подписчиков на события сессий
func (a *Accounts) Watchers() int {
	return a.events.Len()
}

// Register создает учетную запись и открывает сессию
func (a *Accounts) Register(req gateway.RegisterRequest) (model.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)

	var codes []string
	if email == "" {
		codes = append(codes, remoteerr.CodeEmailRequired)
	}
	if username == "" {
		codes = append(codes, remoteerr.CodeUsernameRequired)
	}
	if req.Password == "" {
		codes = append(codes, remoteerr.CodePasswordRequired)
	}
	if len(codes) > 0 {
		return model.User{}, "", remoteerr.Validation("email, username and password are required", codes...)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), a.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return model.User{}, "", remoteerr.Validation("password is too long")
		}
		return model.User{}, "", remoteerr.Wrap(err, remoteerr.KindServer, "failed to hash password")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, acc := range a.accounts {
		if strings.EqualFold(acc.user.Email, email) {
			return model.User{}, "", remoteerr.Conflict("email already in use", remoteerr.CodeEmailTaken)
		}
		if strings.EqualFold(acc.user.Username, username) {
			return model.User{}, "", remoteerr.Conflict("username already in use", remoteerr.CodeUsernameTaken)
		}
	}

	now := a.now()
	user := model.User{
		ID:        uuid.New().String(),
		Email:     email,
		Username:  username,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		CreatedAt: now,
		UpdatedAt: now,
		IsActive:  true,
	}
	a.accounts[user.ID] = &account{user: user, passwordHash: hash}

	return user, a.issueLocked(user.ID), nil
}

// Login проверяет учетные данные и открывает сессию
func (a *Accounts) Login(email, password string) (model.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	a.mu.RLock()
	var found *account
	for _, acc := range a.accounts {
		if acc.user.Email == email {
			found = acc
			break
		}
	}
	a.mu.RUnlock()

	if found == nil {
		return model.User{}, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(found.passwordHash, []byte(password)); err != nil {
		return model.User{}, "", ErrInvalidCredentials
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	// Учетная запись могла быть удалена между проверкой пароля и выдачей токена
	acc, ok := a.accounts[found.user.ID]
	if !ok {
		return model.User{}, "", ErrInvalidCredentials
	}
	return acc.user, a.issueLocked(acc.user.ID), nil
}

// Authenticate возвращает пользователя по токену сессии
func (a *Accounts) Authenticate(token string) (model.User, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	userID, ok := a.sessions[token]
	if !ok {
		return model.User{}, ErrSessionExpired
	}
	acc, ok := a.accounts[userID]
	if !ok {
		return model.User{}, ErrSessionExpired
	}
	return acc.user, nil
}

// Logout отзывает токен сессии
func (a *Accounts) Logout(token string) error {
	a.mu.Lock()
	userID, ok := a.sessions[token]
	delete(a.sessions, token)
	a.mu.Unlock()

	if !ok {
		return ErrSessionExpired
	}
	a.events.Publish(AccountEvent{Token: token, UserID: userID, SessionValid: false})
	return nil
}

// ChangePassword меняет пароль после проверки текущего
func (a *Accounts) ChangePassword(token, currentPassword, newPassword string) error {
	if newPassword == "" {
		return remoteerr.Validation("new password is required", remoteerr.CodePasswordRequired)
	}

	a.mu.RLock()
	acc, err := a.accountLocked(token)
	a.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(currentPassword)); err != nil {
		return remoteerr.Authentication("current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), a.cost)
	if err != nil {
		return remoteerr.Wrap(err, remoteerr.KindServer, "failed to hash password")
	}

	a.mu.Lock()
	acc.passwordHash = hash
	acc.user.UpdatedAt = a.now()
	a.mu.Unlock()
	return nil
}

// UpdateProfile обновляет профиль и уведомляет все сессии пользователя
func (a *Accounts) UpdateProfile(token string, upd gateway.ProfileUpdate) (model.User, error) {
	a.mu.Lock()
	acc, err := a.accountLocked(token)
	if err != nil {
		a.mu.Unlock()
		return model.User{}, err
	}

	if upd.Username != nil {
		username := strings.TrimSpace(*upd.Username)
		if username == "" {
			a.mu.Unlock()
			return model.User{}, remoteerr.Validation("username is required", remoteerr.CodeUsernameRequired)
		}
		for id, other := range a.accounts {
			if id != acc.user.ID && strings.EqualFold(other.user.Username, username) {
				a.mu.Unlock()
				return model.User{}, remoteerr.Conflict("username already in use", remoteerr.CodeUsernameTaken)
			}
		}
		acc.user.Username = username
	}
	if upd.FirstName != nil {
		acc.user.FirstName = strings.TrimSpace(*upd.FirstName)
	}
	if upd.LastName != nil {
		acc.user.LastName = strings.TrimSpace(*upd.LastName)
	}
	if upd.AvatarURL != nil {
		acc.user.AvatarURL = strings.TrimSpace(*upd.AvatarURL)
	}
	acc.user.UpdatedAt = a.now()

	user := acc.user
	tokens := a.tokensLocked(user.ID)
	a.mu.Unlock()

	for _, t := range tokens {
		u := user
		a.events.Publish(AccountEvent{Token: t, UserID: user.ID, User: &u, SessionValid: true})
	}
	return user, nil
}

// DeleteAccount удаляет учетную запись и отзывает все ее сессии
func (a *Accounts) DeleteAccount(token string) error {
	a.mu.Lock()
	acc, err := a.accountLocked(token)
	if err != nil {
		a.mu.Unlock()
		return err
	}
	userID := acc.user.ID
	delete(a.accounts, userID)
	a.mu.Unlock()

	a.RevokeSessions(userID)
	return nil
}

// RevokeSessions отзывает все сессии пользователя (внеполосная инвалидация)
func (a *Accounts) RevokeSessions(userID string) {
	a.mu.Lock()
	tokens := a.tokensLocked(userID)
	for _, t := range tokens {
		delete(a.sessions, t)
	}
	a.mu.Unlock()

	for _, t := range tokens {
		a.events.Publish(AccountEvent{Token: t, UserID: userID, SessionValid: false})
	}
}

func (a *Accounts) issueLocked(userID string) string {
	token := uuid.New().String()
	a.sessions[token] = userID
	return token
}

func (a *Accounts) accountLocked(token string) (*account, error) {
	userID, ok := a.sessions[token]
	if !ok {
		return nil, ErrSessionExpired
	}
	acc, ok := a.accounts[userID]
	if !ok {
		return nil, ErrSessionExpired
	}
	return acc, nil
}

func (a *Accounts) tokensLocked(userID string) []string {
	var tokens []string
	for t, id := range a.sessions {
		if id == userID {
			tokens = append(tokens, t)
		}
	}
	return tokens
}
