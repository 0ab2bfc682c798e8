package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notes-client/internal/gateway"
	"notes-client/internal/model"
	"notes-client/internal/notify"
	"notes-client/internal/remoteerr"
)

// mockAuth - mock шлюза аутентификации с функциями-подменами
type mockAuth struct {
	mu       sync.Mutex
	calls    map[string]int
	identity *model.User
	valid    bool
	events   *notify.Channel[gateway.AuthEvent]

	initializeFn     func(ctx context.Context) error
	loginFn          func(ctx context.Context, email, password string) (model.User, error)
	registerFn       func(ctx context.Context, req gateway.RegisterRequest) (model.User, error)
	logoutFn         func(ctx context.Context) error
	changePasswordFn func(ctx context.Context, current, next string) error
	updateProfileFn  func(ctx context.Context, upd gateway.ProfileUpdate) (model.User, error)
	deleteAccountFn  func(ctx context.Context) error
}

func newMockAuth() *mockAuth {
	return &mockAuth{
		calls:  make(map[string]int),
		events: notify.New[gateway.AuthEvent](),
	}
}

func (m *mockAuth) count(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[op]++
}

func (m *mockAuth) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *mockAuth) setSession(u *model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identity = u
	m.valid = u != nil
}

func (m *mockAuth) Initialize(ctx context.Context) error {
	m.count("initialize")
	if m.initializeFn != nil {
		return m.initializeFn(ctx)
	}
	return nil
}

func (m *mockAuth) Login(ctx context.Context, email, password string) (model.User, error) {
	m.count("login")
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	u := model.User{ID: "u-1", Email: email}
	m.setSession(&u)
	return u, nil
}

func (m *mockAuth) Register(ctx context.Context, req gateway.RegisterRequest) (model.User, error) {
	m.count("register")
	if m.registerFn != nil {
		return m.registerFn(ctx, req)
	}
	u := model.User{ID: "u-new", Email: req.Email, Username: req.Username}
	m.setSession(&u)
	return u, nil
}

func (m *mockAuth) Logout(ctx context.Context) error {
	m.count("logout")
	m.setSession(nil)
	if m.logoutFn != nil {
		return m.logoutFn(ctx)
	}
	return nil
}

func (m *mockAuth) CurrentIdentity() *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.identity == nil {
		return nil
	}
	u := *m.identity
	return &u
}

func (m *mockAuth) IsSessionValid() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.valid
}

func (m *mockAuth) ChangePassword(ctx context.Context, current, next string) error {
	m.count("change_password")
	if m.changePasswordFn != nil {
		return m.changePasswordFn(ctx, current, next)
	}
	return nil
}

func (m *mockAuth) UpdateProfile(ctx context.Context, upd gateway.ProfileUpdate) (model.User, error) {
	m.count("update_profile")
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, upd)
	}
	u := *m.CurrentIdentity()
	if upd.FirstName != nil {
		u.FirstName = *upd.FirstName
	}
	return u, nil
}

func (m *mockAuth) DeleteAccount(ctx context.Context) error {
	m.count("delete_account")
	if m.deleteAccountFn != nil {
		return m.deleteAccountFn(ctx)
	}
	m.setSession(nil)
	return nil
}

func (m *mockAuth) Subscribe(fn func(gateway.AuthEvent)) *notify.Subscription {
	return m.events.Subscribe(fn)
}

// recorder собирает опубликованные снапшоты
type recorder struct {
	mu     sync.Mutex
	states []State
}

func record(s *Store) *recorder {
	r := &recorder{}
	s.Subscribe(func(st State) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.states = append(r.states, st)
	})
	return r
}

func (r *recorder) phases() []Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Phase, 0, len(r.states))
	for _, st := range r.states {
		out = append(out, st.Phase)
	}
	return out
}

func (r *recorder) last() (State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return State{}, false
	}
	return r.states[len(r.states)-1], true
}

func loggedIn(t *testing.T) (*Store, *mockAuth) {
	t.Helper()
	auth := newMockAuth()
	s := New(auth)
	t.Cleanup(s.Dispose)
	require.NoError(t, s.Initialize(context.Background()))
	require.NoError(t, s.Login(context.Background(), "ada@example.com", "Secret123"))
	require.True(t, s.State().IsAuthenticated())
	return s, auth
}

func TestStore_LoginInvalidEmail(t *testing.T) {
	auth := newMockAuth()
	s := New(auth)
	defer s.Dispose()

	err := s.Login(context.Background(), "bad-email", "whatever123")
	require.Error(t, err)
	assert.True(t, errors.Is(err, remoteerr.ErrValidation))

	st := s.State()
	assert.Equal(t, PhaseFailed, st.Phase)
	require.NotNil(t, st.Err)
	assert.Equal(t, []string{remoteerr.CodeInvalidEmail}, st.Err.Codes)
	assert.Nil(t, st.User)
	assert.Zero(t, auth.Calls("login"))
}

func TestStore_LoginShortPassword(t *testing.T) {
	auth := newMockAuth()
	s := New(auth)
	defer s.Dispose()

	err := s.Login(context.Background(), "a@b.com", "short")
	require.Error(t, err)
	assert.Contains(t, remoteerr.Codes(err), remoteerr.CodePasswordTooShort)
	assert.Equal(t, PhaseFailed, s.State().Phase)
	assert.Zero(t, auth.Calls("login"))
}

func TestStore_LoginEmptyFieldsFailFast(t *testing.T) {
	auth := newMockAuth()
	s := New(auth)
	defer s.Dispose()

	err := s.Login(context.Background(), "", "")
	require.Error(t, err)
	assert.Equal(t, []string{remoteerr.CodeEmailRequired, remoteerr.CodePasswordRequired}, remoteerr.Codes(err))
	assert.Zero(t, auth.Calls("login"))
}

func TestStore_LoginSuccessTransitions(t *testing.T) {
	auth := newMockAuth()
	s := New(auth)
	defer s.Dispose()
	rec := record(s)

	require.NoError(t, s.Login(context.Background(), " ada@example.com ", "Secret123"))

	assert.Equal(t, []Phase{PhaseAuthenticating, PhaseAuthenticated}, rec.phases())
	st := s.State()
	assert.True(t, st.IsAuthenticated())
	assert.Equal(t, "ada@example.com", st.User.Email)
	assert.Nil(t, st.Err)
}

func TestStore_LoginGatewayFailureRetainsPreviousIdentity(t *testing.T) {
	s, auth := loggedIn(t)
	auth.loginFn = func(context.Context, string, string) (model.User, error) {
		return model.User{}, remoteerr.Authentication("invalid email or password")
	}

	err := s.Login(context.Background(), "other@example.com", "Secret123")
	require.Error(t, err)
	assert.True(t, errors.Is(err, remoteerr.ErrAuthentication))

	st := s.State()
	assert.Equal(t, PhaseFailed, st.Phase)
	assert.False(t, st.IsAuthenticated())
	require.NotNil(t, st.User)
	assert.Equal(t, "ada@example.com", st.User.Email)
	assert.Equal(t, "invalid email or password", st.Message())

	s.ClearError()
	st = s.State()
	assert.Equal(t, PhaseAuthenticated, st.Phase)
	assert.Nil(t, st.Err)
}

func TestStore_ClearErrorWithoutIdentity(t *testing.T) {
	s := New(newMockAuth())
	defer s.Dispose()

	_ = s.Login(context.Background(), "bad", "x")
	s.ClearError()
	assert.Equal(t, PhaseUnauthenticated, s.State().Phase)
}

func TestStore_ReentrantLoginRejected(t *testing.T) {
	auth := newMockAuth()
	release := make(chan struct{})
	started := make(chan struct{})
	auth.loginFn = func(ctx context.Context, email, _ string) (model.User, error) {
		close(started)
		<-release
		return model.User{ID: "u-1", Email: email}, nil
	}
	s := New(auth)
	defer s.Dispose()

	done := make(chan error, 1)
	go func() {
		done <- s.Login(context.Background(), "ada@example.com", "Secret123")
	}()
	<-started

	assert.True(t, s.State().IsLoading())
	assert.ErrorIs(t, s.Login(context.Background(), "ada@example.com", "Secret123"), ErrBusy)
	assert.ErrorIs(t, s.Register(context.Background(), gateway.RegisterRequest{}), ErrBusy)
	assert.ErrorIs(t, s.Logout(context.Background()), ErrBusy)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, auth.Calls("login"))
	assert.Equal(t, PhaseAuthenticated, s.State().Phase)
}

func TestStore_LogoutAlwaysClearsIdentity(t *testing.T) {
	s, auth := loggedIn(t)
	auth.logoutFn = func(context.Context) error {
		return remoteerr.New(remoteerr.KindConnection, "offline")
	}
	rec := record(s)

	require.NoError(t, s.Logout(context.Background()))

	assert.Equal(t, []Phase{PhaseAuthenticating, PhaseUnauthenticated}, rec.phases())
	st := s.State()
	assert.Nil(t, st.User)
	assert.Nil(t, st.Err)
}

func TestStore_Initialize(t *testing.T) {
	t.Run("existing session", func(t *testing.T) {
		auth := newMockAuth()
		auth.setSession(&model.User{ID: "u-1", Email: "ada@example.com"})
		s := New(auth)
		defer s.Dispose()
		rec := record(s)

		require.NoError(t, s.Initialize(context.Background()))
		assert.Equal(t, []Phase{PhaseAuthenticating, PhaseAuthenticated}, rec.phases())
		assert.Equal(t, "u-1", s.State().User.ID)
	})

	t.Run("no session", func(t *testing.T) {
		s := New(newMockAuth())
		defer s.Dispose()

		require.NoError(t, s.Initialize(context.Background()))
		assert.Equal(t, PhaseUnauthenticated, s.State().Phase)
	})

	t.Run("gateway failure", func(t *testing.T) {
		auth := newMockAuth()
		auth.initializeFn = func(context.Context) error {
			return remoteerr.New(remoteerr.KindTimeout, "timed out")
		}
		s := New(auth)
		defer s.Dispose()

		rec := record(s)

		err := s.Initialize(context.Background())
		assert.True(t, errors.Is(err, remoteerr.ErrTimeout))

		st := s.State()
		assert.Equal(t, PhaseUnauthenticated, st.Phase)
		require.NotNil(t, st.Err)
		assert.Equal(t, remoteerr.KindTimeout, st.Err.Kind)
		assert.Equal(t, "timed out", st.Message())

		last, ok := rec.last()
		require.True(t, ok)
		require.NotNil(t, last.Err, "failure is visible to subscribers")
		assert.True(t, remoteerr.Retryable(last.Err))

		// Повторная попытка после восстановления сети снимает ошибку
		auth.initializeFn = nil
		require.NoError(t, s.Initialize(context.Background()))
		assert.Nil(t, s.State().Err)
	})
}

func TestStore_CheckAuthStatus(t *testing.T) {
	auth := newMockAuth()
	s := New(auth)
	defer s.Dispose()

	// До инициализации выполняется полная инициализация
	require.NoError(t, s.CheckAuthStatus(context.Background()))
	assert.Equal(t, 1, auth.Calls("initialize"))
	assert.Equal(t, PhaseUnauthenticated, s.State().Phase)

	// Далее фаза пересчитывается по снапшоту шлюза без сети
	auth.setSession(&model.User{ID: "u-1", Email: "ada@example.com"})
	require.NoError(t, s.CheckAuthStatus(context.Background()))
	assert.Equal(t, 1, auth.Calls("initialize"))
	assert.True(t, s.State().IsAuthenticated())

	rec := record(s)
	require.NoError(t, s.CheckAuthStatus(context.Background()))
	assert.Empty(t, rec.phases(), "unchanged status must not publish")

	auth.setSession(nil)
	require.NoError(t, s.CheckAuthStatus(context.Background()))
	assert.Equal(t, PhaseUnauthenticated, s.State().Phase)
}

func TestStore_ExternalEvents(t *testing.T) {
	s, auth := loggedIn(t)

	auth.events.Publish(gateway.AuthEvent{SessionValid: true, User: &model.User{ID: "u-1", Email: "ada@example.com", FirstName: "Ada"}})
	assert.Equal(t, "Ada", s.State().User.FirstName)
	assert.Equal(t, PhaseAuthenticated, s.State().Phase)

	rec := record(s)
	auth.events.Publish(gateway.AuthEvent{SessionValid: false})
	assert.Equal(t, []Phase{PhaseUnauthenticated}, rec.phases(), "external events bypass authenticating")
	assert.Nil(t, s.State().User)

	auth.events.Publish(gateway.AuthEvent{SessionValid: true, User: &model.User{ID: "u-1"}})
	assert.True(t, s.State().IsAuthenticated())
}

func TestStore_ExternalEventsIgnoredBeforeInitialize(t *testing.T) {
	auth := newMockAuth()
	s := New(auth)
	defer s.Dispose()

	auth.events.Publish(gateway.AuthEvent{SessionValid: true, User: &model.User{ID: "u-1"}})
	assert.Equal(t, PhaseUninitialized, s.State().Phase)
}

func TestStore_ExternalEventsIgnoredWhileAuthenticating(t *testing.T) {
	auth := newMockAuth()
	auth.loginFn = func(ctx context.Context, email, _ string) (model.User, error) {
		auth.events.Publish(gateway.AuthEvent{SessionValid: false})
		return model.User{ID: "u-1", Email: email}, nil
	}
	s := New(auth)
	defer s.Dispose()
	require.NoError(t, s.Initialize(context.Background()))

	require.NoError(t, s.Login(context.Background(), "ada@example.com", "Secret123"))
	assert.True(t, s.State().IsAuthenticated())
}

func TestStore_FailedPhaseKeepsErrorOnEvents(t *testing.T) {
	s, auth := loggedIn(t)
	_ = s.Login(context.Background(), "bad", "x")
	require.Equal(t, PhaseFailed, s.State().Phase)

	auth.events.Publish(gateway.AuthEvent{SessionValid: true, User: &model.User{ID: "u-1", FirstName: "Augusta"}})
	st := s.State()
	assert.Equal(t, PhaseFailed, st.Phase)
	assert.NotNil(t, st.Err)
	assert.Equal(t, "Augusta", st.User.FirstName)
}

func TestStore_DisposeIsIdempotent(t *testing.T) {
	auth := newMockAuth()
	s := New(auth)
	require.NoError(t, s.Initialize(context.Background()))
	assert.Equal(t, 1, auth.events.Len())

	s.Dispose()
	s.Dispose()
	assert.Equal(t, 0, auth.events.Len())

	auth.events.Publish(gateway.AuthEvent{SessionValid: true, User: &model.User{ID: "u-1"}})
	assert.Equal(t, PhaseUnauthenticated, s.State().Phase)
}

func TestStore_RegisterValidation(t *testing.T) {
	auth := newMockAuth()
	s := New(auth)
	defer s.Dispose()

	err := s.Register(context.Background(), gateway.RegisterRequest{Email: "ada@example.com", Username: "ada", Password: "password"})
	require.Error(t, err)
	assert.Equal(t, []string{remoteerr.CodePasswordMissingUppercase}, remoteerr.Codes(err))
	assert.Zero(t, auth.Calls("register"))

	require.NoError(t, s.Register(context.Background(), gateway.RegisterRequest{Email: "ada@example.com", Username: "ada", Password: "Password1"}))
	assert.Equal(t, "ada", s.State().User.Username)
}

func TestStore_RegisterConflict(t *testing.T) {
	auth := newMockAuth()
	auth.registerFn = func(context.Context, gateway.RegisterRequest) (model.User, error) {
		return model.User{}, remoteerr.Conflict("email already in use", remoteerr.CodeEmailTaken)
	}
	s := New(auth)
	defer s.Dispose()

	err := s.Register(context.Background(), gateway.RegisterRequest{Email: "ada@example.com", Username: "ada", Password: "Password1"})
	assert.True(t, errors.Is(err, remoteerr.ErrConflict))
	assert.Contains(t, s.State().Err.Codes, remoteerr.CodeEmailTaken)
}

func TestStore_ProfileOpsRequireAuthentication(t *testing.T) {
	auth := newMockAuth()
	s := New(auth)
	defer s.Dispose()

	assert.ErrorIs(t, s.DeleteAccount(context.Background()), ErrNotAuthenticated)
	assert.ErrorIs(t, s.ChangePassword(context.Background(), "a", "Secret123"), ErrNotAuthenticated)
	assert.ErrorIs(t, s.UpdateProfile(context.Background(), gateway.ProfileUpdate{}), ErrNotAuthenticated)
	assert.Zero(t, auth.Calls("delete_account"))

	st := s.State()
	assert.Equal(t, PhaseUninitialized, st.Phase)
	require.NotNil(t, st.Err)
	assert.True(t, st.Err.HasCode(remoteerr.CodeNotAuthenticated))

	s.ClearError()
	assert.Nil(t, s.State().Err)
}

func TestStore_UpdateProfile(t *testing.T) {
	s, auth := loggedIn(t)

	require.NoError(t, s.UpdateProfile(context.Background(), gateway.ProfileUpdate{FirstName: model.Ptr("Ada")}))
	assert.Equal(t, "Ada", s.State().User.FirstName)

	auth.updateProfileFn = func(context.Context, gateway.ProfileUpdate) (model.User, error) {
		return model.User{}, remoteerr.Conflict("username already in use", remoteerr.CodeUsernameTaken)
	}
	err := s.UpdateProfile(context.Background(), gateway.ProfileUpdate{Username: model.Ptr("taken")})
	assert.True(t, errors.Is(err, remoteerr.ErrConflict))

	st := s.State()
	assert.True(t, st.IsAuthenticated())
	require.NotNil(t, st.Err)
	assert.Contains(t, st.Err.Codes, remoteerr.CodeUsernameTaken)

	err = s.UpdateProfile(context.Background(), gateway.ProfileUpdate{Username: model.Ptr("a b")})
	assert.Contains(t, remoteerr.Codes(err), remoteerr.CodeInvalidUsername)
}

func TestStore_ChangePassword(t *testing.T) {
	s, auth := loggedIn(t)

	err := s.ChangePassword(context.Background(), "Secret123", "weak")
	assert.Contains(t, remoteerr.Codes(err), remoteerr.CodePasswordTooShort)
	assert.Zero(t, auth.Calls("change_password"))

	require.NoError(t, s.ChangePassword(context.Background(), "Secret123", "Another123"))
	assert.Equal(t, 1, auth.Calls("change_password"))
	assert.Nil(t, s.State().Err)
}

func TestStore_DeleteAccount(t *testing.T) {
	s, auth := loggedIn(t)

	auth.deleteAccountFn = func(context.Context) error {
		return remoteerr.Server(500, "boom")
	}
	require.Error(t, s.DeleteAccount(context.Background()))
	assert.True(t, s.State().IsAuthenticated())

	auth.deleteAccountFn = nil
	require.NoError(t, s.DeleteAccount(context.Background()))
	st := s.State()
	assert.Equal(t, PhaseUnauthenticated, st.Phase)
	assert.Nil(t, st.User)
}

func TestStore_ProfileOpBusyGuard(t *testing.T) {
	s, auth := loggedIn(t)
	release := make(chan struct{})
	started := make(chan struct{})
	auth.changePasswordFn = func(context.Context, string, string) error {
		close(started)
		<-release
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- s.ChangePassword(context.Background(), "Secret123", "Another123")
	}()
	<-started

	assert.Equal(t, PhaseAuthenticated, s.State().Phase)
	assert.ErrorIs(t, s.DeleteAccount(context.Background()), ErrBusy)
	assert.Nil(t, s.State().Err, "rejected re-entrant call leaves state untouched")

	close(release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("change password did not finish")
	}
}

func TestStore_SnapshotsAreCopies(t *testing.T) {
	s, _ := loggedIn(t)

	st := s.State()
	st.User.Email = "mutated@example.com"
	assert.Equal(t, "ada@example.com", s.State().User.Email)
}
