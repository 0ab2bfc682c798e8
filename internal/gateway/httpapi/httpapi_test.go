package httpapi_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"notes-client/internal/config"
	"notes-client/internal/devserver"
	"notes-client/internal/gateway"
	"notes-client/internal/gateway/httpapi"
	"notes-client/internal/model"
	"notes-client/internal/remoteerr"
)

const password = "Secret123"

type env struct {
	srv *devserver.Server
	ts  *httptest.Server
}

func newEnv(t *testing.T) *env {
	t.Helper()
	cfg := config.Default().DevServer
	cfg.BcryptCost = bcrypt.MinCost
	cfg.RateLimitRPS = 10000
	cfg.RateLimitBurst = 10000

	srv, err := devserver.New(cfg, zerolog.Nop())
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &env{srv: srv, ts: ts}
}

func (e *env) client(t *testing.T, tokens httpapi.TokenStore) *httpapi.Client {
	t.Helper()
	if tokens == nil {
		tokens = httpapi.NewMemoryTokenStore("")
	}
	c, err := httpapi.NewClient(e.ts.URL,
		httpapi.WithTokenStore(tokens),
		httpapi.WithTimeout(5*time.Second),
		httpapi.WithRateLimit(1000, 100),
		httpapi.WithDebug(true),
	)
	require.NoError(t, err)
	return c
}

// auth создает шлюз; Close регистрируется после ts.Close и выполняется раньше него
func (e *env) auth(t *testing.T, c *httpapi.Client, stream bool) *httpapi.Auth {
	t.Helper()
	a := httpapi.NewAuth(c, httpapi.WithEventStream(stream, 10*time.Millisecond, 50*time.Millisecond))
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func registerAda(t *testing.T, a *httpapi.Auth) model.User {
	t.Helper()
	user, err := a.Register(context.Background(), gateway.RegisterRequest{
		Email: "ada@example.com", Username: "ada", Password: password, FirstName: "Ada",
	})
	require.NoError(t, err)
	return user
}

type eventRecorder struct {
	mu     sync.Mutex
	events []gateway.AuthEvent
}

func (r *eventRecorder) record(ev gateway.AuthEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) last() (gateway.AuthEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return gateway.AuthEvent{}, false
	}
	return r.events[len(r.events)-1], true
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	_, err := httpapi.NewClient("ftp://example.com")
	assert.Error(t, err)

	_, err = httpapi.NewClient("://bad")
	assert.Error(t, err)
}

func TestAuth_RegisterLoginLogout(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.client(t, nil)
	a := e.auth(t, c, false)

	user := registerAda(t, a)
	assert.True(t, a.IsSessionValid())
	assert.Equal(t, user.ID, a.CurrentIdentity().ID)
	token, err := c.Tokens().Load()
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	require.NoError(t, a.Logout(ctx))
	assert.False(t, a.IsSessionValid())
	assert.Nil(t, a.CurrentIdentity())
	token, err = c.Tokens().Load()
	require.NoError(t, err)
	assert.Empty(t, token)

	_, err = a.Login(ctx, "ada@example.com", "Wrong1234")
	require.Error(t, err)
	assert.True(t, errors.Is(err, remoteerr.ErrAuthentication))
	assert.Contains(t, remoteerr.Codes(err), remoteerr.CodeInvalidCredentials)
	assert.Equal(t, http.StatusUnauthorized, remoteerr.From(err).StatusCode)

	logged, err := a.Login(ctx, "ada@example.com", password)
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)
}

func TestAuth_RegisterConflictKeepsFields(t *testing.T) {
	e := newEnv(t)
	a := e.auth(t, e.client(t, nil), false)
	registerAda(t, a)

	other := e.auth(t, e.client(t, nil), false)
	_, err := other.Register(context.Background(), gateway.RegisterRequest{
		Email: "ada@example.com", Username: "ada2", Password: password,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, remoteerr.ErrConflict))
	assert.Contains(t, remoteerr.Codes(err), remoteerr.CodeEmailTaken)
	assert.False(t, other.IsSessionValid())

	_, err = other.Register(context.Background(), gateway.RegisterRequest{
		Email: "bob@example.com", Username: "b", Password: password,
	})
	require.Error(t, err)
	re := remoteerr.From(err)
	assert.Equal(t, remoteerr.KindValidation, re.Kind)
	assert.Contains(t, re.Fields, "username")
}

func TestAuth_InitializeRestoresAndDropsToken(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	first := e.client(t, nil)
	user := registerAda(t, e.auth(t, first, false))
	token, err := first.Tokens().Load()
	require.NoError(t, err)

	restored := e.auth(t, e.client(t, httpapi.NewMemoryTokenStore(token)), false)
	require.NoError(t, restored.Initialize(ctx))
	assert.True(t, restored.IsSessionValid())
	assert.Equal(t, user.ID, restored.CurrentIdentity().ID)

	e.srv.Accounts().RevokeSessions(user.ID)

	staleTokens := httpapi.NewMemoryTokenStore(token)
	stale := e.auth(t, e.client(t, staleTokens), false)
	require.NoError(t, stale.Initialize(ctx))
	assert.False(t, stale.IsSessionValid())
	left, err := staleTokens.Load()
	require.NoError(t, err)
	assert.Empty(t, left)

	empty := e.auth(t, e.client(t, nil), false)
	require.NoError(t, empty.Initialize(ctx))
	assert.False(t, empty.IsSessionValid())
}

func TestAuth_InitializeServerDown(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c, err := httpapi.NewClient(url, httpapi.WithTokenStore(httpapi.NewMemoryTokenStore("kept")))
	require.NoError(t, err)
	a := httpapi.NewAuth(c)

	err = a.Initialize(context.Background())
	require.Error(t, err)
	assert.True(t, remoteerr.Retryable(err))
	assert.False(t, a.IsSessionValid())

	token, _ := c.Tokens().Load()
	assert.Equal(t, "kept", token)
}

func TestAuth_ProfileOperations(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.auth(t, e.client(t, nil), false)
	registerAda(t, a)

	name := "countess"
	user, err := a.UpdateProfile(ctx, gateway.ProfileUpdate{Username: &name})
	require.NoError(t, err)
	assert.Equal(t, "countess", user.Username)
	assert.Equal(t, "countess", a.CurrentIdentity().Username)

	err = a.ChangePassword(ctx, "Wrong1234", "Better123")
	assert.True(t, errors.Is(err, remoteerr.ErrAuthentication))
	assert.True(t, a.IsSessionValid())

	require.NoError(t, a.ChangePassword(ctx, password, "Better123"))
	require.NoError(t, a.Logout(ctx))
	_, err = a.Login(ctx, "ada@example.com", "Better123")
	require.NoError(t, err)

	require.NoError(t, a.DeleteAccount(ctx))
	assert.False(t, a.IsSessionValid())
	_, err = a.Login(ctx, "ada@example.com", "Better123")
	assert.True(t, errors.Is(err, remoteerr.ErrAuthentication))
}

func TestAuth_ProfileOpWithoutSession(t *testing.T) {
	e := newEnv(t)
	a := e.auth(t, e.client(t, nil), false)

	err := a.ChangePassword(context.Background(), password, "Better123")
	assert.True(t, errors.Is(err, remoteerr.ErrUnauthorized))
	assert.Contains(t, remoteerr.Codes(err), remoteerr.CodeNotAuthenticated)
}

func TestAuth_RevokedTokenExpiresOnProfileOp(t *testing.T) {
	e := newEnv(t)
	a := e.auth(t, e.client(t, nil), false)
	user := registerAda(t, a)

	rec := &eventRecorder{}
	sub := a.Subscribe(rec.record)
	defer sub.Unsubscribe()

	e.srv.Accounts().RevokeSessions(user.ID)

	name := "countess"
	_, err := a.UpdateProfile(context.Background(), gateway.ProfileUpdate{Username: &name})
	assert.True(t, errors.Is(err, remoteerr.ErrUnauthorized))
	assert.False(t, a.IsSessionValid())

	ev, ok := rec.last()
	require.True(t, ok)
	assert.False(t, ev.SessionValid)
}

func TestAuth_EventStreamDeliversProfileChange(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	watched := e.auth(t, e.client(t, nil), true)
	registerAda(t, watched)
	rec := &eventRecorder{}
	sub := watched.Subscribe(rec.record)
	defer sub.Unsubscribe()

	require.Eventually(t, func() bool { return e.srv.Accounts().Watchers() == 1 }, 2*time.Second, 5*time.Millisecond)

	other := e.auth(t, e.client(t, nil), false)
	_, err := other.Login(ctx, "ada@example.com", password)
	require.NoError(t, err)

	name := "countess"
	_, err = other.UpdateProfile(ctx, gateway.ProfileUpdate{Username: &name})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		u := watched.CurrentIdentity()
		return u != nil && u.Username == "countess"
	}, 2*time.Second, 5*time.Millisecond)

	ev, ok := rec.last()
	require.True(t, ok)
	assert.True(t, ev.SessionValid)
	require.NotNil(t, ev.User)
	assert.Equal(t, "countess", ev.User.Username)
}

func TestAuth_EventStreamExpiresSession(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, nil)
	watched := e.auth(t, c, true)
	user := registerAda(t, watched)
	rec := &eventRecorder{}
	sub := watched.Subscribe(rec.record)
	defer sub.Unsubscribe()

	require.Eventually(t, func() bool { return e.srv.Accounts().Watchers() == 1 }, 2*time.Second, 5*time.Millisecond)

	e.srv.Accounts().RevokeSessions(user.ID)

	require.Eventually(t, func() bool { return !watched.IsSessionValid() }, 2*time.Second, 5*time.Millisecond)
	ev, ok := rec.last()
	require.True(t, ok)
	assert.False(t, ev.SessionValid)

	require.Eventually(t, func() bool {
		token, _ := c.Tokens().Load()
		return token == ""
	}, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return e.srv.Accounts().Watchers() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestNotes_CRUDAndPaging(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.client(t, nil)
	registerAda(t, e.auth(t, c, false))
	notes := httpapi.NewNotes(c)

	var ids []string
	for i, title := range []string{"alpha", "beta", "gamma", "delta", "epsilon"} {
		n := model.NewNote()
		n.Title = title
		n.Content = "body " + title
		if i%2 == 0 {
			n.Priority = model.PriorityHigh
			n.Category = "work"
			n.Tags = []string{"even"}
		}
		created, err := notes.Create(ctx, n)
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)
		ids = append(ids, created.ID)
	}

	page, err := notes.FetchPage(ctx, model.PageQuery{
		Page: 2, PageSize: 2,
		Sort: model.NoteSort{Field: model.SortByTitle, Direction: model.SortAsc},
	})
	require.NoError(t, err)
	assert.Equal(t, 5, page.TotalCount)
	assert.Equal(t, 3, page.TotalPages)
	assert.True(t, page.HasNext)
	assert.True(t, page.HasPrevious)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "delta", page.Items[0].Title)
	assert.Equal(t, "epsilon", page.Items[1].Title)

	high := model.PriorityHigh
	page, err = notes.FetchPage(ctx, model.PageQuery{Page: 1, PageSize: 20, Filter: model.NoteFilter{Priority: &high}})
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalCount)

	toggled, err := notes.ToggleCompletion(ctx, ids[1])
	require.NoError(t, err)
	assert.True(t, toggled.IsCompleted)

	done := true
	page, err = notes.FetchPage(ctx, model.PageQuery{Page: 1, Filter: model.NoteFilter{Completed: &done}})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, ids[1], page.Items[0].ID)

	edit := toggled
	edit.Title = "beta prime"
	updated, err := notes.Update(ctx, ids[1], edit)
	require.NoError(t, err)
	assert.Equal(t, "beta prime", updated.Title)
	assert.True(t, updated.IsCompleted)

	require.NoError(t, notes.Delete(ctx, ids[0]))
	err = notes.Delete(ctx, ids[0])
	assert.True(t, errors.Is(err, remoteerr.ErrNotFound))
	assert.Contains(t, remoteerr.Codes(err), remoteerr.CodeNoteNotFound)

	categories, err := notes.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"work"}, categories)

	tags, err := notes.ListTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"even"}, tags)

	stats, err := notes.GetStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats[model.StatTotal])
	assert.Equal(t, 1, stats[model.StatCompleted])
}

func TestNotes_ValidationError(t *testing.T) {
	e := newEnv(t)
	c := e.client(t, nil)
	registerAda(t, e.auth(t, c, false))

	_, err := httpapi.NewNotes(c).Create(context.Background(), model.Note{Title: "", Content: "x"})
	require.Error(t, err)
	re := remoteerr.From(err)
	assert.Equal(t, remoteerr.KindValidation, re.Kind)
	assert.True(t, re.HasCode(remoteerr.CodeTitleRequired))
	assert.Contains(t, re.Fields, "title")
	assert.Equal(t, http.StatusBadRequest, re.StatusCode)
}

func TestNotes_Unauthorized(t *testing.T) {
	e := newEnv(t)
	_, err := httpapi.NewNotes(e.client(t, nil)).FetchPage(context.Background(), model.PageQuery{Page: 1})
	assert.True(t, errors.Is(err, remoteerr.ErrUnauthorized))
}

func TestFileTokenStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")
	s := httpapi.NewFileTokenStore(path)

	token, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, s.Save("abc"))
	token, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, s.Clear())
	require.NoError(t, s.Clear())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, s.Save("def"))
	require.NoError(t, s.Save(""))
	token, err = s.Load()
	require.NoError(t, err)
	assert.Empty(t, token)
}
