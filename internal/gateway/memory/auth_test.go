package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"notes-client/internal/gateway"
	"notes-client/internal/model"
	"notes-client/internal/remoteerr"
)

func newTestAccounts() *Accounts {
	return NewAccounts(WithBcryptCost(bcrypt.MinCost))
}

func registerUser(t *testing.T, a *Auth) model.User {
	t.Helper()
	user, err := a.Register(context.Background(), gateway.RegisterRequest{
		Email:     "ada@example.com",
		Username:  "ada",
		Password:  "Secret123",
		FirstName: "Ada",
	})
	require.NoError(t, err)
	return user
}

func TestAuth_RegisterLoginLogout(t *testing.T) {
	ctx := context.Background()
	auth := NewAuth(newTestAccounts())
	defer auth.Close()

	user := registerUser(t, auth)
	assert.True(t, auth.IsSessionValid())
	assert.Equal(t, user.ID, auth.CurrentIdentity().ID)

	require.NoError(t, auth.Logout(ctx))
	assert.False(t, auth.IsSessionValid())
	assert.Nil(t, auth.CurrentIdentity())

	_, err := auth.Login(ctx, "ada@example.com", "wrong")
	assert.True(t, errors.Is(err, remoteerr.ErrAuthentication))
	assert.Contains(t, remoteerr.Codes(err), remoteerr.CodeInvalidCredentials)

	logged, err := auth.Login(ctx, "ADA@example.com", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)
	assert.True(t, auth.IsSessionValid())
}

func TestAuth_RegisterDuplicate(t *testing.T) {
	accounts := newTestAccounts()
	auth := NewAuth(accounts)
	defer auth.Close()
	registerUser(t, auth)

	_, err := auth.Register(context.Background(), gateway.RegisterRequest{
		Email: "ada@example.com", Username: "other", Password: "Secret123",
	})
	assert.True(t, errors.Is(err, remoteerr.ErrConflict))
	assert.Contains(t, remoteerr.Codes(err), remoteerr.CodeEmailTaken)
}

func TestAuth_InitializeRestoresToken(t *testing.T) {
	accounts := newTestAccounts()
	first := NewAuth(accounts)
	user := registerUser(t, first)
	token := first.Token()
	first.Close()

	restored := NewAuth(accounts, WithToken(token))
	defer restored.Close()
	require.NoError(t, restored.Initialize(context.Background()))
	assert.True(t, restored.IsSessionValid())
	assert.Equal(t, user.ID, restored.CurrentIdentity().ID)

	stale := NewAuth(accounts, WithToken("stale"))
	defer stale.Close()
	require.NoError(t, stale.Initialize(context.Background()))
	assert.False(t, stale.IsSessionValid())
	assert.Empty(t, stale.Token())
}

func TestAuth_ExpireSessionPublishesEvent(t *testing.T) {
	auth := NewAuth(newTestAccounts())
	defer auth.Close()
	registerUser(t, auth)

	var events []gateway.AuthEvent
	sub := auth.Subscribe(func(ev gateway.AuthEvent) {
		events = append(events, ev)
	})
	defer sub.Unsubscribe()

	auth.ExpireSession()

	require.Len(t, events, 1)
	assert.False(t, events[0].SessionValid)
	assert.False(t, auth.IsSessionValid())
}

func TestAuth_ProfileChangeFromAnotherDevice(t *testing.T) {
	accounts := newTestAccounts()
	phone := NewAuth(accounts)
	defer phone.Close()
	registerUser(t, phone)

	laptop := NewAuth(accounts)
	defer laptop.Close()
	_, err := laptop.Login(context.Background(), "ada@example.com", "Secret123")
	require.NoError(t, err)

	var events []gateway.AuthEvent
	sub := phone.Subscribe(func(ev gateway.AuthEvent) {
		events = append(events, ev)
	})
	defer sub.Unsubscribe()

	_, err = laptop.UpdateProfile(context.Background(), gateway.ProfileUpdate{FirstName: model.Ptr("Augusta")})
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.True(t, events[0].SessionValid)
	require.NotNil(t, events[0].User)
	assert.Equal(t, "Augusta", events[0].User.FirstName)
	assert.Equal(t, "Augusta", phone.CurrentIdentity().FirstName)
}

func TestAuth_LogoutDoesNotEmitOwnEvent(t *testing.T) {
	auth := NewAuth(newTestAccounts())
	defer auth.Close()
	registerUser(t, auth)

	var count int
	sub := auth.Subscribe(func(gateway.AuthEvent) { count++ })
	defer sub.Unsubscribe()

	require.NoError(t, auth.Logout(context.Background()))
	assert.Zero(t, count)
}

func TestAuth_ChangePasswordAndDelete(t *testing.T) {
	ctx := context.Background()
	auth := NewAuth(newTestAccounts())
	defer auth.Close()
	registerUser(t, auth)

	err := auth.ChangePassword(ctx, "bad", "Another123")
	assert.True(t, errors.Is(err, remoteerr.ErrAuthentication))

	require.NoError(t, auth.ChangePassword(ctx, "Secret123", "Another123"))
	require.NoError(t, auth.Logout(ctx))

	_, err = auth.Login(ctx, "ada@example.com", "Another123")
	require.NoError(t, err)

	require.NoError(t, auth.DeleteAccount(ctx))
	assert.False(t, auth.IsSessionValid())

	_, err = auth.Login(ctx, "ada@example.com", "Another123")
	assert.True(t, errors.Is(err, remoteerr.ErrAuthentication))
}

func TestAuth_Unauthenticated(t *testing.T) {
	auth := NewAuth(newTestAccounts())
	defer auth.Close()

	_, err := auth.UpdateProfile(context.Background(), gateway.ProfileUpdate{})
	assert.True(t, errors.Is(err, remoteerr.ErrUnauthorized))
	assert.NoError(t, auth.Logout(context.Background()))
}
