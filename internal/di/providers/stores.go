package providers

import (
	"github.com/rs/zerolog"
	"github.com/samber/do/v2"

	"notes-client/internal/collection"
	"notes-client/internal/config"
	"notes-client/internal/gateway/httpapi"
	"notes-client/internal/session"
)

// SessionStoreHandle оборачивает session.Store для do.Shutdownable
type SessionStoreHandle struct {
	*session.Store
}

// Shutdown implements do.Shutdownable.
func (h *SessionStoreHandle) Shutdown() error {
	h.Store.Dispose()
	return nil
}

// ProvideSessionStore Session Store поверх REST шлюза
func ProvideSessionStore(i do.Injector) (*SessionStoreHandle, error) {
	auth := do.MustInvoke[*AuthGatewayHandle](i)
	log := do.MustInvoke[zerolog.Logger](i)

	store := session.New(auth.Auth, session.WithLogger(log.With().Str("store", "session").Logger()))
	return &SessionStoreHandle{Store: store}, nil
}

// ProvideCollectionStore Collection Store поверх REST шлюза
func ProvideCollectionStore(i do.Injector) (*collection.Store, error) {
	cfg := do.MustInvoke[*config.Config](i)
	notes := do.MustInvoke[*httpapi.Notes](i)
	log := do.MustInvoke[zerolog.Logger](i)

	return collection.New(notes,
		collection.WithLogger(log.With().Str("store", "collection").Logger()),
		collection.WithPageSize(cfg.Client.PageSize),
	), nil
}
