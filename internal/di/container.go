// Package di конфигурация внедрения зависимостей для notesctl и dev-сервера.
package di

import (
	"github.com/samber/do/v2"

	"notes-client/internal/collection"
	"notes-client/internal/config"
	"notes-client/internal/di/providers"
	"notes-client/internal/session"
)

// NewClientContainer создает контейнер клиентской стороны:
// REST шлюзы, Session Store и Collection Store.
func NewClientContainer(cfg *config.Config) *do.RootScope {
	injector := do.New()

	// Базовая инфраструктура
	do.ProvideValue(injector, cfg)
	do.Provide(injector, providers.ProvideLogger("notesctl"))

	// Шлюзы
	do.Provide(injector, providers.ProvideTokenStore)
	do.Provide(injector, providers.ProvideClient)
	do.Provide(injector, providers.ProvideAuthGateway)
	do.Provide(injector, providers.ProvideNotesGateway)

	// Stores
	do.Provide(injector, providers.ProvideSessionStore)
	do.Provide(injector, providers.ProvideCollectionStore)

	return injector
}

// NewDevServerContainer создает контейнер локального dev-сервера
func NewDevServerContainer(cfg *config.Config) *do.RootScope {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	do.Provide(injector, providers.ProvideLogger("devserver"))

	do.Provide(injector, providers.ProvideDevServer)
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Stores клиентские stores, собранные контейнером
type Stores struct {
	Session    *session.Store
	Collection *collection.Store
}

// ResolveStores инициализирует цепочку шлюз -> store
func ResolveStores(injector do.Injector) (*Stores, error) {
	sess, err := do.Invoke[*providers.SessionStoreHandle](injector)
	if err != nil {
		return nil, err
	}
	coll, err := do.Invoke[*collection.Store](injector)
	if err != nil {
		return nil, err
	}
	return &Stores{Session: sess.Store, Collection: coll}, nil
}
