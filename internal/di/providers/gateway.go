package providers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/samber/do/v2"

	"notes-client/internal/config"
	"notes-client/internal/gateway/httpapi"
)

// tokenFileName имя файла токена в пользовательском каталоге конфигурации
const tokenFileName = "notes-client/session.token"

// ProvideTokenStore файловое хранилище токена. Без пути в конфигурации и без
// каталога пользователя токен живет только в памяти процесса.
func ProvideTokenStore(i do.Injector) (httpapi.TokenStore, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[zerolog.Logger](i)

	path := cfg.Client.TokenFile
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			log.Warn().Err(err).Msg("no user config dir, session token is not persisted")
			return httpapi.NewMemoryTokenStore(""), nil
		}
		path = filepath.Join(dir, tokenFileName)
	}

	log.Debug().Str("path", path).Msg("token store initialized")
	return httpapi.NewFileTokenStore(path), nil
}

// ProvideClient HTTP клиент удаленного сервиса
func ProvideClient(i do.Injector) (*httpapi.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[zerolog.Logger](i)
	tokens := do.MustInvoke[httpapi.TokenStore](i)

	c, err := httpapi.NewClient(cfg.Client.BaseURL,
		httpapi.WithTokenStore(tokens),
		httpapi.WithLogger(log),
		httpapi.WithTimeout(cfg.Client.Timeout()),
		httpapi.WithRateLimit(cfg.Client.RateLimitRPS, cfg.Client.RateLimitBurst),
		httpapi.WithDebug(cfg.Client.DebugHTTP),
	)
	if err != nil {
		return nil, fmt.Errorf("http client: %w", err)
	}
	return c, nil
}

// AuthGatewayHandle оборачивает httpapi.Auth для do.Shutdownable
type AuthGatewayHandle struct {
	*httpapi.Auth
}

// Shutdown implements do.Shutdownable.
func (h *AuthGatewayHandle) Shutdown() error {
	return h.Auth.Close()
}

// ProvideAuthGateway шлюз аутентификации с потоком событий сессии
func ProvideAuthGateway(i do.Injector) (*AuthGatewayHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	c := do.MustInvoke[*httpapi.Client](i)

	auth := httpapi.NewAuth(c, httpapi.WithEventStream(
		cfg.Session.WatchEvents,
		cfg.Session.ReconnectInitial(),
		cfg.Session.ReconnectMax(),
	))
	return &AuthGatewayHandle{Auth: auth}, nil
}

// ProvideNotesGateway шлюз заметок
func ProvideNotesGateway(i do.Injector) (*httpapi.Notes, error) {
	return httpapi.NewNotes(do.MustInvoke[*httpapi.Client](i)), nil
}
