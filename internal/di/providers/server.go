package providers

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/samber/do/v2"

	"notes-client/internal/config"
	"notes-client/internal/devserver"
	"notes-client/internal/server"
)

// ProvideDevServer маршруты и in-memory состояние dev-сервера
func ProvideDevServer(i do.Injector) (*devserver.Server, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[zerolog.Logger](i)

	s, err := devserver.New(cfg.DevServer, log)
	if err != nil {
		return nil, fmt.Errorf("dev server: %w", err)
	}
	return s, nil
}

// HTTPServerHandle оборачивает server.Server для do.Shutdownable
type HTTPServerHandle struct {
	*server.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	return h.Server.Shutdown()
}

// ProvideHTTPServer HTTP сервер; запускается вызывающей стороной через Start
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[zerolog.Logger](i)
	dev := do.MustInvoke[*devserver.Server](i)

	return &HTTPServerHandle{Server: server.New(cfg.DevServer, dev.Handler(), log)}, nil
}
