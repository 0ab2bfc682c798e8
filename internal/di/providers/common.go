// Package providers провайдеры контейнера samber/do
package providers

import (
	"github.com/rs/zerolog"
	"github.com/samber/do/v2"

	"notes-client/internal/config"
	"notes-client/internal/logger"
)

// ProvideLogger возвращает провайдер логгера с полем component
func ProvideLogger(component string) func(do.Injector) (zerolog.Logger, error) {
	return func(i do.Injector) (zerolog.Logger, error) {
		cfg := do.MustInvoke[*config.Config](i)

		log := logger.New(cfg.Logger, component)
		log.Debug().
			Str("log_level", cfg.Logger.Level).
			Msg("logger initialized")
		return log, nil
	}
}
