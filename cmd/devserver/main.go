// devserver локальный REST сервер заметок для разработки и интеграционных тестов клиента
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"notes-client/internal/config"
	"notes-client/internal/di"
	"notes-client/internal/di/providers"
)

const configFile = "config.yml"

func main() {
	cmd := &cobra.Command{
		Use:          "devserver",
		Short:        "In-memory notes REST server for local development",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			return serve(path)
		},
	}
	cmd.Flags().StringP("config", "c", configFile, "Path to config file")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve(path string) error {
	// Загружаем конфигурацию из файла
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("error initializing config: %w", err)
	}

	injector := di.NewDevServerContainer(cfg)
	log := do.MustInvoke[zerolog.Logger](injector)

	srv, err := do.Invoke[*providers.HTTPServerHandle](injector)
	if err != nil {
		return fmt.Errorf("failed to build server: %w", err)
	}

	errChan, err := srv.Start()
	if err != nil {
		return err
	}
	log.Info().Int("port", cfg.DevServer.Port).Msg("notes dev server started")

	// Канал для graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Ожидание сигнала или ошибки
	select {
	case err := <-errChan:
		log.Error().Err(err).Msg("server error")
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("received signal, starting graceful shutdown")
	}

	// Контейнер останавливает HTTP сервер (HTTPServerHandle.Shutdown)
	if err := injector.Shutdown(); err != nil {
		log.Error().Str("error", err.Error()).Msg("shutdown error")
	}

	log.Info().Msg("notes dev server stopped")
	return nil
}
