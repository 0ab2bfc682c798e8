// notesctl консольный клиент сервиса заметок поверх Session Store и Collection Store
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"notes-client/internal/config"
	"notes-client/internal/di"
	"notes-client/internal/remoteerr"
)

var (
	configFlag string
	apiFlag    string
	debugFlag  bool

	pageSizeFlag int

	rootCmd = &cobra.Command{
		Use:           "notesctl",
		Short:         "CLI client for the notes service REST API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Path to config.yml (defaults are used when empty)")
	rootCmd.PersistentFlags().StringVarP(&apiFlag, "api", "a", "", "Notes service base URL (overrides client.base_url)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Log every HTTP request")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		stop()
		os.Exit(1)
	}
}

// loadConfig читает конфигурацию и применяет флаги командной строки
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, fmt.Errorf("error initializing config: %w", err)
	}
	if apiFlag != "" {
		cfg.Client.BaseURL = apiFlag
	}
	if pageSizeFlag > 0 {
		cfg.Client.PageSize = pageSizeFlag
	}
	if debugFlag {
		cfg.Client.DebugHTTP = true
		cfg.Logger.Level = "debug"
	}
	return cfg, nil
}

// run собирает контейнер, восстанавливает сессию и выполняет fn.
// watch включает поток событий сессии (нужен только команде watch).
func run(cmd *cobra.Command, watch bool, fn func(ctx context.Context, s *di.Stores) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Session.WatchEvents = watch

	injector := di.NewClientContainer(cfg)
	defer func() {
		if err := injector.Shutdown(); err != nil {
			fmt.Fprintln(os.Stderr, "shutdown error:", err.Error())
		}
	}()

	stores, err := di.ResolveStores(injector)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if err := stores.Session.Initialize(ctx); err != nil {
		return err
	}
	return fn(ctx, stores)
}

// requireSession возвращает ошибку, если сохраненной сессии нет
func requireSession(s *di.Stores) error {
	if !s.Session.State().IsAuthenticated() {
		return errors.New("not logged in: run `notesctl login` first")
	}
	return nil
}

// describe форматирует ошибку для терминала: сообщение и сообщения по полям
func describe(err error) string {
	var e *remoteerr.Error
	if !errors.As(err, &e) {
		return "error: " + err.Error()
	}

	out := fmt.Sprintf("error: %s (%s)", e.Message, e.Kind)
	for field, msg := range e.Fields {
		out += fmt.Sprintf("\n  %s: %s", field, msg)
	}
	if e.RetryAfter > 0 {
		out += fmt.Sprintf("\n  retry after %s", e.RetryAfter)
	}
	return out
}
