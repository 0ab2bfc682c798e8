// Package server HTTP сервер dev-окружения с graceful shutdown
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"notes-client/internal/config"
)

// Server HTTP сервер поверх произвольного handler
type Server struct {
	cfg  *config.ConfigDevServer
	log  zerolog.Logger
	http *http.Server

	listener net.Listener

	// Контекст сервера: базовый для всех запросов, отменяется в начале Shutdown,
	// чтобы долгоживущие потоки (GET /v1/auth/events) завершились до ожидания
	ctx    context.Context
	cancel context.CancelFunc
}

// New создает сервер. Адрес по умолчанию 0.0.0.0:<cfg.Port>.
func New(cfg *config.ConfigDevServer, handler http.Handler, log zerolog.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{cfg: cfg, log: log, ctx: ctx, cancel: cancel}
	s.http = &http.Server{
		Addr:              "0.0.0.0:" + strconv.Itoa(cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: time.Duration(cfg.HTTPReadHeaderTimeout) * time.Second,
		IdleTimeout:       time.Duration(cfg.HTTPIdleTimeout) * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	return s
}

// Start открывает listener и запускает обслуживание в горутине.
// Возвращает канал ошибок для отслеживания аварийной остановки.
func (s *Server) Start() (<-chan error, error) {
	listener, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", s.http.Addr, err)
	}
	s.listener = listener

	errChan := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", listener.Addr().String()).Msg("HTTP server listening")
		if err := s.http.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()
	return errChan, nil
}

// Addr фактический адрес listener (после Start)
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.http.Addr
	}
	return s.listener.Addr().String()
}

// Shutdown выполняет graceful shutdown; по таймауту соединения закрываются принудительно
func (s *Server) Shutdown() error {
	s.log.Info().Msg("starting graceful shutdown")

	// Сначала отменяем контекст сервера: иначе http.Server.Shutdown ждет потоки событий до таймаута
	s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.GracefulShutdownTimeout)*time.Second)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		s.log.Warn().Err(err).Msg("graceful shutdown timeout, forcing stop")
		if closeErr := s.http.Close(); closeErr != nil {
			return errors.Join(err, closeErr)
		}
		return err
	}

	s.log.Info().Msg("HTTP server stopped gracefully")
	return nil
}
