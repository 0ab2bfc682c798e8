// Package logger собирает zerolog.Logger из секции logger конфигурации.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"notes-client/internal/config"
)

// New возвращает логгер приложения, пишущий в stderr
func New(cfg *config.ConfigLogger, component string) zerolog.Logger {
	return NewWithWriter(os.Stderr, cfg, component)
}

// NewWithWriter возвращает логгер, пишущий в w
func NewWithWriter(w io.Writer, cfg *config.ConfigLogger, component string) zerolog.Logger {
	level := zerolog.InfoLevel
	format := "console"
	if cfg != nil {
		level = ParseLevel(cfg.Level)
		if cfg.Format != "" {
			format = strings.ToLower(cfg.Format)
		}
	}

	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}

	return zerolog.New(w).Level(level).With().
		Timestamp().
		Str("component", component).
		Logger()
}

// ParseLevel разбирает уровень; неизвестное значение дает info
func ParseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}
