// Package logging настраивает журнал приложения. Терминал занят TUI,
// поэтому журнал пишется в файл.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hazadus/go-tuner/internal/config"
)

// Setup открывает файл журнала и возвращает логгер вместе с функцией закрытия файла
func Setup(cfg config.LoggingConfig) (zerolog.Logger, io.Closer, error) {
	path := config.ExpandHome(cfg.File)
	if path == "" {
		return zerolog.Nop(), io.NopCloser(nil), nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("ошибка создания каталога журнала: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("ошибка открытия файла журнала: %w", err)
	}

	return New(f, cfg.Level), f, nil
}

// New создает логгер, пишущий в w с уровнем level
func New(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(w).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Logger()
}

// ParseLevel переводит строку уровня в zerolog.Level; неизвестное значение - info
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "off", "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}
