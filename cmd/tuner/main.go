package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/hazadus/go-tuner/internal/config"
	"github.com/hazadus/go-tuner/internal/data"
	"github.com/hazadus/go-tuner/internal/logging"
)

// Application - состояние приложения, общее для всех команд
type Application struct {
	Config     *config.Config
	ConfigPath string
	Data       *data.AppData
	Log        zerolog.Logger

	closers []io.Closer
}

// NewApplication создает приложение с пустыми данными
func NewApplication() *Application {
	return &Application{
		Data: data.NewAppData(),
		Log:  zerolog.Nop(),
	}
}

// init загружает конфигурацию, открывает журнал и читает библиотеку
func (app *Application) init() error {
	cfg, err := config.LoadConfig(app.ConfigPath)
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}
	app.Config = cfg

	logger, closer, err := logging.Setup(cfg.Logging)
	if err != nil {
		// Без журнала работать можно
		fmt.Fprintf(os.Stderr, "⚠️  %v\n", err)
	} else {
		app.Log = logger
		app.onClose(closer)
	}

	if err := app.Data.LoadData(cfg.Library.DataFile); err != nil {
		return fmt.Errorf("ошибка загрузки данных: %w", err)
	}

	app.Log.Debug().
		Str("backend", cfg.Service.Backend).
		Int("tracks", len(app.Data.Tracks)).
		Msg("Приложение запущено")
	return nil
}

// SaveData сохраняет библиотеку в файл из конфигурации
func (app *Application) SaveData() error {
	return app.Data.SaveData(app.Config.Library.DataFile)
}

// onClose регистрирует ресурс, который закроется при выходе
func (app *Application) onClose(c io.Closer) {
	if c != nil {
		app.closers = append(app.closers, c)
	}
}

// Close закрывает ресурсы в обратном порядке
func (app *Application) Close() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	return errors.Join(errs...)
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := NewApplication()
	defer app.Close()

	rootCmd := app.createRootCommand(ctx)
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("❌ %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run())
}
