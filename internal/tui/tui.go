// Package tui содержит компоненты для текстового пользовательского интерфейса
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gopxl/beep"

	"github.com/hazadus/go-tuner/internal/playback"
	"github.com/hazadus/go-tuner/internal/tui/app"
)

// App представляет основное TUI приложение
type App struct {
	ctrl  *playback.Controller
	audio app.Pauser
	rate  beep.SampleRate
}

// NewApp создает новый экземпляр TUI приложения. audio может быть nil.
func NewApp(ctrl *playback.Controller, audio app.Pauser, rate beep.SampleRate) *App {
	return &App{
		ctrl:  ctrl,
		audio: audio,
		rate:  rate,
	}
}

// Model создает модель Bubble Tea для приложения
func (tuiApp *App) Model(ctx context.Context) *app.MainModel {
	return app.NewMainModel(ctx, tuiApp.ctrl, tuiApp.audio, tuiApp.rate)
}

// Run запускает TUI приложение и блокируется до выхода
func (tuiApp *App) Run(ctx context.Context) error {
	model := tuiApp.Model(ctx)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()

	// Отменяем задачи в полете и поток текущего трека
	tuiApp.ctrl.Close()

	return err
}
