package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/hazadus/go-tuner/internal/tui"
)

// createTUICommand создает команду tui с привязкой к экземпляру приложения
func (app *Application) createTUICommand(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Launch TUI (Terminal User Interface)",
		Long:  `Launch interactive terminal user interface for searching, browsing and playing tracks.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return app.launchTUI(ctx)
		},
	}
}

func (app *Application) launchTUI(ctx context.Context) error {
	s, err := app.openSession()
	if err != nil {
		return err
	}

	tuiApp := tui.NewApp(s.ctrl, s.output, s.output.SampleRate())
	return tuiApp.Run(ctx)
}
