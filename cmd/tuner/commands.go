package main

import (
	"context"

	"github.com/spf13/cobra"
)

// createRootCommand создает корневую команду с настроенными подкомандами.
// Без подкоманды запускается TUI.
func (app *Application) createRootCommand(ctx context.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tuner",
		Short: "A terminal client for a streaming music service",
		Long: `Search the catalog, browse albums and artists and play tracks
from a streaming service or from a personal library stored in S3.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return app.init()
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return app.launchTUI(ctx)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&app.ConfigPath, "config", "c", "",
		"path to config file (default "+defaultConfigHint+")")

	// Добавляем команды, передавая в них экземпляр приложения и контекст
	rootCmd.AddCommand(app.createTUICommand(ctx))
	rootCmd.AddCommand(app.createShellCommand(ctx))
	rootCmd.AddCommand(app.createSearchCommand(ctx))
	rootCmd.AddCommand(app.createLoginCommand(ctx))
	rootCmd.AddCommand(app.createLogoutCommand())
	rootCmd.AddCommand(app.createAddCommand(ctx))
	rootCmd.AddCommand(app.createListCommand())
	rootCmd.AddCommand(app.createDeleteCommand(ctx))
	rootCmd.AddCommand(app.createCacheCommand())

	return rootCmd
}

const defaultConfigHint = "$XDG_CONFIG_HOME/tuner/config.yaml"
