package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hazadus/go-tuner/internal/service/cache"
	"github.com/hazadus/go-tuner/internal/service/remote"
)

// createCacheCommand создает команду cache с подкомандой purge
func (app *Application) createCacheCommand() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the search results cache",
	}

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Remove all cached search results",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Клиент нужен только как следующий слой; в сеть purge не ходит
			c, err := cache.Open(app.Config.Cache.Path, remote.New(app.Config.Service.URL),
				cache.WithLogger(app.Log))
			if err != nil {
				return fmt.Errorf("ошибка открытия кэша: %w", err)
			}
			defer c.Close()

			if err := c.Purge(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🧹 Кэш очищен: %s\n", app.Config.Cache.Path)
			return nil
		},
	})
	return cacheCmd
}
