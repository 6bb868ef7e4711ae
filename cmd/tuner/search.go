package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazadus/go-tuner/internal/catalog"
	"github.com/hazadus/go-tuner/internal/playback"
	"github.com/hazadus/go-tuner/internal/service"
	"github.com/hazadus/go-tuner/internal/utils"
)

// createSearchCommand создает команду search с привязкой к экземпляру приложения
func (app *Application) createSearchCommand(ctx context.Context) *cobra.Command {
	var (
		kinds  string
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the catalog and print results",
		Long:  `Search artists, albums and tracks and print them as a table.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := service.ParseKinds(kinds)
			if err != nil {
				return err
			}
			client, err := app.newClient()
			if err != nil {
				return err
			}
			return searchCatalog(ctx, cmd.OutOrStdout(), client, strings.Join(args, " "), k, limit, offset)
		},
	}

	cmd.Flags().StringVarP(&kinds, "kinds", "k", "", "comma-separated kinds: artists,albums,tracks")
	cmd.Flags().IntVarP(&limit, "limit", "l", playback.DefaultSearchLimit, "results per kind")
	cmd.Flags().IntVar(&offset, "offset", 0, "skip the first results of each kind")
	return cmd
}

func searchCatalog(ctx context.Context, out io.Writer, client service.Client, query string, kinds service.Kinds, limit, offset int) error {
	entries, err := client.Search(ctx, query, kinds, limit, offset)
	if err != nil {
		return service.AsFetchError("search", err)
	}

	if len(entries) == 0 {
		fmt.Fprintf(out, "🔍 По запросу %q ничего не найдено\n", query)
		return nil
	}

	fmt.Fprintf(out, "🔍 Найдено: %d\n\n", len(entries))
	fmt.Fprintf(out, "%-12s %-14s %-40s %-30s %-8s\n", "Вид", "ID", "Название", "Исполнитель", "Время")
	fmt.Fprintln(out, strings.Repeat("-", 108))

	for _, e := range entries {
		var duration time.Duration
		switch v := e.(type) {
		case catalog.Track:
			duration = v.Duration
		case catalog.Album:
			duration = v.Duration
		case catalog.Artist:
		}

		fmt.Fprintf(out, "%-12s %-14s %s %s %-8s\n",
			e.Kind(),
			utils.TruncateString(e.Ref(), 14),
			utils.PadRight(e.DisplayName(), 40),
			utils.PadRight(catalog.PrimaryArtist(e), 30),
			utils.FormatTrackTime(duration))
	}
	return nil
}
