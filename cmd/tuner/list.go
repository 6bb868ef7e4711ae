package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hazadus/go-tuner/internal/utils"
)

// createListCommand создает команду list с привязкой к экземпляру приложения
func (app *Application) createListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all tracks from the library",
		Long:  `Display a list of all tracks stored in the personal library.`,
		Run: func(_ *cobra.Command, _ []string) {
			app.listTracks()
		},
	}
}

func (app *Application) listTracks() {
	if len(app.Data.Tracks) == 0 {
		fmt.Println("📚 Библиотека пуста. Добавьте треки с помощью команды 'add'.")
		return
	}

	fmt.Printf("📚 Найдено треков: %d\n\n", len(app.Data.Tracks))

	fmt.Printf("%-4s %-30s %-30s %-20s %-10s %-12s\n",
		"ID", "Исполнитель", "Название", "Альбом", "Длительность", "Размер")
	fmt.Println(strings.Repeat("-", 120))

	for _, track := range app.Data.Tracks {
		duration := "N/A"
		if track.Length > 0 {
			duration = utils.FormatDurationFromSeconds(track.Length)
		}

		fmt.Printf("%-4d %s %s %s %-10s %-12s\n",
			track.ID,
			utils.PadRight(track.Artist, 30),
			utils.PadRight(track.Title, 30),
			utils.PadRight(track.Album, 20),
			duration,
			utils.FormatFileSize(track.FileSize))
	}

	fmt.Println()
	fmt.Println("💡 Используйте 'tuner search' или 'tuner shell' для поиска и воспроизведения")
}
