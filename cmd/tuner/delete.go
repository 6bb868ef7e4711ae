package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hazadus/go-tuner/internal/s3"
	"github.com/hazadus/go-tuner/internal/uploader"
)

// createDeleteCommand создает команду delete с привязкой к экземпляру приложения
func (app *Application) createDeleteCommand(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a track by ID",
		Long:  `Delete a track from both S3 storage and the library by its ID.`,
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				fmt.Printf("❌ Ошибка: неверный ID '%s'. ID должен быть числом.\n", args[0])
				return
			}

			var storage uploader.Storage = noStorage{}
			if app.Config.HasStorage() {
				s, err := s3.NewStorage(app.s3Config())
				if err != nil {
					fmt.Printf("⚠️  Предупреждение: %v\n", err)
				} else {
					storage = s
				}
			}
			app.deleteTrack(ctx, uploader.NewService(storage, nil, app.Data), id)
		},
	}
}

func (app *Application) deleteTrack(ctx context.Context, uploadService *uploader.Service, id int) {
	track, err := app.Data.TrackByID(id)
	if err != nil {
		fmt.Printf("❌ Ошибка: %v\n", err)
		return
	}

	fmt.Printf("🗑️  Удаляем трек: %s - %s\n", track.Artist, track.Title)

	removal, err := uploadService.RemoveTrack(ctx, id)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}

	// Запись удаляется, даже если файл из хранилища удалить не удалось
	if removal.StorageErr != nil {
		fmt.Printf("⚠️  Предупреждение: не удалось удалить файл из S3: %v\n", removal.StorageErr)
	} else {
		fmt.Println("✅ Файл успешно удален из S3")
	}

	if err := app.SaveData(); err != nil {
		fmt.Printf("❌ Ошибка сохранения данных: %v\n", err)
		return
	}

	fmt.Println("✅ Трек успешно удален из библиотеки")
}

// noStorage используется, когда S3 не настроено: удалить файл нельзя
type noStorage struct{}

func (noStorage) UploadFile(context.Context, io.Reader, string, string) (string, error) {
	return "", errNoStorage
}

func (noStorage) DeleteFile(context.Context, string) error {
	return errNoStorage
}
