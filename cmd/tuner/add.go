package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazadus/go-tuner/internal/metadata"
	"github.com/hazadus/go-tuner/internal/s3"
	"github.com/hazadus/go-tuner/internal/uploader"
	"github.com/hazadus/go-tuner/internal/utils"
)

// errNoStorage - S3 для библиотеки не настроено
var errNoStorage = errors.New("хранилище не настроено: задайте library.aws_bucket_name и library.aws_access_key")

// createAddCommand создает команду add с привязкой к экземпляру приложения
func (app *Application) createAddCommand(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "add [file path]",
		Short: "Upload an audio file to the library",
		Long:  `Upload an mp3, flac, ogg or wav file to S3 storage with progress tracking and add it to the library.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Создаем контекст с таймаутом для загрузки (10 минут)
			uploadCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
			defer cancel()

			if !app.Config.HasStorage() {
				return errNoStorage
			}
			storage, err := s3.NewStorage(app.s3Config())
			if err != nil {
				return fmt.Errorf("ошибка создания S3 клиента: %w", err)
			}
			return app.uploadFile(uploadCtx, uploader.NewService(storage, nil, app.Data), args[0])
		},
	}
}

// uploadFile загружает файл в хранилище с отображением прогресса
func (app *Application) uploadFile(ctx context.Context, uploadService *uploader.Service, filePath string) error {
	// Получаем информацию о файле для отображения
	fileInfo, err := metadata.NewExtractor().GetFileInfo(filePath)
	if err != nil {
		return fmt.Errorf("ошибка получения информации о файле: %w", err)
	}

	fmt.Printf("📤 Загружаем файл в S3:\n")
	fmt.Printf("   Файл: %s\n", filePath)
	fmt.Printf("   Размер: %s\n", utils.FormatFileSize(fileInfo.Size))
	fmt.Printf("   Бакет: %s\n", app.Config.Library.AwsBucketName)
	fmt.Println()

	progressChan := make(chan int64)
	done := make(chan struct{})

	go func() {
		defer close(done)
		startTime := time.Now()

		for progress := range progressChan {
			if progress <= 0 || fileInfo.Size <= 0 {
				continue
			}
			elapsed := time.Since(startTime)
			percentage := float64(progress) / float64(fileInfo.Size) * 100

			speed := float64(progress) / elapsed.Seconds()

			var remainingTime time.Duration
			if speed > 0 {
				remainingTime = time.Duration(float64(fileInfo.Size-progress)/speed) * time.Second
			}

			fmt.Printf("\r📊 Прогресс: %.1f%% | Скорость: %s/s | Прошло: %s | Осталось: %s",
				percentage,
				utils.FormatFileSize(int64(speed)),
				utils.FormatDuration(elapsed),
				utils.FormatDuration(remainingTime))
		}
	}()

	result, err := uploadService.UploadFile(ctx, filePath, func(bytesRead int64) {
		progressChan <- bytesRead
	})
	close(progressChan)
	<-done

	if err != nil {
		if ctx.Err() != nil {
			fmt.Printf("\n🚫 Загрузка отменена\n")
		}
		return fmt.Errorf("ошибка загрузки файла: %w", err)
	}

	fmt.Printf("\n✅ Файл успешно загружен в S3!\n")
	fmt.Printf("   URL: %s\n", result.URL)

	id := uploadService.UpdateApplicationData(result)
	if err := app.SaveData(); err != nil {
		return fmt.Errorf("ошибка сохранения данных: %w", err)
	}

	app.Log.Info().Int("id", id).Str("key", result.Key).Msg("Трек добавлен в библиотеку")
	fmt.Printf("\n📦 Трек #%d добавлен в %s\n", id, app.Config.Library.DataFile)
	return nil
}
