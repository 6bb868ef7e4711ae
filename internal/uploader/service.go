// Package uploader загружает локальные аудиофайлы в библиотеку и удаляет их оттуда
package uploader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hazadus/go-tuner/internal/data"
	"github.com/hazadus/go-tuner/internal/metadata"
	"github.com/hazadus/go-tuner/internal/s3"
)

// Storage - хранилище файлов библиотеки
type Storage interface {
	UploadFile(ctx context.Context, reader io.Reader, key, contentType string) (string, error)
	DeleteFile(ctx context.Context, key string) error
}

// Extractor извлекает метаданные и сведения о файле
type Extractor interface {
	ExtractFromFile(filePath string) metadata.TrackMetadata
	GetFileInfo(filePath string) (*metadata.FileInfo, error)
}

var _ Storage = (*s3.Storage)(nil)

// Service управляет процессом загрузки файлов
type Service struct {
	storage           Storage
	metadataExtractor Extractor
	appData           *data.AppData
}

// NewService создает новый сервис загрузки
func NewService(storage Storage, extractor Extractor, appData *data.AppData) *Service {
	if extractor == nil {
		extractor = metadata.NewExtractor()
	}
	return &Service{
		storage:           storage,
		metadataExtractor: extractor,
		appData:           appData,
	}
}

// UploadResult содержит результат загрузки
type UploadResult struct {
	URL      string
	Key      string
	Metadata metadata.TrackMetadata
	FileInfo *metadata.FileInfo
}

// UploadFile загружает файл с метаданными
func (s *Service) UploadFile(ctx context.Context, filePath string, progressCallback func(int64)) (*UploadResult, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("файл не найден: %s", filePath)
	}

	fileInfo, err := s.metadataExtractor.GetFileInfo(filePath)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения информации о файле: %w", err)
	}

	trackMetadata := s.metadataExtractor.ExtractFromFile(filePath)

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия файла: %w", err)
	}
	defer file.Close()

	var reader io.Reader = file
	if progressCallback != nil {
		reader = &ProgressReader{
			Reader:     file,
			Size:       fileInfo.Size,
			OnProgress: progressCallback,
		}
	}

	key := objectKey(filePath, string(fileInfo.Codec))

	url, err := s.storage.UploadFile(ctx, reader, key, fileInfo.ContentType)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки в S3: %w", err)
	}

	return &UploadResult{
		URL:      url,
		Key:      key,
		Metadata: trackMetadata,
		FileInfo: fileInfo,
	}, nil
}

// UpdateApplicationData добавляет загруженный трек в библиотеку и возвращает его ID
func (s *Service) UpdateApplicationData(result *UploadResult) int {
	track := data.TrackMetadata{
		Artist:   result.Metadata.Artist,
		Title:    result.Metadata.Title,
		Album:    result.Metadata.Album,
		Year:     result.Metadata.Year,
		Length:   int(result.FileInfo.Duration.Seconds()),
		FileSize: result.FileInfo.Size,
		Key:      result.Key,
		URL:      result.URL,
	}

	return s.appData.AddTrack(track)
}

// Removal - итог удаления трека
type Removal struct {
	Track data.TrackMetadata
	// StorageErr - ошибка удаления файла из хранилища; запись из библиотеки удаляется все равно
	StorageErr error
}

// RemoveTrack удаляет трек из хранилища и из библиотеки
func (s *Service) RemoveTrack(ctx context.Context, id int) (*Removal, error) {
	found, err := s.appData.TrackByID(id)
	if err != nil {
		return nil, err
	}
	removal := &Removal{Track: *found}

	key := found.Key
	if key == "" && found.URL != "" {
		key, removal.StorageErr = s3.KeyFromURL(found.URL)
	}
	if key != "" && removal.StorageErr == nil {
		removal.StorageErr = s.storage.DeleteFile(ctx, key)
	}

	if err := s.appData.DeleteTrackByID(id); err != nil {
		return removal, fmt.Errorf("ошибка удаления трека из данных: %w", err)
	}
	return removal, nil
}

// ProgressReader структура для отслеживания прогресса чтения
type ProgressReader struct {
	io.Reader
	Size       int64
	OnProgress func(int64)
	bytesRead  int64
}

func (pr *ProgressReader) Read(p []byte) (n int, err error) {
	n, err = pr.Reader.Read(p)
	pr.bytesRead += int64(n)
	if pr.OnProgress != nil {
		pr.OnProgress(pr.bytesRead)
	}
	return n, err
}

// objectKey формирует ключ объекта: имя файла без расширения плюс расширение формата
func objectKey(filePath, codec string) string {
	fileName := filepath.Base(filePath)
	name := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" && codec != "" {
		ext = "." + codec
	}
	return name + ext
}
