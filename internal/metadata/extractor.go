// Package metadata предоставляет функционал для извлечения метаданных из аудио файлов
package metadata

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"

	"github.com/hazadus/go-tuner/internal/decoder"
	"github.com/hazadus/go-tuner/internal/service"
)

// TrackMetadata хранит метаданные трека
type TrackMetadata struct {
	Artist string
	Title  string
	Album  string
	Year   int
}

// FileInfo содержит информацию о файле
type FileInfo struct {
	Size        int64
	Duration    time.Duration
	Codec       decoder.Codec
	ContentType string
}

// Extractor извлекает метаданные из аудио файлов
type Extractor struct {
	decoder *decoder.Decoder
}

// NewExtractor создает новый экстрактор метаданных
func NewExtractor() *Extractor {
	// Длительность считается по исходной частоте, передискретизация не нужна
	return &Extractor{decoder: decoder.New(0, 0)}
}

// ExtractFromReader извлекает метаданные из io.ReadSeeker
func (e *Extractor) ExtractFromReader(reader io.ReadSeeker, source string) TrackMetadata {
	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		return e.getDefaultMetadata(source)
	}

	m, err := tag.ReadFrom(reader)
	if err != nil {
		return e.getDefaultMetadata(source)
	}

	result := TrackMetadata{
		Artist: m.Artist(),
		Title:  m.Title(),
		Album:  m.Album(),
		Year:   m.Year(),
	}
	if result.Title == "" {
		def := e.getDefaultMetadata(source)
		result.Title = def.Title
		if result.Artist == "" {
			result.Artist = def.Artist
		}
	}
	return result
}

// ExtractFromFile извлекает метаданные из файла
func (e *Extractor) ExtractFromFile(filePath string) TrackMetadata {
	file, err := os.Open(filePath)
	if err != nil {
		return e.getDefaultMetadata(filePath)
	}
	defer file.Close()

	return e.ExtractFromReader(file, filePath)
}

// GetDuration декодирует файл и возвращает его длительность и формат
func (e *Extractor) GetDuration(filePath string) (time.Duration, decoder.Codec, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return 0, "", fmt.Errorf("ошибка открытия файла: %w", err)
	}

	src, err := e.decoder.OpenSource(&service.Stream{ReadCloser: file})
	if err != nil {
		return 0, "", err
	}
	defer src.Close()

	return src.Duration(), src.Codec(), nil
}

// GetFileInfo получает информацию о файле (размер, длительность, формат)
func (e *Extractor) GetFileInfo(filePath string) (*FileInfo, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения информации о файле: %w", err)
	}

	duration, codec, err := e.GetDuration(filePath)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения длительности: %w", err)
	}

	return &FileInfo{
		Size:        fileInfo.Size(),
		Duration:    duration,
		Codec:       codec,
		ContentType: ContentType(codec),
	}, nil
}

// ContentType возвращает MIME-тип для формата
func ContentType(codec decoder.Codec) string {
	switch codec {
	case decoder.MP3:
		return "audio/mpeg"
	case decoder.FLAC:
		return "audio/flac"
	case decoder.Vorbis:
		return "audio/ogg"
	case decoder.WAV:
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}

// getDefaultMetadata возвращает метаданные по умолчанию на основе имени файла
func (e *Extractor) getDefaultMetadata(source string) TrackMetadata {
	fileName := filepath.Base(source)
	nameWithoutExt := strings.TrimSuffix(fileName, filepath.Ext(fileName))

	// Пытаемся разобрать имя файла в формате "Artist - Title"
	parts := strings.Split(nameWithoutExt, " - ")
	if len(parts) >= 2 {
		return TrackMetadata{
			Artist: strings.TrimSpace(parts[0]),
			Title:  strings.TrimSpace(strings.Join(parts[1:], " - ")),
		}
	}

	return TrackMetadata{
		Artist: "Unknown Artist",
		Title:  nameWithoutExt,
	}
}
