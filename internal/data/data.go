// Package data хранит личную библиотеку треков в YAML-файле
package data

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrTrackNotFound - трека с таким ID нет в библиотеке
var ErrTrackNotFound = errors.New("трек не найден")

// TrackMetadata - запись о треке, загруженном в хранилище
type TrackMetadata struct {
	ID       int    `yaml:"id"`
	Artist   string `yaml:"artist"`
	Title    string `yaml:"title"`
	Album    string `yaml:"album"`
	Year     int    `yaml:"year,omitempty"`
	Length   int    `yaml:"length"`        // Длина трека в секундах
	FileSize int64  `yaml:"file_size"`     // Размер файла в байтах
	Key      string `yaml:"key,omitempty"` // Ключ объекта в бакете
	URL      string `yaml:"url"`           // URL трека в хранилище S3
}

// AppData - содержимое файла библиотеки
type AppData struct {
	Tracks []TrackMetadata `yaml:"tracks"`
}

// NewAppData создает новую структуру AppData
func NewAppData() *AppData {
	return &AppData{
		Tracks: make([]TrackMetadata, 0),
	}
}

// LoadData загружает данные из файла. Отсутствующий или пустой файл - пустая библиотека.
func (d *AppData) LoadData(filePath string) error {
	path, err := expandHome(filePath)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			*d = *NewAppData()
			return nil
		}
		return fmt.Errorf("ошибка чтения файла данных: %w", err)
	}
	if len(data) == 0 {
		*d = *NewAppData()
		return nil
	}
	if err := yaml.Unmarshal(data, d); err != nil {
		return fmt.Errorf("ошибка разбора данных: %w", err)
	}
	return nil
}

// AddTrack добавляет трек, присваивая ему следующий свободный ID, и возвращает этот ID
func (d *AppData) AddTrack(track TrackMetadata) int {
	maxID := 0
	for _, t := range d.Tracks {
		if t.ID > maxID {
			maxID = t.ID
		}
	}
	track.ID = maxID + 1
	d.Tracks = append(d.Tracks, track)
	return track.ID
}

// SaveData сохраняет данные в файл, создавая каталог при необходимости
func (d *AppData) SaveData(filePath string) error {
	path, err := expandHome(filePath)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("ошибка сериализации данных: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("ошибка создания каталога данных: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("ошибка записи файла данных: %w", err)
	}
	return nil
}

// TrackByID возвращает трек по ID
func (d *AppData) TrackByID(id int) (*TrackMetadata, error) {
	for i := range d.Tracks {
		if d.Tracks[i].ID == id {
			return &d.Tracks[i], nil
		}
	}
	return nil, fmt.Errorf("трека с ID %d не найдено: %w", id, ErrTrackNotFound)
}

// DeleteTrackByID удаляет трек по ID
func (d *AppData) DeleteTrackByID(id int) error {
	for i := range d.Tracks {
		if d.Tracks[i].ID == id {
			d.Tracks = append(d.Tracks[:i], d.Tracks[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("трека с ID %d не найдено: %w", id, ErrTrackNotFound)
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return strings.Replace(path, "~", home, 1), nil
}
