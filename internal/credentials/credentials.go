// Package credentials хранит токен доступа к сервису между запусками
package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNotLoggedIn - сохраненного токена нет
var ErrNotLoggedIn = errors.New("вход не выполнен")

// Token - OAuth-токен сервиса
type Token struct {
	AccessToken  string    `yaml:"access_token"`
	RefreshToken string    `yaml:"refresh_token,omitempty"`
	TokenType    string    `yaml:"token_type,omitempty"`
	UserID       string    `yaml:"user_id,omitempty"`
	CountryCode  string    `yaml:"country_code,omitempty"`
	Expiry       time.Time `yaml:"expiry,omitempty"`
}

// Valid сообщает, есть ли у токена непросроченный access token
func (t *Token) Valid(now time.Time) bool {
	if t == nil || t.AccessToken == "" {
		return false
	}
	return t.Expiry.IsZero() || now.Before(t.Expiry)
}

// Store - файл с токеном
type Store struct {
	path string
}

// NewStore создает хранилище токена в файле path
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path возвращает путь к файлу токена
func (s *Store) Path() string {
	return s.path
}

// Load читает токен. Если файла нет, возвращает ErrNotLoggedIn.
func (s *Store) Load() (*Token, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotLoggedIn
		}
		return nil, fmt.Errorf("ошибка чтения файла токена: %w", err)
	}

	var tok Token
	if err := yaml.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("ошибка разбора файла токена: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, ErrNotLoggedIn
	}
	return &tok, nil
}

// Save записывает токен с правами 0600
func (s *Store) Save(tok *Token) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("ошибка создания каталога для токена: %w", err)
	}

	data, err := yaml.Marshal(tok)
	if err != nil {
		return fmt.Errorf("ошибка сериализации токена: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("ошибка записи файла токена: %w", err)
	}
	// WriteFile не меняет права уже существующего файла
	return os.Chmod(s.path, 0600)
}

// Clear удаляет сохраненный токен. Отсутствие файла не ошибка.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления файла токена: %w", err)
	}
	return nil
}
