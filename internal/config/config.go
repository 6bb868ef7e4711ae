// Package config содержит функции для загрузки конфигурации приложения
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

const appName = "tuner"

// EnvPrefix - префикс переменных окружения (TUNER_SERVICE_URL и т.п.)
const EnvPrefix = "TUNER"

// Бэкенды каталога
const (
	BackendRemote  = "remote"
	BackendLibrary = "library"
)

// Config структура для хранения конфигурации приложения
type Config struct {
	Service ServiceConfig `mapstructure:"service"`
	Library LibraryConfig `mapstructure:"library"`
	Audio   AudioConfig   `mapstructure:"audio"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Logging LoggingConfig `mapstructure:"logging"`
	Auth    AuthConfig    `mapstructure:"auth"`
}

// ServiceConfig - откуда берется каталог
type ServiceConfig struct {
	Backend  string        `mapstructure:"backend"` // "remote" или "library"
	URL      string        `mapstructure:"url"`
	ClientID string        `mapstructure:"client_id"`
	Quality  string        `mapstructure:"quality"`
	PageSize int           `mapstructure:"page_size"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// LibraryConfig - личная библиотека треков в S3
type LibraryConfig struct {
	DataFile      string        `mapstructure:"data_file"`
	AwsBucketName string        `mapstructure:"aws_bucket_name"`
	AwsAccessKey  string        `mapstructure:"aws_access_key"`
	AwsSecretKey  string        `mapstructure:"aws_secret_key"`
	AwsRegion     string        `mapstructure:"aws_region"`
	AwsEndpoint   string        `mapstructure:"aws_endpoint"`
	PresignTTL    time.Duration `mapstructure:"presign_ttl"`
}

// AudioConfig - параметры звукового вывода
type AudioConfig struct {
	SampleRate      int           `mapstructure:"sample_rate"`
	Buffer          time.Duration `mapstructure:"buffer"`
	ResampleQuality int           `mapstructure:"resample_quality"`
	Prefetch        time.Duration `mapstructure:"prefetch"`
}

// CacheConfig - кэш результатов поиска
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Path    string        `mapstructure:"path"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// LoggingConfig - журнал в файл
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// AuthConfig - где хранится токен
type AuthConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Backend:  BackendLibrary,
			Quality:  "HIGH",
			PageSize: 50,
			Timeout:  30 * time.Second,
		},
		Library: LibraryConfig{
			DataFile:   filepath.Join(xdg.DataHome, appName, "library.yaml"),
			AwsRegion:  "us-east-1",
			PresignTTL: time.Hour,
		},
		Audio: AudioConfig{
			SampleRate:      44100,
			Buffer:          100 * time.Millisecond,
			ResampleQuality: 4,
			Prefetch:        2 * time.Second,
		},
		Cache: CacheConfig{
			Enabled: true,
			Path:    filepath.Join(xdg.CacheHome, appName, "cache.db"),
			TTL:     6 * time.Hour,
		},
		Logging: LoggingConfig{
			File:  filepath.Join(xdg.StateHome, appName, appName+".log"),
			Level: "info",
		},
		Auth: AuthConfig{
			CredentialsFile: filepath.Join(xdg.ConfigHome, appName, "credentials.yaml"),
		},
	}
}

// DefaultPath возвращает путь к файлу конфигурации по умолчанию
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}

// LoadConfig загружает конфигурацию из файла и переменных окружения.
// Пустой filePath означает файл по умолчанию. Отсутствие файла не ошибка.
func LoadConfig(filePath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	if filePath != "" {
		v.SetConfigFile(ExpandHome(filePath))
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(filepath.Join(xdg.ConfigHome, appName))
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфигурации: %w", err)
	}

	cfg.Library.DataFile = ExpandHome(cfg.Library.DataFile)
	cfg.Cache.Path = ExpandHome(cfg.Cache.Path)
	cfg.Logging.File = ExpandHome(cfg.Logging.File)
	cfg.Auth.CredentialsFile = ExpandHome(cfg.Auth.CredentialsFile)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults регистрирует все ключи, иначе AutomaticEnv не видит вложенные поля
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("service.backend", cfg.Service.Backend)
	v.SetDefault("service.url", cfg.Service.URL)
	v.SetDefault("service.client_id", cfg.Service.ClientID)
	v.SetDefault("service.quality", cfg.Service.Quality)
	v.SetDefault("service.page_size", cfg.Service.PageSize)
	v.SetDefault("service.timeout", cfg.Service.Timeout)

	v.SetDefault("library.data_file", cfg.Library.DataFile)
	v.SetDefault("library.aws_bucket_name", cfg.Library.AwsBucketName)
	v.SetDefault("library.aws_access_key", cfg.Library.AwsAccessKey)
	v.SetDefault("library.aws_secret_key", cfg.Library.AwsSecretKey)
	v.SetDefault("library.aws_region", cfg.Library.AwsRegion)
	v.SetDefault("library.aws_endpoint", cfg.Library.AwsEndpoint)
	v.SetDefault("library.presign_ttl", cfg.Library.PresignTTL)

	v.SetDefault("audio.sample_rate", cfg.Audio.SampleRate)
	v.SetDefault("audio.buffer", cfg.Audio.Buffer)
	v.SetDefault("audio.resample_quality", cfg.Audio.ResampleQuality)
	v.SetDefault("audio.prefetch", cfg.Audio.Prefetch)

	v.SetDefault("cache.enabled", cfg.Cache.Enabled)
	v.SetDefault("cache.path", cfg.Cache.Path)
	v.SetDefault("cache.ttl", cfg.Cache.TTL)

	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)

	v.SetDefault("auth.credentials_file", cfg.Auth.CredentialsFile)
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	switch c.Service.Backend {
	case BackendRemote:
		if c.Service.URL == "" {
			return fmt.Errorf("не задан service.url для бэкенда %q", BackendRemote)
		}
	case BackendLibrary:
	default:
		return fmt.Errorf("неизвестный бэкенд %q", c.Service.Backend)
	}
	if c.Service.PageSize <= 0 {
		return fmt.Errorf("service.page_size должен быть положительным: %d", c.Service.PageSize)
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate должен быть положительным: %d", c.Audio.SampleRate)
	}
	return nil
}

// HasStorage сообщает, настроено ли S3-хранилище библиотеки
func (c *Config) HasStorage() bool {
	return c.Library.AwsBucketName != "" && c.Library.AwsAccessKey != ""
}

// ExpandHome раскрывает тильду в начале пути
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
