// Package s3 предоставляет доступ к бакету библиотеки в Amazon S3 (или совместимом хранилище)
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
)

// Config содержит настройки для S3
type Config struct {
	Region     string
	AccessKey  string
	SecretKey  string
	Endpoint   string
	BucketName string
}

// Storage - загрузка, удаление и выдача ссылок на объекты бакета
type Storage struct {
	uploader s3manageriface.UploaderAPI
	client   s3iface.S3API
	config   *Config
}

// NewStorage создает клиент S3 по настройкам
func NewStorage(config *Config) (*Storage, error) {
	if config.BucketName == "" {
		return nil, errors.New("не задано имя бакета")
	}

	awsConfig := &aws.Config{
		Region: aws.String(config.Region),
		Credentials: credentials.NewStaticCredentials(
			config.AccessKey,
			config.SecretKey,
			"",
		),
	}

	// Если указан endpoint, работаем с S3-совместимым хранилищем
	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания AWS сессии: %w", err)
	}

	return NewStorageWithClients(config, s3manager.NewUploader(sess), s3.New(sess)), nil
}

// NewStorageWithClients создает Storage поверх готовых клиентов AWS
func NewStorageWithClients(config *Config, uploader s3manageriface.UploaderAPI, client s3iface.S3API) *Storage {
	return &Storage{
		uploader: uploader,
		client:   client,
		config:   config,
	}
}

// UploadFile загружает поток в бакет под ключом key и возвращает URL объекта
func (s *Storage) UploadFile(ctx context.Context, reader io.Reader, key, contentType string) (string, error) {
	input := &s3manager.UploadInput{
		Bucket: aws.String(s.config.BucketName),
		Key:    aws.String(key),
		Body:   reader,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.uploader.UploadWithContext(ctx, input); err != nil {
		return "", fmt.Errorf("ошибка загрузки: %w", err)
	}

	return s.ObjectURL(key), nil
}

// DeleteFile удаляет объект из бакета
func (s *Storage) DeleteFile(ctx context.Context, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.config.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("ошибка удаления файла из S3: %w", err)
	}
	return nil
}

// PresignGet возвращает временную ссылку на чтение объекта
func (s *Storage) PresignGet(key string, ttl time.Duration) (string, error) {
	req, _ := s.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.config.BucketName),
		Key:    aws.String(key),
	})
	signed, err := req.Presign(ttl)
	if err != nil {
		return "", fmt.Errorf("ошибка подписи ссылки: %w", err)
	}
	return signed, nil
}

// ObjectURL возвращает постоянный URL объекта в формате endpoint/bucket/key
func (s *Storage) ObjectURL(key string) string {
	endpoint := strings.TrimSuffix(s.config.Endpoint, "/")
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://s3.%s.amazonaws.com", s.config.Region)
	}
	return fmt.Sprintf("%s/%s/%s", endpoint, s.config.BucketName, key)
}

// KeyFromURL извлекает ключ объекта из URL вида endpoint/bucket/key
func KeyFromURL(fileURL string) (string, error) {
	parsedURL, err := url.Parse(fileURL)
	if err != nil {
		return "", fmt.Errorf("неверный URL: %w", err)
	}

	path := strings.TrimPrefix(parsedURL.Path, "/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) < 2 || parts[1] == "" {
		return "", fmt.Errorf("неверный формат URL S3: %s", fileURL)
	}
	return parts[1], nil
}
