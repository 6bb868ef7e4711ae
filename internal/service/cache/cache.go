// Package cache кэширует ответы каталога в BoltDB: результаты поиска и дочерние
// элементы. Потоки треков не кэшируются.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"
	"golang.org/x/sync/singleflight"

	"github.com/hazadus/go-tuner/internal/catalog"
	"github.com/hazadus/go-tuner/internal/service"
)

// DefaultTTL - срок жизни записи по умолчанию
const DefaultTTL = 24 * time.Hour

var (
	bucketSearch   = []byte("search")
	bucketChildren = []byte("children")
)

// Option настраивает Cache
type Option func(*Cache)

// WithTTL задает срок жизни записей
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLogger задает логгер
func WithLogger(l zerolog.Logger) Option {
	return func(c *Cache) { c.log = l }
}

// WithNamespace разделяет записи разных сервисов в одном файле
func WithNamespace(ns string) Option {
	return func(c *Cache) { c.ns = hashNamespace(ns) }
}

// Cache - декоратор service.Client с кэшем на диске
type Cache struct {
	next  service.Client
	db    *bolt.DB
	ttl   time.Duration
	ns    string
	group singleflight.Group
	log   zerolog.Logger
	now   func() time.Time
}

var _ service.Client = (*Cache)(nil)

// Open открывает файл кэша path и оборачивает next
func Open(path string, next service.Client, opts ...Option) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("ошибка создания каталога кэша: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия кэша %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketSearch, bucketChildren} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка инициализации кэша: %w", err)
	}

	c := &Cache{
		next: next,
		db:   db,
		ttl:  DefaultTTL,
		log:  zerolog.Nop(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close закрывает файл кэша
func (c *Cache) Close() error {
	return c.db.Close()
}

// Search возвращает результат поиска из кэша или запрашивает сервис
func (c *Cache) Search(ctx context.Context, query string, kinds service.Kinds, limit, offset int) ([]catalog.Entry, error) {
	key := c.key(strings.ToLower(strings.TrimSpace(query)), kinds.String(), strconv.Itoa(limit), strconv.Itoa(offset))
	return c.through(ctx, bucketSearch, key, func(ctx context.Context) ([]catalog.Entry, error) {
		return c.next.Search(ctx, query, kinds, limit, offset)
	})
}

// FetchChildren возвращает дочерние элементы из кэша или запрашивает сервис
func (c *Cache) FetchChildren(ctx context.Context, entry catalog.Entry) ([]catalog.Entry, error) {
	key := c.key(entry.Kind().String(), entry.Ref())
	return c.through(ctx, bucketChildren, key, func(ctx context.Context) ([]catalog.Entry, error) {
		return c.next.FetchChildren(ctx, entry)
	})
}

// ResolveStream всегда обращается к сервису: ссылки на поток временные
func (c *Cache) ResolveStream(ctx context.Context, t catalog.Track) (*service.Stream, error) {
	return c.next.ResolveStream(ctx, t)
}

// Purge удаляет все записи
func (c *Cache) Purge() error {
	return c.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketSearch, bucketChildren} {
			if err := tx.DeleteBucket(bucket); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
				return err
			}
			if _, err := tx.CreateBucket(bucket); err != nil {
				return err
			}
		}
		return nil
	})
}

// through читает запись или выполняет fetch. Одинаковые запросы, пришедшие
// одновременно, выполняются один раз.
func (c *Cache) through(ctx context.Context, bucket []byte, key string, fetch func(context.Context) ([]catalog.Entry, error)) ([]catalog.Entry, error) {
	if entries, ok := c.get(bucket, key); ok {
		c.log.Debug().Str("bucket", string(bucket)).Str("key", key).Msg("Попадание в кэш")
		return entries, nil
	}

	v, err, _ := c.group.Do(string(bucket)+"\x00"+key, func() (any, error) {
		entries, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.set(bucket, key, entries); err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("Не удалось записать кэш")
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]catalog.Entry), nil
}

func (c *Cache) get(bucket []byte, key string) ([]catalog.Entry, bool) {
	var data []byte
	c.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucket).Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if data == nil {
		return nil, false
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Поврежденная запись кэша")
		return nil, false
	}
	if c.now().Sub(rec.Stored) > c.ttl {
		return nil, false
	}

	entries, err := rec.decode()
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Поврежденная запись кэша")
		return nil, false
	}
	return entries, true
}

func (c *Cache) set(bucket []byte, key string, entries []catalog.Entry) error {
	data, err := json.Marshal(newRecord(c.now(), entries))
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

func (c *Cache) key(parts ...string) string {
	if c.ns != "" {
		parts = append([]string{c.ns}, parts...)
	}
	return strings.Join(parts, "\x00")
}

func hashNamespace(ns string) string {
	normalized := strings.TrimRight(strings.ToLower(ns), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}
