// Package library реализует service.Client поверх личной библиотеки:
// записи в YAML-файле, сами файлы в бакете S3
package library

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sahilm/fuzzy"

	"github.com/hazadus/go-tuner/internal/catalog"
	"github.com/hazadus/go-tuner/internal/service"
	"github.com/hazadus/go-tuner/internal/streaming"
	"github.com/hazadus/go-tuner/internal/track"
)

// DefaultPresignTTL - срок жизни подписанной ссылки по умолчанию
const DefaultPresignTTL = time.Hour

// Presigner выдает временные ссылки на объекты хранилища
type Presigner interface {
	PresignGet(key string, ttl time.Duration) (string, error)
}

// Option настраивает Backend
type Option func(*Backend)

// WithPresigner включает выдачу ссылок через хранилище
func WithPresigner(p Presigner, ttl time.Duration) Option {
	return func(b *Backend) {
		b.presigner = p
		if ttl > 0 {
			b.ttl = ttl
		}
	}
}

// WithHTTPClient задает клиент для чтения потоков
func WithHTTPClient(c *http.Client) Option {
	return func(b *Backend) { b.httpClient = c }
}

// WithLogger задает логгер
func WithLogger(l zerolog.Logger) Option {
	return func(b *Backend) { b.log = l }
}

// Backend - каталог личной библиотеки
type Backend struct {
	tracks     *track.Manager
	presigner  Presigner
	ttl        time.Duration
	httpClient *http.Client
	log        zerolog.Logger
}

var _ service.Client = (*Backend)(nil)

// New создает бэкенд библиотеки
func New(manager *track.Manager, opts ...Option) *Backend {
	b := &Backend{
		tracks: manager,
		ttl:    DefaultPresignTTL,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Search ищет по библиотеке нечетким сопоставлением. Пустой запрос возвращает все.
// limit и offset применяются к каждому виду отдельно.
func (b *Backend) Search(ctx context.Context, query string, kinds service.Kinds, limit, offset int) ([]catalog.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, service.AsFetchError("search", err)
	}

	query = strings.TrimSpace(query)
	var out []catalog.Entry

	if kinds.Has(catalog.KindArtist) {
		artists := b.tracks.Artists()
		idx := matchIndexes(query, artists, func(a catalog.Artist) string { return a.Name })
		for _, i := range page(idx, limit, offset) {
			out = append(out, artists[i])
		}
	}
	if kinds.Has(catalog.KindAlbum) {
		albums := b.tracks.Albums()
		idx := matchIndexes(query, albums, func(a catalog.Album) string { return a.Artist + " " + a.Title })
		for _, i := range page(idx, limit, offset) {
			out = append(out, albums[i])
		}
	}
	if kinds.Has(catalog.KindTrack) {
		tracks := b.tracks.Tracks()
		idx := matchIndexes(query, tracks, func(t catalog.Track) string {
			return t.Artist + " " + t.Title + " " + t.Album
		})
		for _, i := range page(idx, limit, offset) {
			out = append(out, tracks[i])
		}
	}

	b.log.Debug().Str("query", query).Stringer("kinds", kinds).Int("results", len(out)).Msg("Поиск по библиотеке")
	return out, nil
}

// FetchChildren возвращает треки альбома или альбомы исполнителя
func (b *Backend) FetchChildren(ctx context.Context, entry catalog.Entry) ([]catalog.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, service.AsFetchError("children", err)
	}

	var out []catalog.Entry
	switch e := entry.(type) {
	case catalog.Album:
		for _, t := range b.tracks.AlbumTracks(e.ID) {
			out = append(out, t)
		}
		if len(out) == 0 {
			return nil, &service.FetchError{Op: "album tracks", Err: fmt.Errorf("%w: альбом %s", service.ErrNotFound, e.ID)}
		}
	case catalog.Artist:
		if !b.tracks.HasArtist(e.ID) {
			return nil, &service.FetchError{Op: "artist albums", Err: fmt.Errorf("%w: исполнитель %s", service.ErrNotFound, e.ID)}
		}
		for _, a := range b.tracks.ArtistAlbums(e.ID) {
			out = append(out, a)
		}
	case catalog.Track:
		return nil, &service.FetchError{Op: "children", Err: service.ErrNoChildren}
	}
	return out, nil
}

// ResolveStream открывает файл трека: по подписанной ссылке, по URL или с диска
func (b *Backend) ResolveStream(ctx context.Context, t catalog.Track) (*service.Stream, error) {
	rec, err := b.tracks.TrackByRef(t.ID)
	if err != nil {
		return nil, service.AsStreamError(t.ID, fmt.Errorf("%w: %v", service.ErrNotFound, err))
	}

	location := rec.URL
	if rec.Key != "" && b.presigner != nil {
		signed, err := b.presigner.PresignGet(rec.Key, b.ttl)
		if err != nil {
			return nil, service.AsStreamError(t.ID, err)
		}
		location = signed
	}
	if location == "" {
		return nil, service.AsStreamError(t.ID, service.ErrUnavailable)
	}

	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		return b.openFile(t.ID, strings.TrimPrefix(location, "file://"))
	}

	var opts []streaming.Option
	if b.httpClient != nil {
		opts = append(opts, streaming.WithClient(b.httpClient))
	}
	r, err := streaming.NewReader(ctx, location, opts...)
	if err != nil {
		return nil, service.AsStreamError(t.ID, err)
	}

	b.log.Debug().Str("track", t.ID).Str("content_type", r.ContentType()).Int64("size", r.Size()).Msg("Поток трека открыт")
	return &service.Stream{ReadCloser: r, MimeType: r.ContentType(), Size: r.Size()}, nil
}

func (b *Backend) openFile(trackID, path string) (*service.Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, service.AsStreamError(trackID, err)
	}
	size := int64(-1)
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}
	return &service.Stream{ReadCloser: f, Size: size}, nil
}

// source - строки для поиска, реализует fuzzy.Source
type source []string

func (s source) String(i int) string { return s[i] }
func (s source) Len() int            { return len(s) }

// matchIndexes возвращает индексы подходящих элементов: по убыванию
// релевантности или в исходном порядке, если запрос пуст
func matchIndexes[T any](query string, items []T, text func(T) string) []int {
	if query == "" {
		idx := make([]int, len(items))
		for i := range items {
			idx[i] = i
		}
		return idx
	}

	src := make(source, len(items))
	for i, it := range items {
		src[i] = strings.ToLower(text(it))
	}

	matches := fuzzy.FindFrom(strings.ToLower(query), src)
	idx := make([]int, len(matches))
	for i, m := range matches {
		idx[i] = m.Index
	}
	return idx
}

// page вырезает страницу; limit <= 0 означает без ограничения
func page(idx []int, limit, offset int) []int {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(idx) {
		return nil
	}
	idx = idx[offset:]
	if limit > 0 && limit < len(idx) {
		idx = idx[:limit]
	}
	return idx
}
