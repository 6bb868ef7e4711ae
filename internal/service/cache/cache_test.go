package cache

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hazadus/go-tuner/internal/catalog"
	"github.com/hazadus/go-tuner/internal/service"
)

type countingClient struct {
	mu       sync.Mutex
	searches int
	children int
	streams  int
	err      error
	gate     chan struct{}
}

func (c *countingClient) Search(_ context.Context, query string, _ service.Kinds, _, _ int) ([]catalog.Entry, error) {
	if c.gate != nil {
		<-c.gate
	}
	c.mu.Lock()
	c.searches++
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return []catalog.Entry{
		catalog.Artist{ID: "a1", Name: query},
		catalog.Album{ID: "al1", Title: "Album", Year: 2001, Duration: 40 * time.Minute},
		catalog.Track{ID: "t1", Title: "Track", Duration: 3 * time.Minute},
	}, nil
}

func (c *countingClient) FetchChildren(_ context.Context, e catalog.Entry) ([]catalog.Entry, error) {
	c.mu.Lock()
	c.children++
	c.mu.Unlock()
	return []catalog.Entry{catalog.Track{ID: e.Ref() + "/1", Title: "Child"}}, nil
}

func (c *countingClient) ResolveStream(context.Context, catalog.Track) (*service.Stream, error) {
	c.mu.Lock()
	c.streams++
	c.mu.Unlock()
	return &service.Stream{ReadCloser: io.NopCloser(strings.NewReader("x")), Size: 1}, nil
}

func openCache(t *testing.T, next service.Client, opts ...Option) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache", "catalog.db"), next, opts...)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSearchIsCached(t *testing.T) {
	next := &countingClient{}
	c := openCache(t, next)
	ctx := context.Background()

	first, err := c.Search(ctx, "Broadcast", service.AllKinds, 15, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	second, err := c.Search(ctx, "  broadcast ", service.AllKinds, 15, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if next.searches != 1 {
		t.Errorf("Ожидался 1 запрос к сервису, получено %d", next.searches)
	}
	if len(second) != 3 {
		t.Fatalf("Неожиданный результат из кэша: %+v", second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("Элемент %d изменился при чтении из кэша: %+v != %+v", i, first[i], second[i])
		}
	}

	// Другая страница - другой ключ
	if _, err := c.Search(ctx, "broadcast", service.AllKinds, 15, 15); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if next.searches != 2 {
		t.Errorf("Смещение должно входить в ключ, запросов: %d", next.searches)
	}
}

func TestTTLExpiry(t *testing.T) {
	next := &countingClient{}
	c := openCache(t, next, WithTTL(time.Minute))
	now := time.Now()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	album := catalog.Album{ID: "al1"}
	c.FetchChildren(ctx, album)
	c.FetchChildren(ctx, album)
	if next.children != 1 {
		t.Fatalf("Ожидался 1 запрос, получено %d", next.children)
	}

	now = now.Add(2 * time.Minute)
	children, err := c.FetchChildren(ctx, album)
	if err != nil || len(children) != 1 {
		t.Fatalf("FetchChildren: %+v, %v", children, err)
	}
	if next.children != 2 {
		t.Errorf("Просроченная запись должна запрашиваться заново, запросов: %d", next.children)
	}
}

func TestErrorsAreNotCached(t *testing.T) {
	next := &countingClient{err: &service.FetchError{Op: "search", Err: service.ErrUnauthorized}}
	c := openCache(t, next)

	for range 2 {
		_, err := c.Search(context.Background(), "x", service.AllKinds, 0, 0)
		if !errors.Is(err, service.ErrUnauthorized) {
			t.Fatalf("Ожидалась ошибка сервиса, получено %v", err)
		}
	}
	if next.searches != 2 {
		t.Errorf("Ошибки не должны кэшироваться, запросов: %d", next.searches)
	}
}

func TestResolveStreamBypassesCache(t *testing.T) {
	next := &countingClient{}
	c := openCache(t, next)

	for range 2 {
		s, err := c.ResolveStream(context.Background(), catalog.Track{ID: "t1"})
		if err != nil {
			t.Fatalf("ResolveStream: %v", err)
		}
		s.Close()
	}
	if next.streams != 2 {
		t.Errorf("Потоки не должны кэшироваться, запросов: %d", next.streams)
	}
}

func TestConcurrentSearchesShareRequest(t *testing.T) {
	next := &countingClient{gate: make(chan struct{})}
	c := openCache(t, next)

	var wg sync.WaitGroup
	results := make([][]catalog.Entry, 4)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = c.Search(context.Background(), "q", service.AllKinds, 0, 0)
		}()
	}

	// Даем горутинам дойти до singleflight
	time.Sleep(50 * time.Millisecond)
	close(next.gate)
	wg.Wait()

	if next.searches < 1 || next.searches > 2 {
		t.Errorf("Одновременные запросы должны объединяться, запросов: %d", next.searches)
	}
	for i, r := range results {
		if len(r) != 3 {
			t.Errorf("Горутина %d получила %+v", i, r)
		}
	}
}

func TestPersistenceAndNamespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	next := &countingClient{}

	c, err := Open(path, next, WithNamespace("https://api.one/"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	c.Search(context.Background(), "q", service.Tracks, 0, 0)
	c.Close()

	c, err = Open(path, next, WithNamespace("https://API.one"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	c.Search(context.Background(), "q", service.Tracks, 0, 0)
	c.Close()
	if next.searches != 1 {
		t.Errorf("Запись должна переживать переоткрытие, запросов: %d", next.searches)
	}

	c, err = Open(path, next, WithNamespace("https://api.two"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()
	c.Search(context.Background(), "q", service.Tracks, 0, 0)
	if next.searches != 2 {
		t.Errorf("Разные сервисы не должны делить записи, запросов: %d", next.searches)
	}
}

func TestPurge(t *testing.T) {
	next := &countingClient{}
	c := openCache(t, next)
	ctx := context.Background()

	c.Search(ctx, "q", service.AllKinds, 0, 0)
	if err := c.Purge(); err != nil {
		t.Fatalf("Purge: %v", err)
	}
	c.Search(ctx, "q", service.AllKinds, 0, 0)
	if next.searches != 2 {
		t.Errorf("После очистки запрос должен идти в сервис, запросов: %d", next.searches)
	}
}

func TestRecordRejectsUnknownKind(t *testing.T) {
	rec := record{Entries: []entryWrapper{{Type: "playlist"}}}
	if _, err := rec.decode(); err == nil {
		t.Error("Неизвестный вид должен давать ошибку")
	}
}
