package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazadus/go-tuner/internal/catalog"
	"github.com/hazadus/go-tuner/internal/credentials"
	"github.com/hazadus/go-tuner/internal/service"
)

const searchJSON = `{
	"artists": {"items": [{"id": 3346, "name": "Stereolab"}]},
	"albums": {"items": [{"id": 55, "title": "Dots and Loops", "numberOfTracks": 10, "duration": 3900,
		"releaseDate": "1997-09-22", "artist": {"id": 3346, "name": "Stereolab"}}]},
	"tracks": {"items": [{"id": "7", "title": "Brakhage", "duration": 276,
		"artist": {"id": 3346, "name": "Stereolab"}, "album": {"id": 55, "title": "Dots and Loops"}}]}
}`

func newTestClient(t *testing.T, h http.Handler, opts ...Option) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	base := []Option{
		WithHTTPClient(srv.Client()),
		WithToken(&credentials.Token{AccessToken: "good", CountryCode: "NL"}),
		WithClientID("test-client"),
	}
	c := New(srv.URL, append(base, opts...)...)
	c.wait = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return c, srv
}

func TestSearch(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/search" {
			t.Errorf("Неожиданный путь: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer good" {
			t.Errorf("Неверный заголовок авторизации: %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("Нет X-Request-ID")
		}
		q := r.URL.Query()
		if q.Get("query") != "stereolab" || q.Get("types") != "ARTISTS,ALBUMS,TRACKS" || q.Get("limit") != "15" || q.Get("countryCode") != "NL" {
			t.Errorf("Неверные параметры: %v", q)
		}
		fmt.Fprint(w, searchJSON)
	}))

	entries, err := c.Search(context.Background(), "stereolab", service.AllKinds, 15, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Ожидалось 3 элемента, получено %d", len(entries))
	}

	artist, ok := entries[0].(catalog.Artist)
	if !ok || artist.ID != "3346" {
		t.Errorf("Первым должен быть исполнитель: %+v", entries[0])
	}
	album, ok := entries[1].(catalog.Album)
	if !ok || album.Year != 1997 || album.TrackCount != 10 || album.ArtistID != "3346" {
		t.Errorf("Неожиданный альбом: %+v", entries[1])
	}
	track, ok := entries[2].(catalog.Track)
	if !ok || track.ID != "7" || track.AlbumID != "55" || track.Duration != 276*time.Second {
		t.Errorf("Неожиданный трек: %+v", entries[2])
	}
}

func TestSearchKindsFilter(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("types"); got != "TRACKS" {
			t.Errorf("Ожидался types=TRACKS, получено %q", got)
		}
		// Сервис может вернуть лишнее, клиент отбрасывает невостребованные виды
		fmt.Fprint(w, searchJSON)
	}))

	entries, err := c.Search(context.Background(), "x", service.Tracks, 0, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(entries) != 1 || entries[0].Kind() != catalog.KindTrack {
		t.Errorf("Ожидался один трек, получено %+v", entries)
	}
}

func TestFetchChildren(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/albums/55/tracks", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items": [{"id": 7, "title": "Brakhage"}, {"id": 8, "title": "Miss Modular"}]}`)
	})
	mux.HandleFunc("/v1/artists/3346/albums", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items": [{"id": 55, "title": "Dots and Loops"}]}`)
	})
	mux.HandleFunc("/v1/artists/1/albums", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"userMessage": "Artist not found"}`)
	})
	c, _ := newTestClient(t, mux)
	ctx := context.Background()

	tracks, err := c.FetchChildren(ctx, catalog.Album{ID: "55"})
	if err != nil || len(tracks) != 2 || tracks[1].DisplayName() != "Miss Modular" {
		t.Errorf("Треки альбома: %+v, %v", tracks, err)
	}

	albums, err := c.FetchChildren(ctx, catalog.Artist{ID: "3346"})
	if err != nil || len(albums) != 1 || albums[0].Kind() != catalog.KindAlbum {
		t.Errorf("Альбомы исполнителя: %+v, %v", albums, err)
	}

	_, err = c.FetchChildren(ctx, catalog.Artist{ID: "1"})
	var fe *service.FetchError
	if !errors.As(err, &fe) || !errors.Is(err, service.ErrNotFound) {
		t.Errorf("Ожидалась FetchError с ErrNotFound, получено %v", err)
	}

	_, err = c.FetchChildren(ctx, catalog.Track{ID: "7"})
	if !errors.Is(err, service.ErrNoChildren) {
		t.Errorf("Ожидалась ErrNoChildren, получено %v", err)
	}
}

func TestResolveStream(t *testing.T) {
	mux := http.NewServeMux()
	var srvURL string
	mux.HandleFunc("/v1/tracks/7/stream", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("quality") != QualityLossless {
			t.Errorf("Неверное качество: %s", r.URL.RawQuery)
		}
		fmt.Fprintf(w, `{"url": %q, "mimeType": "audio/flac"}`, srvURL+"/cdn/7.flac")
	})
	mux.HandleFunc("/cdn/7.flac", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		fmt.Fprint(w, "fLaCdata")
	})
	mux.HandleFunc("/v1/tracks/9/stream", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	c, srv := newTestClient(t, mux, WithQuality(QualityLossless))
	srvURL = srv.URL

	stream, err := c.ResolveStream(context.Background(), catalog.Track{ID: "7"})
	if err != nil {
		t.Fatalf("ResolveStream: %v", err)
	}
	defer stream.Close()

	body, _ := io.ReadAll(stream)
	if string(body) != "fLaCdata" {
		t.Errorf("Неожиданное тело: %q", body)
	}
	if stream.MimeType != "audio/flac" {
		t.Errorf("MIME из ответа API должен иметь приоритет: %s", stream.MimeType)
	}

	_, err = c.ResolveStream(context.Background(), catalog.Track{ID: "9"})
	var se *service.StreamResolutionError
	if !errors.As(err, &se) || se.TrackID != "9" || !errors.Is(err, service.ErrUnavailable) {
		t.Errorf("Ожидалась StreamResolutionError с ErrUnavailable, получено %v", err)
	}
}

func TestNoToken(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	c.token = nil

	_, err := c.Search(context.Background(), "x", service.AllKinds, 0, 0)
	if !errors.Is(err, service.ErrUnauthorized) {
		t.Errorf("Ожидалась ErrUnauthorized, получено %v", err)
	}
	if calls.Load() != 0 {
		t.Error("Без токена запрос не должен отправляться")
	}
}

func TestRefreshOnUnauthorized(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/search", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{}`)
	})
	mux.HandleFunc("/v1/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("grant_type") != refreshTokenGrant || r.FormValue("refresh_token") != "rt" {
			t.Errorf("Неверная форма обновления: %v", r.Form)
		}
		fmt.Fprint(w, `{"access_token": "fresh", "expires_in": 3600}`)
	})

	store := credentials.NewStore(filepath.Join(t.TempDir(), "token.yaml"))
	c, _ := newTestClient(t, mux,
		WithToken(&credentials.Token{AccessToken: "stale", RefreshToken: "rt", CountryCode: "NL"}),
		WithStore(store),
	)

	if _, err := c.Search(context.Background(), "x", service.AllKinds, 0, 0); err != nil {
		t.Fatalf("Search после обновления: %v", err)
	}

	saved, err := store.Load()
	if err != nil {
		t.Fatalf("Токен не сохранен: %v", err)
	}
	if saved.AccessToken != "fresh" || saved.RefreshToken != "rt" || saved.CountryCode != "NL" {
		t.Errorf("Поля прежнего токена должны сохраниться: %+v", saved)
	}
}

func TestExpiredTokenRefreshedBeforeRequest(t *testing.T) {
	var refreshed atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		refreshed.Store(true)
		fmt.Fprint(w, `{"access_token": "fresh", "refresh_token": "rt2"}`)
	})
	mux.HandleFunc("/v1/search", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			t.Errorf("Запрос ушел со старым токеном")
		}
		fmt.Fprint(w, `{}`)
	})

	c, _ := newTestClient(t, mux, WithToken(&credentials.Token{
		AccessToken:  "old",
		RefreshToken: "rt",
		Expiry:       time.Now().Add(-time.Minute),
	}))

	if _, err := c.Search(context.Background(), "x", service.AllKinds, 0, 0); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !refreshed.Load() || c.Token().RefreshToken != "rt2" {
		t.Errorf("Просроченный токен должен обновляться заранее: %+v", c.Token())
	}
}

func TestIDUnmarshal(t *testing.T) {
	tests := map[string]ID{
		`123`:    "123",
		`"abc"`:  "abc",
		`null`:   "",
		` 42 `:   "42",
		`"0042"`: "0042",
	}
	for in, want := range tests {
		var id ID
		if err := id.UnmarshalJSON([]byte(in)); err != nil || id != want {
			t.Errorf("UnmarshalJSON(%s) = %q, %v; ожидалось %q", in, id, err, want)
		}
	}

	var id ID
	if err := id.UnmarshalJSON([]byte(`{}`)); err == nil {
		t.Error("Объект не должен разбираться как идентификатор")
	}
}
