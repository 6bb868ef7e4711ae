package streaming

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewReader(t *testing.T) {
	var gotAuth, gotRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRange = r.Header.Get("Range")
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3payload"))
	}))
	defer srv.Close()

	r, err := NewReader(context.Background(), srv.URL,
		WithClient(srv.Client()),
		WithBufferSize(16),
		WithHeader("Authorization", "Bearer token"),
	)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()

	body, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(body) != "ID3payload" {
		t.Errorf("Неожиданное тело: %q", body)
	}
	if r.ContentType() != "audio/mpeg" {
		t.Errorf("Неожиданный Content-Type: %q", r.ContentType())
	}
	if gotAuth != "Bearer token" {
		t.Errorf("Заголовок Authorization не передан: %q", gotAuth)
	}
	if gotRange != "bytes=0-" {
		t.Errorf("Заголовок Range не передан: %q", gotRange)
	}
}

func TestNewReaderStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewReader(context.Background(), srv.URL, WithClient(srv.Client()))
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("Ожидалась StatusError, получено %v", err)
	}
	if se.Code != http.StatusForbidden {
		t.Errorf("Ожидался код 403, получено %d", se.Code)
	}
}

func TestNewReaderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewReader(ctx, "http://127.0.0.1:1/never")
	if err == nil {
		t.Fatal("Ожидалась ошибка для отмененного контекста")
	}
}

func TestStatusText(t *testing.T) {
	tests := map[int]string{
		0:  "Потоковое воспроизведение",
		2:  "Буферизация...",
		5:  "Медленная загрузка",
		10: "Возможная проблема с соединением",
	}
	for stalls, want := range tests {
		if got := StatusText(stalls); got != want {
			t.Errorf("StatusText(%d) = %q, ожидалось %q", stalls, got, want)
		}
	}
}
