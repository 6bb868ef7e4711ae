package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazadus/go-tuner/internal/credentials"
)

func deviceAuthHandler(t *testing.T, responses []string) (http.Handler, *atomic.Int32) {
	t.Helper()
	var polls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth/device_authorization", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.FormValue("client_id") != "test-client" {
			t.Errorf("Неверный запрос кода: %s %v", r.Method, r.Form)
		}
		fmt.Fprint(w, `{"deviceCode": "dc", "userCode": "ABCD", "verificationUriComplete": "link.example/ABCD", "expiresIn": 300, "interval": 2}`)
	})
	mux.HandleFunc("/v1/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("grant_type") != deviceCodeGrant || r.FormValue("device_code") != "dc" {
			t.Errorf("Неверная форма опроса: %v", r.Form)
		}
		i := int(polls.Add(1)) - 1
		if i >= len(responses) {
			i = len(responses) - 1
		}
		body := responses[i]
		if body[0] == '!' {
			w.WriteHeader(http.StatusBadRequest)
			body = body[1:]
		}
		fmt.Fprint(w, body)
	})
	return mux, &polls
}

func TestLogin(t *testing.T) {
	h, polls := deviceAuthHandler(t, []string{
		`!{"error": "authorization_pending"}`,
		`!{"error": "slow_down"}`,
		`{"access_token": "at", "refresh_token": "rt", "token_type": "Bearer", "expires_in": 600,
			"user": {"userId": 991, "countryCode": "DE"}}`,
	})
	store := credentials.NewStore(filepath.Join(t.TempDir(), "token.yaml"))
	c, _ := newTestClient(t, h, WithStore(store), WithToken(nil))

	var waits []time.Duration
	c.wait = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	var link string
	tok, err := c.Login(context.Background(), func(dc *DeviceCode) { link = dc.Link() })
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if link != "https://link.example/ABCD" {
		t.Errorf("Неожиданная ссылка: %s", link)
	}
	if polls.Load() != 3 {
		t.Errorf("Ожидалось 3 опроса, получено %d", polls.Load())
	}
	if len(waits) != 3 || waits[0] != 2*time.Second || waits[2] != 7*time.Second {
		t.Errorf("slow_down должен увеличивать интервал: %v", waits)
	}
	if tok.UserID != "991" || tok.CountryCode != "DE" || tok.Expiry.IsZero() {
		t.Errorf("Неожиданный токен: %+v", tok)
	}

	saved, err := store.Load()
	if err != nil || saved.AccessToken != "at" {
		t.Errorf("Токен должен сохраняться после входа: %+v, %v", saved, err)
	}
	if c.Token().AccessToken != "at" {
		t.Error("Клиент должен использовать новый токен")
	}
}

func TestLoginFailures(t *testing.T) {
	tests := []struct {
		name string
		resp string
		want error
	}{
		{"denied", `!{"error": "access_denied"}`, ErrLoginDenied},
		{"expired", `!{"error": "expired_token"}`, ErrLoginExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := deviceAuthHandler(t, []string{tt.resp})
			c, _ := newTestClient(t, h)
			if _, err := c.Login(context.Background(), nil); !errors.Is(err, tt.want) {
				t.Errorf("Ожидалась %v, получено %v", tt.want, err)
			}
		})
	}
}

func TestLoginCancelled(t *testing.T) {
	h, polls := deviceAuthHandler(t, []string{`!{"error": "authorization_pending"}`})
	c, _ := newTestClient(t, h)

	ctx, cancel := context.WithCancel(context.Background())
	c.wait = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	if _, err := c.Login(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Ожидалась context.Canceled, получено %v", err)
	}
	if polls.Load() != 0 {
		t.Errorf("После отмены опросов быть не должно: %d", polls.Load())
	}
}

func TestLoginDeadline(t *testing.T) {
	h, _ := deviceAuthHandler(t, []string{`!{"error": "authorization_pending"}`})
	c, _ := newTestClient(t, h)

	now := time.Now()
	c.now = func() time.Time { return now }
	c.wait = func(context.Context, time.Duration) error {
		now = now.Add(time.Minute)
		return nil
	}

	if _, err := c.Login(context.Background(), nil); !errors.Is(err, ErrLoginExpired) {
		t.Errorf("Ожидалась ErrLoginExpired, получено %v", err)
	}
}

func TestLoginWithoutClientID(t *testing.T) {
	c := New("http://127.0.0.1:0")
	if _, err := c.Login(context.Background(), nil); !errors.Is(err, ErrNoClientID) {
		t.Errorf("Ожидалась ErrNoClientID, получено %v", err)
	}
}
