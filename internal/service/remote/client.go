// Package remote реализует service.Client поверх REST API стримингового сервиса
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hazadus/go-tuner/internal/catalog"
	"github.com/hazadus/go-tuner/internal/credentials"
	"github.com/hazadus/go-tuner/internal/service"
	"github.com/hazadus/go-tuner/internal/streaming"
)

// Качество звука потока
const (
	QualityLow      = "LOW"
	QualityHigh     = "HIGH"
	QualityLossless = "LOSSLESS"
	QualityHiRes    = "HI_RES"
)

const (
	defaultTimeout  = 15 * time.Second
	defaultPageSize = 50
	userAgent       = "go-tuner/1.0"
)

// Option настраивает Client
type Option func(*Client)

// WithHTTPClient задает HTTP-клиент для запросов API
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger задает логгер
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithToken задает токен доступа
func WithToken(tok *credentials.Token) Option {
	return func(c *Client) { c.token = tok }
}

// WithStore включает сохранение обновленного токена
func WithStore(s *credentials.Store) Option {
	return func(c *Client) { c.store = s }
}

// WithQuality задает качество потока
func WithQuality(q string) Option {
	return func(c *Client) {
		if q != "" {
			c.quality = q
		}
	}
}

// WithClientID задает идентификатор OAuth-клиента
func WithClientID(id string) Option {
	return func(c *Client) { c.clientID = id }
}

// WithPageSize задает размер страницы для загрузки дочерних элементов
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// Client - клиент API сервиса
type Client struct {
	baseURL  string
	clientID string
	quality  string
	pageSize int
	http     *http.Client
	store    *credentials.Store
	log      zerolog.Logger

	mu    sync.Mutex
	token *credentials.Token

	now  func() time.Time
	wait func(ctx context.Context, d time.Duration) error
}

var _ service.Client = (*Client)(nil)

// New создает клиент для API по адресу baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		quality:  QualityHigh,
		pageSize: defaultPageSize,
		http:     &http.Client{Timeout: defaultTimeout},
		log:      zerolog.Nop(),
		now:      time.Now,
		wait:     sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token возвращает текущий токен
func (c *Client) Token() *credentials.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Search ищет исполнителей, альбомы и треки. Результат упорядочен именно так.
func (c *Client) Search(ctx context.Context, query string, kinds service.Kinds, limit, offset int) ([]catalog.Entry, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("types", searchTypes(kinds))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}

	var resp searchResponse
	if err := c.get(ctx, "/v1/search", q, &resp); err != nil {
		return nil, service.AsFetchError("search", err)
	}

	var out []catalog.Entry
	if kinds.Has(catalog.KindArtist) {
		for _, a := range resp.Artists.Items {
			out = append(out, a.toCatalog())
		}
	}
	if kinds.Has(catalog.KindAlbum) {
		for _, a := range resp.Albums.Items {
			out = append(out, a.toCatalog())
		}
	}
	if kinds.Has(catalog.KindTrack) {
		for _, t := range resp.Tracks.Items {
			out = append(out, t.toCatalog())
		}
	}
	return out, nil
}

// FetchChildren загружает треки альбома или альбомы исполнителя
func (c *Client) FetchChildren(ctx context.Context, entry catalog.Entry) ([]catalog.Entry, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(c.pageSize))

	var out []catalog.Entry
	switch e := entry.(type) {
	case catalog.Album:
		var resp page[trackJSON]
		if err := c.get(ctx, "/v1/albums/"+url.PathEscape(e.ID)+"/tracks", q, &resp); err != nil {
			return nil, service.AsFetchError("album tracks", err)
		}
		for _, t := range resp.Items {
			out = append(out, t.toCatalog())
		}
	case catalog.Artist:
		var resp page[albumJSON]
		if err := c.get(ctx, "/v1/artists/"+url.PathEscape(e.ID)+"/albums", q, &resp); err != nil {
			return nil, service.AsFetchError("artist albums", err)
		}
		for _, a := range resp.Items {
			out = append(out, a.toCatalog())
		}
	case catalog.Track:
		return nil, &service.FetchError{Op: "children", Err: service.ErrNoChildren}
	}
	return out, nil
}

// ResolveStream получает ссылку на поток трека и открывает его
func (c *Client) ResolveStream(ctx context.Context, t catalog.Track) (*service.Stream, error) {
	q := url.Values{}
	q.Set("quality", c.quality)

	var info streamInfo
	if err := c.get(ctx, "/v1/tracks/"+url.PathEscape(t.ID)+"/stream", q, &info); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusForbidden {
			err = fmt.Errorf("%w: %v", service.ErrUnavailable, err)
		}
		return nil, service.AsStreamError(t.ID, err)
	}
	if info.URL == "" {
		return nil, service.AsStreamError(t.ID, service.ErrUnavailable)
	}

	r, err := streaming.NewReader(ctx, info.URL, streaming.WithClient(c.streamClient()))
	if err != nil {
		return nil, service.AsStreamError(t.ID, err)
	}

	mime := info.MimeType
	if mime == "" {
		mime = r.ContentType()
	}
	c.log.Debug().Str("track", t.ID).Str("quality", c.quality).Str("mime", mime).Msg("Поток трека открыт")
	return &service.Stream{ReadCloser: r, MimeType: mime, Size: r.Size()}, nil
}

// streamClient возвращает клиент без общего таймаута: тело трека читается минутами
func (c *Client) streamClient() *http.Client {
	hc := *c.http
	hc.Timeout = 0
	return &hc
}

// get выполняет авторизованный GET и разбирает JSON-ответ в out.
// На 401 токен один раз обновляется и запрос повторяется.
func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	tok, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	if cc := c.countryCode(); cc != "" {
		q.Set("countryCode", cc)
	}

	err = c.do(ctx, path, q, tok, out)
	if !errors.Is(err, service.ErrUnauthorized) || !c.canRefresh() {
		return err
	}

	c.log.Info().Str("path", path).Msg("Токен отклонен, обновляем")
	if err := c.Refresh(ctx); err != nil {
		return err
	}
	tok, err = c.accessToken(ctx)
	if err != nil {
		return err
	}
	return c.do(ctx, path, q, tok, out)
}

func (c *Client) do(ctx context.Context, path string, q url.Values, tok string, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("path", path).
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("Запрос к API")

	if resp.StatusCode != http.StatusOK {
		return newAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ошибка разбора ответа %s: %w", path, err)
	}
	return nil
}

// accessToken возвращает действующий access token, при необходимости обновляя его
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	tok := c.token
	c.mu.Unlock()

	if tok == nil || tok.AccessToken == "" {
		return "", fmt.Errorf("%w: выполните tuner login", service.ErrUnauthorized)
	}
	if tok.Valid(c.now()) {
		return tok.AccessToken, nil
	}
	if tok.RefreshToken == "" {
		return "", fmt.Errorf("%w: срок действия токена истек", service.ErrUnauthorized)
	}
	if err := c.Refresh(ctx); err != nil {
		return "", err
	}
	return c.Token().AccessToken, nil
}

func (c *Client) canRefresh() bool {
	tok := c.Token()
	return tok != nil && tok.RefreshToken != ""
}

func (c *Client) countryCode() string {
	if tok := c.Token(); tok != nil {
		return tok.CountryCode
	}
	return ""
}

// APIError - неуспешный ответ API
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("ошибка API: HTTP %d", e.Code)
	}
	return fmt.Sprintf("ошибка API: HTTP %d: %s", e.Code, e.Message)
}

// Unwrap сопоставляет статус с сигнальными ошибками сервиса
func (e *APIError) Unwrap() error {
	switch e.Code {
	case http.StatusUnauthorized:
		return service.ErrUnauthorized
	case http.StatusNotFound:
		return service.ErrNotFound
	default:
		return nil
	}
}

func newAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{Code: resp.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var payload struct {
		UserMessage string `json:"userMessage"`
		Message     string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		apiErr.Message = payload.UserMessage
		if apiErr.Message == "" {
			apiErr.Message = payload.Message
		}
	}
	return apiErr
}

func searchTypes(kinds service.Kinds) string {
	var types []string
	if kinds&service.Artists != 0 {
		types = append(types, "ARTISTS")
	}
	if kinds&service.Albums != 0 {
		types = append(types, "ALBUMS")
	}
	if kinds&service.Tracks != 0 {
		types = append(types, "TRACKS")
	}
	return strings.Join(types, ",")
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
