// Package streaming содержит буферизованный HTTP-поток для воспроизведения треков
package streaming

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

// DefaultBufferSize - размер буфера чтения по умолчанию (256KB)
const DefaultBufferSize = 256 * 1024

// userAgent идентифицирует клиент в запросах потока
const userAgent = "go-tuner/1.0"

// Reader - буферизованный поток тела HTTP-ответа
type Reader struct {
	reader      *bufio.Reader
	resp        *http.Response
	contentType string
	size        int64
}

// Option настраивает открытие потока
type Option func(*options)

type options struct {
	client     *http.Client
	bufferSize int
	header     http.Header
}

// WithClient задает HTTP-клиент (в тестах - клиент httptest-сервера)
func WithClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// WithBufferSize задает размер буфера чтения
func WithBufferSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.bufferSize = n
		}
	}
}

// WithHeader добавляет заголовок запроса (например, Authorization)
func WithHeader(key, value string) Option {
	return func(o *options) { o.header.Set(key, value) }
}

// defaultClient - клиент без общего таймаута: трек читается минутами,
// ограничиваем только установку соединения и ожидание заголовков
var defaultClient = &http.Client{
	Transport: &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		IdleConnTimeout:       300 * time.Second,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		ExpectContinueTimeout: 1 * time.Second,
	},
}

// NewReader открывает поток по url. Отмена ctx прерывает и открытие, и чтение.
func NewReader(ctx context.Context, url string, opts ...Option) (*Reader, error) {
	o := options{
		client:     defaultClient,
		bufferSize: DefaultBufferSize,
		header:     http.Header{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}

	req.Header.Set("Accept-Encoding", "identity")
	req.Header.Set("Range", "bytes=0-")
	req.Header.Set("User-Agent", userAgent)
	for key, values := range o.header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	return &Reader{
		reader:      bufio.NewReaderSize(resp.Body, o.bufferSize),
		resp:        resp,
		contentType: resp.Header.Get("Content-Type"),
		size:        resp.ContentLength,
	}, nil
}

// Read реализует io.Reader
func (sr *Reader) Read(p []byte) (n int, err error) {
	return sr.reader.Read(p)
}

// Close закрывает соединение
func (sr *Reader) Close() error {
	return sr.resp.Body.Close()
}

// ContentType возвращает Content-Type ответа
func (sr *Reader) ContentType() string {
	return sr.contentType
}

// Size возвращает длину тела или -1, если сервер ее не сообщил
func (sr *Reader) Size() int64 {
	return sr.size
}

// StatusError - сервер ответил неуспешным статусом
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ошибка HTTP: %s", e.Status)
}

// StatusText возвращает описание состояния потока по числу проверок подряд,
// в которых воспроизведение не продвинулось
func StatusText(stalls int) string {
	switch {
	case stalls == 0:
		return "Потоковое воспроизведение"
	case stalls <= 3:
		return "Буферизация..."
	case stalls <= 5:
		return "Медленная загрузка"
	default:
		return "Возможная проблема с соединением"
	}
}
