// Package decoder превращает поток байтов трека в источник сэмплов для моста
package decoder

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/flac"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/vorbis"
	"github.com/gopxl/beep/wav"

	"github.com/hazadus/go-tuner/internal/bridge"
	"github.com/hazadus/go-tuner/internal/service"
	"github.com/hazadus/go-tuner/internal/streaming"
)

// Codec - формат аудиоданных
type Codec string

// Поддерживаемые форматы
const (
	MP3    Codec = "mp3"
	FLAC   Codec = "flac"
	Vorbis Codec = "vorbis"
	WAV    Codec = "wav"
)

// DefaultResampleQuality - качество передискретизации beep.Resample
const DefaultResampleQuality = 4

// sniffSize - сколько байтов заглядываем вперед для определения формата
const sniffSize = 12

// ErrUnsupportedFormat - формат потока не распознан
var ErrUnsupportedFormat = errors.New("неподдерживаемый формат")

// DecodeError - поток не удалось декодировать
type DecodeError struct {
	Codec Codec
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Codec == "" {
		return fmt.Sprintf("ошибка декодирования: %v", e.Err)
	}
	return fmt.Sprintf("ошибка декодирования %s: %v", e.Codec, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decoder открывает потоки и приводит их к частоте дискретизации вывода
type Decoder struct {
	rate     beep.SampleRate
	quality  int
	prefetch int
}

// Option настраивает Decoder
type Option func(*Decoder)

// WithPrefetch включает упреждающее декодирование в буфер на frames кадров.
// Тогда аудиопоток не ждет сеть: задержка потока становится недобором.
func WithPrefetch(frames int) Option {
	return func(d *Decoder) {
		if frames > 0 {
			d.prefetch = frames
		}
	}
}

// New создает декодер для вывода с частотой rate. Нулевая частота отключает
// передискретизацию.
func New(rate beep.SampleRate, quality int, opts ...Option) *Decoder {
	if quality <= 0 {
		quality = DefaultResampleQuality
	}
	d := &Decoder{rate: rate, quality: quality}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Open декодирует поток. При ошибке поток закрывается.
func (d *Decoder) Open(stream *service.Stream) (bridge.Source, error) {
	return d.OpenSource(stream)
}

// OpenSource работает как Open, но возвращает конкретный тип источника
func (d *Decoder) OpenSource(stream *service.Stream) (*Source, error) {
	if stream == nil || stream.ReadCloser == nil {
		return nil, &DecodeError{Err: errors.New("пустой поток")}
	}

	body := &onceCloser{c: stream.ReadCloser}
	br := bufio.NewReaderSize(stream, 64*1024)
	head, _ := br.Peek(sniffSize)

	codec, ok := Sniff(head)
	if !ok {
		codec, ok = FromMimeType(stream.MimeType)
	}
	if !ok {
		body.Close()
		return nil, &DecodeError{Err: fmt.Errorf("%w: %q", ErrUnsupportedFormat, stream.MimeType)}
	}

	rc := readCloser{Reader: br, Closer: body}

	var (
		decoded beep.StreamSeekCloser
		format  beep.Format
		err     error
	)
	switch codec {
	case MP3:
		decoded, format, err = mp3.Decode(rc)
	case FLAC:
		decoded, format, err = flac.Decode(rc)
	case Vorbis:
		decoded, format, err = vorbis.Decode(rc)
	case WAV:
		decoded, format, err = wav.Decode(rc)
	}
	if err != nil {
		body.Close()
		return nil, &DecodeError{Codec: codec, Err: err}
	}

	var out beep.Streamer = decoded
	if d.rate > 0 && format.SampleRate != d.rate {
		out = beep.Resample(d.quality, format.SampleRate, d.rate, decoded)
	}

	src := &Source{
		streamer: out,
		decoded:  decoded,
		format:   format,
		codec:    codec,
		length:   decoded.Len(),
		body:     body,
	}
	if d.prefetch > 0 {
		src.prefetch = streaming.NewPrefetcher(out, d.prefetch)
		src.streamer = src.prefetch
	}
	return src, nil
}

// Source - декодированный трек, готовый к установке в мост
type Source struct {
	streamer beep.Streamer
	decoded  beep.StreamSeekCloser
	format   beep.Format
	codec    Codec
	length   int
	body     io.Closer
	prefetch *streaming.Prefetcher

	closeOnce sync.Once
	closeErr  error
}

// Stream реализует beep.Streamer. С упреждением не блокируется на потоке байтов.
func (s *Source) Stream(samples [][2]float64) (n int, ok bool) {
	return s.streamer.Stream(samples)
}

// Err возвращает ошибку декодера
func (s *Source) Err() error {
	return s.streamer.Err()
}

// Close закрывает декодер и поток байтов
func (s *Source) Close() error {
	s.closeOnce.Do(func() {
		bodyErr := s.body.Close()
		// Закрытый поток будит горутину упреждения, если она ждет сеть
		if s.prefetch != nil {
			s.prefetch.Stop()
		}
		s.closeErr = errors.Join(s.decoded.Close(), bodyErr)
	})
	return s.closeErr
}

// Codec возвращает формат трека
func (s *Source) Codec() Codec {
	return s.codec
}

// Format возвращает исходный формат трека до передискретизации
func (s *Source) Format() beep.Format {
	return s.format
}

// Duration возвращает длительность трека или 0, если поток ее не сообщает
func (s *Source) Duration() time.Duration {
	if s.length <= 0 {
		return 0
	}
	return s.format.SampleRate.D(s.length)
}

// Sniff определяет формат по первым байтам потока
func Sniff(head []byte) (Codec, bool) {
	switch {
	case bytes.HasPrefix(head, []byte("ID3")):
		return MP3, true
	case bytes.HasPrefix(head, []byte("fLaC")):
		return FLAC, true
	case bytes.HasPrefix(head, []byte("OggS")):
		return Vorbis, true
	case len(head) >= 12 && bytes.HasPrefix(head, []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WAVE")):
		return WAV, true
	case len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0:
		return MP3, true
	}
	return "", false
}

// FromMimeType определяет формат по Content-Type
func FromMimeType(contentType string) (Codec, bool) {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(contentType))
	}
	switch mt {
	case "audio/mpeg", "audio/mp3", "audio/mpeg3":
		return MP3, true
	case "audio/flac", "audio/x-flac":
		return FLAC, true
	case "audio/ogg", "audio/vorbis", "application/ogg":
		return Vorbis, true
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return WAV, true
	}
	return "", false
}

type readCloser struct {
	io.Reader
	io.Closer
}

// onceCloser закрывает тело потока один раз: его закрывают и декодер, и Source
type onceCloser struct {
	c    io.Closer
	once sync.Once
	err  error
}

func (o *onceCloser) Close() error {
	o.once.Do(func() { o.err = o.c.Close() })
	return o.err
}
