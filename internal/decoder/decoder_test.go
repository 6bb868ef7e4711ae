package decoder

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"

	"github.com/hazadus/go-tuner/internal/service"
)

// trackingCloser отмечает, что поток закрыт
type trackingCloser struct {
	io.Reader
	closed bool
}

func (c *trackingCloser) Close() error {
	c.closed = true
	return nil
}

// writeWAV пишет WAV из frames кадров со значением 0.25 и возвращает его байты
func writeWAV(t *testing.T, rate beep.SampleRate, frames int) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Ошибка создания файла: %v", err)
	}

	tone := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for i := range samples {
			samples[i] = [2]float64{0.25, 0.25}
		}
		return len(samples), true
	})
	format := beep.Format{SampleRate: rate, NumChannels: 2, Precision: 2}
	if err := wav.Encode(f, beep.Take(frames, tone), format); err != nil {
		t.Fatalf("Ошибка записи WAV: %v", err)
	}
	f.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Ошибка чтения WAV: %v", err)
	}
	return data
}

func TestOpenWAV(t *testing.T) {
	data := writeWAV(t, 44100, 4410)
	body := &trackingCloser{Reader: bytes.NewReader(data)}

	d := New(44100, 0)
	src, err := d.OpenSource(&service.Stream{ReadCloser: body})
	if err != nil {
		t.Fatalf("OpenSource: %v", err)
	}

	if src.Codec() != WAV {
		t.Errorf("Ожидался WAV, получено %s", src.Codec())
	}
	if src.Duration() != 100*time.Millisecond {
		t.Errorf("Ожидалась длительность 100ms, получено %v", src.Duration())
	}

	buf := make([][2]float64, 512)
	n, ok := src.Stream(buf)
	if !ok || n != len(buf) {
		t.Fatalf("Ожидался полный буфер: n=%d ok=%v", n, ok)
	}
	if diff := buf[0][0] - 0.25; diff > 0.001 || diff < -0.001 {
		t.Errorf("Ожидалось значение 0.25, получено %v", buf[0][0])
	}

	if err := src.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if !body.closed {
		t.Error("Поток байтов должен быть закрыт")
	}
	if err := src.Close(); err != nil {
		t.Errorf("Повторный Close: %v", err)
	}
}

func TestOpenResamples(t *testing.T) {
	data := writeWAV(t, 22050, 2205)

	d := New(44100, 2)
	src, err := d.OpenSource(&service.Stream{ReadCloser: io.NopCloser(bytes.NewReader(data)), MimeType: "audio/wav"})
	if err != nil {
		t.Fatalf("OpenSource: %v", err)
	}
	defer src.Close()

	if src.Format().SampleRate != 22050 {
		t.Errorf("Исходная частота должна сохраняться, получено %d", src.Format().SampleRate)
	}

	total := 0
	buf := make([][2]float64, 1024)
	for {
		n, ok := src.Stream(buf)
		total += n
		if !ok {
			break
		}
	}
	// 0.1 секунды на 44100 Гц, с погрешностью передискретизации
	if total < 4300 || total > 4500 {
		t.Errorf("Ожидалось около 4410 кадров, получено %d", total)
	}
}

func TestOpenPrefetch(t *testing.T) {
	data := writeWAV(t, 44100, 4410)
	body := &trackingCloser{Reader: bytes.NewReader(data)}

	d := New(44100, 0, WithPrefetch(8192))
	src, err := d.OpenSource(&service.Stream{ReadCloser: body})
	if err != nil {
		t.Fatalf("OpenSource: %v", err)
	}
	if src.Duration() != 100*time.Millisecond {
		t.Errorf("Ожидалась длительность 100ms, получено %v", src.Duration())
	}

	// Недобор возможен, пока горутина упреждения не успела декодировать
	deadline := time.Now().Add(2 * time.Second)
	buf := make([][2]float64, 512)
	total := 0
	for time.Now().Before(deadline) {
		n, ok := src.Stream(buf)
		total += n
		if !ok {
			break
		}
	}
	if total != 4410 {
		t.Errorf("Ожидалось 4410 кадров, получено %d", total)
	}
	if err := src.Err(); err != nil {
		t.Errorf("Err: %v", err)
	}

	if err := src.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if !body.closed {
		t.Error("Поток байтов должен быть закрыт")
	}
}

func TestOpenUnsupported(t *testing.T) {
	body := &trackingCloser{Reader: bytes.NewReader([]byte("definitely not audio"))}

	_, err := New(44100, 0).Open(&service.Stream{ReadCloser: body, MimeType: "text/plain"})
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("Ожидалась DecodeError, получено %v", err)
	}
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Ожидалась ErrUnsupportedFormat, получено %v", err)
	}
	if !body.closed {
		t.Error("Поток должен закрываться при ошибке")
	}
}

func TestOpenTruncated(t *testing.T) {
	data := writeWAV(t, 44100, 100)[:20]
	body := &trackingCloser{Reader: bytes.NewReader(data)}

	_, err := New(44100, 0).Open(&service.Stream{ReadCloser: body})
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("Ожидалась DecodeError, получено %v", err)
	}
	if de.Codec != WAV {
		t.Errorf("Ожидался кодек WAV, получено %q", de.Codec)
	}
	if !body.closed {
		t.Error("Поток должен закрываться при ошибке")
	}
}

func TestOpenNil(t *testing.T) {
	if _, err := New(44100, 0).Open(nil); err == nil {
		t.Error("Ожидалась ошибка для пустого потока")
	}
}

func TestSniff(t *testing.T) {
	tests := []struct {
		head []byte
		want Codec
		ok   bool
	}{
		{[]byte("ID3\x04\x00"), MP3, true},
		{[]byte{0xFF, 0xFB, 0x90, 0x00}, MP3, true},
		{[]byte("fLaC\x00\x00"), FLAC, true},
		{[]byte("OggS\x00\x02"), Vorbis, true},
		{[]byte("RIFF\x24\x00\x00\x00WAVE"), WAV, true},
		{[]byte("RIFF\x24\x00\x00\x00AVI "), "", false},
		{[]byte("<html>"), "", false},
		{nil, "", false},
	}
	for _, tt := range tests {
		got, ok := Sniff(tt.head)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Sniff(%q) = %q,%v; ожидалось %q,%v", tt.head, got, ok, tt.want, tt.ok)
		}
	}
}

func TestFromMimeType(t *testing.T) {
	tests := map[string]Codec{
		"audio/mpeg":               MP3,
		"audio/flac; charset=none": FLAC,
		"application/ogg":          Vorbis,
		"audio/x-wav":              WAV,
	}
	for mt, want := range tests {
		got, ok := FromMimeType(mt)
		if !ok || got != want {
			t.Errorf("FromMimeType(%q) = %q,%v; ожидалось %q", mt, got, ok, want)
		}
	}
	if _, ok := FromMimeType("application/octet-stream"); ok {
		t.Error("octet-stream не определяет формат")
	}
}
