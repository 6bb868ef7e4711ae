// Package audio подключает мост к звуковой карте через beep/speaker
package audio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"github.com/hazadus/go-tuner/internal/bridge"
)

// DefaultSampleRate - частота дискретизации вывода по умолчанию
const DefaultSampleRate beep.SampleRate = 44100

// DefaultBufferDuration - длительность буфера звуковой карты (один период колбэка)
const DefaultBufferDuration = 100 * time.Millisecond

// Host - звуковая подсистема. Вызывает Stream на своей горутине.
type Host interface {
	Init(rate beep.SampleRate, bufferSize int) error
	Play(s beep.Streamer)
	Lock()
	Unlock()
	Clear()
	Close()
}

// speakerHost - Host поверх глобального beep/speaker
type speakerHost struct{}

func (speakerHost) Init(rate beep.SampleRate, bufferSize int) error {
	return speaker.Init(rate, bufferSize)
}
func (speakerHost) Play(s beep.Streamer) { speaker.Play(s) }
func (speakerHost) Lock()                { speaker.Lock() }
func (speakerHost) Unlock()              { speaker.Unlock() }
func (speakerHost) Clear()               { speaker.Clear() }
func (speakerHost) Close()               { speaker.Close() }

// Speaker возвращает Host системной звуковой карты
func Speaker() Host {
	return speakerHost{}
}

// ErrClosed - вывод уже закрыт
var ErrClosed = errors.New("аудиовывод закрыт")

// Output владеет звуковой подсистемой и мостом, который она читает
type Output struct {
	host   Host
	bridge *bridge.Bridge
	rate   beep.SampleRate
	ctrl   *beep.Ctrl

	mu     sync.Mutex
	closed bool
}

// Open инициализирует host и запускает чтение моста
func Open(host Host, b *bridge.Bridge, rate beep.SampleRate, buffer time.Duration) (*Output, error) {
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	if buffer <= 0 {
		buffer = DefaultBufferDuration
	}

	if err := host.Init(rate, rate.N(buffer)); err != nil {
		return nil, fmt.Errorf("ошибка инициализации динамиков: %w", err)
	}

	ctrl := &beep.Ctrl{Streamer: b}
	host.Play(ctrl)

	return &Output{
		host:   host,
		bridge: b,
		rate:   rate,
		ctrl:   ctrl,
	}, nil
}

// SampleRate возвращает частоту вывода
func (o *Output) SampleRate() beep.SampleRate {
	return o.rate
}

// Bridge возвращает мост, который читает звуковая подсистема
func (o *Output) Bridge() *bridge.Bridge {
	return o.bridge
}

// TogglePause приостанавливает или возобновляет вывод и возвращает новое состояние
func (o *Output) TogglePause() bool {
	o.host.Lock()
	defer o.host.Unlock()
	o.ctrl.Paused = !o.ctrl.Paused
	return o.ctrl.Paused
}

// Paused сообщает, стоит ли вывод на паузе
func (o *Output) Paused() bool {
	o.host.Lock()
	defer o.host.Unlock()
	return o.ctrl.Paused
}

// Close останавливает звуковую подсистему и только потом закрывает мост
// вместе со всеми удержанными источниками
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrClosed
	}
	o.closed = true

	o.host.Clear()
	o.host.Close()

	if err := o.bridge.Close(); err != nil {
		return fmt.Errorf("ошибка закрытия источников: %w", err)
	}
	return nil
}
