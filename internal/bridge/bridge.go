// Package bridge передает декодер от управляющего потока в аудиопоток без блокировок.
//
// Bridge - единственная точка рандеву между управляющим потоком (один писатель:
// Install, Reclaim, Close, Snapshot) и аудиопотоком (один читатель: Stream).
// Текущий источник публикуется через атомарный указатель. Вытесненный источник
// закрывается не сразу, а только после того, как аудиопоток гарантированно
// завершил период, в котором мог его читать.
package bridge

import (
	"errors"
	"sync/atomic"

	"github.com/gopxl/beep"
)

// Source - источник сэмплов, из которого аудиопоток вытягивает кадры.
// Ему удовлетворяет любой beep.StreamCloser.
type Source interface {
	Stream(samples [][2]float64) (n int, ok bool)
	Err() error
	Close() error
}

var _ beep.Streamer = (*Bridge)(nil)

// slot - установленный источник вместе со счетчиками, которые пишет аудиопоток
type slot struct {
	src        Source
	generation uint64
	played     atomic.Int64
	finished   atomic.Bool
}

// retired - вытесненный источник и эпоха, после которой его можно закрыть
type retired struct {
	slot  *slot
	epoch uint64
}

// Bridge - слот текущего источника для аудиопотока
type Bridge struct {
	current atomic.Pointer[slot]
	// periods увеличивается в конце каждого вызова Stream
	periods atomic.Uint64

	// Поля ниже принадлежат управляющему потоку
	retired    []retired
	generation uint64
	closed     bool
}

// New создает пустой мост: до первой установки источника звучит тишина
func New() *Bridge {
	return &Bridge{}
}

// Install публикует новый источник (nil - тишина). Аудиопоток увидит его в
// следующем или через один период. Не блокирует. Вызывать только из
// управляющего потока. Возвращает ошибки закрытия ранее вытесненных источников.
func (b *Bridge) Install(src Source) error {
	if b.closed {
		if src != nil {
			return errors.Join(ErrClosed, src.Close())
		}
		return ErrClosed
	}

	var next *slot
	if src != nil {
		b.generation++
		next = &slot{src: src, generation: b.generation}
	}

	prev := b.current.Swap(next)
	if prev != nil {
		// Эпоха читается после Swap: любой период, начатый позже, видит новый слот
		b.retired = append(b.retired, retired{slot: prev, epoch: b.periods.Load()})
	}
	_, err := b.Reclaim()
	return err
}

// Reclaim закрывает вытесненные источники, которые аудиопоток больше не читает.
// Возвращает количество закрытых источников. Вызывать только из управляющего потока.
func (b *Bridge) Reclaim() (int, error) {
	if len(b.retired) == 0 {
		return 0, nil
	}

	now := b.periods.Load()
	var errs []error
	closed := 0
	kept := b.retired[:0]
	for _, r := range b.retired {
		if now > r.epoch {
			errs = append(errs, r.slot.src.Close())
			closed++
			continue
		}
		kept = append(kept, r)
	}
	for i := len(kept); i < len(b.retired); i++ {
		b.retired[i] = retired{}
	}
	b.retired = kept
	return closed, errors.Join(errs...)
}

// Pending возвращает количество вытесненных, но еще не закрытых источников
func (b *Bridge) Pending() int {
	return len(b.retired)
}

// Close закрывает текущий и все вытесненные источники. Вызывать только после
// того, как аудиопоток остановлен владельцем аудиоподсистемы.
func (b *Bridge) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true

	var errs []error
	if cur := b.current.Swap(nil); cur != nil {
		errs = append(errs, cur.src.Close())
	}
	for _, r := range b.retired {
		errs = append(errs, r.slot.src.Close())
	}
	b.retired = nil
	return errors.Join(errs...)
}

// Stream заполняет samples из текущего источника; недостающее - тишиной.
// Вызывается только аудиопотоком, один раз за период. Не блокирует,
// не выделяет память и не берет блокировок. Всегда заполняет весь буфер.
func (b *Bridge) Stream(samples [][2]float64) (n int, ok bool) {
	s := b.current.Load()
	filled := 0
	if s != nil && !s.finished.Load() {
		filled = s.render(samples)
	}
	silence(samples[filled:])
	b.periods.Add(1)
	return len(samples), true
}

// Err всегда возвращает nil: ошибки источника трактуются как конец потока
func (b *Bridge) Err() error {
	return nil
}

// render вытягивает кадры из источника слота и возвращает количество записанных
func (s *slot) render(samples [][2]float64) int {
	n, ok := s.src.Stream(samples)
	if n < 0 {
		n = 0
	}
	if n > len(samples) {
		n = len(samples)
	}
	s.played.Add(int64(n))
	// Недобор при ok == true - это опустошение буфера, источник спрашиваем снова
	// в следующем периоде; конец потока и ошибка декодирования завершают слот
	if !ok || (n < len(samples) && s.src.Err() != nil) {
		s.finished.Store(true)
	}
	return n
}

func silence(samples [][2]float64) {
	for i := range samples {
		samples[i] = [2]float64{}
	}
}
