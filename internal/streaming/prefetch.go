package streaming

import (
	"sync"

	"github.com/gopxl/beep"
)

// prefetchChunk - сколько кадров фоновая горутина запрашивает за один вызов
const prefetchChunk = 4096

// Prefetcher декодирует поток заранее в кольцевой буфер кадров.
//
// Фоновая горутина тянет кадры из источника, в том числе блокируясь на сети.
// Stream только копирует готовые кадры и не ждет: если буфер пуст, он
// возвращает недобор с ok == true, и мост дополняет период тишиной.
type Prefetcher struct {
	src beep.Streamer

	mu     sync.Mutex
	space  *sync.Cond
	ring   [][2]float64
	head   int
	n      int
	done   bool
	err    error
	closed bool

	exited chan struct{}
}

// NewPrefetcher запускает упреждающее чтение src в буфер на size кадров.
// Источник после этого читает только фоновая горутина.
func NewPrefetcher(src beep.Streamer, size int) *Prefetcher {
	if size < prefetchChunk {
		size = prefetchChunk
	}
	p := &Prefetcher{
		src:    src,
		ring:   make([][2]float64, size),
		exited: make(chan struct{}),
	}
	p.space = sync.NewCond(&p.mu)
	go p.fill()
	return p
}

func (p *Prefetcher) fill() {
	defer close(p.exited)

	chunk := make([][2]float64, prefetchChunk)
	for {
		p.mu.Lock()
		for !p.closed && len(p.ring)-p.n < len(chunk) {
			p.space.Wait()
		}
		if p.closed {
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()

		// Блокирующее чтение идет без блокировки: Stream в это время не ждет
		n, ok := p.src.Stream(chunk)
		if n < 0 {
			n = 0
		}

		p.mu.Lock()
		p.write(chunk[:n])
		if !ok || n == 0 {
			p.done = true
			p.err = p.src.Err()
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()
	}
}

// write дописывает кадры в хвост кольца; место уже проверено в fill
func (p *Prefetcher) write(samples [][2]float64) {
	tail := (p.head + p.n) % len(p.ring)
	for _, s := range samples {
		p.ring[tail] = s
		tail++
		if tail == len(p.ring) {
			tail = 0
		}
	}
	p.n += len(samples)
}

// Stream реализует beep.Streamer и никогда не блокируется на источнике
func (p *Prefetcher) Stream(samples [][2]float64) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.n == 0 && (p.done || p.closed) {
		return 0, false
	}

	n := min(len(samples), p.n)
	first := min(n, len(p.ring)-p.head)
	copy(samples, p.ring[p.head:p.head+first])
	copy(samples[first:n], p.ring[:n-first])
	p.head = (p.head + n) % len(p.ring)
	p.n -= n

	if n > 0 {
		p.space.Signal()
	}
	return n, true
}

// Err возвращает ошибку источника, когда буфер уже выбран до конца
func (p *Prefetcher) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.n == 0 && p.done {
		return p.err
	}
	return nil
}

// Buffered возвращает количество готовых кадров
func (p *Prefetcher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.n
}

// Stop останавливает фоновую горутину и ждет ее выхода. Если горутина
// заблокирована на чтении источника, его поток нужно закрыть до вызова Stop.
func (p *Prefetcher) Stop() {
	p.mu.Lock()
	p.closed = true
	p.space.Broadcast()
	p.mu.Unlock()
	<-p.exited
}
