package streaming

import (
	"errors"
	"testing"
	"time"
)

// gatedStreamer отдает left кадров, но первый вызов ждет закрытия release
type gatedStreamer struct {
	release chan struct{}
	left    int
	err     error
}

func (g *gatedStreamer) Stream(samples [][2]float64) (int, bool) {
	<-g.release
	n := min(len(samples), g.left)
	for i := range samples[:n] {
		samples[i] = [2]float64{0.5, 0.5}
	}
	g.left -= n
	if n == 0 {
		return 0, false
	}
	return n, true
}

func (g *gatedStreamer) Err() error { return g.err }

// drain читает до конца потока и возвращает количество кадров
func drain(t *testing.T, p *Prefetcher) int {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	buf := make([][2]float64, 512)
	total := 0
	for time.Now().Before(deadline) {
		n, ok := p.Stream(buf)
		total += n
		if !ok {
			return total
		}
		if n < len(buf) {
			time.Sleep(time.Millisecond)
		}
	}
	t.Fatalf("Поток не завершился, прочитано %d кадров", total)
	return total
}

func TestPrefetcherStallIsUnderrun(t *testing.T) {
	src := &gatedStreamer{release: make(chan struct{}), left: 10000}
	p := NewPrefetcher(src, 8192)
	defer p.Stop()

	result := make(chan int, 1)
	go func() {
		n, ok := p.Stream(make([][2]float64, 512))
		if !ok {
			n = -1
		}
		result <- n
	}()

	select {
	case n := <-result:
		if n != 0 {
			t.Fatalf("Ожидался недобор 0 кадров с ok=true, получено %d", n)
		}
	case <-time.After(time.Second):
		t.Fatal("Stream не должен ждать источник")
	}
	if err := p.Err(); err != nil {
		t.Errorf("Недобор не ошибка: %v", err)
	}

	close(src.release)
	if total := drain(t, p); total != 10000 {
		t.Errorf("Ожидалось 10000 кадров, получено %d", total)
	}
}

func TestPrefetcherKeepsOrder(t *testing.T) {
	var next float64
	src := &countingStreamer{next: &next, left: 9000}
	p := NewPrefetcher(src, 4096)
	defer p.Stop()

	deadline := time.Now().Add(2 * time.Second)
	buf := make([][2]float64, 700)
	want := 0.0
	for time.Now().Before(deadline) {
		n, ok := p.Stream(buf)
		for _, s := range buf[:n] {
			if s[0] != want {
				t.Fatalf("Нарушен порядок кадров: %v вместо %v", s[0], want)
			}
			want++
		}
		if !ok {
			break
		}
	}
	if want != 9000 {
		t.Errorf("Ожидалось 9000 кадров, получено %v", want)
	}
}

// countingStreamer нумерует кадры по порядку
type countingStreamer struct {
	next *float64
	left int
}

func (c *countingStreamer) Stream(samples [][2]float64) (int, bool) {
	n := min(len(samples), c.left)
	for i := range samples[:n] {
		samples[i] = [2]float64{*c.next, *c.next}
		*c.next++
	}
	c.left -= n
	return n, n > 0
}

func (c *countingStreamer) Err() error { return nil }

func TestPrefetcherReportsErrorAfterDrain(t *testing.T) {
	decodeErr := errors.New("битый кадр")
	src := &gatedStreamer{release: make(chan struct{}), left: 300, err: decodeErr}
	close(src.release)

	p := NewPrefetcher(src, 0)
	defer p.Stop()

	if total := drain(t, p); total != 300 {
		t.Errorf("Ожидалось 300 кадров, получено %d", total)
	}
	if err := p.Err(); !errors.Is(err, decodeErr) {
		t.Errorf("Ожидалась ошибка источника, получено %v", err)
	}
}

func TestPrefetcherStopWaitsForSource(t *testing.T) {
	src := &gatedStreamer{release: make(chan struct{}), left: 100}
	p := NewPrefetcher(src, 0)

	stopped := make(chan struct{})
	go func() {
		p.Stop()
		close(stopped)
	}()

	// Закрытие потока байтов будит чтение, застрявшее в источнике
	close(src.release)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop должен завершиться после закрытия источника")
	}
}
