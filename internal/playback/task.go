package playback

import (
	"context"

	"github.com/hazadus/go-tuner/internal/bridge"
	"github.com/hazadus/go-tuner/internal/catalog"
	"github.com/hazadus/go-tuner/internal/utils"
)

// Task - сетевая часть команды. Run можно вызывать в любой горутине,
// но только один раз.
type Task struct {
	// Label - описание для индикатора загрузки
	Label string

	seq uint64
	ctx context.Context
	run func(context.Context) Result
}

// Run выполняет ввод-вывод задачи
func (t *Task) Run() Result {
	r := t.run(t.ctx)
	r.seq = t.seq
	return r
}

// Result - итог задачи. Заполнено одно из: Frame, Source или Err.
type Result struct {
	Frame  *catalog.Frame
	Track  *catalog.Track
	Source bridge.Source
	Err    error

	seq uint64
}

// Status - состояние воспроизведения для отображения
type Status struct {
	Track    catalog.Track
	Playing  bool
	Finished bool
	Played   int64
}

// Status объединяет текущий трек и состояние моста
func (c *Controller) Status() Status {
	snap := c.sink.Snapshot()
	st := Status{
		Finished: snap.Finished,
		Played:   snap.Played,
	}
	if c.playing != nil && snap.Active {
		st.Track = *c.playing
		st.Playing = !snap.Finished
	}
	return st
}

// String возвращает строку вида "▶ Title - Artist (3:15)"
func (s Status) String() string {
	if s.Track.ID == "" {
		return "Тишина"
	}
	icon := "▶"
	if s.Finished {
		icon = "■"
	}
	return icon + " " + s.Track.Title + " - " + catalog.PrimaryArtist(s.Track) + " (" + utils.FormatTrackTime(s.Track.Duration) + ")"
}
