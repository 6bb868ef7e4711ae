// Package playback связывает команды пользователя, каталог, клиент сервиса и
// мост декодера.
//
// Controller принадлежит управляющему потоку. Сетевые операции вынесены в Task:
// Begin готовит задачу, Task.Run выполняет ввод-вывод в любой горутине,
// Apply применяет результат в управляющем потоке. Каждая команда, меняющая
// кадр или запускающая воспроизведение, получает новый номер; результат с
// устаревшим номером отбрасывается.
package playback

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hazadus/go-tuner/internal/bridge"
	"github.com/hazadus/go-tuner/internal/catalog"
	"github.com/hazadus/go-tuner/internal/service"
)

// DefaultSearchLimit - сколько элементов каждого вида запрашивает поиск
const DefaultSearchLimit = 15

var (
	// ErrQuit - пользователь завершил сеанс
	ErrQuit = errors.New("выход")
	// ErrNothingSelected - нечего активировать: кадр пуст
	ErrNothingSelected = errors.New("ничего не выбрано")
)

// Opener превращает поток байтов в источник сэмплов
type Opener interface {
	Open(stream *service.Stream) (bridge.Source, error)
}

// Sink принимает источники для воспроизведения. Ему удовлетворяет *bridge.Bridge.
type Sink interface {
	Install(src bridge.Source) error
	Reclaim() (int, error)
	Snapshot() bridge.Snapshot
}

// Option настраивает Controller
type Option func(*Controller)

// WithSearchLimit задает размер страницы поиска
func WithSearchLimit(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithKinds задает виды элементов для поиска
func WithKinds(k service.Kinds) Option {
	return func(c *Controller) {
		if k != 0 {
			c.kinds = k
		}
	}
}

// WithLogger задает логгер
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// Controller выполняет команды пользователя
type Controller struct {
	client  service.Client
	opener  Opener
	sink    Sink
	history *catalog.History
	limit   int
	kinds   service.Kinds
	log     zerolog.Logger

	seq      uint64
	inflight context.CancelFunc

	playing    *catalog.Track
	playCancel context.CancelFunc
}

// New создает контроллер с пустым корневым кадром
func New(client service.Client, opener Opener, sink Sink, opts ...Option) *Controller {
	c := &Controller{
		client:  client,
		opener:  opener,
		sink:    sink,
		history: catalog.NewHistory(),
		limit:   DefaultSearchLimit,
		kinds:   service.AllKinds,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Begin выполняет синхронную часть команды. Если команде нужен ввод-вывод,
// возвращается задача; иначе nil.
func (c *Controller) Begin(ctx context.Context, cmd Command) (*Task, error) {
	switch cmd := cmd.(type) {
	case Search:
		return c.newTask(ctx, fmt.Sprintf("Поиск %q", cmd.Query), func(ctx context.Context) Result {
			entries, err := c.client.Search(ctx, cmd.Query, c.kinds, c.limit, 0)
			if err != nil {
				return Result{Err: service.AsFetchError("search", err)}
			}
			frame := catalog.NewFrame(fmt.Sprintf("Поиск: %s", cmd.Query), entries)
			return Result{Frame: &frame}
		}), nil

	case Select:
		c.history.Move(cmd.Dir)
		return nil, nil

	case Activate:
		fetch, ok := c.history.DrillSelected()
		if !ok {
			return nil, ErrNothingSelected
		}
		return c.activate(ctx, fetch), nil

	case Back:
		c.supersede()
		c.history.Back()
		return nil, nil

	case Forward:
		c.supersede()
		c.history.Forward()
		return nil, nil

	case Collapse:
		// Видимый кадр не меняется, задачи в полете остаются актуальными
		c.history.Collapse()
		return nil, nil

	case Quit:
		c.supersede()
		return nil, ErrQuit

	default:
		panic(fmt.Sprintf("playback: неизвестная команда %T", cmd))
	}
}

func (c *Controller) activate(ctx context.Context, fetch catalog.Fetch) *Task {
	title := catalog.ChildTitle(fetch)

	switch f := fetch.(type) {
	case catalog.PlayTrack:
		track := f.Track
		return c.newTask(ctx, "Загрузка: "+title, func(ctx context.Context) Result {
			stream, err := c.client.ResolveStream(ctx, track)
			if err != nil {
				return Result{Err: service.AsStreamError(track.ID, err)}
			}
			src, err := c.opener.Open(stream)
			if err != nil {
				return Result{Err: err}
			}
			return Result{Track: &track, Source: src}
		})

	case catalog.FetchAlbumTracks, catalog.FetchArtistAlbums:
		entry := fetch.Entry()
		return c.newTask(ctx, "Открываем: "+title, func(ctx context.Context) Result {
			entries, err := c.client.FetchChildren(ctx, entry)
			if err != nil {
				return Result{Err: service.AsFetchError("children", err)}
			}
			frame := catalog.NewFrame(title, entries)
			return Result{Frame: &frame}
		})

	default:
		panic(fmt.Sprintf("playback: неизвестное решение %T", fetch))
	}
}

// Apply применяет результат задачи. Устаревший результат отбрасывается, а его
// источник закрывается. При ошибке состояние каталога и воспроизведения не меняется.
func (c *Controller) Apply(r Result) error {
	if r.seq != c.seq {
		c.discard(r)
		return nil
	}

	// Задача завершена: отменять больше нечего
	inflight := c.inflight
	c.inflight = nil

	if r.Err != nil {
		if inflight != nil {
			inflight()
		}
		c.log.Warn().Err(r.Err).Uint64("seq", r.seq).Msg("Команда завершилась ошибкой")
		return r.Err
	}

	switch {
	case r.Source != nil:
		if err := c.sink.Install(r.Source); err != nil {
			// Закрытый мост источник не принял и уже закрыл его сам
			if errors.Is(err, bridge.ErrClosed) {
				if inflight != nil {
					inflight()
				}
				c.log.Warn().Err(err).Str("track", r.Track.ID).Msg("Аудиовывод закрыт")
				return err
			}
			c.log.Warn().Err(err).Msg("Ошибка освобождения предыдущего источника")
		}
		// Контекст прежнего трека отменяется только после замены источника
		if c.playCancel != nil {
			c.playCancel()
		}
		c.playCancel = inflight
		c.playing = r.Track
		c.log.Info().Str("track", r.Track.ID).Str("title", r.Track.Title).Msg("Воспроизведение")

	case r.Frame != nil:
		if inflight != nil {
			inflight()
		}
		c.history.Push(*r.Frame)
		c.log.Debug().Str("title", r.Frame.Title).Int("entries", r.Frame.Len()).Msg("Новый кадр")
	}
	return nil
}

// Dispatch выполняет команду целиком в текущей горутине
func (c *Controller) Dispatch(ctx context.Context, cmd Command) error {
	task, err := c.Begin(ctx, cmd)
	if err != nil || task == nil {
		return err
	}
	return c.Apply(task.Run())
}

// SelectAt ставит выбор на элемент i видимого кадра
func (c *Controller) SelectAt(i int) {
	c.history.Select(i)
}

// Current возвращает видимый кадр
func (c *Controller) Current() catalog.Frame {
	return c.history.Current()
}

// Selection возвращает индекс выбора; false, если кадр пуст
func (c *Controller) Selection() (int, bool) {
	return c.history.Selection()
}

// Depth возвращает глубину видимого кадра
func (c *Controller) Depth() int {
	return c.history.Depth()
}

// NowPlaying возвращает трек, установленный последним
func (c *Controller) NowPlaying() (catalog.Track, bool) {
	if c.playing == nil {
		return catalog.Track{}, false
	}
	return *c.playing, true
}

// Reclaim закрывает источники, которые аудиопоток больше не читает
func (c *Controller) Reclaim() {
	if n, err := c.sink.Reclaim(); err != nil {
		c.log.Warn().Err(err).Msg("Ошибка закрытия источника")
	} else if n > 0 {
		c.log.Debug().Int("closed", n).Msg("Источники освобождены")
	}
}

// Close отменяет задачи в полете и контекст текущего трека. Сам мост
// закрывает владелец аудиовывода.
func (c *Controller) Close() {
	c.supersede()
	if c.playCancel != nil {
		c.playCancel()
		c.playCancel = nil
	}
}

// supersede делает устаревшими все выданные задачи
func (c *Controller) supersede() {
	c.seq++
	if c.inflight != nil {
		c.inflight()
		c.inflight = nil
	}
}

func (c *Controller) newTask(ctx context.Context, label string, run func(context.Context) Result) *Task {
	c.supersede()
	tctx, cancel := context.WithCancel(ctx)
	c.inflight = cancel
	return &Task{Label: label, seq: c.seq, ctx: tctx, run: run}
}

func (c *Controller) discard(r Result) {
	c.log.Debug().Uint64("seq", r.seq).Uint64("current", c.seq).Msg("Устаревший результат отброшен")
	if r.Source != nil {
		if err := r.Source.Close(); err != nil {
			c.log.Warn().Err(err).Msg("Ошибка закрытия устаревшего источника")
		}
	}
}
