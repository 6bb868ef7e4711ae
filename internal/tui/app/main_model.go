// Package app содержит основную логику TUI приложения
package app

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gopxl/beep"

	"github.com/hazadus/go-tuner/internal/catalog"
	"github.com/hazadus/go-tuner/internal/playback"
	tuiPlayer "github.com/hazadus/go-tuner/internal/tui/player"
	"github.com/hazadus/go-tuner/internal/tui/tracklist"
)

// FocusType определяет, куда идут нажатия клавиш
type FocusType int

// Константы фокуса
const (
	// ResultsFocus - список результатов
	ResultsFocus FocusType = iota
	// SearchFocus - строка поиска
	SearchFocus
)

var (
	searchStyle = lipgloss.NewStyle().MarginLeft(2).MarginBottom(1)
	helpStyle   = lipgloss.NewStyle().PaddingLeft(4).Foreground(lipgloss.Color("#666666"))
	quitStyle   = lipgloss.NewStyle().Margin(1, 0, 2, 4)
)

const helpText = "/: поиск • ↑/↓: выбор • enter: открыть • ←/→: назад/вперед • x: забыть впереди • пробел: пауза • q: выход"

// Pauser ставит вывод на паузу
type Pauser interface {
	TogglePause() bool
	Paused() bool
}

// TaskDoneMsg - задача контроллера завершилась
type TaskDoneMsg struct {
	task   *playback.Task
	result playback.Result
}

// MainModel представляет главную модель TUI. Update выполняется в управляющем
// потоке: только здесь вызываются методы контроллера.
type MainModel struct {
	ctx        context.Context
	ctrl       *playback.Controller
	audio      Pauser
	search     textinput.Model
	results    *tracklist.Model
	nowPlaying *tuiPlayer.Model
	focus      FocusType
	pending    *playback.Task
	quitting   bool
}

// NewMainModel создает главную модель. audio может быть nil (без звука).
func NewMainModel(ctx context.Context, ctrl *playback.Controller, audio Pauser, rate beep.SampleRate) *MainModel {
	ti := textinput.New()
	ti.Placeholder = "исполнитель, альбом или трек"
	ti.Prompt = "🔍 "
	ti.CharLimit = 120

	m := &MainModel{
		ctx:        ctx,
		ctrl:       ctrl,
		audio:      audio,
		search:     ti,
		results:    tracklist.NewModel(),
		nowPlaying: tuiPlayer.NewModel(rate),
	}
	m.focusSearch()
	m.refresh()
	return m
}

// Init инициализирует модель
func (m *MainModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.nowPlaying.Init())
}

// Focus возвращает текущий фокус
func (m *MainModel) Focus() FocusType {
	return m.focus
}

// Update обрабатывает сообщения
func (m *MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.search.Width = msg.Width - 8
		m.nowPlaying.SetWidth(msg.Width)
		// Строка поиска, панель плеера и справка
		m.results.SetSize(msg.Width, msg.Height-9)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, m.run(playback.Quit{})
		}
		if m.focus == SearchFocus {
			return m.updateSearch(msg)
		}
		return m.updateResults(msg)

	case TaskDoneMsg:
		err := m.ctrl.Apply(msg.result)
		if msg.task == m.pending {
			m.pending = nil
			m.nowPlaying.SetLoading("")
		}
		m.nowPlaying.SetError(err)
		m.refresh()
		return m, m.syncStatus()

	case tuiPlayer.TickMsg:
		m.ctrl.Reclaim()
		return m, tea.Batch(m.syncStatus(), tuiPlayer.Tick())
	}

	var cmd tea.Cmd
	m.nowPlaying, cmd = m.nowPlaying.Update(msg)
	return m, cmd
}

func (m *MainModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		query := m.search.Value()
		if query == "" {
			return m, nil
		}
		m.focusResults()
		return m, m.run(playback.Search{Query: query})

	case "esc":
		m.focusResults()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m *MainModel) updateResults(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, m.run(playback.Quit{})
	case "/":
		m.focusSearch()
		return m, textinput.Blink
	case "up", "k":
		return m, m.run(playback.Select{Dir: catalog.Up})
	case "down", "j":
		return m, m.run(playback.Select{Dir: catalog.Down})
	case "enter":
		return m, m.run(playback.Activate{})
	case "left", "h", "backspace", "esc":
		return m, m.run(playback.Back{})
	case "right", "l":
		return m, m.run(playback.Forward{})
	case "x":
		return m, m.run(playback.Collapse{})
	case " ":
		if m.audio != nil {
			m.audio.TogglePause()
		}
		return m, m.syncStatus()
	}
	return m, nil
}

// run начинает команду; сетевая часть уходит в отдельную горутину tea.Cmd
func (m *MainModel) run(cmd playback.Command) tea.Cmd {
	task, err := m.ctrl.Begin(m.ctx, cmd)
	if errors.Is(err, playback.ErrQuit) {
		m.quitting = true
		return tea.Quit
	}

	m.nowPlaying.SetError(err)
	m.refresh()
	if task == nil {
		// Команда без ввода-вывода вытесняет задачу в полете
		if m.pending != nil && supersedes(cmd) {
			m.pending = nil
			m.nowPlaying.SetLoading("")
		}
		return nil
	}

	m.pending = task
	return tea.Batch(
		m.nowPlaying.SetLoading(task.Label),
		func() tea.Msg {
			return TaskDoneMsg{task: task, result: task.Run()}
		},
	)
}

func (m *MainModel) syncStatus() tea.Cmd {
	paused := m.audio != nil && m.audio.Paused()
	return m.nowPlaying.SetStatus(m.ctrl.Status(), paused)
}

func (m *MainModel) refresh() {
	sel, ok := m.ctrl.Selection()
	m.results.SetFrame(m.ctrl.Current(), sel, ok, m.ctrl.Depth())
}

func (m *MainModel) focusSearch() {
	m.focus = SearchFocus
	m.search.Focus()
}

func (m *MainModel) focusResults() {
	m.focus = ResultsFocus
	m.search.Blur()
}

// supersedes сообщает, отменяет ли команда без ввода-вывода задачу в полете
func supersedes(cmd playback.Command) bool {
	switch cmd.(type) {
	case playback.Back, playback.Forward:
		return true
	}
	return false
}

// View отображает интерфейс
func (m *MainModel) View() string {
	if m.quitting {
		return quitStyle.Render("До свидания!")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		searchStyle.Render(m.search.View()),
		m.results.View(),
		"",
		searchStyle.Render(m.nowPlaying.View()),
		helpStyle.Render(helpText),
	)
}
