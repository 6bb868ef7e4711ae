// Package player содержит панель воспроизведения для TUI: текущий трек,
// прогресс, состояние потока и индикатор загрузки
package player

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gopxl/beep"

	"github.com/hazadus/go-tuner/internal/catalog"
	"github.com/hazadus/go-tuner/internal/playback"
	"github.com/hazadus/go-tuner/internal/streaming"
	"github.com/hazadus/go-tuner/internal/utils"
)

// TickInterval - период опроса состояния воспроизведения
const TickInterval = 250 * time.Millisecond

var (
	trackInfoStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#0000ff"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("170"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff0000")).
			Bold(true)
)

// TickMsg - время обновить состояние воспроизведения
type TickMsg time.Time

// Tick планирует следующий TickMsg
func Tick() tea.Cmd {
	return tea.Tick(TickInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Model - панель воспроизведения
type Model struct {
	rate        beep.SampleRate
	progressBar progress.Model
	spinner     spinner.Model
	status      playback.Status
	paused      bool
	stalls      int
	lastPlayed  int64
	loading     string
	err         error
}

// NewModel создает панель для вывода с частотой rate
func NewModel(rate beep.SampleRate) *Model {
	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 40

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = loadingStyle

	return &Model{
		rate:        rate,
		progressBar: prog,
		spinner:     sp,
	}
}

// Init запускает опрос состояния
func (m *Model) Init() tea.Cmd {
	return Tick()
}

// SetWidth подгоняет ширину прогресс-бара под окно
func (m *Model) SetWidth(width int) {
	m.progressBar.Width = min(60, max(10, width-20))
}

// SetLoading показывает индикатор загрузки с подписью; пустая подпись скрывает его
func (m *Model) SetLoading(label string) tea.Cmd {
	wasLoading := m.loading != ""
	m.loading = label
	if label != "" && !wasLoading {
		return m.spinner.Tick
	}
	return nil
}

// SetError показывает ошибку последней команды; nil скрывает ее
func (m *Model) SetError(err error) {
	m.err = err
}

// SetStatus обновляет состояние. Если трек играет, но кадры не идут,
// растет счетчик задержек потока.
func (m *Model) SetStatus(st playback.Status, paused bool) tea.Cmd {
	if st.Track.ID != m.status.Track.ID {
		m.stalls = 0
		m.lastPlayed = 0
	}

	switch {
	case !st.Playing || paused:
		m.stalls = 0
	case st.Played == m.lastPlayed:
		m.stalls++
	default:
		m.stalls = 0
	}
	m.lastPlayed = st.Played
	m.status = st
	m.paused = paused

	return m.progressBar.SetPercent(m.percent())
}

// Stalls возвращает число опросов подряд без продвижения воспроизведения
func (m *Model) Stalls() int {
	return m.stalls
}

// Elapsed возвращает прослушанное время текущего трека
func (m *Model) Elapsed() time.Duration {
	if m.rate <= 0 {
		return 0
	}
	return m.rate.D(int(m.status.Played))
}

func (m *Model) percent() float64 {
	total := m.status.Track.Duration
	if total <= 0 {
		return 0
	}
	p := float64(m.Elapsed()) / float64(total)
	return min(1, p)
}

// Update обрабатывает анимацию спиннера и прогресс-бара
func (m *Model) Update(msg tea.Msg) (*Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.loading == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		progressModel, cmd := m.progressBar.Update(msg)
		m.progressBar = progressModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

// View отображает панель
func (m *Model) View() string {
	var lines []string

	if m.status.Track.ID != "" {
		t := m.status.Track
		info := fmt.Sprintf("%s %s - %s", m.icon(), t.Title, catalog.PrimaryArtist(t))
		if t.Album != "" {
			info += " · " + t.Album
		}
		lines = append(lines,
			trackInfoStyle.Render(info),
			fmt.Sprintf("%s %s / %s",
				m.progressBar.View(),
				utils.FormatTrackTime(m.Elapsed()),
				utils.FormatTrackTime(t.Duration)),
			statusStyle.Render(m.statusText()),
		)
	} else {
		lines = append(lines, statusStyle.Render("⏹ Ничего не играет"))
	}

	if m.loading != "" {
		lines = append(lines, loadingStyle.Render(m.spinner.View()+" "+m.loading))
	}
	if m.err != nil {
		lines = append(lines, errorStyle.Render("❌ "+m.err.Error()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) icon() string {
	switch {
	case m.status.Finished:
		return "⏹"
	case m.paused:
		return "⏸"
	default:
		return "▶"
	}
}

func (m *Model) statusText() string {
	switch {
	case m.status.Finished:
		return "Трек закончился"
	case m.paused:
		return "Пауза"
	default:
		return streaming.StatusText(m.stalls)
	}
}
