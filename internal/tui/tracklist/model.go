// Package tracklist содержит модель списка результатов для TUI: текущий кадр
// каталога с подсветкой выбранного элемента
package tracklist

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hazadus/go-tuner/internal/catalog"
	"github.com/hazadus/go-tuner/internal/utils"
)

// Ширина колонок строки элемента
const (
	titleWidth  = 48
	artistWidth = 30
)

var (
	titleStyle        = lipgloss.NewStyle().MarginLeft(2).Bold(true)
	itemStyle         = lipgloss.NewStyle().PaddingLeft(4)
	selectedItemStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("170"))
	emptyStyle        = lipgloss.NewStyle().PaddingLeft(4).Foreground(lipgloss.Color("#666666"))
	paginationStyle   = lipgloss.NewStyle().PaddingLeft(4).Foreground(lipgloss.Color("#888888"))
)

// Model - список элементов видимого кадра
type Model struct {
	frame     catalog.Frame
	selection int
	selected  bool
	depth     int
	offset    int
	width     int
	height    int
}

// NewModel создает пустой список
func NewModel() *Model {
	return &Model{height: 10}
}

// SetFrame показывает кадр с выбором. selected == false - кадр пуст.
func (m *Model) SetFrame(frame catalog.Frame, selection int, selected bool, depth int) {
	if frame.Title != m.frame.Title || depth != m.depth {
		m.offset = 0
	}
	m.frame = frame
	m.selection = selection
	m.selected = selected
	m.depth = depth
	m.scroll()
}

// SetSize задает размер области списка
func (m *Model) SetSize(width, height int) {
	m.width = width
	if height > 2 {
		// Строка заголовка и строка позиции
		m.height = height - 2
	}
	m.scroll()
}

// Visible возвращает индексы первого и последнего (не включая) видимых элементов
func (m *Model) Visible() (from, to int) {
	to = m.offset + m.height
	if to > m.frame.Len() {
		to = m.frame.Len()
	}
	return m.offset, to
}

// scroll держит выбранный элемент в видимой области
func (m *Model) scroll() {
	if !m.selected {
		m.offset = 0
		return
	}
	if m.selection < m.offset {
		m.offset = m.selection
	}
	if m.selection >= m.offset+m.height {
		m.offset = m.selection - m.height + 1
	}
}

// View отображает список
func (m *Model) View() string {
	var b strings.Builder

	title := m.frame.Title
	if title == "" {
		title = "Нажмите / для поиска"
	}
	b.WriteString(titleStyle.Render(strings.Repeat("‹ ", m.depth) + title))
	b.WriteString("\n")

	if m.frame.Len() == 0 {
		if m.depth > 0 {
			b.WriteString(emptyStyle.Render("Ничего не найдено"))
		}
		return b.String()
	}

	from, to := m.Visible()
	for i := from; i < to; i++ {
		e, _ := m.frame.At(i)
		line := Label(e)
		if m.selected && i == m.selection {
			b.WriteString(selectedItemStyle.Render("> " + line))
		} else {
			b.WriteString(itemStyle.Render(line))
		}
		b.WriteString("\n")
	}

	if m.frame.Len() > m.height {
		b.WriteString(paginationStyle.Render(fmt.Sprintf("%d/%d", m.selection+1, m.frame.Len())))
	}
	return b.String()
}

// Label возвращает строку элемента: значок вида, название и исполнитель
func Label(e catalog.Entry) string {
	switch v := e.(type) {
	case catalog.Track:
		return fmt.Sprintf("♪ %s | %s  %s",
			utils.PadRight(v.Title, titleWidth),
			utils.PadRight(catalog.PrimaryArtist(v), artistWidth),
			utils.FormatTrackTime(v.Duration))
	case catalog.Album:
		name := v.Title
		if v.Year > 0 {
			name = fmt.Sprintf("%s (%d)", v.Title, v.Year)
		}
		return fmt.Sprintf("◉ %s | %s", utils.PadRight(name, titleWidth), catalog.PrimaryArtist(v))
	case catalog.Artist:
		return "☺ " + utils.TruncateString(v.Name, titleWidth+artistWidth)
	default:
		return ""
	}
}
