package catalog

// Direction задает направление перемещения выбора
type Direction int

// Направления перемещения выбора
const (
	Up Direction = iota
	Down
)

// noSelection обозначает отсутствие выбора
const noSelection = -1

// History - стек кадров результатов с курсором глубины.
//
// Стек никогда не пуст: кадр 0 - корневой, изначально пустой. Добавление кадра
// отбрасывает все кадры после курсора. Возврат назад только двигает курсор;
// удалить кадры после курсора можно лишь явным вызовом Collapse.
// Каждый кадр хранит свой индекс выбора: при возврате к кадру восстанавливается
// его последний выбор, ограниченный длиной кадра.
//
// History не потокобезопасна: ею владеет управляющий поток.
type History struct {
	frames     []Frame
	selections []int
	depth      int
}

// NewHistory создает историю с пустым корневым кадром
func NewHistory() *History {
	return &History{
		frames:     []Frame{{}},
		selections: []int{noSelection},
	}
}

// Push отбрасывает кадры после курсора, добавляет новый кадр и делает его видимым.
// Выбор нового кадра ставится на 0, если кадр не пуст.
func (h *History) Push(frame Frame) {
	h.frames = h.frames[:h.depth+1]
	h.selections = h.selections[:h.depth+1]

	h.frames = append(h.frames, NewFrame(frame.Title, frame.Entries))
	h.selections = append(h.selections, noSelection)
	h.depth = len(h.frames) - 1
	h.clampSelection()
}

// Back переходит к предыдущему кадру; на корне ничего не делает.
// Возвращает true, если курсор сдвинулся.
func (h *History) Back() bool {
	if h.depth == 0 {
		return false
	}
	h.depth--
	h.clampSelection()
	return true
}

// Forward переходит к следующему кадру, если он еще не отброшен.
// Возвращает true, если курсор сдвинулся.
func (h *History) Forward() bool {
	if h.depth >= len(h.frames)-1 {
		return false
	}
	h.depth++
	h.clampSelection()
	return true
}

// Collapse удаляет все кадры после курсора
func (h *History) Collapse() {
	h.frames = h.frames[:h.depth+1]
	h.selections = h.selections[:h.depth+1]
}

// Move сдвигает выбор на одну позицию в пределах видимого кадра
func (h *History) Move(dir Direction) {
	n := h.Current().Len()
	sel := &h.selections[h.depth]
	if n == 0 {
		*sel = noSelection
		return
	}
	if *sel == noSelection {
		*sel = 0
		return
	}

	switch dir {
	case Up:
		if *sel > 0 {
			*sel--
		}
	case Down:
		if *sel < n-1 {
			*sel++
		}
	}
}

// Select ставит выбор на индекс i, ограничивая его границами кадра
func (h *History) Select(i int) {
	n := h.Current().Len()
	sel := &h.selections[h.depth]
	switch {
	case n == 0:
		*sel = noSelection
	case i < 0:
		*sel = 0
	case i >= n:
		*sel = n - 1
	default:
		*sel = i
	}
}

// Current возвращает видимый кадр
func (h *History) Current() Frame {
	return h.frames[h.depth]
}

// Selection возвращает индекс выбора; false, если кадр пуст
func (h *History) Selection() (int, bool) {
	sel := h.selections[h.depth]
	if sel == noSelection {
		return 0, false
	}
	return sel, true
}

// Selected возвращает выбранный элемент видимого кадра
func (h *History) Selected() (Entry, bool) {
	i, ok := h.Selection()
	if !ok {
		return nil, false
	}
	return h.Current().At(i)
}

// Depth возвращает индекс видимого кадра
func (h *History) Depth() int {
	return h.depth
}

// Len возвращает количество кадров в стеке, включая корневой
func (h *History) Len() int {
	return len(h.frames)
}

// Frame возвращает кадр по индексу стека
func (h *History) Frame(i int) (Frame, bool) {
	if i < 0 || i >= len(h.frames) {
		return Frame{}, false
	}
	return h.frames[i], true
}

// clampSelection приводит сохраненный выбор видимого кадра к его границам
func (h *History) clampSelection() {
	n := h.Current().Len()
	sel := &h.selections[h.depth]
	switch {
	case n == 0:
		*sel = noSelection
	case *sel == noSelection:
		*sel = 0
	case *sel > n-1:
		*sel = n - 1
	}
}
