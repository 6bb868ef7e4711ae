package playback

import "github.com/hazadus/go-tuner/internal/catalog"

// Command - команда пользователя. Закрытый набор: Search, Select, Activate,
// Back, Forward, Collapse, Quit.
type Command interface {
	command()
}

// Search заменяет результаты поиском по запросу
type Search struct {
	Query string
}

// Select сдвигает выбор вверх или вниз
type Select struct {
	Dir catalog.Direction
}

// Activate открывает выбранный альбом или исполнителя либо воспроизводит трек
type Activate struct{}

// Back возвращает к предыдущему кадру
type Back struct{}

// Forward возвращает к кадру, покинутому через Back
type Forward struct{}

// Collapse отбрасывает кадры, покинутые через Back
type Collapse struct{}

// Quit завершает сеанс
type Quit struct{}

func (Search) command()   {}
func (Select) command()   {}
func (Activate) command() {}
func (Back) command()     {}
func (Forward) command()  {}
func (Collapse) command() {}
func (Quit) command()     {}
