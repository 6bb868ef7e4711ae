// Package catalog содержит модель каталога: элементы (трек, альбом, исполнитель),
// кадры результатов и навигационную историю с индексом выбора
package catalog

import "time"

// Kind определяет вид элемента каталога
type Kind int

// Виды элементов каталога
const (
	KindTrack Kind = iota
	KindAlbum
	KindArtist
)

// String возвращает короткое имя вида
func (k Kind) String() string {
	switch k {
	case KindTrack:
		return "track"
	case KindAlbum:
		return "album"
	case KindArtist:
		return "artist"
	default:
		return "unknown"
	}
}

// Entry - закрытый вариант над Track, Album и Artist.
// Реализовать его вне пакета нельзя: набор видов фиксирован.
type Entry interface {
	// Kind возвращает вид элемента
	Kind() Kind
	// Ref возвращает непрозрачный идентификатор элемента в сервисе
	Ref() string
	// DisplayName возвращает название трека или альбома либо имя исполнителя
	DisplayName() string

	entry()
}

// Track - трек каталога; только его можно воспроизвести
type Track struct {
	ID       string
	Title    string
	Artist   string
	ArtistID string
	Album    string
	AlbumID  string
	Duration time.Duration
}

// Album - альбом каталога; детализация дает его треки
type Album struct {
	ID         string
	Title      string
	Artist     string
	ArtistID   string
	Year       int
	TrackCount int
	Duration   time.Duration
}

// Artist - исполнитель; детализация дает его альбомы
type Artist struct {
	ID   string
	Name string
}

func (Track) Kind() Kind  { return KindTrack }
func (Album) Kind() Kind  { return KindAlbum }
func (Artist) Kind() Kind { return KindArtist }

func (t Track) Ref() string  { return t.ID }
func (a Album) Ref() string  { return a.ID }
func (a Artist) Ref() string { return a.ID }

func (t Track) DisplayName() string  { return t.Title }
func (a Album) DisplayName() string  { return a.Title }
func (a Artist) DisplayName() string { return a.Name }

func (Track) entry()  {}
func (Album) entry()  {}
func (Artist) entry() {}

// PrimaryArtist возвращает имя основного исполнителя элемента или "?"
func PrimaryArtist(e Entry) string {
	var name string
	switch v := e.(type) {
	case Track:
		name = v.Artist
	case Album:
		name = v.Artist
	case Artist:
		name = v.Name
	}
	if name == "" {
		return "?"
	}
	return name
}

// Frame - упорядоченный набор элементов, полученный одним поиском или одной детализацией.
// После создания не изменяется.
type Frame struct {
	Title   string
	Entries []Entry
}

// NewFrame создает кадр с собственной копией элементов
func NewFrame(title string, entries []Entry) Frame {
	cp := make([]Entry, len(entries))
	copy(cp, entries)
	return Frame{Title: title, Entries: cp}
}

// Len возвращает количество элементов кадра
func (f Frame) Len() int {
	return len(f.Entries)
}

// At возвращает элемент по индексу
func (f Frame) At(i int) (Entry, bool) {
	if i < 0 || i >= len(f.Entries) {
		return nil, false
	}
	return f.Entries[i], true
}
