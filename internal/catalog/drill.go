package catalog

import "fmt"

// Fetch описывает, что вызывающий должен сделать после активации элемента:
// загрузить треки альбома, альбомы исполнителя или воспроизвести трек.
// Закрытый вариант: FetchAlbumTracks, FetchArtistAlbums, PlayTrack.
type Fetch interface {
	// Entry возвращает элемент, породивший решение
	Entry() Entry

	fetch()
}

// FetchAlbumTracks - нужно загрузить треки альбома
type FetchAlbumTracks struct {
	Album Album
}

// FetchArtistAlbums - нужно загрузить альбомы исполнителя
type FetchArtistAlbums struct {
	Artist Artist
}

// PlayTrack - трек нужно воспроизвести, детализации нет
type PlayTrack struct {
	Track Track
}

func (f FetchAlbumTracks) Entry() Entry  { return f.Album }
func (f FetchArtistAlbums) Entry() Entry { return f.Artist }
func (f PlayTrack) Entry() Entry         { return f.Track }

func (FetchAlbumTracks) fetch()  {}
func (FetchArtistAlbums) fetch() {}
func (PlayTrack) fetch()         {}

// Drill решает, что делать с элементом. Чистая функция: сеть не трогает.
func Drill(e Entry) Fetch {
	switch v := e.(type) {
	case Track:
		return PlayTrack{Track: v}
	case Album:
		return FetchAlbumTracks{Album: v}
	case Artist:
		return FetchArtistAlbums{Artist: v}
	default:
		panic(fmt.Sprintf("catalog: неизвестный вид элемента %T", e))
	}
}

// DrillSelected применяет Drill к выбранному элементу видимого кадра
func (h *History) DrillSelected() (Fetch, bool) {
	e, ok := h.Selected()
	if !ok {
		return nil, false
	}
	return Drill(e), true
}

// ChildTitle возвращает заголовок кадра, который будет получен детализацией
func ChildTitle(f Fetch) string {
	switch v := f.(type) {
	case FetchAlbumTracks:
		return fmt.Sprintf("%s - %s", PrimaryArtist(v.Album), v.Album.Title)
	case FetchArtistAlbums:
		return v.Artist.Name
	case PlayTrack:
		return v.Track.Title
	default:
		return ""
	}
}
