// Package track строит каталог из личной библиотеки: треки, сгруппированные
// в альбомы и исполнителей
package track

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hazadus/go-tuner/internal/catalog"
	"github.com/hazadus/go-tuner/internal/data"
)

const (
	artistPrefix = "artist:"
	albumPrefix  = "album:"
)

// UnknownArtist - имя для треков без исполнителя
const UnknownArtist = "Unknown Artist"

// Manager управляет треками в приложении
type Manager struct {
	appData *data.AppData
}

// NewManager создает новый экземпляр Manager
func NewManager(appData *data.AppData) *Manager {
	return &Manager{
		appData: appData,
	}
}

// ListTracks возвращает список всех треков
func (m *Manager) ListTracks() []data.TrackMetadata {
	return m.appData.Tracks
}

// TrackByRef находит запись библиотеки по идентификатору трека каталога
func (m *Manager) TrackByRef(ref string) (*data.TrackMetadata, error) {
	id, err := strconv.Atoi(ref)
	if err != nil {
		return nil, fmt.Errorf("неверный идентификатор трека %q: %w", ref, data.ErrTrackNotFound)
	}
	return m.appData.TrackByID(id)
}

// Tracks возвращает все треки в порядке библиотеки
func (m *Manager) Tracks() []catalog.Track {
	out := make([]catalog.Track, 0, len(m.appData.Tracks))
	for _, t := range m.appData.Tracks {
		out = append(out, ToCatalog(t))
	}
	return out
}

// Artists возвращает исполнителей по алфавиту
func (m *Manager) Artists() []catalog.Artist {
	seen := make(map[string]catalog.Artist)
	for _, t := range m.appData.Tracks {
		name := artistName(t)
		id := ArtistID(name)
		if _, ok := seen[id]; !ok {
			seen[id] = catalog.Artist{ID: id, Name: name}
		}
	}

	out := make([]catalog.Artist, 0, len(seen))
	for _, a := range seen {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// Albums возвращает альбомы, отсортированные по исполнителю, году и названию.
// Треки без альбома в альбомы не попадают.
func (m *Manager) Albums() []catalog.Album {
	return m.albums(func(data.TrackMetadata) bool { return true })
}

// ArtistAlbums возвращает альбомы исполнителя
func (m *Manager) ArtistAlbums(artistID string) []catalog.Album {
	return m.albums(func(t data.TrackMetadata) bool {
		return ArtistID(artistName(t)) == artistID
	})
}

// AlbumTracks возвращает треки альбома в порядке библиотеки
func (m *Manager) AlbumTracks(albumID string) []catalog.Track {
	var out []catalog.Track
	for _, t := range m.appData.Tracks {
		if t.Album != "" && AlbumID(artistName(t), t.Album) == albumID {
			out = append(out, ToCatalog(t))
		}
	}
	return out
}

// HasArtist сообщает, есть ли в библиотеке исполнитель с таким идентификатором
func (m *Manager) HasArtist(artistID string) bool {
	for _, t := range m.appData.Tracks {
		if ArtistID(artistName(t)) == artistID {
			return true
		}
	}
	return false
}

func (m *Manager) albums(keep func(data.TrackMetadata) bool) []catalog.Album {
	index := make(map[string]int)
	var out []catalog.Album
	for _, t := range m.appData.Tracks {
		if t.Album == "" || !keep(t) {
			continue
		}
		artist := artistName(t)
		id := AlbumID(artist, t.Album)
		i, ok := index[id]
		if !ok {
			i = len(out)
			index[id] = i
			out = append(out, catalog.Album{
				ID:       id,
				Title:    t.Album,
				Artist:   artist,
				ArtistID: ArtistID(artist),
			})
		}
		a := &out[i]
		a.TrackCount++
		a.Duration += time.Duration(t.Length) * time.Second
		if a.Year == 0 {
			a.Year = t.Year
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		ai, aj := strings.ToLower(out[i].Artist), strings.ToLower(out[j].Artist)
		if ai != aj {
			return ai < aj
		}
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return strings.ToLower(out[i].Title) < strings.ToLower(out[j].Title)
	})
	return out
}

// ToCatalog превращает запись библиотеки в трек каталога
func ToCatalog(t data.TrackMetadata) catalog.Track {
	artist := artistName(t)
	tr := catalog.Track{
		ID:       strconv.Itoa(t.ID),
		Title:    t.Title,
		Artist:   artist,
		ArtistID: ArtistID(artist),
		Album:    t.Album,
		Duration: time.Duration(t.Length) * time.Second,
	}
	if t.Album != "" {
		tr.AlbumID = AlbumID(artist, t.Album)
	}
	return tr
}

// ArtistID возвращает стабильный идентификатор исполнителя по имени
func ArtistID(name string) string {
	return artistPrefix + normalize(name)
}

// AlbumID возвращает стабильный идентификатор альбома по исполнителю и названию
func AlbumID(artist, album string) string {
	return albumPrefix + normalize(artist) + "/" + normalize(album)
}

func artistName(t data.TrackMetadata) string {
	if strings.TrimSpace(t.Artist) == "" {
		return UnknownArtist
	}
	return t.Artist
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
