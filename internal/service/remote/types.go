package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/hazadus/go-tuner/internal/catalog"
)

// ID - идентификатор API; сервис отдает его то числом, то строкой
type ID string

// UnmarshalJSON принимает и число, и строку
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("неверный идентификатор %s: %w", b, err)
	}
	*id = ID(n.String())
	return nil
}

type page[T any] struct {
	Items              []T `json:"items"`
	Limit              int `json:"limit"`
	Offset             int `json:"offset"`
	TotalNumberOfItems int `json:"totalNumberOfItems"`
}

type searchResponse struct {
	Artists page[artistJSON] `json:"artists"`
	Albums  page[albumJSON]  `json:"albums"`
	Tracks  page[trackJSON]  `json:"tracks"`
}

type artistJSON struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

type albumJSON struct {
	ID             ID          `json:"id"`
	Title          string      `json:"title"`
	Duration       int         `json:"duration"`
	NumberOfTracks int         `json:"numberOfTracks"`
	ReleaseDate    string      `json:"releaseDate"`
	Artist         *artistJSON `json:"artist"`
}

type trackJSON struct {
	ID       ID          `json:"id"`
	Title    string      `json:"title"`
	Duration int         `json:"duration"`
	Artist   *artistJSON `json:"artist"`
	Album    *struct {
		ID    ID     `json:"id"`
		Title string `json:"title"`
	} `json:"album"`
}

type streamInfo struct {
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
}

func (a artistJSON) toCatalog() catalog.Artist {
	return catalog.Artist{ID: string(a.ID), Name: a.Name}
}

func (a albumJSON) toCatalog() catalog.Album {
	out := catalog.Album{
		ID:         string(a.ID),
		Title:      a.Title,
		TrackCount: a.NumberOfTracks,
		Duration:   time.Duration(a.Duration) * time.Second,
		Year:       releaseYear(a.ReleaseDate),
	}
	if a.Artist != nil {
		out.Artist = a.Artist.Name
		out.ArtistID = string(a.Artist.ID)
	}
	return out
}

func (t trackJSON) toCatalog() catalog.Track {
	out := catalog.Track{
		ID:       string(t.ID),
		Title:    t.Title,
		Duration: time.Duration(t.Duration) * time.Second,
	}
	if t.Artist != nil {
		out.Artist = t.Artist.Name
		out.ArtistID = string(t.Artist.ID)
	}
	if t.Album != nil {
		out.Album = t.Album.Title
		out.AlbumID = string(t.Album.ID)
	}
	return out
}

// releaseYear извлекает год из даты вида "2006-01-02"
func releaseYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}
