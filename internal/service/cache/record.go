package cache

import (
	"fmt"
	"time"

	"github.com/hazadus/go-tuner/internal/catalog"
)

// entryWrapper - элемент каталога с меткой вида для JSON
type entryWrapper struct {
	Type   string          `json:"type"`
	Track  *catalog.Track  `json:"track,omitempty"`
	Album  *catalog.Album  `json:"album,omitempty"`
	Artist *catalog.Artist `json:"artist,omitempty"`
}

type record struct {
	Stored  time.Time      `json:"stored"`
	Entries []entryWrapper `json:"entries"`
}

func newRecord(now time.Time, entries []catalog.Entry) record {
	rec := record{Stored: now, Entries: make([]entryWrapper, 0, len(entries))}
	for _, e := range entries {
		w := entryWrapper{Type: e.Kind().String()}
		switch v := e.(type) {
		case catalog.Track:
			w.Track = &v
		case catalog.Album:
			w.Album = &v
		case catalog.Artist:
			w.Artist = &v
		}
		rec.Entries = append(rec.Entries, w)
	}
	return rec
}

func (r record) decode() ([]catalog.Entry, error) {
	out := make([]catalog.Entry, 0, len(r.Entries))
	for i, w := range r.Entries {
		switch {
		case w.Type == catalog.KindTrack.String() && w.Track != nil:
			out = append(out, *w.Track)
		case w.Type == catalog.KindAlbum.String() && w.Album != nil:
			out = append(out, *w.Album)
		case w.Type == catalog.KindArtist.String() && w.Artist != nil:
			out = append(out, *w.Artist)
		default:
			return nil, fmt.Errorf("элемент %d: неизвестный вид %q", i, w.Type)
		}
	}
	return out, nil
}
