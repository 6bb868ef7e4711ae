package track

import (
	"errors"
	"testing"
	"time"

	"github.com/hazadus/go-tuner/internal/data"
)

func testLibrary() *data.AppData {
	appData := data.NewAppData()
	appData.AddTrack(data.TrackMetadata{Artist: "Boards of Canada", Title: "Roygbiv", Album: "Music Has the Right to Children", Year: 1998, Length: 151})
	appData.AddTrack(data.TrackMetadata{Artist: "Boards of Canada", Title: "Dayvan Cowboy", Album: "The Campfire Headphase", Year: 2005, Length: 300})
	appData.AddTrack(data.TrackMetadata{Artist: "boards  of canada", Title: "Aquarius", Album: "Music Has the Right to Children", Length: 349})
	appData.AddTrack(data.TrackMetadata{Artist: "Aphex Twin", Title: "Xtal", Album: "Selected Ambient Works 85-92", Year: 1992, Length: 294})
	appData.AddTrack(data.TrackMetadata{Title: "Loose Demo"})
	return appData
}

func TestListTracks(t *testing.T) {
	appData := data.NewAppData()
	manager := NewManager(appData)

	appData.AddTrack(data.TrackMetadata{Artist: "Test Artist", Title: "Test Title"})

	tracks := manager.ListTracks()
	if len(tracks) != 1 || tracks[0].ID != 1 {
		t.Errorf("Ожидался 1 трек с ID 1, получено %+v", tracks)
	}
}

func TestArtists(t *testing.T) {
	artists := NewManager(testLibrary()).Artists()

	want := []string{"Aphex Twin", "Boards of Canada", UnknownArtist}
	if len(artists) != len(want) {
		t.Fatalf("Ожидалось %d исполнителей, получено %+v", len(want), artists)
	}
	for i, name := range want {
		if artists[i].Name != name {
			t.Errorf("Исполнитель %d: ожидался %q, получено %q", i, name, artists[i].Name)
		}
	}
}

func TestAlbums(t *testing.T) {
	albums := NewManager(testLibrary()).Albums()
	if len(albums) != 3 {
		t.Fatalf("Ожидалось 3 альбома, получено %+v", albums)
	}

	if albums[0].Title != "Selected Ambient Works 85-92" {
		t.Errorf("Сортировка по исполнителю нарушена: %+v", albums[0])
	}
	first := albums[1]
	if first.Title != "Music Has the Right to Children" || first.Year != 1998 {
		t.Errorf("Сортировка по году нарушена: %+v", first)
	}
	if first.TrackCount != 2 || first.Duration != 500*time.Second {
		t.Errorf("Регистр имени исполнителя не должен разделять альбом: %+v", first)
	}
}

func TestArtistAlbumsAndTracks(t *testing.T) {
	manager := NewManager(testLibrary())

	boc := ArtistID("Boards of Canada")
	if !manager.HasArtist(boc) || manager.HasArtist(ArtistID("Nobody")) {
		t.Error("HasArtist работает неверно")
	}

	albums := manager.ArtistAlbums(boc)
	if len(albums) != 2 {
		t.Fatalf("Ожидалось 2 альбома, получено %+v", albums)
	}

	tracks := manager.AlbumTracks(albums[0].ID)
	if len(tracks) != 2 || tracks[0].Title != "Roygbiv" || tracks[1].Title != "Aquarius" {
		t.Errorf("Неожиданные треки альбома: %+v", tracks)
	}
	if tracks[0].AlbumID != albums[0].ID || tracks[0].ArtistID != boc {
		t.Errorf("Идентификаторы трека не согласованы: %+v", tracks[0])
	}
}

func TestTrackByRef(t *testing.T) {
	manager := NewManager(testLibrary())

	tr, err := manager.TrackByRef("4")
	if err != nil || tr.Title != "Xtal" {
		t.Errorf("TrackByRef(4) = %+v, %v", tr, err)
	}
	for _, ref := range []string{"99", "abc"} {
		if _, err := manager.TrackByRef(ref); !errors.Is(err, data.ErrTrackNotFound) {
			t.Errorf("TrackByRef(%q): ожидалась ErrTrackNotFound, получено %v", ref, err)
		}
	}
}

func TestToCatalogWithoutAlbum(t *testing.T) {
	tr := ToCatalog(data.TrackMetadata{ID: 7, Title: "Demo", Length: 61})
	if tr.ID != "7" || tr.Artist != UnknownArtist || tr.AlbumID != "" || tr.Duration != 61*time.Second {
		t.Errorf("Неожиданный трек: %+v", tr)
	}
}
