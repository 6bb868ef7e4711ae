// Package service описывает клиент стримингового сервиса: поиск, загрузку
// дочерних элементов каталога и получение воспроизводимого потока байтов
package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/hazadus/go-tuner/internal/catalog"
)

// Kinds - набор видов элементов для поиска
type Kinds uint8

// Виды поиска
const (
	Tracks Kinds = 1 << iota
	Albums
	Artists

	AllKinds = Tracks | Albums | Artists
)

// Has сообщает, входит ли вид k в набор
func (k Kinds) Has(kind catalog.Kind) bool {
	switch kind {
	case catalog.KindTrack:
		return k&Tracks != 0
	case catalog.KindAlbum:
		return k&Albums != 0
	case catalog.KindArtist:
		return k&Artists != 0
	default:
		return false
	}
}

// String возвращает набор в виде "artists,albums,tracks"
func (k Kinds) String() string {
	var parts []string
	if k&Artists != 0 {
		parts = append(parts, "artists")
	}
	if k&Albums != 0 {
		parts = append(parts, "albums")
	}
	if k&Tracks != 0 {
		parts = append(parts, "tracks")
	}
	return strings.Join(parts, ",")
}

// ParseKinds разбирает список видов через запятую: "tracks,albums".
// Пустая строка означает все виды.
func ParseKinds(s string) (Kinds, error) {
	var k Kinds
	for _, part := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "":
		case "track", "tracks":
			k |= Tracks
		case "album", "albums":
			k |= Albums
		case "artist", "artists":
			k |= Artists
		default:
			return 0, fmt.Errorf("неизвестный вид поиска %q", part)
		}
	}
	if k == 0 {
		return AllKinds, nil
	}
	return k, nil
}

// Stream - воспроизводимый поток байтов трека
type Stream struct {
	io.ReadCloser
	// MimeType - тип содержимого, если сервис его сообщил ("audio/flac", "audio/mpeg")
	MimeType string
	// Size - размер в байтах или -1, если неизвестен
	Size int64
}

// Client - возможности сервиса, нужные плееру. Все методы могут вернуть ошибку
// и блокируются на время сетевого запроса.
type Client interface {
	// Search ищет элементы. Порядок результата: исполнители, альбомы, треки.
	Search(ctx context.Context, query string, kinds Kinds, limit, offset int) ([]catalog.Entry, error)
	// FetchChildren возвращает треки альбома или альбомы исполнителя
	FetchChildren(ctx context.Context, entry catalog.Entry) ([]catalog.Entry, error)
	// ResolveStream открывает поток байтов трека
	ResolveStream(ctx context.Context, track catalog.Track) (*Stream, error)
}
