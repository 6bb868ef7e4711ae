package service

import (
	"errors"
	"fmt"
)

// Сигнальные ошибки сервиса
var (
	// ErrUnauthorized - токен отсутствует или недействителен
	ErrUnauthorized = errors.New("требуется авторизация")
	// ErrNotFound - элемент каталога не найден
	ErrNotFound = errors.New("элемент не найден")
	// ErrUnavailable - трек недоступен для воспроизведения (лицензия, регион)
	ErrUnavailable = errors.New("трек недоступен")
	// ErrNoChildren - у элемента нет дочерних элементов (трек)
	ErrNoChildren = errors.New("у элемента нет дочерних элементов")
)

// FetchError - сбой поиска или загрузки дочерних элементов.
// Каталог при этом не меняется.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("ошибка загрузки (%s): %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// StreamResolutionError - трек нельзя воспроизвести. Состояние воспроизведения не меняется.
type StreamResolutionError struct {
	TrackID string
	Err     error
}

func (e *StreamResolutionError) Error() string {
	return fmt.Sprintf("ошибка получения потока трека %s: %v", e.TrackID, e.Err)
}

func (e *StreamResolutionError) Unwrap() error {
	return e.Err
}

// AsFetchError оборачивает err в FetchError, если он еще не обернут
func AsFetchError(op string, err error) error {
	if err == nil {
		return nil
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return err
	}
	return &FetchError{Op: op, Err: err}
}

// AsStreamError оборачивает err в StreamResolutionError, если он еще не обернут
func AsStreamError(trackID string, err error) error {
	if err == nil {
		return nil
	}
	var se *StreamResolutionError
	if errors.As(err, &se) {
		return err
	}
	return &StreamResolutionError{TrackID: trackID, Err: err}
}
