package bridge

import "errors"

// ErrClosed возвращается при установке источника в закрытый мост
var ErrClosed = errors.New("мост декодера закрыт")

// Snapshot - состояние моста глазами управляющего потока
type Snapshot struct {
	// Active - установлен ли источник
	Active bool
	// Finished - источник закончился или сломался, звучит тишина
	Finished bool
	// Played - сколько кадров выдал текущий источник
	Played int64
	// Generation - номер установки текущего источника, растет с каждым Install
	Generation uint64
}

// Snapshot возвращает состояние текущего слота. Вызывать из управляющего потока.
func (b *Bridge) Snapshot() Snapshot {
	s := b.current.Load()
	if s == nil {
		return Snapshot{}
	}
	return Snapshot{
		Active:     true,
		Finished:   s.finished.Load(),
		Played:     s.played.Load(),
		Generation: s.generation,
	}
}
