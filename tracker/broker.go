package tracker

import (
	"time"

	"github.com/kmusic/kmusic"
)

type (
	// Broker carries messages out of the service. Every channel is buffered
	// and the service only ever sends with TrySend, so a slow or absent
	// reader never stalls the tick loop; messages that do not fit are
	// dropped.
	//
	// ToUI receives PageChanged, Warning and ExportProgress values. ToSync
	// receives a StepPosition every time a sequencer moves, for mirroring the
	// playhead on another display.
	Broker struct {
		ToUI   chan any
		ToSync chan StepPosition
	}

	// PageChanged is sent when the playhead of a sequencer crosses into
	// another page.
	PageChanged struct {
		Role kmusic.Role
		Page int
		Step int
	}

	// StepPosition is sent when the playhead of a sequencer moves.
	StepPosition struct {
		Role kmusic.Role
		Step int
		Page int
	}

	// Warning carries a non-fatal problem, typically a
	// *kmusic.MissingResourceWarning, to whoever shows them to the user.
	Warning struct {
		Err error
	}
)

// NewBroker returns a broker with room for 1024 messages per channel.
func NewBroker() *Broker {
	return &Broker{
		ToUI:   make(chan any, 1024),
		ToSync: make(chan StepPosition, 1024),
	}
}

// TrySend sends v on c unless c is full, in which case v is dropped. It never
// blocks and reports whether v went out.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}

// TimeoutReceive waits at most t for a value on c. ok is false on timeout
// and on a closed channel.
func TimeoutReceive[T any](c <-chan T, t time.Duration) (v T, ok bool) {
	select {
	case v, ok = <-c:
		return v, ok
	case <-time.After(t):
		return v, false
	}
}
