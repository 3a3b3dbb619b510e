package narration

import (
	"github.com/pathunfolds/unfold/internal/audio"
	"github.com/pathunfolds/unfold/internal/tts"
)

// State is the lifecycle state of a Handle.
type State int

const (
	StatePending State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Handle is the playable result of one narration request. The Manager owns
// it; everything else borrows it.
type Handle struct {
	Request tts.Request
	Source  *audio.Source
	State   State
	Err     error
}

// Ready reports whether the handle has a playable source.
func (h *Handle) Ready() bool {
	return h != nil && h.State == StateReady && h.Source != nil && !h.Source.Released()
}

func (h *Handle) release() {
	if h != nil && h.Source != nil {
		h.Source.Release()
	}
}
