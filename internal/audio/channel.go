package audio

import (
	"math"
	"time"
)

// PlaybackState is the state of a single playback channel.
type PlaybackState int

const (
	// StateIdle means nothing is loaded or playback was stopped.
	StateIdle PlaybackState = iota
	// StatePlaying means audio is audible (possibly at zero gain).
	StatePlaying
	// StatePaused means a source is loaded but held.
	StatePaused
)

// String returns the string representation of the state.
func (s PlaybackState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Channel is an independent playback path. It borrows the loaded Source and
// never releases it.
type Channel interface {
	// Load replaces the current source. Playback is paused at position zero.
	Load(src *Source) error

	// Play starts or continues playback of the loaded source.
	Play() error

	// Pause holds playback at the current position.
	Pause()

	// Rewind moves the playback position back to zero.
	Rewind() error

	// Stop halts playback and drops the reference to the loaded source.
	Stop()

	// SetGain sets the output gain (0.0 to 1.0) without touching position.
	SetGain(gain float64)

	// SetLoop makes playback restart from zero at the end of the source.
	SetLoop(loop bool)

	// IsPlaying returns whether audio is currently playing.
	IsPlaying() bool

	// Position returns the current playback position.
	Position() time.Duration

	// Close releases the underlying player.
	Close() error
}

func clampGain(gain float64) float64 {
	switch {
	case math.IsNaN(gain), gain < 0:
		return 0
	case gain > 1:
		return 1
	default:
		return gain
	}
}
