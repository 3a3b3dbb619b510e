package audio

import (
	"errors"
	"sync"
	"time"
)

// MockChannel implements Channel for tests. It never produces sound; playback
// position only moves when Advance is called.
type MockChannel struct {
	mu sync.Mutex

	source   *Source
	playing  bool
	position time.Duration
	gain     float64
	loop     bool
	closed   bool

	// PlayErr, when set, is returned from Play to simulate a refused start.
	PlayErr error

	// Call counters
	loads   int
	plays   int
	pauses  int
	rewinds int
	stops   int

	// played records every source that started playing, in order.
	played []*Source
}

var _ Channel = (*MockChannel)(nil)

// NewMockChannel creates a mock channel at full gain.
func NewMockChannel() *MockChannel {
	return &MockChannel{gain: 1.0}
}

// Load replaces the current source.
func (m *MockChannel) Load(src *Source) error {
	if src == nil {
		return ErrNoSource
	}
	if src.Released() {
		return ErrReleased
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.New("channel is closed")
	}
	m.source = src
	m.playing = false
	m.position = 0
	m.loads++
	return nil
}

// Play starts playback unless PlayErr is set.
func (m *MockChannel) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.source == nil {
		return ErrNoSource
	}
	if m.source.Released() {
		return ErrReleased
	}
	if m.PlayErr != nil {
		return m.PlayErr
	}
	m.playing = true
	m.plays++
	m.played = append(m.played, m.source)
	return nil
}

// Pause holds playback.
func (m *MockChannel) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = false
	m.pauses++
}

// Rewind resets the position to zero.
func (m *MockChannel) Rewind() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.source == nil {
		return ErrNoSource
	}
	m.position = 0
	m.rewinds++
	return nil
}

// Stop halts playback and drops the source.
func (m *MockChannel) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.source = nil
	m.playing = false
	m.position = 0
	m.stops++
}

// SetGain records the gain.
func (m *MockChannel) SetGain(gain float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gain = clampGain(gain)
}

// SetLoop records the loop flag.
func (m *MockChannel) SetLoop(loop bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loop = loop
}

// IsPlaying returns whether the mock is playing.
func (m *MockChannel) IsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

// Position returns the simulated position.
func (m *MockChannel) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

// Close marks the channel closed.
func (m *MockChannel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.source = nil
	m.playing = false
	m.closed = true
	return nil
}

// Advance moves the simulated position forward while playing.
func (m *MockChannel) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.playing {
		m.position += d
	}
}

// Source returns the loaded source.
func (m *MockChannel) Source() *Source {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.source
}

// Gain returns the last gain set.
func (m *MockChannel) Gain() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gain
}

// Loop returns the loop flag.
func (m *MockChannel) Loop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loop
}

// Played returns the sources that started playing, in order.
func (m *MockChannel) Played() []*Source {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Source, len(m.played))
	copy(out, m.played)
	return out
}

// MockStats holds call counters of a MockChannel.
type MockStats struct {
	Loads, Plays, Pauses, Rewinds, Stops int
}

// Stats returns the call counters.
func (m *MockChannel) Stats() MockStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MockStats{
		Loads:   m.loads,
		Plays:   m.plays,
		Pauses:  m.pauses,
		Rewinds: m.rewinds,
		Stops:   m.stops,
	}
}
