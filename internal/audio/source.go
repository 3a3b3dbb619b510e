package audio

import (
	"sync"
	"sync/atomic"
	"time"
)

// Source is a decoded PCM buffer. It has exactly one owner, which must call
// Release once the audio is no longer current. Channels only borrow it.
type Source struct {
	id       uint64
	format   Format
	tracker  *Tracker
	released atomic.Bool

	// pcm must stay alive while a channel is reading it.
	mu  sync.RWMutex
	pcm []byte
}

var sourceIDs atomic.Uint64

// NewSource wraps PCM data in a Source registered with tracker. A nil
// tracker is allowed.
func NewSource(pcm []byte, format Format, tracker *Tracker) *Source {
	s := &Source{
		id:      sourceIDs.Add(1),
		format:  format,
		tracker: tracker,
		pcm:     pcm,
	}
	tracker.created(s)
	return s
}

// ID returns a process-unique identifier for the source.
func (s *Source) ID() uint64 {
	return s.id
}

// Format returns the PCM layout of the source.
func (s *Source) Format() Format {
	return s.format
}

// Bytes returns the PCM data, or nil after Release.
func (s *Source) Bytes() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pcm
}

// Len returns the PCM length in bytes.
func (s *Source) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pcm)
}

// Duration returns the playback length of the source.
func (s *Source) Duration() time.Duration {
	return s.format.Duration(int64(s.Len()))
}

// Release frees the PCM data. Only the first call has an effect; it reports
// whether this call performed the release.
func (s *Source) Release() bool {
	if s == nil || !s.released.CompareAndSwap(false, true) {
		return false
	}
	s.mu.Lock()
	s.pcm = nil
	s.mu.Unlock()
	s.tracker.releasedSource(s)
	return true
}

// Released reports whether Release has been called.
func (s *Source) Released() bool {
	return s.released.Load()
}

// Tracker counts source creation and release so tests can assert that every
// source is released exactly once.
type Tracker struct {
	mu       sync.Mutex
	live     map[uint64]struct{}
	total    int
	released int
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{live: make(map[uint64]struct{})}
}

func (t *Tracker) created(s *Source) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.live[s.id] = struct{}{}
	t.total++
}

func (t *Tracker) releasedSource(s *Source) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.live, s.id)
	t.released++
}

// Live returns the number of sources created but not yet released.
func (t *Tracker) Live() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.live)
}

// Created returns the total number of sources created.
func (t *Tracker) Created() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// Released returns the total number of releases performed.
func (t *Tracker) Released() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.released
}
