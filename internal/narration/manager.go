package narration

import (
	"github.com/charmbracelet/log"

	"github.com/pathunfolds/unfold/internal/audio"
	"github.com/pathunfolds/unfold/internal/metrics"
	"github.com/pathunfolds/unfold/internal/tts"
)

// Outcome describes what Complete did with a synthesis result.
type Outcome int

const (
	// OutcomePublished means a new Ready handle replaced the previous one.
	OutcomePublished Outcome = iota
	// OutcomeFailed means the current request failed.
	OutcomeFailed
	// OutcomeDiscarded means the result belonged to superseded text, or
	// arrived after Release.
	OutcomeDiscarded
)

func (o Outcome) String() string {
	switch o {
	case OutcomePublished:
		return "published"
	case OutcomeFailed:
		return "failed"
	case OutcomeDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// Manager tracks the single live narration handle. It is not safe for
// concurrent use; call it from the program's update loop.
type Manager struct {
	lastText   string
	generation uint64
	live       uint64 // token awaiting completion, 0 when none
	pending    tts.Request

	current  *Handle
	released bool

	tracker *audio.Tracker
	metrics *metrics.Metrics
	logger  *log.Logger
}

// NewManager returns an empty manager. tracker and m may be nil.
func NewManager(tracker *audio.Tracker, m *metrics.Metrics, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default().WithPrefix("narration")
	}
	return &Manager{
		tracker: tracker,
		metrics: m,
		logger:  logger,
	}
}

// Request starts a new generation for text. Empty text and text equal to the
// last processed text are ignored. Any earlier outstanding request becomes
// stale.
func (m *Manager) Request(text string, voice tts.Voice) (tts.Request, uint64, bool) {
	if m.released || text == "" || text == m.lastText {
		return tts.Request{}, 0, false
	}

	m.lastText = text
	m.generation++
	m.live = m.generation
	m.pending = tts.NewRequest(text, voice)

	m.logger.Debug("narration requested", "token", m.live, "request", m.pending.ID)
	return m.pending, m.live, true
}

// Complete hands a synthesis result to the manager, which takes ownership of
// src. The previous handle is released before the new one is returned.
func (m *Manager) Complete(token uint64, src *audio.Source, err error) (*Handle, Outcome) {
	outcome := m.complete(token, src, err)
	m.metrics.NarrationOutcome(outcome.String())
	m.metrics.SetLiveSources(m.tracker.Live())
	if outcome == OutcomeDiscarded {
		return nil, outcome
	}
	return m.current, outcome
}

func (m *Manager) complete(token uint64, src *audio.Source, err error) Outcome {
	if m.released || token == 0 || token != m.live {
		src.Release()
		m.logger.Debug("discarding stale narration", "token", token, "live", m.live)
		return OutcomeDiscarded
	}

	if err == nil && src == nil {
		err = audio.ErrEmptyAudio
	}

	previous := m.current
	if err != nil {
		src.Release()
		m.current = &Handle{Request: m.pending, State: StateFailed, Err: err}
	} else {
		m.current = &Handle{Request: m.pending, Source: src, State: StateReady}
	}
	previous.release()
	m.live = 0

	if err != nil {
		return OutcomeFailed
	}
	return OutcomePublished
}

// Clear drops the current narration because the text it belonged to is gone.
// Any outstanding request becomes stale and the next Request is never treated
// as a repeat.
func (m *Manager) Clear() {
	if m.released {
		return
	}
	m.lastText = ""
	m.live = 0
	m.current.release()
	m.current = nil
	m.metrics.SetLiveSources(m.tracker.Live())
}

// Current returns the latest published handle, or nil.
func (m *Manager) Current() *Handle {
	return m.current
}

// Pending reports whether a request is awaiting completion.
func (m *Manager) Pending() bool {
	return m.live != 0
}

// Release frees the current handle. Later completions are no-ops.
func (m *Manager) Release() {
	m.released = true
	m.live = 0
	m.current.release()
	m.current = nil
	m.metrics.SetLiveSources(m.tracker.Live())
}
