package narration

import (
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/pathunfolds/unfold/internal/audio"
	"github.com/pathunfolds/unfold/internal/tts"
)

func newSource(tracker *audio.Tracker) *audio.Source {
	return audio.NewSource(make([]byte, 400), audio.DefaultFormat(), tracker)
}

func TestManagerOutcomes(t *testing.T) {
	voice := tts.Voice{ID: "v"}
	boom := errors.New("boom")

	tests := []struct {
		name    string
		run     func(m *Manager, tr *audio.Tracker) Outcome
		want    Outcome
		live    int
		pending bool
	}{
		{
			name: "current success",
			run: func(m *Manager, tr *audio.Tracker) Outcome {
				_, tok, _ := m.Request("a", voice)
				_, o := m.Complete(tok, newSource(tr), nil)
				return o
			},
			want: OutcomePublished,
			live: 1,
		},
		{
			name: "current failure",
			run: func(m *Manager, tr *audio.Tracker) Outcome {
				_, tok, _ := m.Request("a", voice)
				_, o := m.Complete(tok, nil, boom)
				return o
			},
			want: OutcomeFailed,
		},
		{
			name: "stale success",
			run: func(m *Manager, tr *audio.Tracker) Outcome {
				_, old, _ := m.Request("a", voice)
				m.Request("b", voice)
				_, o := m.Complete(old, newSource(tr), nil)
				return o
			},
			want:    OutcomeDiscarded,
			pending: true,
		},
		{
			name: "stale failure",
			run: func(m *Manager, tr *audio.Tracker) Outcome {
				_, old, _ := m.Request("a", voice)
				m.Request("b", voice)
				_, o := m.Complete(old, nil, boom)
				return o
			},
			want:    OutcomeDiscarded,
			pending: true,
		},
		{
			name: "success without audio",
			run: func(m *Manager, tr *audio.Tracker) Outcome {
				_, tok, _ := m.Request("a", voice)
				_, o := m.Complete(tok, nil, nil)
				return o
			},
			want: OutcomeFailed,
		},
		{
			name: "duplicate completion",
			run: func(m *Manager, tr *audio.Tracker) Outcome {
				_, tok, _ := m.Request("a", voice)
				m.Complete(tok, newSource(tr), nil)
				_, o := m.Complete(tok, newSource(tr), nil)
				return o
			},
			want: OutcomeDiscarded,
			live: 1,
		},
		{
			name: "after release",
			run: func(m *Manager, tr *audio.Tracker) Outcome {
				_, tok, _ := m.Request("a", voice)
				m.Release()
				_, o := m.Complete(tok, newSource(tr), nil)
				return o
			},
			want: OutcomeDiscarded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := audio.NewTracker()
			m := NewManager(tracker, nil, log.New(io.Discard))

			if got := tt.run(m, tracker); got != tt.want {
				t.Errorf("outcome = %s, want %s", got, tt.want)
			}
			if live := tracker.Live(); live != tt.live {
				t.Errorf("live sources = %d, want %d", live, tt.live)
			}
			if m.Pending() != tt.pending {
				t.Errorf("pending = %v, want %v", m.Pending(), tt.pending)
			}
		})
	}
}

func TestManagerRequestFiltering(t *testing.T) {
	m := NewManager(nil, nil, log.New(io.Discard))
	voice := tts.Voice{ID: "v"}

	if _, _, ok := m.Request("", voice); ok {
		t.Error("empty text accepted")
	}
	req, first, ok := m.Request("Hello", voice)
	if !ok {
		t.Fatal("Hello rejected")
	}
	if req.Text != "Hello" || req.VoiceID != "v" || req.ID == "" {
		t.Errorf("request = %+v", req)
	}
	if _, _, ok := m.Request("Hello", voice); ok {
		t.Error("repeated text accepted")
	}
	_, second, ok := m.Request("World", voice)
	if !ok || second <= first {
		t.Errorf("tokens not monotonic: %d then %d", first, second)
	}
	// Returning to earlier text is a change.
	if _, _, ok := m.Request("Hello", voice); !ok {
		t.Error("Hello after World rejected")
	}
}

func TestManagerReleasesPreviousOnPublish(t *testing.T) {
	tracker := audio.NewTracker()
	m := NewManager(tracker, nil, log.New(io.Discard))
	voice := tts.Voice{ID: "v"}

	_, tok, _ := m.Request("a", voice)
	first, _ := m.Complete(tok, newSource(tracker), nil)

	_, tok, _ = m.Request("b", voice)
	second, _ := m.Complete(tok, newSource(tracker), nil)

	if !first.Source.Released() {
		t.Error("previous source still live")
	}
	if !second.Ready() {
		t.Error("new handle not ready")
	}

	m.Release()
	m.Release()
	if tracker.Live() != 0 || tracker.Released() != 2 {
		t.Errorf("live = %d, released = %d", tracker.Live(), tracker.Released())
	}
}

func TestManagerWithoutTracker(t *testing.T) {
	m := NewManager(nil, nil, log.New(io.Discard))
	voice := tts.Voice{ID: "v"}

	_, tok, _ := m.Request("Hello", voice)
	h, outcome := m.Complete(tok, newSource(nil), nil)
	if outcome != OutcomePublished || !h.Ready() {
		t.Fatalf("outcome = %s, handle = %+v", outcome, h)
	}

	m.Clear()
	m.Release()
	if !h.Source.Released() {
		t.Error("source not released")
	}
}

func TestManagerClear(t *testing.T) {
	tracker := audio.NewTracker()
	m := NewManager(tracker, nil, log.New(io.Discard))
	voice := tts.Voice{ID: "v"}

	_, tok, _ := m.Request("Hello", voice)
	first, _ := m.Complete(tok, newSource(tracker), nil)
	_, outstanding, _ := m.Request("World", voice)

	m.Clear()
	if m.Current() != nil || m.Pending() {
		t.Error("Clear should drop the current handle and the outstanding request")
	}
	if !first.Source.Released() {
		t.Error("cleared handle still holds its source")
	}
	if _, outcome := m.Complete(outstanding, newSource(tracker), nil); outcome != OutcomeDiscarded {
		t.Errorf("outstanding completion outcome = %s, want discarded", outcome)
	}
	if _, _, ok := m.Request("Hello", voice); !ok {
		t.Error("text should be requested again after Clear")
	}
	if tracker.Live() != 0 {
		t.Errorf("live sources = %d, want 0", tracker.Live())
	}
}
