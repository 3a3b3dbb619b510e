package music

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/pathunfolds/unfold/internal/audio"
	"github.com/pathunfolds/unfold/internal/settings"
)

func newTestController(t *testing.T, withTrack bool) (*Controller, *audio.MockChannel, *settings.Store, *audio.Tracker) {
	t.Helper()
	logger := log.New(io.Discard)
	tracker := audio.NewTracker()
	store := settings.NewStore(settings.NewMemoryBackend(nil), logger)
	ch := audio.NewMockChannel()

	var track *audio.Source
	if withTrack {
		track = audio.NewSource(make([]byte, 4096), audio.DefaultFormat(), tracker)
	}
	return NewController(ch, track, store, nil, logger), ch, store, tracker
}

func TestBeginIsOneShot(t *testing.T) {
	c, ch, _, _ := newTestController(t, true)

	if c.State() != audio.StateIdle || c.Started() {
		t.Fatal("music started before Begin")
	}
	if !ch.Loop() {
		t.Error("music channel should loop")
	}

	c.Begin()
	c.Begin()
	if c.State() != audio.StatePlaying {
		t.Errorf("state = %s, want playing", c.State())
	}
	if plays := ch.Stats().Plays; plays != 1 {
		t.Errorf("plays = %d, want 1", plays)
	}
}

func TestBeginWithoutTrack(t *testing.T) {
	c, ch, _, _ := newTestController(t, false)
	c.Begin()
	if !c.Started() || c.State() != audio.StateIdle {
		t.Errorf("started = %v, state = %s", c.Started(), c.State())
	}
	if ch.Stats().Loads != 0 {
		t.Error("loaded a nil track")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close = %v", err)
	}
}

func TestPlaybackErrorStaysPaused(t *testing.T) {
	c, ch, _, _ := newTestController(t, true)
	ch.PlayErr = errors.New("autoplay blocked")
	c.Begin()
	if c.State() != audio.StatePaused {
		t.Errorf("state = %s, want paused", c.State())
	}
}

func TestSettingsPropagation(t *testing.T) {
	c, ch, store, _ := newTestController(t, true)
	c.Begin()

	if ch.Gain() != 0.5 {
		t.Errorf("initial gain = %v, want 0.5", ch.Gain())
	}

	ctx := context.Background()
	tests := []struct {
		music, narrator float64
		muted           bool
		want            float64
	}{
		{0.3, 0.9, false, 0.3},
		{0.3, 0.9, true, 0},
		{0.6, 0.9, false, 0.6},
		{0, 0.9, false, 0},
	}
	for _, tt := range tests {
		if err := store.Save(ctx, tt.music, tt.narrator, tt.muted); err != nil {
			t.Fatal(err)
		}
		if ch.Gain() != tt.want {
			t.Errorf("save(%v, %v, %v): gain = %v, want %v", tt.music, tt.narrator, tt.muted, ch.Gain(), tt.want)
		}
		if c.State() != audio.StatePlaying {
			t.Errorf("settings change stopped the music")
		}
	}
}

func TestCloseReleasesTrack(t *testing.T) {
	c, ch, store, tracker := newTestController(t, true)
	c.Begin()

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if tracker.Live() != 0 {
		t.Errorf("live sources = %d, want 0", tracker.Live())
	}
	if c.State() != audio.StateIdle || ch.IsPlaying() {
		t.Error("music still playing after close")
	}

	if err := store.Save(context.Background(), 0.9, 0.9, false); err != nil {
		t.Fatal(err)
	}
	if ch.Gain() == 0.9 {
		t.Error("closed controller still subscribed")
	}
}

func TestOpenTrackMissingFile(t *testing.T) {
	_, err := OpenTrack(filepath.Join(t.TempDir(), "missing.mp3"), audio.DefaultFormat(), nil)
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
