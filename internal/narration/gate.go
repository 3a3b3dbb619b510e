package narration

import (
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/pathunfolds/unfold/internal/audio"
	"github.com/pathunfolds/unfold/internal/metrics"
	"github.com/pathunfolds/unfold/internal/settings"
)

// Gate decides whether the narration channel is audible. Playback only runs
// while a Ready handle is loaded and the external readiness signal is true.
// The gate borrows handles and never releases their sources.
type Gate struct {
	mu sync.Mutex

	channel  audio.Channel
	handle   *Handle
	ready    bool
	state    audio.PlaybackState
	settings settings.Settings

	metrics *metrics.Metrics
	logger  *log.Logger
}

// NewGate takes ownership of ch and applies the initial settings.
func NewGate(ch audio.Channel, initial settings.Settings, m *metrics.Metrics, logger *log.Logger) *Gate {
	if logger == nil {
		logger = log.Default().WithPrefix("gate")
	}
	g := &Gate{
		channel: ch,
		metrics: m,
		logger:  logger,
	}
	g.ApplySettings(initial)
	return g
}

// SetHandle loads a new handle at position zero and plays it if the external
// signal is ready. A nil or failed handle stops playback.
func (g *Gate) SetHandle(h *Handle) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !h.Ready() {
		g.stopLocked()
		return
	}

	if err := g.channel.Load(h.Source); err != nil {
		g.logger.Error("unable to load narration", "request", h.Request.ID, "error", err)
		g.stopLocked()
		return
	}
	g.handle = h
	g.state = audio.StatePaused
	if err := g.channel.Rewind(); err != nil {
		g.logger.Warn("unable to rewind narration", "error", err)
	}

	if g.ready {
		g.playLocked()
	}
}

// Invalidate stops the current handle because its text has been replaced.
func (g *Gate) Invalidate() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopLocked()
}

// SetExternalReady feeds the readiness signal. Going false pauses; going true
// again restarts the handle from the beginning.
func (g *Gate) SetExternalReady(ready bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	was := g.ready
	g.ready = ready

	if !ready {
		if g.state == audio.StatePlaying {
			g.channel.Pause()
			g.state = audio.StatePaused
		}
		return
	}

	if was || g.handle == nil {
		return
	}
	if err := g.channel.Rewind(); err != nil {
		g.logger.Warn("unable to rewind narration", "error", err)
	}
	g.playLocked()
}

// ApplySettings updates the channel gain immediately. Position is untouched.
func (g *Gate) ApplySettings(s settings.Settings) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.settings = s
	g.channel.SetGain(s.NarratorGain())
}

// State returns the gate's playback state.
func (g *Gate) State() audio.PlaybackState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Handle returns the loaded handle, or nil.
func (g *Gate) Handle() *Handle {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.handle
}

// Close stops playback and closes the channel.
func (g *Gate) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.stopLocked()
	return g.channel.Close()
}

func (g *Gate) playLocked() {
	if err := g.channel.Play(); err != nil {
		if !errors.Is(err, audio.ErrPlayback) {
			err = fmt.Errorf("%w: %w", audio.ErrPlayback, err)
		}
		g.logger.Error("narration playback failed", "request", g.handle.Request.ID, "error", err)
		g.metrics.PlaybackError("narration")
		g.state = audio.StatePaused
		return
	}
	g.state = audio.StatePlaying
}

func (g *Gate) stopLocked() {
	if g.state != audio.StateIdle || g.handle != nil {
		g.channel.Stop()
	}
	g.handle = nil
	g.state = audio.StateIdle
}
