// Package music plays the looping background track.
package music

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"

	"github.com/pathunfolds/unfold/internal/audio"
	"github.com/pathunfolds/unfold/internal/metrics"
	"github.com/pathunfolds/unfold/internal/settings"
)

// Controller owns the music channel and its track. Music starts once, on
// Begin, and then loops until Close.
type Controller struct {
	mu sync.Mutex

	channel audio.Channel
	track   *audio.Source
	started bool
	state   audio.PlaybackState

	unsubscribe func()
	metrics     *metrics.Metrics
	logger      *log.Logger
}

// NewController takes ownership of ch and track. track may be nil, in which
// case Begin only records that the player has started.
func NewController(ch audio.Channel, track *audio.Source, store *settings.Store, m *metrics.Metrics, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.Default().WithPrefix("music")
	}
	c := &Controller{
		channel: ch,
		track:   track,
		metrics: m,
		logger:  logger,
	}
	ch.SetLoop(true)
	c.ApplySettings(store.Current())
	c.unsubscribe = store.Subscribe(c.ApplySettings)
	return c
}

// OpenTrack decodes the MP3 file at path. A leading ~ is expanded.
func OpenTrack(path string, format audio.Format, tracker *audio.Tracker) (*audio.Source, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("unable to expand %s: %w", path, err)
	}
	f, err := os.Open(expanded)
	if err != nil {
		return nil, fmt.Errorf("unable to open music track: %w", err)
	}
	defer f.Close() //nolint:errcheck

	src, err := audio.DecodeFile(f, format, tracker)
	if err != nil {
		return nil, fmt.Errorf("unable to decode %s: %w", expanded, err)
	}
	return src, nil
}

// Begin starts the music. Only the first call has an effect.
func (c *Controller) Begin() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return
	}
	c.started = true

	if c.track == nil {
		c.logger.Debug("no music track configured")
		return
	}
	if err := c.channel.Load(c.track); err != nil {
		c.logger.Error("unable to load music", "error", err)
		return
	}
	c.state = audio.StatePaused

	if err := c.channel.Play(); err != nil {
		if !errors.Is(err, audio.ErrPlayback) {
			err = fmt.Errorf("%w: %w", audio.ErrPlayback, err)
		}
		c.logger.Error("music playback failed", "error", err)
		c.metrics.PlaybackError("music")
		return
	}
	c.state = audio.StatePlaying
}

// ApplySettings updates the gain immediately.
func (c *Controller) ApplySettings(s settings.Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channel.SetGain(s.MusicGain())
}

// Started reports whether Begin has been called.
func (c *Controller) Started() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

// State returns the channel state.
func (c *Controller) State() audio.PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close stops the music, closes the channel and releases the track.
func (c *Controller) Close() error {
	c.unsubscribe()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.channel.Stop()
	c.state = audio.StateIdle
	err := c.channel.Close()
	c.track.Release()
	return err
}
