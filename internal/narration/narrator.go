package narration

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/pathunfolds/unfold/internal/audio"
	"github.com/pathunfolds/unfold/internal/metrics"
	"github.com/pathunfolds/unfold/internal/settings"
	"github.com/pathunfolds/unfold/internal/tts"
)

// ErrorMessage is shown whenever speech could not be generated.
const ErrorMessage = "Failed to generate speech"

// Config holds the collaborators of a Narrator.
type Config struct {
	Synthesizer tts.Synthesizer
	Voice       tts.Voice
	Channel     audio.Channel
	Settings    *settings.Store

	Format  audio.Format
	Tracker *audio.Tracker
	Metrics *metrics.Metrics
	Logger  *log.Logger
}

// Narrator turns text and readiness messages into gated narration playback.
type Narrator struct {
	ctx    context.Context
	cancel context.CancelFunc

	synth   tts.Synthesizer
	voice   tts.Voice
	format  audio.Format
	tracker *audio.Tracker

	manager     *Manager
	gate        *Gate
	unsubscribe func()

	err    error
	logger *log.Logger
}

// New creates a Narrator. Canceling ctx, or calling Close, abandons in-flight
// synthesis.
func New(ctx context.Context, cfg Config) *Narrator {
	if cfg.Logger == nil {
		cfg.Logger = log.Default().WithPrefix("narrator")
	}
	if cfg.Format == (audio.Format{}) {
		cfg.Format = audio.DefaultFormat()
	}

	ctx, cancel := context.WithCancel(ctx)
	n := &Narrator{
		ctx:     ctx,
		cancel:  cancel,
		synth:   cfg.Synthesizer,
		voice:   cfg.Voice,
		format:  cfg.Format,
		tracker: cfg.Tracker,
		manager: NewManager(cfg.Tracker, cfg.Metrics, cfg.Logger),
		gate:    NewGate(cfg.Channel, cfg.Settings.Current(), cfg.Metrics, cfg.Logger),
		logger:  cfg.Logger,
	}
	n.unsubscribe = cfg.Settings.Subscribe(n.gate.ApplySettings)
	return n
}

// Update handles TextMsg, ReadyMsg and SynthesizedMsg. Other messages are
// ignored.
func (n *Narrator) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case TextMsg:
		if msg.Text == "" {
			// Nothing to narrate: whatever was playing belongs elsewhere.
			n.err = nil
			n.gate.Invalidate()
			n.manager.Clear()
			return nil
		}
		req, token, ok := n.manager.Request(msg.Text, n.voice)
		if !ok {
			return nil
		}
		n.err = nil
		n.gate.Invalidate()
		return n.synthesize(token, req)

	case ReadyMsg:
		n.gate.SetExternalReady(msg.Ready)

	case SynthesizedMsg:
		h, outcome := n.manager.Complete(msg.Token, msg.Source, msg.Err)
		switch outcome {
		case OutcomePublished:
			n.err = nil
			n.gate.SetHandle(h)
		case OutcomeFailed:
			n.err = h.Err
			n.logger.Error(ErrorMessage, "request", h.Request.ID, "kind", errorKind(h.Err), "error", h.Err)
			n.gate.SetHandle(h)
		}
	}
	return nil
}

func (n *Narrator) synthesize(token uint64, req tts.Request) tea.Cmd {
	ctx, synth, format, tracker := n.ctx, n.synth, n.format, n.tracker
	return func() tea.Msg {
		data, err := synth.Synthesize(ctx, req)
		if err != nil {
			return SynthesizedMsg{Token: token, Request: req, Err: err}
		}
		src, err := audio.Decode(synth.Encoding(), data, format, tracker)
		return SynthesizedMsg{Token: token, Request: req, Source: src, Err: err}
	}
}

// Err returns the user-facing error message, or "" when the last request
// did not fail.
func (n *Narrator) Err() string {
	if n.err == nil {
		return ""
	}
	return ErrorMessage
}

// LastError returns the error behind Err.
func (n *Narrator) LastError() error {
	return n.err
}

// Loading reports whether the current text is still being synthesized.
func (n *Narrator) Loading() bool {
	return n.manager.Pending()
}

// State returns the narration channel state.
func (n *Narrator) State() audio.PlaybackState {
	return n.gate.State()
}

// Current returns the published handle, or nil.
func (n *Narrator) Current() *Handle {
	return n.manager.Current()
}

// Close cancels in-flight synthesis, stops playback and releases the live
// source.
func (n *Narrator) Close() error {
	n.cancel()
	n.unsubscribe()
	err := n.gate.Close()
	n.manager.Release()
	return err
}

func errorKind(err error) string {
	switch {
	case tts.IsTransport(err):
		return tts.KindTransport.String()
	case tts.IsProvider(err):
		return tts.KindProvider.String()
	default:
		return "decode"
	}
}
