package ui

import (
	"context"
	"io"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/pathunfolds/unfold/internal/audio"
	"github.com/pathunfolds/unfold/internal/music"
	"github.com/pathunfolds/unfold/internal/narration"
	"github.com/pathunfolds/unfold/internal/script"
	"github.com/pathunfolds/unfold/internal/settings"
	"github.com/pathunfolds/unfold/internal/tts"
)

const story = `# The Path

## Gate

You stand before the gate.

## Forest

The trees lean in.
`

type fixture struct {
	model    *model
	narrator *narration.Narrator
	music    *music.Controller
	voice    *audio.MockChannel
	bgm      *audio.MockChannel
	synth    *tts.MockSynthesizer
	store    *settings.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, story)
}

func newFixtureWith(t *testing.T, src string) *fixture {
	t.Helper()
	logger := log.New(io.Discard)

	s, err := script.Parse([]byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	f := &fixture{
		voice: audio.NewMockChannel(),
		bgm:   audio.NewMockChannel(),
		synth: tts.NewMockSynthesizer(),
		store: settings.NewStore(settings.NewMemoryBackend(nil), logger),
	}
	tracker := audio.NewTracker()
	track := audio.NewSource(make([]byte, 4096), audio.DefaultFormat(), tracker)

	f.narrator = narration.New(context.Background(), narration.Config{
		Synthesizer: f.synth,
		Voice:       tts.Voice{ID: "narrator"},
		Channel:     f.voice,
		Settings:    f.store,
		Tracker:     tracker,
		Logger:      logger,
	})
	f.music = music.NewController(f.bgm, track, f.store, nil, logger)
	t.Cleanup(func() {
		_ = f.narrator.Close()
		_ = f.music.Close()
	})

	f.model = newModel(Config{GlamourStyle: "dark"}, Deps{
		Narrator: f.narrator,
		Music:    f.music,
		Settings: f.store,
		Script:   s,
	})
	f.send(tea.WindowSizeMsg{Width: 80, Height: 24})
	return f
}

// send delivers msg and runs every command it produces to completion.
func (f *fixture) send(msg tea.Msg) {
	_, cmd := f.model.Update(msg)
	f.drain(cmd)
}

func (f *fixture) key(k string) {
	switch k {
	case "enter":
		f.send(tea.KeyMsg{Type: tea.KeyEnter})
	case "esc":
		f.send(tea.KeyMsg{Type: tea.KeyEsc})
	case "right":
		f.send(tea.KeyMsg{Type: tea.KeyRight})
	case "left":
		f.send(tea.KeyMsg{Type: tea.KeyLeft})
	default:
		f.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
	}
}

func (f *fixture) drain(cmd tea.Cmd) {
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := run(c).(type) {
		case nil, spinner.TickMsg, statusMessageTimeoutMsg, tea.QuitMsg:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			_, next := f.model.Update(msg)
			queue = append(queue, next)
		}
	}
}

// run executes c, giving up on timers and other long waits.
func run(c tea.Cmd) tea.Msg {
	ch := make(chan tea.Msg, 1)
	go func() { ch <- c() }()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(250 * time.Millisecond):
		return nil
	}
}

func TestTitleScreen(t *testing.T) {
	f := newFixture(t)

	view := f.model.View()
	if !strings.Contains(view, "The Path") {
		t.Errorf("title view missing script title:\n%s", view)
	}
	if f.music.Started() {
		t.Error("music should not start before the story begins")
	}
	if len(f.synth.Calls()) != 0 {
		t.Error("nothing should be synthesized on the title screen")
	}
}

func TestBeginStartsMusicAndNarration(t *testing.T) {
	f := newFixture(t)
	f.key("enter")

	if f.model.state != stateStory {
		t.Fatalf("state = %s, want story", f.model.state)
	}
	if f.bgm.Stats().Plays != 1 {
		t.Errorf("music plays = %d, want 1", f.bgm.Stats().Plays)
	}
	if !f.bgm.Loop() {
		t.Error("music should loop")
	}
	if !f.model.ready {
		t.Error("passage should be marked ready after rendering")
	}
	if got := f.narrator.State(); got != audio.StatePlaying {
		t.Errorf("narration state = %s, want playing", got)
	}

	calls := f.synth.Calls()
	if len(calls) != 1 || calls[0].Text != "You stand before the gate." {
		t.Errorf("unexpected synthesis calls: %+v", calls)
	}
}

func TestNavigation(t *testing.T) {
	f := newFixture(t)
	f.key("enter")

	f.key("right")
	if f.model.passage != 1 {
		t.Fatalf("passage = %d, want 1", f.model.passage)
	}
	calls := f.synth.Calls()
	if len(calls) != 2 || calls[1].Text != "The trees lean in." {
		t.Errorf("unexpected synthesis calls: %+v", calls)
	}
	if got := f.narrator.State(); got != audio.StatePlaying {
		t.Errorf("narration state = %s, want playing", got)
	}

	// Past the last passage nothing happens.
	f.key("right")
	if f.model.passage != 1 {
		t.Errorf("passage = %d, want 1", f.model.passage)
	}

	f.key("left")
	if f.model.passage != 0 {
		t.Errorf("passage = %d, want 0", f.model.passage)
	}
	if f.bgm.Stats().Plays != 1 {
		t.Error("music should only start once")
	}
}

func TestResizeKeepsReadiness(t *testing.T) {
	f := newFixture(t)
	f.key("enter")
	before := f.voice.Stats()

	f.send(tea.WindowSizeMsg{Width: 100, Height: 30})

	after := f.voice.Stats()
	if after.Plays != before.Plays || after.Rewinds != before.Rewinds {
		t.Errorf("resizing restarted narration: before %+v, after %+v", before, after)
	}
}

func TestNarrationErrorInStatusBar(t *testing.T) {
	f := newFixture(t)
	f.synth.Err = tts.ErrEmptyAudio
	f.key("enter")

	if !strings.Contains(f.model.View(), narration.ErrorMessage) {
		t.Errorf("status bar should show the narration error:\n%s", f.model.View())
	}
	if f.music.State() != audio.StatePlaying {
		t.Error("music should play regardless of narration errors")
	}
}

func TestSettingsPanel(t *testing.T) {
	f := newFixture(t)
	f.key("enter")

	f.key("s")
	if f.model.panel == nil {
		t.Fatal("settings panel should be open")
	}
	if !strings.Contains(f.model.View(), "Settings") {
		t.Error("settings panel not rendered")
	}

	// Music volume down one step, then mute.
	f.key("-")
	f.key("m")
	if f.store.Current() != settings.Defaults() {
		t.Error("settings must not change before saving")
	}

	f.key("enter")
	if f.model.panel != nil {
		t.Error("panel should close after saving")
	}

	got := f.store.Current()
	if math.Abs(got.MusicVolume-0.45) > 1e-9 || !got.Muted {
		t.Errorf("saved settings = %+v", got)
	}
	if f.voice.Gain() != 0 || f.bgm.Gain() != 0 {
		t.Errorf("muted gains = %v/%v, want 0/0", f.voice.Gain(), f.bgm.Gain())
	}
	if f.model.statusMsg != "Settings saved" {
		t.Errorf("status = %q", f.model.statusMsg)
	}
}

func TestSettingsPanelCancel(t *testing.T) {
	f := newFixture(t)

	f.key("s")
	f.key("m")
	f.key("esc")

	if f.model.panel != nil {
		t.Error("panel should close on cancel")
	}
	if f.store.Current().Muted {
		t.Error("canceled edits must not be saved")
	}
}

func TestSettingsSaveError(t *testing.T) {
	logger := log.New(io.Discard)
	backend := settings.NewMemoryBackend(nil)
	store := settings.NewStore(backend, logger)

	p := newSettingsPanel(store, newKeyMap())
	backend.SetErr = io.ErrClosedPipe
	p, cmd := p.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("m")})
	if cmd != nil {
		t.Error("toggling mute should not close the panel")
	}
	_, cmd = p.update(tea.KeyMsg{Type: tea.KeyEnter})

	msg, ok := cmd().(settingsClosedMsg)
	if !ok || msg.saved || msg.err == nil {
		t.Errorf("unexpected close message %+v", msg)
	}
	if store.Current().Muted {
		t.Error("failed saves must not publish")
	}
}

func TestEmptyScript(t *testing.T) {
	m := newModel(Config{}, Deps{Script: &script.Script{}})
	if m.fatalErr == nil {
		t.Fatal("expected an error for an empty script")
	}
	if !strings.Contains(m.View(), "ERROR") {
		t.Error("error view not shown")
	}
}

func TestIndent(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"a", 0, "a"},
		{"", 2, ""},
		{"a\nb", 2, "  a\n  b\n"},
	}
	for _, tt := range tests {
		if got := indent(tt.in, tt.n); got != tt.want {
			t.Errorf("indent(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestSilentPassageStopsNarration(t *testing.T) {
	f := newFixtureWith(t, "# T\n\n## One\n\nFirst words.\n\n## Two\n\n```\nls -la\n```\n")
	f.key("enter")
	if got := f.narrator.State(); got != audio.StatePlaying {
		t.Fatalf("narration state = %s, want playing", got)
	}

	f.key("right")
	if f.model.passage != 1 || f.model.current().Narration != "" {
		t.Fatalf("expected the code-only passage, got %+v", f.model.current())
	}
	if got := f.narrator.State(); got != audio.StateIdle {
		t.Errorf("narration state = %s, want idle", got)
	}
	if f.narrator.Current() != nil {
		t.Error("the previous passage's narration is still loaded")
	}

	// Going back narrates the first passage again.
	f.key("left")
	if got := f.narrator.State(); got != audio.StatePlaying {
		t.Errorf("narration state = %s, want playing", got)
	}
	if calls := f.synth.Calls(); len(calls) != 2 {
		t.Errorf("synth calls = %d, want 2", len(calls))
	}
}
