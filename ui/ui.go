// Package ui provides the terminal front-end for unfold.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/log"
	te "github.com/muesli/termenv"

	"github.com/pathunfolds/unfold/internal/music"
	"github.com/pathunfolds/unfold/internal/narration"
	"github.com/pathunfolds/unfold/internal/script"
	"github.com/pathunfolds/unfold/internal/settings"
)

const (
	statusMessageTimeout = time.Second * 3
	statusBarHeight      = 1
	ellipsis             = "…"
)

// Deps are the collaborators the UI drives. The caller owns them and closes
// them after the program exits.
type Deps struct {
	Narrator *narration.Narrator
	Music    *music.Controller
	Settings *settings.Store
	Script   *script.Script
}

// NewProgram returns a new Tea program.
func NewProgram(cfg Config, deps Deps) *tea.Program {
	log.Debug("Starting unfold", "glamour", cfg.GlamourEnabled, "script", cfg.ScriptPath)

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	return tea.NewProgram(newModel(cfg, deps), opts...)
}

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

type (
	statusMessageTimeoutMsg struct{}
	statusMsg               string
)

// state is the top-level application state.
type state int

const (
	stateTitle state = iota
	stateStory
)

func (s state) String() string {
	return map[state]string{
		stateTitle: "showing title",
		stateStory: "showing story",
	}[s]
}

type model struct {
	cfg    Config
	deps   Deps
	keys   keyMap
	width  int
	height int

	state    state
	fatalErr error

	// Story
	passage  int
	ready    bool
	viewport viewport.Model

	// Overlays
	panel     *settingsPanel
	help      help.Model
	showHelp  bool
	spinner   spinner.Model
	statusMsg string

	watcher *scriptWatcher
}

func newModel(cfg Config, deps Deps) *model {
	if cfg.GlamourStyle == styles.AutoStyle {
		if te.HasDarkBackground() {
			cfg.GlamourStyle = styles.DarkStyle
		} else {
			cfg.GlamourStyle = styles.LightStyle
		}
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = sp.Style.Foreground(fuchsia)

	m := &model{
		cfg:      cfg,
		deps:     deps,
		keys:     newKeyMap(),
		state:    stateTitle,
		viewport: viewport.New(0, 0),
		help:     help.New(),
		spinner:  sp,
	}
	if deps.Script == nil || len(deps.Script.Passages) == 0 {
		m.fatalErr = script.ErrEmpty
	}
	if cfg.Watch && cfg.ScriptPath != "" {
		m.watcher = newScriptWatcher(cfg.ScriptPath)
	}
	return m
}

func (m *model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if m.watcher != nil {
		cmds = append(cmds, m.watcher.wait)
	}
	return tea.Batch(cmds...)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// If there's been an error, any key exits
	if m.fatalErr != nil {
		if _, ok := msg.(tea.KeyMsg); ok {
			return m, m.quit()
		}
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.panel != nil {
			var cmd tea.Cmd
			*m.panel, cmd = m.panel.update(msg)
			return m, cmd
		}
		return m, m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(0, msg.Height-statusBarHeight)
		if m.state == stateStory {
			return m, m.render()
		}

	case passageRenderedMsg:
		if m.state != stateStory || msg.index != m.passage {
			return m, nil
		}
		m.viewport.SetContent(msg.content)
		if !m.ready {
			m.ready = true
			return m, m.deps.Narrator.Update(narration.ReadyMsg{Ready: true})
		}

	case narration.SynthesizedMsg:
		return m, m.deps.Narrator.Update(msg)

	case settingsClosedMsg:
		m.panel = nil
		switch {
		case msg.err != nil:
			return m, m.showStatusMessage("Could not save settings")
		case msg.saved:
			return m, m.showStatusMessage("Settings saved")
		}

	case scriptReloadedMsg:
		m.deps.Script = msg.script
		cmds := []tea.Cmd{m.watcher.wait}
		if m.state == stateStory {
			cmds = append(cmds, m.goTo(min(m.passage, len(msg.script.Passages)-1)))
		}
		return m, tea.Batch(cmds...)

	case statusMsg:
		return m, m.showStatusMessage(string(msg))

	case statusMessageTimeoutMsg:
		m.statusMsg = ""

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case errMsg:
		log.Error("ui error", "error", msg.err)
		return m, m.showStatusMessage(msg.Error())
	}

	if m.state == stateStory {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Settings):
		p := newSettingsPanel(m.deps.Settings, m.keys)
		m.panel = &p
		return nil

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		return nil
	}

	switch m.state {
	case stateTitle:
		if key.Matches(msg, m.keys.Begin) {
			m.deps.Music.Begin()
			m.state = stateStory
			return m.goTo(0)
		}

	case stateStory:
		switch {
		case key.Matches(msg, m.keys.Next):
			if m.passage+1 < len(m.deps.Script.Passages) {
				return m.goTo(m.passage + 1)
			}
		case key.Matches(msg, m.keys.Prev):
			if m.passage > 0 {
				return m.goTo(m.passage - 1)
			}
		case key.Matches(msg, m.keys.Copy):
			return copyPassage(m.current().Narration)
		default:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return cmd
		}
	}
	return nil
}

// goTo shows passage i. Narration is held until the passage has rendered.
func (m *model) goTo(i int) tea.Cmd {
	m.passage = i
	m.ready = false
	m.viewport.GotoTop()

	return tea.Batch(
		m.deps.Narrator.Update(narration.ReadyMsg{Ready: false}),
		m.deps.Narrator.Update(narration.TextMsg{Text: m.current().Narration}),
		m.render(),
	)
}

func (m *model) render() tea.Cmd {
	return renderPassage(m.cfg, m.passage, m.current().Markdown, m.viewport.Width)
}

func (m *model) current() script.Passage {
	return m.deps.Script.Passages[m.passage]
}

func (m *model) quit() tea.Cmd {
	if m.watcher != nil {
		m.watcher.close()
	}
	return tea.Quit
}

func (m *model) showStatusMessage(s string) tea.Cmd {
	m.statusMsg = s
	return tea.Tick(statusMessageTimeout, func(time.Time) tea.Msg {
		return statusMessageTimeoutMsg{}
	})
}

func (m *model) View() string {
	if m.fatalErr != nil {
		return errorView(m.fatalErr, true)
	}

	var b strings.Builder
	switch m.state {
	case stateTitle:
		b.WriteString(m.titleView())
	case stateStory:
		b.WriteString(m.viewport.View() + "\n")
		m.statusBarView(&b)
	}

	if m.panel != nil {
		b.WriteString("\n" + indent(m.panel.view(), 2))
		b.WriteString(indent(m.help.View(settingsHelp(m.keys)), 2))
	} else if m.showHelp {
		b.WriteString("\n" + helpViewStyle(indent(m.help.View(m.keys), 2)))
	}
	return b.String()
}

func (m *model) titleView() string {
	title := m.deps.Script.Title
	if title == "" {
		title = "The Path Unfolds"
	}
	s := fmt.Sprintf("%s\n\n%s\n\n%s",
		titleStyle.Render(title),
		dimStyle(fmt.Sprintf("%d passages", len(m.deps.Script.Passages))),
		subtleStyle("press enter to begin • s settings • q quit"),
	)
	return "\n" + indent(s, 3)
}

func errorView(err error, fatal bool) string {
	exitMsg := "press any key to "
	if fatal {
		exitMsg += "exit"
	} else {
		exitMsg += "return"
	}
	s := fmt.Sprintf("%s\n\n%v\n\n%s",
		errorTitleStyle.Render("ERROR"),
		err,
		subtleStyle(exitMsg),
	)
	return "\n" + indent(s, 3)
}

// COMMANDS

func copyPassage(text string) tea.Cmd {
	return func() tea.Msg {
		if err := clipboard.WriteAll(text); err != nil {
			log.Debug("clipboard unavailable", "error", err)
			return statusMsg("Clipboard unavailable")
		}
		return statusMsg("Copied passage")
	}
}

// ETC

// Lightweight version of reflow's indent function.
func indent(s string, n int) string {
	if n <= 0 || s == "" {
		return s
	}
	l := strings.Split(s, "\n")
	b := strings.Builder{}
	i := strings.Repeat(" ", n)
	for _, v := range l {
		fmt.Fprintf(&b, "%s%s\n", i, v)
	}
	return b.String()
}
