package ui

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/pathunfolds/unfold/internal/settings"
)

const volumeStep = 0.05

type settingsRow int

const (
	rowMusic settingsRow = iota
	rowNarrator
	rowMute
	rowCount
)

// settingsClosedMsg is sent when the panel is dismissed.
type settingsClosedMsg struct {
	saved bool
	err   error
}

// settingsPanel edits a draft of the settings. Nothing changes until save.
type settingsPanel struct {
	store *settings.Store
	keys  keyMap
	row   settingsRow
	draft settings.Settings
}

func newSettingsPanel(store *settings.Store, keys keyMap) settingsPanel {
	return settingsPanel{
		store: store,
		keys:  keys,
		draft: store.Current(),
	}
}

func (p settingsPanel) update(msg tea.KeyMsg) (settingsPanel, tea.Cmd) {
	switch {
	case key.Matches(msg, p.keys.Cancel):
		return p, func() tea.Msg { return settingsClosedMsg{} }

	case key.Matches(msg, p.keys.Save):
		// Saved synchronously so subscribers update on the UI loop.
		err := p.store.Save(context.Background(), p.draft.MusicVolume, p.draft.NarratorVolume, p.draft.Muted)
		if err != nil {
			log.Error("unable to save settings", "error", err)
		}
		return p, func() tea.Msg { return settingsClosedMsg{saved: err == nil, err: err} }

	case key.Matches(msg, p.keys.Up):
		p.row = (p.row + rowCount - 1) % rowCount
	case key.Matches(msg, p.keys.Down):
		p.row = (p.row + 1) % rowCount
	case key.Matches(msg, p.keys.Lower):
		p.adjust(-volumeStep)
	case key.Matches(msg, p.keys.Raise):
		p.adjust(volumeStep)
	case key.Matches(msg, p.keys.Mute):
		p.draft.Muted = !p.draft.Muted
	}
	return p, nil
}

func (p *settingsPanel) adjust(delta float64) {
	step := func(v float64) float64 {
		v = math.Round((v+delta)/volumeStep) * volumeStep
		return math.Max(0, math.Min(1, v))
	}
	switch p.row {
	case rowMusic:
		p.draft.MusicVolume = step(p.draft.MusicVolume)
	case rowNarrator:
		p.draft.NarratorVolume = step(p.draft.NarratorVolume)
	case rowMute:
		p.draft.Muted = !p.draft.Muted
	}
}

func (p settingsPanel) view() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Settings") + "\n\n")

	rows := []string{
		fmt.Sprintf("Music     %s %3.0f%%", volumeBar(p.draft.MusicVolume), p.draft.MusicVolume*100),
		fmt.Sprintf("Narrator  %s %3.0f%%", volumeBar(p.draft.NarratorVolume), p.draft.NarratorVolume*100),
		fmt.Sprintf("Mute      %s", checkbox(p.draft.Muted)),
	}
	for i, r := range rows {
		if settingsRow(i) == p.row {
			b.WriteString(selectedItem("› " + r))
		} else {
			b.WriteString(dimStyle("  " + r))
		}
		b.WriteString("\n")
	}
	return panelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func volumeBar(v float64) string {
	const width = 20
	filled := int(math.Round(v * width))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}
