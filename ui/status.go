package ui

import (
	"fmt"
	"strings"

	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"

	"github.com/pathunfolds/unfold/internal/audio"
)

func (m *model) statusBarView(b *strings.Builder) {
	logo := logoStyle("unfold")

	pos := statusBarPosStyle(fmt.Sprintf(" %d/%d ", m.passage+1, len(m.deps.Script.Passages)))
	helpNote := statusBarHelpStyle(" ? Help ")

	// The narration indicator only shows on the story screen.
	var indicator string
	n := m.deps.Narrator
	switch {
	case m.statusMsg != "":
	case n.Err() != "":
		indicator = statusBarErrorStyle(" " + n.Err() + " ")
	case n.Loading():
		indicator = narratingStyle(" " + m.spinner.View() + " ")
	case n.State() == audio.StatePlaying:
		indicator = narratingStyle(" ♪ ")
	}

	note := m.current().Title
	style := statusBarNoteStyle
	if m.statusMsg != "" {
		note = m.statusMsg
		style = statusBarMessageStyle
	}
	note = truncate.StringWithTail(" "+note+" ", uint(max(0, //nolint:gosec
		m.width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(indicator)-
			ansi.PrintableRuneWidth(pos)-
			ansi.PrintableRuneWidth(helpNote),
	)), ellipsis)
	note = style(note)

	padding := max(0,
		m.width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(note)-
			ansi.PrintableRuneWidth(indicator)-
			ansi.PrintableRuneWidth(pos)-
			ansi.PrintableRuneWidth(helpNote),
	)
	emptySpace := style(strings.Repeat(" ", padding))

	fmt.Fprintf(b, "%s%s%s%s%s%s",
		logo,
		note,
		emptySpace,
		indicator,
		pos,
		helpNote,
	)
}
