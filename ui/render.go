package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"
)

// passageRenderedMsg carries the rendered passage. Rendering completion is
// what makes narration audible.
type passageRenderedMsg struct {
	index   int
	content string
}

func renderPassage(cfg Config, index int, md string, width int) tea.Cmd {
	return func() tea.Msg {
		s, err := glamourRender(cfg, md, width)
		if err != nil {
			log.Error("error rendering with Glamour", "error", err)
			return errMsg{err}
		}
		return passageRenderedMsg{index: index, content: s}
	}
}

func glamourRender(cfg Config, markdown string, viewportWidth int) (string, error) {
	if !cfg.GlamourEnabled {
		return markdown, nil
	}

	width := viewportWidth
	if cfg.GlamourMaxWidth > 0 {
		width = max(0, min(int(cfg.GlamourMaxWidth), viewportWidth)) //nolint:gosec
	}

	r, err := glamour.NewTermRenderer(
		glamourStyle(cfg.GlamourStyle),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("error creating glamour renderer: %w", err)
	}

	out, err := r.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("error rendering markdown: %w", err)
	}
	return strings.TrimRight(out, "\n"), nil
}

// glamourStyle accepts a built-in style name or a path to a JSON style.
func glamourStyle(style string) glamour.TermRendererOption {
	if style == "" || style == styles.AutoStyle {
		return glamour.WithAutoStyle()
	}
	if _, ok := styles.DefaultStyles[style]; ok {
		return glamour.WithStandardStyle(style)
	}
	if path, err := homedir.Expand(style); err == nil {
		style = path
	}
	return glamour.WithStylePath(style)
}
