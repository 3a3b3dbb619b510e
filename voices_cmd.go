package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/pathunfolds/unfold/internal/tts"
)

var voicesCmd = &cobra.Command{
	Use:     "voices [FILTER]",
	Short:   "List the narrator voices available from ElevenLabs",
	Long:    paragraph(fmt.Sprintf("\n%s the voices your ElevenLabs account can use. Put a voice id in the config to change the narrator.", keyword("List"))),
	Example: paragraph("unfold voices\nunfold voices brit"),
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newElevenLabs(nil)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		voices, err := client.ListVoices(ctx)
		if err != nil {
			return fmt.Errorf("unable to list voices: %w", err)
		}

		if len(args) == 1 {
			voices = filterVoices(voices, args[0])
		}
		printVoices(cmd.OutOrStdout(), voices, voice().ID)
		return nil
	},
}

// voiceSource lets fuzzy search names and labels together.
type voiceSource []tts.Voice

func (v voiceSource) String(i int) string {
	parts := []string{v[i].Name, v[i].Category}
	for _, l := range v[i].Labels {
		parts = append(parts, l)
	}
	return strings.Join(parts, " ")
}

func (v voiceSource) Len() int { return len(v) }

// filterVoices returns the voices matching term, best match first.
func filterVoices(voices []tts.Voice, term string) []tts.Voice {
	matches := fuzzy.FindFrom(term, voiceSource(voices))
	out := make([]tts.Voice, 0, len(matches))
	for _, m := range matches {
		out = append(out, voices[m.Index])
	}
	return out
}

func printVoices(w io.Writer, voices []tts.Voice, current string) {
	if len(voices) == 0 {
		fmt.Fprintln(w, faint("No voices found."))
		return
	}

	nameWidth := 0
	for _, v := range voices {
		nameWidth = max(nameWidth, runewidth.StringWidth(v.Name))
	}
	for _, v := range voices {
		marker := "  "
		if v.ID == current {
			marker = keyword("• ")
		}
		fmt.Fprintf(w, "%s%s  %s  %s\n",
			marker,
			runewidth.FillRight(v.Name, nameWidth),
			v.ID,
			faint(v.Category),
		)
	}
}
