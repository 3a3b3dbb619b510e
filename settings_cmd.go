package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pathunfolds/unfold/internal/settings"
)

var (
	settingsCmd = &cobra.Command{
		Use:   "settings",
		Short: "Show the saved volume and mute settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openSettings(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck
			printSettings(cmd.OutOrStdout(), store.Current())
			return nil
		},
	}

	settingsSetCmd = &cobra.Command{
		Use:     "set",
		Short:   "Change the saved volume and mute settings",
		Example: paragraph("unfold settings set --music 0.3\nunfold settings set --mute"),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := openSettings(ctx)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			s := store.Current()
			flags := cmd.Flags()
			if flags.Changed("music") {
				s.MusicVolume, _ = flags.GetFloat64("music")
			}
			if flags.Changed("narrator") {
				s.NarratorVolume, _ = flags.GetFloat64("narrator")
			}
			if flags.Changed("mute") {
				s.Muted, _ = flags.GetBool("mute")
			}

			if err := store.Save(ctx, s.MusicVolume, s.NarratorVolume, s.Muted); err != nil {
				return fmt.Errorf("unable to save settings: %w", err)
			}
			printSettings(cmd.OutOrStdout(), store.Current())
			return nil
		},
	}
)

func init() {
	settingsSetCmd.Flags().Float64("music", 0, "music volume between 0 and 1")
	settingsSetCmd.Flags().Float64("narrator", 0, "narrator volume between 0 and 1")
	settingsSetCmd.Flags().Bool("mute", false, "mute all audio (--mute=false to unmute)")
	settingsCmd.AddCommand(settingsSetCmd)
}

func printSettings(w io.Writer, s settings.Settings) {
	muted := "no"
	if s.Muted {
		muted = "yes"
	}
	fmt.Fprintf(w, "%s %3.0f%%\n", keyword("Music:   "), s.MusicVolume*100)
	fmt.Fprintf(w, "%s %3.0f%%\n", keyword("Narrator:"), s.NarratorVolume*100)
	fmt.Fprintf(w, "%s %s\n", keyword("Muted:   "), muted)
}
