package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pathunfolds/unfold/internal/audio"
	"github.com/pathunfolds/unfold/internal/cache"
	"github.com/pathunfolds/unfold/internal/tts"
)

var (
	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the narration audio cache",
		Args:  cobra.NoArgs,
	}

	cacheStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show cache size and location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCache(func(c *cache.Manager, cfg *cache.Config) error {
				printCacheStats(cmd.OutOrStdout(), c.Stats(), cfg)
				return nil
			})
		},
	}

	cacheClearCmd = &cobra.Command{
		Use:     "clear [TEXT]",
		Short:   "Delete cached narration, all of it or for one text",
		Example: paragraph("unfold cache clear\nunfold cache clear \"You stand before the gate.\""),
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(func(c *cache.Manager, _ *cache.Config) error {
				if len(args) == 1 {
					n, err := forgetText(c, args[0])
					if err != nil {
						return fmt.Errorf("unable to delete narration: %w", err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d cached clip(s).\n", n)
					return nil
				}

				freed := c.Stats().L2.Size
				if err := c.Clear(); err != nil {
					return fmt.Errorf("unable to clear cache: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s of narration.\n", humanize.IBytes(uint64(freed))) //nolint:gosec
				return nil
			})
		},
	}
)

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd)
}

func withCache(fn func(*cache.Manager, *cache.Config) error) error {
	cfg, err := cacheConfig(false)
	if err != nil {
		return err
	}
	c, err := cache.NewManager(cfg, log.Default().WithPrefix("cache"))
	if err != nil {
		return fmt.Errorf("unable to open audio cache: %w", err)
	}
	defer c.Close() //nolint:errcheck
	return fn(c, cfg)
}

func printCacheStats(w io.Writer, s cache.ManagerStats, cfg *cache.Config) {
	fmt.Fprintf(w, "%s %s\n", keyword("Location:"), cfg.DiskPath)
	fmt.Fprintf(w, "%s %d clips, %s of %s\n",
		keyword("Disk:    "),
		s.L2.ItemCount,
		humanize.IBytes(uint64(s.L2.Size)),        //nolint:gosec
		humanize.IBytes(uint64(cfg.DiskCapacity)), //nolint:gosec
	)
	last := "never"
	if !s.L2.LastAccess.IsZero() {
		last = humanize.Time(s.L2.LastAccess)
	}
	fmt.Fprintf(w, "%s %s\n", keyword("Used:    "), last)
	fmt.Fprintf(w, "%s %s\n", keyword("Expires: "), faint("after "+cfg.TTL.String()))
}

// forgetText deletes the clips for text in the configured voice, whichever
// engine produced them.
func forgetText(c *cache.Manager, text string) (int, error) {
	req := tts.NewRequest(text, voice())
	deleted := 0
	for _, enc := range []audio.Encoding{audio.EncodingMP3, audio.EncodingPCM} {
		key := tts.CacheKey(req, enc)
		if _, _, ok := c.Lookup(key); !ok {
			continue
		}
		if err := c.Delete(key); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}
