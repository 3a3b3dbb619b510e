package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# story script to play when none is given on the command line
# script: "~/stories/the-path.md"
# style name or JSON path (default "auto")
style: "auto"
# word-wrap at width (0 fits the terminal)
width: 0
# mouse support
mouse: false
# reload the script when it changes on disk
watch: false

# speech engine: elevenlabs or mock
engine: "elevenlabs"
# narrator voice id (see "unfold voices")
# voice: "onwK4e9ZLuTAKqWW03F9"

elevenlabs:
  # prefer the ELEVENLABS_API_KEY environment variable
  # api_key: ""
  requests_per_minute: 60
  timeout: "30s"

music:
  # looping background track (mp3)
  # track: "~/stories/the-path.mp3"

settings:
  # where volume and mute are saved: file or sqlite
  backend: "file"
  # path: ""

cache:
  # dir: ""
  memory_mb: 32
  disk_mb: 512
  ttl: "720h"

metrics:
  # serve prometheus metrics, e.g. "localhost:9464"
  # addr: ""
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the unfold config file",
	Long:    paragraph(fmt.Sprintf("\n%s the unfold config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("unfold config\nunfold config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Unfold", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
