// Package main provides the entry point for the unfold CLI application.
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/pathunfolds/unfold/internal/script"
	"github.com/pathunfolds/unfold/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	style      string
	width      uint
	mouse      bool
	watch      bool
	debug      bool
	engine     string

	rootCmd = &cobra.Command{
		Use:   "unfold [SCRIPT]",
		Short: "Play a narrated story in the terminal",
		Long: paragraph(
			fmt.Sprintf("\nPlay %s: a narrated story with music, in the terminal.", keyword("The Path Unfolds")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return []string{"md"}, cobra.ShellCompDirectiveFilterFileExt
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
	}
)

// envConfig is read from the environment only.
type envConfig struct {
	ElevenLabsAPIKey string `env:"ELEVENLABS_API_KEY"`
	Debug            bool   `env:"UNFOLD_DEBUG"`
}

// validateStyle checks if the style is a default style, if not, checks that
// the custom style exists.
func validateStyle(style string) error {
	if style != styles.AutoStyle && styles.DefaultStyles[style] == nil {
		style, _ = homedir.Expand(style)
		if _, err := os.Stat(style); errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("specified style does not exist: %s", style)
		} else if err != nil {
			return fmt.Errorf("unable to stat file: %w", err)
		}
	}
	return nil
}

// applyConfigFile reads path in place of the config found in the default
// places.
func applyConfigFile(path string) error {
	path, err := homedir.Expand(path)
	if err != nil {
		return fmt.Errorf("unable to expand config path: %w", err)
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("unable to read config file %s: %w", path, err)
	}
	configFile = path
	log.Debug("Using configuration file", "path", path)
	return nil
}

func validateOptions(cmd *cobra.Command) error {
	if cmd.Flags().Changed("config") {
		if err := applyConfigFile(configFile); err != nil {
			return err
		}
	}

	// grab config values from Viper
	width = viper.GetUint("width")
	mouse = viper.GetBool("mouse")
	watch = viper.GetBool("watch")
	engine = viper.GetString("engine")

	ecfg, err := env.ParseAs[envConfig]()
	if err != nil {
		return fmt.Errorf("error parsing environment: %w", err)
	}
	debug = viper.GetBool("debug") || ecfg.Debug
	if debug {
		log.SetLevel(log.DebugLevel)
	}
	if ecfg.ElevenLabsAPIKey != "" {
		viper.Set("elevenlabs.api_key", ecfg.ElevenLabsAPIKey)
	}

	switch engine {
	case engineElevenLabs, engineMock:
	default:
		return fmt.Errorf("unknown engine %q: use %q or %q", engine, engineElevenLabs, engineMock)
	}

	switch b := viper.GetString("settings.backend"); b {
	case backendFile, backendSQLite:
	default:
		return fmt.Errorf("unknown settings backend %q: use %q or %q", b, backendFile, backendSQLite)
	}

	// validate the glamour style
	style = viper.GetString("style")
	if err := validateStyle(style); err != nil {
		return err
	}

	isTerminal := term.IsTerminal(int(os.Stdout.Fd()))
	if !isTerminal && !cmd.Flags().Changed("style") {
		style = styles.NoTTYStyle
	}

	// Detect terminal width
	if !cmd.Flags().Changed("width") && isTerminal && width == 0 {
		w, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err == nil {
			width = uint(w) //nolint:gosec
		}
		if width > 120 {
			width = 120
		}
	}
	return nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

func execute(_ *cobra.Command, args []string) error {
	path := viper.GetString("script")
	if len(args) == 1 {
		path = args[0]
	}

	// if stdin is a pipe then read the script from it. note that you can
	// also explicitly use a - to read from stdin.
	pipe, err := stdinIsPipe()
	if err != nil {
		return err
	}
	if path == "-" || (path == "" && pipe) {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("unable to read from stdin: %w", err)
		}
		s, err := script.Parse(b)
		if err != nil {
			return fmt.Errorf("unable to parse script: %w", err)
		}
		return runTUI("", s)
	}

	if path == "" {
		return errors.New("missing story script: pass a markdown file or set script in the config")
	}
	path, _ = homedir.Expand(path)
	s, err := script.Load(path)
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("unable to get absolute path: %w", err)
	}
	return runTUI(abs, s)
}

func runTUI(path string, s *script.Script) error {
	// Read environment to get debugging stuff
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	// use style set in env, or the configured one if unset
	if cfg.GlamourStyle == "" || validateStyle(cfg.GlamourStyle) != nil {
		cfg.GlamourStyle = style
	}

	cfg.ScriptPath = path
	cfg.Watch = watch && path != ""
	cfg.GlamourMaxWidth = width
	cfg.EnableMouse = mouse

	a, err := newApp(rootCmd.Context())
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	// Run Bubble Tea program
	deps := ui.Deps{
		Narrator: a.narrator,
		Music:    a.music,
		Settings: a.store,
		Script:   s,
	}
	if _, err := ui.NewProgram(cfg, deps).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	rootCmd.RunE = execute
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "write debug logs")
	rootCmd.PersistentFlags().StringVarP(&engine, "engine", "e", engineElevenLabs, "speech engine (elevenlabs or mock)")
	rootCmd.Flags().StringVarP(&style, "style", "s", styles.AutoStyle, "style name or JSON path")
	rootCmd.Flags().UintVarP(&width, "width", "w", 0, "word-wrap at width (set to 0 to fit the terminal)")
	rootCmd.Flags().BoolVar(&watch, "watch", false, "reload the script when it changes")
	rootCmd.Flags().BoolVarP(&mouse, "mouse", "m", false, "enable mouse wheel")
	rootCmd.Flags().String("metrics-addr", "", "serve prometheus metrics on this address")
	_ = rootCmd.Flags().MarkHidden("mouse")

	// Config bindings
	_ = viper.BindPFlag("style", rootCmd.Flags().Lookup("style"))
	_ = viper.BindPFlag("width", rootCmd.Flags().Lookup("width"))
	_ = viper.BindPFlag("watch", rootCmd.Flags().Lookup("watch"))
	_ = viper.BindPFlag("mouse", rootCmd.Flags().Lookup("mouse"))
	_ = viper.BindPFlag("metrics.addr", rootCmd.Flags().Lookup("metrics-addr"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("engine", rootCmd.PersistentFlags().Lookup("engine"))

	viper.SetDefault("style", styles.AutoStyle)
	viper.SetDefault("width", 0)
	viper.SetDefault("engine", engineElevenLabs)
	viper.SetDefault("voice", "")
	viper.SetDefault("music.track", "")
	viper.SetDefault("elevenlabs.base_url", "")
	viper.SetDefault("elevenlabs.requests_per_minute", 60)
	viper.SetDefault("elevenlabs.timeout", "30s")
	viper.SetDefault("settings.backend", backendFile)
	viper.SetDefault("settings.path", "")
	viper.SetDefault("cache.dir", "")
	viper.SetDefault("cache.memory_mb", 32)
	viper.SetDefault("cache.disk_mb", 512)
	viper.SetDefault("cache.ttl", "720h")

	rootCmd.AddCommand(configCmd, manCmd, voicesCmd, cacheCmd, settingsCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "unfold")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "unfold")}, dirs...)
	}

	if c := os.Getenv("UNFOLD_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("unfold")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("unfold")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	configFile = filepath.Join(dirs[0], "unfold.yml")
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
