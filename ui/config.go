package ui

// Config contains TUI-specific configuration.
type Config struct {
	GlamourMaxWidth uint
	GlamourStyle    string `env:"GLAMOUR_STYLE"`
	EnableMouse     bool

	// Story script path, empty when the script came from stdin.
	ScriptPath string

	// Reload the script when it changes on disk.
	Watch bool

	// For debugging the UI
	GlamourEnabled bool `env:"UNFOLD_ENABLE_GLAMOUR" envDefault:"true"`
}
