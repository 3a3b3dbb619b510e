package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	gap "github.com/muesli/go-app-paths"
	"gopkg.in/yaml.v3"
)

// FileBackend stores settings as a YAML document.
type FileBackend struct {
	path string
	mu   sync.Mutex
}

// DefaultFilePath returns settings.yml in the user's data directory.
func DefaultFilePath() (string, error) {
	scope := gap.NewScope(gap.User, "unfold")
	return scope.DataPath("settings.yml")
}

// NewFileBackend returns a backend writing to path. The file is created on
// the first save.
func NewFileBackend(path string) (*FileBackend, error) {
	if path == "" {
		var err error
		if path, err = DefaultFilePath(); err != nil {
			return nil, fmt.Errorf("unable to locate data directory: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("unable to create settings directory: %w", err)
	}
	return &FileBackend{path: path}, nil
}

// Path returns the settings file location.
func (b *FileBackend) Path() string {
	return b.path
}

func (b *FileBackend) Get(_ context.Context, keys ...string) (map[string]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	all, err := b.read()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := all[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (b *FileBackend) SetAll(_ context.Context, values map[string]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	all, err := b.read()
	if err != nil {
		// A corrupt file is replaced rather than blocking every save.
		all = make(map[string]string)
	}
	for k, v := range values {
		all[k] = v
	}

	data, err := yaml.Marshal(all)
	if err != nil {
		return fmt.Errorf("unable to encode settings: %w", err)
	}

	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("unable to write settings: %w", err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("unable to write settings: %w", err)
	}
	return nil
}

func (b *FileBackend) Close() error { return nil }

func (b *FileBackend) read() (map[string]string, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read settings: %w", err)
	}

	// Values are decoded as strings so a hand-edited `isMuted: true` and
	// `isMuted: "true"` mean the same thing.
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unable to parse settings: %w", err)
	}
	out := make(map[string]string, len(raw))
	for k, node := range raw {
		if node.Kind == yaml.ScalarNode {
			out[k] = node.Value
		}
	}
	return out, nil
}
