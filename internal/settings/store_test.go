package settings

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestLoadDefaults(t *testing.T) {
	s := NewStore(NewMemoryBackend(nil), quietLogger())
	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got != Defaults() {
		t.Errorf("Load = %+v, want defaults %+v", got, Defaults())
	}
}

func TestLoadMalformedAndOutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		stored map[string]string
		want   Settings
	}{
		{
			name:   "valid",
			stored: map[string]string{KeyMusicVolume: "0.2", KeyNarratorVolume: "0.9", KeyMuted: "true"},
			want:   Settings{MusicVolume: 0.2, NarratorVolume: 0.9, Muted: true},
		},
		{
			name:   "malformed numbers",
			stored: map[string]string{KeyMusicVolume: "loud", KeyNarratorVolume: "", KeyMuted: "false"},
			want:   Settings{MusicVolume: 0.5, NarratorVolume: 0.5},
		},
		{
			name:   "malformed bool",
			stored: map[string]string{KeyMuted: "yes please"},
			want:   Defaults(),
		},
		{
			name:   "clamped",
			stored: map[string]string{KeyMusicVolume: "1.7", KeyNarratorVolume: "-3"},
			want:   Settings{MusicVolume: 1, NarratorVolume: 0},
		},
		{
			name:   "NaN",
			stored: map[string]string{KeyMusicVolume: "NaN"},
			want:   Defaults(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(NewMemoryBackend(tt.stored), quietLogger())
			got, err := s.Load(context.Background())
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Load = %+v, want %+v", got, tt.want)
			}
			if s.Current() != tt.want {
				t.Errorf("Current = %+v, want %+v", s.Current(), tt.want)
			}
		})
	}
}

func TestSaveNotifiesSubscribers(t *testing.T) {
	s := NewStore(NewMemoryBackend(nil), quietLogger())

	var first, second []Settings
	cancel := s.Subscribe(func(v Settings) { first = append(first, v) })
	s.Subscribe(func(v Settings) { second = append(second, v) })

	if err := s.Save(context.Background(), 0.3, 0.8, false); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	want := Settings{MusicVolume: 0.3, NarratorVolume: 0.8}
	if len(first) != 1 || first[0] != want {
		t.Errorf("first subscriber got %+v", first)
	}
	if len(second) != 1 || second[0] != want {
		t.Errorf("second subscriber got %+v", second)
	}

	cancel()
	cancel()
	if err := s.Save(context.Background(), 0.3, 0.8, true); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if len(first) != 1 {
		t.Errorf("cancelled subscriber notified again")
	}
	if len(second) != 2 || !second[1].Muted {
		t.Errorf("second subscriber got %+v", second)
	}
}

func TestSaveFailureKeepsSnapshot(t *testing.T) {
	backend := NewMemoryBackend(nil)
	backend.SetErr = errors.New("disk full")
	s := NewStore(backend, quietLogger())

	notified := false
	s.Subscribe(func(Settings) { notified = true })

	if err := s.Save(context.Background(), 0.1, 0.1, true); !errors.Is(err, backend.SetErr) {
		t.Fatalf("Save error = %v, want %v", err, backend.SetErr)
	}
	if notified {
		t.Error("subscriber notified of a failed save")
	}
	if s.Current() != Defaults() {
		t.Errorf("snapshot changed after failed save: %+v", s.Current())
	}
}

func TestRoundTripAcrossStores(t *testing.T) {
	backends := []struct {
		name string
		open func(t *testing.T, path string) Backend
	}{
		{"file", func(t *testing.T, path string) Backend {
			b, err := NewFileBackend(filepath.Join(path, "settings.yml"))
			if err != nil {
				t.Fatalf("NewFileBackend failed: %v", err)
			}
			return b
		}},
		{"sqlite", func(t *testing.T, path string) Backend {
			b, err := NewSQLiteBackend(filepath.Join(path, "settings.db"))
			if err != nil {
				t.Fatalf("NewSQLiteBackend failed: %v", err)
			}
			return b
		}},
	}

	for _, bb := range backends {
		t.Run(bb.name, func(t *testing.T) {
			dir := t.TempDir()

			first := NewStore(bb.open(t, dir), quietLogger())
			if err := first.Save(context.Background(), 0.25, 0.75, true); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			if err := first.Close(); err != nil {
				t.Fatalf("Close failed: %v", err)
			}

			second := NewStore(bb.open(t, dir), quietLogger())
			defer second.Close() //nolint:errcheck
			got, err := second.Load(context.Background())
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			want := Settings{MusicVolume: 0.25, NarratorVolume: 0.75, Muted: true}
			if got != want {
				t.Errorf("Load = %+v, want %+v", got, want)
			}
		})
	}
}

func TestGains(t *testing.T) {
	s := Settings{MusicVolume: 0.4, NarratorVolume: 0.6}
	if s.MusicGain() != 0.4 || s.NarratorGain() != 0.6 {
		t.Errorf("unmuted gains = %v, %v", s.MusicGain(), s.NarratorGain())
	}
	s.Muted = true
	if s.MusicGain() != 0 || s.NarratorGain() != 0 {
		t.Errorf("muted gains = %v, %v", s.MusicGain(), s.NarratorGain())
	}
}
