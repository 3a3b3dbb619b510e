package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileBackendHandEdited(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yml")
	content := "musicVolume: 0.1\nnarratorVolume: \"0.2\"\nisMuted: true\nunknown: [1, 2]\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	b, err := NewFileBackend(path)
	if err != nil {
		t.Fatalf("NewFileBackend failed: %v", err)
	}
	got, err := b.Get(context.Background(), Keys...)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	want := map[string]string{KeyMusicVolume: "0.1", KeyNarratorVolume: "0.2", KeyMuted: "true"}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
}

func TestFileBackendCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yml")
	if err := os.WriteFile(path, []byte(":::not yaml"), 0o600); err != nil {
		t.Fatal(err)
	}

	b, err := NewFileBackend(path)
	if err != nil {
		t.Fatalf("NewFileBackend failed: %v", err)
	}
	s := NewStore(b, quietLogger())
	if _, err := s.Load(context.Background()); err == nil {
		t.Error("expected a load error for a corrupt file")
	}
	if s.Current() != Defaults() {
		t.Errorf("Current = %+v, want defaults", s.Current())
	}

	// Saving replaces the corrupt document.
	if err := s.Save(context.Background(), 0.9, 0.9, false); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := s.Load(context.Background()); err != nil {
		t.Errorf("Load after save failed: %v", err)
	}
}
