package tts

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/pathunfolds/unfold/internal/cache"
)

func newTestCache(t *testing.T) *cache.Manager {
	t.Helper()
	cfg := cache.DefaultConfig()
	cfg.CleanupInterval = 0
	m, err := cache.NewManager(cfg, log.New(io.Discard))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestCachedSynthesizerReplays(t *testing.T) {
	mock := NewMockSynthesizer()
	s := NewCachedSynthesizer(mock, newTestCache(t), nil)

	first, err := s.Synthesize(context.Background(), NewRequest("Hello", Voice{ID: "v"}))
	if err != nil {
		t.Fatalf("first Synthesize failed: %v", err)
	}
	// Same passage with different surrounding whitespace.
	second, err := s.Synthesize(context.Background(), NewRequest("Hello \n", Voice{ID: "v"}))
	if err != nil {
		t.Fatalf("second Synthesize failed: %v", err)
	}

	if len(mock.Calls()) != 1 {
		t.Errorf("provider called %d times, want 1", len(mock.Calls()))
	}
	if string(first) != string(second) {
		t.Error("cached audio differs")
	}
	if s.Encoding() != mock.Encoding() {
		t.Errorf("encoding = %s, want %s", s.Encoding(), mock.Encoding())
	}

	if _, err := s.Synthesize(context.Background(), NewRequest("Hello", Voice{ID: "other"})); err != nil {
		t.Fatal(err)
	}
	if len(mock.Calls()) != 2 {
		t.Errorf("different voice should miss the cache")
	}
}

func TestCachedSynthesizerDoesNotCacheErrors(t *testing.T) {
	boom := providerError(500, "boom", nil)
	mock := NewMockSynthesizer()
	mock.Err = boom
	s := NewCachedSynthesizer(mock, newTestCache(t), nil)

	for i := 0; i < 2; i++ {
		if _, err := s.Synthesize(context.Background(), NewRequest("Hello", Voice{ID: "v"})); !errors.Is(err, boom) {
			t.Fatalf("error = %v, want %v", err, boom)
		}
	}
	if len(mock.Calls()) != 2 {
		t.Errorf("provider called %d times, want 2", len(mock.Calls()))
	}
}

func TestCachedSynthesizerKeysOnVoiceSettings(t *testing.T) {
	mock := NewMockSynthesizer()
	s := NewCachedSynthesizer(mock, newTestCache(t), nil)
	ctx := context.Background()

	req := NewRequest("Hello", Voice{ID: "v"})
	if _, err := s.Synthesize(ctx, req); err != nil {
		t.Fatal(err)
	}

	calmer := NewRequest("Hello", Voice{ID: "v"})
	calmer.Settings.Stability = 0.2
	if _, err := s.Synthesize(ctx, calmer); err != nil {
		t.Fatal(err)
	}
	if len(mock.Calls()) != 2 {
		t.Errorf("provider called %d times, want 2", len(mock.Calls()))
	}
}
