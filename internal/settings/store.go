package settings

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"
)

// Store is the single writer of persisted settings. Channel controllers
// subscribe to it and receive every successful save.
type Store struct {
	backend Backend
	logger  *log.Logger

	saveMu sync.Mutex // serializes Load and Save

	mu      sync.RWMutex
	current Settings
	subs    map[int]func(Settings)
	nextSub int
}

// NewStore returns a store over backend. Current reports the defaults until
// Load is called.
func NewStore(backend Backend, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default().WithPrefix("settings")
	}
	return &Store{
		backend: backend,
		logger:  logger,
		current: Defaults(),
		subs:    make(map[int]func(Settings)),
	}
}

// Load reads the persisted settings. Missing or malformed values fall back to
// their defaults and volumes are clamped to [0, 1]. Subscribers are notified.
func (s *Store) Load(ctx context.Context) (Settings, error) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	raw, err := s.backend.Get(ctx, Keys...)
	if err != nil {
		return s.Current(), fmt.Errorf("unable to load settings: %w", err)
	}

	loaded := Defaults()
	if v, ok := raw[KeyMusicVolume]; ok {
		loaded.MusicVolume = s.parseVolume(KeyMusicVolume, v)
	}
	if v, ok := raw[KeyNarratorVolume]; ok {
		loaded.NarratorVolume = s.parseVolume(KeyNarratorVolume, v)
	}
	if v, ok := raw[KeyMuted]; ok {
		muted, err := strconv.ParseBool(v)
		if err != nil {
			s.logger.Warn("ignoring malformed setting", "key", KeyMuted, "value", v)
		} else {
			loaded.Muted = muted
		}
	}
	loaded = loaded.Clamp()

	s.publish(loaded)
	return loaded, nil
}

func (s *Store) parseVolume(key, v string) float64 {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		s.logger.Warn("ignoring malformed setting", "key", key, "value", v)
		return defaultVolume
	}
	return f
}

// Save persists all three values in one backend write. The snapshot changes
// and subscribers are notified only after the write succeeds. Subscribers are
// called synchronously and must not call Save.
func (s *Store) Save(ctx context.Context, musicVolume, narratorVolume float64, muted bool) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	next := Settings{
		MusicVolume:    musicVolume,
		NarratorVolume: narratorVolume,
		Muted:          muted,
	}.Clamp()

	if err := s.backend.SetAll(ctx, next.encode()); err != nil {
		return fmt.Errorf("unable to save settings: %w", err)
	}

	s.logger.Debug("settings saved",
		"music", next.MusicVolume, "narrator", next.NarratorVolume, "muted", next.Muted)
	s.publish(next)
	return nil
}

// Current returns the last loaded or saved settings.
func (s *Store) Current() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Subscribe registers fn for every future change. The returned func removes
// the subscription.
func (s *Store) Subscribe(fn func(Settings)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// publish stores next and notifies subscribers in registration order.
func (s *Store) publish(next Settings) {
	s.mu.Lock()
	s.current = next
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Settings), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(next)
	}
}
