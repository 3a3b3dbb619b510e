package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"

	"github.com/pathunfolds/unfold/internal/audio"
	"github.com/pathunfolds/unfold/internal/cache"
	"github.com/pathunfolds/unfold/internal/metrics"
	"github.com/pathunfolds/unfold/internal/music"
	"github.com/pathunfolds/unfold/internal/narration"
	"github.com/pathunfolds/unfold/internal/settings"
	"github.com/pathunfolds/unfold/internal/tts"
)

const (
	engineElevenLabs = "elevenlabs"
	engineMock       = "mock"

	backendFile   = "file"
	backendSQLite = "sqlite"
)

// app holds everything the story needs and tears it down in order.
type app struct {
	cancel   context.CancelFunc
	tracker  *audio.Tracker
	cache    *cache.Manager
	store    *settings.Store
	narrator *narration.Narrator
	music    *music.Controller
}

func newApp(ctx context.Context) (*app, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	a := &app{cancel: cancel, tracker: audio.NewTracker()}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	m := metrics.New("unfold")
	if addr := viper.GetString("metrics.addr"); addr != "" {
		go func() {
			if err := m.Serve(ctx, addr); err != nil {
				log.Error("metrics server stopped", "error", err)
			}
		}()
	}

	device, err := audio.OpenDevice(audio.DefaultFormat())
	if err != nil {
		return nil, fmt.Errorf("unable to open audio device: %w", err)
	}

	if a.cache, err = openCache(); err != nil {
		return nil, err
	}
	synth, err := newSynthesizer(m)
	if err != nil {
		return nil, err
	}
	synth = tts.NewCachedSynthesizer(synth, a.cache, m)

	if a.store, err = openSettings(ctx); err != nil {
		return nil, err
	}

	a.narrator = narration.New(ctx, narration.Config{
		Synthesizer: synth,
		Voice:       voice(),
		Channel:     device.NewChannel("narration"),
		Settings:    a.store,
		Format:      device.Format(),
		Tracker:     a.tracker,
		Metrics:     m,
		Logger:      log.Default().WithPrefix("narrator"),
	})

	var track *audio.Source
	if path := viper.GetString("music.track"); path != "" {
		track, err = music.OpenTrack(path, device.Format(), a.tracker)
		if err != nil {
			// The story still works without music.
			log.Warn("unable to open music track", "path", path, "error", err)
		}
	}
	a.music = music.NewController(device.NewChannel("music"), track, a.store, m, log.Default().WithPrefix("music"))
	ok = true
	return a, nil
}

// Close releases audio, settings and cache in dependency order.
func (a *app) Close() error {
	var errs []error
	if a.narrator != nil {
		errs = append(errs, a.narrator.Close())
	}
	if a.music != nil {
		errs = append(errs, a.music.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	a.cancel()

	if live := a.tracker.Live(); live > 0 {
		log.Warn("audio sources still live at exit", "count", live)
	}
	return errors.Join(errs...)
}

func newSynthesizer(m *metrics.Metrics) (tts.Synthesizer, error) {
	switch viper.GetString("engine") {
	case engineMock:
		return tts.NewMockSynthesizer(), nil
	default:
		return newElevenLabs(m)
	}
}

func newElevenLabs(m *metrics.Metrics) (*tts.ElevenLabsClient, error) {
	key := viper.GetString("elevenlabs.api_key")
	if key == "" {
		return nil, errors.New("no ElevenLabs API key: set ELEVENLABS_API_KEY or elevenlabs.api_key, or use --engine mock")
	}
	return tts.NewElevenLabsClient(tts.ElevenLabsConfig{
		APIKey:            key,
		BaseURL:           viper.GetString("elevenlabs.base_url"),
		Timeout:           viper.GetDuration("elevenlabs.timeout"),
		RequestsPerMinute: viper.GetInt("elevenlabs.requests_per_minute"),
		Metrics:           m,
		Logger:            log.Default().WithPrefix("elevenlabs"),
	}), nil
}

func voice() tts.Voice {
	id := viper.GetString("voice")
	if id == "" {
		id = tts.DefaultVoiceID
	}
	return tts.Voice{ID: id}
}

// cacheConfig builds the audio cache configuration. Background cleanup is
// only wanted by long-running commands.
func cacheConfig(cleanup bool) (*cache.Config, error) {
	cfg := cache.DefaultConfig()
	cfg.MemoryCapacity = viper.GetInt64("cache.memory_mb") * 1024 * 1024
	cfg.DiskCapacity = viper.GetInt64("cache.disk_mb") * 1024 * 1024
	if ttl := viper.GetDuration("cache.ttl"); ttl > 0 {
		cfg.TTL = ttl
	}
	if !cleanup {
		cfg.CleanupInterval = 0
	}

	dir := viper.GetString("cache.dir")
	if dir == "" {
		base, err := gap.NewScope(gap.User, "unfold").CacheDir()
		if err != nil {
			return nil, fmt.Errorf("unable to locate cache directory: %w", err)
		}
		dir = filepath.Join(base, "audio")
	}
	dir, err := homedir.Expand(dir)
	if err != nil {
		return nil, fmt.Errorf("unable to expand cache directory: %w", err)
	}
	cfg.DiskPath = dir
	return cfg, nil
}

func openCache() (*cache.Manager, error) {
	cfg, err := cacheConfig(true)
	if err != nil {
		return nil, err
	}
	c, err := cache.NewManager(cfg, log.Default().WithPrefix("cache"))
	if err != nil {
		return nil, fmt.Errorf("unable to open audio cache: %w", err)
	}
	return c, nil
}

func openSettingsBackend() (settings.Backend, error) {
	path := viper.GetString("settings.path")
	if path != "" {
		var err error
		if path, err = homedir.Expand(path); err != nil {
			return nil, fmt.Errorf("unable to expand settings path: %w", err)
		}
	}

	switch viper.GetString("settings.backend") {
	case backendSQLite:
		if path == "" {
			p, err := gap.NewScope(gap.User, "unfold").DataPath("settings.db")
			if err != nil {
				return nil, fmt.Errorf("unable to locate data directory: %w", err)
			}
			path = p
		}
		return settings.NewSQLiteBackend(path) //nolint:wrapcheck
	default:
		return settings.NewFileBackend(path) //nolint:wrapcheck
	}
}

// openSettings opens the configured backend and loads the saved values.
func openSettings(ctx context.Context) (*settings.Store, error) {
	backend, err := openSettingsBackend()
	if err != nil {
		return nil, err
	}
	store := settings.NewStore(backend, log.Default().WithPrefix("settings"))

	loadCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := store.Load(loadCtx); err != nil {
		// Defaults stay in effect.
		log.Warn("unable to load settings", "error", err)
	}
	return store, nil
}
