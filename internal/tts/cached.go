package tts

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/pathunfolds/unfold/internal/audio"
	"github.com/pathunfolds/unfold/internal/cache"
	"github.com/pathunfolds/unfold/internal/metrics"
)

// CachedSynthesizer serves repeated passages from the audio cache.
type CachedSynthesizer struct {
	next    Synthesizer
	cache   *cache.Manager
	metrics *metrics.Metrics
	logger  *log.Logger
}

// NewCachedSynthesizer wraps next with cache lookups. Only successful
// syntheses are stored.
func NewCachedSynthesizer(next Synthesizer, c *cache.Manager, m *metrics.Metrics) *CachedSynthesizer {
	return &CachedSynthesizer{
		next:    next,
		cache:   c,
		metrics: m,
		logger:  log.Default().WithPrefix("tts-cache"),
	}
}

// Encoding implements Synthesizer.
func (s *CachedSynthesizer) Encoding() audio.Encoding {
	return s.next.Encoding()
}

// Synthesize implements Synthesizer.
func (s *CachedSynthesizer) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	key := s.key(req)
	if data, level, ok := s.cache.Lookup(key); ok {
		s.metrics.CacheLookup(levelLabel(level))
		s.logger.Debug("cache hit", "request", req.ID, "level", level)
		return data, nil
	}
	s.metrics.CacheLookup("miss")

	data, err := s.next.Synthesize(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Put(key, data); err != nil {
		// Non-fatal, the audio is still usable.
		s.logger.Warn("unable to cache audio", "request", req.ID, "error", err)
	}
	return data, nil
}

func (s *CachedSynthesizer) key(req Request) string {
	return CacheKey(req, s.next.Encoding())
}

// CacheKey returns the audio cache key for req synthesized as enc.
func CacheKey(req Request, enc audio.Encoding) string {
	model := req.ModelID
	if model == "" {
		model = DefaultModel
	}
	return cache.Key{
		Text:     req.Text,
		Voice:    req.VoiceID,
		Model:    model,
		Encoding: string(enc),
		Settings: req.Settings.String(),
	}.String()
}

func levelLabel(l cache.Level) string {
	if l == cache.LevelL2 {
		return "l2"
	}
	return "l1"
}
