// Package metrics exposes Prometheus instruments for synthesis, caching and
// playback.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by unfold. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	SynthesisRequests *prometheus.CounterVec
	SynthesisLatency  prometheus.Histogram
	CacheLookups      *prometheus.CounterVec
	NarrationOutcomes *prometheus.CounterVec
	PlaybackErrors    *prometheus.CounterVec
	LiveSources       prometheus.Gauge
}

// New creates the instruments on a private registry.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		SynthesisRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_requests_total",
			Help:      "Speech synthesis requests by result.",
		}, []string{"result"}),
		SynthesisLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "synthesis_latency_ms",
			Help:      "Provider round trip in milliseconds.",
			Buckets:   []float64{100, 250, 500, 750, 1000, 1500, 2500, 5000},
		}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_cache_lookups_total",
			Help:      "Audio cache lookups by result (l1, l2, miss).",
		}, []string{"result"}),
		NarrationOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "narration_outcomes_total",
			Help:      "Synthesis completions by outcome.",
		}, []string{"outcome"}),
		PlaybackErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_errors_total",
			Help:      "Channels that refused to start playback.",
		}, []string{"channel"}),
		LiveSources: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_audio_sources",
			Help:      "Decoded audio sources not yet released.",
		}),
	}
}

// ObserveSynthesis records one provider call.
func (m *Metrics) ObserveSynthesis(d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.SynthesisRequests.WithLabelValues(result).Inc()
	m.SynthesisLatency.Observe(float64(d.Milliseconds()))
}

// CacheLookup records a cache lookup result.
func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// NarrationOutcome records what happened to a completed synthesis.
func (m *Metrics) NarrationOutcome(outcome string) {
	if m == nil {
		return
	}
	m.NarrationOutcomes.WithLabelValues(outcome).Inc()
}

// PlaybackError records a failed Play on the named channel.
func (m *Metrics) PlaybackError(channel string) {
	if m == nil {
		return
	}
	m.PlaybackErrors.WithLabelValues(channel).Inc()
}

// SetLiveSources updates the live source gauge.
func (m *Metrics) SetLiveSources(n int) {
	if m == nil {
		return
	}
	m.LiveSources.Set(float64(n))
}

// Gatherer returns the registry backing these metrics.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes Handler on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx) //nolint:contextcheck
	}()

	log.Debug("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
