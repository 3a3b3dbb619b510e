package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/pathunfolds/unfold/internal/audio"
	"github.com/pathunfolds/unfold/internal/metrics"
)

const (
	// DefaultBaseURL is the public ElevenLabs API.
	DefaultBaseURL = "https://api.elevenlabs.io"

	maxAudioSize = 32 << 20
	maxErrorSize = 64 << 10
)

// ElevenLabsConfig configures ElevenLabsClient.
type ElevenLabsConfig struct {
	APIKey       string
	BaseURL      string
	OutputFormat string

	// Timeout bounds a single HTTP round trip, defaults to 30s.
	Timeout time.Duration

	// RequestsPerMinute caps provider calls, defaults to 60.
	RequestsPerMinute int

	HTTPClient *http.Client
	Metrics    *metrics.Metrics
	Logger     *log.Logger
}

// ElevenLabsClient synthesizes speech with the ElevenLabs REST API.
type ElevenLabsClient struct {
	apiKey       string
	baseURL      string
	outputFormat string

	http        *http.Client
	rateLimiter *rate.Limiter
	metrics     *metrics.Metrics
	logger      *log.Logger
}

// NewElevenLabsClient creates a client, filling in defaults.
func NewElevenLabsClient(cfg ElevenLabsConfig) *ElevenLabsClient {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if strings.TrimSpace(cfg.OutputFormat) == "" {
		cfg.OutputFormat = DefaultOutputFormat
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerMinute == 0 {
		cfg.RequestsPerMinute = 60
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default().WithPrefix("tts")
	}

	return &ElevenLabsClient{
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		outputFormat: cfg.OutputFormat,
		http:         cfg.HTTPClient,
		rateLimiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 2),
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
	}
}

// Encoding implements Synthesizer.
func (c *ElevenLabsClient) Encoding() audio.Encoding {
	return audio.EncodingMP3
}

type synthesisBody struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

// Synthesize implements Synthesizer. It never retries.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if req.ModelID == "" {
		req.ModelID = DefaultModel
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, transportError(fmt.Errorf("rate limit wait cancelled: %w", err))
	}

	body, err := json.Marshal(synthesisBody{
		Text:          req.Text,
		ModelID:       req.ModelID,
		VoiceSettings: req.Settings,
	})
	if err != nil {
		return nil, providerError(0, "", fmt.Errorf("unable to encode request: %w", err))
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s",
		c.baseURL, url.PathEscape(req.VoiceID), url.QueryEscape(c.outputFormat))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, transportError(err)
	}
	httpReq.Header.Set("xi-api-key", c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/mpeg")

	start := time.Now()
	data, err := c.do(httpReq)
	c.metrics.ObserveSynthesis(time.Since(start), err)
	if err != nil {
		c.logger.Error("synthesis failed", "request", req.ID, "voice", req.VoiceID, "error", err)
		return nil, err
	}

	c.logger.Debug("synthesized", "request", req.ID, "bytes", len(data), "took", time.Since(start))
	return data, nil
}

func (c *ElevenLabsClient) do(req *http.Request) ([]byte, error) {
	res, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer res.Body.Close() //nolint:errcheck

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorSize))
		return nil, providerError(res.StatusCode, parseDetail(raw), nil)
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, maxAudioSize))
	if err != nil {
		return nil, transportError(fmt.Errorf("unable to read audio: %w", err))
	}
	if len(data) == 0 {
		return nil, providerError(res.StatusCode, "", ErrEmptyAudio)
	}
	return data, nil
}

// parseDetail extracts the provider's error message. The API reports either
// {"detail": {"message": ...}}, {"detail": "..."} or a validation list.
func parseDetail(raw []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || len(payload.Detail) == 0 {
		return strings.TrimSpace(string(raw))
	}

	var obj struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload.Detail, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}

	var s string
	if err := json.Unmarshal(payload.Detail, &s); err == nil {
		return s
	}

	var list []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &list); err == nil {
		msgs := make([]string, 0, len(list))
		for _, item := range list {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}

	return strings.TrimSpace(string(payload.Detail))
}

// ListVoices implements VoiceLister. Voices are sorted by name.
func (c *ElevenLabsClient) ListVoices(ctx context.Context) ([]Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/voices", nil)
	if err != nil {
		return nil, transportError(err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	data, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Voices []Voice `json:"voices"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, providerError(http.StatusOK, "invalid voices payload", err)
	}

	voices := make([]Voice, 0, len(parsed.Voices))
	for _, v := range parsed.Voices {
		v.ID = strings.TrimSpace(v.ID)
		v.Name = strings.TrimSpace(v.Name)
		if v.ID == "" || v.Name == "" {
			continue
		}
		voices = append(voices, v)
	}
	sort.Slice(voices, func(i, j int) bool {
		return strings.ToLower(voices[i].Name) < strings.ToLower(voices[j].Name)
	})
	return voices, nil
}

var _ interface {
	Synthesizer
	VoiceLister
} = (*ElevenLabsClient)(nil)
