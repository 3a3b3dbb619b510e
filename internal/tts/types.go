package tts

import (
	"fmt"

	"github.com/google/uuid"
)

const (
	// DefaultModel is the provider model used when none is configured.
	DefaultModel = "eleven_turbo_v2_5"

	// DefaultVoiceID is the narrator voice used when none is configured.
	DefaultVoiceID = "onwK4e9ZLuTAKqWW03F9"

	// DefaultOutputFormat is 44.1kHz MP3, matching the audio device rate.
	DefaultOutputFormat = "mp3_44100_128"
)

// Voice identifies a provider voice.
type Voice struct {
	ID       string            `json:"voice_id"`
	Name     string            `json:"name"`
	Category string            `json:"category,omitempty"`
	Labels   map[string]string `json:"labels,omitempty"`
}

// VoiceSettings tunes the provider's delivery.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// String renders the settings in a stable form, used in cache keys.
func (v VoiceSettings) String() string {
	return fmt.Sprintf("stability=%g similarity=%g style=%g boost=%t",
		v.Stability, v.SimilarityBoost, v.Style, v.UseSpeakerBoost)
}

// DefaultVoiceSettings returns the narrator delivery settings.
func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{
		Stability:       0.7,
		SimilarityBoost: 0.97,
		Style:           1,
		UseSpeakerBoost: true,
	}
}

// Request is one narration request. It is immutable once created.
type Request struct {
	ID       string
	Text     string
	VoiceID  string
	ModelID  string
	Settings VoiceSettings
}

// NewRequest creates a request with a fresh ID and default model and settings.
func NewRequest(text string, voice Voice) Request {
	return Request{
		ID:       uuid.NewString(),
		Text:     text,
		VoiceID:  voice.ID,
		ModelID:  DefaultModel,
		Settings: DefaultVoiceSettings(),
	}
}
