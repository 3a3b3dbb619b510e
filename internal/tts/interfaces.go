package tts

import (
	"context"

	"github.com/pathunfolds/unfold/internal/audio"
)

// Synthesizer converts a request into encoded audio.
type Synthesizer interface {
	// Synthesize returns the audio bytes for req. The error, if any, is a
	// *Error describing whether the provider was reachable.
	Synthesize(ctx context.Context, req Request) ([]byte, error)

	// Encoding reports how the returned bytes are encoded.
	Encoding() audio.Encoding
}

// VoiceLister lists the voices a provider offers.
type VoiceLister interface {
	ListVoices(ctx context.Context) ([]Voice, error)
}
