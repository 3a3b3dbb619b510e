package tts

import (
	"errors"
	"fmt"
)

// Kind classifies a synthesis failure.
type Kind int

const (
	// KindTransport means the provider could not be reached or its
	// response could not be read.
	KindTransport Kind = iota

	// KindProvider means the provider answered but refused the request, or
	// the request was rejected before sending.
	KindProvider
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindProvider:
		return "provider"
	default:
		return "unknown"
	}
}

// Validation errors, reported as KindProvider.
var (
	ErrEmptyText  = errors.New("text is empty")
	ErrNoVoice    = errors.New("voice id is empty")
	ErrEmptyAudio = errors.New("provider returned no audio")
)

// Error is returned by Synthesizer implementations.
type Error struct {
	Kind    Kind
	Status  int    // HTTP status, 0 when no response was received
	Message string // provider detail, when present
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("tts %s error: status %d: %s", e.Kind, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("tts %s error: status %d", e.Kind, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("tts %s error: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("tts %s error: %s", e.Kind, e.Message)
	}
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

func transportError(err error) *Error {
	return &Error{Kind: KindTransport, Err: err}
}

func providerError(status int, message string, err error) *Error {
	return &Error{Kind: KindProvider, Status: status, Message: message, Err: err}
}

// IsTransport reports whether err is a transport-class synthesis error.
func IsTransport(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindTransport
}

// IsProvider reports whether err is a provider-class synthesis error.
func IsProvider(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindProvider
}

func validate(req Request) error {
	switch {
	case req.Text == "":
		return providerError(0, "", ErrEmptyText)
	case req.VoiceID == "":
		return providerError(0, "", ErrNoVoice)
	}
	return nil
}
