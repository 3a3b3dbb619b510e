package tts

import (
	"context"
	"encoding/binary"
	"math"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/pathunfolds/unfold/internal/audio"
)

// MockSynthesizer produces a sine tone whose length follows the text length.
// It is used by tests and by --engine mock.
type MockSynthesizer struct {
	SampleRate int
	Frequency  float64

	// Delay simulates provider latency.
	Delay time.Duration

	// Err, when set, is returned instead of audio.
	Err error

	// FailOn maps text to the error returned for it.
	FailOn map[string]error

	mu    sync.Mutex
	calls []Request
}

// NewMockSynthesizer returns a mock producing 44.1kHz audio.
func NewMockSynthesizer() *MockSynthesizer {
	return &MockSynthesizer{
		SampleRate: audio.DefaultFormat().SampleRate,
		Frequency:  220,
	}
}

// Encoding implements Synthesizer. The mock returns mono PCM.
func (m *MockSynthesizer) Encoding() audio.Encoding {
	return audio.EncodingPCM
}

// Synthesize implements Synthesizer.
func (m *MockSynthesizer) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	failErr := m.Err
	if err, ok := m.FailOn[req.Text]; ok {
		failErr = err
	}
	m.mu.Unlock()

	if err := validate(req); err != nil {
		return nil, err
	}

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, transportError(ctx.Err())
		}
	}

	if failErr != nil {
		return nil, failErr
	}
	return m.tone(utf8.RuneCountInString(req.Text)), nil
}

// Calls returns the requests received so far.
func (m *MockSynthesizer) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.calls...)
}

// tone renders 40ms of audio per character, at least 200ms.
func (m *MockSynthesizer) tone(chars int) []byte {
	rate := m.SampleRate
	if rate == 0 {
		rate = audio.DefaultFormat().SampleRate
	}
	d := time.Duration(chars) * 40 * time.Millisecond
	if d < 200*time.Millisecond {
		d = 200 * time.Millisecond
	}

	samples := int(d.Seconds() * float64(rate))
	out := make([]byte, 0, samples*2)
	for i := 0; i < samples; i++ {
		v := 0.3 * math.Sin(2*math.Pi*m.Frequency*float64(i)/float64(rate))
		out = binary.LittleEndian.AppendUint16(out, uint16(int16(v*math.MaxInt16)))
	}
	return out
}
