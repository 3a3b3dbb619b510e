package audio

import (
	"errors"
	"time"
)

// Common audio errors.
var (
	// ErrEmptyAudio is returned when there is no audio data to decode or play.
	ErrEmptyAudio = errors.New("audio data is empty")

	// ErrUnsupportedFormat is returned when decoded audio does not match the device format.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrPlayback is returned when the audio engine refuses to start playback.
	ErrPlayback = errors.New("playback failed")

	// ErrNoSource is returned when a channel is asked to play with nothing loaded.
	ErrNoSource = errors.New("no audio source loaded")

	// ErrReleased is returned when a released source is loaded into a channel.
	ErrReleased = errors.New("audio source already released")

	// ErrDeviceUnavailable indicates the audio device cannot be opened.
	ErrDeviceUnavailable = errors.New("audio device unavailable")
)

// Encoding identifies how synthesized audio bytes are encoded.
type Encoding string

const (
	// EncodingMP3 is MPEG-1/2 layer III audio, the provider default.
	EncodingMP3 Encoding = "mp3"

	// EncodingPCM is raw signed 16-bit little endian mono PCM.
	EncodingPCM Encoding = "pcm"
)

// Format describes the PCM layout played by a device.
type Format struct {
	SampleRate int // Hz
	Channels   int // 1 = mono, 2 = stereo
	BitDepth   int // bits per sample, always 16
}

// DefaultFormat returns the device format. go-mp3 always decodes to 16-bit
// stereo, so the device runs stereo at the provider's 44.1kHz rate.
func DefaultFormat() Format {
	return Format{
		SampleRate: 44100,
		Channels:   2,
		BitDepth:   16,
	}
}

// FrameSize returns the number of bytes per sample frame.
func (f Format) FrameSize() int {
	return f.Channels * f.BitDepth / 8
}

// BytesPerSecond returns the PCM byte rate.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.FrameSize()
}

// Duration converts a PCM byte count into playback time.
func (f Format) Duration(n int64) time.Duration {
	bps := f.BytesPerSecond()
	if bps == 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(bps)
}
