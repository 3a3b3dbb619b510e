package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// Decode converts encoded audio into a Source in the device format.
// The returned source is owned by the caller.
func Decode(enc Encoding, data []byte, format Format, tracker *Tracker) (*Source, error) {
	if len(data) == 0 {
		return nil, ErrEmptyAudio
	}

	var (
		pcm []byte
		err error
	)
	switch enc {
	case EncodingMP3:
		pcm, err = decodeMP3(data, format)
	case EncodingPCM:
		pcm, err = convertMonoPCM(data, format)
	default:
		return nil, fmt.Errorf("%w: encoding %q", ErrUnsupportedFormat, enc)
	}
	if err != nil {
		return nil, err
	}
	if len(pcm) == 0 {
		return nil, ErrEmptyAudio
	}

	return NewSource(pcm, format, tracker), nil
}

// DecodeFile reads an MP3 track from r, used for the background music.
func DecodeFile(r io.Reader, format Format, tracker *Tracker) (*Source, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read audio: %w", err)
	}
	return Decode(EncodingMP3, data, format, tracker)
}

// decodeMP3 decodes MP3 data. go-mp3 always produces 16-bit stereo.
func decodeMP3(data []byte, format Format) ([]byte, error) {
	d, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if d.SampleRate() != format.SampleRate {
		return nil, fmt.Errorf("%w: sample rate %d, device expects %d",
			ErrUnsupportedFormat, d.SampleRate(), format.SampleRate)
	}

	pcm, err := io.ReadAll(d)
	if err != nil {
		return nil, fmt.Errorf("unable to decode mp3: %w", err)
	}

	if format.Channels == 1 {
		return downmixStereo(pcm), nil
	}
	return pcm, nil
}

// convertMonoPCM expands mono 16-bit PCM to the device channel count.
func convertMonoPCM(data []byte, format Format) ([]byte, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("%w: odd PCM length %d", ErrUnsupportedFormat, len(data))
	}
	if format.Channels == 1 {
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}

	out := make([]byte, 0, len(data)*format.Channels)
	for i := 0; i < len(data); i += 2 {
		for c := 0; c < format.Channels; c++ {
			out = append(out, data[i], data[i+1])
		}
	}
	return out, nil
}

func downmixStereo(pcm []byte) []byte {
	out := make([]byte, 0, len(pcm)/2)
	for i := 0; i+3 < len(pcm); i += 4 {
		l := int32(int16(binary.LittleEndian.Uint16(pcm[i:])))
		r := int32(int16(binary.LittleEndian.Uint16(pcm[i+2:])))
		out = binary.LittleEndian.AppendUint16(out, uint16(int16((l+r)/2)))
	}
	return out
}
