package audio

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// Device owns the process-wide oto context. oto allows a single context per
// process, so every channel is created from the same Device.
type Device struct {
	context *oto.Context
	format  Format
}

var (
	deviceOnce sync.Once
	device     *Device
	deviceErr  error
)

// OpenDevice initializes the audio device on first use and returns it.
func OpenDevice(format Format) (*Device, error) {
	deviceOnce.Do(func() {
		if err := validateFormat(format); err != nil {
			deviceErr = fmt.Errorf("invalid format: %w", err)
			return
		}

		op := &oto.NewContextOptions{
			SampleRate:   format.SampleRate,
			ChannelCount: format.Channels,
			Format:       oto.FormatSignedInt16LE,
		}

		ctx, readyChan, err := oto.NewContext(op)
		if err != nil {
			deviceErr = fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
			return
		}

		// Wait for context to be ready
		<-readyChan

		device = &Device{context: ctx, format: format}
		log.Debug("audio device opened", "sampleRate", format.SampleRate, "channels", format.Channels)
	})
	return device, deviceErr
}

// Format returns the PCM layout the device plays.
func (d *Device) Format() Format {
	return d.format
}

// NewChannel creates an independent playback channel on the device.
func (d *Device) NewChannel(name string) *OtoChannel {
	return &OtoChannel{
		name:    name,
		context: d.context,
		format:  d.format,
		gain:    1.0,
	}
}

func validateFormat(format Format) error {
	// OTO only supports specific sample rates reliably
	if format.SampleRate != 44100 && format.SampleRate != 48000 {
		return fmt.Errorf("sample rate must be 44100 or 48000 Hz, got %d", format.SampleRate)
	}
	if format.Channels != 1 && format.Channels != 2 {
		return fmt.Errorf("channels must be 1 (mono) or 2 (stereo), got %d", format.Channels)
	}
	if format.BitDepth != 16 {
		return fmt.Errorf("bit depth must be 16, got %d", format.BitDepth)
	}
	return nil
}

// OtoChannel implements Channel on an oto player.
type OtoChannel struct {
	name    string
	context *oto.Context
	format  Format

	mu     sync.Mutex
	player *oto.Player
	reader *pcmReader
	source *Source
	gain   float64
	loop   bool
}

var _ Channel = (*OtoChannel)(nil)

// Load replaces the current source and leaves playback paused at zero.
func (c *OtoChannel) Load(src *Source) error {
	if src == nil {
		return ErrNoSource
	}
	if src.Released() {
		return ErrReleased
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()

	reader := newPCMReader(src.Bytes(), c.loop)
	player := c.context.NewPlayer(reader)
	player.SetVolume(c.gain)

	c.player = player
	c.reader = reader
	c.source = src
	return nil
}

// Play starts playback. Errors reported by oto are wrapped in ErrPlayback.
func (c *OtoChannel) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.player == nil {
		return ErrNoSource
	}
	if c.source.Released() {
		c.stopLocked()
		return ErrReleased
	}

	c.player.Play()
	if err := c.player.Err(); err != nil {
		c.player.Pause()
		return fmt.Errorf("%w: %s: %v", ErrPlayback, c.name, err)
	}
	return nil
}

// Pause holds playback at the current position.
func (c *OtoChannel) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.player != nil {
		c.player.Pause()
	}
}

// Rewind moves playback back to the start of the source.
func (c *OtoChannel) Rewind() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.player == nil {
		return ErrNoSource
	}
	// Seeking the player also drops audio it has already buffered.
	if _, err := c.player.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("unable to rewind %s: %w", c.name, err)
	}
	return nil
}

// Stop halts playback and forgets the borrowed source.
func (c *OtoChannel) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *OtoChannel) stopLocked() {
	if c.player != nil {
		c.player.Pause()
		if err := c.player.Close(); err != nil {
			log.Debug("error closing player", "channel", c.name, "error", err)
		}
	}
	c.player = nil
	c.reader = nil
	c.source = nil
}

// SetGain applies the output gain immediately.
func (c *OtoChannel) SetGain(gain float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gain = clampGain(gain)
	if c.player != nil {
		c.player.SetVolume(c.gain)
	}
}

// SetLoop toggles looping for the current and future sources.
func (c *OtoChannel) SetLoop(loop bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.loop = loop
	if c.reader != nil {
		c.reader.loop.Store(loop)
	}
}

// IsPlaying returns whether audio is currently playing.
func (c *OtoChannel) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.player != nil && c.player.IsPlaying()
}

// Position returns how far into the source playback has progressed.
func (c *OtoChannel) Position() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.player == nil || c.reader == nil {
		return 0
	}
	played := c.reader.pos.Load() - int64(c.player.BufferedSize())
	if played < 0 {
		played = 0
	}
	return c.format.Duration(played)
}

// Close stops playback. The oto context is shared and stays open.
func (c *OtoChannel) Close() error {
	c.Stop()
	return nil
}

// pcmReader feeds PCM to oto and tracks the read offset. Reads happen on
// oto's goroutine, so the offset and loop flag are atomic.
type pcmReader struct {
	data []byte
	pos  atomic.Int64
	loop atomic.Bool
}

func newPCMReader(data []byte, loop bool) *pcmReader {
	r := &pcmReader{data: data}
	r.loop.Store(loop)
	return r
}

func (r *pcmReader) Read(p []byte) (int, error) {
	pos := r.pos.Load()
	if pos >= int64(len(r.data)) {
		if !r.loop.Load() || len(r.data) == 0 {
			return 0, io.EOF
		}
		pos = 0
	}
	n := copy(p, r.data[pos:])
	r.pos.Store(pos + int64(n))
	return n, nil
}

func (r *pcmReader) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = r.pos.Load() + offset
	case io.SeekEnd:
		abs = int64(len(r.data)) + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, fmt.Errorf("negative position %d", abs)
	}
	r.pos.Store(abs)
	return abs, nil
}
