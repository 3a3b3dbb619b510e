package audio

import (
	"io"
	"testing"
	"time"
)

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		name      string
		format    Format
		expectErr bool
	}{
		{name: "default", format: DefaultFormat()},
		{name: "48000 mono", format: Format{SampleRate: 48000, Channels: 1, BitDepth: 16}},
		{name: "invalid sample rate", format: Format{SampleRate: 22050, Channels: 2, BitDepth: 16}, expectErr: true},
		{name: "invalid channels", format: Format{SampleRate: 44100, Channels: 3, BitDepth: 16}, expectErr: true},
		{name: "invalid bit depth", format: Format{SampleRate: 44100, Channels: 2, BitDepth: 24}, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFormat(tt.format)
			if tt.expectErr && err == nil {
				t.Errorf("validateFormat() expected error but got none")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("validateFormat() unexpected error: %v", err)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	f := DefaultFormat()
	if f.FrameSize() != 4 {
		t.Errorf("FrameSize() = %d, want 4", f.FrameSize())
	}
	if got := f.Duration(int64(f.BytesPerSecond() / 2)); got != 500*time.Millisecond {
		t.Errorf("Duration() = %v, want 500ms", got)
	}
	if got := (Format{}).Duration(100); got != 0 {
		t.Errorf("zero format Duration() = %v, want 0", got)
	}
}

func TestPCMReaderEOF(t *testing.T) {
	r := newPCMReader([]byte{1, 2, 3, 4}, false)
	buf := make([]byte, 3)

	n, err := r.Read(buf)
	if n != 3 || err != nil {
		t.Fatalf("Read() = %d, %v", n, err)
	}
	n, _ = r.Read(buf)
	if n != 1 {
		t.Fatalf("second Read() = %d, want 1", n)
	}
	if _, err := r.Read(buf); err != io.EOF {
		t.Errorf("expected EOF, got %v", err)
	}
}

func TestPCMReaderLoop(t *testing.T) {
	r := newPCMReader([]byte{1, 2}, true)
	buf := make([]byte, 2)

	for i := 0; i < 3; i++ {
		n, err := r.Read(buf)
		if err != nil || n != 2 || buf[0] != 1 {
			t.Fatalf("iteration %d: Read() = %d, %v, %v", i, n, err, buf)
		}
	}

	r.loop.Store(false)
	if _, err := r.Read(buf); err != io.EOF {
		t.Errorf("expected EOF after loop disabled, got %v", err)
	}
}

func TestPCMReaderSeek(t *testing.T) {
	r := newPCMReader([]byte{1, 2, 3, 4}, false)

	if pos, err := r.Seek(2, io.SeekStart); err != nil || pos != 2 {
		t.Fatalf("Seek(2, start) = %d, %v", pos, err)
	}
	if pos, _ := r.Seek(-1, io.SeekEnd); pos != 3 {
		t.Errorf("Seek(-1, end) = %d, want 3", pos)
	}
	if pos, _ := r.Seek(-1, io.SeekCurrent); pos != 2 {
		t.Errorf("Seek(-1, current) = %d, want 2", pos)
	}
	if _, err := r.Seek(-10, io.SeekStart); err == nil {
		t.Error("expected error for negative position")
	}
	if _, err := r.Seek(0, 42); err == nil {
		t.Error("expected error for invalid whence")
	}
}

func TestClampGain(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.5, 0.5},
		{-1, 0},
		{2, 1},
	}
	for _, tt := range tests {
		if got := clampGain(tt.in); got != tt.want {
			t.Errorf("clampGain(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
