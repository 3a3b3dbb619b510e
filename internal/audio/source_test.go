package audio

import (
	"testing"
	"time"
)

func TestSourceReleaseOnce(t *testing.T) {
	tracker := NewTracker()
	src := NewSource(make([]byte, 8), DefaultFormat(), tracker)

	if tracker.Live() != 1 {
		t.Fatalf("expected 1 live source, got %d", tracker.Live())
	}
	if !src.Release() {
		t.Fatal("first Release should report true")
	}
	if src.Release() {
		t.Error("second Release should report false")
	}
	if src.Bytes() != nil {
		t.Error("released source should drop its data")
	}
	if tracker.Live() != 0 || tracker.Released() != 1 || tracker.Created() != 1 {
		t.Errorf("tracker mismatch: live=%d released=%d created=%d",
			tracker.Live(), tracker.Released(), tracker.Created())
	}
}

func TestSourceNilTracker(t *testing.T) {
	src := NewSource([]byte{1, 2, 3, 4}, DefaultFormat(), nil)
	if !src.Release() {
		t.Error("Release without tracker should still succeed")
	}

	var nilSource *Source
	if nilSource.Release() {
		t.Error("Release on nil source should be a no-op")
	}
}

func TestSourceDuration(t *testing.T) {
	format := DefaultFormat()
	src := NewSource(make([]byte, format.BytesPerSecond()*2), format, nil)
	if got := src.Duration(); got != 2*time.Second {
		t.Errorf("Duration() = %v, want 2s", got)
	}
}

func TestSourceIDsUnique(t *testing.T) {
	a := NewSource([]byte{0, 0}, DefaultFormat(), nil)
	b := NewSource([]byte{0, 0}, DefaultFormat(), nil)
	if a.ID() == b.ID() {
		t.Error("source IDs should be unique")
	}
}

func TestNilTrackerCounters(t *testing.T) {
	var tr *Tracker
	if tr.Live() != 0 || tr.Created() != 0 || tr.Released() != 0 {
		t.Error("nil tracker should report zero")
	}
}
