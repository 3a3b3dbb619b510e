// Package settings persists the player's audio preferences and pushes every
// change to the channels that depend on them.
package settings

import (
	"math"
	"strconv"
)

// Persisted keys.
const (
	KeyMusicVolume    = "musicVolume"
	KeyNarratorVolume = "narratorVolume"
	KeyMuted          = "isMuted"
)

// Keys lists every persisted key.
var Keys = []string{KeyMusicVolume, KeyNarratorVolume, KeyMuted}

const defaultVolume = 0.5

// Settings is the persisted preference snapshot.
type Settings struct {
	MusicVolume    float64 `json:"musicVolume" yaml:"musicVolume"`
	NarratorVolume float64 `json:"narratorVolume" yaml:"narratorVolume"`
	Muted          bool    `json:"isMuted" yaml:"isMuted"`
}

// Defaults returns the settings used when nothing has been saved.
func Defaults() Settings {
	return Settings{
		MusicVolume:    defaultVolume,
		NarratorVolume: defaultVolume,
	}
}

// MusicGain is the effective gain for the music channel.
func (s Settings) MusicGain() float64 {
	if s.Muted {
		return 0
	}
	return s.MusicVolume
}

// NarratorGain is the effective gain for the narration channel.
func (s Settings) NarratorGain() float64 {
	if s.Muted {
		return 0
	}
	return s.NarratorVolume
}

// Clamp returns s with both volumes in [0, 1].
func (s Settings) Clamp() Settings {
	s.MusicVolume = clampVolume(s.MusicVolume)
	s.NarratorVolume = clampVolume(s.NarratorVolume)
	return s
}

func clampVolume(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return defaultVolume
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// encode renders s as the persisted string values.
func (s Settings) encode() map[string]string {
	return map[string]string{
		KeyMusicVolume:    strconv.FormatFloat(s.MusicVolume, 'f', -1, 64),
		KeyNarratorVolume: strconv.FormatFloat(s.NarratorVolume, 'f', -1, 64),
		KeyMuted:          strconv.FormatBool(s.Muted),
	}
}
