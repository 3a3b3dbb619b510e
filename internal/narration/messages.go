package narration

import (
	"github.com/pathunfolds/unfold/internal/audio"
	"github.com/pathunfolds/unfold/internal/tts"
)

// TextMsg asks for new narration text.
type TextMsg struct {
	Text string
}

// ReadyMsg carries the external readiness signal.
type ReadyMsg struct {
	Ready bool
}

// SynthesizedMsg is the result of a synthesis command. Source is owned by
// whoever receives the message.
type SynthesizedMsg struct {
	Token   uint64
	Request tts.Request
	Source  *audio.Source
	Err     error
}
