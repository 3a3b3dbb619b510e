// Package narration keeps synthesized speech in step with what the player is
// looking at.
//
// Manager owns the single live narration Handle and uses generation tokens to
// discard completions for text that has since been replaced. Gate decides
// whether the loaded handle is audible, from the external readiness signal and
// the persisted volume settings. Narrator wires both into a bubbletea program:
// synthesis runs in a tea.Cmd and comes back as a SynthesizedMsg.
package narration
