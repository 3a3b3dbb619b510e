// Package tts turns narration text into encoded speech audio.
//
// The production engine is ElevenLabsClient, which calls the ElevenLabs
// text-to-speech REST API. CachedSynthesizer layers the two-level audio cache
// in front of any engine, and MockSynthesizer produces a deterministic tone
// for tests and offline demos.
//
// Synthesize blocks; callers run it off the UI loop (a tea.Cmd) and pass a
// context so teardown can abandon in-flight calls.
package tts
