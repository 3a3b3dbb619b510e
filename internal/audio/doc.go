// Package audio provides playback channels backed by the oto/v3 library,
// decoding of synthesized audio into PCM, and ownership-tracked sources.
package audio
