// Package cache provides a two-level cache for synthesized narration audio.
// It includes an in-memory LRU cache (L1) and a persistent zstd-compressed
// disk cache (L2) with TTL cleanup, so replayed passages skip the provider.
package cache
