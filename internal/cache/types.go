package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Common errors for cache operations
var (
	// ErrItemTooLarge is returned when an item exceeds the cache capacity
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrCacheClosed is returned when the cache is used after Close
	ErrCacheClosed = errors.New("cache closed")
)

// Level represents the cache tier
type Level int

const (
	// LevelL1 represents the memory cache (fastest)
	LevelL1 Level = iota

	// LevelL2 represents the disk cache (persistent)
	LevelL2
)

// String returns the string representation of the cache level
func (l Level) String() string {
	switch l {
	case LevelL1:
		return "L1-Memory"
	case LevelL2:
		return "L2-Disk"
	default:
		return "Unknown"
	}
}

// Stats holds cache performance metrics
type Stats struct {
	Capacity  int64 // Maximum capacity in bytes
	Size      int64 // Current size in bytes
	ItemCount int64 // Number of items in cache

	Hits      int64
	Misses    int64
	Evictions int64
	HitRate   float64 // hits / (hits + misses)

	LastAccess time.Time
	LastEvict  time.Time
}

// snapshot returns s with the size and derived fields filled in.
func (s Stats) snapshot(size int64, items int) Stats {
	s.Size = size
	s.ItemCount = int64(items)
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

// Config holds configuration for the cache manager
type Config struct {
	// Memory cache (L1)
	MemoryCapacity int64 // Bytes

	// Disk cache (L2). An empty DiskPath disables the disk level.
	DiskCapacity     int64
	DiskPath         string
	CompressionLevel int // Zstd compression level, 0 disables compression

	// Cleanup settings
	TTL             time.Duration // Age before disk items expire
	CleanupInterval time.Duration // How often to run cleanup, 0 disables
}

// DefaultConfig returns default cache configuration
func DefaultConfig() *Config {
	return &Config{
		MemoryCapacity:   32 * 1024 * 1024,  // 32MB
		DiskCapacity:     512 * 1024 * 1024, // 512MB
		CompressionLevel: 3,
		TTL:              30 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// Key identifies one synthesized clip.
type Key struct {
	Text     string
	Voice    string
	Model    string
	Encoding string

	// Settings identifies the delivery settings the clip was made with.
	Settings string
}

// String returns the hashed cache key. Text is NFC-normalized and trimmed so
// visually identical passages share an entry.
func (k Key) String() string {
	text := norm.NFC.String(strings.TrimSpace(k.Text))
	data := strings.Join([]string{text, k.Voice, k.Model, k.Encoding, k.Settings}, "\x00")
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:16])
}
