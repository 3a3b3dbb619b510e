package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const (
	indexName = "clips.index"
	clipExt   = ".clip"

	// Clips smaller than this are stored as-is.
	minCompressSize = 1024
)

// DiskCache is the L2 level. Each clip is a file under dir, optionally zstd
// compressed, and a gob index records what is stored so clips survive
// restarts.
type DiskCache struct {
	dir      string
	capacity int64

	enc *zstd.Encoder // nil when compression is off
	dec *zstd.Decoder

	mu    sync.Mutex
	used  int64
	index map[string]*diskEntry
	stats Stats
}

// diskEntry is persisted in the index file.
type diskEntry struct {
	File   string
	Bytes  int64 // on disk
	Raw    int64 // before compression
	Zstd   bool
	Stored time.Time
	Used   time.Time
}

// NewDiskCache opens or creates a disk cache in dir holding at most capacity
// bytes on disk. A compressionLevel of 0 stores clips uncompressed.
func NewDiskCache(dir string, capacity int64, compressionLevel int) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	dc := &DiskCache{
		dir:      dir,
		capacity: capacity,
		dec:      dec,
		index:    make(map[string]*diskEntry),
		stats:    Stats{Capacity: capacity},
	}

	if compressionLevel > 0 {
		level := zstd.EncoderLevelFromZstd(compressionLevel)
		if dc.enc, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(level)); err != nil {
			dec.Close()
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
	}

	// A damaged index only costs the cached clips.
	if err := dc.readIndex(); err != nil {
		dc.index = make(map[string]*diskEntry)
	}
	for _, e := range dc.index {
		dc.used += e.Bytes
	}
	return dc, nil
}

// Get reads the clip stored under key. Missing or corrupt files count as a
// miss and are dropped from the index.
func (dc *DiskCache) Get(key string) ([]byte, bool) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	e, ok := dc.index[key]
	if !ok {
		dc.stats.Misses++
		return nil, false
	}

	data, err := dc.readClip(e)
	if err != nil {
		dc.dropLocked(key)
		dc.stats.Misses++
		return nil, false
	}

	e.Used = time.Now()
	dc.stats.Hits++
	dc.stats.LastAccess = e.Used
	return data, true
}

// Put writes audio under key, evicting the least recently used clips when
// the disk budget is exceeded.
func (dc *DiskCache) Put(key string, audio []byte) error {
	data, compressed := dc.compress(audio)
	n := int64(len(data))
	if n > dc.capacity {
		return ErrItemTooLarge
	}

	dc.mu.Lock()
	defer dc.mu.Unlock()

	dc.dropLocked(key)
	for dc.used+n > dc.capacity {
		if !dc.evictLocked() {
			break
		}
	}

	file := dc.clipPath(key)
	if err := writeFileAtomic(file, data); err != nil {
		return fmt.Errorf("failed to write clip: %w", err)
	}

	now := time.Now()
	dc.index[key] = &diskEntry{
		File:   file,
		Bytes:  n,
		Raw:    int64(len(audio)),
		Zstd:   compressed,
		Stored: now,
		Used:   now,
	}
	dc.used += n
	return nil
}

func (dc *DiskCache) Delete(key string) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	dc.dropLocked(key)
	return nil
}

// Clear removes every clip and rewrites the index.
func (dc *DiskCache) Clear() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	for key := range dc.index {
		dc.dropLocked(key)
	}
	return dc.writeIndex()
}

// Contains reports whether key is indexed without touching its access time.
func (dc *DiskCache) Contains(key string) bool {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	_, ok := dc.index[key]
	return ok
}

// Size returns the bytes used on disk.
func (dc *DiskCache) Size() int64 {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.used
}

func (dc *DiskCache) Stats() Stats {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.stats.snapshot(dc.used, len(dc.index))
}

// RemoveOlderThan drops clips stored before cutoff.
func (dc *DiskCache) RemoveOlderThan(cutoff time.Time) int {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	removed := 0
	for key, e := range dc.index {
		if e.Stored.Before(cutoff) {
			dc.dropLocked(key)
			removed++
		}
	}
	return removed
}

// Close persists the index and releases the codecs.
func (dc *DiskCache) Close() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if dc.enc != nil {
		_ = dc.enc.Close()
	}
	dc.dec.Close()
	return dc.writeIndex()
}

func (dc *DiskCache) compress(audio []byte) ([]byte, bool) {
	if dc.enc == nil || len(audio) < minCompressSize {
		return audio, false
	}
	if z := dc.enc.EncodeAll(audio, nil); len(z) < len(audio) {
		return z, true
	}
	return audio, false
}

func (dc *DiskCache) readClip(e *diskEntry) ([]byte, error) {
	data, err := os.ReadFile(e.File)
	if err != nil || !e.Zstd {
		return data, err
	}
	return dc.dec.DecodeAll(data, nil)
}

func (dc *DiskCache) dropLocked(key string) {
	e, ok := dc.index[key]
	if !ok {
		return
	}
	_ = os.Remove(e.File)
	delete(dc.index, key)
	dc.used -= e.Bytes
}

func (dc *DiskCache) evictLocked() bool {
	var victim string
	var oldest time.Time
	for key, e := range dc.index {
		if victim == "" || e.Used.Before(oldest) {
			victim, oldest = key, e.Used
		}
	}
	if victim == "" {
		return false
	}
	dc.dropLocked(victim)
	dc.stats.Evictions++
	dc.stats.LastEvict = time.Now()
	return true
}

func (dc *DiskCache) clipPath(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(dc.dir, hex.EncodeToString(sum[:16])+clipExt)
}

func (dc *DiskCache) readIndex() error {
	data, err := os.ReadFile(filepath.Join(dc.dir, indexName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return gob.NewDecoder(bytes.NewReader(data)).Decode(&dc.index)
}

func (dc *DiskCache) writeIndex() error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(dc.index); err != nil {
		return fmt.Errorf("failed to encode cache index: %w", err)
	}
	return writeFileAtomic(filepath.Join(dc.dir, indexName), buf.Bytes())
}

// writeFileAtomic writes to a temp file, then renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil { //nolint:gosec
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
