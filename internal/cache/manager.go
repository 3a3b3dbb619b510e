package cache

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Manager coordinates the memory and disk cache levels, promoting disk hits
// into memory and expiring old disk entries in the background.
type Manager struct {
	l1Memory *MemoryCache
	l2Disk   *DiskCache // nil when the disk level is disabled

	config *Config
	logger *log.Logger

	// Background work
	writes        sync.WaitGroup
	cleanupStop   chan struct{}
	cleanupTicker *time.Ticker
	cleanupWg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
	stats  ManagerStats
}

// ManagerStats aggregates statistics across cache levels.
type ManagerStats struct {
	TotalHits   int64
	TotalMisses int64
	L1Hits      int64
	L2Hits      int64
	Promotions  int64
	WriteErrors int64
	CleanupRuns int64
	LastCleanup time.Time

	L1 Stats
	L2 Stats
}

// HitRate returns hits / (hits + misses).
func (s ManagerStats) HitRate() float64 {
	total := s.TotalHits + s.TotalMisses
	if total == 0 {
		return 0
	}
	return float64(s.TotalHits) / float64(total)
}

// NewManager creates a new cache manager with the specified configuration.
func NewManager(config *Config, logger *log.Logger) (*Manager, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = log.Default()
	}

	cm := &Manager{
		l1Memory:    NewMemoryCache(config.MemoryCapacity),
		config:      config,
		logger:      logger,
		cleanupStop: make(chan struct{}),
	}

	if config.DiskPath != "" {
		l2Disk, err := NewDiskCache(config.DiskPath, config.DiskCapacity, config.CompressionLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to create disk cache: %w", err)
		}
		cm.l2Disk = l2Disk
	}

	if config.CleanupInterval > 0 && cm.l2Disk != nil {
		cm.startCleanupRoutine()
	}

	return cm, nil
}

// Lookup retrieves a value from the cache hierarchy, memory first, and
// reports which level served the hit.
func (cm *Manager) Lookup(key string) ([]byte, Level, bool) {
	if data, ok := cm.l1Memory.Get(key); ok {
		cm.mu.Lock()
		cm.stats.L1Hits++
		cm.stats.TotalHits++
		cm.mu.Unlock()
		return data, LevelL1, true
	}

	if cm.l2Disk != nil {
		if data, ok := cm.l2Disk.Get(key); ok {
			cm.mu.Lock()
			cm.stats.L2Hits++
			cm.stats.TotalHits++
			cm.stats.Promotions++
			cm.mu.Unlock()

			// Promotion is best-effort
			_ = cm.l1Memory.Put(key, data)
			return data, LevelL2, true
		}
	}

	cm.mu.Lock()
	cm.stats.TotalMisses++
	cm.mu.Unlock()
	return nil, LevelL1, false
}

// Put stores a value in memory immediately and on disk asynchronously.
func (cm *Manager) Put(key string, value []byte) error {
	cm.mu.Lock()
	if cm.closed {
		cm.mu.Unlock()
		return ErrCacheClosed
	}
	// Register the write while holding the lock so Close waits for it.
	if cm.l2Disk != nil {
		cm.writes.Add(1)
	}
	cm.mu.Unlock()

	if err := cm.l1Memory.Put(key, value); err != nil && !errors.Is(err, ErrItemTooLarge) {
		if cm.l2Disk != nil {
			cm.writes.Done()
		}
		return fmt.Errorf("L1 cache error: %w", err)
	}

	if cm.l2Disk != nil {
		go func() {
			defer cm.writes.Done()
			if err := cm.l2Disk.Put(key, value); err != nil && !errors.Is(err, ErrItemTooLarge) {
				cm.mu.Lock()
				cm.stats.WriteErrors++
				cm.mu.Unlock()
				cm.logger.Warn("disk cache write failed", "key", key, "error", err)
			}
		}()
	}

	return nil
}

// Delete removes an entry from all cache levels.
func (cm *Manager) Delete(key string) error {
	_ = cm.l1Memory.Delete(key)
	if cm.l2Disk != nil {
		return cm.l2Disk.Delete(key)
	}
	return nil
}

// Clear removes all entries from all cache levels.
func (cm *Manager) Clear() error {
	cm.writes.Wait()

	var errs []error
	if err := cm.l1Memory.Clear(); err != nil {
		errs = append(errs, fmt.Errorf("L1 clear: %w", err))
	}
	if cm.l2Disk != nil {
		if err := cm.l2Disk.Clear(); err != nil {
			errs = append(errs, fmt.Errorf("L2 clear: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Stats returns aggregated statistics from all cache levels.
func (cm *Manager) Stats() ManagerStats {
	cm.mu.Lock()
	stats := cm.stats
	cm.mu.Unlock()

	stats.L1 = cm.l1Memory.Stats()
	if cm.l2Disk != nil {
		stats.L2 = cm.l2Disk.Stats()
	}
	return stats
}

// Flush waits for pending disk writes.
func (cm *Manager) Flush() {
	cm.writes.Wait()
}

// Close stops cleanup, waits for pending writes and saves the disk index.
func (cm *Manager) Close() error {
	cm.mu.Lock()
	if cm.closed {
		cm.mu.Unlock()
		return nil
	}
	cm.closed = true
	cm.mu.Unlock()

	if cm.cleanupTicker != nil {
		close(cm.cleanupStop)
		cm.cleanupWg.Wait()
		cm.cleanupTicker.Stop()
	}

	cm.writes.Wait()

	if cm.l2Disk != nil {
		if err := cm.l2Disk.Close(); err != nil {
			return fmt.Errorf("failed to close disk cache: %w", err)
		}
	}
	return nil
}

// startCleanupRoutine starts the background cleanup goroutine.
func (cm *Manager) startCleanupRoutine() {
	cm.cleanupTicker = time.NewTicker(cm.config.CleanupInterval)
	cm.cleanupWg.Add(1)

	go func() {
		defer cm.cleanupWg.Done()
		for {
			select {
			case <-cm.cleanupTicker.C:
				cm.performCleanup()
			case <-cm.cleanupStop:
				return
			}
		}
	}()
}

// performCleanup expires old entries from both levels.
func (cm *Manager) performCleanup() {
	cm.mu.Lock()
	cm.stats.CleanupRuns++
	cm.stats.LastCleanup = time.Now()
	cm.mu.Unlock()

	if cm.config.TTL <= 0 {
		return
	}
	if cm.l2Disk != nil {
		if removed := cm.l2Disk.RemoveOlderThan(time.Now().Add(-cm.config.TTL)); removed > 0 {
			cm.logger.Debug("expired disk cache entries", "removed", removed)
		}
	}
	cm.l1Memory.Prune(cm.config.TTL)
}
