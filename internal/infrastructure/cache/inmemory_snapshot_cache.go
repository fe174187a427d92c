package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/orderdesk/backend/internal/domain/stock"
)

// snapshotEntry holds a cached snapshot with its expiration
type snapshotEntry struct {
	snapshot  stock.StockSnapshot
	expiresAt time.Time
}

// InMemorySnapshotCache implements SnapshotCache using an in-memory map.
// Suitable for single-instance deployments and testing.
type InMemorySnapshotCache struct {
	mu        sync.RWMutex
	entries   map[uuid.UUID]snapshotEntry
	ttl       time.Duration
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemorySnapshotCache creates a new in-memory snapshot cache.
// It starts a background goroutine to clean up expired entries.
func NewInMemorySnapshotCache(ttl time.Duration) *InMemorySnapshotCache {
	c := &InMemorySnapshotCache{
		entries:  make(map[uuid.UUID]snapshotEntry),
		ttl:      ttl,
		stopChan: make(chan struct{}),
	}

	c.wg.Add(1)
	go c.cleanupLoop()

	return c
}

// Get returns the cached snapshot for a product, if present and not expired
func (c *InMemorySnapshotCache) Get(ctx context.Context, productID uuid.UUID) (*stock.StockSnapshot, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, exists := c.entries[productID]
	if !exists || time.Now().After(e.expiresAt) {
		return nil, false, nil
	}

	snapshot := e.snapshot
	return &snapshot, true, nil
}

// Set stores a snapshot with the configured TTL
func (c *InMemorySnapshotCache) Set(ctx context.Context, snapshot *stock.StockSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[snapshot.ProductID] = snapshotEntry{
		snapshot:  *snapshot,
		expiresAt: time.Now().Add(c.ttl),
	}
	return nil
}

// Invalidate drops the cached snapshot for a product
func (c *InMemorySnapshotCache) Invalidate(ctx context.Context, productID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, productID)
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (c *InMemorySnapshotCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired entries
func (c *InMemorySnapshotCache) cleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *InMemorySnapshotCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for id, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, id)
		}
	}
}

// Size returns the number of entries in the cache (for testing/monitoring)
func (c *InMemorySnapshotCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Ensure InMemorySnapshotCache implements SnapshotCache
var _ SnapshotCache = (*InMemorySnapshotCache)(nil)
