// Package linkcache memoizes candidate generation per vocabulary snapshot.
//
// The cache key is a content hash over all four tier tables, so any edit to
// the vocabulary produces a different key and therefore a miss; there is no
// separate invalidation call. Concurrent requests for the same key are
// coalesced into a single in-flight computation.
package linkcache

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ecorisk/causelink/internal/generator"
	"github.com/ecorisk/causelink/pkg/models"
)

// DefaultMaxEntries bounds the cache when no limit is configured.
const DefaultMaxEntries = 32

// Metrics tracks cache effectiveness.
type Metrics struct {
	Hits              int64
	Misses            int64
	CoalescedRequests int64
	Evictions         int64
}

// Stats returns the current cache statistics.
func (m *Metrics) Stats() map[string]int64 {
	return map[string]int64{
		"hits":               atomic.LoadInt64(&m.Hits),
		"misses":             atomic.LoadInt64(&m.Misses),
		"coalesced_requests": atomic.LoadInt64(&m.CoalescedRequests),
		"evictions":          atomic.LoadInt64(&m.Evictions),
	}
}

type entry struct {
	result    *generator.Result
	createdAt time.Time
}

// Cache is a bounded, content-addressed memo of generation results.
type Cache struct {
	group      singleflight.Group
	mu         sync.RWMutex
	entries    map[uint64]*entry
	maxEntries int
	metrics    Metrics
	logger     zerolog.Logger
}

// New creates a cache holding at most maxEntries snapshots.
func New(maxEntries int, logger zerolog.Logger) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{
		entries:    make(map[uint64]*entry, maxEntries),
		maxEntries: maxEntries,
		logger:     logger.With().Str("component", "linkcache").Logger(),
	}
}

// SnapshotHash computes a stable content hash of a vocabulary snapshot.
// Items are hashed in tier order and id order, so logically identical
// snapshots hash identically regardless of slice ordering, and any
// content change (new, edited or removed item) changes the hash.
func SnapshotHash(vocab *models.Vocabulary) uint64 {
	digest := xxhash.New()

	for _, tier := range models.AllTiers {
		items := vocab.TierItems(tier)
		sorted := make([]models.VocabularyItem, len(items))
		copy(sorted, items)
		sortByID(sorted)

		_, _ = digest.WriteString(string(tier))
		_, _ = digest.WriteString("\x1e")
		for _, item := range sorted {
			_, _ = digest.WriteString(item.ID)
			_, _ = digest.WriteString("\x1f")
			_, _ = digest.WriteString(item.Name)
			_, _ = digest.WriteString("\x1f")
			_, _ = digest.WriteString(strconv.Itoa(item.HierarchyLevel))
			_, _ = digest.WriteString("\x1f")
			_, _ = digest.WriteString(item.Category)
			_, _ = digest.WriteString("\x1e")
		}
	}

	return digest.Sum64()
}

// GetOrCompute returns the cached result for the snapshot, or runs compute
// exactly once per key: a second caller requesting the same hash while a
// computation is in flight waits for that computation instead of
// duplicating it.
func (c *Cache) GetOrCompute(ctx context.Context, vocab *models.Vocabulary, compute func(context.Context) (*generator.Result, error)) (*generator.Result, uint64, error) {
	key := SnapshotHash(vocab)

	if cached := c.get(key); cached != nil {
		atomic.AddInt64(&c.metrics.Hits, 1)
		return cached, key, nil
	}

	result, err, shared := c.group.Do(strconv.FormatUint(key, 16), func() (any, error) {
		// Re-check under the flight: a concurrent caller may have stored
		// the entry between our miss and this callback.
		if cached := c.get(key); cached != nil {
			return cached, nil
		}

		atomic.AddInt64(&c.metrics.Misses, 1)
		computed, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.put(key, computed)
		return computed, nil
	})
	if shared {
		atomic.AddInt64(&c.metrics.CoalescedRequests, 1)
	}
	if err != nil {
		return nil, key, err
	}

	return result.(*generator.Result), key, nil
}

// Stats exposes cache counters.
func (c *Cache) Stats() map[string]int64 {
	stats := c.metrics.Stats()
	c.mu.RLock()
	stats["entries"] = int64(len(c.entries))
	c.mu.RUnlock()
	return stats
}

func (c *Cache) get(key uint64) *generator.Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.entries[key]; ok {
		return e.result
	}
	return nil
}

func (c *Cache) put(key uint64, result *generator.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &entry{result: result, createdAt: time.Now()}

	// Evict oldest entries past the bound; the entry just written is the
	// newest and is never the victim.
	for len(c.entries) > c.maxEntries {
		var (
			oldestKey uint64
			oldestAt  time.Time
			found     bool
		)
		for k, e := range c.entries {
			if k == key {
				continue
			}
			if !found || e.createdAt.Before(oldestAt) {
				oldestKey = k
				oldestAt = e.createdAt
				found = true
			}
		}
		if !found {
			break
		}
		delete(c.entries, oldestKey)
		atomic.AddInt64(&c.metrics.Evictions, 1)
		c.logger.Debug().Uint64("key", oldestKey).Msg("Evicted cached snapshot")
	}
}

// sortByID is an insertion sort; tier tables are small and usually nearly
// sorted already.
func sortByID(items []models.VocabularyItem) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j].ID < items[j-1].ID; j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}
