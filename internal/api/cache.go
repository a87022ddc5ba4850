package api

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/soilicd/soilicd/pkg/dataset"
	"github.com/soilicd/soilicd/pkg/deviation"
	"github.com/soilicd/soilicd/pkg/scoring"
	"github.com/soilicd/soilicd/pkg/soil"
)

// ReferenceCache is a thread-safe LRU cache in front of a reference source.
// Reference distributions are pure functions of their key, so cached and
// uncached lookups return the same values. Errors are not cached.
type ReferenceCache struct {
	src     scoring.ReferenceSource
	metrics *Metrics

	mu      sync.Mutex
	maxSize int
	entries map[string]deviation.Reference
	order   []string // oldest first
}

// NewReferenceCache creates a cache with the given maximum number of entries.
// If maxSize <= 0, it defaults to 256.
func NewReferenceCache(src scoring.ReferenceSource, maxSize int, metrics *Metrics) *ReferenceCache {
	if maxSize <= 0 {
		maxSize = 256
	}
	return &ReferenceCache{
		src:     src,
		metrics: metrics,
		maxSize: maxSize,
		entries: make(map[string]deviation.Reference),
	}
}

// NewReferenceCacheFromEnv creates a cache with size from REFERENCE_CACHE_SIZE env var.
func NewReferenceCacheFromEnv(src scoring.ReferenceSource, metrics *Metrics) *ReferenceCache {
	size := 256
	if v := os.Getenv("REFERENCE_CACHE_SIZE"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			size = parsed
		}
	}
	return NewReferenceCache(src, size, metrics)
}

func cacheKey(v soil.Variable, f dataset.Filter, minSamples int) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%d", v,
		soil.NormalizeName(string(f.Region)), soil.NormalizeName(f.Department),
		soil.NormalizeName(f.Municipality), soil.NormalizeName(f.Crop), minSamples)
}

// Reference implements scoring.ReferenceSource.
func (c *ReferenceCache) Reference(v soil.Variable, f dataset.Filter, minSamples int) (deviation.Reference, error) {
	key := cacheKey(v, f, minSamples)
	if ref, ok := c.get(key); ok {
		c.metrics.cacheLookup(true)
		return ref, nil
	}
	c.metrics.cacheLookup(false)

	ref, err := c.src.Reference(v, f, minSamples)
	if err != nil {
		return ref, err
	}
	c.put(key, ref)
	return ref, nil
}

// Len returns the number of cached references.
func (c *ReferenceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ReferenceCache) get(key string) (deviation.Reference, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ref, ok := c.entries[key]
	if !ok {
		return deviation.Reference{}, false
	}

	// Move to end (most recently used)
	c.moveToEnd(key)
	return ref, true
}

func (c *ReferenceCache) put(key string, ref deviation.Reference) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.entries[key] = ref
		c.moveToEnd(key)
		return
	}

	// Evict oldest if at capacity
	for len(c.entries) >= c.maxSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = ref
	c.order = append(c.order, key)
}

func (c *ReferenceCache) moveToEnd(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			c.order = append(c.order, key)
			return
		}
	}
}
