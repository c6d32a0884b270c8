package generate

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"maps"
	"sync"

	"github.com/teranos/scribe/errors"
)

// Result is the structured output of one generation call
type Result map[string]interface{}

// Clone returns a shallow copy so cached results are never aliased between items
func (r Result) Clone() Result {
	if r == nil {
		return nil
	}
	return maps.Clone(r)
}

// Context is the input handed to the Executor. Its fingerprint is the
// cache key: equal inputs must produce equal fingerprints.
type Context interface {
	Fingerprint() (string, error)
}

// MapContext is a Context built from plain data
type MapContext map[string]interface{}

// Fingerprint hashes the canonical JSON form of the map
func (m MapContext) Fingerprint() (string, error) {
	return Fingerprint(map[string]interface{}(m))
}

// Fingerprint returns the hex SHA-256 of v's canonical JSON encoding.
// Map keys are encoded sorted at every depth, so key order never matters.
func Fingerprint(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode context for fingerprint")
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Cache stores results by context fingerprint
type Cache interface {
	Lookup(fingerprint string) (Result, bool)
	Store(fingerprint string, result Result)
}

// MemoryCache keeps results for the lifetime of the process
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Result
}

// NewMemoryCache creates an empty in-memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]Result)}
}

func (c *MemoryCache) Lookup(fingerprint string) (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.entries[fingerprint]
	return r.Clone(), ok
}

func (c *MemoryCache) Store(fingerprint string, result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fingerprint] = result.Clone()
}

// Len returns the number of cached results
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// NopCache never hits and never stores
type NopCache struct{}

func (NopCache) Lookup(string) (Result, bool) { return nil, false }
func (NopCache) Store(string, Result)         {}
