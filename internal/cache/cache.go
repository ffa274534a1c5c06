// Package cache holds the bounded, time-limited caches in front of the
// record store and the answer pipeline.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Defaults for the two service caches.
const (
	DefaultUsersSize   = 1000
	DefaultUsersTTL    = 5 * time.Minute
	DefaultAnswersSize = 500
	DefaultAnswersTTL  = 10 * time.Minute
)

// Stats is a point-in-time view of one cache.
type Stats struct {
	Name   string `json:"name"`
	Size   int    `json:"size"`
	Hits   int64  `json:"hits"`
	Misses int64  `json:"misses"`
}

// TTL is a string-keyed LRU whose entries expire after a fixed lifetime.
// Safe for concurrent use.
type TTL[V any] struct {
	name string

	// mu makes AddIfAbsent atomic; the LRU itself is already synchronized.
	mu  sync.Mutex
	lru *expirable.LRU[string, V]

	hits   atomic.Int64
	misses atomic.Int64
}

// NewTTL creates a cache of at most size entries living for ttl.
// Non-positive values fall back to 1 entry and no expiry respectively.
func NewTTL[V any](name string, size int, ttl time.Duration) *TTL[V] {
	if size <= 0 {
		size = 1
	}
	return &TTL[V]{
		name: name,
		lru:  expirable.NewLRU[string, V](size, nil, ttl),
	}
}

// Get returns the live value for key.
func (c *TTL[V]) Get(key string) (V, bool) {
	v, ok := c.lru.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Add stores value under key, replacing any previous entry.
func (c *TTL[V]) Add(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, value)
}

// AddIfAbsent stores value only when key has no live entry. It reports
// whether the value was stored.
func (c *TTL[V]) AddIfAbsent(key string, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lru.Contains(key) {
		return false
	}
	c.lru.Add(key, value)
	return true
}

// Purge drops every entry. Counters are kept.
func (c *TTL[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// Len counts live entries.
func (c *TTL[V]) Len() int { return c.lru.Len() }

// Stats snapshots the cache.
func (c *TTL[V]) Stats() Stats {
	return Stats{
		Name:   c.name,
		Size:   c.lru.Len(),
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
}

// UserKey is the user-record cache key.
func UserKey(userType, userID string) string {
	return userType + ":" + userID
}

// AnswerKey is the answer cache key: the hex SHA-256 of
// "<user_type>:<user_id>:<question>".
func AnswerKey(userType, userID, question string) string {
	sum := sha256.Sum256([]byte(userType + ":" + userID + ":" + question))
	return hex.EncodeToString(sum[:])
}
