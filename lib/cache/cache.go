// Copyright 2026 The Habitat Authors
// SPDX-License-Identifier: Apache-2.0

// Package cache provides an explicit freshness cache for repository
// query results. Entries are keyed by (operation, parameters) and carry
// the time they were fetched; staleness is an explicit check against a
// caller-supplied freshness window, not ambient framework behavior.
//
// The cache holds nothing durable: it is an in-process map whose only
// job is to keep a repository from re-issuing an identical relay query
// inside its freshness window. Nothing here persists across process
// restarts, and there is no eviction beyond overwriting — the key space
// (a handful of operations times the rooms a user looks at) stays small.
package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/habitat-project/habitat/lib/clock"
)

// Cache stores fetched values with their fetch time. Safe for
// concurrent use.
type Cache[V any] struct {
	clock clock.Clock

	mu      sync.Mutex
	entries map[string]entry[V]
}

type entry[V any] struct {
	value     V
	fetchedAt time.Time
}

// New creates an empty cache reading time from clk.
func New[V any](clk clock.Clock) *Cache[V] {
	return &Cache[V]{
		clock:   clk,
		entries: make(map[string]entry[V]),
	}
}

// Key builds a cache key from an operation name and its parameters.
func Key(operation string, parameters ...string) string {
	return operation + "\x00" + strings.Join(parameters, "\x00")
}

// Get returns the cached value for key if one was stored within the
// freshness window. A stale entry reports (zero, false) but is kept —
// a subsequent Put overwrites it.
func (c *Cache[V]) Get(key string, freshness time.Duration) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored, ok := c.entries[key]
	if !ok || c.clock.Now().Sub(stored.fetchedAt) >= freshness {
		var zero V
		return zero, false
	}
	return stored.value, true
}

// Put stores a value under key with the current time as its fetch time.
func (c *Cache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, fetchedAt: c.clock.Now()}
}

// Invalidate removes the entry for key, forcing the next Get to miss.
// Publish paths call this so that a freshly created room or message is
// visible to the next read without waiting out the freshness window.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}
