// Copyright 2026 The Habitat Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync"
	"time"
)

// Fake returns a FakeClock initialized to the given time. Time stands
// still until Advance is called. Tickers registered on the clock fire
// during Advance, once per elapsed interval.
//
// FakeClock is safe for concurrent use by multiple goroutines.
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial}
}

// FakeClock is a deterministic Clock for testing.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	tickers []*fakeTicker
}

type fakeTicker struct {
	next     time.Time
	interval time.Duration
	channel  chan time.Time
	stopped  bool
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NewTicker registers a ticker that fires when Advance crosses its
// deadline. Panics if d <= 0, matching time.NewTicker.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive ticker interval")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ticker := &fakeTicker{
		next:     c.current.Add(d),
		interval: d,
		channel:  make(chan time.Time, 1),
	}
	c.tickers = append(c.tickers, ticker)

	return &Ticker{
		C: ticker.channel,
		stopFunc: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			ticker.stopped = true
		},
	}
}

// Advance moves the clock forward by d, firing each pending ticker once
// per elapsed interval. Ticks are delivered with capacity-1 semantics:
// a tick is dropped when the previous one has not been consumed,
// matching time.Ticker.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	target := c.current.Add(d)
	for _, ticker := range c.tickers {
		for !ticker.stopped && !ticker.next.After(target) {
			select {
			case ticker.channel <- ticker.next:
			default:
			}
			ticker.next = ticker.next.Add(ticker.interval)
		}
	}
	c.current = target
}
