// Copyright 2026 The Habitat Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time for testability. Production code injects
// Real(); tests inject Fake() and advance time explicitly. Everything
// time-dependent in Habitat — cache freshness, expiry evaluation, the
// message poller — takes a Clock instead of calling the time package
// directly, so tests never sleep.
package clock

import "time"

// Clock supplies the current time and periodic ticks.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// NewTicker returns a Ticker delivering ticks on C at the given
	// interval. Panics if d <= 0, matching time.NewTicker.
	NewTicker(d time.Duration) *Ticker
}

// Ticker wraps a periodic timer. Read ticks from C; call Stop when the
// ticker is no longer needed. C has capacity 1: if the consumer falls
// behind, ticks are dropped rather than queued.
type Ticker struct {
	C <-chan time.Time

	stopFunc func()
}

// Stop turns off the ticker. No more ticks arrive on C after Stop
// returns. Stop does not close C.
func (t *Ticker) Stop() { t.stopFunc() }

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) *Ticker {
	ticker := time.NewTicker(d)
	return &Ticker{
		C:        ticker.C,
		stopFunc: ticker.Stop,
	}
}
