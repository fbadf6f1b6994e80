// Copyright 2026 The Habitat Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

func TestFakeNow(t *testing.T) {
	start := time.Unix(1000, 0)
	fake := Fake(start)

	if got := fake.Now(); !got.Equal(start) {
		t.Fatalf("Now() = %v, want %v", got, start)
	}

	fake.Advance(30 * time.Second)
	if got := fake.Now(); !got.Equal(start.Add(30 * time.Second)) {
		t.Fatalf("Now() after Advance = %v, want %v", got, start.Add(30*time.Second))
	}
}

func TestFakeTicker(t *testing.T) {
	fake := Fake(time.Unix(1000, 0))
	ticker := fake.NewTicker(10 * time.Second)
	defer ticker.Stop()

	select {
	case tick := <-ticker.C:
		t.Fatalf("unexpected tick before Advance: %v", tick)
	default:
	}

	fake.Advance(10 * time.Second)
	select {
	case <-ticker.C:
	default:
		t.Fatal("expected a tick after advancing one interval")
	}
}

func TestFakeTickerDropsWhenBehind(t *testing.T) {
	fake := Fake(time.Unix(1000, 0))
	ticker := fake.NewTicker(10 * time.Second)
	defer ticker.Stop()

	// Three intervals elapse with nobody reading: capacity-1 channel
	// keeps exactly one tick.
	fake.Advance(30 * time.Second)

	ticks := 0
	for {
		select {
		case <-ticker.C:
			ticks++
			continue
		default:
		}
		break
	}
	if ticks != 1 {
		t.Fatalf("got %d buffered ticks, want 1", ticks)
	}
}

func TestFakeTickerStop(t *testing.T) {
	fake := Fake(time.Unix(1000, 0))
	ticker := fake.NewTicker(10 * time.Second)
	ticker.Stop()

	fake.Advance(time.Minute)
	select {
	case tick := <-ticker.C:
		t.Fatalf("tick after Stop: %v", tick)
	default:
	}
}
