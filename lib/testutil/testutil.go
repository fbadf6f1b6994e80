// Copyright 2026 The Habitat Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for Habitat packages.
//
// [RequireReceive] encapsulates the timeout safety valve pattern
// (select with time.After fallback) so that individual tests do not
// need direct time.After calls. It is the only place in the test suite
// where a real wall-clock timeout is used; everything else runs on
// clock.Fake.
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation — event IDs, slugs, and pubkeys that must be distinct
// within a test run without depending on time.Now.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil

import (
	"fmt"
	"sync/atomic"
	"time"
)

// RequireReceive reads one value from ch within timeout, or fails the
// test.
//
//	snapshot := testutil.RequireReceive(t, poller.Updates(), 5*time.Second, "waiting for poll")
func RequireReceive[T any](t interface {
	Helper()
	Fatalf(format string, args ...any)
}, ch <-chan T, timeout time.Duration, message string) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed without sending a value: %s", message)
		}
		return v
	case <-time.After(timeout):
		t.Fatalf("timed out after %v: %s", timeout, message)
	}
	panic("unreachable")
}

var uniqueCounter atomic.Uint64

// UniqueID returns a string of the form "prefix-N" where N is a
// monotonically increasing integer.
//
//	eventID := testutil.UniqueID("event")  // "event-1", "event-2", ...
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, uniqueCounter.Add(1))
}
