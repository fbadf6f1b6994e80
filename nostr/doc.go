// Copyright 2026 The Habitat Authors
// SPDX-License-Identifier: Apache-2.0

// Package nostr defines the wire model shared by every Habitat package:
// signed events, publish drafts, query filters, and the tag helpers that
// turn a record's flat string-array tags into typed fields.
//
// The event log is a shared namespace with no schema enforcement — any
// writer can publish a record of any kind with any tags. Everything in
// this package is therefore written for graceful degradation: tag lookup
// reports absence instead of failing, and numeric or boolean tag values
// that do not parse are treated as absent rather than as errors.
//
// [Client] is the only contact surface between the domain packages and
// the relay network. Production code uses [relay.Pool]; tests substitute
// an in-memory fake.
package nostr
