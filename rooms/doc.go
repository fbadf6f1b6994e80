// Copyright 2026 The Habitat Authors
// SPDX-License-Identifier: Apache-2.0

// Package rooms turns the untyped, multi-writer event log into typed,
// de-duplicated, expiry-aware rooms and message streams, and turns
// creation intents back into correctly tagged publish drafts.
//
// The package is organized around four pieces:
//
//   - the codecs ([ParseRoom], [ParseMessage], [RoomDraft]) that map
//     between wire events and domain objects;
//   - the repositories ([RoomRepository], [MessageRepository]) that
//     query, de-duplicate, sort, paginate, and cache;
//   - the expiry policy ([ComputeExpiration], [IsExpired]) applied to
//     ephemeral records at publish and read time;
//   - the [Publisher] that assembles and publishes drafts.
//
// Decoding is defensive throughout: any writer on the network can
// publish a same-kind record with an incompatible shape, so malformed
// records are dropped or degraded to defaults, never surfaced as
// errors. Graceful degradation here is a correctness requirement, not
// an edge case.
//
// Nothing in this package outlives a single call except the freshness
// caches: every read recomputes its result from a fresh query, so a
// write racing a read at worst produces a read that includes or
// excludes the new record, never a corrupted view.
package rooms
