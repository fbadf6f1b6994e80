// Copyright 2026 The Habitat Authors
// SPDX-License-Identifier: Apache-2.0

// Package relay implements the nostr.Client interface over real relay
// connections. A [Pool] holds one websocket per configured relay,
// speaks the NIP-01 subscription protocol (REQ/EVENT/EOSE for queries,
// EVENT/OK for publishes), fans queries out to every reachable relay,
// and collapses duplicate results by event ID.
//
// Signing is pluggable through [Signer]. A read-only pool (no signer)
// can query but not publish. [KeySigner] signs with a secp256k1 key
// using BIP-340 schnorr signatures, the network's signature scheme.
//
// The pool adds no retry or backoff of its own: a relay that fails a
// call is skipped for that call, and a query succeeds when at least
// one relay answers. Callers that need stronger delivery guarantees
// layer them above this package.
package relay
