// Copyright 2026 The Habitat Authors
// SPDX-License-Identifier: Apache-2.0

package nostr

import (
	"context"
	"errors"
)

// ErrNotAuthenticated is returned by publish paths when the client holds
// no signing identity. This is a user-facing precondition failure, not a
// transport error: the caller should prompt for login, not retry.
var ErrNotAuthenticated = errors.New("nostr: not authenticated: a signing identity is required to publish")

// Client is the contact surface between the domain packages and the
// relay network. Two implementations exist:
//
//   - *relay.Pool: real websocket connections to one or more relays.
//   - in-memory fakes in package tests.
//
// Retry, backoff, and relay selection are the client's concern. The
// domain packages treat a failed call as terminal for that call and add
// no interpretation of their own, since they cannot distinguish a
// transient network fault from a permanent one.
type Client interface {
	// Query returns all events matching any of the filters, with
	// duplicates (the same event from multiple relays) collapsed by
	// event ID. Cancelling ctx aborts outstanding network work.
	Query(ctx context.Context, filters []Filter) ([]Event, error)

	// Publish signs the draft and sends it to the relays, returning
	// the signed event (with ID, pubkey, timestamp, and signature
	// assigned). Returns ErrNotAuthenticated when no signing identity
	// is configured.
	Publish(ctx context.Context, draft EventDraft) (*Event, error)

	// Pubkey returns the hex public key of the signing identity, or
	// "" when the client is read-only.
	Pubkey() string
}
