// Copyright 2026 The Habitat Authors
// SPDX-License-Identifier: Apache-2.0

package nostr

// Record kinds used by Habitat. The kind is the only discriminator a
// record carries; decoding code must tolerate same-kind records published
// by unrelated applications.
const (
	// KindChatMessage is an ordinary permanent chat message (kind 1).
	KindChatMessage = 1

	// KindRoomDefinition declares or updates a room (kind 12347). A
	// room's identity is (author pubkey, "d" tag); a republish with the
	// same identity is an update, not a new room.
	KindRoomDefinition = 12347

	// KindEphemeral is a time-boxed chat message or presence signal
	// (kind 30000). Ephemeral records carry an "expiration" tag and are
	// filtered at display time, not deleted by relays.
	KindEphemeral = 30000
)

// Event is a signed, timestamped record retrieved from a relay. Field
// names follow the wire JSON exactly. Events are immutable snapshots:
// repositories reconstruct domain objects from fresh events on every
// query and never mutate an Event in place.
type Event struct {
	ID        string `json:"id"`
	Pubkey    string `json:"pubkey"`
	CreatedAt int64  `json:"created_at"`
	Kind      int    `json:"kind"`
	Tags      Tags   `json:"tags"`
	Content   string `json:"content"`
	Sig       string `json:"sig"`
}

// EventDraft is an unsigned record handed to Client.Publish. The client
// assigns the author pubkey, timestamp, event ID, and signature.
type EventDraft struct {
	Kind    int    `json:"kind"`
	Content string `json:"content"`
	Tags    Tags   `json:"tags"`
}

// Filter selects events from a relay. Zero-valued fields are omitted
// from the wire form. Until is an exclusive-ish upper bound in practice:
// relays return events with created_at <= until, so paginating callers
// step the cursor by one second to avoid refetching the boundary event.
type Filter struct {
	Kinds       []int    `json:"kinds,omitempty"`
	Authors     []string `json:"authors,omitempty"`
	Events      []string `json:"#e,omitempty"`
	Identifiers []string `json:"#d,omitempty"`
	Until       int64    `json:"until,omitempty"`
	Limit       int      `json:"limit,omitempty"`
}
