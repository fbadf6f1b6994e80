// Copyright 2026 The Habitat Authors
// SPDX-License-Identifier: Apache-2.0

package rooms

import "github.com/habitat-project/habitat/nostr"

// Message is an immutable snapshot of a chat record attached to a room.
// Permanent messages are ordinary notes (kind 1); ephemeral messages
// and presence signals are time-boxed records (kind 30000).
type Message struct {
	ID      string
	Author  string
	Content string

	// RoomRef is the room event this message is attached to.
	// Membership is structural: a message belongs to room R iff its
	// reference tag equals R's EventID.
	RoomRef string

	CreatedAt int64
	Kind      int

	// Ephemeral is true iff the record kind is the ephemeral kind. It
	// says nothing about whether an expiration is present — that is
	// convention, not enforcement.
	Ephemeral bool

	// Expiration is the optional unix-seconds expiry. Nil when the
	// expiration tag is absent or unparsable; such a message never
	// expires even when Ephemeral is true. That permissive fallthrough
	// is a deliberate policy choice: dropping every ephemeral record
	// whose writer omitted or mangled the tag would make one buggy
	// client's output invisible, which is worse than showing it
	// indefinitely.
	Expiration *int64

	// Mentions lists referenced public keys in tag order.
	Mentions []string

	// Activity is the optional free-text presence label ("typing",
	// "joined", ...) carried by kind-30000 activity records.
	Activity string
}

// ParseMessage decodes a message event attached to the given room
// event. Unlike ParseRoom it never rejects: the caller has already
// filtered by kind and reference tag, so every record it hands over is
// represented, however sparse its tags.
func ParseMessage(event nostr.Event, roomEventID string) Message {
	message := Message{
		ID:        event.ID,
		Author:    event.Pubkey,
		Content:   event.Content,
		RoomRef:   roomEventID,
		CreatedAt: event.CreatedAt,
		Kind:      event.Kind,
		Ephemeral: event.Kind == nostr.KindEphemeral,
		Mentions:  event.Tags.Values(nostr.TagPubkey),
	}
	if value, ok := event.Tags.FirstInt(nostr.TagExpiration); ok {
		message.Expiration = &value
	}
	if activity, ok := event.Tags.First(nostr.TagActivity); ok {
		message.Activity = activity
	}
	return message
}

// References reports whether the event carries a reference tag for the
// given room event. This is the repository's membership test, applied
// before the codec runs.
func References(event nostr.Event, roomEventID string) bool {
	for _, value := range event.Tags.Values(nostr.TagEvent) {
		if value == roomEventID {
			return true
		}
	}
	return false
}
