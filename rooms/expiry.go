// Copyright 2026 The Habitat Authors
// SPDX-License-Identifier: Apache-2.0

package rooms

// Default expiry windows, in hours, substituted when a caller supplies
// a non-positive duration.
const (
	// DefaultMessageExpiryHours applies to ephemeral chat messages.
	DefaultMessageExpiryHours = 24

	// DefaultActivityExpiryHours applies to presence and activity
	// signals, which go stale almost immediately.
	DefaultActivityExpiryHours = 1
)

// ComputeExpiration returns the unix-seconds expiry for a record
// published now with the given lifetime. Hours is clamped by the
// caller's UI; the policy itself accepts any positive value and
// substitutes fallbackHours for non-positive or missing input.
func ComputeExpiration(nowSeconds int64, hours, fallbackHours int) int64 {
	if hours <= 0 {
		hours = fallbackHours
	}
	return nowSeconds + int64(hours)*3600
}

// IsExpired reports whether the message's expiration has passed. A
// message with no expiration never expires. Read paths apply this
// filter before handing messages to callers: relays are not obliged to
// prune expired records, so the protocol relies on display-time
// filtering, not deletion.
func IsExpired(message Message, nowSeconds int64) bool {
	return message.Expiration != nil && *message.Expiration <= nowSeconds
}

// roomExpired applies the same display-time filtering to ephemeral
// rooms.
func roomExpired(room *Room, nowSeconds int64) bool {
	return room.Expiration != nil && *room.Expiration <= nowSeconds
}
