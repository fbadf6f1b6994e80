// Copyright 2026 The Habitat Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"errors"
	"fmt"
)

// RelayError is a structured rejection from a relay: an OK frame with
// accepted=false, carrying the relay's machine-readable reason prefix
// ("blocked", "rate-limited", "invalid", "pow", "error") before the
// first colon. Callers can use errors.As to extract it:
//
//	var relayErr *RelayError
//	if errors.As(err, &relayErr) {
//	    if relayErr.Prefix() == "rate-limited" { ... }
//	}
type RelayError struct {
	// URL is the relay that rejected the event.
	URL string
	// Reason is the relay's full reason string.
	Reason string
}

func (e *RelayError) Error() string {
	return fmt.Sprintf("relay %s rejected event: %s", e.URL, e.Reason)
}

// Prefix returns the machine-readable portion of the reason (the part
// before the first colon), or the whole reason when no colon is
// present.
func (e *RelayError) Prefix() string {
	for i, r := range e.Reason {
		if r == ':' {
			return e.Reason[:i]
		}
	}
	return e.Reason
}

// IsRejection reports whether err is a relay rejection, as opposed to
// a connection or protocol failure.
func IsRejection(err error) bool {
	var relayErr *RelayError
	return errors.As(err, &relayErr)
}
