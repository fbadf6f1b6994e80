// Copyright 2026 The Habitat Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/habitat-project/habitat/nostr"
)

// fakeRelay is an in-process relay speaking just enough NIP-01 for the
// pool tests: REQ answers with the stored events and an EOSE, EVENT
// records the publish and answers OK.
type fakeRelay struct {
	server   *httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	stored   []nostr.Event
	received []nostr.Event

	// rejectReason, when set, makes every publish fail with OK=false.
	rejectReason string

	// holdEOSE suppresses the EOSE frame, leaving queries waiting.
	holdEOSE bool
}

func newFakeRelay(t *testing.T) *fakeRelay {
	t.Helper()
	relay := &fakeRelay{}
	relay.server = httptest.NewServer(http.HandlerFunc(relay.handle))
	t.Cleanup(relay.server.Close)
	return relay
}

func (r *fakeRelay) url() string {
	return "ws" + strings.TrimPrefix(r.server.URL, "http")
}

func (r *fakeRelay) store(event nostr.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stored = append(r.stored, event)
}

func (r *fakeRelay) publishedEvents() []nostr.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]nostr.Event(nil), r.received...)
}

func (r *fakeRelay) handle(writer http.ResponseWriter, request *http.Request) {
	conn, err := r.upgrader.Upgrade(writer, request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var frame []json.RawMessage
		if json.Unmarshal(payload, &frame) != nil || len(frame) == 0 {
			continue
		}
		var label string
		if json.Unmarshal(frame[0], &label) != nil {
			continue
		}

		switch label {
		case "REQ":
			if len(frame) < 2 {
				continue
			}
			var subID string
			if json.Unmarshal(frame[1], &subID) != nil {
				continue
			}
			r.mu.Lock()
			stored := append([]nostr.Event(nil), r.stored...)
			hold := r.holdEOSE
			r.mu.Unlock()
			for _, event := range stored {
				if conn.WriteJSON([]any{"EVENT", subID, event}) != nil {
					return
				}
			}
			if !hold {
				if conn.WriteJSON([]any{"EOSE", subID}) != nil {
					return
				}
			}

		case "EVENT":
			if len(frame) < 2 {
				continue
			}
			var event nostr.Event
			if json.Unmarshal(frame[1], &event) != nil {
				continue
			}
			r.mu.Lock()
			r.received = append(r.received, event)
			reject := r.rejectReason
			r.mu.Unlock()
			verdict := []any{"OK", event.ID, reject == "", reject}
			if conn.WriteJSON(verdict) != nil {
				return
			}

		case "CLOSE":
			// Subscriptions are not tracked; nothing to tear down.
		}
	}
}
