// Copyright 2026 The Habitat Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/habitat-project/habitat/nostr"
)

// subscriptionBuffer sizes a query's frame channel. Relays cap query
// responses at the requested limit (at most 100 here), so the buffer
// comfortably exceeds anything a well-behaved relay sends before EOSE.
// A flooding relay's excess frames are dropped, not queued without
// bound.
const subscriptionBuffer = 256

// subFrame is one frame routed to a query subscription: an event, or
// the end-of-stored-events sentinel (nil event).
type subFrame struct {
	event *nostr.Event
}

// okFrame is a relay's verdict on a published event.
type okFrame struct {
	accepted bool
	reason   string
}

// relayConn is one websocket connection with a single read loop that
// routes incoming frames to the queries and publishes waiting on them.
// gorilla/websocket allows one concurrent reader and one concurrent
// writer; the read loop is the only reader, and writeMu serializes
// writers.
type relayConn struct {
	url    string
	conn   *websocket.Conn
	logger *slog.Logger

	writeMu sync.Mutex

	mu   sync.Mutex
	subs map[string]chan subFrame
	acks map[string]chan okFrame

	// done is closed when the read loop exits; the pool uses it to
	// detect dead connections.
	done chan struct{}
}

func newRelayConn(url string, conn *websocket.Conn, logger *slog.Logger) *relayConn {
	return &relayConn{
		url:    url,
		conn:   conn,
		logger: logger,
		subs:   make(map[string]chan subFrame),
		acks:   make(map[string]chan okFrame),
		done:   make(chan struct{}),
	}
}

func (c *relayConn) send(frame any) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *relayConn) subscribe(subID string, frames chan subFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subs == nil {
		return errConnClosed(c.url)
	}
	c.subs[subID] = frames
	return nil
}

func (c *relayConn) unsubscribe(subID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subs != nil {
		delete(c.subs, subID)
	}
}

func (c *relayConn) expectAck(eventID string, ack chan okFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.acks == nil {
		return errConnClosed(c.url)
	}
	c.acks[eventID] = ack
	return nil
}

func (c *relayConn) forgetAck(eventID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.acks != nil {
		delete(c.acks, eventID)
	}
}

// readLoop reads frames until the connection fails, then closes every
// waiter's channel so blocked queries and publishes fail promptly
// instead of hanging.
func (c *relayConn) readLoop() {
	defer func() {
		c.mu.Lock()
		for _, frames := range c.subs {
			close(frames)
		}
		c.subs = nil
		for _, ack := range c.acks {
			close(ack)
		}
		c.acks = nil
		c.mu.Unlock()

		close(c.done)
		c.conn.Close()
	}()

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			c.logger.Debug("relay connection closed",
				"relay", c.url,
				"error", err,
			)
			return
		}
		c.dispatch(payload)
	}
}

// dispatch routes one incoming frame. Unknown or malformed frames are
// logged and dropped — a relay speaking a newer protocol revision must
// not kill the connection.
func (c *relayConn) dispatch(payload []byte) {
	var frame []json.RawMessage
	if err := json.Unmarshal(payload, &frame); err != nil || len(frame) == 0 {
		c.logger.Debug("discarding malformed relay frame", "relay", c.url)
		return
	}

	var label string
	if err := json.Unmarshal(frame[0], &label); err != nil {
		c.logger.Debug("discarding unlabeled relay frame", "relay", c.url)
		return
	}

	switch label {
	case "EVENT":
		if len(frame) < 3 {
			return
		}
		var subID string
		var event nostr.Event
		if json.Unmarshal(frame[1], &subID) != nil || json.Unmarshal(frame[2], &event) != nil {
			c.logger.Debug("discarding malformed EVENT frame", "relay", c.url)
			return
		}
		c.routeSubFrame(subID, subFrame{event: &event})

	case "EOSE":
		if len(frame) < 2 {
			return
		}
		var subID string
		if json.Unmarshal(frame[1], &subID) != nil {
			return
		}
		c.routeSubFrame(subID, subFrame{})

	case "CLOSED":
		// The relay terminated the subscription server-side. The
		// query returns whatever it has, same as EOSE.
		if len(frame) < 2 {
			return
		}
		var subID string
		if json.Unmarshal(frame[1], &subID) != nil {
			return
		}
		c.routeSubFrame(subID, subFrame{})

	case "OK":
		if len(frame) < 3 {
			return
		}
		var eventID string
		var accepted bool
		if json.Unmarshal(frame[1], &eventID) != nil || json.Unmarshal(frame[2], &accepted) != nil {
			return
		}
		var reason string
		if len(frame) >= 4 {
			_ = json.Unmarshal(frame[3], &reason)
		}
		c.routeAck(eventID, okFrame{accepted: accepted, reason: reason})

	case "NOTICE":
		if len(frame) >= 2 {
			var notice string
			_ = json.Unmarshal(frame[1], &notice)
			c.logger.Info("relay notice", "relay", c.url, "notice", notice)
		}

	default:
		c.logger.Debug("ignoring unknown relay frame", "relay", c.url, "label", label)
	}
}

func (c *relayConn) routeSubFrame(subID string, frame subFrame) {
	c.mu.Lock()
	frames := c.subs[subID]
	c.mu.Unlock()
	if frames == nil {
		// Subscription already gone (cancelled query); frames for it
		// are expected stragglers.
		return
	}
	select {
	case frames <- frame:
	default:
		c.logger.Warn("dropping relay frame, subscription buffer full",
			"relay", c.url,
			"subscription", subID,
		)
	}
}

func (c *relayConn) routeAck(eventID string, frame okFrame) {
	c.mu.Lock()
	ack := c.acks[eventID]
	c.mu.Unlock()
	if ack == nil {
		return
	}
	select {
	case ack <- frame:
	default:
	}
}

func errConnClosed(url string) error {
	return fmt.Errorf("relay: connection to %s is closed", url)
}
