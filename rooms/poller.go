// Copyright 2026 The Habitat Authors
// SPDX-License-Identifier: Apache-2.0

package rooms

import (
	"context"

	"github.com/habitat-project/habitat/lib/cache"
)

// Poller is a continuous background refresh of one room's live message
// window, running while a room view is open. It re-queries every
// PollInterval regardless of cache staleness and delivers each fresh
// snapshot on Updates. Cancel the context passed to Poll to stop;
// cancellation also aborts any in-flight query.
type Poller struct {
	updates chan []Message
}

// Updates delivers message snapshots, newest snapshot only: if the
// consumer falls behind, stale snapshots are dropped, never queued.
// The channel is closed when the poller stops.
func (p *Poller) Updates() <-chan []Message {
	return p.updates
}

// Poll starts a background poller for the room's live message window.
// The first snapshot is fetched immediately; subsequent fetches follow
// PollInterval. Query failures are logged and skipped — the next tick
// retries naturally, and a stale view is better than a dead one.
func (r *MessageRepository) Poll(ctx context.Context, roomEventID string) *Poller {
	poller := &Poller{updates: make(chan []Message, 1)}

	go func() {
		defer close(poller.updates)

		ticker := r.clock.NewTicker(PollInterval)
		defer ticker.Stop()

		r.refresh(ctx, roomEventID, poller)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.refresh(ctx, roomEventID, poller)
			}
		}
	}()

	return poller
}

// refresh re-queries the room's live window, updates the cache so
// interactive reads share the poll's result, and delivers the
// snapshot.
func (r *MessageRepository) refresh(ctx context.Context, roomEventID string, poller *Poller) {
	messages, _, err := r.queryMessages(ctx, roomEventID, 0, messageQueryLimit)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Warn("message poll failed",
				"room_event_id", roomEventID,
				"error", err,
			)
		}
		return
	}

	r.liveCache.Put(cache.Key("messages.list", roomEventID), messages)
	poller.deliver(messages)
}

// deliver sends a snapshot, replacing any undelivered older one.
func (p *Poller) deliver(messages []Message) {
	for {
		select {
		case p.updates <- messages:
			return
		default:
		}
		select {
		case <-p.updates:
		default:
		}
	}
}
