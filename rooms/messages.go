// Copyright 2026 The Habitat Authors
// SPDX-License-Identifier: Apache-2.0

package rooms

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/habitat-project/habitat/lib/cache"
	"github.com/habitat-project/habitat/lib/clock"
	"github.com/habitat-project/habitat/nostr"
)

// MessageRepository fetches a room's message window and supports
// cursor-based backward pagination. Like RoomRepository, every result
// is an immutable snapshot recomputed from a fresh query; overlapping
// refreshes for the same room and cursor are idempotent because decode,
// filter, and sort are deterministic on the same input set.
type MessageRepository struct {
	client nostr.Client
	clock  clock.Clock
	logger *slog.Logger

	liveCache *cache.Cache[[]Message]
}

// NewMessageRepository creates a MessageRepository.
func NewMessageRepository(config RepositoryConfig) (*MessageRepository, error) {
	resolved, err := config.withDefaults()
	if err != nil {
		return nil, err
	}
	return &MessageRepository{
		client:    resolved.Client,
		clock:     resolved.Clock,
		logger:    resolved.Logger,
		liveCache: cache.New[[]Message](resolved.Clock),
	}, nil
}

// ListMessages returns the live message window for a room, oldest
// first — messages render top-to-bottom chronologically, the opposite
// order from room listings. Expired ephemeral messages are filtered
// out before returning, even when a relay still serves them. Results
// are cached for MessageFreshness.
func (r *MessageRepository) ListMessages(ctx context.Context, roomEventID string) ([]Message, error) {
	if roomEventID == "" {
		return nil, fmt.Errorf("rooms: ListMessages requires a room event ID")
	}

	key := cache.Key("messages.list", roomEventID)
	if cached, ok := r.liveCache.Get(key, MessageFreshness); ok {
		return cached, nil
	}

	messages, _, err := r.queryMessages(ctx, roomEventID, 0, messageQueryLimit)
	if err != nil {
		return nil, err
	}

	r.liveCache.Put(key, messages)
	return messages, nil
}

// Page is one backward-pagination step through a room's history.
type Page struct {
	// Messages is the page's window, oldest first. A page can be
	// empty while HasMore is still true: the relays returned records
	// here, but every one was filtered (expired, or not a member of
	// the room). Callers keep walking with NextBefore.
	Messages []Message

	// NextBefore is the cursor for the next older page: one second
	// before the oldest record the relays returned, filtered or not,
	// so the walk always advances. Meaningless when HasMore is false.
	NextBefore int64

	// HasMore is false when the relays returned no records at all,
	// which terminates pagination.
	HasMore bool
}

// ListMessagesPage returns up to one page of messages older than
// before, applying the same decode, expiry-filter, and sort rules as
// ListMessages. Pages are not cached: pagination is an interactive
// scroll-back, not a polled view.
func (r *MessageRepository) ListMessagesPage(ctx context.Context, roomEventID string, before int64) (Page, error) {
	if roomEventID == "" {
		return Page{}, fmt.Errorf("rooms: ListMessagesPage requires a room event ID")
	}

	messages, window, err := r.queryMessages(ctx, roomEventID, before, pageQueryLimit)
	if err != nil {
		return Page{}, err
	}
	// Termination is decided on the raw fetch, not the filtered
	// result: a window full of expired records still has older
	// history behind it.
	if window.count == 0 {
		return Page{}, nil
	}
	return Page{
		Messages:   messages,
		NextBefore: window.oldest - 1,
		HasMore:    true,
	}, nil
}

// Invalidate drops the cached live window for a room. The publish path
// calls this so a just-sent message shows up on the next read.
func (r *MessageRepository) Invalidate(roomEventID string) {
	r.liveCache.Invalidate(cache.Key("messages.list", roomEventID))
}

// fetchWindow describes the raw relay response behind one message
// query, before membership and expiry filtering. Pagination needs it:
// the cursor must advance past every fetched record, not just the kept
// ones, or a window of all-filtered records would stall the walk.
type fetchWindow struct {
	// count is the number of events the relays returned.
	count int

	// oldest is the created_at of the oldest returned event.
	// Meaningless when count is zero.
	oldest int64
}

// queryMessages runs one message query and applies the shared
// membership, decode, expiry, and ordering rules. until=0 means no
// upper bound.
func (r *MessageRepository) queryMessages(ctx context.Context, roomEventID string, until int64, limit int) ([]Message, fetchWindow, error) {
	events, err := r.client.Query(ctx, []nostr.Filter{{
		Kinds:  []int{nostr.KindChatMessage, nostr.KindEphemeral},
		Events: []string{roomEventID},
		Until:  until,
		Limit:  limit,
	}})
	if err != nil {
		return nil, fetchWindow{}, fmt.Errorf("rooms: fetching messages for %s: %w", roomEventID, err)
	}

	window := fetchWindow{count: len(events)}
	for i, event := range events {
		if i == 0 || event.CreatedAt < window.oldest {
			window.oldest = event.CreatedAt
		}
	}

	now := r.clock.Now().Unix()
	messages := make([]Message, 0, len(events))
	for _, event := range events {
		// Membership is structural: the reference tag must name this
		// exact room event. Relays match the filter, but a relay that
		// ignores tag filters would otherwise leak unrelated records
		// into the room.
		if !References(event, roomEventID) {
			continue
		}
		message := ParseMessage(event, roomEventID)
		if IsExpired(message, now) {
			continue
		}
		messages = append(messages, message)
	}

	sort.Slice(messages, func(i, j int) bool {
		if messages[i].CreatedAt != messages[j].CreatedAt {
			return messages[i].CreatedAt < messages[j].CreatedAt
		}
		return messages[i].ID < messages[j].ID
	})
	return messages, window, nil
}
