// Copyright 2026 The Habitat Authors
// SPDX-License-Identifier: Apache-2.0

package rooms

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/habitat-project/habitat/lib/cache"
	"github.com/habitat-project/habitat/lib/clock"
	"github.com/habitat-project/habitat/nostr"
)

// Freshness and polling policy. These constants are owned by this
// layer, not the transport: they say how long a query result may be
// served from cache and how often an open room view re-polls.
const (
	// RoomListFreshness is the freshness window for the full room
	// listing.
	RoomListFreshness = 30 * time.Second

	// RoomFreshness is the freshness window for a single-room lookup.
	RoomFreshness = 60 * time.Second

	// MessageFreshness is the freshness window for a room's live
	// message list.
	MessageFreshness = 5 * time.Second

	// PollInterval is how often an open room view re-polls its
	// message list, regardless of staleness.
	PollInterval = 10 * time.Second
)

// Query limits.
const (
	roomQueryLimit    = 100
	messageQueryLimit = 100
	pageQueryLimit    = 50
)

// RepositoryConfig configures RoomRepository and MessageRepository.
type RepositoryConfig struct {
	// Client supplies query access to the relay network. Required.
	Client nostr.Client

	// Clock drives cache freshness and expiry evaluation. If nil,
	// clock.Real() is used.
	Clock clock.Clock

	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

func (c *RepositoryConfig) withDefaults() (RepositoryConfig, error) {
	if c.Client == nil {
		return RepositoryConfig{}, fmt.Errorf("rooms: Client is required")
	}
	config := *c
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return config, nil
}

// RoomRepository fetches and de-duplicates room records. Results are
// immutable snapshots recomputed from a fresh query on every cache
// miss; concurrent use is safe.
type RoomRepository struct {
	client nostr.Client
	clock  clock.Clock
	logger *slog.Logger

	listCache *cache.Cache[[]Room]
	roomCache *cache.Cache[*Room]
}

// NewRoomRepository creates a RoomRepository.
func NewRoomRepository(config RepositoryConfig) (*RoomRepository, error) {
	resolved, err := config.withDefaults()
	if err != nil {
		return nil, err
	}
	return &RoomRepository{
		client:    resolved.Client,
		clock:     resolved.Clock,
		logger:    resolved.Logger,
		listCache: cache.New[[]Room](resolved.Clock),
		roomCache: cache.New[*Room](resolved.Clock),
	}, nil
}

// ListRooms returns all rooms, newest-updated first. Multiple published
// records sharing one (author, slug) identity collapse to the newest:
// records are grouped by identity before sorting, so an older record
// can never shadow a newer one whatever order the relays return them
// in. Expired ephemeral rooms are dropped. Results are cached for
// RoomListFreshness.
func (r *RoomRepository) ListRooms(ctx context.Context) ([]Room, error) {
	key := cache.Key("rooms.list")
	if cached, ok := r.listCache.Get(key, RoomListFreshness); ok {
		return cached, nil
	}

	events, err := r.client.Query(ctx, []nostr.Filter{{
		Kinds: []int{nostr.KindRoomDefinition},
		Limit: roomQueryLimit,
	}})
	if err != nil {
		return nil, fmt.Errorf("rooms: listing rooms: %w", err)
	}

	now := r.clock.Now().Unix()
	current := make(map[RoomID]Room)
	for _, event := range events {
		room, status := ParseRoom(event)
		if room == nil {
			continue
		}
		if status == SceneInvalid {
			r.logger.Warn("discarding malformed scene blob",
				"event_id", event.ID,
				"room", room.ID.String(),
			)
		}
		if roomExpired(room, now) {
			continue
		}
		if existing, ok := current[room.ID]; ok && !newerRoom(*room, existing) {
			continue
		}
		current[room.ID] = *room
	}

	result := make([]Room, 0, len(current))
	for _, room := range current {
		result = append(result, room)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].UpdatedAt != result[j].UpdatedAt {
			return result[i].UpdatedAt > result[j].UpdatedAt
		}
		return result[i].ID.String() < result[j].ID.String()
	})

	r.listCache.Put(key, result)
	return result, nil
}

// newerRoom reports whether candidate should replace existing as the
// current record for an identity. Equal timestamps break the tie on
// event ID so that repeated queries over the same record set always
// pick the same winner.
func newerRoom(candidate, existing Room) bool {
	if candidate.UpdatedAt != existing.UpdatedAt {
		return candidate.UpdatedAt > existing.UpdatedAt
	}
	return candidate.EventID > existing.EventID
}

// GetRoom returns the room with the given identity, or nil when no
// record for that identity decodes as a room. The upstream query for an
// exact (author, slug) filter usually returns only the newest record,
// but the repository does not assume it: every returned event still
// passes through the codec's rejection rules and the newest valid one
// wins. Results are cached for RoomFreshness.
func (r *RoomRepository) GetRoom(ctx context.Context, author, slug string) (*Room, error) {
	if author == "" || slug == "" {
		return nil, fmt.Errorf("rooms: GetRoom requires author and slug")
	}

	key := cache.Key("rooms.get", author, slug)
	if cached, ok := r.roomCache.Get(key, RoomFreshness); ok {
		return cached, nil
	}

	events, err := r.client.Query(ctx, []nostr.Filter{{
		Kinds:       []int{nostr.KindRoomDefinition},
		Authors:     []string{author},
		Identifiers: []string{slug},
		Limit:       1,
	}})
	if err != nil {
		return nil, fmt.Errorf("rooms: fetching room %s:%s: %w", author, slug, err)
	}

	var found *Room
	for _, event := range events {
		room, status := ParseRoom(event)
		if room == nil {
			continue
		}
		if status == SceneInvalid {
			r.logger.Warn("discarding malformed scene blob",
				"event_id", event.ID,
				"room", room.ID.String(),
			)
		}
		if found == nil || newerRoom(*room, *found) {
			found = room
		}
	}
	if found != nil && roomExpired(found, r.clock.Now().Unix()) {
		found = nil
	}

	r.roomCache.Put(key, found)
	return found, nil
}

// Invalidate drops cached results affected by a change to the given
// identity. The publish path calls this so that a create or update is
// visible to the next read without waiting out the freshness window.
func (r *RoomRepository) Invalidate(id RoomID) {
	r.listCache.Invalidate(cache.Key("rooms.list"))
	r.roomCache.Invalidate(cache.Key("rooms.get", id.Author, id.Slug))
}
