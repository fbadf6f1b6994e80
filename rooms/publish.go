// Copyright 2026 The Habitat Authors
// SPDX-License-Identifier: Apache-2.0

package rooms

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/habitat-project/habitat/lib/clock"
	"github.com/habitat-project/habitat/nostr"
)

// Validation failures surfaced by the publish path. These are
// recoverable, user-facing errors — the caller shows a notification and
// lets the user fix the input; nothing retries.
var (
	ErrEmptyTitle   = errors.New("rooms: room title must not be empty")
	ErrEmptySlug    = errors.New("rooms: room slug must not be empty")
	ErrEmptyContent = errors.New("rooms: message content must not be empty")
	ErrEmptyRoomRef = errors.New("rooms: a room event ID is required")
)

// PublisherConfig configures a Publisher.
type PublisherConfig struct {
	// Client signs and publishes drafts. Required.
	Client nostr.Client

	// Clock supplies publish-time timestamps for slugs and expiries.
	// If nil, clock.Real() is used.
	Clock clock.Clock

	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger

	// RelayHint, when set, is embedded in room-reference tags so
	// readers on other relays know where to find the room event.
	RelayHint string

	// Rooms and Messages, when set, have their caches invalidated
	// after a successful publish so the new record is visible to the
	// next read without waiting out the freshness window.
	Rooms    *RoomRepository
	Messages *MessageRepository
}

// Publisher assembles codec-encoded tags into publish drafts and hands
// them to the client. It owns no state beyond its configuration; every
// operation is a single encode-publish round trip.
type Publisher struct {
	client    nostr.Client
	clock     clock.Clock
	logger    *slog.Logger
	relayHint string
	rooms     *RoomRepository
	messages  *MessageRepository
}

// NewPublisher creates a Publisher.
func NewPublisher(config PublisherConfig) (*Publisher, error) {
	if config.Client == nil {
		return nil, fmt.Errorf("rooms: Client is required")
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		client:    config.Client,
		clock:     clk,
		logger:    logger,
		relayHint: config.RelayHint,
		rooms:     config.Rooms,
		messages:  config.Messages,
	}, nil
}

// RoomCreation is the result of CreateRoom or UpdateRoom.
type RoomCreation struct {
	// Event is the signed record as published.
	Event *nostr.Event

	// ID is the caller-facing composite room identity.
	ID RoomID
}

// CreateRoom publishes a new room under a freshly generated slug and
// returns the published record plus the room's composite identity.
func (p *Publisher) CreateRoom(ctx context.Context, draft RoomDraft) (*RoomCreation, error) {
	return p.publishRoom(ctx, NewSlug(p.clock.Now()), draft)
}

// UpdateRoom republishes a room under its existing slug. There is no
// update operation on the wire: the repositories' de-duplication by
// identity is what makes the newer record an effective update rather
// than a second room.
func (p *Publisher) UpdateRoom(ctx context.Context, slug string, draft RoomDraft) (*RoomCreation, error) {
	if slug == "" {
		return nil, ErrEmptySlug
	}
	return p.publishRoom(ctx, slug, draft)
}

func (p *Publisher) publishRoom(ctx context.Context, slug string, draft RoomDraft) (*RoomCreation, error) {
	if err := p.requireIdentity(); err != nil {
		return nil, err
	}
	if draft.Title == "" {
		return nil, ErrEmptyTitle
	}

	event, err := p.client.Publish(ctx, nostr.EventDraft{
		Kind:    nostr.KindRoomDefinition,
		Content: draft.Description,
		Tags:    draft.Tags(slug),
	})
	if err != nil {
		return nil, fmt.Errorf("rooms: publishing room %q: %w", slug, err)
	}

	id := RoomID{Author: event.Pubkey, Slug: slug}
	if p.rooms != nil {
		p.rooms.Invalidate(id)
	}
	p.logger.Info("published room",
		"room", id.String(),
		"event_id", event.ID,
	)
	return &RoomCreation{Event: event, ID: id}, nil
}

// SendMessage publishes a permanent chat message to a room. Mentions
// are emitted one tag per key, preserving caller order.
func (p *Publisher) SendMessage(ctx context.Context, roomEventID, content string, mentions ...string) (*nostr.Event, error) {
	if err := p.requireMessage(roomEventID, content); err != nil {
		return nil, err
	}

	tags := nostr.Tags{nostr.Tag(nostr.TagEvent, roomEventID, p.relayHint, "root")}
	for _, pubkey := range mentions {
		tags = append(tags, nostr.Tag(nostr.TagPubkey, pubkey))
	}

	return p.publishToRoom(ctx, roomEventID, nostr.EventDraft{
		Kind:    nostr.KindChatMessage,
		Content: content,
		Tags:    tags,
	})
}

// SendEphemeralMessage publishes a time-boxed chat message expiring
// after the given number of hours (DefaultMessageExpiryHours when
// non-positive).
func (p *Publisher) SendEphemeralMessage(ctx context.Context, roomEventID, content string, hours int, mentions ...string) (*nostr.Event, error) {
	if err := p.requireMessage(roomEventID, content); err != nil {
		return nil, err
	}

	expiration := ComputeExpiration(p.clock.Now().Unix(), hours, DefaultMessageExpiryHours)
	tags := nostr.Tags{
		nostr.Tag(nostr.TagEvent, roomEventID, p.relayHint, "root"),
		nostr.Tag(nostr.TagExpiration, strconv.FormatInt(expiration, 10)),
	}
	for _, pubkey := range mentions {
		tags = append(tags, nostr.Tag(nostr.TagPubkey, pubkey))
	}

	return p.publishToRoom(ctx, roomEventID, nostr.EventDraft{
		Kind:    nostr.KindEphemeral,
		Content: content,
		Tags:    tags,
	})
}

// SendActivity publishes a presence signal ("typing", "joined", ...)
// to a room. Activity records are short-lived: the default expiry is
// DefaultActivityExpiryHours.
func (p *Publisher) SendActivity(ctx context.Context, roomEventID, activity string, hours int) (*nostr.Event, error) {
	if err := p.requireMessage(roomEventID, activity); err != nil {
		return nil, err
	}

	expiration := ComputeExpiration(p.clock.Now().Unix(), hours, DefaultActivityExpiryHours)
	return p.publishToRoom(ctx, roomEventID, nostr.EventDraft{
		Kind:    nostr.KindEphemeral,
		Content: activity,
		Tags: nostr.Tags{
			nostr.Tag(nostr.TagEvent, roomEventID, p.relayHint, "root"),
			nostr.Tag(nostr.TagExpiration, strconv.FormatInt(expiration, 10)),
			nostr.Tag(nostr.TagActivity, activity),
		},
	})
}

func (p *Publisher) publishToRoom(ctx context.Context, roomEventID string, draft nostr.EventDraft) (*nostr.Event, error) {
	event, err := p.client.Publish(ctx, draft)
	if err != nil {
		return nil, fmt.Errorf("rooms: publishing to room event %s: %w", roomEventID, err)
	}
	if p.messages != nil {
		p.messages.Invalidate(roomEventID)
	}
	return event, nil
}

func (p *Publisher) requireIdentity() error {
	if p.client.Pubkey() == "" {
		return nostr.ErrNotAuthenticated
	}
	return nil
}

func (p *Publisher) requireMessage(roomEventID, content string) error {
	if err := p.requireIdentity(); err != nil {
		return err
	}
	if roomEventID == "" {
		return ErrEmptyRoomRef
	}
	if content == "" {
		return ErrEmptyContent
	}
	return nil
}

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewSlug generates a room slug: a millisecond timestamp plus eight
// random base-36 characters. Collision probability is treated as
// negligible, not algorithmically guaranteed — the identity that
// matters includes the author key, so a collision would also require
// the same author.
func NewSlug(now time.Time) string {
	// Rejection sampling keeps the suffix uniform over the alphabet:
	// 252 is the largest multiple of 36 that fits in a byte, so larger
	// bytes re-roll instead of wrapping onto the first four characters.
	const unbiasedLimit = 256 - 256%len(base36Alphabet)
	suffix := make([]byte, 0, 8)
	var buffer [16]byte
	for len(suffix) < cap(suffix) {
		// rand.Read on the crypto source never fails on supported
		// platforms; it panics internally if the source is broken.
		rand.Read(buffer[:])
		for _, b := range buffer {
			if int(b) >= unbiasedLimit {
				continue
			}
			suffix = append(suffix, base36Alphabet[int(b)%len(base36Alphabet)])
			if len(suffix) == cap(suffix) {
				break
			}
		}
	}
	return fmt.Sprintf("room-%d-%s", now.UnixMilli(), suffix)
}
