// Copyright 2026 The Habitat Authors
// SPDX-License-Identifier: Apache-2.0

package rooms

import (
	"encoding/json"
	"strconv"

	"github.com/habitat-project/habitat/nostr"
)

// SceneStatus reports which path a room's scene took through decoding.
// An explicit result, so callers and tests can assert on the outcome
// instead of inspecting logs.
type SceneStatus int

const (
	// SceneDefaulted: the record carried no scene tag; DefaultScene
	// applies.
	SceneDefaulted SceneStatus = iota

	// SceneParsed: the scene blob parsed; its fields are overlaid
	// onto DefaultScene.
	SceneParsed

	// SceneInvalid: the scene blob was malformed JSON. Only the scene
	// is discarded (DefaultScene applies); the rest of the room still
	// decodes. Repositories log a warning on this path.
	SceneInvalid
)

// ParseRoom decodes a room-definition event. It returns nil when the
// event is not a room by this application's schema: wrong kind, missing
// identity ("d") tag, or missing title. Rejection is silent — an
// unknown writer may be using the same kind for unrelated purposes, so
// not-a-room is an expected condition, not an error.
func ParseRoom(event nostr.Event) (*Room, SceneStatus) {
	if event.Kind != nostr.KindRoomDefinition {
		return nil, SceneDefaulted
	}

	slug, ok := event.Tags.First(nostr.TagIdentifier)
	if !ok || slug == "" {
		return nil, SceneDefaulted
	}
	title, ok := event.Tags.First(nostr.TagTitle)
	if !ok || title == "" {
		return nil, SceneDefaulted
	}

	// The record body doubles as the description when no explicit
	// description tag is present (or the tag is empty).
	description, _ := event.Tags.First(nostr.TagDescription)
	if description == "" {
		description = event.Content
	}

	image, _ := event.Tags.First(nostr.TagImage)

	scene := DefaultScene()
	status := SceneDefaulted
	if blob, ok := event.Tags.First(nostr.TagScene); ok {
		if overlayScene(&scene, blob) {
			status = SceneParsed
		} else {
			scene = DefaultScene()
			status = SceneInvalid
		}
	}

	var expiration *int64
	if value, ok := event.Tags.FirstInt(nostr.TagExpiration); ok {
		expiration = &value
	}

	return &Room{
		ID:          RoomID{Author: event.Pubkey, Slug: slug},
		EventID:     event.ID,
		Author:      event.Pubkey,
		Title:       title,
		Description: description,
		Image:       image,
		Scene:       scene,
		Labels:      dedupeLabels(event.Tags.Values(nostr.TagLabel)),
		Expiration:  expiration,
		CreatedAt:   event.CreatedAt,
		UpdatedAt:   event.CreatedAt,
	}, status
}

// overlayScene merges a scene JSON blob onto base. Fields absent from
// the blob keep their defaults. Returns false (leaving base partially
// written — the caller resets it) when the blob is not valid JSON.
func overlayScene(base *SceneConfig, blob string) bool {
	var wire struct {
		BackgroundColor *string   `json:"backgroundColor"`
		MaxUsers        *int      `json:"maxUsers"`
		IsPublic        *bool     `json:"isPublic"`
		RoomType        *RoomType `json:"roomType"`
	}
	if err := json.Unmarshal([]byte(blob), &wire); err != nil {
		return false
	}
	if wire.BackgroundColor != nil {
		base.BackgroundColor = *wire.BackgroundColor
	}
	if wire.MaxUsers != nil {
		base.MaxUsers = *wire.MaxUsers
	}
	if wire.IsPublic != nil {
		base.IsPublic = *wire.IsPublic
	}
	if wire.RoomType != nil {
		base.RoomType = *wire.RoomType
	}
	return true
}

// dedupeLabels removes duplicate labels preserving first-occurrence
// order, so a decoded Room's label set cannot contain duplicates
// regardless of what a writer published.
func dedupeLabels(labels []string) []string {
	if len(labels) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(labels))
	result := labels[:0:0]
	for _, label := range labels {
		if !seen[label] {
			seen[label] = true
			result = append(result, label)
		}
	}
	return result
}

// RoomDraft holds the caller-supplied fields of a room creation or
// update. The slug is not part of the draft: CreateRoom generates a
// fresh one and UpdateRoom reuses the existing one.
type RoomDraft struct {
	Title       string
	Description string

	// Image is emitted only when non-empty.
	Image string

	// Scene, when non-nil, is emitted as one JSON-serialized scene
	// tag.
	Scene *SceneConfig

	// Labels are emitted one "t" tag each, in caller order, with no
	// implicit de-duplication — avoiding duplicates is the caller's
	// responsibility.
	Labels []string

	// Expiration, when non-zero, marks the room ephemeral: a
	// unix-seconds timestamp after which readers drop the room.
	Expiration int64
}

// Tags encodes the draft into wire tags under the given slug. Slug,
// title, and description are always emitted, matching what decoding
// requires on the other side.
func (d RoomDraft) Tags(slug string) nostr.Tags {
	tags := nostr.Tags{
		nostr.Tag(nostr.TagIdentifier, slug),
		nostr.Tag(nostr.TagTitle, d.Title),
		nostr.Tag(nostr.TagDescription, d.Description),
	}
	if d.Image != "" {
		tags = append(tags, nostr.Tag(nostr.TagImage, d.Image))
	}
	if d.Scene != nil {
		blob, _ := json.Marshal(d.Scene)
		tags = append(tags, nostr.Tag(nostr.TagScene, string(blob)))
	}
	if d.Expiration > 0 {
		tags = append(tags, nostr.Tag(nostr.TagExpiration, strconv.FormatInt(d.Expiration, 10)))
	}
	for _, label := range d.Labels {
		tags = append(tags, nostr.Tag(nostr.TagLabel, label))
	}
	return tags
}
