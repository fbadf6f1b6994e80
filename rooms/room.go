// Copyright 2026 The Habitat Authors
// SPDX-License-Identifier: Apache-2.0

package rooms

import (
	"fmt"
	"strings"
)

// RoomType classifies a room's intended use. Unknown values pass
// through decoding unvalidated — a newer client may publish types this
// version does not know about.
type RoomType string

// Room types understood by this version.
const (
	RoomTypeLobby     RoomType = "lobby"
	RoomTypeMeeting   RoomType = "meeting"
	RoomTypeSocial    RoomType = "social"
	RoomTypeWorkspace RoomType = "workspace"
	RoomTypeCustom    RoomType = "custom"
)

// SceneConfig describes a room's visual scene. Every field is optional
// on the wire; decoding overlays whatever is present onto
// DefaultScene, so a decoded Room always carries a fully populated
// value.
type SceneConfig struct {
	BackgroundColor string   `json:"backgroundColor"`
	MaxUsers        int      `json:"maxUsers"`
	IsPublic        bool     `json:"isPublic"`
	RoomType        RoomType `json:"roomType"`
}

// DefaultScene returns the scene applied when a room carries no scene
// tag, or when its scene blob fails to parse.
func DefaultScene() SceneConfig {
	return SceneConfig{
		BackgroundColor: "#1a1a2e",
		MaxUsers:        20,
		IsPublic:        true,
		RoomType:        RoomTypeSocial,
	}
}

// RoomID is the stable cross-version identity of a room: the author's
// public key plus the author-chosen slug. The slug never changes on
// update, so every republish by the same author with the same slug
// addresses the same logical room.
type RoomID struct {
	Author string
	Slug   string
}

// String returns the composite form "authorKey:slug".
func (id RoomID) String() string {
	return id.Author + ":" + id.Slug
}

// IsZero reports whether either component is empty.
func (id RoomID) IsZero() bool {
	return id.Author == "" || id.Slug == ""
}

// ParseRoomID parses the composite form "authorKey:slug". The author
// key is hex and never contains a colon, so the first colon is the
// separator; the slug may contain further colons.
func ParseRoomID(raw string) (RoomID, error) {
	author, slug, found := strings.Cut(raw, ":")
	if !found || author == "" || slug == "" {
		return RoomID{}, fmt.Errorf("rooms: invalid room ID %q: want \"authorKey:slug\"", raw)
	}
	return RoomID{Author: author, Slug: slug}, nil
}

// Room is an immutable snapshot of the newest room-definition record
// for one identity. A "room update" on the wire is a new record sharing
// the same (author, slug); the repository picks the newest such record
// as current.
type Room struct {
	// ID is the stable composite identity (author, slug).
	ID RoomID

	// EventID identifies the specific record version currently
	// representing this room. It changes on every republish, and is
	// what messages reference to attach themselves to the room.
	EventID string

	// Author is the public key of the creator. Only this key can
	// legitimately issue updates — the identity includes it, so a
	// different author republishing the same slug produces a distinct
	// room rather than an override.
	Author string

	Title       string
	Description string
	Image       string

	// Scene is always fully populated: decoded fields are overlaid
	// onto DefaultScene.
	Scene SceneConfig

	// Labels are the room's free-form "t" labels in wire order, with
	// duplicates removed at decode time.
	Labels []string

	// Expiration is the optional unix-seconds expiry of an ephemeral
	// room. Nil means the room never expires.
	Expiration *int64

	// CreatedAt and UpdatedAt both carry the decoded record's
	// timestamp. A room's "updated" time is simply the newest record
	// with its identity.
	CreatedAt int64
	UpdatedAt int64
}
