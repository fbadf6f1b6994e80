// Copyright 2026 The Habitat Authors
// SPDX-License-Identifier: Apache-2.0

// Habitat is the command-line client for decentralized social rooms.
// It lists and inspects rooms, reads and paginates room messages,
// watches a room for new messages, and publishes rooms and messages
// through the configured relays.
// Subcommands: rooms, room, messages, watch, create-room, update-room,
// send, send-ephemeral, keygen.
package main
