// Copyright 2026 The Habitat Authors
// SPDX-License-Identifier: Apache-2.0

package rooms

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/habitat-project/habitat/lib/clock"
	"github.com/habitat-project/habitat/nostr"
)

const testRoomEvent = "room-event-id"

func testMessageRepository(t *testing.T, clk *clock.FakeClock, client *fakeClient) *MessageRepository {
	t.Helper()
	repository, err := NewMessageRepository(RepositoryConfig{
		Client: client,
		Clock:  clk,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("NewMessageRepository: %v", err)
	}
	return repository
}

func storedMessage(id string, createdAt int64, roomRef string) nostr.Event {
	return nostr.Event{
		ID:        id,
		Pubkey:    "sender",
		CreatedAt: createdAt,
		Kind:      nostr.KindChatMessage,
		Tags:      nostr.Tags{nostr.Tag("e", roomRef, "", "root")},
		Content:   "message " + id,
	}
}

func TestListMessagesOrderAndMembership(t *testing.T) {
	clk := clock.Fake(time.Unix(1700001000, 0))
	client := newFakeClient(clk, "")
	client.add(storedMessage("msg-b", 1700000200, testRoomEvent))
	client.add(storedMessage("msg-a", 1700000100, testRoomEvent))
	client.add(storedMessage("msg-c", 1700000300, testRoomEvent))
	client.add(storedMessage("msg-other", 1700000150, "some-other-room"))

	repository := testMessageRepository(t, clk, client)
	messages, err := repository.ListMessages(context.Background(), testRoomEvent)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}

	// Oldest first, and only this room's messages.
	ids := make([]string, len(messages))
	for i, message := range messages {
		ids[i] = message.ID
	}
	want := []string{"msg-a", "msg-b", "msg-c"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}
}

func TestListMessagesIncludesEphemeral(t *testing.T) {
	clk := clock.Fake(time.Unix(1700001000, 0))
	client := newFakeClient(clk, "")
	client.add(storedMessage("msg-perm", 1700000100, testRoomEvent))
	client.add(nostr.Event{
		ID:        "msg-eph",
		Pubkey:    "sender",
		CreatedAt: 1700000200,
		Kind:      nostr.KindEphemeral,
		Tags: nostr.Tags{
			nostr.Tag("e", testRoomEvent),
			nostr.Tag("expiration", "1700999999"),
		},
		Content: "still alive",
	})

	repository := testMessageRepository(t, clk, client)
	messages, err := repository.ListMessages(context.Background(), testRoomEvent)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want both kinds: %+v", len(messages), messages)
	}
	if !messages[1].Ephemeral {
		t.Fatal("kind 30000 message not marked ephemeral")
	}
}

func TestListMessagesExpiryFiltering(t *testing.T) {
	// One message expiring at T-1: absent when evaluated at T, present
	// when evaluated at T-2.
	const evaluationTime = int64(1700001000)

	build := func(now int64) (*MessageRepository, *fakeClient) {
		clk := clock.Fake(time.Unix(now, 0))
		client := newFakeClient(clk, "")
		event := storedMessage("msg-eph", 1700000100, testRoomEvent)
		event.Kind = nostr.KindEphemeral
		event.Tags = append(event.Tags, nostr.Tag("expiration", fmt.Sprint(evaluationTime-1)))
		client.add(event)
		return testMessageRepository(t, clk, client), client
	}

	t.Run("expired at evaluation time", func(t *testing.T) {
		repository, _ := build(evaluationTime)
		messages, err := repository.ListMessages(context.Background(), testRoomEvent)
		if err != nil {
			t.Fatalf("ListMessages: %v", err)
		}
		if len(messages) != 0 {
			t.Fatalf("messages = %+v, want expired message filtered", messages)
		}
	})

	t.Run("present two seconds earlier", func(t *testing.T) {
		repository, _ := build(evaluationTime - 2)
		messages, err := repository.ListMessages(context.Background(), testRoomEvent)
		if err != nil {
			t.Fatalf("ListMessages: %v", err)
		}
		if len(messages) != 1 {
			t.Fatalf("messages = %+v, want the not-yet-expired message", messages)
		}
	})
}

func TestListMessagesCacheFreshness(t *testing.T) {
	clk := clock.Fake(time.Unix(1700001000, 0))
	client := newFakeClient(clk, "")
	client.add(storedMessage("msg-a", 1700000100, testRoomEvent))
	repository := testMessageRepository(t, clk, client)

	for i := 0; i < 2; i++ {
		if _, err := repository.ListMessages(context.Background(), testRoomEvent); err != nil {
			t.Fatalf("ListMessages: %v", err)
		}
	}
	if client.queryCount != 1 {
		t.Fatalf("query count = %d, want 1 while fresh", client.queryCount)
	}

	clk.Advance(MessageFreshness)
	if _, err := repository.ListMessages(context.Background(), testRoomEvent); err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if client.queryCount != 2 {
		t.Fatalf("query count = %d, want 2 after the freshness window", client.queryCount)
	}
}

func TestListMessagesPagePagination(t *testing.T) {
	const base = int64(1700000000)
	clk := clock.Fake(time.Unix(base+3600, 0))
	client := newFakeClient(clk, "")
	// More messages than one page holds, so pagination must step.
	for i := 1; i <= 60; i++ {
		client.add(storedMessage(fmt.Sprintf("msg-%03d", i), base+int64(i), testRoomEvent))
	}
	repository := testMessageRepository(t, clk, client)

	before := base + 3600
	seen := make(map[string]bool)
	var pages [][]Message
	for {
		page, err := repository.ListMessagesPage(context.Background(), testRoomEvent, before)
		if err != nil {
			t.Fatalf("ListMessagesPage: %v", err)
		}
		if !page.HasMore {
			break
		}
		for _, message := range page.Messages {
			if seen[message.ID] {
				t.Fatalf("message %s appeared on two pages", message.ID)
			}
			seen[message.ID] = true
		}
		pages = append(pages, page.Messages)
		before = page.NextBefore
		if len(pages) > 10 {
			t.Fatal("pagination did not terminate")
		}
	}

	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2 (50 + 10)", len(pages))
	}
	if len(pages[0]) != 50 || len(pages[1]) != 10 {
		t.Fatalf("page sizes = %d, %d, want 50, 10", len(pages[0]), len(pages[1]))
	}
	if len(seen) != 60 {
		t.Fatalf("saw %d distinct messages, want 60", len(seen))
	}

	// Concatenated in cursor order, timestamps never increase across
	// page boundaries: every message on a later page is older than
	// every message on an earlier page.
	newestOnSecond := pages[1][len(pages[1])-1].CreatedAt
	oldestOnFirst := pages[0][0].CreatedAt
	if newestOnSecond >= oldestOnFirst {
		t.Fatalf("page 2 newest (%d) not older than page 1 oldest (%d)",
			newestOnSecond, oldestOnFirst)
	}
}

func TestListMessagesPageAllExpiredWindowKeepsWalking(t *testing.T) {
	// A full page of expired ephemeral records sits between the cursor
	// and the older permanent history. The expired window must not
	// terminate the walk: the page comes back empty but HasMore, with
	// the cursor advanced past the fetched records, and the next page
	// reaches the permanent messages behind them.
	const base = int64(1700000000)
	clk := clock.Fake(time.Unix(base+7200, 0))
	client := newFakeClient(clk, "")
	for i := 0; i < 5; i++ {
		client.add(storedMessage(fmt.Sprintf("old-%d", i), base+int64(i), testRoomEvent))
	}
	for i := 0; i < 50; i++ {
		event := storedMessage(fmt.Sprintf("eph-%02d", i), base+1000+int64(i), testRoomEvent)
		event.Kind = nostr.KindEphemeral
		event.Tags = append(event.Tags, nostr.Tag("expiration", fmt.Sprint(base+3600)))
		client.add(event)
	}
	repository := testMessageRepository(t, clk, client)

	first, err := repository.ListMessagesPage(context.Background(), testRoomEvent, base+7200)
	if err != nil {
		t.Fatalf("ListMessagesPage: %v", err)
	}
	if len(first.Messages) != 0 {
		t.Fatalf("first page = %+v, want all records filtered as expired", first.Messages)
	}
	if !first.HasMore {
		t.Fatal("first page reported HasMore=false with older history still behind it")
	}
	if first.NextBefore != base+1000-1 {
		t.Fatalf("NextBefore = %d, want %d (one before the oldest fetched record)",
			first.NextBefore, base+1000-1)
	}

	second, err := repository.ListMessagesPage(context.Background(), testRoomEvent, first.NextBefore)
	if err != nil {
		t.Fatalf("ListMessagesPage: %v", err)
	}
	if len(second.Messages) != 5 {
		t.Fatalf("second page has %d messages, want the 5 permanent ones", len(second.Messages))
	}
	for i, message := range second.Messages {
		if want := fmt.Sprintf("old-%d", i); message.ID != want {
			t.Fatalf("second page message %d = %s, want %s", i, message.ID, want)
		}
	}

	third, err := repository.ListMessagesPage(context.Background(), testRoomEvent, second.NextBefore)
	if err != nil {
		t.Fatalf("ListMessagesPage: %v", err)
	}
	if third.HasMore {
		t.Fatalf("third page = %+v, want terminal", third)
	}
}

func TestListMessagesPageEmptyTerminates(t *testing.T) {
	clk := clock.Fake(time.Unix(1700001000, 0))
	client := newFakeClient(clk, "")
	repository := testMessageRepository(t, clk, client)

	page, err := repository.ListMessagesPage(context.Background(), testRoomEvent, 1700000000)
	if err != nil {
		t.Fatalf("ListMessagesPage: %v", err)
	}
	if page.HasMore || len(page.Messages) != 0 {
		t.Fatalf("page = %+v, want empty terminal page", page)
	}
}
