// Copyright 2026 The Habitat Authors
// SPDX-License-Identifier: Apache-2.0

package rooms

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/habitat-project/habitat/lib/clock"
	"github.com/habitat-project/habitat/lib/testutil"
	"github.com/habitat-project/habitat/nostr"
)

// fakeClient is an in-memory relay: it stores events and answers
// queries with real filter matching (kinds, authors, #e, #d, until,
// limit, newest-first truncation), so repository tests exercise the
// same shapes a relay would return. Publish assigns IDs and timestamps
// the way the transport does.
type fakeClient struct {
	mu     sync.Mutex
	pubkey string
	clock  clock.Clock
	events []nostr.Event

	queryErr   error
	queryCount int
}

func newFakeClient(clk clock.Clock, pubkey string) *fakeClient {
	return &fakeClient{pubkey: pubkey, clock: clk}
}

// add stores a pre-built event, as if another writer had published it.
func (f *fakeClient) add(event nostr.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeClient) Query(ctx context.Context, filters []nostr.Filter) ([]nostr.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCount++
	if f.queryErr != nil {
		return nil, f.queryErr
	}

	var result []nostr.Event
	seen := make(map[string]bool)
	for _, filter := range filters {
		matched := make([]nostr.Event, 0)
		for _, event := range f.events {
			if matches(filter, event) {
				matched = append(matched, event)
			}
		}
		// Relays return newest first, truncated to the limit.
		sort.Slice(matched, func(i, j int) bool {
			return matched[i].CreatedAt > matched[j].CreatedAt
		})
		if filter.Limit > 0 && len(matched) > filter.Limit {
			matched = matched[:filter.Limit]
		}
		for _, event := range matched {
			if !seen[event.ID] {
				seen[event.ID] = true
				result = append(result, event)
			}
		}
	}
	return result, nil
}

func (f *fakeClient) Publish(ctx context.Context, draft nostr.EventDraft) (*nostr.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.pubkey == "" {
		return nil, nostr.ErrNotAuthenticated
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	event := nostr.Event{
		ID:        testutil.UniqueID("event"),
		Pubkey:    f.pubkey,
		CreatedAt: f.clock.Now().Unix(),
		Kind:      draft.Kind,
		Tags:      draft.Tags,
		Content:   draft.Content,
		Sig:       "fake-sig",
	}
	f.events = append(f.events, event)
	return &event, nil
}

func (f *fakeClient) Pubkey() string { return f.pubkey }

func matches(filter nostr.Filter, event nostr.Event) bool {
	if len(filter.Kinds) > 0 && !slices.Contains(filter.Kinds, event.Kind) {
		return false
	}
	if len(filter.Authors) > 0 && !slices.Contains(filter.Authors, event.Pubkey) {
		return false
	}
	if len(filter.Events) > 0 && !tagMatches(event.Tags, nostr.TagEvent, filter.Events) {
		return false
	}
	if len(filter.Identifiers) > 0 && !tagMatches(event.Tags, nostr.TagIdentifier, filter.Identifiers) {
		return false
	}
	if filter.Until > 0 && event.CreatedAt > filter.Until {
		return false
	}
	return true
}

func tagMatches(tags nostr.Tags, name string, wanted []string) bool {
	for _, value := range tags.Values(name) {
		if slices.Contains(wanted, value) {
			return true
		}
	}
	return false
}
