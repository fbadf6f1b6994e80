// Copyright 2026 The Habitat Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/habitat-project/habitat/lib/clock"
	"github.com/habitat-project/habitat/nostr"
)

// PoolConfig holds configuration for creating a Pool.
type PoolConfig struct {
	// URLs are the relay websocket URLs (e.g., "wss://relay.example.com").
	// At least one is required.
	URLs []string

	// Signer signs published events. If nil, the pool is read-only and
	// Publish returns nostr.ErrNotAuthenticated.
	Signer Signer

	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger

	// Clock supplies publish timestamps. If nil, clock.Real() is used.
	Clock clock.Clock

	// Dialer is used for websocket connections. If nil,
	// websocket.DefaultDialer is used.
	Dialer *websocket.Dialer
}

// Pool is a nostr.Client over one websocket connection per configured
// relay. Connections are dialed lazily on first use and redialed when
// a read loop dies; there is no reconnect backoff — the next call that
// needs the relay attempts one fresh dial.
//
// Pool is safe for concurrent use.
type Pool struct {
	urls   []string
	signer Signer
	logger *slog.Logger
	clock  clock.Clock
	dialer *websocket.Dialer

	mu     sync.Mutex
	conns  map[string]*relayConn
	closed bool
}

// Compile-time check: *Pool implements nostr.Client.
var _ nostr.Client = (*Pool)(nil)

// NewPool creates a Pool. No connections are dialed until first use.
func NewPool(config PoolConfig) (*Pool, error) {
	if len(config.URLs) == 0 {
		return nil, fmt.Errorf("relay: at least one relay URL is required")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	dialer := config.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	return &Pool{
		urls:   config.URLs,
		signer: config.Signer,
		logger: logger,
		clock:  clk,
		dialer: dialer,
		conns:  make(map[string]*relayConn),
	}, nil
}

// Pubkey returns the signing identity's public key, or "" for a
// read-only pool.
func (p *Pool) Pubkey() string {
	if p.signer == nil {
		return ""
	}
	return p.signer.Pubkey()
}

// Close tears down every open relay connection. The pool cannot be
// used afterwards.
func (p *Pool) Close() error {
	p.mu.Lock()
	p.closed = true
	conns := p.conns
	p.conns = nil
	p.mu.Unlock()

	for _, connection := range conns {
		connection.conn.Close()
	}
	return nil
}

// Query sends the filters to every configured relay in parallel and
// merges the results, collapsing duplicate events by ID. The query
// succeeds when at least one relay answers; per-relay failures are
// logged and only surface when every relay fails.
func (p *Pool) Query(ctx context.Context, filters []nostr.Filter) ([]nostr.Event, error) {
	if len(filters) == 0 {
		return nil, fmt.Errorf("relay: at least one filter is required")
	}

	type relayResult struct {
		url    string
		events []nostr.Event
		err    error
	}
	results := make(chan relayResult, len(p.urls))
	for _, url := range p.urls {
		url := url
		go func() {
			events, err := p.queryRelay(ctx, url, filters)
			results <- relayResult{url: url, events: events, err: err}
		}()
	}

	var merged []nostr.Event
	seen := make(map[string]bool)
	var failures []error
	answered := false
	for range p.urls {
		result := <-results
		if result.err != nil {
			p.logger.Debug("relay query failed",
				"relay", result.url,
				"error", result.err,
			)
			failures = append(failures, fmt.Errorf("%s: %w", result.url, result.err))
			continue
		}
		answered = true
		for _, event := range result.events {
			if !seen[event.ID] {
				seen[event.ID] = true
				merged = append(merged, event)
			}
		}
	}

	if !answered {
		return nil, fmt.Errorf("relay: query failed on all relays: %w", errors.Join(failures...))
	}
	return merged, nil
}

// Publish signs the draft and sends it to every configured relay. The
// publish succeeds when at least one relay accepts the event.
func (p *Pool) Publish(ctx context.Context, draft nostr.EventDraft) (*nostr.Event, error) {
	if p.signer == nil {
		return nil, nostr.ErrNotAuthenticated
	}

	tags := draft.Tags
	if tags == nil {
		tags = nostr.Tags{}
	}
	event := nostr.Event{
		Pubkey:    p.signer.Pubkey(),
		CreatedAt: p.clock.Now().Unix(),
		Kind:      draft.Kind,
		Tags:      tags,
		Content:   draft.Content,
	}
	event.ID = ComputeEventID(event)
	signature, err := p.signer.Sign(event.ID)
	if err != nil {
		return nil, err
	}
	event.Sig = signature

	results := make(chan error, len(p.urls))
	for _, url := range p.urls {
		url := url
		go func() {
			results <- p.publishRelay(ctx, url, event)
		}()
	}

	var failures []error
	accepted := false
	for range p.urls {
		if err := <-results; err != nil {
			failures = append(failures, err)
		} else {
			accepted = true
		}
	}
	if !accepted {
		return nil, fmt.Errorf("relay: publish failed on all relays: %w", errors.Join(failures...))
	}
	return &event, nil
}

// queryRelay runs one REQ subscription against one relay, collecting
// events until the relay signals end-of-stored-events.
func (p *Pool) queryRelay(ctx context.Context, url string, filters []nostr.Filter) ([]nostr.Event, error) {
	connection, err := p.connection(ctx, url)
	if err != nil {
		return nil, err
	}

	subID := uuid.NewString()
	frames := make(chan subFrame, subscriptionBuffer)
	if err := connection.subscribe(subID, frames); err != nil {
		return nil, err
	}
	defer connection.unsubscribe(subID)

	request := make([]any, 0, len(filters)+2)
	request = append(request, "REQ", subID)
	for _, filter := range filters {
		request = append(request, filter)
	}
	if err := connection.send(request); err != nil {
		return nil, fmt.Errorf("sending subscription: %w", err)
	}
	defer func() {
		// Best effort: the connection may already be gone.
		_ = connection.send([]any{"CLOSE", subID})
	}()

	var events []nostr.Event
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case frame, open := <-frames:
			if !open {
				return nil, fmt.Errorf("connection lost during query")
			}
			if frame.event == nil {
				return events, nil
			}
			events = append(events, *frame.event)
		}
	}
}

// publishRelay sends one signed event to one relay and waits for its
// OK frame.
func (p *Pool) publishRelay(ctx context.Context, url string, event nostr.Event) error {
	connection, err := p.connection(ctx, url)
	if err != nil {
		return err
	}

	ack := make(chan okFrame, 1)
	if err := connection.expectAck(event.ID, ack); err != nil {
		return err
	}
	defer connection.forgetAck(event.ID)

	if err := connection.send([]any{"EVENT", event}); err != nil {
		return fmt.Errorf("sending event to %s: %w", url, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case frame, open := <-ack:
		if !open {
			return fmt.Errorf("connection to %s lost awaiting ack", url)
		}
		if !frame.accepted {
			return &RelayError{URL: url, Reason: frame.reason}
		}
		return nil
	}
}

// connection returns the live connection for url, dialing if needed.
// A connection whose read loop has died is discarded and redialed.
func (p *Pool) connection(ctx context.Context, url string) (*relayConn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("relay: pool is closed")
	}
	if existing, ok := p.conns[url]; ok {
		select {
		case <-existing.done:
			delete(p.conns, url)
		default:
			p.mu.Unlock()
			return existing, nil
		}
	}
	p.mu.Unlock()

	socket, _, err := p.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}

	connection := newRelayConn(url, socket, p.logger)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		socket.Close()
		return nil, fmt.Errorf("relay: pool is closed")
	}
	// A concurrent dial for the same relay may have won; use the
	// winner and drop ours.
	if existing, ok := p.conns[url]; ok {
		select {
		case <-existing.done:
			delete(p.conns, url)
		default:
			socket.Close()
			return existing, nil
		}
	}
	p.conns[url] = connection
	go connection.readLoop()
	return connection, nil
}
