// Package inmemory provides an eventstream publisher that keeps events in
// memory, for tests and local inspection.
package inmemory

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/seagent/pkg/eventstream"
)

// Publisher collects published events in order.
type Publisher struct {
	mu     sync.Mutex
	events []*eventstream.TurnRecordedEvent
	closed bool
}

// NewPublisher creates an empty in-memory publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishTurn appends event.
func (p *Publisher) PublishTurn(_ context.Context, event *eventstream.TurnRecordedEvent) error {
	if event == nil {
		return eventstream.ErrNilTurnEvent
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errors.New("publisher is closed")
	}
	p.events = append(p.events, event)
	return nil
}

// Events returns a copy of the published events.
func (p *Publisher) Events() []*eventstream.TurnRecordedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*eventstream.TurnRecordedEvent(nil), p.events...)
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
