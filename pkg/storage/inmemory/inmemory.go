// Package inmemory provides a map-backed storage driver for tests and for
// sessions that should not leave anything on disk.
package inmemory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/papercomputeco/seagent/pkg/storage"
)

// Driver implements storage.Driver using an in-memory map.
type Driver struct {
	// mu is a read write sync mutex for locking the mapping of turns
	mu sync.RWMutex

	turns map[uuid.UUID]storage.Turn
}

// NewDriver creates a new in-memory storer.
func NewDriver() *Driver {
	return &Driver{
		turns: make(map[uuid.UUID]storage.Turn),
	}
}

// Put stores a copy of turn, replacing any turn with the same ID.
func (s *Driver) Put(_ context.Context, turn *storage.Turn) error {
	if turn == nil {
		return storage.ErrNilTurn
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns[turn.ID] = clone(turn)
	return nil
}

// Get retrieves a turn by ID.
func (s *Driver) Get(_ context.Context, id uuid.UUID) (*storage.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.turns[id]
	if !ok {
		return nil, storage.NotFoundError{ID: id}
	}

	out := clone(&t)
	return &out, nil
}

// ListByChat returns the turns of one chat, oldest first.
func (s *Driver) ListByChat(_ context.Context, chatID int) ([]*storage.Turn, error) {
	return s.collect(func(t *storage.Turn) bool { return t.ChatID == chatID }), nil
}

// List returns every turn, oldest first.
func (s *Driver) List(_ context.Context) ([]*storage.Turn, error) {
	return s.collect(func(*storage.Turn) bool { return true }), nil
}

// Delete removes a turn.
func (s *Driver) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.turns[id]; !ok {
		return storage.NotFoundError{ID: id}
	}

	delete(s.turns, id)
	return nil
}

// Close is a no-op for the in-memory driver.
func (s *Driver) Close() error {
	return nil
}

func (s *Driver) collect(keep func(*storage.Turn) bool) []*storage.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*storage.Turn{}
	for _, t := range s.turns {
		if keep(&t) {
			c := clone(&t)
			result = append(result, &c)
		}
	}

	slices.SortFunc(result, func(a, b *storage.Turn) int {
		if c := a.StartedAt.Compare(b.StartedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})

	return result
}

func clone(t *storage.Turn) storage.Turn {
	c := *t
	c.ToolEvents = slices.Clone(t.ToolEvents)
	return c
}
