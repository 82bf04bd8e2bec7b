// Package storage records streamed chat turns locally so they can be
// reviewed after the fact, independent of the backend's own history.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNilTurn is returned when a nil turn is stored.
var ErrNilTurn = errors.New("cannot store nil turn")

// Turn is one prompt and the streamed reply it produced.
type Turn struct {
	ID     uuid.UUID
	ChatID int

	Prompt   string
	Response string

	// ToolEvents holds the raw payloads of tool call, tool result,
	// intermediate step, and tool summary frames, in arrival order.
	ToolEvents []string

	Collection string

	StartedAt   time.Time
	CompletedAt time.Time

	// Err is the reason the turn ended abnormally, empty on success.
	Err string
}

// NewTurn starts a turn for a prompt sent to chatID.
func NewTurn(chatID int, prompt, collection string) *Turn {
	return &Turn{
		ID:         uuid.New(),
		ChatID:     chatID,
		Prompt:     prompt,
		Collection: collection,
		StartedAt:  time.Now().UTC(),
	}
}

// Duration is the time between the prompt and the end of the reply.
func (t *Turn) Duration() time.Duration {
	if t.CompletedAt.IsZero() {
		return 0
	}
	return t.CompletedAt.Sub(t.StartedAt)
}

// Driver defines the interface for persisting and retrieving turns in a storage backend.
type Driver interface {
	// Put inserts a turn, or replaces the stored turn with the same ID.
	Put(ctx context.Context, turn *Turn) error

	// Get retrieves a turn by ID.
	Get(ctx context.Context, id uuid.UUID) (*Turn, error)

	// ListByChat returns the turns of one chat, oldest first.
	ListByChat(ctx context.Context, chatID int) ([]*Turn, error)

	// List returns every stored turn, oldest first.
	List(ctx context.Context) ([]*Turn, error)

	// Delete removes a turn. Deleting an unknown ID returns NotFoundError.
	Delete(ctx context.Context, id uuid.UUID) error

	// Close closes the store and releases any resources.
	Close() error
}
