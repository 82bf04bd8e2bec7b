package storage

import "github.com/google/uuid"

// NotFoundError is returned when a turn doesn't exist in the store.
type NotFoundError struct {
	ID uuid.UUID
}

func (e NotFoundError) Error() string {
	if e.ID == uuid.Nil {
		return "turn not found"
	}

	return "turn not found: " + e.ID.String()
}
