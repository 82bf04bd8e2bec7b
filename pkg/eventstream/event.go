package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/seagent/pkg/storage"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTurnRecorded is emitted after a chat turn is recorded locally.
	EventTypeTurnRecorded = "seagent.turn.recorded"
)

// TurnRecordedEvent is a transport-neutral event payload for a recorded turn.
type TurnRecordedEvent struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	EventID       string      `json:"event_id"`
	EmittedAt     time.Time   `json:"emitted_at"`
	Source        EventSource `json:"source"`
	Turn          TurnPayload `json:"turn"`
}

// EventSource identifies the client and account the turn came from.
type EventSource struct {
	Client    string `json:"client"`
	Version   string `json:"version,omitempty"`
	Username  string `json:"username,omitempty"`
	APITarget string `json:"api_target,omitempty"`
}

// TurnPayload is the recorded turn.
type TurnPayload struct {
	ID          string    `json:"id"`
	ChatID      int       `json:"chat_id"`
	Collection  string    `json:"collection,omitempty"`
	Prompt      string    `json:"prompt"`
	Response    string    `json:"response"`
	ToolEvents  []string  `json:"tool_events,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
	Error       string    `json:"error,omitempty"`
}

// NewTurnRecordedEvent builds the event for turn.
func NewTurnRecordedEvent(turn *storage.Turn, source EventSource) *TurnRecordedEvent {
	return &TurnRecordedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeTurnRecorded,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		Turn: TurnPayload{
			ID:          turn.ID.String(),
			ChatID:      turn.ChatID,
			Collection:  turn.Collection,
			Prompt:      turn.Prompt,
			Response:    turn.Response,
			ToolEvents:  turn.ToolEvents,
			StartedAt:   turn.StartedAt,
			CompletedAt: turn.CompletedAt,
			DurationMs:  turn.Duration().Milliseconds(),
			Error:       turn.Err,
		},
	}
}
