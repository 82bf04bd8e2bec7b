package storage

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/papercomputeco/seagent/pkg/sse"
)

// Recorder captures one streamed turn and persists it to a Driver.
//
// Wrap the stream's handlers, run the stream, then call Finish with the
// stream's result. Finish persists whatever arrived, including partial replies
// of failed or cancelled streams.
type Recorder struct {
	driver Driver
	logger *slog.Logger
	turn   *Turn

	response  strings.Builder
	failure   error
	completed bool
	finished  bool
}

// NewRecorder returns a Recorder for turn.
func NewRecorder(driver Driver, turn *Turn, logger *slog.Logger) *Recorder {
	return &Recorder{
		driver: driver,
		logger: logger,
		turn:   turn,
	}
}

// Turn returns the turn being recorded.
func (r *Recorder) Turn() *Turn {
	return r.turn
}

// Wrap returns handlers that record every event before passing it on to h.
func (r *Recorder) Wrap(h sse.Handlers) sse.Handlers {
	return sse.Handlers{
		OnFirstToken: h.OnFirstToken,

		OnToken: func(text string) error {
			r.response.WriteString(text)
			if h.OnToken != nil {
				return h.OnToken(text)
			}
			return nil
		},

		OnToolEvent: func(raw string) error {
			r.turn.ToolEvents = append(r.turn.ToolEvents, raw)
			if h.OnToolEvent != nil {
				return h.OnToolEvent(raw)
			}
			return nil
		},

		OnDone: func(fullText string) {
			r.completed = true
			r.response.Reset()
			r.response.WriteString(fullText)
			if h.OnDone != nil {
				h.OnDone(fullText)
			}
		},

		OnError: func(err error) {
			var terr *sse.TransportError
			if errors.As(err, &terr) && r.failure == nil {
				r.failure = err
			}
			if h.OnError != nil {
				h.OnError(err)
			}
		},
	}
}

// Finish stamps the turn with its response and outcome and stores it. It
// runs at most once; later calls return nil. Storage uses a context detached
// from ctx's cancellation so a cancelled stream is still recorded.
func (r *Recorder) Finish(ctx context.Context, streamErr error) error {
	if r.finished {
		return nil
	}
	r.finished = true

	r.turn.Response = r.response.String()
	r.turn.CompletedAt = time.Now().UTC()

	switch {
	case r.failure != nil:
		r.turn.Err = r.failure.Error()
	case errors.Is(streamErr, context.Canceled):
		r.turn.Err = "cancelled"
	case streamErr != nil:
		r.turn.Err = streamErr.Error()
	case !r.completed:
		r.turn.Err = "stream ended without completing"
	}

	if err := r.driver.Put(context.WithoutCancel(ctx), r.turn); err != nil {
		r.logger.Warn("failed to record turn", "turn_id", r.turn.ID, "error", err)
		return err
	}

	r.logger.Debug("recorded turn",
		"turn_id", r.turn.ID,
		"chat_id", r.turn.ChatID,
		"tool_events", len(r.turn.ToolEvents),
		"duration", r.turn.Duration(),
		"error", r.turn.Err,
	)

	return nil
}
