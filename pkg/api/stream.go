package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/papercomputeco/seagent/pkg/sse"
)

// StreamPath is the endpoint that answers a chat turn as an event stream.
const StreamPath = "/api/chat/stream"

// StreamOption configures a single StreamChat call.
type StreamOption func(*streamOptions)

type streamOptions struct {
	tee io.Writer
}

// WithTee copies the raw response bytes to w as they are read.
func WithTee(w io.Writer) StreamOption {
	return func(o *streamOptions) {
		o.tee = w
	}
}

// StreamChat posts a chat turn and delivers the reply through h as it
// arrives. It blocks until the stream ends or ctx is cancelled.
//
// A failure before the first byte (building the request, connecting, or a
// non-success status) is reported once through OnError as a
// *sse.TransportError and returned; no other handler runs. Once the response
// is open the stream behaves exactly like sse.Consume.
func (c *Client) StreamChat(ctx context.Context, req SendMessageRequest, h sse.Handlers, opts ...StreamOption) error {
	o := &streamOptions{}
	for _, opt := range opts {
		opt(o)
	}

	if req.Role == "" {
		req.Role = "user"
	}

	resp, err := c.openStream(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		terr := &sse.TransportError{Err: err}
		notify(h.OnError, terr)
		return terr
	}
	defer resp.Body.Close()

	stop := context.AfterFunc(ctx, func() { _ = resp.Body.Close() })
	defer stop()

	var r *sse.Reader
	if o.tee != nil {
		r = sse.NewTeeReader(resp.Body, o.tee)
	} else {
		r = sse.NewReader(resp.Body)
	}

	start := time.Now()
	err = sse.ConsumeReader(ctx, r, h)

	c.logger.Debug("chat stream finished",
		"chat_id", req.ChatID,
		"duration", time.Since(start),
		"dropped_frames", r.Dropped(),
		"error", err,
	)

	return err
}

func (c *Client) openStream(ctx context.Context, in SendMessageRequest) (*http.Response, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshaling stream request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, StreamPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("opening chat stream: %w", err)
	}

	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	c.logger.Debug("chat stream opened",
		"chat_id", in.ChatID,
		"content_type", resp.Header.Get("Content-Type"),
	)

	return resp, nil
}

// notify calls fn, swallowing a panic since there is no one left to tell.
func notify(fn func(error), err error) {
	if fn == nil {
		return
	}
	defer func() { _ = recover() }()
	fn(err)
}
