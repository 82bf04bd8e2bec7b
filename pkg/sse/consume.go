package sse

import (
	"context"
	"io"
	"strings"
)

// Handlers receives the events of one stream. Every field is optional.
type Handlers struct {
	// OnToken receives the text of each model token and generic frame.
	OnToken func(text string) error

	// OnToolEvent receives the raw payload of tool call, tool result,
	// intermediate step, and tool summary frames.
	OnToolEvent func(raw string) error

	// OnDone receives the concatenation of every token text of the stream.
	OnDone func(fullText string)

	// OnError receives handler failures and transport failures.
	OnError func(err error)

	// OnFirstToken fires once, immediately before the first OnToken call.
	OnFirstToken func()
}

// stream is the per-call state of Consume.
type stream struct {
	ctx        context.Context
	h          Handlers
	acc        strings.Builder
	seenFirst  bool
	doneCalled bool
}

// Consume reads src to completion, dispatching classified events to h.
//
// OnDone is called exactly once when the stream ends normally, either on the
// [DONE] sentinel or when src is exhausted, with all token text accumulated so
// far. Handler failures, returned or panicked, are wrapped in a HandlerError,
// delivered to OnError, and do not stop the stream. A read failure is wrapped
// in a TransportError, delivered to OnError, and returned; OnDone is not
// called.
//
// When ctx is cancelled Consume stops without invoking any further handler and
// returns ctx.Err(). If src implements io.Closer it is closed on cancellation
// so that a blocked read returns.
func Consume(ctx context.Context, src io.Reader, h Handlers) error {
	if c, ok := src.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { _ = c.Close() })
		defer stop()
	}

	return consumeReader(ctx, NewReader(src), h)
}

// ConsumeReader is Consume over an existing Reader, for callers that need a
// tee or the dropped frame count.
func ConsumeReader(ctx context.Context, r *Reader, h Handlers) error {
	return consumeReader(ctx, r, h)
}

func consumeReader(ctx context.Context, r *Reader, h Handlers) error {
	s := &stream{ctx: ctx, h: h}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ev, err := r.Next()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			terr := &TransportError{Err: err}
			s.reportError(terr)
			return terr
		}

		if ev == nil || ev.Kind == KindDone {
			s.done()
			return nil
		}

		s.dispatch(ev)
	}
}

func (s *stream) dispatch(ev *Event) {
	switch {
	case ev.Kind.IsToken():
		if !s.seenFirst {
			s.seenFirst = true
			if s.h.OnFirstToken != nil {
				s.guard(ev.Kind, func() error {
					s.h.OnFirstToken()
					return nil
				})
			}
		}

		s.acc.WriteString(ev.Text)

		if s.h.OnToken != nil {
			s.guard(ev.Kind, func() error { return s.h.OnToken(ev.Text) })
		}

	case ev.Kind.IsToolEvent():
		if s.h.OnToolEvent != nil {
			s.guard(ev.Kind, func() error { return s.h.OnToolEvent(ev.Payload) })
		}
	}
}

func (s *stream) done() {
	if s.doneCalled || s.h.OnDone == nil {
		return
	}
	s.doneCalled = true

	full := s.acc.String()
	s.guard(KindDone, func() error {
		s.h.OnDone(full)
		return nil
	})
}

// guard runs fn, converting a returned error or a panic into a HandlerError
// delivered to OnError. Nothing runs once the stream is cancelled.
func (s *stream) guard(kind Kind, fn func() error) {
	if s.ctx.Err() != nil {
		return
	}

	var err error
	func() {
		defer func() {
			if v := recover(); v != nil {
				err = &PanicError{Value: v}
			}
		}()
		err = fn()
	}()

	if err != nil {
		s.reportError(&HandlerError{Kind: kind, Err: err})
	}
}

// reportError delivers err to OnError unless the stream has been cancelled.
// A panicking OnError is swallowed: there is nowhere left to report it.
func (s *stream) reportError(err error) {
	if s.h.OnError == nil || s.ctx.Err() != nil {
		return
	}

	defer func() { _ = recover() }()
	s.h.OnError(err)
}
