package sse

import (
	"fmt"
	"net/http"
)

// TransportError reports a failure of the stream transport itself: request
// setup, connection, a non-success status, or a read error mid-stream.
// Transport errors end the stream.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "stream transport: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HandlerError reports that a handler failed while processing an event of the
// given kind. Handler errors never end the stream.
type HandlerError struct {
	Kind Kind
	Err  error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handling %s event: %v", e.Kind, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// StatusError is returned when the server answers with a non-success status.
// Detail carries the server supplied reason when one could be extracted.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("server returned status %d (%s)", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Detail)
}

// PanicError wraps a value recovered from a panicking handler.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panicked: %v", e.Value)
}
