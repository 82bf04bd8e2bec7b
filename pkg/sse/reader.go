package sse

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	initialBufferSize = 64 * 1024
	maxFrameSize      = 4 * 1024 * 1024
)

var frameDelim = []byte("\n\n")

// Reader reads classified events from a chat stream.
//
// ┌──────────────────┐
// │ source io.Reader │──▶ (optional tee io.Writer, raw bytes)
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐
// │  UTF-8 decoder   │  incremental, holds split runes across reads
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐
// │  "\n\n" framing  │  partial trailing frame is dropped
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐
// │  Reader.Next()   │──▶ *Event
// └──────────────────┘
//
// A Reader belongs to a single stream and is not safe for concurrent use.
type Reader struct {
	scanner *bufio.Scanner

	dropped int
	done    bool
}

// NewReader returns a Reader that parses frames from src.
func NewReader(src io.Reader) *Reader {
	return newReader(src)
}

// NewTeeReader returns a Reader that parses frames from src and writes every
// raw byte read from src to dest before decoding. A write error on dest
// surfaces from Next as a read error.
func NewTeeReader(src io.Reader, dest io.Writer) *Reader {
	return newReader(io.TeeReader(src, dest))
}

func newReader(src io.Reader) *Reader {
	decoded := transform.NewReader(src, unicode.UTF8.NewDecoder())

	scanner := bufio.NewScanner(decoded)
	scanner.Buffer(make([]byte, initialBufferSize), maxFrameSize)
	scanner.Split(splitFrames)

	return &Reader{scanner: scanner}
}

// Next returns the next classified event. It blocks until a complete frame is
// available. Frames without the "data: " marker and blank payloads are skipped.
//
// Next returns nil, nil when the source is exhausted, and for every call after
// a KindDone event has been returned: nothing past the sentinel is read.
func (r *Reader) Next() (*Event, error) {
	if r.done {
		return nil, nil
	}

	for r.scanner.Scan() {
		frame := r.scanner.Text()

		payload, ok := strings.CutPrefix(frame, DataPrefix)
		if !ok {
			if frame != "" {
				r.dropped++
			}
			continue
		}

		ev, ok := Classify(payload)
		if !ok {
			continue
		}

		if ev.Kind == KindDone {
			r.done = true
		}
		return &ev, nil
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	r.done = true
	return nil, nil
}

// Dropped returns the number of complete, non-empty frames discarded so far
// because they did not start with the "data: " marker.
func (r *Reader) Dropped() int {
	return r.dropped
}

// splitFrames is a bufio.SplitFunc yielding the text between "\n\n"
// delimiters. Bytes left over at EOF never form a frame.
func splitFrames(data []byte, atEOF bool) (int, []byte, error) {
	if i := bytes.Index(data, frameDelim); i >= 0 {
		return i + len(frameDelim), data[:i], nil
	}

	if atEOF {
		return len(data), nil, nil
	}

	return 0, nil, nil
}
