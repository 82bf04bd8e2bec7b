// Package sse parses the SeAgent chat stream: a chunked HTTP response body
// carrying "data: <payload>" frames separated by a blank line ("\n\n").
//
// Each frame payload is classified by a literal prefix into model tokens,
// tool-use markers, or the terminal [DONE] sentinel. Reader exposes the
// classified events one at a time; Consume drives a Reader and dispatches the
// events to a set of Handlers, accumulating the full response text.
package sse

import "strings"

const (
	// DataPrefix is the field marker every protocol frame starts with.
	DataPrefix = "data: "

	// DoneSentinel terminates the stream.
	DoneSentinel = "[DONE]"

	PrefixModelResponse     = "[MODEL_RESPONSE]"
	PrefixToolCallStart     = "[TOOL_CALL_START]"
	PrefixToolResultStart   = "[TOOL_RESULT_START]"
	PrefixIntermediateStart = "[INTERMEDIATE_START]"
	PrefixToolSummaryStart  = "[TOOL_SUMMARY_START]"
)

// Kind is the classification of a single frame payload.
type Kind int

const (
	KindToken Kind = iota
	KindToolCall
	KindToolResult
	KindIntermediate
	KindToolSummary
	KindGeneric
	KindDone
)

func (k Kind) String() string {
	switch k {
	case KindToken:
		return "token"
	case KindToolCall:
		return "tool_call"
	case KindToolResult:
		return "tool_result"
	case KindIntermediate:
		return "intermediate"
	case KindToolSummary:
		return "tool_summary"
	case KindGeneric:
		return "generic"
	case KindDone:
		return "done"
	default:
		return "unknown"
	}
}

// IsToken reports whether events of this kind carry assistant output text.
func (k Kind) IsToken() bool {
	return k == KindToken || k == KindGeneric
}

// IsToolEvent reports whether events of this kind are tool-use markers that
// are passed through to the caller uninterpreted.
func (k Kind) IsToolEvent() bool {
	switch k {
	case KindToolCall, KindToolResult, KindIntermediate, KindToolSummary:
		return true
	default:
		return false
	}
}

// Event is a single classified frame.
type Event struct {
	Kind Kind

	// Payload is the frame content after the "data: " marker, verbatim.
	Payload string

	// Text is the assistant output carried by token and generic events.
	// For KindToken the [MODEL_RESPONSE] marker is removed; for KindGeneric it
	// equals Payload. Empty for every other kind.
	Text string
}

// tagged lists the tool-use prefixes in match order, after the model token
// prefix which is always checked first.
var tagged = []struct {
	prefix string
	kind   Kind
}{
	{PrefixToolCallStart, KindToolCall},
	{PrefixToolResultStart, KindToolResult},
	{PrefixIntermediateStart, KindIntermediate},
	{PrefixToolSummaryStart, KindToolSummary},
}

// Classify maps a frame payload to an Event. The second return value is false
// for payloads that are blank after trimming and carry no known prefix; such
// payloads produce no event.
func Classify(payload string) (Event, bool) {
	if payload == DoneSentinel {
		return Event{Kind: KindDone, Payload: payload}, true
	}

	if text, ok := strings.CutPrefix(payload, PrefixModelResponse); ok {
		return Event{Kind: KindToken, Payload: payload, Text: text}, true
	}

	for _, t := range tagged {
		if strings.HasPrefix(payload, t.prefix) {
			return Event{Kind: t.kind, Payload: payload}, true
		}
	}

	if strings.TrimSpace(payload) == "" {
		return Event{}, false
	}

	return Event{Kind: KindGeneric, Payload: payload, Text: payload}, true
}
