package sse_test

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/seagent/pkg/sse"
)

// drain reads every event from r until nil, nil.
func drain(r *sse.Reader) []sse.Event {
	var events []sse.Event
	for {
		ev, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		if ev == nil {
			return events
		}
		events = append(events, *ev)
	}
}

var _ = Describe("Reader", func() {
	Describe("Next", func() {
		Context("with well-formed frames", func() {
			It("parses a single model token", func() {
				r := sse.NewReader(strings.NewReader("data: [MODEL_RESPONSE]hello\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Kind).To(Equal(sse.KindToken))
				Expect(ev.Text).To(Equal("hello"))
				Expect(ev.Payload).To(Equal("[MODEL_RESPONSE]hello"))

				ev, err = r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev).To(BeNil())
			})

			It("parses multiple frames in order", func() {
				input := "data: [MODEL_RESPONSE]a\n\n" +
					"data: [TOOL_CALL_START]{\"name\":\"x\"}\n\n" +
					"data: plain\n\n"
				events := drain(sse.NewReader(strings.NewReader(input)))

				Expect(events).To(HaveLen(3))
				Expect(events[0].Kind).To(Equal(sse.KindToken))
				Expect(events[1].Kind).To(Equal(sse.KindToolCall))
				Expect(events[1].Payload).To(Equal("[TOOL_CALL_START]{\"name\":\"x\"}"))
				Expect(events[2].Kind).To(Equal(sse.KindGeneric))
				Expect(events[2].Text).To(Equal("plain"))
			})

			It("keeps newlines inside a frame payload", func() {
				events := drain(sse.NewReader(strings.NewReader("data: [MODEL_RESPONSE]line one\nline two\n\n")))

				Expect(events).To(HaveLen(1))
				Expect(events[0].Text).To(Equal("line one\nline two"))
			})
		})

		Context("with the terminal sentinel", func() {
			It("returns a done event and stops reading", func() {
				input := "data: [MODEL_RESPONSE]a\n\ndata: [DONE]\n\ndata: [MODEL_RESPONSE]ignored\n\n"
				r := sse.NewReader(strings.NewReader(input))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Kind).To(Equal(sse.KindToken))

				ev, err = r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Kind).To(Equal(sse.KindDone))

				ev, err = r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev).To(BeNil())
			})
		})

		Context("with frames that are not protocol frames", func() {
			It("drops frames without the data marker and counts them", func() {
				input := "event: ping\n\n: comment\n\ndata: [MODEL_RESPONSE]ok\n\n"
				r := sse.NewReader(strings.NewReader(input))

				events := drain(r)
				Expect(events).To(HaveLen(1))
				Expect(events[0].Text).To(Equal("ok"))
				Expect(r.Dropped()).To(Equal(2))
			})

			It("requires the space after the data colon", func() {
				r := sse.NewReader(strings.NewReader("data:no-space\n\n"))

				Expect(drain(r)).To(BeEmpty())
				Expect(r.Dropped()).To(Equal(1))
			})

			It("skips blank payloads", func() {
				Expect(drain(sse.NewReader(strings.NewReader("data: \n\ndata:    \n\n")))).To(BeEmpty())
			})

			It("does not count empty frames as dropped", func() {
				r := sse.NewReader(strings.NewReader("\n\n\n\ndata: hi\n\n"))

				events := drain(r)
				Expect(events).To(HaveLen(1))
				Expect(r.Dropped()).To(Equal(0))
			})
		})

		Context("edge cases", func() {
			It("returns nil on empty input", func() {
				ev, err := sse.NewReader(strings.NewReader("")).Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev).To(BeNil())
			})

			It("returns nil on input with only newlines", func() {
				ev, err := sse.NewReader(strings.NewReader("\n\n\n")).Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev).To(BeNil())
			})

			It("drops a frame left unterminated at end of stream", func() {
				input := "data: [MODEL_RESPONSE]kept\n\ndata: [MODEL_RESPONSE]unterminated"
				events := drain(sse.NewReader(strings.NewReader(input)))

				Expect(events).To(HaveLen(1))
				Expect(events[0].Text).To(Equal("kept"))
			})

			It("does not treat a single newline as a delimiter", func() {
				events := drain(sse.NewReader(strings.NewReader("data: a\ndata: b\n\n")))

				Expect(events).To(HaveLen(1))
				Expect(events[0].Text).To(Equal("a\ndata: b"))
			})
		})

		Context("with chunked input", func() {
			It("reassembles a frame split inside the data marker", func() {
				events := drain(sse.NewReader(newChunkReader("da", "ta: [MODEL_", "RESPONSE]hi\n", "\n")))

				Expect(events).To(HaveLen(1))
				Expect(events[0].Kind).To(Equal(sse.KindToken))
				Expect(events[0].Text).To(Equal("hi"))
			})

			It("reassembles a multi-byte character split across chunks", func() {
				raw := "data: [MODEL_RESPONSE]你好\n\n"
				cut := strings.Index(raw, "你") + 1

				events := drain(sse.NewReader(newChunkReader(raw[:cut], raw[cut:])))

				Expect(events).To(HaveLen(1))
				Expect(events[0].Text).To(Equal("你好"))
			})

			It("replaces invalid UTF-8 instead of failing", func() {
				events := drain(sse.NewReader(strings.NewReader("data: a\xffb\n\n")))

				Expect(events).To(HaveLen(1))
				Expect(events[0].Kind).To(Equal(sse.KindGeneric))
				Expect(events[0].Text).To(Equal("a�b"))
			})
		})
	})

	Describe("NewTeeReader", func() {
		It("forwards the raw bytes verbatim", func() {
			input := "event: x\n\ndata: [MODEL_RESPONSE]Hi\n\ndata: [DONE]\n\n"
			dst := &bytes.Buffer{}

			drain(sse.NewTeeReader(strings.NewReader(input), dst))

			Expect(dst.String()).To(Equal(input))
		})

		It("forwards bytes that are not valid UTF-8 unchanged", func() {
			input := "data: \xff\n\n"
			dst := &bytes.Buffer{}

			drain(sse.NewTeeReader(strings.NewReader(input), dst))

			Expect(dst.Bytes()).To(Equal([]byte(input)))
		})
	})
})
