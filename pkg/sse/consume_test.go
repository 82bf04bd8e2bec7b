package sse_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing/iotest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/seagent/pkg/sse"
)

// callLog records every handler invocation in order.
type callLog struct {
	calls  []string
	tokens []string
	tools  []string
	done   []string
	errs   []error
}

func (l *callLog) handlers() sse.Handlers {
	return sse.Handlers{
		OnToken: func(text string) error {
			l.calls = append(l.calls, "token")
			l.tokens = append(l.tokens, text)
			return nil
		},
		OnToolEvent: func(raw string) error {
			l.calls = append(l.calls, "tool")
			l.tools = append(l.tools, raw)
			return nil
		},
		OnDone: func(full string) {
			l.calls = append(l.calls, "done")
			l.done = append(l.done, full)
		},
		OnError: func(err error) {
			l.calls = append(l.calls, "error")
			l.errs = append(l.errs, err)
		},
		OnFirstToken: func() {
			l.calls = append(l.calls, "first")
		},
	}
}

var _ = Describe("Consume", func() {
	var (
		ctx context.Context
		log *callLog
	)

	BeforeEach(func() {
		ctx = context.Background()
		log = &callLog{}
	})

	It("streams tokens split across chunks and finishes on the sentinel", func() {
		src := newChunkReader(
			"data: [MODEL_RESPONSE]Hel",
			"lo\n\ndata: [MODEL_RESPONSE] world\n\ndata: [DONE]\n\n",
		)

		Expect(sse.Consume(ctx, src, log.handlers())).To(Succeed())

		Expect(log.calls).To(Equal([]string{"first", "token", "token", "done"}))
		Expect(log.tokens).To(Equal([]string{"Hello", " world"}))
		Expect(log.done).To(Equal([]string{"Hello world"}))
		Expect(log.errs).To(BeEmpty())
	})

	It("passes tool frames through without token callbacks", func() {
		src := strings.NewReader("data: [TOOL_CALL_START]{\"name\":\"x\"}\n\n")

		Expect(sse.Consume(ctx, src, log.handlers())).To(Succeed())

		Expect(log.tools).To(Equal([]string{"[TOOL_CALL_START]{\"name\":\"x\"}"}))
		Expect(log.tokens).To(BeEmpty())
		Expect(log.calls).NotTo(ContainElement("first"))
		Expect(log.done).To(Equal([]string{""}))
	})

	It("treats unprefixed frames as generic tokens", func() {
		Expect(sse.Consume(ctx, strings.NewReader("data: plain text\n\n"), log.handlers())).To(Succeed())

		Expect(log.calls).To(Equal([]string{"first", "token", "done"}))
		Expect(log.tokens).To(Equal([]string{"plain text"}))
		Expect(log.done).To(Equal([]string{"plain text"}))
	})

	It("completes with the accumulated text when the stream closes without a sentinel", func() {
		src := strings.NewReader("data: [MODEL_RESPONSE]partial\n\ndata: [MODEL_RESPONSE] answer\n\ndata: [MODEL_RESPONSE]lost")

		Expect(sse.Consume(ctx, src, log.handlers())).To(Succeed())

		Expect(log.done).To(Equal([]string{"partial answer"}))
	})

	It("ignores everything after the sentinel", func() {
		src := strings.NewReader("data: [MODEL_RESPONSE]a\n\ndata: [DONE]\n\ndata: [MODEL_RESPONSE]b\n\n")

		Expect(sse.Consume(ctx, src, log.handlers())).To(Succeed())

		Expect(log.tokens).To(Equal([]string{"a"}))
		Expect(log.done).To(Equal([]string{"a"}))
	})

	It("fires the first-token callback once, before the first token", func() {
		src := strings.NewReader(
			"data: [TOOL_CALL_START]x\n\n" +
				"data: [MODEL_RESPONSE]a\n\n" +
				"data: [TOOL_RESULT_START]y\n\n" +
				"data: b\n\n",
		)

		Expect(sse.Consume(ctx, src, log.handlers())).To(Succeed())

		Expect(log.calls).To(Equal([]string{"tool", "first", "token", "tool", "token", "done"}))
	})

	It("counts every classified frame exactly once", func() {
		var b strings.Builder
		var want strings.Builder
		for i := range 25 {
			if i%5 == 0 {
				fmt.Fprintf(&b, "data: [INTERMEDIATE_START]step %d\n\n", i)
				continue
			}
			fmt.Fprintf(&b, "data: [MODEL_RESPONSE]t%d \n\n", i)
			fmt.Fprintf(&want, "t%d ", i)
		}
		b.WriteString("data: [DONE]\n\n")

		Expect(sse.Consume(ctx, strings.NewReader(b.String()), log.handlers())).To(Succeed())

		Expect(log.tokens).To(HaveLen(20))
		Expect(log.tools).To(HaveLen(5))
		Expect(log.done).To(Equal([]string{want.String()}))
	})

	It("produces the same events however the input is chunked", func() {
		input := "data: [MODEL_RESPONSE]héllo\n\n" +
			"data: [TOOL_SUMMARY_START]{\"k\":1}\n\n" +
			"data: [MODEL_RESPONSE] 世界\n\n" +
			"data: [DONE]\n\n"

		reference := &callLog{}
		Expect(sse.Consume(ctx, strings.NewReader(input), reference.handlers())).To(Succeed())

		for i := 1; i < len(input); i++ {
			for j := i; j < len(input); j += 7 {
				got := &callLog{}
				src := newChunkReader(input[:i], input[i:j], input[j:])
				Expect(sse.Consume(ctx, src, got.handlers())).To(Succeed())

				Expect(got.calls).To(Equal(reference.calls), "split at %d/%d", i, j)
				Expect(got.tokens).To(Equal(reference.tokens), "split at %d/%d", i, j)
				Expect(got.tools).To(Equal(reference.tools), "split at %d/%d", i, j)
				Expect(got.done).To(Equal(reference.done), "split at %d/%d", i, j)
			}
		}
	})

	Context("when handlers fail", func() {
		It("reports a returned error and keeps going", func() {
			boom := errors.New("boom")
			h := log.handlers()
			h.OnToken = func(text string) error {
				log.tokens = append(log.tokens, text)
				if text == "bad" {
					return boom
				}
				return nil
			}

			src := strings.NewReader("data: [MODEL_RESPONSE]bad\n\ndata: [MODEL_RESPONSE]good\n\n")
			Expect(sse.Consume(ctx, src, h)).To(Succeed())

			Expect(log.tokens).To(Equal([]string{"bad", "good"}))
			Expect(log.errs).To(HaveLen(1))

			var herr *sse.HandlerError
			Expect(errors.As(log.errs[0], &herr)).To(BeTrue())
			Expect(herr.Kind).To(Equal(sse.KindToken))
			Expect(log.errs[0]).To(MatchError(boom))
			Expect(log.done).To(Equal([]string{"badgood"}))
		})

		It("recovers a panicking tool handler", func() {
			h := log.handlers()
			h.OnToolEvent = func(string) error { panic("kaboom") }

			src := strings.NewReader("data: [TOOL_RESULT_START]x\n\ndata: [MODEL_RESPONSE]after\n\n")
			Expect(sse.Consume(ctx, src, h)).To(Succeed())

			Expect(log.errs).To(HaveLen(1))
			var perr *sse.PanicError
			Expect(errors.As(log.errs[0], &perr)).To(BeTrue())
			Expect(perr.Value).To(Equal("kaboom"))
			Expect(log.tokens).To(Equal([]string{"after"}))
		})

		It("survives a panicking error handler", func() {
			h := sse.Handlers{
				OnToken: func(string) error { return errors.New("fail") },
				OnError: func(error) { panic("nested") },
				OnDone:  func(full string) { log.done = append(log.done, full) },
			}

			Expect(sse.Consume(ctx, strings.NewReader("data: x\n\n"), h)).To(Succeed())
			Expect(log.done).To(Equal([]string{"x"}))
		})

		It("works with no handlers at all", func() {
			Expect(sse.Consume(ctx, strings.NewReader("data: x\n\ndata: [DONE]\n\n"), sse.Handlers{})).To(Succeed())
		})
	})

	Context("when the transport fails", func() {
		It("reports a transport error once and never completes", func() {
			boom := errors.New("connection reset")
			src := io.MultiReader(
				strings.NewReader("data: [MODEL_RESPONSE]a\n\n"),
				iotest.ErrReader(boom),
			)

			err := sse.Consume(ctx, src, log.handlers())

			var terr *sse.TransportError
			Expect(errors.As(err, &terr)).To(BeTrue())
			Expect(err).To(MatchError(boom))
			Expect(log.tokens).To(Equal([]string{"a"}))
			Expect(log.errs).To(HaveLen(1))
			Expect(log.done).To(BeEmpty())
		})
	})

	Context("when the context is cancelled", func() {
		It("returns immediately without invoking handlers", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			err := sse.Consume(cctx, strings.NewReader("data: x\n\n"), log.handlers())

			Expect(err).To(MatchError(context.Canceled))
			Expect(log.calls).To(BeEmpty())
		})

		It("unblocks a pending read and skips completion", func() {
			cctx, cancel := context.WithCancel(ctx)
			pr, pw := io.Pipe()

			h := log.handlers()
			h.OnToken = func(text string) error {
				log.tokens = append(log.tokens, text)
				cancel()
				return nil
			}

			go func() {
				defer GinkgoRecover()
				_, _ = io.WriteString(pw, "data: [MODEL_RESPONSE]first\n\n")
			}()

			err := sse.Consume(cctx, pr, h)

			Expect(err).To(MatchError(context.Canceled))
			Expect(log.tokens).To(Equal([]string{"first"}))
			Expect(log.done).To(BeEmpty())
			Expect(log.errs).To(BeEmpty())
		})
	})

	Context("over HTTP", func() {
		It("consumes a flushed event stream", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				flusher := w.(http.Flusher)
				for _, part := range []string{"data: [MODEL_RE", "SPONSE]Hi\n\n", "data: [MODEL_RESPONSE]!\n\n", "data: [DONE]\n\n"} {
					_, _ = io.WriteString(w, part)
					flusher.Flush()
				}
			}))
			defer server.Close()

			resp, err := http.Get(server.URL)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(sse.Consume(ctx, resp.Body, log.handlers())).To(Succeed())
			Expect(log.done).To(Equal([]string{"Hi!"}))
		})
	})
})

var _ = Describe("Concurrent streams", func() {
	It("keeps per-call state independent", func() {
		const n = 8
		results := make(chan string, n)

		for i := range n {
			go func(i int) {
				defer GinkgoRecover()
				input := fmt.Sprintf("data: [MODEL_RESPONSE]stream-%d\n\ndata: [DONE]\n\n", i)
				err := sse.Consume(context.Background(), strings.NewReader(input), sse.Handlers{
					OnDone: func(full string) { results <- full },
				})
				Expect(err).NotTo(HaveOccurred())
			}(i)
		}

		seen := make(map[string]bool, n)
		for range n {
			var full string
			Eventually(results).Should(Receive(&full))
			seen[full] = true
		}

		Expect(seen).To(HaveLen(n))
		Expect(seen).To(HaveKey("stream-3"))
	})
})
