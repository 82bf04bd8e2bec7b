package chatcmder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
	"golang.org/x/term"

	"github.com/papercomputeco/seagent/pkg/api"
	"github.com/papercomputeco/seagent/pkg/cliui"
	"github.com/papercomputeco/seagent/pkg/config"
	"github.com/papercomputeco/seagent/pkg/eventstream"
	"github.com/papercomputeco/seagent/pkg/sse"
	"github.com/papercomputeco/seagent/pkg/storage"
	"github.com/papercomputeco/seagent/pkg/utils"
)

const (
	toolLineWidth  = 96
	publishTimeout = 5 * time.Second
)

// stream sends input to the current chat and writes the reply to c.out as it
// arrives, recording the turn when a store is open.
func (c *chatCommander) stream(ctx context.Context, input string) error {
	req := api.SendMessageRequest{
		ChatID:         c.chat.ID,
		UserID:         strconv.Itoa(c.user.ID),
		Message:        input,
		CollectionName: c.env.Config.Chat.Collection,
	}

	live := newLiveWriter(c.out)
	var toolLines []string

	fmt.Fprint(live, assistantPrompt)

	start := time.Now()
	h := sse.Handlers{
		OnFirstToken: func() {
			c.logger.Debug("first token", "chat_id", req.ChatID, "latency", time.Since(start))
		},
		OnToken: func(text string) error {
			_, err := io.WriteString(live, text)
			return err
		},
		OnToolEvent: func(raw string) error {
			line := cliui.ToolStyle.Render(describeToolEvent(raw))
			toolLines = append(toolLines, line)
			_, err := fmt.Fprintf(live, "\n  %s\n", line)
			return err
		},
		OnDone: func(fullText string) {
			if c.env.Config.Chat.Render != config.RenderMarkdown || !live.terminal() {
				return
			}
			c.rerender(live, toolLines, fullText)
		},
		OnError: func(err error) {
			var herr *sse.HandlerError
			if errors.As(err, &herr) {
				c.logger.Warn("stream handler failed", "kind", herr.Kind, "error", herr.Err)
				return
			}
			c.logger.Debug("stream failed", "chat_id", req.ChatID, "error", err)
		},
	}

	var rec *storage.Recorder
	if c.store != nil {
		rec = storage.NewRecorder(c.store, storage.NewTurn(req.ChatID, input, req.CollectionName), c.logger)
		h = rec.Wrap(h)
	}

	var opts []api.StreamOption
	if c.raw {
		opts = append(opts, api.WithTee(c.errOut))
	}

	err := c.env.Client.StreamChat(ctx, req, h, opts...)

	if rec != nil {
		if rerr := rec.Finish(ctx, err); rerr == nil {
			c.publish(ctx, rec.Turn())
		}
	}

	return err
}

// publish sends a recorded turn to the event stream. Failures are logged
// only; the turn is already stored locally.
func (c *chatCommander) publish(ctx context.Context, turn *storage.Turn) {
	if c.events == nil {
		return
	}

	ev := eventstream.NewTurnRecordedEvent(turn, eventstream.EventSource{
		Client:    "seagent",
		Version:   utils.Version,
		Username:  c.user.Username,
		APITarget: c.env.Client.BaseURL(),
	})

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := c.events.PublishTurn(ctx, ev); err != nil {
		c.logger.Warn("could not publish turn event", "turn_id", turn.ID, "error", err)
	}
}

// rerender replaces the streamed reply with its rendered markdown.
func (c *chatCommander) rerender(live *liveWriter, toolLines []string, fullText string) {
	rendered, err := cliui.RenderMarkdown(fullText)
	if err != nil {
		c.logger.Debug("markdown render failed", "error", err)
		return
	}

	live.clear()
	fmt.Fprint(c.out, assistantPrompt)
	for _, line := range toolLines {
		fmt.Fprintf(c.out, "\n  %s\n", line)
	}
	fmt.Fprint(c.out, strings.TrimRight(rendered, "\n"))
}

// describeToolEvent turns a raw tool frame payload into one display line.
func describeToolEvent(raw string) string {
	ev, _ := sse.Classify(raw)

	var label, body string
	switch ev.Kind {
	case sse.KindToolCall:
		label, body = "tool call", strings.TrimPrefix(raw, sse.PrefixToolCallStart)
	case sse.KindToolResult:
		label, body = "tool result", strings.TrimPrefix(raw, sse.PrefixToolResultStart)
	case sse.KindIntermediate:
		label, body = "step", strings.TrimPrefix(raw, sse.PrefixIntermediateStart)
	case sse.KindToolSummary:
		label, body = "summary", strings.TrimPrefix(raw, sse.PrefixToolSummaryStart)
	default:
		label, body = "event", raw
	}

	body = strings.TrimSpace(body)
	if name := toolName(body); name != "" {
		body = name
	}
	body = strings.Join(strings.Fields(body), " ")

	if body == "" {
		return "⚙ " + label
	}
	return cliui.Fit("⚙ "+label+": "+body, toolLineWidth)
}

// toolName extracts the tool name from a JSON tool payload.
func toolName(body string) string {
	if !strings.HasPrefix(body, "{") {
		return ""
	}

	var payload struct {
		Name     string `json:"name"`
		Tool     string `json:"tool"`
		ToolName string `json:"tool_name"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return ""
	}

	for _, n := range []string{payload.Name, payload.Tool, payload.ToolName} {
		if n != "" {
			return n
		}
	}
	return ""
}

// liveWriter tracks how many terminal rows a streamed reply occupies so it
// can be cleared and redrawn once complete.
type liveWriter struct {
	w     io.Writer
	width int
	col   int
	rows  int
}

func newLiveWriter(w io.Writer) *liveWriter {
	l := &liveWriter{w: w}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			l.width = width
		}
	}
	return l
}

func (l *liveWriter) terminal() bool {
	return l.width > 0
}

func (l *liveWriter) Write(p []byte) (int, error) {
	if l.width > 0 {
		lines := strings.Split(string(p), "\n")
		for i, line := range lines {
			if i > 0 {
				l.rows++
				l.col = 0
			}
			l.col += ansi.StringWidth(line)
			for l.col > l.width {
				l.rows++
				l.col -= l.width
			}
		}
	}
	return l.w.Write(p)
}

// clear moves the cursor back to where the reply started and erases it.
func (l *liveWriter) clear() {
	if l.width == 0 {
		return
	}

	seq := "\r"
	if l.rows > 0 {
		seq += ansi.CursorUp(l.rows)
	}
	fmt.Fprint(l.w, seq+ansi.EraseDisplay(0))

	l.rows = 0
	l.col = 0
}
