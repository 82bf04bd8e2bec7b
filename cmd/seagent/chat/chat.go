// Package chatcmder provides the chat command: an interactive REPL that
// streams SeAgent replies into the terminal as they are generated.
package chatcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/seagent/cmd/seagent/cmdutil"
	"github.com/papercomputeco/seagent/pkg/api"
	"github.com/papercomputeco/seagent/pkg/cliui"
	"github.com/papercomputeco/seagent/pkg/config"
	"github.com/papercomputeco/seagent/pkg/credentials"
	"github.com/papercomputeco/seagent/pkg/dotdir"
	"github.com/papercomputeco/seagent/pkg/eventstream"
	"github.com/papercomputeco/seagent/pkg/sse"
	"github.com/papercomputeco/seagent/pkg/storage"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("seagent> ")
)

type chatCommander struct {
	chatID   int
	title    string
	newChat  bool
	noRecord bool
	raw      bool

	// Bound to the config registry; read back through env.Config.
	collection    string
	render        string
	storageDriver string
	sqlitePath    string
	postgresDSN   string

	configDir string
	in        io.Reader
	out       io.Writer
	errOut    io.Writer

	env    *cmdutil.Env
	logger *slog.Logger
	user   *credentials.StoredUser
	store  storage.Driver
	events eventstream.Publisher
	chat   *api.Chat
	turns  int
}

const chatLongDesc string = `Start an interactive chat with the SeAgent assistant.

Replies stream in as they are generated. Tool calls, tool results and
intermediate reasoning steps are shown as they happen. Press Ctrl+C while a
reply is streaming to cancel it and return to the prompt.

Without --chat-id the chat from the previous session is resumed, or a new
one is created. With --collection, every message is answered with retrieval
from that knowledge base collection.

Each turn is recorded to the local transcript store (see "seagent history")
unless --no-record is given or storage.driver is "none". With events.driver
set to "kafka", recorded turns are also published to events.kafka_topic.

Commands inside the chat:
  /new      Start a new chat
  /title    Let the assistant title this chat
  /exit     Quit (Ctrl+D also works)

Examples:
  seagent chat
  seagent chat --chat-id 12
  seagent chat --new --title "Release notes" --collection handbook`

const chatShortDesc string = "Interactive chat with streamed replies"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cmdutil.Load(cmd,
				config.FlagCollection,
				config.FlagRender,
				config.FlagStorageDriver,
				config.FlagSQLite,
				config.FlagPostgres,
			)
			if err != nil {
				return err
			}
			defer env.Close()

			cmder.env = env
			cmder.logger = env.Logger
			cmder.configDir = env.ConfigDir
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			cmder.errOut = cmd.ErrOrStderr()

			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().IntVar(&cmder.chatID, "chat-id", 0, "Resume the chat with this ID")
	cmd.Flags().StringVar(&cmder.title, "title", "", "Title for a newly created chat")
	cmd.Flags().BoolVar(&cmder.newChat, "new", false, "Start a new chat instead of resuming the last one")
	cmd.Flags().BoolVar(&cmder.noRecord, "no-record", false, "Do not record turns to the transcript store")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Copy the raw event stream to stderr")

	config.AddStringFlag(cmd, config.ClientFlags, config.FlagCollection, &cmder.collection)
	config.AddStringFlag(cmd, config.ClientFlags, config.FlagRender, &cmder.render)
	config.AddStringFlag(cmd, config.ClientFlags, config.FlagStorageDriver, &cmder.storageDriver)
	config.AddStringFlag(cmd, config.ClientFlags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.ClientFlags, config.FlagPostgres, &cmder.postgresDSN)

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	var err error

	c.user, err = c.env.RequireUser()
	if err != nil {
		return err
	}

	if err := c.resolveChat(ctx); err != nil {
		return err
	}

	if !c.noRecord {
		c.store, err = c.env.OpenStore(ctx)
		if err != nil {
			return err
		}
		if c.store != nil {
			defer c.store.Close()
		}

		c.events, err = c.env.OpenPublisher()
		if err != nil {
			return err
		}
		if c.events != nil {
			defer c.events.Close()
		}
	}

	c.printHeader()

	scanner := bufio.NewScanner(c.in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Fprint(c.out, userPrompt)
		if !scanner.Scan() {
			// EOF or error
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		switch input {
		case "/exit", "/quit":
			fmt.Fprintln(c.out)
			return nil
		case "/new":
			if err := c.startChat(ctx, ""); err != nil {
				fmt.Fprintf(c.errOut, "  %s %v\n", cliui.FailMark, err)
				continue
			}
			c.printHeader()
			continue
		case "/title":
			c.generateTitle(ctx)
			continue
		}

		if err := c.turn(ctx, input); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.printTurnError(err)
			continue
		}

		fmt.Fprintln(c.out)
		fmt.Fprintln(c.out)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(c.out)
	return nil
}

// resolveChat picks the chat to talk in: --chat-id, else the saved session
// unless --new or --title ask for a fresh one, else a new chat.
func (c *chatCommander) resolveChat(ctx context.Context) error {
	if c.chatID > 0 {
		return c.openChat(ctx, c.chatID)
	}

	if !c.newChat && c.title == "" {
		session, err := dotdir.NewManager().LoadSession(c.configDir)
		if err != nil {
			return err
		}

		if session != nil && session.ChatID > 0 {
			err := c.openChat(ctx, session.ChatID)
			var serr *sse.StatusError
			switch {
			case err == nil:
				return nil
			case errors.As(err, &serr) && serr.StatusCode == http.StatusNotFound:
				c.logger.Debug("saved chat no longer exists", "chat_id", session.ChatID)
			default:
				return err
			}
		}
	}

	return c.startChat(ctx, c.title)
}

func (c *chatCommander) openChat(ctx context.Context, chatID int) error {
	detail, err := c.env.Client.GetChat(ctx, chatID)
	if err != nil {
		return fmt.Errorf("loading chat %d: %w", chatID, err)
	}

	c.chat = &detail.Chat
	c.turns = len(detail.Messages)

	return c.saveSession()
}

func (c *chatCommander) startChat(ctx context.Context, title string) error {
	chat, err := c.env.Client.CreateChat(ctx, c.user.ID, title)
	if err != nil {
		return fmt.Errorf("creating chat: %w", err)
	}

	c.chat = chat
	c.turns = 0
	c.logger.Debug("created chat", "chat_id", chat.ID, "title", chat.Title)

	return c.saveSession()
}

func (c *chatCommander) saveSession() error {
	return dotdir.NewManager().SaveSession(&dotdir.SessionState{
		ChatID:     c.chat.ID,
		Title:      c.chat.Title,
		Collection: c.env.Config.Chat.Collection,
	}, c.configDir)
}

func (c *chatCommander) printHeader() {
	fmt.Fprintln(c.out)
	if c.turns > 0 {
		fmt.Fprintf(c.out, "  %s Resuming %s %s\n",
			cliui.SuccessMark,
			cliui.NameStyle.Render(c.chat.Title),
			cliui.DimStyle.Render(fmt.Sprintf("(chat %d, %d messages)", c.chat.ID, c.turns)),
		)
	} else {
		fmt.Fprintf(c.out, "  %s New chat %s %s\n",
			cliui.DimStyle.Render("●"),
			cliui.NameStyle.Render(c.chat.Title),
			cliui.DimStyle.Render(fmt.Sprintf("(chat %d)", c.chat.ID)),
		)
	}

	if collection := c.env.Config.Chat.Collection; collection != "" {
		fmt.Fprintf(c.out, "  %s %s\n", cliui.KeyStyle.Render("Collection:"), cliui.ValueStyle.Render(collection))
	}
	fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /exit or Ctrl+D to quit."))
}

func (c *chatCommander) generateTitle(ctx context.Context) {
	title, err := c.env.Client.GenerateTitle(ctx, c.chat.ID)
	if err != nil {
		fmt.Fprintf(c.errOut, "  %s %v\n", cliui.FailMark, err)
		return
	}

	c.chat.Title = title
	if err := c.saveSession(); err != nil {
		c.logger.Warn("failed to save session", "error", err)
	}
	fmt.Fprintf(c.out, "  %s Titled %s\n\n", cliui.SuccessMark, cliui.NameStyle.Render(title))
}

// turn sends one message and streams the reply. SIGINT cancels the stream
// only; the REPL keeps running.
func (c *chatCommander) turn(ctx context.Context, input string) error {
	turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	err := c.stream(turnCtx, input)
	if errors.Is(err, context.Canceled) && ctx.Err() == nil {
		fmt.Fprintf(c.out, "\n  %s\n\n", cliui.WarnStyle.Render("(cancelled)"))
		return nil
	}
	if err != nil {
		return err
	}

	c.turns += 2

	// New chats get a generated title after their first exchange.
	if c.turns == 2 && c.chat.Title == api.DefaultChatTitle {
		if title, err := c.env.Client.GenerateTitle(ctx, c.chat.ID); err == nil {
			c.chat.Title = title
			_ = c.saveSession()
		} else {
			c.logger.Debug("could not generate chat title", "chat_id", c.chat.ID, "error", err)
		}
	}

	return nil
}

func (c *chatCommander) printTurnError(err error) {
	fmt.Fprintf(c.errOut, "\n  %s %v\n", cliui.FailMark, err)
	if errors.Is(err, api.ErrUnauthorized) {
		fmt.Fprintf(c.errOut, "  %s\n", cliui.DimStyle.Render("Your session may have expired. Run 'seagent auth login'."))
	}
	fmt.Fprintln(c.errOut)
}
