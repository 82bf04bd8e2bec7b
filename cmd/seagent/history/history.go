// Package historycmder provides the history command for reviewing chat turns
// recorded in the local transcript store.
package historycmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/seagent/cmd/seagent/cmdutil"
	"github.com/papercomputeco/seagent/pkg/cliui"
	"github.com/papercomputeco/seagent/pkg/config"
	"github.com/papercomputeco/seagent/pkg/storage"
)

type historyCommander struct {
	chatID int
	limit  int

	storageDriver string
	sqlitePath    string
	postgresDSN   string
}

const historyLongDesc string = `Review chat turns recorded by "seagent chat".

Every streamed reply is recorded locally with its prompt, tool events,
timing and outcome, independent of the backend's own history. Turns that
failed or were cancelled are kept with the partial reply they produced.

Examples:
  seagent history
  seagent history --chat-id 12
  seagent history show 0b6c4a4e-8d0f-4a53-9a55-1f0b6a1b2c3d
  seagent history delete 0b6c4a4e-8d0f-4a53-9a55-1f0b6a1b2c3d`

const historyShortDesc string = "Review locally recorded chat turns"

const promptWidth = 60

func NewHistoryCmd() *cobra.Command {
	cmder := &historyCommander{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: historyShortDesc,
		Long:  historyLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.withStore(cmd, func(ctx context.Context, store storage.Driver) error {
				return cmder.runList(ctx, cmd.OutOrStdout(), store)
			})
		},
	}

	cmd.Flags().IntVar(&cmder.chatID, "chat-id", 0, "Only show turns of this chat")
	cmd.Flags().IntVarP(&cmder.limit, "limit", "n", 50, "Show at most this many of the latest turns (0 for all)")
	config.AddPersistentStringFlag(cmd, config.ClientFlags, config.FlagStorageDriver, &cmder.storageDriver)
	config.AddPersistentStringFlag(cmd, config.ClientFlags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddPersistentStringFlag(cmd, config.ClientFlags, config.FlagPostgres, &cmder.postgresDSN)

	cmd.AddCommand(&cobra.Command{
		Use:   "show <turn-id>",
		Short: "Show one recorded turn in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid turn id %q: %w", args[0], err)
			}
			return cmder.withStore(cmd, func(ctx context.Context, store storage.Driver) error {
				turn, err := store.Get(ctx, id)
				if err != nil {
					return err
				}
				printTurn(cmd.OutOrStdout(), turn)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <turn-id>",
		Short: "Delete one recorded turn",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid turn id %q: %w", args[0], err)
			}
			return cmder.withStore(cmd, func(ctx context.Context, store storage.Driver) error {
				if err := store.Delete(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\n  %s Deleted turn %s\n\n", cliui.SuccessMark, id)
				return nil
			})
		},
	})

	return cmd
}

// withStore opens the configured transcript store for the duration of fn.
func (c *historyCommander) withStore(cmd *cobra.Command, fn func(context.Context, storage.Driver) error) error {
	env, err := cmdutil.Load(cmd, config.FlagStorageDriver, config.FlagSQLite, config.FlagPostgres)
	if err != nil {
		return err
	}
	defer env.Close()

	store, err := env.OpenStore(cmd.Context())
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New(`transcript recording is disabled (storage.driver is "none")`)
	}
	defer store.Close()

	return fn(cmd.Context(), store)
}

func (c *historyCommander) runList(ctx context.Context, out io.Writer, store storage.Driver) error {
	var (
		turns []*storage.Turn
		err   error
	)
	if c.chatID > 0 {
		turns, err = store.ListByChat(ctx, c.chatID)
	} else {
		turns, err = store.List(ctx)
	}
	if err != nil {
		return fmt.Errorf("listing turns: %w", err)
	}

	if len(turns) == 0 {
		fmt.Fprintf(out, "\n  %s No recorded turns.\n\n", cliui.DimStyle.Render("●"))
		return nil
	}

	if c.limit > 0 && len(turns) > c.limit {
		turns = turns[len(turns)-c.limit:]
	}

	fmt.Fprintf(out, "\n  %s\n\n", cliui.HeaderStyle.Render("Recorded turns"))
	for _, t := range turns {
		fmt.Fprintf(out, "  %s %s  %s  %s  %s\n",
			cliui.Mark(turnErr(t)),
			cliui.DimStyle.Render(t.StartedAt.Local().Format("2006-01-02 15:04:05")),
			cliui.KeyStyle.Render(fmt.Sprintf("chat %-4d", t.ChatID)),
			cliui.Pad(cliui.Fit(oneLine(t.Prompt), promptWidth), promptWidth),
			cliui.DimStyle.Render(t.ID.String()[:8]),
		)
	}
	fmt.Fprintln(out)

	return nil
}

func printTurn(out io.Writer, t *storage.Turn) {
	fmt.Fprintf(out, "\n  %s %s\n", cliui.HeaderStyle.Render("Turn"), cliui.DimStyle.Render(t.ID.String()))
	fmt.Fprintf(out, "  %s %d\n", cliui.KeyStyle.Render("Chat:"), t.ChatID)
	if t.Collection != "" {
		fmt.Fprintf(out, "  %s %s\n", cliui.KeyStyle.Render("Collection:"), cliui.ValueStyle.Render(t.Collection))
	}
	fmt.Fprintf(out, "  %s %s %s\n",
		cliui.KeyStyle.Render("Started:"),
		cliui.ValueStyle.Render(t.StartedAt.Local().Format("2006-01-02 15:04:05")),
		cliui.DimStyle.Render("("+cliui.FormatDuration(t.Duration())+")"),
	)
	if t.Err != "" {
		fmt.Fprintf(out, "  %s %s\n", cliui.FailMark, cliui.WarnStyle.Render(t.Err))
	}

	fmt.Fprintf(out, "\n  %s\n", cliui.NameStyle.Render("you"))
	printIndented(out, t.Prompt)

	if len(t.ToolEvents) > 0 {
		fmt.Fprintln(out)
		for _, ev := range t.ToolEvents {
			fmt.Fprintf(out, "    %s\n", cliui.ToolStyle.Render(cliui.Fit(oneLine(ev), 96)))
		}
	}

	fmt.Fprintf(out, "\n  %s\n", cliui.NameStyle.Render("seagent"))
	printIndented(out, t.Response)
	fmt.Fprintln(out)
}

func printIndented(out io.Writer, text string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		fmt.Fprintf(out, "    %s\n", line)
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func turnErr(t *storage.Turn) error {
	if t.Err == "" {
		return nil
	}
	return errors.New(t.Err)
}
