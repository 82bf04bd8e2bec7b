package chatscmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/seagent/cmd/seagent/cmdutil"
	"github.com/papercomputeco/seagent/pkg/api"
	"github.com/papercomputeco/seagent/pkg/cliui"
)

func newShowCmd() *cobra.Command {
	var skip, limit int

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a chat and its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chatID, err := parseID(args[0])
			if err != nil {
				return err
			}

			env, err := cmdutil.Load(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			detail, err := env.Client.GetChat(cmd.Context(), chatID)
			if err != nil {
				return fmt.Errorf("loading chat %d: %w", chatID, err)
			}

			messages, err := env.Client.GetChatMessages(cmd.Context(), chatID, skip, limit)
			if err != nil {
				return fmt.Errorf("loading messages: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n  %s %s\n",
				cliui.HeaderStyle.Render(detail.Chat.Title),
				cliui.DimStyle.Render(fmt.Sprintf("(chat %d)", detail.Chat.ID)),
			)
			fmt.Fprintf(out, "  %s %s\n\n", cliui.KeyStyle.Render("Created:"), cliui.ValueStyle.Render(detail.Chat.CreatedAt))

			if len(messages) == 0 {
				fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render("No messages."))
				return nil
			}

			for _, m := range messages {
				printMessage(out, m)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&skip, "skip", 0, "Number of messages to skip")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of messages to show")

	return cmd
}

func printMessage(out io.Writer, m api.Message) {
	role := m.Role
	if role == "model" {
		role = "seagent"
	}

	fmt.Fprintf(out, "  %s %s %s\n",
		cliui.NameStyle.Render(role),
		cliui.DimStyle.Render(m.Timestamp),
		cliui.DimStyle.Render(fmt.Sprintf("#%d", m.ID)),
	)
	for _, line := range strings.Split(strings.TrimRight(m.Message, "\n"), "\n") {
		fmt.Fprintf(out, "    %s\n", line)
	}
	fmt.Fprintln(out)
}
