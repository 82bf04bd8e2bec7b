package chatscmder

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/seagent/cmd/seagent/cmdutil"
	"github.com/papercomputeco/seagent/pkg/api"
	"github.com/papercomputeco/seagent/pkg/cliui"
	"github.com/papercomputeco/seagent/pkg/config"
)

func newSendCmd() *cobra.Command {
	var collection string

	cmd := &cobra.Command{
		Use:   "send <id> <message>",
		Short: "Send a message and print the complete reply",
		Long: `Send a message to a chat and print the complete reply once it is ready.

Unlike "seagent chat", the reply is not streamed. The reply text alone is
written to stdout, so the command composes with pipes.

Examples:
  seagent chats send 3 "Summarise the onboarding guide"
  seagent chats send 3 -c handbook "How many vacation days do I get?"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			chatID, err := parseID(args[0])
			if err != nil {
				return err
			}

			text := strings.TrimSpace(strings.Join(args[1:], " "))
			if text == "" {
				return errors.New("message cannot be empty")
			}

			env, err := cmdutil.Load(cmd, config.FlagCollection)
			if err != nil {
				return err
			}
			defer env.Close()

			user, err := env.RequireUser()
			if err != nil {
				return err
			}

			reply, err := env.Client.SendMessage(cmd.Context(), api.SendMessageRequest{
				ChatID:         chatID,
				UserID:         strconv.Itoa(user.ID),
				Message:        text,
				CollectionName: env.Config.Chat.Collection,
			})
			if err != nil {
				return fmt.Errorf("sending message: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), reply.Message)
			return nil
		},
	}

	config.AddStringFlag(cmd, config.ClientFlags, config.FlagCollection, &collection)

	return cmd
}

func newPromptsCmd() *cobra.Command {
	var skip, limit int

	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "List your recent prompts across all chats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := cmdutil.Load(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			user, err := env.RequireUser()
			if err != nil {
				return err
			}

			messages, err := env.Client.GetUserMessages(cmd.Context(), user.ID, skip, limit)
			if err != nil {
				return fmt.Errorf("listing prompts: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(messages) == 0 {
				fmt.Fprintf(out, "\n  %s No prompts yet.\n\n", cliui.DimStyle.Render("●"))
				return nil
			}

			fmt.Fprintf(out, "\n  %s\n\n", cliui.HeaderStyle.Render("Prompts"))
			for _, m := range messages {
				fmt.Fprintf(out, "  %s %s  %s\n",
					cliui.KeyStyle.Render(fmt.Sprintf("%5d", m.ChatID)),
					cliui.DimStyle.Render(m.Timestamp),
					cliui.Fit(strings.Join(strings.Fields(m.Message), " "), 72),
				)
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().IntVar(&skip, "skip", 0, "Number of prompts to skip")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of prompts to list")

	return cmd
}

func newMessageCmd() *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "message <id>",
		Short: "Show or delete a single message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			messageID, err := parseID(args[0])
			if err != nil {
				return err
			}

			env, err := cmdutil.Load(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			out := cmd.OutOrStdout()
			if remove {
				if err := env.Client.DeleteMessage(cmd.Context(), messageID); err != nil {
					return fmt.Errorf("deleting message %d: %w", messageID, err)
				}
				fmt.Fprintf(out, "\n  %s Deleted message %d\n\n", cliui.SuccessMark, messageID)
				return nil
			}

			msg, err := env.Client.GetMessage(cmd.Context(), messageID)
			if err != nil {
				return fmt.Errorf("loading message %d: %w", messageID, err)
			}

			fmt.Fprintln(out)
			printMessage(out, *msg)
			return nil
		},
	}

	cmd.Flags().BoolVar(&remove, "delete", false, "Delete the message")

	return cmd
}
