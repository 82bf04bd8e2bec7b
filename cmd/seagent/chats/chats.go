// Package chatscmder provides the chats command for managing conversations
// stored on the SeAgent backend.
package chatscmder

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/seagent/cmd/seagent/cmdutil"
	"github.com/papercomputeco/seagent/pkg/api"
	"github.com/papercomputeco/seagent/pkg/cliui"
	"github.com/papercomputeco/seagent/pkg/dotdir"
)

const chatsLongDesc string = `Manage your chats on the SeAgent backend.

Use subcommands to list, create, inspect, rename, title or delete chats:
  seagent chats list                   List your chats, newest first
  seagent chats new [--title T]        Create a chat and make it current
  seagent chats show <id>              Show a chat and its messages
  seagent chats rename <id> <title>    Rename a chat
  seagent chats title <id>             Let the assistant title a chat
  seagent chats delete <id>            Delete a chat and its messages
  seagent chats send <id> <message>    Send a message and print the reply
  seagent chats prompts                List your recent prompts across chats
  seagent chats message <id>           Show or delete a single message

The current chat, marked with * in the list, is the one "seagent chat"
resumes.`

const chatsShortDesc string = "Manage your chats"

const titleWidth = 36

func NewChatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chats",
		Short: chatsShortDesc,
		Long:  chatsLongDesc,
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newNewCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newRenameCmd())
	cmd.AddCommand(newTitleCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newSendCmd())
	cmd.AddCommand(newPromptsCmd())
	cmd.AddCommand(newMessageCmd())

	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your chats",
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

			chats, err := env.Client.ListChats(cmd.Context(), user.ID)
			if err != nil {
				return fmt.Errorf("listing chats: %w", err)
			}

			current := 0
			if s, err := dotdir.NewManager().LoadSession(env.ConfigDir); err == nil && s != nil {
				current = s.ChatID
			}

			printChats(cmd.OutOrStdout(), chats, current)
			return nil
		},
	}
}

func printChats(out io.Writer, chats []api.Chat, current int) {
	if len(chats) == 0 {
		fmt.Fprintf(out, "\n  %s No chats yet. Start one with 'seagent chat'.\n\n", cliui.DimStyle.Render("●"))
		return
	}

	fmt.Fprintf(out, "\n  %s\n\n", cliui.HeaderStyle.Render("Chats"))
	for _, c := range chats {
		marker := " "
		if c.ID == current {
			marker = cliui.SuccessMark
		}

		title := cliui.Pad(cliui.Fit(c.Title, titleWidth), titleWidth)
		fmt.Fprintf(out, "  %s %s  %s  %s\n",
			marker,
			cliui.KeyStyle.Render(fmt.Sprintf("%5d", c.ID)),
			cliui.NameStyle.Render(title),
			cliui.DimStyle.Render(chatMeta(c)),
		)
	}
	fmt.Fprintln(out)
}

func chatMeta(c api.Chat) string {
	meta := c.UpdatedAt
	if c.MessageCount > 0 {
		meta += fmt.Sprintf(" · %d messages", c.MessageCount)
	}
	return meta
}

func newNewCmd() *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a chat and make it current",
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

			chat, err := env.Client.CreateChat(cmd.Context(), user.ID, title)
			if err != nil {
				return fmt.Errorf("creating chat: %w", err)
			}

			err = dotdir.NewManager().SaveSession(&dotdir.SessionState{
				ChatID:     chat.ID,
				Title:      chat.Title,
				Collection: env.Config.Chat.Collection,
			}, env.ConfigDir)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n  %s Created %s %s\n\n",
				cliui.SuccessMark,
				cliui.NameStyle.Render(chat.Title),
				cliui.DimStyle.Render(fmt.Sprintf("(chat %d)", chat.ID)),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Chat title (default "+api.DefaultChatTitle+")")

	return cmd
}

// parseID parses a positive chat or message ID argument.
func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q: must be a positive integer", arg)
	}
	return id, nil
}
