package chatscmder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/seagent/cmd/seagent/cmdutil"
	"github.com/papercomputeco/seagent/pkg/cliui"
	"github.com/papercomputeco/seagent/pkg/dotdir"
)

func newRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <title>",
		Short: "Rename a chat",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			chatID, err := parseID(args[0])
			if err != nil {
				return err
			}

			title := strings.TrimSpace(strings.Join(args[1:], " "))
			if title == "" {
				return errors.New("title cannot be empty")
			}

			env, err := cmdutil.Load(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			chat, err := env.Client.UpdateChatTitle(cmd.Context(), chatID, title)
			if err != nil {
				return fmt.Errorf("renaming chat %d: %w", chatID, err)
			}

			syncSessionTitle(env, chatID, chat.Title)

			fmt.Fprintf(cmd.OutOrStdout(), "\n  %s Renamed chat %d to %s\n\n",
				cliui.SuccessMark, chatID, cliui.NameStyle.Render(chat.Title))
			return nil
		},
	}
}

func newTitleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "title <id>",
		Short: "Let the assistant title a chat from its messages",
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

			var title string
			err = cliui.Step(cmd.ErrOrStderr(), "Generating title", func() error {
				var err error
				title, err = env.Client.GenerateTitle(cmd.Context(), chatID)
				return err
			})
			if err != nil {
				return fmt.Errorf("generating title for chat %d: %w", chatID, err)
			}

			syncSessionTitle(env, chatID, title)

			fmt.Fprintf(cmd.OutOrStdout(), "\n  %s Titled chat %d %s\n\n",
				cliui.SuccessMark, chatID, cliui.NameStyle.Render(title))
			return nil
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a chat and its messages",
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

			if err := env.Client.DeleteChat(cmd.Context(), chatID); err != nil {
				return fmt.Errorf("deleting chat %d: %w", chatID, err)
			}

			ddm := dotdir.NewManager()
			if s, err := ddm.LoadSession(env.ConfigDir); err == nil && s != nil && s.ChatID == chatID {
				if err := ddm.ClearSession(env.ConfigDir); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n  %s Deleted chat %d\n\n", cliui.SuccessMark, chatID)
			return nil
		},
	}
}

// syncSessionTitle keeps the saved session's title current when its chat is
// renamed.
func syncSessionTitle(env *cmdutil.Env, chatID int, title string) {
	ddm := dotdir.NewManager()

	s, err := ddm.LoadSession(env.ConfigDir)
	if err != nil || s == nil || s.ChatID != chatID {
		return
	}

	s.Title = title
	if err := ddm.SaveSession(s, env.ConfigDir); err != nil {
		env.Logger.Warn("failed to save session", "error", err)
	}
}
