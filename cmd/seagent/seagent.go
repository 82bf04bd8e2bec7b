// Package seagentcmder is the root seagent command.
package seagentcmder

import (
	"os"

	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/seagent/cmd/seagent/auth"
	chatcmder "github.com/papercomputeco/seagent/cmd/seagent/chat"
	chatscmder "github.com/papercomputeco/seagent/cmd/seagent/chats"
	"github.com/papercomputeco/seagent/cmd/seagent/cmdutil"
	configcmder "github.com/papercomputeco/seagent/cmd/seagent/config"
	historycmder "github.com/papercomputeco/seagent/cmd/seagent/history"
	knowledgecmder "github.com/papercomputeco/seagent/cmd/seagent/knowledge"
	versioncmder "github.com/papercomputeco/seagent/cmd/version"
	"github.com/papercomputeco/seagent/pkg/cliui"
)

const seagentLongDesc string = `seagent is a terminal client for the SeAgent knowledge base assistant.

Log in, then chat with the assistant. Replies stream in as they are
generated, with tool calls and intermediate steps shown along the way.

  seagent auth login              Log in and store a token
  seagent chat                    Start or resume an interactive chat
  seagent chats list              List your chats
  seagent knowledge upload FILE   Add a document to a knowledge base collection
  seagent history                 Review locally recorded turns`

const seagentShortDesc string = "seagent - SeAgent chat client"

func NewSeagentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "seagent",
		Short:        seagentShortDesc,
		Long:         seagentLongDesc,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			noColor, _ := cmd.Flags().GetBool("no-color")
			if noColor || os.Getenv("NO_COLOR") != "" {
				cliui.DisableColor()
			}
		},
	}

	cmdutil.AddGlobalFlags(cmd)

	// Add subcommands
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(chatscmder.NewChatsCmd())
	cmd.AddCommand(knowledgecmder.NewKnowledgeCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
