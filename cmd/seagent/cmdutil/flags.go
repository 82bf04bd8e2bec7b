package cmdutil

import (
	"github.com/spf13/cobra"

	"github.com/papercomputeco/seagent/pkg/config"
)

// AddGlobalFlags registers the persistent flags every subcommand reads:
// --debug, --no-color, --config-dir, --api-target and --timeout.
func AddGlobalFlags(cmd *cobra.Command) {
	var apiTarget, timeout string

	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	cmd.PersistentFlags().String("config-dir", "", "Override path to the .seagent/ config directory")
	config.AddPersistentStringFlag(cmd, config.ClientFlags, config.FlagAPITarget, &apiTarget)
	config.AddPersistentStringFlag(cmd, config.ClientFlags, config.FlagTimeout, &timeout)
}
