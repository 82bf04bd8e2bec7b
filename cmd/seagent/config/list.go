package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/seagent/pkg/cliui"
	"github.com/papercomputeco/seagent/pkg/config"
)

const listLongDesc string = `List all configuration values.

Shows every key with the value seagent uses when no flag or environment
variable overrides it.

Examples:
  seagent config list`

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfger, err := open(cmd)
			if err != nil {
				return err
			}

			keys := config.ValidConfigKeys()

			width := 0
			for _, k := range keys {
				width = max(width, len(k))
			}

			out := cmd.OutOrStdout()
			for _, key := range keys {
				value, err := cfger.GetConfigValue(key)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "  %s  %s\n", cliui.KeyStyle.Render(cliui.Pad(key, width)), renderValue(value))
			}
			fmt.Fprintln(out)

			return nil
		},
	}
}
