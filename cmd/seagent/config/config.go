// Package configcmder provides the config command for managing persistent
// seagent configuration stored in the .seagent/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/seagent/pkg/cliui"
	"github.com/papercomputeco/seagent/pkg/config"
)

const configLongDesc string = `Manage persistent seagent configuration.

Configuration is stored as config.toml in the .seagent/ directory and
provides default values for command flags. Flags and SEAGENT_* environment
variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  client.api_target, client.timeout,
  chat.collection, chat.render,
  storage.driver, storage.sqlite_path, storage.postgres_dsn

Use subcommands to get, set, or list configuration values:
  seagent config set <key> <value>    Set a configuration value
  seagent config get <key>            Get a configuration value
  seagent config list                 List all configuration values

Examples:
  seagent config set client.api_target http://seagent.internal:8000/api
  seagent config set chat.render plain
  seagent config set storage.driver none
  seagent config get chat.collection
  seagent config list`

const configShortDesc string = "Manage persistent seagent configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func checkKey(key string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}
	return nil
}

// open loads the Configer for the --config-dir of cmd and prints which file
// is in use.
func open(cmd *cobra.Command) (*config.Configer, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	printTarget(cmd.OutOrStdout(), cfger.GetTarget())
	return cfger, nil
}

func printTarget(out io.Writer, target string) {
	if target == "" {
		fmt.Fprintf(out, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
		return
	}
	fmt.Fprintf(out, "\n  %s %s\n\n", cliui.KeyStyle.Render("Config file:"), cliui.DimStyle.Render(target))
}

func renderValue(value string) string {
	if value == "" {
		return cliui.DimStyle.Render("<not set>")
	}
	return cliui.ValueStyle.Render(value)
}
