// Package configcmder provides the config command for managing persistent
// recall configuration stored in the .recall/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/config"
)

const configLongDesc string = `Manage persistent recall configuration.

Configuration is stored as config.toml in the .recall/ directory and provides
default values for command flags. RECALL_* environment variables override the
file, and CLI flags override both.

Keys use dotted notation matching the TOML section structure, for example:
  storage.driver, storage.postgres_dsn, storage.embeddings,
  embedding.provider, embedding.model, embedding.dimensions,
  model.provider, model.name, memory.mode, memory.user_id,
  memory.known_names, memory.top_k, remote.target, events.brokers

Use subcommands to get, set, or list configuration values:
  recall config set <key> <value>    Set a configuration value
  recall config get <key>            Get a configuration value
  recall config list                 List all configuration values

Examples:
  recall config set storage.driver sqlite
  recall config set memory.known_names "Roshil,Buddy"
  recall config get memory.user_id
  recall config list`

const configShortDesc string = "Manage persistent recall configuration"

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

func printTarget(w io.Writer, cfger *config.Configer) {
	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}

func unknownKey(key string) error {
	return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
		key, strings.Join(config.ValidConfigKeys(), ", "))
}
