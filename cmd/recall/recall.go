// Package recallcmder
package recallcmder

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/recall/cmd/recall/chat"
	configcmder "github.com/papercomputeco/recall/cmd/recall/config"
	historycmder "github.com/papercomputeco/recall/cmd/recall/history"
	initcmder "github.com/papercomputeco/recall/cmd/recall/init"
	schemacmder "github.com/papercomputeco/recall/cmd/recall/schema"
	searchcmder "github.com/papercomputeco/recall/cmd/recall/search"
	servecmder "github.com/papercomputeco/recall/cmd/recall/serve"
	versioncmder "github.com/papercomputeco/recall/cmd/version"
	"github.com/papercomputeco/recall/pkg/config"
)

const recallLongDesc string = `Recall gives a chat agent memory that lasts across sessions.

Every exchange is stored per user. Before the model answers, recall injects
what the user said before, with relative dates when the question asks about
time.

Commands:
  recall chat       Interactive chat with memory
  recall history    Show what is remembered about a user
  recall search     Similarity search over stored turns
  recall schema     Create the turn table
  recall serve      Run the memory API and MCP server
  recall config     Manage persistent configuration
  recall init       Create a project-local .recall/ directory`

const recallShortDesc string = "Recall - cross-session agent memory"

func NewRecallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "recall",
		Short:         recallShortDesc,
		Long:          recallLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("loading .env: %w", err)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String(config.ConfigDirFlag, "", "Override path to the .recall/ config directory")

	// Add subcommands
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(schemacmder.NewSchemaCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
