// Package schemacmder provides the schema command, which creates the turn
// table for the configured store and variant.
package schemacmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/pkg/app"
	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/config"
	"github.com/papercomputeco/recall/pkg/logger"
)

var schemaFlags = config.StoreFlags

const schemaLongDesc string = `Create the turn table if it does not exist.

The table layout follows storage.embeddings: without embeddings each turn
stores its text only, with embeddings it also stores a vector of
embedding.dimensions. An existing table with the other layout is an error.

Examples:
  recall schema
  recall schema --storage-driver sqlite --sqlite ./recall.db
  recall schema --embeddings --embedding-dimensions 768`

const schemaShortDesc string = "Create the turn table"

func NewSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: schemaShortDesc,
		Long:  schemaLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			debug, _ := cmd.Flags().GetBool("debug")

			cfg, err := config.FromCommand(cmd, schemaFlags)
			if err != nil {
				return err
			}
			cfg.Memory.Mode = "local"

			return run(cmd.Context(), cmd.OutOrStdout(), cfg, debug)
		},
	}

	config.AddFlags(cmd, config.Flags, schemaFlags)

	return cmd
}

func run(ctx context.Context, w io.Writer, cfg *config.Config, debug bool) error {
	log := logger.New(logger.WithPretty(true), logger.WithWriter(w), logger.WithDebug(debug))

	var a *app.App
	msg := fmt.Sprintf("Ensuring %s table on %s", cfg.Storage.Table, cfg.Storage.Driver)
	err := cliui.Step(w, msg, func() error {
		var err error
		a, err = app.Open(ctx, cfg, app.Options{Logger: log})
		return err
	})
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Fprintf(w, "\n  %s  %s\n  %s  %s\n\n",
		cliui.KeyStyle.Render("table"), cliui.ValueStyle.Render(cfg.Storage.Table),
		cliui.KeyStyle.Render("variant"), cliui.ValueStyle.Render(a.Store.Variant().String()),
	)
	return nil
}
