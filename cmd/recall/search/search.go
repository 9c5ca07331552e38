// Package searchcmder provides the search command for similarity search over
// a user's stored turns.
package searchcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	apisearch "github.com/papercomputeco/recall/api/search"
	"github.com/papercomputeco/recall/pkg/app"
	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/config"
	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/utils"
)

var (
	rankStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	scoreStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	roleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

const previewLen = 160

type searchCommander struct {
	topK    int
	jsonOut bool
	debug   bool
	now     func() time.Time
}

var searchFlags = append([]string{config.FlagMemoryMode}, config.StoreFlags...)

const searchLongDesc string = `Search a user's stored turns by similarity.

Embeds the query and ranks the user's turns by cosine similarity, using the
vector index when one is configured. Requires storage.embeddings.

Examples:
  recall search "my dog's name" --user alice
  recall search "trip plans" --top 10
  recall search "birthday" --json`

const searchShortDesc string = "Search stored turns by similarity"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{now: time.Now}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.debug, _ = cmd.Flags().GetBool("debug")

			cfg, err := config.FromCommand(cmd, searchFlags)
			if err != nil {
				return err
			}

			return cmder.run(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, args[0])
		},
	}

	config.AddFlags(cmd, config.Flags, searchFlags)
	cmd.Flags().IntVar(&cmder.topK, "top", apisearch.DefaultTopK, "Number of results to return")
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print results as JSON")

	return cmd
}

func (c *searchCommander) run(ctx context.Context, w, errW io.Writer, cfg *config.Config, query string) error {
	if cfg.Memory.Mode == "remote" {
		return fmt.Errorf("search %w", app.ErrLocalOnly)
	}

	log := logger.New(logger.WithPretty(true), logger.WithWriter(errW), logger.WithDebug(c.debug))

	a, err := app.Open(ctx, cfg, app.Options{Logger: log, Clock: c.now})
	if err != nil {
		return err
	}
	defer a.Close()

	searcher := a.Searcher()
	if searcher == nil {
		return fmt.Errorf("search requires storage.embeddings (table %s is %s)", cfg.Storage.Table, a.Store.Variant())
	}

	output, err := apisearch.Search(ctx, searcher, apisearch.SearchInput{
		UserID: cfg.Memory.UserID,
		Query:  query,
		TopK:   c.topK,
	}, c.now(), log)
	if err != nil {
		return err
	}

	if c.jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(output)
	}

	printResults(w, output)
	return nil
}

func printResults(w io.Writer, output *apisearch.SearchOutput) {
	if output.Count == 0 {
		fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No matching turns for "+output.UserID+"."))
		return
	}

	fmt.Fprintf(w, "\n  %s %s\n\n",
		cliui.KeyStyle.Render("Results for"),
		cliui.ValueStyle.Render(fmt.Sprintf("%q", output.Query)),
	)
	for i, r := range output.Results {
		fmt.Fprintf(w, "  %s %s %s %s\n",
			rankStyle.Render(fmt.Sprintf("#%d", i+1)),
			scoreStyle.Render(fmt.Sprintf("%.3f", r.Score)),
			roleStyle.Render(r.Role),
			cliui.DimStyle.Render(r.When+" · "+r.SessionID),
		)
		fmt.Fprintf(w, "     %s\n", cliui.ValueStyle.Render(utils.Truncate(utils.OneLine(r.Text), previewLen)))
	}
	fmt.Fprintln(w)
}
