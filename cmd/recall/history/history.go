// Package historycmder provides the history command, which shows what recall
// remembers about a user.
package historycmder

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/pkg/app"
	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/config"
	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/storage"
	"github.com/papercomputeco/recall/pkg/utils"
)

type historyCommander struct {
	query string
	debug bool
	now   func() time.Time
}

var historyFlags = append([]string{
	config.FlagMemoryMode,
	config.FlagTopK,
	config.FlagRemoteTarget,
}, config.StoreFlags...)

const historyLongDesc string = `Show what recall remembers about a user.

Without --query every stored turn of the user is listed, oldest first, with
its session and relative date. With --query the memory block the model would
receive for that question is printed instead; this also works in remote mode.

Examples:
  recall history --user alice
  recall history --user alice --query "what did I say yesterday?"`

const historyShortDesc string = "Show a user's stored memory"

func NewHistoryCmd() *cobra.Command {
	cmder := &historyCommander{now: time.Now}

	cmd := &cobra.Command{
		Use:   "history",
		Short: historyShortDesc,
		Long:  historyLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.debug, _ = cmd.Flags().GetBool("debug")

			cfg, err := config.FromCommand(cmd, historyFlags)
			if err != nil {
				return err
			}

			return cmder.run(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg)
		},
	}

	config.AddFlags(cmd, config.Flags, historyFlags)
	cmd.Flags().StringVarP(&cmder.query, "query", "q", "", "Show the memory block recalled for this question")

	return cmd
}

func (c *historyCommander) run(ctx context.Context, w, errW io.Writer, cfg *config.Config) error {
	log := logger.New(logger.WithPretty(true), logger.WithWriter(errW), logger.WithDebug(c.debug))

	a, err := app.Open(ctx, cfg, app.Options{Logger: log, Clock: c.now})
	if err != nil {
		return err
	}
	defer a.Close()

	if c.query != "" {
		rec, err := a.Memory.Recall(ctx, memory.Query{
			UserID: cfg.Memory.UserID,
			Text:   c.query,
			Now:    c.now(),
		})
		if err != nil {
			return fmt.Errorf("recalling memory: %w", err)
		}
		printRecollection(w, cfg.Memory.UserID, rec)
		return nil
	}

	if a.Local == nil {
		return fmt.Errorf("listing history %w; pass --query to see the remote memory", app.ErrLocalOnly)
	}

	turns, err := a.Local.History(ctx, cfg.Memory.UserID)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	printTurns(w, cfg.Memory.UserID, turns, c.now())
	return nil
}

func printRecollection(w io.Writer, userID string, rec memory.Recollection) {
	if rec.Empty() {
		fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No memory for "+userID+"."))
		return
	}

	fmt.Fprintf(w, "\n  %s %s  %s\n\n%s\n\n",
		cliui.KeyStyle.Render("user"),
		cliui.NameStyle.Render(userID),
		cliui.DimStyle.Render(fmt.Sprintf("(%d items, dated: %t)", rec.Items, rec.Dated)),
		rec.Text,
	)
}

func printTurns(w io.Writer, userID string, turns []storage.Turn, now time.Time) {
	if len(turns) == 0 {
		fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No stored turns for "+userID+"."))
		return
	}

	fmt.Fprintln(w)
	session := ""
	for _, t := range turns {
		if t.SessionID != session {
			session = t.SessionID
			fmt.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render("session"), cliui.DimStyle.Render(session))
		}
		fmt.Fprintf(w, "    %s  %s: %s\n",
			cliui.DimStyle.Render(memory.RelativeDay(t.CreatedAt, now)),
			cliui.NameStyle.Render(string(t.Role)),
			cliui.ValueStyle.Render(utils.OneLine(t.Text)),
		)
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render(fmt.Sprintf("%d turns", len(turns))))
}
