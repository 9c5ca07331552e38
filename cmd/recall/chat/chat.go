// Package chatcmder provides the interactive chat command. Every exchange
// runs through the memory hooks, so the agent remembers what the user said in
// earlier sessions.
package chatcmder

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/pkg/app"
	"github.com/papercomputeco/recall/pkg/cliui"
	"github.com/papercomputeco/recall/pkg/config"
	"github.com/papercomputeco/recall/pkg/dotdir"
	"github.com/papercomputeco/recall/pkg/hooks"
	"github.com/papercomputeco/recall/pkg/llm"
	"github.com/papercomputeco/recall/pkg/logger"
)

type chatCommander struct {
	debug     bool
	resume    bool
	markdown  bool
	configDir string
	width     int

	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

var chatFlags = append([]string{
	config.FlagModelProvider,
	config.FlagModel,
	config.FlagModelTarget,
	config.FlagMemoryMode,
	config.FlagTopK,
	config.FlagRemoteTarget,
	config.FlagEventsProvider,
}, config.StoreFlags...)

const chatLongDesc string = `Start an interactive chat session with memory.

Each message is answered by the configured model after recall injects what
the user said in earlier sessions. Completed exchanges are stored so later
sessions can recall them. Dates are only shown to the model when the
question asks about time.

Type "exit" or "quit" (or press Ctrl+D) to end the session.

Examples:
  recall chat
  recall chat --user alice --storage-driver sqlite --sqlite ./recall.db
  recall chat --model-provider ollama --model llama3.2
  recall chat --resume`

const chatShortDesc string = "Interactive chat with cross-session memory"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{
		in:     os.Stdin,
		out:    os.Stdout,
		errOut: os.Stderr,
	}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString(config.ConfigDirFlag)

			cfg, err := config.FromCommand(cmd, chatFlags)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return cmder.run(ctx, cfg)
		},
	}

	config.AddFlags(cmd, config.Flags, chatFlags)
	cmd.Flags().BoolVarP(&cmder.resume, "resume", "r", false, "Continue the most recent session for this user")
	cmd.Flags().BoolVar(&cmder.markdown, "markdown", false, "Render agent replies as markdown")

	return cmd
}

func (c *chatCommander) run(ctx context.Context, cfg *config.Config) error {
	log := logger.New(
		logger.WithPretty(true),
		logger.WithWriter(c.errOut),
		logger.WithDebug(c.debug),
	)

	a, err := app.Open(ctx, cfg, app.Options{Logger: log})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.CheckCredentials(); err != nil {
		return err
	}

	model, err := a.NewModel(ctx)
	if err != nil {
		return fmt.Errorf("creating model: %w", err)
	}
	defer model.Close()

	pipeline, err := a.NewPipeline(model.Name())
	if err != nil {
		return err
	}

	sessionID, resumed := c.session(cfg, log)

	banner := cliui.Banner{
		AppName:   cfg.Memory.AppName,
		UserID:    cfg.Memory.UserID,
		SessionID: sessionID,
		Agent:     cfg.Model.AgentName,
		Model:     model.Name(),
		Mode:      cfg.Memory.Mode,
		Resumed:   resumed,
	}
	c.width = cliui.DefaultWidth
	if f, ok := c.out.(*os.File); ok {
		c.width = cliui.TerminalWidth(f)
	}
	fmt.Fprintf(c.out, "\n%s\n\n", banner.Render(c.width))

	return c.loop(ctx, pipeline, model, cfg, hooks.Context{
		UserID:    cfg.Memory.UserID,
		SessionID: sessionID,
	})
}

// session picks the session id: the recorded one when resuming the same
// user, otherwise a fresh one that is recorded for the next --resume.
func (c *chatCommander) session(cfg *config.Config, log *slog.Logger) (string, bool) {
	ddm := dotdir.NewManager()

	if c.resume {
		state, err := ddm.LoadSessionState(c.configDir)
		if err != nil {
			log.Warn("could not load session state", "error", err)
		}
		if state != nil && state.UserID == cfg.Memory.UserID {
			return state.SessionID, true
		}
	}

	sessionID := NewSessionID(cfg.Memory.SessionPrefix)
	err := ddm.SaveSessionState(&dotdir.SessionState{
		UserID:    cfg.Memory.UserID,
		SessionID: sessionID,
		StartedAt: time.Now().UTC(),
	}, c.configDir)
	if err != nil {
		log.Warn("could not save session state", "error", err)
	}
	return sessionID, false
}

// NewSessionID returns "<prefix>_<8 hex chars>", or the 8 hex chars alone
// without a prefix.
func NewSessionID(prefix string) string {
	id := uuid.New()
	short := hex.EncodeToString(id[:4])
	if prefix == "" {
		return short
	}
	return prefix + "_" + short
}

// IsExit reports whether input ends the session.
func IsExit(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "exit", "quit":
		return true
	}
	return false
}

// exchanger runs one exchange; *hooks.Pipeline satisfies it.
type exchanger interface {
	Exchange(ctx context.Context, model llm.Model, req *llm.ChatRequest, hc hooks.Context) llm.Reply
}

func (c *chatCommander) loop(ctx context.Context, p exchanger, model llm.Model, cfg *config.Config, hc hooks.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan inputLine)
	go readLines(ctx, c.in, lines)

	for {
		fmt.Fprint(c.out, cliui.UserPrompt())

		var (
			line inputLine
			ok   bool
		)
		select {
		case <-ctx.Done():
			fmt.Fprintln(c.out)
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			fmt.Fprintln(c.out)
			return nil
		}
		if line.err != nil {
			fmt.Fprintln(c.out)
			fmt.Fprintln(c.out, cliui.ErrorLine(line.err))
			return fmt.Errorf("reading input: %w", line.err)
		}

		input := line.text
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if IsExit(input) {
			return nil
		}

		req := &llm.ChatRequest{
			Model:    model.Name(),
			System:   cfg.Model.Instruction,
			Messages: []llm.Message{llm.NewTextMessage(llm.RoleUser, input)},
		}
		if cfg.Model.MaxTokens > 0 {
			maxTokens := cfg.Model.MaxTokens
			req.MaxTokens = &maxTokens
		}

		hc.Query = input
		reply := p.Exchange(ctx, model, req, hc)

		fmt.Fprintln(c.out, cliui.AgentLine(cfg.Model.AgentName, c.render(reply)))
		if reply.Kind == llm.ReplyError && reply.Err != nil {
			fmt.Fprintln(c.out, cliui.ErrorLine(reply.Err))
		}
		fmt.Fprintln(c.out)
	}
}

// inputLine is one line read from the user, or the error that stopped
// reading.
type inputLine struct {
	text string
	err  error
}

// readLines sends every line of r to out and closes out at EOF. Lines have
// no length limit. A read error other than EOF is sent as the last value.
func readLines(ctx context.Context, r io.Reader, out chan<- inputLine) {
	defer close(out)

	br := bufio.NewReader(r)
	for {
		text, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			select {
			case out <- inputLine{err: err}:
			case <-ctx.Done():
			}
			return
		}
		if text != "" {
			select {
			case out <- inputLine{text: text}:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// render returns the text shown for reply, as terminal markdown when enabled.
func (c *chatCommander) render(reply llm.Reply) string {
	text := reply.Display()
	if !c.markdown || reply.Kind != llm.ReplyText {
		return text
	}

	rendered, err := cliui.RenderMarkdown(text, c.width)
	if err != nil {
		return text
	}
	return "\n" + strings.Trim(rendered, "\n")
}
