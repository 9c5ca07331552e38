// Package servecmder provides the serve command, which runs the memory API
// with the MCP tools and Prometheus metrics mounted on it.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/recall/api"
	"github.com/papercomputeco/recall/api/mcp"
	"github.com/papercomputeco/recall/pkg/app"
	"github.com/papercomputeco/recall/pkg/config"
	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/metrics"
)

type serveCommander struct {
	debug   bool
	jsonLog bool
	logFile string
}

var serveFlags = append([]string{
	config.FlagAPIListen,
	config.FlagMemoryMode,
	config.FlagTopK,
	config.FlagRemoteTarget,
}, config.StoreFlags...)

const serveLongDesc string = `Run the recall API server.

Serves read-only access to stored memory over HTTP:
  GET /v1/memory/:user_id   Memory block for a user (?query= to select by question)
  GET /v1/search            Similarity search over a user's turns
  GET /metrics              Prometheus metrics
  /mcp                      MCP tools memory_recall and memory_search

Examples:
  recall serve
  recall serve --listen :9090 --storage-driver sqlite --sqlite ./recall.db
  recall serve --json`

const serveShortDesc string = "Run the recall API server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cfg, err := config.FromCommand(cmd, serveFlags)
			if err != nil {
				return err
			}

			return cmder.run(cmd.Context(), cfg)
		},
	}

	config.AddFlags(cmd, config.Flags, serveFlags)
	cmd.Flags().BoolVar(&cmder.jsonLog, "json", false, "Emit JSON logs")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append debug-level JSON logs to this file")

	return cmd
}

func (c *serveCommander) run(ctx context.Context, cfg *config.Config) error {
	log, closeLog, err := c.newLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	a, err := app.Open(ctx, cfg, app.Options{Logger: log, Metrics: m})
	if err != nil {
		return err
	}
	defer a.Close()

	searcher := a.Searcher()
	if searcher == nil {
		log.Info("similarity search disabled", "reason", "storage.embeddings is off or memory is remote")
	}

	mcpServer, err := mcp.NewServer(mcp.Config{
		Memory:   a.Memory,
		Searcher: searcher,
		Logger:   log,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	server, err := api.NewServer(api.Config{
		ListenAddr: cfg.API.Listen,
		Memory:     a.Memory,
		Searcher:   searcher,
		MCPHandler: mcpServer.Handler(),
		Metrics:    m,
	}, log)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	return serve(server, log)
}

// newLogger builds the terminal logger and, with --log-file, fans it out to
// a JSON file sink that always records debug.
func (c *serveCommander) newLogger() (*slog.Logger, func(), error) {
	term := logger.New(
		logger.WithJSON(c.jsonLog),
		logger.WithPretty(!c.jsonLog),
		logger.WithDebug(c.debug),
	)
	if c.logFile == "" {
		return term, func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	file := logger.New(
		logger.WithWriter(f),
		logger.WithJSON(true),
		logger.WithDebug(true),
		logger.WithSource(true),
	)
	return logger.Multi(term, file), func() { _ = f.Close() }, nil
}

func serve(server *api.Server, log *slog.Logger) error {
	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		log.Info("received signal, shutting down", "signal", sig.String())
		return server.Shutdown()
	}
}
