// Package app assembles recall's components from a loaded configuration:
// the turn store, embedder, similarity index, memory driver, event
// publisher and, on demand, the chat model and hook pipeline. Commands open
// one App, use the parts they need and Close it on exit.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/papercomputeco/recall/pkg/config"
	"github.com/papercomputeco/recall/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/recall/pkg/embeddings/utils"
	"github.com/papercomputeco/recall/pkg/eventstream"
	eventstreamutils "github.com/papercomputeco/recall/pkg/eventstream/utils"
	"github.com/papercomputeco/recall/pkg/hooks"
	"github.com/papercomputeco/recall/pkg/llm"
	"github.com/papercomputeco/recall/pkg/llm/provider"
	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/memory/local"
	"github.com/papercomputeco/recall/pkg/memory/remote"
	"github.com/papercomputeco/recall/pkg/metrics"
	"github.com/papercomputeco/recall/pkg/storage"
	storageutils "github.com/papercomputeco/recall/pkg/storage/utils"
	"github.com/papercomputeco/recall/pkg/vector"
	vectorutils "github.com/papercomputeco/recall/pkg/vector/utils"
)

// ErrLocalOnly is returned when a command needs the turn store but memory
// runs in remote mode.
var ErrLocalOnly = errors.New("requires memory.mode = local")

// Options are the process-level collaborators.
type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// Getenv defaults to os.Getenv.
	Getenv func(string) string

	// Store replaces the configured turn store. Tests use it.
	Store storage.Driver

	// Embedder replaces the configured embedder. Tests use it.
	Embedder embeddings.Embedder

	Clock func() time.Time
}

// App holds every opened component. Fields are nil when not configured.
type App struct {
	Config *config.Config

	Store    storage.Driver
	Embedder embeddings.Embedder
	Vector   vector.Driver

	// Local is set in local mode.
	Local *local.Driver

	Memory    memory.Driver
	Publisher eventstream.Publisher
	Names     *memory.NameRegistry
	Metrics   *metrics.Metrics

	logger  *slog.Logger
	getenv  func(string) string
	closers []func() error
}

// Open builds the memory stack for cfg. In local mode the schema is ensured
// before Open returns; a failure there is fatal to the caller.
func Open(ctx context.Context, cfg *config.Config, o Options) (*App, error) {
	a := &App{
		Config:  cfg,
		Names:   memory.NewNameRegistry(cfg.Memory.KnownNames...),
		Metrics: metrics.OrNop(o.Metrics),
		logger:  logger.OrNop(o.Logger),
		getenv:  o.Getenv,
	}
	if a.getenv == nil {
		a.getenv = os.Getenv
	}

	if err := a.open(ctx, o); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) open(ctx context.Context, o Options) error {
	cfg := a.Config

	publisher, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		ProviderType: cfg.Events.Provider,
		Brokers:      cfg.Events.Brokers,
		Topic:        cfg.Events.Topic,
		Logger:       a.logger,
	})
	if err != nil {
		return fmt.Errorf("creating event publisher: %w", err)
	}
	a.Publisher = publisher
	a.closers = append(a.closers, publisher.Close)

	if cfg.Memory.Mode == hooks.ModeRemote {
		driver := remote.NewDriver(remote.Config{
			Target:      cfg.Remote.Target,
			ProjectName: cfg.Remote.ProjectName,
			EngineName:  cfg.Remote.EngineName,
			AppName:     cfg.Memory.AppName,
			Timeout:     cfg.Memory.RemoteTimeout,
			Clock:       o.Clock,
			Logger:      a.logger,
			Metrics:     a.Metrics,
		})
		a.Memory = driver
		a.closers = append(a.closers, driver.Close)
		a.logger.Debug("using remote memory", "target", cfg.Remote.Target)
		return nil
	}

	variant := storage.Variant{Embeddings: cfg.Storage.Embeddings}
	if variant.Embeddings {
		variant.Dimensions = cfg.Embedding.Dimensions
	}

	store := o.Store
	if store == nil {
		store, err = storageutils.NewStore(ctx, &storageutils.NewStoreOpts{
			Driver:      cfg.Storage.Driver,
			PostgresDSN: cfg.Storage.PostgresDSN,
			SQLitePath:  cfg.Storage.SQLitePath,
			Table:       cfg.Storage.Table,
			Variant:     variant,
			Logger:      a.logger,
		})
		if err != nil {
			return fmt.Errorf("opening turn store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
	}
	a.Store = store

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	a.logger.Debug("turn store ready", "driver", cfg.Storage.Driver, "variant", store.Variant().String())

	embedder := o.Embedder
	if embedder == nil && variant.Embeddings {
		embedder, err = embeddingutils.NewEmbedder(ctx, &embeddingutils.NewEmbedderOpts{
			ProviderType: cfg.Embedding.Provider,
			TargetURL:    cfg.Embedding.Target,
			Model:        cfg.Embedding.Model,
			Dimensions:   cfg.Embedding.Dimensions,
		})
		if err != nil {
			return fmt.Errorf("creating embedder: %w", err)
		}
		a.closers = append(a.closers, embedder.Close)
	}
	a.Embedder = embedder

	if cfg.VectorStore.Provider != "" {
		vec, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
			ProviderType: cfg.VectorStore.Provider,
			TargetURL:    cfg.VectorStore.Target,
			Collection:   cfg.VectorStore.Collection,
			Dimensions:   cfg.Embedding.Dimensions,
			APIKey:       a.getenv("QDRANT_API_KEY"),
			Logger:       a.logger,
		})
		if err != nil {
			return fmt.Errorf("creating vector driver: %w", err)
		}
		a.Vector = vec
		a.closers = append(a.closers, vec.Close)
	}

	driver, err := local.NewDriver(local.Config{
		Store:        store,
		Embedder:     embedder,
		Vector:       a.Vector,
		TopK:         cfg.Memory.TopK,
		StoreTimeout: cfg.Memory.StoreTimeout,
		EmbedTimeout: cfg.Memory.EmbedTimeout,
		Clock:        o.Clock,
		Logger:       a.logger,
		Metrics:      a.Metrics,
	})
	if err != nil {
		return err
	}
	a.Local = driver
	a.Memory = driver
	return nil
}

// Searcher returns the similarity searcher, or nil when the store carries no
// embeddings.
func (a *App) Searcher() memory.Searcher {
	if a.Local == nil || a.Embedder == nil {
		return nil
	}
	return a.Local
}

// CheckCredentials fails when the configured model provider has no API key.
func (a *App) CheckCredentials() error {
	providerType := a.Config.Model.Provider
	if providerType == "" {
		providerType = provider.DetectFromModel(a.Config.Model.Name)
	}
	if providerType == provider.OpenAI && a.Config.Model.Target != "" {
		return nil
	}
	return provider.CheckCredentials(providerType, a.getenv)
}

// NewModel creates the configured chat model. The caller owns it.
func (a *App) NewModel(ctx context.Context) (llm.Model, error) {
	return provider.New(ctx, provider.Options{
		Provider:  a.Config.Model.Provider,
		Model:     a.Config.Model.Name,
		Target:    a.Config.Model.Target,
		MaxTokens: a.Config.Model.MaxTokens,
		Getenv:    a.getenv,
	})
}

// NewPipeline wires the hooks around a model from this App.
func (a *App) NewPipeline(modelName string) (*hooks.Pipeline, error) {
	return hooks.New(hooks.Config{
		Memory:    a.Memory,
		Mode:      a.Config.Memory.Mode,
		Names:     a.Names,
		Publisher: a.Publisher,
		Source: eventstream.EventSource{
			App:       a.Config.Memory.AppName,
			AgentName: a.Config.Model.AgentName,
			Provider:  modelName,
		},
		ModelTimeout: a.Config.Model.Timeout,
		Logger:       a.logger,
		Metrics:      a.Metrics,
	})
}

// Close releases every opened component in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
