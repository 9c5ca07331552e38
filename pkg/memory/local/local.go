// Package local provides the memory.Driver backed by the turn store.
//
// Recall loads the user's full history, or with TopK set, the TopK turns most
// similar to the query, and renders it with relative dates when the query
// asks about time. Store embeds and appends the user turn, then the agent
// turn, stopping at the first failure.
package local

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/papercomputeco/recall/pkg/embeddings"
	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/metrics"
	"github.com/papercomputeco/recall/pkg/storage"
	"github.com/papercomputeco/recall/pkg/vector"
)

const source = "local"

// Config holds configuration for the local memory driver.
type Config struct {
	// Store is the turn store. Required.
	Store storage.Driver

	// Embedder embeds turns and queries. Required when the store variant
	// carries embeddings; optional otherwise, where it only enables Search.
	Embedder embeddings.Embedder

	// Vector is an optional similarity index mirroring embedded turns.
	Vector vector.Driver

	// TopK > 0 recalls only the TopK most similar turns instead of the full
	// history.
	TopK int

	// Labels overrides rendered speaker names.
	Labels map[storage.Role]string

	StoreTimeout time.Duration
	EmbedTimeout time.Duration

	Clock   func() time.Time
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Driver implements memory.Driver over a storage.Driver.
type Driver struct {
	store        storage.Driver
	embedder     embeddings.Embedder
	vector       vector.Driver
	topK         int
	formatter    memory.Formatter
	storeTimeout time.Duration
	now          func() time.Time
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

// NewDriver creates a local memory driver.
func NewDriver(c Config) (*Driver, error) {
	if c.Store == nil {
		return nil, fmt.Errorf("%w: a turn store is required", memory.ErrNotConfigured)
	}
	if c.Store.Variant().Embeddings && c.Embedder == nil {
		return nil, fmt.Errorf("%w: store %s requires an embedder", memory.ErrNotConfigured, c.Store.Variant())
	}
	if c.TopK > 0 && c.Embedder == nil {
		return nil, fmt.Errorf("%w: top_k requires an embedder", memory.ErrNotConfigured)
	}

	now := c.Clock
	if now == nil {
		now = time.Now
	}

	return &Driver{
		store:        c.Store,
		embedder:     embeddings.WithTimeout(c.Embedder, c.EmbedTimeout),
		vector:       c.Vector,
		topK:         c.TopK,
		formatter:    memory.Formatter{Labels: c.Labels},
		storeTimeout: c.StoreTimeout,
		now:          now,
		logger:       logger.OrNop(c.Logger),
		metrics:      metrics.OrNop(c.Metrics),
	}, nil
}

// Recall renders the memory relevant to q.
func (d *Driver) Recall(ctx context.Context, q memory.Query) (memory.Recollection, error) {
	now := q.Now
	if now.IsZero() {
		now = d.now()
	}

	var (
		turns []storage.Turn
		err   error
	)
	if d.topK > 0 {
		var scored []memory.Scored
		scored, err = d.Search(ctx, q.UserID, q.Text, d.topK)
		turns = memory.Chronological(scored)
	} else {
		turns, err = d.load(ctx, q.UserID)
	}
	if err != nil {
		d.metrics.Retrieval(source, metrics.OutcomeError)
		return memory.Recollection{}, err
	}

	dated := memory.ShouldIncludeDates(q.Text)
	rec := memory.Recollection{
		Text:  d.formatter.Format(turns, now, dated),
		Items: len(turns),
		Dated: dated,
	}

	outcome := metrics.OutcomeOK
	if rec.Empty() {
		outcome = metrics.OutcomeEmpty
	}
	d.metrics.Retrieval(source, outcome)

	d.logger.Debug("recalled memory",
		"user_id", q.UserID,
		"turns", len(turns),
		"dated", dated,
	)
	return rec, nil
}

// History returns every turn of userID, oldest first.
func (d *Driver) History(ctx context.Context, userID string) ([]storage.Turn, error) {
	return d.load(ctx, userID)
}

// Search returns the k turns of userID most similar to query, best first.
// It asks the vector index when one is configured and falls back to a linear
// scan of the store when the index fails.
func (d *Driver) Search(ctx context.Context, userID, query string, k int) ([]memory.Scored, error) {
	if d.embedder == nil {
		return nil, fmt.Errorf("%w: similarity search needs an embedder", memory.ErrNotConfigured)
	}

	queryEmb, err := d.embed(ctx, query)
	if err != nil {
		return nil, err
	}

	turns, err := d.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if d.vector != nil {
		scored, err := d.searchIndex(ctx, userID, queryEmb, turns, k)
		if err == nil {
			return scored, nil
		}
		d.logger.Warn("vector index query failed, scanning store",
			"user_id", userID,
			"error", err,
		)
	}

	return memory.Rank(queryEmb, turns, k), nil
}

func (d *Driver) searchIndex(ctx context.Context, userID string, queryEmb []float32, turns []storage.Turn, k int) ([]memory.Scored, error) {
	results, err := d.vector.Query(ctx, userID, queryEmb, k)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]storage.Turn, len(turns))
	for _, t := range turns {
		byID[t.ID] = t
	}

	scored := make([]memory.Scored, 0, len(results))
	for _, r := range results {
		t, ok := byID[r.TurnID]
		if !ok {
			continue
		}
		scored = append(scored, memory.Scored{Turn: t, Score: float64(r.Score)})
	}
	return scored, nil
}

// Store appends the user turn, then the agent turn. An agent turn is never
// stored without its user turn. Nothing is retried or rolled back.
func (d *Driver) Store(ctx context.Context, ex memory.Exchange) error {
	parts := []struct {
		role storage.Role
		text string
	}{
		{storage.RoleUser, ex.UserText},
		{storage.RoleAgent, ex.AgentText},
	}

	var indexed []vector.Document
	for _, p := range parts {
		turn, err := d.commit(ctx, ex, p.role, p.text)
		d.metrics.Commit(string(p.role), metrics.Outcome(err))
		if err != nil {
			return fmt.Errorf("committing %s turn: %w", p.role, err)
		}

		if len(turn.Embedding) > 0 {
			indexed = append(indexed, vector.Document{
				TurnID:    turn.ID,
				UserID:    turn.UserID,
				Embedding: turn.Embedding,
			})
		}
	}

	d.index(ctx, indexed)
	return nil
}

func (d *Driver) commit(ctx context.Context, ex memory.Exchange, role storage.Role, text string) (*storage.Turn, error) {
	params := storage.AppendParams{
		UserID:    ex.UserID,
		SessionID: ex.SessionID,
		Role:      role,
		Text:      text,
	}

	if d.store.Variant().Embeddings {
		emb, err := d.embed(ctx, text)
		if err != nil {
			return nil, err
		}
		params.Embedding = emb
	}

	ctx, cancel := d.withStoreTimeout(ctx)
	defer cancel()

	turn, err := d.store.Append(ctx, params)
	if err != nil {
		return nil, err
	}

	d.logger.Debug("stored turn",
		"user_id", turn.UserID,
		"session_id", turn.SessionID,
		"role", turn.Role,
		"id", turn.ID,
	)
	return turn, nil
}

func (d *Driver) index(ctx context.Context, docs []vector.Document) {
	if d.vector == nil || len(docs) == 0 {
		return
	}
	if err := d.vector.Add(ctx, docs); err != nil {
		d.logger.Warn("indexing turns failed", "count", len(docs), "error", err)
	}
}

func (d *Driver) load(ctx context.Context, userID string) ([]storage.Turn, error) {
	ctx, cancel := d.withStoreTimeout(ctx)
	defer cancel()

	turns, err := d.store.Load(ctx, userID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, storage.ErrUnavailable) {
			return nil, fmt.Errorf("%w: loading turns: %v", storage.ErrUnavailable, err)
		}
		return nil, err
	}
	return turns, nil
}

func (d *Driver) embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	emb, err := d.embedder.Embed(ctx, text)
	d.metrics.ObserveEmbedding(time.Since(start))
	return emb, err
}

func (d *Driver) withStoreTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.storeTimeout)
}

// Close is a no-op; the store, embedder and index are owned by the caller.
func (d *Driver) Close() error {
	return nil
}

var (
	_ memory.Driver   = (*Driver)(nil)
	_ memory.Searcher = (*Driver)(nil)
)
