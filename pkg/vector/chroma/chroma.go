// Package chroma provides a vector.Driver backed by a Chroma collection over
// Chroma's v2 REST API.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/vector"
)

const (
	// DefaultCollection is used when Config.Collection is empty.
	DefaultCollection = "recall_turns"

	collectionsPath = "/api/v2/tenants/default_tenant/databases/default_database/collections"

	userIDField = "user_id"
)

// Config holds configuration for the Chroma driver.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// Collection is the name of the collection holding turn vectors.
	Collection string

	// Dimensions is checked on every Add and Query. Chroma itself infers the
	// size from the first insert.
	Dimensions uint

	// MaxRetries bounds the attempts to reach the collection at startup.
	// Zero means a single attempt.
	MaxRetries int

	// RetryDelay is the first backoff; it doubles up to MaxRetryDelay.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration

	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// Driver implements vector.Driver using Chroma.
type Driver struct {
	baseURL      string
	collection   string
	collectionID string
	dimensions   uint
	httpClient   *http.Client
	logger       *slog.Logger
}

// NewDriver resolves (or creates) the collection and returns a driver bound
// to its id.
func NewDriver(ctx context.Context, c Config, log *slog.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, errors.New("chroma URL is required")
	}

	collection := c.Collection
	if collection == "" {
		collection = DefaultCollection
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}

	d := &Driver{
		baseURL:    strings.TrimRight(c.URL, "/"),
		collection: collection,
		dimensions: c.Dimensions,
		httpClient: httpClient,
		logger:     logger.OrNop(log),
	}

	id, err := d.resolveWithRetry(ctx, c)
	if err != nil {
		return nil, err
	}
	d.collectionID = id

	d.logger.Info("chroma vector driver initialized",
		"url", d.baseURL,
		"collection", collection,
		"collection_id", id,
	)
	return d, nil
}

func (d *Driver) resolveWithRetry(ctx context.Context, c Config) (string, error) {
	attempts := max(c.MaxRetries, 1)
	delay := c.RetryDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	maxDelay := c.MaxRetryDelay
	if maxDelay <= 0 {
		maxDelay = 5 * time.Second
	}

	var lastErr error
	for i := range attempts {
		id, err := d.getOrCreateCollection(ctx)
		if err == nil {
			return id, nil
		}
		lastErr = err

		if i == attempts-1 {
			break
		}
		d.logger.Debug("chroma not ready, retrying", "attempt", i+1, "error", err)

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", vector.ErrConnection, ctx.Err())
		case <-time.After(delay):
		}
		delay = min(delay*2, maxDelay)
	}

	return "", fmt.Errorf("%w: collection %s after %d attempts: %v", vector.ErrConnection, d.collection, attempts, lastErr)
}

func (d *Driver) getOrCreateCollection(ctx context.Context) (string, error) {
	var coll collectionResponse
	status, err := d.do(ctx, http.MethodGet, collectionsPath+"/"+d.collection, nil, &coll)
	if err == nil {
		return coll.ID, nil
	}
	if status == 0 {
		return "", err
	}

	if _, err := d.do(ctx, http.MethodPost, collectionsPath, createCollectionRequest{
		Name:     d.collection,
		Metadata: map[string]any{"hnsw:space": "cosine"},
	}, &coll); err != nil {
		return "", err
	}
	return coll.ID, nil
}

// Add upserts one record per document, keyed by turn id.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	req := upsertRequest{
		IDs:        make([]string, len(docs)),
		Embeddings: make([][]float32, len(docs)),
		Metadatas:  make([]map[string]any, len(docs)),
	}
	for i, doc := range docs {
		if err := d.checkDimensions(len(doc.Embedding)); err != nil {
			return fmt.Errorf("turn %d: %w", doc.TurnID, err)
		}
		if doc.TurnID <= 0 {
			return fmt.Errorf("turn id must be positive, got %d", doc.TurnID)
		}
		req.IDs[i] = strconv.FormatInt(doc.TurnID, 10)
		req.Embeddings[i] = doc.Embedding
		req.Metadatas[i] = map[string]any{userIDField: doc.UserID}
	}

	if _, err := d.do(ctx, http.MethodPost, d.collectionPath("upsert"), req, nil); err != nil {
		return fmt.Errorf("%w: upserting %d records: %v", vector.ErrConnection, len(docs), err)
	}

	d.logger.Debug("indexed turns", "count", len(docs))
	return nil
}

// Query returns the nearest records whose user_id metadata equals userID.
// Chroma reports distances; they are mapped to 1/(1+distance) so higher is
// closer.
func (d *Driver) Query(ctx context.Context, userID string, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	if err := d.checkDimensions(len(embedding)); err != nil {
		return nil, err
	}

	var resp queryResponse
	if _, err := d.do(ctx, http.MethodPost, d.collectionPath("query"), queryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        topK,
		Where:           map[string]any{userIDField: userID},
		Include:         []string{"metadatas", "distances"},
	}, &resp); err != nil {
		return nil, fmt.Errorf("%w: querying %s: %v", vector.ErrConnection, d.collection, err)
	}

	if len(resp.IDs) == 0 {
		return nil, nil
	}

	ids := resp.IDs[0]
	var distances []float32
	if len(resp.Distances) > 0 {
		distances = resp.Distances[0]
	}

	results := make([]vector.QueryResult, 0, len(ids))
	for i, raw := range ids {
		turnID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			d.logger.Warn("skipping chroma record with non-numeric id", "id", raw)
			continue
		}

		result := vector.QueryResult{Document: vector.Document{TurnID: turnID, UserID: userID}}
		if i < len(distances) {
			result.Score = 1 / (1 + distances[i])
		}
		results = append(results, result)
	}
	return results, nil
}

// Close is a no-op; the HTTP client holds no dedicated resources.
func (d *Driver) Close() error {
	return nil
}

func (d *Driver) checkDimensions(n int) error {
	if d.dimensions != 0 && uint(n) != d.dimensions {
		return fmt.Errorf("%w: got %d, collection expects %d", vector.ErrDimensions, n, d.dimensions)
	}
	return nil
}

func (d *Driver) collectionPath(op string) string {
	return collectionsPath + "/" + d.collectionID + "/" + op
}

// do sends body as JSON and decodes a 2xx response into out. The returned
// status is 0 when the request never got a response.
func (d *Driver) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, fmt.Errorf("chroma returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decoding response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

var _ vector.Driver = (*Driver)(nil)
