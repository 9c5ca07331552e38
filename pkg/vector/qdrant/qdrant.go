// Package qdrant provides a vector.Driver backed by a Qdrant collection.
package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"

	qc "github.com/qdrant/go-client/qdrant"

	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/vector"
)

const (
	// DefaultPort is Qdrant's gRPC port.
	DefaultPort = 6334

	// DefaultCollection is used when Config.Collection is empty.
	DefaultCollection = "recall_turns"

	userIDField = "user_id"
)

// client is the subset of *qc.Client the driver uses.
type client interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, req *qc.CreateCollection) error
	Upsert(ctx context.Context, req *qc.UpsertPoints) (*qc.UpdateResult, error)
	Query(ctx context.Context, req *qc.QueryPoints) ([]*qc.ScoredPoint, error)
	Close() error
}

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Target is "host", "host:port" or a URL. An https scheme enables TLS.
	Target string

	// Collection is the Qdrant collection holding turn vectors.
	Collection string

	// Dimensions is the embedding size the collection is created with.
	Dimensions uint

	// APIKey authenticates against Qdrant Cloud. Optional.
	APIKey string
}

// Driver implements vector.Driver using Qdrant.
type Driver struct {
	client     client
	collection string
	dimensions uint
	logger     *slog.Logger
}

// NewDriver connects to Qdrant and ensures the collection exists with cosine
// distance.
func NewDriver(ctx context.Context, c Config, log *slog.Logger) (*Driver, error) {
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("qdrant embedding dimensions cannot be 0, must be configured")
	}

	host, port, tls, err := parseTarget(c.Target)
	if err != nil {
		return nil, err
	}

	qclient, err := qc.NewClient(&qc.Config{
		Host:   host,
		Port:   port,
		APIKey: c.APIKey,
		UseTLS: tls,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}

	d, err := newDriver(ctx, qclient, c, log)
	if err != nil {
		qclient.Close()
		return nil, err
	}
	return d, nil
}

func newDriver(ctx context.Context, cl client, c Config, log *slog.Logger) (*Driver, error) {
	collection := c.Collection
	if collection == "" {
		collection = DefaultCollection
	}

	d := &Driver{
		client:     cl,
		collection: collection,
		dimensions: c.Dimensions,
		logger:     logger.OrNop(log),
	}

	if err := d.ensureCollection(ctx); err != nil {
		return nil, err
	}

	d.logger.Info("qdrant vector driver initialized",
		"collection", collection,
		"dimensions", c.Dimensions,
	)
	return d, nil
}

func (d *Driver) ensureCollection(ctx context.Context) error {
	exists, err := d.client.CollectionExists(ctx, d.collection)
	if err != nil {
		return fmt.Errorf("%w: checking collection %s: %v", vector.ErrConnection, d.collection, err)
	}
	if exists {
		return nil
	}

	err = d.client.CreateCollection(ctx, &qc.CreateCollection{
		CollectionName: d.collection,
		VectorsConfig: qc.NewVectorsConfig(&qc.VectorParams{
			Size:     uint64(d.dimensions),
			Distance: qc.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("%w: creating collection %s: %v", vector.ErrConnection, d.collection, err)
	}
	return nil
}

// Add upserts one point per document, keyed by turn id.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	points := make([]*qc.PointStruct, 0, len(docs))
	for _, doc := range docs {
		if uint(len(doc.Embedding)) != d.dimensions {
			return fmt.Errorf("%w: turn %d has %d dimensions, collection expects %d",
				vector.ErrDimensions, doc.TurnID, len(doc.Embedding), d.dimensions)
		}
		if doc.TurnID <= 0 {
			return fmt.Errorf("turn id must be positive, got %d", doc.TurnID)
		}

		points = append(points, &qc.PointStruct{
			Id:      qc.NewIDNum(uint64(doc.TurnID)),
			Vectors: qc.NewVectors(doc.Embedding...),
			Payload: qc.NewValueMap(map[string]any{userIDField: doc.UserID}),
		})
	}

	_, err := d.client.Upsert(ctx, &qc.UpsertPoints{
		CollectionName: d.collection,
		Wait:           qc.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("%w: upserting %d points: %v", vector.ErrConnection, len(points), err)
	}

	d.logger.Debug("indexed turns", "count", len(points))
	return nil
}

// Query returns the nearest points whose payload user_id equals userID.
func (d *Driver) Query(ctx context.Context, userID string, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	if uint(len(embedding)) != d.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection expects %d",
			vector.ErrDimensions, len(embedding), d.dimensions)
	}

	points, err := d.client.Query(ctx, &qc.QueryPoints{
		CollectionName: d.collection,
		Query:          qc.NewQuery(embedding...),
		Filter: &qc.Filter{
			Must: []*qc.Condition{qc.NewMatch(userIDField, userID)},
		},
		Limit:       qc.PtrOf(uint64(topK)),
		WithPayload: qc.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: querying %s: %v", vector.ErrConnection, d.collection, err)
	}

	results := make([]vector.QueryResult, 0, len(points))
	for _, p := range points {
		owner := p.GetPayload()[userIDField].GetStringValue()
		results = append(results, vector.QueryResult{
			Document: vector.Document{
				TurnID: int64(p.GetId().GetNum()),
				UserID: owner,
			},
			Score: p.GetScore(),
		})
	}
	return results, nil
}

// Close closes the gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}

func parseTarget(target string) (string, int, bool, error) {
	if target == "" {
		return "localhost", DefaultPort, false, nil
	}

	tls := false
	if strings.Contains(target, "://") {
		u, err := url.Parse(target)
		if err != nil {
			return "", 0, false, fmt.Errorf("parsing qdrant target %q: %w", target, err)
		}
		tls = u.Scheme == "https"
		target = u.Host
	}

	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		// No port given.
		return target, DefaultPort, tls, nil
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, false, fmt.Errorf("invalid qdrant port %q: %w", portStr, err)
	}
	return host, port, tls, nil
}
