package vectorutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/recall/pkg/vector"
	"github.com/papercomputeco/recall/pkg/vector/chroma"
	"github.com/papercomputeco/recall/pkg/vector/qdrant"
	"github.com/papercomputeco/recall/pkg/vector/sqlitevec"
)

type NewVectorDriverOpts struct {
	ProviderType string
	TargetURL    string
	Collection   string
	Dimensions   uint
	APIKey       string
	Logger       *slog.Logger
}

// NewVectorDriver builds the configured similarity index. "qdrant" and
// "chroma" target a server; "sqlite" keeps vectors in a local sqlite-vec file
// whose path is TargetURL.
func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case "qdrant":
		return qdrant.NewDriver(ctx, qdrant.Config{
			Target:     o.TargetURL,
			Collection: o.Collection,
			Dimensions: o.Dimensions,
			APIKey:     o.APIKey,
		}, o.Logger)
	case "chroma":
		return chroma.NewDriver(ctx, chroma.Config{
			URL:        o.TargetURL,
			Collection: o.Collection,
			Dimensions: o.Dimensions,
			MaxRetries: 5,
		}, o.Logger)
	case "sqlite", "sqlite-vec":
		return sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{
			DBPath:     o.TargetURL,
			Dimensions: o.Dimensions,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
