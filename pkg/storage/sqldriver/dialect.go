package sqldriver

import (
	"context"
	"database/sql"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/recall/pkg/storage"
)

// Dialect holds what differs between SQL backends: column types, the
// catalog lookup, and how embeddings and timestamps travel through
// database/sql.
type Dialect interface {
	// Name is the ent dialect name, e.g. dialect.Postgres.
	Name() string

	// Columns returns the turn table definition for the variant.
	Columns(v storage.Variant) []*entsql.ColumnBuilder

	// HasEmbeddingColumn reports whether table already has an embedding
	// column.
	HasEmbeddingColumn(ctx context.Context, drv *entsql.Driver, table string) (bool, error)

	// IgnoreDDLError reports whether a CREATE ... IF NOT EXISTS failure is
	// a lost race against another process and can be ignored.
	IgnoreDDLError(err error) bool

	// CreatedAt returns the value to insert for created_at, or false when
	// the column default assigns it.
	CreatedAt(now time.Time) (any, bool)

	// ScanCreatedAt and ScanEmbedding decode column values into dst.
	ScanCreatedAt(dst *time.Time) sql.Scanner
	ScanEmbedding(dst *[]float32) sql.Scanner

	// EncodeEmbedding converts a vector to a column value.
	EncodeEmbedding(v []float32) any
}

// ScanFunc adapts a function to sql.Scanner.
type ScanFunc func(src any) error

func (f ScanFunc) Scan(src any) error {
	return f(src)
}
