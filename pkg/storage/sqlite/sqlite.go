// Package sqlite provides a single-file turn store on SQLite. Statements go
// through the shared ent-built SQL driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/recall/pkg/storage"
	"github.com/papercomputeco/recall/pkg/storage/sqldriver"
)

// Driver implements storage.Driver using SQLite. Embeddings are stored as
// little-endian float32 blobs and created_at as unix nanoseconds.
type Driver struct {
	*sqldriver.Driver
}

// Option configures a Driver.
type Option = sqldriver.Option

// WithTable overrides the turn table name.
func WithTable(name string) Option { return sqldriver.WithTable(name) }

// WithVariant selects the schema variant.
func WithVariant(v storage.Variant) Option { return sqldriver.WithVariant(v) }

// WithClock replaces time.Now as the source of created_at.
func WithClock(now func() time.Time) Option { return sqldriver.WithClock(now) }

// WithLogger sets the driver's logger.
func WithLogger(l *slog.Logger) Option { return sqldriver.WithLogger(l) }

// NewDriver opens the database at dbPath, which can be a file path or
// ":memory:".
func NewDriver(dbPath string, opts ...Option) (*Driver, error) {
	// Open the database using the github.com/mattn/go-sqlite3 driver (registered as "sqlite3")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", storage.ErrUnavailable, dbPath, err)
	}

	// every :memory: connection is its own database
	if dbPath == ":memory:" || strings.Contains(dbPath, "mode=memory") {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: pinging %s: %v", storage.ErrUnavailable, dbPath, err)
	}

	drv := entsql.OpenDB(dialect.SQLite, db)
	return &Driver{Driver: sqldriver.New(drv, sqliteDialect{}, opts...)}, nil
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string {
	return dialect.SQLite
}

func (sqliteDialect) Columns(v storage.Variant) []*entsql.ColumnBuilder {
	columns := []*entsql.ColumnBuilder{
		entsql.Column("id").Type("integer").Attr("PRIMARY KEY AUTOINCREMENT"),
		entsql.Column("user_id").Type("text").Attr("NOT NULL"),
		entsql.Column("session_id").Type("text").Attr("NOT NULL"),
		entsql.Column("role").Type("text").Attr("NOT NULL"),
		entsql.Column("message").Type("text").Attr("NOT NULL"),
	}
	if v.Embeddings {
		columns = append(columns, entsql.Column("embedding").Type("blob").Attr("NOT NULL"))
	}
	return append(columns, entsql.Column("created_at").Type("integer").Attr("NOT NULL"))
}

func (sqliteDialect) HasEmbeddingColumn(ctx context.Context, drv *entsql.Driver, table string) (bool, error) {
	var rows entsql.Rows
	err := drv.Query(ctx,
		"SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = 'embedding'", []any{table}, &rows)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return false, err
		}
	}
	return n > 0, rows.Err()
}

// IgnoreDDLError is false: SQLite serializes writers, so IF NOT EXISTS
// cannot race.
func (sqliteDialect) IgnoreDDLError(error) bool {
	return false
}

func (sqliteDialect) CreatedAt(now time.Time) (any, bool) {
	return now.UnixNano(), true
}

func (sqliteDialect) ScanCreatedAt(dst *time.Time) sql.Scanner {
	return sqldriver.ScanFunc(func(src any) error {
		nanos, ok := src.(int64)
		if !ok {
			return fmt.Errorf("created_at: unexpected %T", src)
		}
		*dst = time.Unix(0, nanos).UTC()
		return nil
	})
}

func (sqliteDialect) ScanEmbedding(dst *[]float32) sql.Scanner {
	return sqldriver.ScanFunc(func(src any) error {
		blob, ok := src.([]byte)
		if !ok {
			return fmt.Errorf("embedding: unexpected %T", src)
		}
		v, err := decodeEmbedding(blob)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	})
}

func (sqliteDialect) EncodeEmbedding(v []float32) any {
	return encodeEmbedding(v)
}

func encodeEmbedding(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeEmbedding(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, errors.New("embedding blob length is not a multiple of 4")
	}
	out := make([]float32, len(buf)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out, nil
}
