// Package sqldriver implements storage.Driver once for every SQL backend,
// building statements with ent's dialect-aware SQL builders.
package sqldriver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/storage"
)

// DefaultTable is the turn table used when no name is configured.
const DefaultTable = "chat_history"

// Driver implements storage.Driver on an ent SQL driver.
type Driver struct {
	drv     *entsql.Driver
	dialect Dialect
	table   string
	variant storage.Variant
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Driver.
type Option func(*Driver)

// WithTable overrides the turn table name.
func WithTable(name string) Option {
	return func(d *Driver) {
		if name != "" {
			d.table = name
		}
	}
}

// WithVariant selects the schema variant.
func WithVariant(v storage.Variant) Option {
	return func(d *Driver) {
		d.variant = v
	}
}

// WithClock replaces time.Now as the source of created_at for dialects that
// stamp it on insert.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) {
		d.now = now
	}
}

// WithLogger sets the driver's logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) {
		d.logger = logger.OrNop(l)
	}
}

// New wraps an open ent SQL driver. The driver is owned by the returned
// Driver and closed with it.
func New(drv *entsql.Driver, dialect Dialect, opts ...Option) *Driver {
	d := &Driver{
		drv:     drv,
		dialect: dialect,
		table:   DefaultTable,
		now:     time.Now,
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Table returns the turn table name.
func (d *Driver) Table() string {
	return d.table
}

func (d *Driver) builder() *entsql.DialectBuilder {
	return entsql.Dialect(d.dialect.Name())
}

// EnsureSchema creates the turn table and its index when missing, then
// checks that an existing table matches the variant.
func (d *Driver) EnsureSchema(ctx context.Context) error {
	b := d.builder()

	stmts := []entsql.Querier{
		b.CreateTable(d.table).IfNotExists().Columns(d.dialect.Columns(d.variant)...),
		b.CreateIndex(d.table+"_user_created_idx").IfNotExists().Table(d.table).Columns("user_id", "created_at"),
	}

	for _, stmt := range stmts {
		query, args := stmt.Query()
		if err := d.drv.Exec(ctx, query, args, nil); err != nil && !d.dialect.IgnoreDDLError(err) {
			return fmt.Errorf("%w: %s: %v", storage.ErrSchemaInit, d.table, err)
		}
	}

	hasEmbedding, err := d.dialect.HasEmbeddingColumn(ctx, d.drv, d.table)
	if err != nil {
		return fmt.Errorf("%w: inspecting %s: %v", storage.ErrSchemaInit, d.table, err)
	}
	if hasEmbedding != d.variant.Embeddings {
		return fmt.Errorf("%w: table %s exists with embeddings=%t, configured embeddings=%t",
			storage.ErrSchemaInit, d.table, hasEmbedding, d.variant.Embeddings)
	}

	d.logger.Debug("schema ensured", "table", d.table, "dialect", d.dialect.Name(), "variant", d.variant.String())
	return nil
}

// Append inserts one turn and reads back its id and created_at.
func (d *Driver) Append(ctx context.Context, params storage.AppendParams) (*storage.Turn, error) {
	if err := d.variant.Validate(params); err != nil {
		return nil, err
	}

	columns := []string{"user_id", "session_id", "role", "message"}
	values := []any{params.UserID, params.SessionID, string(params.Role), params.Text}
	if d.variant.Embeddings {
		columns = append(columns, "embedding")
		values = append(values, d.dialect.EncodeEmbedding(params.Embedding))
	}
	if v, ok := d.dialect.CreatedAt(d.now().UTC()); ok {
		columns = append(columns, "created_at")
		values = append(values, v)
	}

	query, args := d.builder().Insert(d.table).
		Columns(columns...).
		Values(values...).
		Returning("id", "created_at").
		Query()

	turn := &storage.Turn{
		UserID:    params.UserID,
		SessionID: params.SessionID,
		Role:      params.Role,
		Text:      params.Text,
		Embedding: params.Embedding,
	}

	var rows entsql.Rows
	if err := d.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("%w: inserting turn: %v", storage.ErrUnavailable, err)
	}
	defer rows.Close()

	if !rows.Next() {
		err := rows.Err()
		if err == nil {
			err = fmt.Errorf("insert into %s returned no row", d.table)
		}
		return nil, fmt.Errorf("%w: inserting turn: %v", storage.ErrUnavailable, err)
	}
	if err := rows.Scan(&turn.ID, d.dialect.ScanCreatedAt(&turn.CreatedAt)); err != nil {
		return nil, fmt.Errorf("%w: reading turn id: %v", storage.ErrUnavailable, err)
	}

	return turn, nil
}

// Load returns the user's turns ordered by created_at, then id.
func (d *Driver) Load(ctx context.Context, userID string) ([]storage.Turn, error) {
	b := d.builder()

	columns := []string{"id", "user_id", "session_id", "role", "message", "created_at"}
	if d.variant.Embeddings {
		columns = append(columns, "embedding")
	}

	query, args := b.Select(columns...).
		From(b.Table(d.table)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy("created_at", "id").
		Query()

	var rows entsql.Rows
	if err := d.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("%w: loading turns: %v", storage.ErrUnavailable, err)
	}
	defer rows.Close()

	var turns []storage.Turn
	for rows.Next() {
		var (
			t    storage.Turn
			role string
		)

		dest := []any{&t.ID, &t.UserID, &t.SessionID, &role, &t.Text, d.dialect.ScanCreatedAt(&t.CreatedAt)}
		if d.variant.Embeddings {
			dest = append(dest, d.dialect.ScanEmbedding(&t.Embedding))
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("%w: scanning turn: %v", storage.ErrUnavailable, err)
		}

		t.Role = storage.Role(role)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating turns: %v", storage.ErrUnavailable, err)
	}

	return turns, nil
}

// Variant reports the schema variant.
func (d *Driver) Variant() storage.Variant {
	return d.variant
}

// Close closes the underlying database handle.
func (d *Driver) Close() error {
	return d.drv.Close()
}

var _ storage.Driver = (*Driver)(nil)
