// Package sqlitevec provides a SQLite-backed vector driver using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/vector"
)

// SQLiteVecDriver implements vector.Driver using SQLite with sqlite-vec.
//
// Embeddings live in a vec0 virtual table whose rowid is the turn id. A
// companion table records the owning user so queries stay per-user.
type SQLiteVecDriver struct {
	db         *sql.DB
	dimensions uint
	logger     *slog.Logger
}

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	Dimensions uint
}

// NewSQLiteVecDriver creates a new SQLite vector driver backed by sqlite-vec.
func NewSQLiteVecDriver(c Config, log *slog.Logger) (*SQLiteVecDriver, error) {
	log = logger.OrNop(log)

	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", vector.ErrConnection, err)
	}
	if c.DBPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS vec_turns (
			turn_id INTEGER PRIMARY KEY,
			user_id TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating turns table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS vec_turns_user_id_idx ON vec_turns(user_id)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating user index: %w", err)
	}

	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(embedding float[%d])`,
		c.Dimensions,
	)
	if _, err := db.Exec(createVec); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vec0 table: %w", err)
	}

	log.Info("sqlite-vec vector driver initialized",
		"db_path", c.DBPath,
		"dimensions", c.Dimensions,
		"vec_version", vecVersion,
	)

	return &SQLiteVecDriver{
		db:         db,
		dimensions: c.Dimensions,
		logger:     log,
	}, nil
}

// serializeFloat32 converts a float32 slice to the little-endian BLOB format
// sqlite-vec expects.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Add stores turn embeddings. Re-adding a turn replaces its embedding.
func (d *SQLiteVecDriver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", vector.ErrConnection, err)
	}
	defer tx.Rollback()

	for _, doc := range docs {
		if uint(len(doc.Embedding)) != d.dimensions {
			return fmt.Errorf("%w: turn %d has %d dimensions, index expects %d",
				vector.ErrDimensions, doc.TurnID, len(doc.Embedding), d.dimensions)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO vec_turns(turn_id, user_id) VALUES (?, ?)`,
			doc.TurnID, doc.UserID,
		); err != nil {
			return fmt.Errorf("inserting turn %d: %w", doc.TurnID, err)
		}

		// vec0 does not support UPDATE
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM vec_embeddings WHERE rowid = ?`, doc.TurnID,
		); err != nil {
			return fmt.Errorf("deleting old embedding for turn %d: %w", doc.TurnID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
			doc.TurnID, serializeFloat32(doc.Embedding),
		); err != nil {
			return fmt.Errorf("inserting embedding for turn %d: %w", doc.TurnID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("added turns to sqlite-vec", "count", len(docs))
	return nil
}

// Query ranks the user's turns by cosine distance to embedding.
func (d *SQLiteVecDriver) Query(ctx context.Context, userID string, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	if uint(len(embedding)) != d.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index expects %d",
			vector.ErrDimensions, len(embedding), d.dimensions)
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT
			t.turn_id,
			t.user_id,
			vec_distance_cosine(ve.embedding, ?) AS distance
		FROM vec_turns t
		INNER JOIN vec_embeddings ve ON ve.rowid = t.turn_id
		WHERE t.user_id = ?
		ORDER BY distance, t.turn_id DESC
		LIMIT ?
	`, serializeFloat32(embedding), userID, topK)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var results []vector.QueryResult
	for rows.Next() {
		var (
			turnID   int64
			owner    string
			distance float64
		)
		if err := rows.Scan(&turnID, &owner, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}

		results = append(results, vector.QueryResult{
			Document: vector.Document{TurnID: turnID, UserID: owner},
			Score:    float32(1 - distance),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	d.logger.Debug("queried sqlite-vec", "results", len(results))
	return results, nil
}

// Close closes the database connection.
func (d *SQLiteVecDriver) Close() error {
	return d.db.Close()
}
