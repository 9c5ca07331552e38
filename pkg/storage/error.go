package storage

import "errors"

var (
	// ErrSchemaInit is returned when the turn table cannot be created or
	// does not match the configured variant. It is fatal at startup.
	ErrSchemaInit = errors.New("schema initialization failed")

	// ErrUnavailable is returned when the store cannot be reached or a
	// statement fails.
	ErrUnavailable = errors.New("store unavailable")

	// ErrInvalidTurn is returned when a turn is rejected before it reaches
	// the store.
	ErrInvalidTurn = errors.New("invalid turn")
)
