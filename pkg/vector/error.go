package vector

import "errors"

var (
	// ErrDimensions is returned when an embedding does not match the index.
	ErrDimensions = errors.New("embedding dimensions mismatch")

	// ErrConnection is returned when the vector store connection fails.
	ErrConnection = errors.New("vector store connection failed")
)
