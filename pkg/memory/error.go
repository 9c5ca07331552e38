package memory

import "errors"

// ErrNotConfigured is returned when an operation needs a component, such as
// an embedder for similarity search, that was not configured.
var ErrNotConfigured = errors.New("memory not configured")
