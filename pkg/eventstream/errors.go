package eventstream

import "errors"

var (
	// ErrNilTurnEvent indicates a nil turn event payload was provided to a publisher.
	ErrNilTurnEvent = errors.New("nil turn event")

	// ErrPublish wraps broker failures.
	ErrPublish = errors.New("publishing turn event failed")
)
