package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTurnPersisted is emitted after an exchange is persisted.
	EventTypeTurnPersisted = "recall.turn.persisted"
)

// TurnPersistedEvent is a transport-neutral event payload for a persisted
// exchange.
type TurnPersistedEvent struct {
	SchemaVersion int             `json:"schema_version"`
	EventType     string          `json:"event_type"`
	EventID       string          `json:"event_id"`
	EmittedAt     time.Time       `json:"emitted_at"`
	Source        EventSource     `json:"source"`
	Session       EventSession    `json:"session"`
	RequestMeta   TurnRequestMeta `json:"request_meta"`
	Turns         []EventTurn     `json:"turns"`
}

// EventSource identifies where the exchange originated.
type EventSource struct {
	App       string `json:"app,omitempty"`
	AgentName string `json:"agent_name,omitempty"`
	Provider  string `json:"provider"`
}

// EventSession identifies the conversation the turns belong to.
type EventSession struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`

	// Mode is the memory mode that stored the turns ("local" or "remote").
	Mode string `json:"mode"`
}

// TurnRequestMeta captures request lifecycle metadata for the event.
type TurnRequestMeta struct {
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
}

// EventTurn is one persisted utterance.
type EventTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// NewTurnPersistedEvent stamps a fresh event id and emission time.
func NewTurnPersistedEvent(source EventSource, session EventSession, meta TurnRequestMeta, turns ...EventTurn) *TurnPersistedEvent {
	return &TurnPersistedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeTurnPersisted,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		Session:       session,
		RequestMeta:   meta,
		Turns:         turns,
	}
}
