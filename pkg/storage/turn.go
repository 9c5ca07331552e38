package storage

import (
	"fmt"
	"time"
)

// Role is the semantic speaker of a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAgent
}

// Turn is one recorded utterance.
type Turn struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AppendParams is the caller-supplied part of a new turn.
type AppendParams struct {
	UserID    string
	SessionID string
	Role      Role
	Text      string
	Embedding []float32
}

// Variant describes the schema flavor of a deployment. A store never mixes
// embedded and plain rows.
type Variant struct {
	Embeddings bool
	Dimensions uint
}

func (v Variant) String() string {
	if !v.Embeddings {
		return "plain"
	}
	return fmt.Sprintf("embedding(%d)", v.Dimensions)
}

// Validate checks params against the variant. Errors wrap ErrInvalidTurn.
func (v Variant) Validate(params AppendParams) error {
	switch {
	case params.UserID == "":
		return fmt.Errorf("%w: user id is required", ErrInvalidTurn)
	case params.SessionID == "":
		return fmt.Errorf("%w: session id is required", ErrInvalidTurn)
	case !params.Role.Valid():
		return fmt.Errorf("%w: unknown role %q", ErrInvalidTurn, params.Role)
	}

	if !v.Embeddings {
		if params.Embedding != nil {
			return fmt.Errorf("%w: embedding given for a plain store", ErrInvalidTurn)
		}
		return nil
	}

	if len(params.Embedding) == 0 {
		return fmt.Errorf("%w: embedding is required", ErrInvalidTurn)
	}
	if v.Dimensions != 0 && uint(len(params.Embedding)) != v.Dimensions {
		return fmt.Errorf("%w: embedding has %d dimensions, store expects %d",
			ErrInvalidTurn, len(params.Embedding), v.Dimensions)
	}

	return nil
}
