// Package episode packages exchanges as session-shaped documents for a
// remote memory service. Episodes are built, serialized and discarded; they
// never touch the turn store.
package episode

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrEmpty is returned when there is nothing to package.
var ErrEmpty = errors.New("episode has no content")

// DefaultAuthor is the event author when Builder.Author is empty.
const DefaultAuthor = "user"

// Episode is a disposable session carrying one event.
type Episode struct {
	ID             string         `json:"id"`
	AppName        string         `json:"app_name"`
	UserID         string         `json:"user_id"`
	State          map[string]any `json:"state"`
	Events         []Event        `json:"events"`
	LastUpdateTime float64        `json:"last_update_time"`
}

// Event is one authored entry in an episode.
type Event struct {
	ID           string  `json:"id"`
	InvocationID string  `json:"invocation_id"`
	Author       string  `json:"author"`
	Timestamp    float64 `json:"timestamp"`
	Content      Content `json:"content"`
}

// Content holds the parts of an event.
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// Part is a single text fragment.
type Part struct {
	Text string `json:"text"`
}

// Builder constructs episodes.
type Builder struct {
	AppName string
	UserID  string
	Author  string

	// Clock and NewID default to time.Now and uuid.NewString.
	Clock func() time.Time
	NewID func() string
}

// Build packages parts, in order, as the single event of a fresh episode.
// Parts are trimmed and blank ones dropped; ErrEmpty is returned when none
// remain.
func (b Builder) Build(parts ...string) (Episode, error) {
	var kept []Part
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, Part{Text: p})
		}
	}
	if len(kept) == 0 {
		return Episode{}, ErrEmpty
	}

	now, newID := b.Clock, b.NewID
	if now == nil {
		now = time.Now
	}
	if newID == nil {
		newID = uuid.NewString
	}

	author := b.Author
	if author == "" {
		author = DefaultAuthor
	}

	ts := unixSeconds(now())
	return Episode{
		ID:      newID(),
		AppName: b.AppName,
		UserID:  b.UserID,
		State:   map[string]any{},
		Events: []Event{{
			ID:           newID(),
			InvocationID: "e-" + newID(),
			Author:       author,
			Timestamp:    ts,
			Content:      Content{Role: author, Parts: kept},
		}},
		LastUpdateTime: ts,
	}, nil
}

// FormatExchange flattens one exchange into a single part.
func FormatExchange(user, agent string) string {
	return "User: " + strings.TrimSpace(user) + "\nAgent: " + strings.TrimSpace(agent)
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
