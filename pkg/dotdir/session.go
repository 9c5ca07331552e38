package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	sessionFile = "session.json"
)

// SessionState records the most recent chat session so it can be resumed.
type SessionState struct {
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	StartedAt time.Time `json:"started_at"`
}

// LoadSessionState loads .recall/session.json.
// Returns nil, nil if no session has been recorded yet.
func (m *Manager) LoadSessionState(overrideDir string) (*SessionState, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, sessionFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading session state: %w", err)
	}

	state := &SessionState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parsing session state: %w", err)
	}

	return state, nil
}

// SaveSessionState persists state to .recall/session.json.
func (m *Manager) SaveSessionState(state *SessionState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil session state")
	}
	if state.SessionID == "" {
		return errors.New("cannot save session state without a session id")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session state: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, sessionFile), data, 0o600); err != nil {
		return fmt.Errorf("writing session state: %w", err)
	}

	return nil
}

// ClearSessionState removes the session record. A missing file is not an error.
func (m *Manager) ClearSessionState(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(dir, sessionFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing session state: %w", err)
	}

	return nil
}
