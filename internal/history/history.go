// Package history records completed turns per session: which terminal
// the run reached and the state snapshot it left behind. The trail is a
// non-authoritative audit/debugging aid - sessions themselves live only
// in memory, and a failed append never fails a turn.
package history

import (
	"encoding/json"
	"errors"
	"time"
)

// Record is one completed turn.
type Record struct {
	SessionID string          `json:"session_id"`
	RunID     string          `json:"run_id"`
	Sequence  int             `json:"sequence"`
	Terminal  string          `json:"terminal"`
	Timestamp time.Time       `json:"timestamp"`
	State     json.RawMessage `json:"state"`
}

// Store persists turn records.
// Implementations must be safe for concurrent use.
type Store interface {
	// Append stores a turn record. The sequence number is assigned by
	// the store, monotonically per session.
	Append(rec Record) error

	// List returns all records for a session, ordered by sequence.
	// Returns an empty slice (not an error) for unknown sessions.
	List(sessionID string) ([]Record, error)

	// DeleteSession removes all records for a session.
	// Returns nil if the session has no records.
	DeleteSession(sessionID string) error

	// Close releases any resources.
	Close() error
}

// Sentinel errors for history operations.
var (
	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("history store closed")
)
