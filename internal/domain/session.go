package domain

import (
	"context"
	"strings"
)

// SessionRecord is the persisted description of one messaging session.
type SessionRecord struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Ready       bool   `json:"ready"`
}

// SessionState is a stage of the client lifecycle state machine.
type SessionState string

const (
	StateInitializing    SessionState = "initializing"
	StateAwaitingPairing SessionState = "awaiting_pairing"
	StateAuthenticated   SessionState = "authenticated"
	StateReady           SessionState = "ready"
	StateFailed          SessionState = "failed"
	StateDisconnected    SessionState = "disconnected"
)

// AllStates lists every lifecycle state, in lifecycle order.
var AllStates = []SessionState{
	StateInitializing,
	StateAwaitingPairing,
	StateAuthenticated,
	StateReady,
	StateFailed,
	StateDisconnected,
}

// ValidateSessionID rejects blank ids. Any other string is a valid id;
// adapters that key storage by id must encode it themselves.
func ValidateSessionID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidSessionID
	}
	return nil
}

// SessionDocument is the durable backing medium for session records.
// Save replaces the whole document.
type SessionDocument interface {
	Load(ctx context.Context) ([]SessionRecord, error)
	Save(ctx context.Context, records []SessionRecord) error
}

// SessionStore serializes read-modify-write access to the session document.
type SessionStore interface {
	List(ctx context.Context) ([]SessionRecord, error)
	Get(ctx context.Context, id string) (SessionRecord, bool, error)
	// AddIfAbsent appends the record unless one with the same id exists.
	AddIfAbsent(ctx context.Context, record SessionRecord) (bool, error)
	// MarkReady sets the ready flag, re-inserting the record if it was removed.
	MarkReady(ctx context.Context, record SessionRecord) error
	Remove(ctx context.Context, id string) (bool, error)
	// ResetReady forces every record's ready flag to false.
	ResetReady(ctx context.Context) error
}

// SessionStatus joins a persisted record with the live lifecycle state.
type SessionStatus struct {
	SessionRecord
	State SessionState `json:"state"`
}
