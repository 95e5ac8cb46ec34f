package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/specular/internal/state"
)

// ReconcileError represents a local misuse of the engine's recording
// surface.
//
// The engine never propagates errors across the client/authority
// boundary: authority rejection is a Rejected key signal, stale
// identities resolve as silent no-ops, and redundant signals are
// absorbed by idempotence. A ReconcileError therefore always indicates a
// caller bug on this peer, never a remote failure.
type ReconcileError struct {
	// Code identifies the error category.
	Code ReconcileErrorCode

	// Message is a human-readable description.
	Message string

	// Key identifies the prediction key involved, if any.
	Key state.PredictionKey

	// Identity identifies the affected entry, if any.
	Identity state.Identity
}

// ReconcileErrorCode categorizes recording errors.
type ReconcileErrorCode string

const (
	// ErrCodeZeroKey indicates a record call with the zero prediction key.
	ErrCodeZeroKey ReconcileErrorCode = "ZERO_KEY"

	// ErrCodeZeroIdentity indicates a record call with the zero identity.
	ErrCodeZeroIdentity ReconcileErrorCode = "ZERO_IDENTITY"

	// ErrCodeKeyResolved indicates a new prediction recorded under a key
	// that has already received its terminal signal.
	ErrCodeKeyResolved ReconcileErrorCode = "KEY_RESOLVED"
)

// Error implements the error interface.
func (e *ReconcileError) Error() string {
	if !e.Key.IsZero() && !e.Identity.IsZero() {
		return fmt.Sprintf("%s: %s (key=%s, identity=%s)", e.Code, e.Message, e.Key, e.Identity)
	}
	if !e.Key.IsZero() {
		return fmt.Sprintf("%s: %s (key=%s)", e.Code, e.Message, e.Key)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsKeyResolvedError returns true if the error is a resolved-key reuse
// error. Uses errors.As to handle wrapped errors.
func IsKeyResolvedError(err error) bool {
	var re *ReconcileError
	if errors.As(err, &re) {
		return re.Code == ErrCodeKeyResolved
	}
	return false
}

func newZeroKeyError() *ReconcileError {
	return &ReconcileError{
		Code:    ErrCodeZeroKey,
		Message: "prediction key is required",
	}
}

func newZeroIdentityError(key state.PredictionKey) *ReconcileError {
	return &ReconcileError{
		Code:    ErrCodeZeroIdentity,
		Message: "identity is required",
		Key:     key,
	}
}

func newKeyResolvedError(key state.PredictionKey, id state.Identity) *ReconcileError {
	return &ReconcileError{
		Code:     ErrCodeKeyResolved,
		Message:  "prediction key already received its terminal signal",
		Key:      key,
		Identity: id,
	}
}
