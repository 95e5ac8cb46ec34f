package state

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// PredictionKey identifies one causal client-initiated operation.
//
// A key may cover several identities: one user gesture (split a stack
// into two slots) records several speculative edits under a single key,
// and the key's terminal signal resolves all of them atomically.
//
// The zero value means "no key" and is never a valid operation key.
// PredictionKey is comparable and safe to use as a map key.
type PredictionKey struct {
	Token      uuid.UUID `json:"token"`
	Generation int64     `json:"generation"`
}

// IsZero reports whether the key is the "no key" zero value.
func (k PredictionKey) IsZero() bool {
	return k == PredictionKey{}
}

// String returns "token/generation" for logging and journal storage.
func (k PredictionKey) String() string {
	return fmt.Sprintf("%s/%d", k.Token, k.Generation)
}

// ParsePredictionKey converts the "token/generation" journal form back
// to a key. The empty string parses to the zero key.
func ParsePredictionKey(s string) (PredictionKey, error) {
	if s == "" {
		return PredictionKey{}, nil
	}
	token, gen, ok := strings.Cut(s, "/")
	if !ok {
		return PredictionKey{}, fmt.Errorf("malformed prediction key %q: missing generation", s)
	}
	u, err := uuid.Parse(token)
	if err != nil {
		return PredictionKey{}, fmt.Errorf("malformed prediction key %q: %w", s, err)
	}
	g, err := strconv.ParseInt(gen, 10, 64)
	if err != nil {
		return PredictionKey{}, fmt.Errorf("malformed prediction key %q: %w", s, err)
	}
	return PredictionKey{Token: u, Generation: g}, nil
}

// KeyOutcome is the terminal resolution of a prediction key.
type KeyOutcome int

const (
	// OutcomeRejected means the authority declined the operation.
	// Every overlay record the key still owns rolls back, atomically.
	OutcomeRejected KeyOutcome = iota + 1

	// OutcomeCaughtUp means the authority has processed the operation and
	// all of its replicated deltas have been delivered. Any overlay
	// record the key still owns is flushed; this is the safety net for
	// predictions whose net effect produced no distinguishable delta.
	OutcomeCaughtUp
)

// String returns the journal form of the outcome.
func (o KeyOutcome) String() string {
	switch o {
	case OutcomeRejected:
		return "rejected"
	case OutcomeCaughtUp:
		return "caught_up"
	default:
		return fmt.Sprintf("KeyOutcome(%d)", int(o))
	}
}

// ParseKeyOutcome converts the journal form back to a KeyOutcome.
func ParseKeyOutcome(s string) (KeyOutcome, error) {
	switch s {
	case "rejected":
		return OutcomeRejected, nil
	case "caught_up":
		return OutcomeCaughtUp, nil
	default:
		return 0, fmt.Errorf("unknown key outcome %q", s)
	}
}

// Stamp records which causal operation last mutated an authoritative
// entry. The zero value means the entry was never touched by a tracked
// prediction (e.g. server-originated mutations).
type Stamp struct {
	Key PredictionKey `json:"key"`
}

// IsZero reports whether the stamp is empty.
func (s Stamp) IsZero() bool {
	return s.Key.IsZero()
}

// KeyGenerator mints prediction keys for new causal operations.
// Implemented by UUIDv7KeyGenerator (production) and the deterministic
// generator in internal/testutil (tests).
type KeyGenerator interface {
	NewKey() PredictionKey
}

// UUIDv7KeyGenerator mints time-sortable UUIDv7 prediction keys.
//
// UUIDv7 embeds a timestamp in the most significant bits, making keys
// sortable by creation time, which is helpful when reading journals.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7KeyGenerator struct{}

// NewKey returns a fresh key at generation 1.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7KeyGenerator) NewKey() PredictionKey {
	return PredictionKey{Token: uuid.Must(uuid.NewV7()), Generation: 1}
}
