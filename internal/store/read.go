package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/specular/internal/state"
)

// JournaledSignal is a key signal with its container routing, as read
// back from the journal.
type JournaledSignal struct {
	Container string
	Signal    state.KeySignal
}

// ReadSession returns all deltas and key signals for a session token.
// Results are ordered deterministically: ORDER BY seq ASC, id COLLATE
// BINARY ASC, so two reads of the same journal always agree.
//
// Returns empty slices (not nil) if no records exist for the session.
func (s *Store) ReadSession(ctx context.Context, session string) ([]state.Delta, []JournaledSignal, error) {
	deltas, err := s.readSessionDeltas(ctx, session)
	if err != nil {
		return nil, nil, err
	}

	signals, err := s.readSessionSignals(ctx, session)
	if err != nil {
		return nil, nil, err
	}

	return deltas, signals, nil
}

func (s *Store) readSessionDeltas(ctx context.Context, session string) ([]state.Delta, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT container, identity, stamp_key, kind, payload, seq
		FROM deltas
		WHERE session = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, session)
	if err != nil {
		return nil, fmt.Errorf("query deltas: %w", err)
	}
	defer rows.Close()

	var deltas []state.Delta
	for rows.Next() {
		d, err := scanDelta(rows)
		if err != nil {
			return nil, err
		}
		deltas = append(deltas, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deltas: %w", err)
	}

	if deltas == nil {
		deltas = []state.Delta{}
	}

	return deltas, nil
}

func (s *Store) readSessionSignals(ctx context.Context, session string) ([]JournaledSignal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT container, key, outcome, seq
		FROM key_signals
		WHERE session = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, session)
	if err != nil {
		return nil, fmt.Errorf("query key signals: %w", err)
	}
	defer rows.Close()

	var signals []JournaledSignal
	for rows.Next() {
		js, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		signals = append(signals, js)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate key signals: %w", err)
	}

	if signals == nil {
		signals = []JournaledSignal{}
	}

	return signals, nil
}

func scanDelta(rows *sql.Rows) (state.Delta, error) {
	var (
		container, identity, stampKey, kind, payload string
		seq                                          int64
	)
	if err := rows.Scan(&container, &identity, &stampKey, &kind, &payload, &seq); err != nil {
		return state.Delta{}, fmt.Errorf("scan delta: %w", err)
	}

	id, err := state.ParseIdentity(identity)
	if err != nil {
		return state.Delta{}, fmt.Errorf("scan delta: %w", err)
	}
	key, err := state.ParsePredictionKey(stampKey)
	if err != nil {
		return state.Delta{}, fmt.Errorf("scan delta: %w", err)
	}
	k, err := state.ParseDeltaKind(kind)
	if err != nil {
		return state.Delta{}, fmt.Errorf("scan delta: %w", err)
	}
	obj, err := unmarshalPayload(payload)
	if err != nil {
		return state.Delta{}, fmt.Errorf("scan delta: %w", err)
	}

	return state.Delta{
		Container: container,
		Identity:  id,
		Stamp:     state.Stamp{Key: key},
		Kind:      k,
		Payload:   obj,
		Seq:       seq,
	}, nil
}

func scanSignal(rows *sql.Rows) (JournaledSignal, error) {
	var (
		container, key, outcome string
		seq                     int64
	)
	if err := rows.Scan(&container, &key, &outcome, &seq); err != nil {
		return JournaledSignal{}, fmt.Errorf("scan key signal: %w", err)
	}

	k, err := state.ParsePredictionKey(key)
	if err != nil {
		return JournaledSignal{}, fmt.Errorf("scan key signal: %w", err)
	}
	o, err := state.ParseKeyOutcome(outcome)
	if err != nil {
		return JournaledSignal{}, fmt.Errorf("scan key signal: %w", err)
	}

	return JournaledSignal{
		Container: container,
		Signal:    state.KeySignal{Key: k, Outcome: o, Seq: seq},
	}, nil
}

// Sessions returns the distinct session tokens present in the journal,
// sorted for deterministic listing.
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT session FROM deltas
		UNION
		SELECT DISTINCT session FROM key_signals
		ORDER BY session
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	if sessions == nil {
		sessions = []string{}
	}

	return sessions, nil
}
