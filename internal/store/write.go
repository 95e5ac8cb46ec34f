package store

import (
	"context"
	"fmt"

	"github.com/roach88/specular/internal/state"
)

// WriteDelta appends a replicated delta to the journal under a session
// token. Uses ON CONFLICT(id) DO NOTHING for idempotency - the id is a
// content hash, so rewriting the same delta is silently ignored.
//
// The payload is serialized to canonical JSON per RFC 8785 so that a
// journal written on one peer byte-matches the same journal written on
// another.
func (s *Store) WriteDelta(ctx context.Context, session string, d state.Delta) error {
	id, err := d.DeltaID()
	if err != nil {
		return fmt.Errorf("write delta: %w", err)
	}

	payloadJSON, err := marshalPayload(d.Payload)
	if err != nil {
		return fmt.Errorf("write delta: %w", err)
	}

	stampKey := ""
	if !d.Stamp.IsZero() {
		stampKey = d.Stamp.Key.String()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO deltas
		(id, session, container, identity, stamp_key, kind, payload, seq, engine_version, journal_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		id,
		session,
		d.Container,
		d.Identity.String(),
		stampKey,
		d.Kind.String(),
		payloadJSON,
		d.Seq,
		state.EngineVersion,
		state.JournalVersion,
	)
	if err != nil {
		return fmt.Errorf("write delta: %w", err)
	}

	return nil
}

// WriteKeySignal appends a key lifecycle signal to the journal.
// Idempotent like WriteDelta.
func (s *Store) WriteKeySignal(ctx context.Context, session, container string, sig state.KeySignal) error {
	id, err := sig.SignalID()
	if err != nil {
		return fmt.Errorf("write key signal: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO key_signals
		(id, session, container, key, outcome, seq, engine_version, journal_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		id,
		session,
		container,
		sig.Key.String(),
		sig.Outcome.String(),
		sig.Seq,
		state.EngineVersion,
		state.JournalVersion,
	)
	if err != nil {
		return fmt.Errorf("write key signal: %w", err)
	}

	return nil
}
