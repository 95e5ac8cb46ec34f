package store

import (
	"context"
	"fmt"

	"github.com/roach88/specular/internal/state"
)

// Sink receives replayed journal records. Satisfied by the containers
// in internal/container.
type Sink interface {
	ApplyDelta(state.Delta)
	ApplySignal(state.KeySignal)
}

// ReplayStats summarizes one replay pass.
type ReplayStats struct {
	DeltasApplied  int
	SignalsApplied int
	Unrouted       int // records whose container had no sink
	LastSeq        int64
}

// ReplaySession re-delivers a journal session in order. Records are
// merged across the two tables by seq; a delta and a signal sharing a
// seq deliver delta first, matching the live channel.
//
// route maps a container name to its receiving sink; returning nil
// skips the record and counts it as unrouted. Because delivery is
// idempotent downstream, replaying over a partially caught-up peer is
// safe.
func (s *Store) ReplaySession(ctx context.Context, session string, route func(container string) Sink) (ReplayStats, error) {
	var stats ReplayStats

	deltas, signals, err := s.ReadSession(ctx, session)
	if err != nil {
		return stats, fmt.Errorf("replay session: %w", err)
	}

	di, si := 0, 0
	for di < len(deltas) || si < len(signals) {
		deltaNext := di < len(deltas) &&
			(si >= len(signals) || deltas[di].Seq <= signals[si].Signal.Seq)

		if deltaNext {
			d := deltas[di]
			di++
			if d.Seq > stats.LastSeq {
				stats.LastSeq = d.Seq
			}
			sink := route(d.Container)
			if sink == nil {
				stats.Unrouted++
				continue
			}
			sink.ApplyDelta(d)
			stats.DeltasApplied++
			continue
		}

		js := signals[si]
		si++
		if js.Signal.Seq > stats.LastSeq {
			stats.LastSeq = js.Signal.Seq
		}
		sink := route(js.Container)
		if sink == nil {
			stats.Unrouted++
			continue
		}
		sink.ApplySignal(js.Signal)
		stats.SignalsApplied++
	}

	return stats, nil
}
