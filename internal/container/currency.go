package container

import (
	"log/slog"

	"github.com/roach88/specular/internal/engine"
	"github.com/roach88/specular/internal/state"
)

// currencyNamespace anchors the derived identity of every currency
// line. The same code yields the same identity on every peer, so a
// predicted balance and its authoritative echo meet without any
// identity exchange.
var currencyNamespace = state.DeriveIdentity(state.Identity{}, "specular/container/currency")

// CurrencyIdentity derives the stable identity for a currency code.
func CurrencyIdentity(code string) state.Identity {
	return state.DeriveIdentity(currencyNamespace, code)
}

// CurrencyPayload is one requested balance write. Balance is absolute,
// not a delta; the last prediction for a code wins outright.
type CurrencyPayload struct {
	Code    string
	Balance int64
}

// CurrencyEntry is a confirmed ledger line.
type CurrencyEntry struct {
	ID      state.Identity
	Code    string
	Balance int64
	Stamp   state.Stamp
}

// CurrencyView is the read-only projection of one ledger line.
type CurrencyView struct {
	Code    string `json:"code"`
	Balance int64  `json:"balance"`
}

// CurrencyLedger holds per-code balances. Unlike ItemBox its
// identities are never minted; they are derived from the code, so both
// peers agree on them without coordination.
type CurrencyLedger struct {
	authority bool
	eng       *engine.Engine[CurrencyPayload, CurrencyEntry, CurrencyView]
	entries   []*CurrencyEntry
	seq       Sequencer
	outbox    []state.Delta
	announced map[state.Identity]bool
}

// NewAuthorityCurrencyLedger creates the authoritative ledger.
func NewAuthorityCurrencyLedger(seq Sequencer) *CurrencyLedger {
	return &CurrencyLedger{
		authority: true,
		eng:       engine.New[CurrencyPayload, CurrencyEntry, CurrencyView](),
		seq:       seq,
		announced: make(map[state.Identity]bool),
	}
}

// NewClientCurrencyLedger creates a non-authoritative replica.
func NewClientCurrencyLedger() *CurrencyLedger {
	return &CurrencyLedger{
		eng:       engine.New[CurrencyPayload, CurrencyEntry, CurrencyView](),
		announced: make(map[state.Identity]bool),
	}
}

var _ engine.Adapter[CurrencyPayload, CurrencyEntry, CurrencyView] = (*CurrencyLedger)(nil)

func (l *CurrencyLedger) IdentityOfPayload(p CurrencyPayload) state.Identity {
	return CurrencyIdentity(p.Code)
}

func (l *CurrencyLedger) IdentityOfEntry(e *CurrencyEntry) state.Identity { return e.ID }
func (l *CurrencyLedger) IsAuthority() bool                               { return l.authority }

func (l *CurrencyLedger) AuthoritativeEntries() []*CurrencyEntry { return l.entries }

func (l *CurrencyLedger) FindAuthoritative(id state.Identity) *CurrencyEntry {
	for _, e := range l.entries {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func (l *CurrencyLedger) ProjectPayload(p CurrencyPayload, _ state.OpKind) CurrencyView {
	return CurrencyView{Code: p.Code, Balance: p.Balance}
}

func (l *CurrencyLedger) ProjectEntry(e *CurrencyEntry) CurrencyView {
	return CurrencyView{Code: e.Code, Balance: e.Balance}
}

func (l *CurrencyLedger) DirectAdd(p CurrencyPayload) *CurrencyEntry {
	e := &CurrencyEntry{ID: CurrencyIdentity(p.Code), Code: p.Code, Balance: p.Balance}
	l.entries = append(l.entries, e)
	return e
}

func (l *CurrencyLedger) DirectRemove(id state.Identity) bool {
	for i, e := range l.entries {
		if e.ID == id {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			if l.authority {
				l.queueDelta(id, state.Stamp{}, state.DeltaRemoved, nil)
			}
			delete(l.announced, id)
			return true
		}
	}
	return false
}

func (l *CurrencyLedger) DirectChange(id state.Identity, p CurrencyPayload) *CurrencyEntry {
	e := l.FindAuthoritative(id)
	if e == nil {
		return nil
	}
	e.Balance = p.Balance
	return e
}

// TransferPredictedState is a no-op: a balance write carries no
// client-local side data.
func (l *CurrencyLedger) TransferPredictedState(CurrencyPayload, *CurrencyEntry) {}

func (l *CurrencyLedger) StampOf(e *CurrencyEntry) *state.Stamp { return &e.Stamp }

func (l *CurrencyLedger) MarkDirty(e *CurrencyEntry) {
	if !l.authority {
		return
	}
	kind := state.DeltaChanged
	if !l.announced[e.ID] {
		kind = state.DeltaAdded
		l.announced[e.ID] = true
	}
	l.queueDelta(e.ID, e.Stamp, kind, state.Object{
		"code":    state.String(e.Code),
		"balance": state.Int(e.Balance),
	})
}

func (l *CurrencyLedger) queueDelta(id state.Identity, stamp state.Stamp, kind state.DeltaKind, payload state.Object) {
	l.outbox = append(l.outbox, state.Delta{
		Container: "currency",
		Identity:  id,
		Stamp:     stamp,
		Kind:      kind,
		Payload:   payload,
		Seq:       l.seq.Next(),
	})
}

// Credit records a request to set the balance of a code, creating the
// line when it does not exist on the predicting side.
func (l *CurrencyLedger) Credit(p CurrencyPayload, key state.PredictionKey) error {
	if l.FindAuthoritative(CurrencyIdentity(p.Code)) != nil {
		return l.eng.RecordChange(l, CurrencyIdentity(p.Code), p, key)
	}
	return l.eng.RecordAdd(l, p, key)
}

// Remove records a request to drop a ledger line.
func (l *CurrencyLedger) Remove(code string, key state.PredictionKey) error {
	return l.eng.RecordRemove(l, CurrencyIdentity(code), key)
}

// View composes the effective view.
func (l *CurrencyLedger) View() []CurrencyView {
	return l.eng.EffectiveView(l)
}

// SetViewDirtied forwards the recomposition notification.
func (l *CurrencyLedger) SetViewDirtied(fn func()) {
	l.eng.SetViewDirtied(fn)
}

// Engine exposes the underlying engine.
func (l *CurrencyLedger) Engine() *engine.Engine[CurrencyPayload, CurrencyEntry, CurrencyView] {
	return l.eng
}

// Deltas drains the queued outgoing deltas.
func (l *CurrencyLedger) Deltas() []state.Delta {
	out := l.outbox
	l.outbox = nil
	return out
}

// ApplyDelta applies a replicated delta to the authoritative mirror,
// then notifies the engine.
func (l *CurrencyLedger) ApplyDelta(d state.Delta) {
	switch d.Kind {
	case state.DeltaAdded, state.DeltaChanged:
		p, err := currencyPayloadFromObject(d.Payload)
		if err != nil {
			slog.Error("currency delta payload rejected", "identity", d.Identity, "error", err)
			return
		}
		e := l.FindAuthoritative(d.Identity)
		if e == nil {
			e = l.DirectAdd(p)
		} else {
			l.DirectChange(d.Identity, p)
		}
		e.Stamp = d.Stamp
	case state.DeltaRemoved:
		l.DirectRemove(d.Identity)
	}
	l.eng.OnReplicatedDelta(l, d.Identity, d.Stamp, d.Kind)
}

// ApplySignal applies a key lifecycle signal.
func (l *CurrencyLedger) ApplySignal(s state.KeySignal) {
	switch s.Outcome {
	case state.OutcomeRejected:
		l.eng.OnPredictionKeyRejected(l, s.Key)
	case state.OutcomeCaughtUp:
		l.eng.OnPredictionKeyCaughtUp(l, s.Key)
	}
}

func currencyPayloadFromObject(obj state.Object) (CurrencyPayload, error) {
	code, ok := obj["code"].(state.String)
	if !ok {
		return CurrencyPayload{}, errMissingIdentityField
	}
	p := CurrencyPayload{Code: string(code)}
	if v, ok := obj["balance"].(state.Int); ok {
		p.Balance = int64(v)
	}
	return p, nil
}
