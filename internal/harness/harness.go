package harness

import (
	"fmt"
	"os"

	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/specular/internal/compiler"
	"github.com/roach88/specular/internal/container"
	"github.com/roach88/specular/internal/replic"
	"github.com/roach88/specular/internal/state"
	"github.com/roach88/specular/internal/testutil"
)

// Recorder observes the authority's published traffic during a run:
// every replicated delta and every key lifecycle signal, in publish
// order. Implementations persist the stream (the sqlite journal) so
// replay and trace can rebuild the client peer later.
type Recorder interface {
	RecordDelta(d state.Delta) error
	RecordKeySignal(container string, sig state.KeySignal) error
}

// Harness executes one scenario: an authority peer and a client peer,
// each holding the same schema containers, joined by a loopback
// replication channel.
type Harness struct {
	specs    []*state.ContainerSpec
	auth     map[string]*container.SchemaContainer
	client   map[string]*container.SchemaContainer
	channel  *replic.Channel
	clock    *testutil.StepClock
	keys     testutil.NamedKeyGenerator
	recorder Recorder

	// predictions remembers the client's recorded operations per key
	// name, so an approve step can replay them on the authority.
	predictions map[string][]recordedOp
}

type recordedOp struct {
	op        string
	container string
	payload   state.Object
	entry     string
}

// Run executes a scenario and returns the result.
//
// Both peers are built fresh from the scenario's CUE spec, so scenarios
// are fully isolated. Expectation failures accumulate in the result;
// infrastructure failures (bad spec, unknown container, malformed
// payload) abort with an error.
func Run(scenario *Scenario) (*Result, error) {
	return RunRecorded(scenario, nil)
}

// RunRecorded executes a scenario like Run and additionally feeds every
// published delta and key signal to rec. A nil rec records nothing.
func RunRecorded(scenario *Scenario, rec Recorder) (*Result, error) {
	h, err := newHarness(scenario.Spec)
	if err != nil {
		return nil, err
	}
	h.recorder = rec

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(i, &step, result); err != nil {
			return nil, fmt.Errorf("steps[%d] (%s): %w", i, step.Op, err)
		}
	}

	return result, nil
}

func newHarness(specPath string) (*Harness, error) {
	src, err := os.ReadFile(specPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read spec: %w", err)
	}

	v := cuecontext.New().CompileString(string(src))
	specs, err := compiler.CompileContainers(v)
	if err != nil {
		return nil, fmt.Errorf("failed to compile spec: %w", err)
	}

	h := &Harness{
		specs:       specs,
		auth:        make(map[string]*container.SchemaContainer),
		client:      make(map[string]*container.SchemaContainer),
		channel:     replic.NewChannel(),
		clock:       testutil.NewStepClock(),
		predictions: make(map[string][]recordedOp),
	}

	for _, spec := range specs {
		h.auth[spec.Name] = container.NewAuthoritySchemaContainer(*spec, h.clock)
		client := container.NewClientSchemaContainer(*spec)
		h.client[spec.Name] = client
		h.channel.Route(spec.Name, client)
	}

	return h, nil
}

func (h *Harness) executeStep(index int, step *Step, result *Result) error {
	switch step.Op {
	case OpPredictAdd, OpPredictChange:
		client, err := h.clientContainer(step.Container)
		if err != nil {
			return err
		}
		payload, err := state.ToObject(step.Payload)
		if err != nil {
			return fmt.Errorf("bad payload: %w", err)
		}
		key := h.keys.KeyFor(step.Key)
		if step.Op == OpPredictAdd {
			err = client.Add(payload, key)
		} else {
			err = client.Change(payload, key)
		}
		if err != nil {
			result.AddError(fmt.Sprintf("steps[%d] %s: %v", index, step.Op, err))
			return nil
		}
		h.predictions[step.Key] = append(h.predictions[step.Key], recordedOp{
			op:        step.Op,
			container: step.Container,
			payload:   payload,
		})

	case OpPredictRemove:
		client, err := h.clientContainer(step.Container)
		if err != nil {
			return err
		}
		if err := client.Remove(step.Entry, h.keys.KeyFor(step.Key)); err != nil {
			result.AddError(fmt.Sprintf("steps[%d] %s: %v", index, step.Op, err))
			return nil
		}
		h.predictions[step.Key] = append(h.predictions[step.Key], recordedOp{
			op:        step.Op,
			container: step.Container,
			entry:     step.Entry,
		})

	case OpApprove:
		key := h.keys.KeyFor(step.Key)
		for _, rec := range h.predictions[step.Key] {
			auth, err := h.authContainer(rec.container)
			if err != nil {
				return err
			}
			switch rec.op {
			case OpPredictAdd:
				err = auth.Add(rec.payload, key)
			case OpPredictChange:
				err = auth.Change(rec.payload, key)
			case OpPredictRemove:
				err = auth.Remove(rec.entry, key)
			}
			if err != nil {
				return fmt.Errorf("approve replay: %w", err)
			}
		}

	case OpAuthorityAdd, OpAuthorityChange:
		auth, err := h.authContainer(step.Container)
		if err != nil {
			return err
		}
		payload, err := state.ToObject(step.Payload)
		if err != nil {
			return fmt.Errorf("bad payload: %w", err)
		}
		key := h.keys.KeyFor(step.Key)
		if step.Op == OpAuthorityAdd {
			err = auth.Add(payload, key)
		} else {
			err = auth.Change(payload, key)
		}
		if err != nil {
			return err
		}

	case OpAuthorityRemove:
		auth, err := h.authContainer(step.Container)
		if err != nil {
			return err
		}
		if err := auth.Remove(step.Entry, h.keys.KeyFor(step.Key)); err != nil {
			return err
		}

	case OpReject, OpCaughtUp:
		outcome := state.OutcomeRejected
		if step.Op == OpCaughtUp {
			outcome = state.OutcomeCaughtUp
		}
		sig := state.KeySignal{
			Key:     h.keys.KeyFor(step.Key),
			Outcome: outcome,
			Seq:     h.clock.Next(),
		}
		if h.recorder != nil {
			if err := h.recorder.RecordKeySignal(step.Container, sig); err != nil {
				return fmt.Errorf("record signal: %w", err)
			}
		}
		h.channel.QueueSignal(step.Container, sig)

	case OpSync:
		for _, spec := range h.specs {
			deltas := h.auth[spec.Name].Deltas()
			if h.recorder != nil {
				for _, d := range deltas {
					if err := h.recorder.RecordDelta(d); err != nil {
						return fmt.Errorf("record delta: %w", err)
					}
				}
			}
			h.channel.QueueDeltas(deltas...)
		}
		h.channel.Flush()

	case OpHold:
		h.channel.Hold(h.entryIdentity(step.Container, step.Entry))

	case OpRelease:
		h.channel.Release(h.entryIdentity(step.Container, step.Entry))

	case OpSnapshot:
		client, err := h.clientContainer(step.Container)
		if err != nil {
			return err
		}
		result.Trace = append(result.Trace, TraceEvent{
			Step:      index,
			Op:        step.Op,
			Container: step.Container,
			View:      client.View(),
		})

	case OpExpectView:
		client, err := h.clientContainer(step.Container)
		if err != nil {
			return err
		}
		view := client.View()
		result.Trace = append(result.Trace, TraceEvent{
			Step:      index,
			Op:        step.Op,
			Container: step.Container,
			View:      view,
		})
		h.expectView(index, step, view, result)

	case OpExpectPending:
		client, err := h.clientContainer(step.Container)
		if err != nil {
			return err
		}
		pending := len(client.Engine().Registry().Pending())
		if pending != step.Count {
			result.AddError(fmt.Sprintf(
				"steps[%d] expect_pending: container %s has %d pending keys, want %d",
				index, step.Container, pending, step.Count))
		}

	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}

	return nil
}

// expectView compares the client view against the expected entry list,
// exact per entry and in order.
func (h *Harness) expectView(index int, step *Step, view []state.Object, result *Result) {
	if len(view) != len(step.View) {
		result.AddError(fmt.Sprintf(
			"steps[%d] expect_view: container %s has %d entries, want %d",
			index, step.Container, len(view), len(step.View)))
		return
	}
	for i, want := range step.View {
		wantObj, err := state.ToObject(want)
		if err != nil {
			result.AddError(fmt.Sprintf("steps[%d] expect_view[%d]: bad expectation: %v", index, i, err))
			continue
		}
		if !view[i].Equal(wantObj) {
			result.AddError(fmt.Sprintf(
				"steps[%d] expect_view[%d]: got %v, want %v",
				index, i, view[i], wantObj))
		}
	}
}

func (h *Harness) clientContainer(name string) (*container.SchemaContainer, error) {
	c, ok := h.client[name]
	if !ok {
		return nil, fmt.Errorf("unknown container %q", name)
	}
	return c, nil
}

func (h *Harness) authContainer(name string) (*container.SchemaContainer, error) {
	c, ok := h.auth[name]
	if !ok {
		return nil, fmt.Errorf("unknown container %q", name)
	}
	return c, nil
}

func (h *Harness) entryIdentity(containerName, entry string) state.Identity {
	for _, spec := range h.specs {
		if spec.Name == containerName {
			return state.DeriveIdentity(spec.Namespace(), entry)
		}
	}
	return state.Identity{}
}
