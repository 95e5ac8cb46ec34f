package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/specular/internal/state"
)

// traceObject converts a scenario trace into the value model so it can
// be serialized with canonical JSON for byte-stable golden comparison.
func traceObject(scenarioName string, trace []TraceEvent) state.Object {
	events := make(state.Array, len(trace))
	for i, ev := range trace {
		view := make(state.Array, len(ev.View))
		for j, obj := range ev.View {
			view[j] = obj
		}
		events[i] = state.Object{
			"step":      state.Int(int64(ev.Step)),
			"op":        state.String(ev.Op),
			"container": state.String(ev.Container),
			"view":      view,
		}
	}
	return state.Object{
		"scenario": state.String(scenarioName),
		"trace":    events,
	}
}

// RunWithGolden executes a scenario and compares its view trace against
// a golden file in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// The test fails if the scenario itself fails (an expect step
// mismatched) or if the trace differs from the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) *Result {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		t.Fatalf("scenario %s failed to run: %v", scenario.Name, err)
	}
	if !result.Pass {
		for _, e := range result.Errors {
			t.Error(e)
		}
	}

	traceJSON, err := state.MarshalCanonical(traceObject(scenario.Name, result.Trace))
	if err != nil {
		t.Fatalf("scenario %s trace failed to marshal: %v", scenario.Name, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, traceJSON)

	return result
}
