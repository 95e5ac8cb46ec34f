package harness

import "github.com/roach88/specular/internal/state"

// TraceEvent is one recorded client view snapshot.
type TraceEvent struct {
	// Step is the zero-based index of the step that produced the event.
	Step int `json:"step"`

	// Op is the step operation name.
	Op string `json:"op"`

	// Container names the snapshotted container.
	Container string `json:"container"`

	// View is the client's effective view at that point.
	View []state.Object `json:"view"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect step matched.
	Pass bool `json:"pass"`

	// Trace contains the view snapshots recorded by snapshot and
	// expect_view steps, in step order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds an expectation failure and marks the result failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
