package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Spec is the path to the CUE container declarations, relative to
	// the scenario file location unless absolute.
	Spec string `yaml:"spec"`

	// Steps is the ordered step list driving both peers.
	Steps []Step `yaml:"steps"`
}

// Step is one scenario operation. Which fields are required depends on
// the op; LoadScenario validates the combination.
type Step struct {
	// Op names the operation (see package documentation).
	Op string `yaml:"op"`

	// Container names the target container. Required for everything
	// except sync, approve, reject and caught_up apply per container
	// too, so they carry it as well.
	Container string `yaml:"container,omitempty"`

	// Key is the scenario-local prediction key name.
	Key string `yaml:"key,omitempty"`

	// Payload is the operation payload for add/change ops.
	Payload map[string]any `yaml:"payload,omitempty"`

	// Entry is the semantic key of an entry, for remove/hold/release.
	Entry string `yaml:"entry,omitempty"`

	// View is the expected entry list for expect_view.
	View []map[string]any `yaml:"view,omitempty"`

	// Count is the expected pending key count for expect_pending.
	Count int `yaml:"count,omitempty"`
}

// Step operation constants.
const (
	OpPredictAdd      = "predict_add"
	OpPredictChange   = "predict_change"
	OpPredictRemove   = "predict_remove"
	OpApprove         = "approve"
	OpAuthorityAdd    = "authority_add"
	OpAuthorityChange = "authority_change"
	OpAuthorityRemove = "authority_remove"
	OpReject          = "reject"
	OpCaughtUp        = "caught_up"
	OpSync            = "sync"
	OpHold            = "hold"
	OpRelease         = "release"
	OpSnapshot        = "snapshot"
	OpExpectView      = "expect_view"
	OpExpectPending   = "expect_pending"
)

// LoadScenario reads and parses a scenario YAML file. The spec path is
// resolved relative to the scenario file. Returns an error if the file
// is malformed, contains unknown fields (typos), or fails validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "step:" vs "steps:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Spec != "" && !filepath.IsAbs(scenario.Spec) {
		scenario.Spec = filepath.Join(filepath.Dir(path), scenario.Spec)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Spec == "" {
		return fmt.Errorf("spec is required")
	}
	if _, err := os.Stat(s.Spec); os.IsNotExist(err) {
		return fmt.Errorf("spec file not found: %s", s.Spec)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	return nil
}

// validateStep validates one step against its op's field requirements.
func validateStep(index int, s *Step) error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("steps[%d]: %s", index, fmt.Sprintf(format, args...))
	}

	switch s.Op {
	case OpPredictAdd, OpPredictChange, OpAuthorityAdd, OpAuthorityChange:
		if s.Container == "" {
			return fail("container is required for %s", s.Op)
		}
		if s.Key == "" {
			return fail("key is required for %s", s.Op)
		}
		if s.Payload == nil {
			return fail("payload is required for %s", s.Op)
		}
	case OpPredictRemove, OpAuthorityRemove:
		if s.Container == "" {
			return fail("container is required for %s", s.Op)
		}
		if s.Key == "" {
			return fail("key is required for %s", s.Op)
		}
		if s.Entry == "" {
			return fail("entry is required for %s", s.Op)
		}
	case OpApprove:
		if s.Key == "" {
			return fail("key is required for approve")
		}
	case OpReject, OpCaughtUp:
		if s.Container == "" {
			return fail("container is required for %s", s.Op)
		}
		if s.Key == "" {
			return fail("key is required for %s", s.Op)
		}
	case OpHold, OpRelease:
		if s.Container == "" {
			return fail("container is required for %s", s.Op)
		}
		if s.Entry == "" {
			return fail("entry is required for %s", s.Op)
		}
	case OpSnapshot:
		if s.Container == "" {
			return fail("container is required for snapshot")
		}
	case OpExpectView:
		if s.Container == "" {
			return fail("container is required for expect_view")
		}
		if s.View == nil {
			return fail("view is required for expect_view (use [] for empty)")
		}
	case OpExpectPending:
		if s.Container == "" {
			return fail("container is required for expect_pending")
		}
		if s.Count < 0 {
			return fail("count must be non-negative for expect_pending")
		}
	case OpSync:
		// No required fields.
	case "":
		return fail("op is required")
	default:
		return fail("unknown op %q", s.Op)
	}

	return nil
}
