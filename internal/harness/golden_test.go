package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGolden_ConfirmedAdd(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "confirmed_add.yaml"))
	require.NoError(t, err)
	RunWithGolden(t, scenario)
}

func TestGolden_RejectedChange(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "rejected_change.yaml"))
	require.NoError(t, err)
	RunWithGolden(t, scenario)
}

func TestTraceObject_Shape(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "confirmed_add.yaml"))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	obj := traceObject(scenario.Name, result.Trace)
	require.Equal(t, []string{"scenario", "trace"}, obj.SortedKeys())
}
