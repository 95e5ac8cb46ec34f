package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/specular/internal/harness"
	"github.com/roach88/specular/internal/state"
	"github.com/roach88/specular/internal/store"
)

// ScenarioResult summarizes one scenario run.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestReport summarizes a whole test run.
type TestReport struct {
	Total     int              `json:"total"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Scenarios []ScenarioResult `json:"scenarios"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run conformance scenarios",
		Long: `Run every YAML scenario in a directory against fresh peers.

Each scenario builds an isolated authority/client pair from its CUE
spec, executes the step list, and reports expectation failures.
Scenarios run in file name order for deterministic output.

With --db, every delta and key signal the authority publishes is
journaled under the scenario's name as the session token; the journal
can then be inspected with trace or re-applied with replay.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, _ := cmd.Flags().GetString("db")
			return runTest(rootOpts, args[0], dbPath, cmd)
		},
	}

	cmd.Flags().String("db", "", "journal published traffic to this sqlite file")

	return cmd
}

// journalRecorder persists harness traffic into a journal store, one
// session per scenario.
type journalRecorder struct {
	ctx     context.Context
	st      *store.Store
	session string
}

func (r *journalRecorder) RecordDelta(d state.Delta) error {
	return r.st.WriteDelta(r.ctx, r.session, d)
}

func (r *journalRecorder) RecordKeySignal(container string, sig state.KeySignal) error {
	return r.st.WriteKeySignal(r.ctx, r.session, container, sig)
}

func runTest(opts *RootOptions, dir, dbPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	paths, err := scenarioFiles(dir)
	if err != nil {
		formatter.Error(ErrCodeScenarioError, err.Error(), nil)
		return WrapExitError(ExitCommandError, "cannot list scenarios", err)
	}
	if len(paths) == 0 {
		formatter.Error(ErrCodeScenarioError, fmt.Sprintf("no scenario files in %s", dir), nil)
		return NewExitError(ExitCommandError, "no scenarios found")
	}

	var st *store.Store
	if dbPath != "" {
		st, err = store.Open(dbPath)
		if err != nil {
			formatter.Error(ErrCodeJournalError, err.Error(), nil)
			return WrapExitError(ExitCommandError, "cannot open journal", err)
		}
		defer st.Close()
	}

	report := TestReport{}
	for _, path := range paths {
		formatter.VerboseLog("running %s", path)

		scenario, err := harness.LoadScenario(path)
		if err != nil {
			report.Total++
			report.Failed++
			report.Scenarios = append(report.Scenarios, ScenarioResult{
				Name:   filepath.Base(path),
				Pass:   false,
				Errors: []string{err.Error()},
			})
			continue
		}

		var rec harness.Recorder
		if st != nil {
			rec = &journalRecorder{ctx: cmd.Context(), st: st, session: scenario.Name}
		}
		result, err := harness.RunRecorded(scenario, rec)
		sr := ScenarioResult{Name: scenario.Name}
		switch {
		case err != nil:
			sr.Errors = []string{err.Error()}
		case !result.Pass:
			sr.Errors = result.Errors
		default:
			sr.Pass = true
		}

		report.Total++
		if sr.Pass {
			report.Passed++
		} else {
			report.Failed++
		}
		report.Scenarios = append(report.Scenarios, sr)
	}

	if opts.Format == "json" {
		if err := formatter.Success(report); err != nil {
			return err
		}
	} else {
		for _, sr := range report.Scenarios {
			status := "PASS"
			if !sr.Pass {
				status = "FAIL"
			}
			fmt.Fprintf(formatter.Writer, "%s  %s\n", status, sr.Name)
			for _, e := range sr.Errors {
				fmt.Fprintf(formatter.Writer, "      %s\n", e)
			}
		}
		fmt.Fprintf(formatter.Writer, "%d scenarios: %d passed, %d failed\n",
			report.Total, report.Passed, report.Failed)
	}

	if report.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", report.Failed))
	}
	return nil
}

// scenarioFiles lists YAML scenarios in a directory, sorted by name.
func scenarioFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenarios dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
