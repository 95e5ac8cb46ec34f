package cli

import (
	"context"
	"fmt"
	"os"

	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/cobra"

	"github.com/roach88/specular/internal/compiler"
	"github.com/roach88/specular/internal/container"
	"github.com/roach88/specular/internal/state"
	"github.com/roach88/specular/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	Spec    string
	Session string
}

// ReplayReport is the outcome of a journal replay.
type ReplayReport struct {
	Session        string                    `json:"session"`
	DeltasApplied  int                       `json:"deltas_applied"`
	SignalsApplied int                       `json:"signals_applied"`
	Unrouted       int                       `json:"unrouted"`
	LastSeq        int64                     `json:"last_seq"`
	Views          map[string][]state.Object `json:"views"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{}

	cmd := &cobra.Command{
		Use:   "replay <journal.db>",
		Short: "Rebuild client views from a replication journal",
		Long: `Rebuild a cold client from a journal session and print the
resulting effective views.

The journal stores only replicated traffic, so the container schemas
must be supplied with --spec. Delivery is idempotent; replaying a
session any number of times produces the same views.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Spec, "spec", "", "CUE container declarations (required)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "journal session token (required)")
	cmd.MarkFlagRequired("spec")
	cmd.MarkFlagRequired("session")

	return cmd
}

func runReplay(rootOpts *RootOptions, opts *ReplayOptions, dbPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	if _, err := os.Stat(dbPath); err != nil {
		formatter.Error(ErrCodeJournalError, fmt.Sprintf("cannot open journal: %v", err), nil)
		return NewExitError(ExitCommandError, "journal not found")
	}

	src, err := os.ReadFile(opts.Spec)
	if err != nil {
		formatter.Error(ErrCodeSpecNotFound, fmt.Sprintf("cannot read spec: %v", err), nil)
		return NewExitError(ExitCommandError, "spec not readable")
	}
	specs, err := compiler.CompileContainers(cuecontext.New().CompileString(string(src)))
	if err != nil {
		formatter.Error(ErrCodeSpecInvalid, err.Error(), nil)
		return WrapExitError(ExitFailure, "spec invalid", err)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		formatter.Error(ErrCodeJournalError, err.Error(), nil)
		return WrapExitError(ExitCommandError, "cannot open journal", err)
	}
	defer st.Close()

	clients := make(map[string]*container.SchemaContainer, len(specs))
	for _, spec := range specs {
		clients[spec.Name] = container.NewClientSchemaContainer(*spec)
	}

	stats, err := st.ReplaySession(context.Background(), opts.Session, func(name string) store.Sink {
		if c, ok := clients[name]; ok {
			return c
		}
		return nil
	})
	if err != nil {
		formatter.Error(ErrCodeJournalError, err.Error(), nil)
		return WrapExitError(ExitFailure, "replay failed", err)
	}

	report := ReplayReport{
		Session:        opts.Session,
		DeltasApplied:  stats.DeltasApplied,
		SignalsApplied: stats.SignalsApplied,
		Unrouted:       stats.Unrouted,
		LastSeq:        stats.LastSeq,
		Views:          make(map[string][]state.Object, len(specs)),
	}
	for _, spec := range specs {
		report.Views[spec.Name] = clients[spec.Name].View()
	}

	if rootOpts.Format == "json" {
		return formatter.Success(report)
	}

	fmt.Fprintf(formatter.Writer, "session %s: %d deltas, %d signals (last seq %d, %d unrouted)\n",
		report.Session, report.DeltasApplied, report.SignalsApplied, report.LastSeq, report.Unrouted)
	for _, spec := range specs {
		fmt.Fprintf(formatter.Writer, "%s:\n", spec.Name)
		for _, obj := range report.Views[spec.Name] {
			canonical, err := state.MarshalCanonical(obj)
			if err != nil {
				return WrapExitError(ExitFailure, "view not serializable", err)
			}
			fmt.Fprintf(formatter.Writer, "  %s\n", canonical)
		}
	}
	return nil
}
