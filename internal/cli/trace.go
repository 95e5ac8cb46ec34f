package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/specular/internal/state"
	"github.com/roach88/specular/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	Session string
}

// TraceRecord is one journal record in the trace listing.
type TraceRecord struct {
	Type      string `json:"type"` // "delta" or "signal"
	Container string `json:"container"`
	Seq       int64  `json:"seq"`
	Identity  string `json:"identity,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Key       string `json:"key,omitempty"`
	Outcome   string `json:"outcome,omitempty"`
	Payload   string `json:"payload,omitempty"` // canonical JSON
}

// TraceReport lists a session's journal records in delivery order.
type TraceReport struct {
	Session  string        `json:"session"`
	Sessions []string      `json:"sessions,omitempty"`
	Records  []TraceRecord `json:"records"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{}

	cmd := &cobra.Command{
		Use:   "trace <journal.db>",
		Short: "List a journal session's records in delivery order",
		Long: `List every replicated delta and key signal of a journal session,
in the deterministic order a replay would deliver them.

Without --session, lists the sessions present in the journal.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Session, "session", "", "journal session token")

	return cmd
}

func runTrace(rootOpts *RootOptions, opts *TraceOptions, dbPath string, cmd *cobra.Command) error {
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

	st, err := store.Open(dbPath)
	if err != nil {
		formatter.Error(ErrCodeJournalError, err.Error(), nil)
		return WrapExitError(ExitCommandError, "cannot open journal", err)
	}
	defer st.Close()

	ctx := context.Background()

	if opts.Session == "" {
		sessions, err := st.Sessions(ctx)
		if err != nil {
			formatter.Error(ErrCodeJournalError, err.Error(), nil)
			return WrapExitError(ExitFailure, "cannot list sessions", err)
		}
		if rootOpts.Format == "json" {
			return formatter.Success(TraceReport{Sessions: sessions, Records: []TraceRecord{}})
		}
		for _, s := range sessions {
			fmt.Fprintln(formatter.Writer, s)
		}
		return nil
	}

	deltas, signals, err := st.ReadSession(ctx, opts.Session)
	if err != nil {
		formatter.Error(ErrCodeJournalError, err.Error(), nil)
		return WrapExitError(ExitFailure, "cannot read session", err)
	}

	records, err := mergeTraceRecords(deltas, signals)
	if err != nil {
		return WrapExitError(ExitFailure, "cannot render records", err)
	}

	report := TraceReport{Session: opts.Session, Records: records}
	if rootOpts.Format == "json" {
		return formatter.Success(report)
	}

	for _, r := range report.Records {
		switch r.Type {
		case "delta":
			fmt.Fprintf(formatter.Writer, "%6d  delta   %s %s %s key=%s %s\n",
				r.Seq, r.Container, r.Kind, r.Identity, orDash(r.Key), r.Payload)
		case "signal":
			fmt.Fprintf(formatter.Writer, "%6d  signal  %s %s key=%s\n",
				r.Seq, r.Container, r.Outcome, r.Key)
		}
	}
	fmt.Fprintf(formatter.Writer, "%d records\n", len(report.Records))
	return nil
}

// mergeTraceRecords interleaves deltas and signals by seq, deltas
// first on ties, matching replay delivery order.
func mergeTraceRecords(deltas []state.Delta, signals []store.JournaledSignal) ([]TraceRecord, error) {
	records := make([]TraceRecord, 0, len(deltas)+len(signals))

	di, si := 0, 0
	for di < len(deltas) || si < len(signals) {
		if di < len(deltas) && (si >= len(signals) || deltas[di].Seq <= signals[si].Signal.Seq) {
			d := deltas[di]
			di++
			rec := TraceRecord{
				Type:      "delta",
				Container: d.Container,
				Seq:       d.Seq,
				Identity:  d.Identity.String(),
				Kind:      d.Kind.String(),
			}
			if !d.Stamp.IsZero() {
				rec.Key = d.Stamp.Key.String()
			}
			if d.Payload != nil {
				canonical, err := state.MarshalCanonical(d.Payload)
				if err != nil {
					return nil, err
				}
				rec.Payload = string(canonical)
			}
			records = append(records, rec)
			continue
		}

		js := signals[si]
		si++
		records = append(records, TraceRecord{
			Type:      "signal",
			Container: js.Container,
			Seq:       js.Signal.Seq,
			Key:       js.Signal.Key.String(),
			Outcome:   js.Signal.Outcome.String(),
		})
	}

	return records, nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
