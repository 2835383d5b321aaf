package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/accumulog/internal/engine"
)

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LedgerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the call log and verify determinism",
		Long: `Re-execute the call log from empty state and verify that it reproduces
every receipt, every event and the persisted state root.

The log is replayed twice to verify deterministic behavior.

Exit codes:
  0 - Replay reproduced the ledger
  1 - Divergence detected
  2 - Command error (database not found, etc.)

Examples:
  accumulog replay --db ./accumulog.db
  accumulog replay --db ./accumulog.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	opts.addFlags(cmd)
	return cmd
}

func runReplay(opts *LedgerOptions, cmd *cobra.Command) error {
	st, err := opts.openStore(true)
	if err != nil {
		return err
	}
	defer st.Close()

	report, err := engine.Replay(cmd.Context(), st)
	if err != nil {
		return WrapExitError(ExitCommandError, "replay failed", err)
	}

	out := opts.formatter(cmd)
	if !report.OK() {
		if err := out.Error("E_REPLAY_DIVERGED", "replay did not reproduce the ledger", report); err != nil {
			return err
		}
		if opts.Format != "json" {
			writeReplayText(cmd.OutOrStdout(), report)
		}
		return NewExitError(ExitFailure, "replay diverged")
	}

	return out.Success(report, func(w io.Writer) {
		writeReplayText(w, report)
	})
}

func writeReplayText(w io.Writer, report *engine.ReplayReport) {
	if report.Calls == 0 {
		fmt.Fprintln(w, "No calls found.")
	}
	fmt.Fprintf(w, "Calls:     %d\n", report.Calls)
	fmt.Fprintf(w, "Events:    %d\n", report.Events)
	fmt.Fprintf(w, "Root:      %s\n", report.Root)
	fmt.Fprintf(w, "Persisted: %s\n", report.PersistedRoot)
	if report.Deterministic {
		fmt.Fprintln(w, "✓ Deterministic")
	} else {
		fmt.Fprintln(w, "✗ Non-deterministic")
	}
	for _, d := range report.Divergences {
		fmt.Fprintf(w, "  %s\n", d)
	}
}
