package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// StateRootResult is the output of the state-root command.
type StateRootResult struct {
	Root    string `json:"root"`
	LastSeq int64  `json:"last_seq"`
}

// NewStateRootCommand creates the state-root command.
func NewStateRootCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LedgerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "state-root",
		Short: "Print the ledger state root",
		Long: `Print the hash of all accumulator state in canonical encoding.

Two ledgers hold bit-identical state exactly when their roots are equal.

Examples:
  accumulog state-root --db ./accumulog.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.openStore(true)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			root, err := st.StateRoot(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to compute state root", err)
			}
			lastSeq, err := st.GetLastSeq(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read call log", err)
			}

			return opts.formatter(cmd).Success(StateRootResult{Root: root, LastSeq: lastSeq}, func(w io.Writer) {
				fmt.Fprintln(w, root)
			})
		},
	}

	opts.addFlags(cmd)
	return cmd
}
