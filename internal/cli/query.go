package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/accumulog/internal/accumulator"
	"github.com/roach88/accumulog/internal/ir"
)

// CountResult is the output of the count command.
type CountResult struct {
	Identity string `json:"identity"`
	Count    uint64 `json:"count"`
}

// SlotResult is the output of the get command.
type SlotResult struct {
	Identity string `json:"identity"`
	Index    uint64 `json:"index"`
	Present  bool   `json:"present"`
	Payload  string `json:"payload,omitempty"`
}

// HistoryResult is the output of the history command.
type HistoryResult struct {
	Identity string   `json:"identity"`
	Count    uint64   `json:"count"`
	Payloads []string `json:"payloads"`
}

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LedgerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "count <identity>",
		Short: "Show an identity's accumulator count",
		Long: `Print AccumulatorCount for an identity. An identity that never appended
has count 0.

Examples:
  accumulog count alice --db ./accumulog.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.openStore(true)
			if err != nil {
				return err
			}
			defer st.Close()

			id := ir.Identity(args[0])
			n, err := accumulator.Count(cmd.Context(), st.View(), id)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read count", err)
			}

			return opts.formatter(cmd).Success(CountResult{Identity: args[0], Count: n}, func(w io.Writer) {
				fmt.Fprintln(w, n)
			})
		},
	}

	opts.addFlags(cmd)
	return cmd
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LedgerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "get <identity> <index>",
		Short: "Show one accumulator slot",
		Long: `Print AccumulatorList[(identity, index)] as hex.

Exit codes:
  0 - Slot present
  1 - Slot absent
  2 - Command error

Examples:
  accumulog get alice 0 --db ./accumulog.db`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid index", err)
			}

			st, err := opts.openStore(true)
			if err != nil {
				return err
			}
			defer st.Close()

			payload, ok, err := accumulator.Get(cmd.Context(), st.View(), ir.Identity(args[0]), index)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read slot", err)
			}

			out := opts.formatter(cmd)
			if !ok {
				if err := out.Error("E_ABSENT", fmt.Sprintf("no accumulator at (%s, %d)", args[0], index), nil); err != nil {
					return err
				}
				return NewExitError(ExitFailure, "slot absent")
			}

			result := SlotResult{Identity: args[0], Index: index, Present: true, Payload: ir.HexPayload(payload)}
			return out.Success(result, func(w io.Writer) {
				fmt.Fprintln(w, result.Payload)
			})
		},
	}

	opts.addFlags(cmd)
	return cmd
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LedgerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history <identity>",
		Short: "List all of an identity's accumulators in order",
		Long: `Print every accumulator of an identity, slot 0 first.

A slot missing below the counter is reported as InconsistentState.

Examples:
  accumulog history alice --db ./accumulog.db
  accumulog history alice --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.openStore(true)
			if err != nil {
				return err
			}
			defer st.Close()

			out := opts.formatter(cmd)
			history, err := accumulator.History(cmd.Context(), st.View(), ir.Identity(args[0]))
			if code := accumulator.CodeOf(err); code != "" {
				if outErr := out.Error(string(code), err.Error(), nil); outErr != nil {
					return outErr
				}
				return WrapExitError(ExitFailure, "history incomplete", err)
			}
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read history", err)
			}

			result := HistoryResult{
				Identity: args[0],
				Count:    uint64(len(history)),
				Payloads: make([]string, len(history)),
			}
			for i, p := range history {
				result.Payloads[i] = ir.HexPayload(p)
			}

			return out.Success(result, func(w io.Writer) {
				if len(result.Payloads) == 0 {
					fmt.Fprintf(w, "No accumulators for %s.\n", args[0])
					return
				}
				for i, p := range result.Payloads {
					fmt.Fprintf(w, "%d\t%s\n", i, p)
				}
			})
		},
	}

	opts.addFlags(cmd)
	return cmd
}
