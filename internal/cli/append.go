package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/accumulog/internal/accumulator"
	"github.com/roach88/accumulog/internal/engine"
	"github.com/roach88/accumulog/internal/ir"
)

// AppendOptions holds flags for the append command.
type AppendOptions struct {
	LedgerOptions
	As   string
	UTF8 bool // payload argument is raw text, not hex
}

// NewAppendCommand creates the append command.
func NewAppendCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AppendOptions{LedgerOptions: LedgerOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "append --as <identity> <payload>",
		Short: "Append an accumulator on behalf of an identity",
		Long: `Dispatch an update_accumulator call signed by --as.

The payload is hex by default ("" is the empty payload); use --utf8 to pass
raw text. On success the payload is stored at the identity's next index and an
Updated event is emitted.

Exit codes:
  0 - Call included and appended
  1 - Call rejected or failed (BAD_ORIGIN, PAYLOAD_TOO_LARGE, CounterOverflow, InconsistentState)
  2 - Command error (bad payload, database error, etc.)

Examples:
  accumulog append --as alice 0a0b0c
  accumulog append --as alice --utf8 "commitment-1"
  accumulog append --as alice "" --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAppend(opts, args[0], cmd)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().StringVar(&opts.As, "as", "", "signing identity (empty is an unsigned origin)")
	cmd.Flags().BoolVar(&opts.UTF8, "utf8", false, "treat payload as UTF-8 text instead of hex")

	return cmd
}

func runAppend(opts *AppendOptions, arg string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	payload := []byte(arg)
	if !opts.UTF8 {
		var err error
		if payload, err = ir.ParseHexPayload(arg); err != nil {
			return WrapExitError(ExitCommandError, "invalid hex payload", err)
		}
	}

	st, err := opts.openStore(false)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	eng, err := engine.Resume(ctx, st, engine.WithMaxPayloadBytes(opts.Config.MaxPayloadBytes))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start engine", err)
	}

	receipt, err := eng.Dispatch(ctx, ir.Origin{Signer: ir.Identity(opts.As)}, payload)
	switch {
	case engine.IsRejection(err):
		code := string(engine.RejectionCode(err))
		if outErr := out.Error(code, err.Error(), nil); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitFailure, "call rejected", err)

	case err != nil && accumulator.CodeOf(err) != "":
		rec, readErr := st.ReadCall(ctx, receipt.CallID)
		if readErr != nil {
			return WrapExitError(ExitCommandError, "failed to read receipt", readErr)
		}
		if outErr := out.Error(receipt.ErrorCode, err.Error(), newReceiptView(receipt, rec.Call.Token)); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitFailure, "append failed", err)

	case err != nil:
		return WrapExitError(ExitCommandError, "append failed", err)
	}

	rec, err := st.ReadCall(ctx, receipt.CallID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read receipt", err)
	}

	view := newReceiptView(receipt, rec.Call.Token)
	return out.Success(view, func(w io.Writer) {
		fmt.Fprintf(w, "✓ %s appended at index %d (seq %d)\n", receipt.Identity, receipt.Index, receipt.Seq)
		fmt.Fprintf(w, "  call %s\n", receipt.CallID)
	})
}
