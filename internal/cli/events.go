package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/accumulog/internal/ir"
	"github.com/roach88/accumulog/internal/store"
)

// EventsOptions holds flags for the events command.
type EventsOptions struct {
	LedgerOptions
	Identity string
	AfterSeq int64
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventsOptions{LedgerOptions: LedgerOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List Updated events from the output log",
		Long: `Print the Updated events emitted by successful appends, in emission order.

Examples:
  accumulog events --db ./accumulog.db
  accumulog events --identity alice --after 10 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(opts, cmd)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().StringVar(&opts.Identity, "identity", "", "only events for this identity")
	cmd.Flags().Int64Var(&opts.AfterSeq, "after", 0, "only events with seq greater than this")

	return cmd
}

func runEvents(opts *EventsOptions, cmd *cobra.Command) error {
	st, err := opts.openStore(true)
	if err != nil {
		return err
	}
	defer st.Close()

	events, err := st.ReadEvents(cmd.Context(), store.EventFilter{
		Identity: ir.Identity(opts.Identity),
		AfterSeq: opts.AfterSeq,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}

	views := make([]EventView, len(events))
	for i, ev := range events {
		views[i] = newEventView(ev)
	}

	return opts.formatter(cmd).Success(views, func(w io.Writer) {
		if len(views) == 0 {
			fmt.Fprintln(w, "No events found.")
			return
		}
		for _, v := range views {
			fmt.Fprintf(w, "seq %d  %s(%s, %d, %s)\n", v.Seq, v.Kind, v.Identity, v.Count, v.Payload)
		}
	})
}
