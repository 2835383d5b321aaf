package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/accumulog/internal/config"
	"github.com/roach88/accumulog/internal/ir"
	"github.com/roach88/accumulog/internal/store"
)

// LedgerOptions holds the --db flag shared by every ledger command.
type LedgerOptions struct {
	*RootOptions
	Database string
}

func (o *LedgerOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Database, "db", "", "path to SQLite database (default from config)")
}

// databasePath resolves --db, then the loaded config, then schema defaults.
func (o *LedgerOptions) databasePath() string {
	switch {
	case o.Database != "":
		return o.Database
	case o.Config.DB != "":
		return o.Config.DB
	default:
		return config.Default().DB
	}
}

// openStore opens the ledger. Read-only commands pass mustExist so a typo in
// --db is reported instead of silently creating an empty ledger.
func (o *LedgerOptions) openStore(mustExist bool) (*store.Store, error) {
	path := o.databasePath()
	if mustExist && path != ":memory:" {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
		}
	}

	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// ReceiptView is the JSON form of a receipt.
type ReceiptView struct {
	CallID    string `json:"call_id"`
	Seq       int64  `json:"seq"`
	Identity  string `json:"identity"`
	Outcome   string `json:"outcome"`
	Index     uint64 `json:"index"`
	ErrorCode string `json:"error_code,omitempty"`
	Token     string `json:"token,omitempty"`
}

func newReceiptView(r ir.Receipt, token string) ReceiptView {
	return ReceiptView{
		CallID:    r.CallID,
		Seq:       r.Seq,
		Identity:  string(r.Identity),
		Outcome:   r.Outcome,
		Index:     r.Index,
		ErrorCode: r.ErrorCode,
		Token:     token,
	}
}

// EventView is the JSON form of a stored event. Payloads are hex.
type EventView struct {
	ID       string `json:"id"`
	CallID   string `json:"call_id"`
	Seq      int64  `json:"seq"`
	Kind     string `json:"kind"`
	Identity string `json:"identity"`
	Count    uint64 `json:"count"`
	Payload  string `json:"payload"`
}

func newEventView(ev ir.StoredEvent) EventView {
	return EventView{
		ID:       ev.ID,
		CallID:   ev.CallID,
		Seq:      ev.Seq,
		Kind:     ev.Kind,
		Identity: string(ev.Identity),
		Count:    ev.Count,
		Payload:  ir.HexPayload(ev.Payload),
	}
}
