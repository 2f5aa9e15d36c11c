package sheets

import (
	"context"

	"fintrack/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerWriter appends one row per transaction to an external ledger.
	LedgerWriter interface {
		AppendTransaction(ctx context.Context, t core.Transaction) (rowRef string, err error)
	}
)

// Row renders t as the ledger columns:
// Date, Type, Category, Description, Amount, Source, Transaction ID.
func Row(t core.Transaction) []any {
	return []any{
		t.Date.UTC().Format("2006-01-02"),
		string(t.Kind),
		t.Category,
		t.Description,
		t.Amount.StringFixed(core.AmountScale),
		string(t.Source),
		t.ID,
	}
}
