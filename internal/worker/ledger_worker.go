package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/sheets"
)

// TransactionReader loads the transaction an event refers to.
type TransactionReader interface {
	GetTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error)
}

// LedgerSyncWorker copies newly created transactions to the external ledger.
type LedgerSyncWorker struct {
	transactions TransactionReader
	ledger       sheets.LedgerWriter
}

func NewLedgerSyncWorker(transactions TransactionReader, ledger sheets.LedgerWriter) *LedgerSyncWorker {
	return &LedgerSyncWorker{transactions: transactions, ledger: ledger}
}

// HandleTransactionEvent processes a single event from AMQP. A returned
// error requeues the message.
func (w *LedgerSyncWorker) HandleTransactionEvent(ctx context.Context, msg *amqp.TransactionEvent) error {
	if msg.Type != amqp.EventTransactionCreated {
		slog.WarnContext(ctx, "Ignoring unknown event type",
			"type", msg.Type,
			"transaction_id", msg.TransactionID)
		return nil
	}

	// Reload so the ledger reflects the stored row, not the event payload.
	t, err := w.transactions.GetTransaction(ctx, msg.OwnerID, msg.TransactionID)
	if errors.Is(err, core.ErrNotFound) {
		slog.InfoContext(ctx, "Transaction deleted before sync, skipping",
			"transaction_id", msg.TransactionID,
			"owner_id", msg.OwnerID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	ref, err := w.ledger.AppendTransaction(ctx, t)
	if err != nil {
		return fmt.Errorf("append to ledger: %w", err)
	}

	slog.InfoContext(ctx, "Successfully synced transaction",
		"transaction_id", t.ID,
		"owner_id", t.OwnerID,
		"sheets_ref", ref,
		"amount", t.Amount.StringFixed(core.AmountScale))
	return nil
}
