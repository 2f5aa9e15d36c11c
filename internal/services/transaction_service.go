package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/clock"
	"fintrack/internal/core"
	applog "fintrack/internal/log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
	suggestionLimit  = 6
)

// QuickEntryInput is the minimal one-tap entry. Kind defaults to EXPENSE.
type QuickEntryInput struct {
	Amount   decimal.Decimal
	Category string
	Kind     core.Kind
}

type CreateTransactionInput struct {
	Amount      decimal.Decimal
	Kind        core.Kind
	Category    string
	Description string
	// Date defaults to now when nil.
	Date *time.Time
}

// UpdateTransactionInput carries only the fields to change.
type UpdateTransactionInput struct {
	Amount      *decimal.Decimal
	Kind        *core.Kind
	Category    *string
	Description *string
	Date        *time.Time
}

// TransactionService orchestrates ledger writes across the store and the
// event publisher.
type TransactionService struct {
	store     TransactionStore
	publisher TransactionPublisher
	clock     clock.Clock
	newID     func() string
}

// NewTransactionService creates a service. publisher may be nil.
func NewTransactionService(store TransactionStore, publisher TransactionPublisher, clk clock.Clock) *TransactionService {
	if clk == nil {
		clk = clock.System{}
	}
	return &TransactionService{
		store:     store,
		publisher: publisher,
		clock:     clk,
		newID:     uuid.NewString,
	}
}

// QuickEntry records a manual transaction dated now.
func (s *TransactionService) QuickEntry(ctx context.Context, ownerID string, in QuickEntryInput) (core.Transaction, error) {
	kind := in.Kind
	if kind == "" {
		kind = core.KindExpense
	}
	now := s.clock.Now()
	return s.create(ctx, ownerID, CreateTransactionInput{
		Amount:   in.Amount,
		Kind:     kind,
		Category: in.Category,
		Date:     &now,
	})
}

// Create records a manual transaction.
func (s *TransactionService) Create(ctx context.Context, ownerID string, in CreateTransactionInput) (core.Transaction, error) {
	return s.create(ctx, ownerID, in)
}

func (s *TransactionService) create(ctx context.Context, ownerID string, in CreateTransactionInput) (core.Transaction, error) {
	now := s.clock.Now()
	date := now
	if in.Date != nil {
		date = in.Date.UTC()
	}

	t := core.Transaction{
		ID:          s.newID(),
		OwnerID:     ownerID,
		Amount:      core.NormalizeAmount(in.Amount),
		Kind:        in.Kind,
		Category:    in.Category,
		Description: in.Description,
		Date:        date,
		Source:      core.SourceManual,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	// Save locally first; the event is best effort.
	if err := s.store.CreateTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	applog.NewStructuredLogger(applog.FromContext(ctx)).LogTransactionCreated(ctx,
		ownerID, t.ID, string(t.Kind), t.Amount.StringFixed(core.AmountScale), t.Category)

	if err := s.publishCreated(ctx, t); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"transaction_id", t.ID, "error", err)
	}

	return t, nil
}

func (s *TransactionService) publishCreated(ctx context.Context, t core.Transaction) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "Publisher not available, skipping transaction event")
		return nil
	}
	return s.publisher.PublishTransactionCreated(ctx, t)
}

// List returns the owner's transactions, newest first. A zero Limit means
// DefaultListLimit; larger values are capped at MaxListLimit.
func (s *TransactionService) List(ctx context.Context, ownerID string, f TransactionFilter) ([]core.Transaction, error) {
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultListLimit
	case f.Limit > MaxListLimit:
		f.Limit = MaxListLimit
	}
	if f.Kind != "" && !f.Kind.Valid() {
		return nil, &core.ValidationError{Field: "type", Err: core.ErrInvalidKind}
	}
	// A date window applies only when both ends are given.
	if f.From == nil || f.To == nil {
		f.From, f.To = nil, nil
	}

	items, err := s.store.ListTransactions(ctx, ownerID, f)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return items, nil
}

// Get returns one of the owner's transactions.
func (s *TransactionService) Get(ctx context.Context, ownerID, id string) (core.Transaction, error) {
	t, err := s.store.GetTransaction(ctx, ownerID, id)
	if err != nil {
		return core.Transaction{}, transactionLookupError(err)
	}
	return t, nil
}

// Update applies a partial change to one of the owner's transactions.
func (s *TransactionService) Update(ctx context.Context, ownerID, id string, in UpdateTransactionInput) (core.Transaction, error) {
	t, err := s.store.GetTransaction(ctx, ownerID, id)
	if err != nil {
		return core.Transaction{}, transactionLookupError(err)
	}

	if in.Amount != nil {
		t.Amount = core.NormalizeAmount(*in.Amount)
	}
	if in.Kind != nil {
		t.Kind = *in.Kind
	}
	if in.Category != nil {
		t.Category = *in.Category
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Date != nil {
		t.Date = in.Date.UTC()
	}
	t.UpdatedAt = s.clock.Now()

	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.store.UpdateTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	return t, nil
}

// Delete removes one of the owner's transactions.
func (s *TransactionService) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.store.DeleteTransaction(ctx, ownerID, id); err != nil {
		return transactionLookupError(err)
	}
	slog.InfoContext(ctx, "Transaction deleted", "transaction_id", id, "owner_id", ownerID)
	return nil
}

// Suggestions returns the owner's most used expense categories.
func (s *TransactionService) Suggestions(ctx context.Context, ownerID string) ([]core.CategorySuggestion, error) {
	out, err := s.store.TopCategories(ctx, ownerID, core.KindExpense, suggestionLimit)
	if err != nil {
		return nil, fmt.Errorf("top categories: %w", err)
	}
	return out, nil
}

func transactionLookupError(err error) error {
	if errors.Is(err, core.ErrNotFound) {
		return core.NewError(core.ErrNotFound, "Transaction not found")
	}
	return err
}
