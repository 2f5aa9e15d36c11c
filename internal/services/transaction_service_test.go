package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/clock"
	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

func newTestTransactionService(store *memStore, pub TransactionPublisher, now time.Time) *TransactionService {
	s := NewTransactionService(store, pub, clock.NewFixed(now))
	s.newID = sequentialIDs("tx")
	return s
}

func TestTransactionService_QuickEntry(t *testing.T) {
	now := time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)
	store := newMemStore()
	pub := &fakePublisher{}
	s := newTestTransactionService(store, pub, now)

	got, err := s.QuickEntry(context.Background(), "u1", QuickEntryInput{
		Amount:   decimal.RequireFromString("12.345"),
		Category: "Coffee",
	})
	if err != nil {
		t.Fatalf("QuickEntry() error = %v", err)
	}
	if got.Kind != core.KindExpense {
		t.Errorf("Kind = %s, want EXPENSE by default", got.Kind)
	}
	if !got.Date.Equal(now) {
		t.Errorf("Date = %s, want %s", got.Date, now)
	}
	if got.Source != core.SourceManual {
		t.Errorf("Source = %s, want MANUAL", got.Source)
	}
	if got.Amount.String() != "12.35" {
		t.Errorf("Amount = %s, want 12.35", got.Amount)
	}
	if pub.count() != 1 {
		t.Errorf("published = %d, want 1", pub.count())
	}
}

func TestTransactionService_CreateValidation(t *testing.T) {
	tests := []struct {
		name  string
		in    CreateTransactionInput
		field string
	}{
		{"zero amount", CreateTransactionInput{Amount: decimal.Zero, Kind: core.KindIncome, Category: "Salary"}, "amount"},
		{"bad kind", CreateTransactionInput{Amount: decimal.NewFromInt(1), Kind: "GIFT", Category: "Salary"}, "type"},
		{"blank category", CreateTransactionInput{Amount: decimal.NewFromInt(1), Kind: core.KindIncome, Category: "  "}, "category"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			s := newTestTransactionService(store, nil, day(2024, 1, 1))

			_, err := s.Create(context.Background(), "u1", tt.in)
			var ve *core.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Create() error = %v, want ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, want %q", ve.Field, tt.field)
			}
			if store.transactionCount() != 0 {
				t.Error("invalid transaction was stored")
			}
		})
	}
}

func TestTransactionService_CreatePublishFailureIsIgnored(t *testing.T) {
	store := newMemStore()
	pub := &fakePublisher{err: errors.New("broker down")}
	s := newTestTransactionService(store, pub, day(2024, 1, 1))

	date := day(2023, 12, 24)
	got, err := s.Create(context.Background(), "u1", CreateTransactionInput{
		Amount: decimal.NewFromInt(200), Kind: core.KindIncome, Category: "Gift", Date: &date,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !got.Date.Equal(date) {
		t.Errorf("Date = %s, want %s", got.Date, date)
	}
	if !store.hasTransaction(got.ID) {
		t.Error("transaction not stored")
	}
}

func TestTransactionService_List(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	s := newTestTransactionService(store, nil, day(2024, 1, 31))
	for i := 1; i <= 5; i++ {
		date := day(2024, 1, i)
		kind := core.KindExpense
		if i%2 == 0 {
			kind = core.KindIncome
		}
		if _, err := s.Create(ctx, "u1", CreateTransactionInput{
			Amount: decimal.NewFromInt(int64(i)), Kind: kind, Category: "C", Date: &date,
		}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	from, to := day(2024, 1, 2), day(2024, 1, 4)
	tests := []struct {
		name string
		f    TransactionFilter
		want int
	}{
		{"all", TransactionFilter{}, 5},
		{"by kind", TransactionFilter{Kind: core.KindIncome}, 2},
		{"window", TransactionFilter{From: &from, To: &to}, 3},
		{"half window is ignored", TransactionFilter{From: &from}, 5},
		{"limit", TransactionFilter{Limit: 2}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.List(ctx, "u1", tt.f)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("List() returned %d, want %d", len(got), tt.want)
			}
		})
	}

	got, _ := s.List(ctx, "u1", TransactionFilter{})
	if !got[0].Date.Equal(day(2024, 1, 5)) {
		t.Errorf("List() first date = %s, want newest first", got[0].Date)
	}

	if _, err := s.List(ctx, "u1", TransactionFilter{Kind: "BOGUS"}); !core.IsValidation(err) {
		t.Errorf("List() with bad kind error = %v, want validation", err)
	}
}

func TestTransactionService_OwnerIsolation(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	s := newTestTransactionService(store, nil, day(2024, 1, 1))

	tx, err := s.Create(ctx, "u1", CreateTransactionInput{Amount: decimal.NewFromInt(5), Kind: core.KindExpense, Category: "Food"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	category := "Other"
	checks := map[string]func() error{
		"get":    func() error { _, err := s.Get(ctx, "u2", tx.ID); return err },
		"update": func() error { _, err := s.Update(ctx, "u2", tx.ID, UpdateTransactionInput{Category: &category}); return err },
		"delete": func() error { return s.Delete(ctx, "u2", tx.ID) },
	}
	for name, call := range checks {
		t.Run(name, func(t *testing.T) {
			err := call()
			if !errors.Is(err, core.ErrNotFound) {
				t.Fatalf("error = %v, want ErrNotFound", err)
			}
			if err.Error() != "Transaction not found" {
				t.Errorf("message = %q, want %q", err.Error(), "Transaction not found")
			}
		})
	}
	if !store.hasTransaction(tx.ID) {
		t.Error("foreign delete removed the transaction")
	}
}

func TestTransactionService_Update(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	s := newTestTransactionService(store, nil, day(2024, 1, 1))

	tx, _ := s.Create(ctx, "u1", CreateTransactionInput{Amount: decimal.NewFromInt(5), Kind: core.KindExpense, Category: "Food"})

	amount := decimal.RequireFromString("7.5")
	desc := "lunch"
	got, err := s.Update(ctx, "u1", tx.ID, UpdateTransactionInput{Amount: &amount, Description: &desc})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.Amount.String() != "7.5" || got.Description != "lunch" || got.Category != "Food" {
		t.Errorf("Update() = %+v", got)
	}

	bad := decimal.NewFromInt(-1)
	if _, err := s.Update(ctx, "u1", tx.ID, UpdateTransactionInput{Amount: &bad}); !core.IsValidation(err) {
		t.Errorf("Update() negative amount error = %v, want validation", err)
	}
}

func TestTransactionService_Suggestions(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	s := newTestTransactionService(store, nil, day(2024, 1, 1))

	cats := []string{"A", "B", "B", "C", "C", "C", "D", "E", "F", "G"}
	for _, c := range cats {
		if _, err := s.QuickEntry(ctx, "u1", QuickEntryInput{Amount: decimal.NewFromInt(1), Category: c}); err != nil {
			t.Fatalf("QuickEntry() error = %v", err)
		}
	}
	if _, err := s.QuickEntry(ctx, "u1", QuickEntryInput{Amount: decimal.NewFromInt(1), Category: "Salary", Kind: core.KindIncome}); err != nil {
		t.Fatalf("QuickEntry() error = %v", err)
	}

	got, err := s.Suggestions(ctx, "u1")
	if err != nil {
		t.Fatalf("Suggestions() error = %v", err)
	}
	if len(got) != 6 {
		t.Fatalf("Suggestions() returned %d, want 6", len(got))
	}
	if got[0].Category != "C" || got[0].Count != 3 {
		t.Errorf("Suggestions()[0] = %+v, want C x3", got[0])
	}
	for _, sg := range got {
		if sg.Category == "Salary" {
			t.Error("income category suggested")
		}
	}
}
