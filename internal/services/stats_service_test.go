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

func seedTx(store *memStore, id, owner string, kind core.Kind, category, amount string, date time.Time) {
	store.txs[id] = core.Transaction{
		ID: id, OwnerID: owner, Kind: kind, Category: category,
		Amount: decimal.RequireFromString(amount), Date: date, Source: core.SourceManual,
	}
}

func TestStatsService_Overview(t *testing.T) {
	store := newMemStore()
	// Wednesday 2024-05-15; the week starts Sunday 2024-05-12.
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	seedTx(store, "1", "u1", core.KindIncome, "Salary", "2000", day(2024, 5, 1))
	seedTx(store, "2", "u1", core.KindExpense, "Rent", "800", day(2024, 5, 2))
	seedTx(store, "3", "u1", core.KindExpense, "Food", "100.50", day(2024, 5, 13))
	seedTx(store, "4", "u1", core.KindExpense, "Food", "49.50", day(2024, 5, 12))
	seedTx(store, "5", "u1", core.KindExpense, "Food", "999", day(2024, 4, 30))
	seedTx(store, "6", "u2", core.KindExpense, "Food", "5", day(2024, 5, 13))

	s := NewStatsService(store, clock.NewFixed(now), time.UTC)
	got, err := s.Overview(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}

	m := got.Monthly
	if !m.Income.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("Income = %s, want 2000", m.Income)
	}
	if !m.Expenses.Equal(decimal.NewFromInt(950)) {
		t.Errorf("Expenses = %s, want 950", m.Expenses)
	}
	if !m.Available.Equal(decimal.NewFromInt(1050)) {
		t.Errorf("Available = %s, want 1050", m.Available)
	}
	if m.SpentPercentage != 48 {
		t.Errorf("SpentPercentage = %d, want 48", m.SpentPercentage)
	}
	if m.TransactionCount.Income != 1 || m.TransactionCount.Expenses != 3 {
		t.Errorf("TransactionCount = %+v, want {1 3}", m.TransactionCount)
	}
	if !got.Weekly.Expenses.Equal(decimal.NewFromInt(150)) {
		t.Errorf("Weekly.Expenses = %s, want 150", got.Weekly.Expenses)
	}

	if len(got.Categories) != 2 {
		t.Fatalf("Categories = %+v, want 2 entries", got.Categories)
	}
	if got.Categories[0].Category != "Rent" || got.Categories[0].Percentage != 84 {
		t.Errorf("Categories[0] = %+v, want Rent 84%%", got.Categories[0])
	}
	if got.Categories[1].Category != "Food" || got.Categories[1].Count != 2 || got.Categories[1].Percentage != 16 {
		t.Errorf("Categories[1] = %+v, want Food x2 16%%", got.Categories[1])
	}
}

func TestStatsService_OverviewEmpty(t *testing.T) {
	s := NewStatsService(newMemStore(), clock.NewFixed(day(2024, 5, 15)), nil)
	got, err := s.Overview(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}
	if got.Monthly.SpentPercentage != 0 {
		t.Errorf("SpentPercentage = %d, want 0 without income", got.Monthly.SpentPercentage)
	}
	if got.Categories == nil {
		t.Error("Categories should be an empty slice, not nil")
	}
}

type failingStats struct {
	*memStore
	err error
}

func (f failingStats) SumByCategory(context.Context, string, core.Kind, time.Time) ([]core.CategoryAmount, error) {
	return nil, f.err
}

func TestStatsService_OverviewError(t *testing.T) {
	boom := errors.New("query failed")
	s := NewStatsService(failingStats{newMemStore(), boom}, clock.NewFixed(day(2024, 5, 15)), nil)
	if _, err := s.Overview(context.Background(), "u1"); !errors.Is(err, boom) {
		t.Errorf("Overview() error = %v, want %v", err, boom)
	}
}

func TestStatsService_Trend(t *testing.T) {
	store := newMemStore()
	now := time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC)
	seedTx(store, "old", "u1", core.KindExpense, "X", "1", day(2023, 12, 31))
	seedTx(store, "a", "u1", core.KindIncome, "Salary", "1000", day(2024, 1, 1))
	seedTx(store, "b", "u1", core.KindExpense, "Rent", "600", day(2024, 1, 3))
	seedTx(store, "c", "u1", core.KindExpense, "Food", "50", day(2024, 3, 8))
	seedTx(store, "d", "u1", core.KindIncome, "Salary", "1000", day(2024, 7, 1))

	s := NewStatsService(store, clock.NewFixed(now), time.UTC)
	got, err := s.Trend(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Trend() error = %v", err)
	}

	want := []struct {
		month    string
		income   string
		expenses string
		savings  string
	}{
		{"2024-01", "1000", "600", "400"},
		{"2024-03", "0", "50", "-50"},
		{"2024-07", "1000", "0", "1000"},
	}
	if len(got) != len(want) {
		t.Fatalf("Trend() = %+v, want %d months", got, len(want))
	}
	for i, w := range want {
		p := got[i]
		if p.Month != w.month ||
			!p.Income.Equal(decimal.RequireFromString(w.income)) ||
			!p.Expenses.Equal(decimal.RequireFromString(w.expenses)) ||
			!p.Savings.Equal(decimal.RequireFromString(w.savings)) {
			t.Errorf("Trend()[%d] = %+v, want %+v", i, p, w)
		}
	}
}
