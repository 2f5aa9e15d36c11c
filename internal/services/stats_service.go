package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"fintrack/internal/clock"
	"fintrack/internal/core"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// trendMonths is how far back the trend reaches, counting the current month
// as zero.
const trendMonths = 6

// StatsService computes dashboard aggregates. Calendar boundaries are taken
// in loc.
type StatsService struct {
	store StatsStore
	clock clock.Clock
	loc   *time.Location
}

func NewStatsService(store StatsStore, clk clock.Clock, loc *time.Location) *StatsService {
	if clk == nil {
		clk = clock.System{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &StatsService{store: store, clock: clk, loc: loc}
}

// Overview returns the current month's budget, this week's spending and the
// month's expense breakdown by category.
func (s *StatsService) Overview(ctx context.Context, ownerID string) (core.Overview, error) {
	now := s.clock.Now().In(s.loc)
	monthStart := clock.StartOfMonth(now)
	weekStart := clock.StartOfWeek(now)

	var (
		income, expenses, weekly KindTotal
		categories               []core.CategoryAmount
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		income, err = s.store.SumByKind(gctx, ownerID, core.KindIncome, monthStart)
		if err != nil {
			return fmt.Errorf("monthly income: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		expenses, err = s.store.SumByKind(gctx, ownerID, core.KindExpense, monthStart)
		if err != nil {
			return fmt.Errorf("monthly expenses: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		weekly, err = s.store.SumByKind(gctx, ownerID, core.KindExpense, weekStart)
		if err != nil {
			return fmt.Errorf("weekly expenses: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		categories, err = s.store.SumByCategory(gctx, ownerID, core.KindExpense, monthStart)
		if err != nil {
			return fmt.Errorf("category breakdown: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.Overview{}, err
	}

	for i := range categories {
		categories[i].Percentage = core.Percentage(categories[i].Amount, expenses.Total)
	}
	sort.SliceStable(categories, func(i, j int) bool {
		return categories[i].Amount.GreaterThan(categories[j].Amount)
	})
	if categories == nil {
		categories = []core.CategoryAmount{}
	}

	return core.Overview{
		Monthly: core.MonthlyBudget{
			Income:          income.Total,
			Expenses:        expenses.Total,
			Available:       income.Total.Sub(expenses.Total),
			SpentPercentage: core.Percentage(expenses.Total, income.Total),
			TransactionCount: core.TransactionCount{
				Income:   income.Count,
				Expenses: expenses.Count,
			},
		},
		Weekly:     core.WeeklySummary{Expenses: weekly.Total},
		Categories: categories,
	}, nil
}

// Trend groups the last months of transactions by YYYY-MM. Months without
// any transaction are omitted.
func (s *StatsService) Trend(ctx context.Context, ownerID string) ([]core.TrendPoint, error) {
	now := s.clock.Now().In(s.loc)
	from := clock.AddMonths(clock.StartOfMonth(now), -trendMonths)

	items, err := s.store.ListTransactionsSince(ctx, ownerID, from)
	if err != nil {
		return nil, fmt.Errorf("list transactions since %s: %w", from.Format(time.DateOnly), err)
	}

	byMonth := make(map[string]*core.TrendPoint)
	for _, t := range items {
		key := clock.MonthKey(t.Date.In(s.loc))
		p, ok := byMonth[key]
		if !ok {
			p = &core.TrendPoint{Month: key, Income: decimal.Zero, Expenses: decimal.Zero}
			byMonth[key] = p
		}
		switch t.Kind {
		case core.KindIncome:
			p.Income = p.Income.Add(t.Amount)
		case core.KindExpense:
			p.Expenses = p.Expenses.Add(t.Amount)
		}
	}

	out := make([]core.TrendPoint, 0, len(byMonth))
	for _, p := range byMonth {
		p.Savings = p.Income.Sub(p.Expenses)
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}
