package core

import "github.com/shopspring/decimal"

// TransactionCount splits a count by kind.
type TransactionCount struct {
	Income   int `json:"income"`
	Expenses int `json:"expenses"`
}

// MonthlyBudget summarizes the current calendar month.
type MonthlyBudget struct {
	Income           decimal.Decimal  `json:"income"`
	Expenses         decimal.Decimal  `json:"expenses"`
	Available        decimal.Decimal  `json:"available"`
	SpentPercentage  int              `json:"spentPercentage"`
	TransactionCount TransactionCount `json:"transactionCount"`
}

// WeeklySummary covers expenses since the start of the week.
type WeeklySummary struct {
	Expenses decimal.Decimal `json:"expenses"`
}

// CategoryAmount is an amount aggregated by category name.
type CategoryAmount struct {
	Category   string          `json:"category"`
	Amount     decimal.Decimal `json:"amount"`
	Count      int             `json:"count"`
	Percentage int             `json:"percentage"`
}

// Overview is the dashboard payload.
type Overview struct {
	Monthly    MonthlyBudget    `json:"monthly"`
	Weekly     WeeklySummary    `json:"weekly"`
	Categories []CategoryAmount `json:"categories"`
}

// TrendPoint is one YYYY-MM bucket of the trend.
type TrendPoint struct {
	Month    string          `json:"month"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Savings  decimal.Decimal `json:"savings"`
}

// CategorySuggestion is a frequently used category.
type CategorySuggestion struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// CategoryUsage counts transactions per category and kind.
type CategoryUsage struct {
	Category string `json:"category"`
	Kind     Kind   `json:"type"`
	Count    int    `json:"count"`
}
