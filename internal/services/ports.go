package services

import (
	"context"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

// Ports the services depend on. internal/storage implements all of them on
// SQLite; tests substitute in-memory fakes.
type (
	// UnitOfWork runs fn inside one database transaction. Store calls made
	// with the ctx passed to fn join that transaction. The transaction
	// commits when fn returns nil and rolls back otherwise.
	UnitOfWork interface {
		WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	}

	// TransactionFilter narrows ListTransactions. Zero values mean "any".
	TransactionFilter struct {
		From     *time.Time
		To       *time.Time
		Category string
		Kind     core.Kind
		Limit    int
	}

	TransactionStore interface {
		CreateTransaction(ctx context.Context, t core.Transaction) error
		// GetTransaction returns core.ErrNotFound when id is unknown or owned by someone else.
		GetTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error)
		ListTransactions(ctx context.Context, ownerID string, f TransactionFilter) ([]core.Transaction, error)
		UpdateTransaction(ctx context.Context, t core.Transaction) error
		DeleteTransaction(ctx context.Context, ownerID, id string) error
		TopCategories(ctx context.Context, ownerID string, kind core.Kind, limit int) ([]core.CategorySuggestion, error)
		CategoryUsage(ctx context.Context, ownerID string, kind core.Kind) ([]core.CategoryUsage, error)
	}

	// DueRuleStore is what the recurrence processor needs.
	DueRuleStore interface {
		UnitOfWork
		// FindDueRules returns active rules of ownerID with NextRun <= now
		// and EndDate unset or >= now, ordered by NextRun.
		FindDueRules(ctx context.Context, ownerID string, now time.Time) ([]core.RecurringRule, error)
		CreateTransaction(ctx context.Context, t core.Transaction) error
		// AdvanceRule sets NextRun and IsActive only if the stored NextRun
		// still equals observed. It reports whether the row was claimed.
		AdvanceRule(ctx context.Context, id string, observed, next time.Time, isActive bool, updatedAt time.Time) (bool, error)
	}

	RuleStore interface {
		CreateRule(ctx context.Context, r core.RecurringRule) error
		// GetRule returns core.ErrNotFound when id is unknown.
		GetRule(ctx context.Context, id string) (core.RecurringRule, error)
		ListRules(ctx context.Context, ownerID string) ([]core.RecurringRule, error)
		UpdateRule(ctx context.Context, r core.RecurringRule) error
		DeleteRule(ctx context.Context, id string) error
		OwnersWithDueRules(ctx context.Context, now time.Time) ([]string, error)
	}

	FavoriteStore interface {
		ListFavorites(ctx context.Context, ownerID string, kind core.Kind) ([]core.FavoriteCategory, error)
		CountFavorites(ctx context.Context, ownerID string, kind core.Kind) (int, error)
		// FindFavorite looks up by the (owner, category, kind) key.
		FindFavorite(ctx context.Context, ownerID, category string, kind core.Kind) (core.FavoriteCategory, error)
		// MaxFavoriteOrder reports false when the owner has no favorites of kind.
		MaxFavoriteOrder(ctx context.Context, ownerID string, kind core.Kind) (int, bool, error)
		CreateFavorite(ctx context.Context, f core.FavoriteCategory) error
		GetFavorite(ctx context.Context, id string) (core.FavoriteCategory, error)
		UpdateFavorite(ctx context.Context, f core.FavoriteCategory) error
		DeleteFavorite(ctx context.Context, id string) error
	}

	UserStore interface {
		CreateUser(ctx context.Context, u core.User) error
		GetUserByID(ctx context.Context, id string) (core.User, error)
		GetUserByEmail(ctx context.Context, email string) (core.User, error)
		UpdateUser(ctx context.Context, u core.User) error
		// DeleteUser removes the user and cascades to everything they own.
		DeleteUser(ctx context.Context, id string) error
	}

	// KindTotal is a sum and count of one kind of transaction.
	KindTotal struct {
		Total decimal.Decimal
		Count int
	}

	StatsStore interface {
		SumByKind(ctx context.Context, ownerID string, kind core.Kind, from time.Time) (KindTotal, error)
		SumByCategory(ctx context.Context, ownerID string, kind core.Kind, from time.Time) ([]core.CategoryAmount, error)
		ListTransactionsSince(ctx context.Context, ownerID string, from time.Time) ([]core.Transaction, error)
	}

	// TransactionPublisher announces newly created transactions. Failures
	// are logged by the caller and never fail the originating request.
	TransactionPublisher interface {
		PublishTransactionCreated(ctx context.Context, t core.Transaction) error
	}
)
