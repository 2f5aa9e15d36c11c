package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
	applog "fintrack/internal/log"

	"github.com/google/uuid"
)

// errClaimLost rolls back a rule whose NextRun moved under us.
var errClaimLost = errors.New("rule already advanced by another run")

// ProcessResult is what one ProcessDue call materialized.
type ProcessResult struct {
	Processed    int                `json:"processed"`
	Transactions []core.Transaction `json:"transactions"`
}

// DueOwnerLister finds owners that currently have due rules.
type DueOwnerLister interface {
	OwnersWithDueRules(ctx context.Context, now time.Time) ([]string, error)
}

// RecurringProcessor turns due recurring rules into transactions and
// advances their schedule.
type RecurringProcessor struct {
	store     DueRuleStore
	publisher TransactionPublisher
	newID     func() string
}

// NewRecurringProcessor creates a processor. publisher may be nil.
func NewRecurringProcessor(store DueRuleStore, publisher TransactionPublisher) *RecurringProcessor {
	return &RecurringProcessor{
		store:     store,
		publisher: publisher,
		newID:     uuid.NewString,
	}
}

// ProcessDue materializes one transaction, dated now, for every due rule
// of ownerID and moves each rule one step forward. A rule that fell behind
// by several periods still yields a single transaction per call.
//
// Each rule is handled in its own database transaction. The first failure
// aborts the rest of the batch; rules processed before it stay committed
// and are reported in the returned result alongside the error.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, ownerID string, now time.Time) (ProcessResult, error) {
	result := ProcessResult{Transactions: []core.Transaction{}}
	if p.store == nil {
		return result, fmt.Errorf("processor not properly initialized")
	}

	rules, err := p.store.FindDueRules(ctx, ownerID, now)
	if err != nil {
		return result, fmt.Errorf("failed to find due rules: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring rules",
		"owner_id", ownerID,
		"total_due", len(rules),
		"processing_time", now.Format(time.RFC3339))

	for _, rule := range rules {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		tx, claimed, err := p.processRule(ctx, rule, now)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to process recurring rule",
				"owner_id", ownerID,
				"rule_id", rule.ID,
				"error", err)
			return result, fmt.Errorf("process rule %s: %w", rule.ID, err)
		}
		if !claimed {
			slog.WarnContext(ctx, "Recurring rule advanced concurrently, skipping",
				"rule_id", rule.ID,
				"observed_next_run", rule.NextRun)
			continue
		}

		result.Transactions = append(result.Transactions, tx)
		result.Processed++

		applog.NewStructuredLogger(applog.FromContext(ctx)).LogRuleMaterialized(ctx,
			rule.OwnerID, rule.ID, tx.ID, tx.Amount.String(), string(rule.Frequency))

		p.publish(ctx, tx)
	}

	slog.InfoContext(ctx, "Recurring rule processing complete",
		"owner_id", ownerID,
		"processed", result.Processed,
		"total_checked", len(rules))

	return result, nil
}

// processRule reports claimed=false when another run advanced the rule first.
func (p *RecurringProcessor) processRule(ctx context.Context, rule core.RecurringRule, now time.Time) (core.Transaction, bool, error) {
	tx := p.materialize(rule, now)

	nextRun := ComputeNextRun(rule.NextRun, rule.Frequency, rule.Interval)
	isActive := rule.IsActive
	if rule.EndDate != nil && nextRun.After(*rule.EndDate) {
		isActive = false
	}
	// A schedule that runs off the calendar ends here: the rule keeps its
	// last NextRun and is deactivated.
	if !core.InDateRange(nextRun) || !nextRun.After(rule.NextRun) {
		slog.WarnContext(ctx, "Recurring rule schedule exhausted, deactivating",
			"rule_id", rule.ID,
			"owner_id", rule.OwnerID,
			"next_run", rule.NextRun.Format(time.RFC3339))
		nextRun = rule.NextRun
		isActive = false
	}

	err := p.store.WithinTx(ctx, func(ctx context.Context) error {
		if err := p.store.CreateTransaction(ctx, tx); err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
		claimed, err := p.store.AdvanceRule(ctx, rule.ID, rule.NextRun, nextRun, isActive, now)
		if err != nil {
			return fmt.Errorf("advance rule: %w", err)
		}
		if !claimed {
			return errClaimLost
		}
		return nil
	})
	if errors.Is(err, errClaimLost) {
		return core.Transaction{}, false, nil
	}
	if err != nil {
		return core.Transaction{}, false, err
	}
	return tx, true, nil
}

func (p *RecurringProcessor) materialize(rule core.RecurringRule, now time.Time) core.Transaction {
	ruleID := rule.ID
	return core.Transaction{
		ID:              p.newID(),
		OwnerID:         rule.OwnerID,
		Amount:          rule.Amount,
		Kind:            rule.Kind,
		Category:        rule.Category,
		Description:     rule.Description,
		Date:            now,
		Source:          core.SourceRecurring,
		RecurringRuleID: &ruleID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (p *RecurringProcessor) publish(ctx context.Context, tx core.Transaction) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.PublishTransactionCreated(ctx, tx); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"transaction_id", tx.ID,
			"error", err)
	}
}

// ProcessAllDue runs ProcessDue for every owner with due rules. A failing
// owner is logged and does not stop the others; all failures are joined
// into the returned error.
func (p *RecurringProcessor) ProcessAllDue(ctx context.Context, owners DueOwnerLister, now time.Time) (int, error) {
	ownerIDs, err := owners.OwnersWithDueRules(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list owners with due rules: %w", err)
	}

	total := 0
	var errs []error
	for _, ownerID := range ownerIDs {
		res, err := p.ProcessDue(ctx, ownerID, now)
		total += res.Processed
		if err != nil {
			if ctx.Err() != nil {
				return total, ctx.Err()
			}
			slog.ErrorContext(ctx, "Recurring processing failed for owner",
				"owner_id", ownerID,
				"error", err)
			errs = append(errs, err)
		}
	}
	return total, errors.Join(errs...)
}
