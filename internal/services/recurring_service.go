package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/clock"
	"fintrack/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateRuleInput struct {
	Amount      decimal.Decimal
	Kind        core.Kind
	Category    string
	Description string
	Frequency   core.Frequency
	// Interval defaults to 1 when zero.
	Interval  int
	StartDate time.Time
	EndDate   *time.Time
}

// TimeUpdate distinguishes "leave unchanged" (Set=false) from "clear"
// (Set=true, Value=nil) for nullable timestamps.
type TimeUpdate struct {
	Set   bool
	Value *time.Time
}

type UpdateRuleInput struct {
	Amount      *decimal.Decimal
	Category    *string
	Description *string
	Frequency   *core.Frequency
	Interval    *int
	EndDate     TimeUpdate
	IsActive    *bool
}

// RecurringService manages recurring rules on behalf of their owner.
type RecurringService struct {
	store     RuleStore
	processor *RecurringProcessor
	clock     clock.Clock
	newID     func() string
}

func NewRecurringService(store RuleStore, processor *RecurringProcessor, clk clock.Clock) *RecurringService {
	if clk == nil {
		clk = clock.System{}
	}
	return &RecurringService{
		store:     store,
		processor: processor,
		clock:     clk,
		newID:     uuid.NewString,
	}
}

// Create stores a new active rule whose first occurrence is one step after
// StartDate.
func (s *RecurringService) Create(ctx context.Context, ownerID string, in CreateRuleInput) (core.RecurringRule, error) {
	interval := in.Interval
	if interval == 0 {
		interval = 1
	}
	now := s.clock.Now()

	rule := core.RecurringRule{
		ID:          s.newID(),
		OwnerID:     ownerID,
		Amount:      core.NormalizeAmount(in.Amount),
		Kind:        in.Kind,
		Category:    in.Category,
		Description: in.Description,
		Frequency:   in.Frequency,
		Interval:    interval,
		StartDate:   in.StartDate.UTC(),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.EndDate != nil {
		end := in.EndDate.UTC()
		rule.EndDate = &end
	}

	if err := rule.Validate(); err != nil {
		return core.RecurringRule{}, err
	}
	if err := rule.ValidateDateRange(); err != nil {
		return core.RecurringRule{}, core.NewError(err, "End date must be after start date")
	}
	rule.NextRun = ComputeNextRun(rule.StartDate, rule.Frequency, rule.Interval)
	if err := checkSchedule(rule, rule.StartDate); err != nil {
		return core.RecurringRule{}, err
	}

	if err := s.store.CreateRule(ctx, rule); err != nil {
		return core.RecurringRule{}, fmt.Errorf("save recurring rule: %w", err)
	}

	slog.InfoContext(ctx, "Recurring rule created",
		"rule_id", rule.ID,
		"owner_id", ownerID,
		"frequency", rule.Frequency,
		"interval", rule.Interval,
		"next_run", rule.NextRun.Format(time.RFC3339))

	return rule, nil
}

// checkSchedule rejects rules whose dates cannot be stored. A NextRun that
// is not after its anchor means the step overflowed.
func checkSchedule(rule core.RecurringRule, anchor time.Time) error {
	if err := rule.ValidateSchedule(); err != nil {
		return err
	}
	if rule.NextRun.Before(anchor) {
		return core.NewValidationError("interval", "next occurrence falls after year 9999")
	}
	return nil
}

// List returns the owner's rules, newest first.
func (s *RecurringService) List(ctx context.Context, ownerID string) ([]core.RecurringRule, error) {
	rules, err := s.store.ListRules(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list recurring rules: %w", err)
	}
	return rules, nil
}

// Get returns a rule owned by ownerID.
func (s *RecurringService) Get(ctx context.Context, ownerID, id string) (core.RecurringRule, error) {
	return s.owned(ctx, ownerID, id)
}

// owned loads a rule and checks that ownerID owns it. Unknown ids yield
// ErrNotFound, foreign ones ErrForbidden.
func (s *RecurringService) owned(ctx context.Context, ownerID, id string) (core.RecurringRule, error) {
	rule, err := s.store.GetRule(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.RecurringRule{}, core.NewError(core.ErrNotFound, "Recurring transaction not found")
	}
	if err != nil {
		return core.RecurringRule{}, fmt.Errorf("get recurring rule: %w", err)
	}
	if rule.OwnerID != ownerID {
		return core.RecurringRule{}, core.NewError(core.ErrForbidden, "Not authorized")
	}
	return rule, nil
}

// Update applies a partial change. When the frequency or interval changes,
// NextRun is recomputed with now as the anchor.
func (s *RecurringService) Update(ctx context.Context, ownerID, id string, in UpdateRuleInput) (core.RecurringRule, error) {
	rule, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return core.RecurringRule{}, err
	}
	now := s.clock.Now()

	if in.Amount != nil {
		rule.Amount = core.NormalizeAmount(*in.Amount)
	}
	if in.Category != nil {
		rule.Category = *in.Category
	}
	if in.Description != nil {
		rule.Description = *in.Description
	}
	if in.IsActive != nil {
		rule.IsActive = *in.IsActive
	}
	if in.EndDate.Set {
		if in.EndDate.Value == nil {
			rule.EndDate = nil
		} else {
			end := in.EndDate.Value.UTC()
			rule.EndDate = &end
		}
	}

	reschedule := false
	if in.Frequency != nil {
		rule.Frequency = *in.Frequency
		reschedule = true
	}
	if in.Interval != nil {
		rule.Interval = *in.Interval
		reschedule = true
	}

	if err := rule.Validate(); err != nil {
		return core.RecurringRule{}, err
	}
	anchor := rule.NextRun
	if reschedule {
		rule.NextRun = ComputeNextRun(now, rule.Frequency, rule.Interval)
		anchor = now
	}
	if err := checkSchedule(rule, anchor); err != nil {
		return core.RecurringRule{}, err
	}
	rule.UpdatedAt = now

	if err := s.store.UpdateRule(ctx, rule); err != nil {
		return core.RecurringRule{}, fmt.Errorf("update recurring rule: %w", err)
	}

	slog.InfoContext(ctx, "Recurring rule updated",
		"rule_id", rule.ID,
		"rescheduled", reschedule,
		"next_run", rule.NextRun.Format(time.RFC3339),
		"is_active", rule.IsActive)

	return rule, nil
}

// Delete hard-deletes a rule. Transactions it produced are kept.
func (s *RecurringService) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.store.DeleteRule(ctx, id); err != nil {
		return fmt.Errorf("delete recurring rule: %w", err)
	}
	slog.InfoContext(ctx, "Recurring rule deleted", "rule_id", id, "owner_id", ownerID)
	return nil
}

// Process materializes the owner's due rules at the current time.
func (s *RecurringService) Process(ctx context.Context, ownerID string) (ProcessResult, error) {
	if s.processor == nil {
		return ProcessResult{}, fmt.Errorf("recurring processor not configured")
	}
	return s.processor.ProcessDue(ctx, ownerID, s.clock.Now())
}
