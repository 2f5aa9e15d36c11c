package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fintrack/internal/clock"
)

// SchedulerConfig holds configuration for the recurring scheduler
type SchedulerConfig struct {
	// Interval is how often due rules are processed (default: 1h)
	Interval time.Duration

	// RunOnStart processes due rules immediately when the scheduler starts
	RunOnStart bool
}

// DefaultSchedulerConfig returns sensible defaults
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:   time.Hour,
		RunOnStart: true,
	}
}

// RecurringScheduler periodically runs ProcessAllDue for every owner.
type RecurringScheduler struct {
	processor *RecurringProcessor
	owners    DueOwnerLister
	clock     clock.Clock
	config    SchedulerConfig

	// OnProcessed, when set, is called after a tick that produced transactions.
	OnProcessed func(count int)

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewRecurringScheduler(processor *RecurringProcessor, owners DueOwnerLister, clk clock.Clock, config SchedulerConfig) *RecurringScheduler {
	if clk == nil {
		clk = clock.System{}
	}
	if config.Interval <= 0 {
		config.Interval = DefaultSchedulerConfig().Interval
	}
	return &RecurringScheduler{
		processor: processor,
		owners:    owners,
		clock:     clk,
		config:    config,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (s *RecurringScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("recurring scheduler is already running")
	}
	s.running = true
	stopCh, doneCh := make(chan struct{}), make(chan struct{})
	s.stopCh, s.doneCh = stopCh, doneCh
	s.mu.Unlock()

	go s.runLoop(ctx, stopCh, doneCh)

	slog.InfoContext(ctx, "Recurring scheduler started", "interval", s.config.Interval)
	return nil
}

// Stop signals the loop and waits for the current tick to finish.
func (s *RecurringScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.running = false
	s.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Recurring scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Recurring scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *RecurringScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// runLoop ticks until stopCh closes or ctx ends. A loop ended by ctx marks
// the scheduler stopped so it can be started again.
func (s *RecurringScheduler) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan struct{}) {
	defer func() {
		s.mu.Lock()
		if s.doneCh == doneCh {
			s.running = false
		}
		s.mu.Unlock()
		close(doneCh)
	}()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if s.config.RunOnStart {
		s.RunOnce(ctx)
	}

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce processes every owner's due rules at the current time.
func (s *RecurringScheduler) RunOnce(ctx context.Context) int {
	start := time.Now()
	count, err := s.processor.ProcessAllDue(ctx, s.owners, s.clock.Now())
	if err != nil {
		slog.ErrorContext(ctx, "Recurring processing finished with errors",
			"processed", count,
			"error", err)
	} else {
		slog.InfoContext(ctx, "Recurring processing finished",
			"processed", count,
			"duration", time.Since(start))
	}
	if count > 0 && s.OnProcessed != nil {
		s.OnProcessed(count)
	}
	return count
}
