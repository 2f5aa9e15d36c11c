// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for recurrence stepping.
// Each frequency (daily, weekly, monthly, yearly) has its own stepper
// that advances an anchor date by a number of frequency units.

package services

import (
	"fmt"
	"time"

	"fintrack/internal/clock"
	"fintrack/internal/core"
)

// Stepper is the strategy interface for advancing a recurrence anchor.
// Each implementation encapsulates the calendar arithmetic of one frequency.
type Stepper interface {
	// Step returns anchor advanced by interval units.
	Step(anchor time.Time, interval int) time.Time
}

// DailyStepper advances by whole days.
type DailyStepper struct{}

func (DailyStepper) Step(anchor time.Time, interval int) time.Time {
	return clock.AddDays(anchor, interval)
}

// WeeklyStepper advances by 7-day weeks.
type WeeklyStepper struct{}

func (WeeklyStepper) Step(anchor time.Time, interval int) time.Time {
	return clock.AddWeeks(anchor, interval)
}

// MonthlyStepper advances by calendar months. Day-of-month overflow rolls
// into the next month (Jan 31 + 1 month = Mar 2 in a leap year) and is
// left uncorrected.
type MonthlyStepper struct{}

func (MonthlyStepper) Step(anchor time.Time, interval int) time.Time {
	return clock.AddMonths(anchor, interval)
}

// YearlyStepper advances by calendar years.
type YearlyStepper struct{}

func (YearlyStepper) Step(anchor time.Time, interval int) time.Time {
	return clock.AddYears(anchor, interval)
}

// recurrenceSteppers maps frequencies to their steppers.
var recurrenceSteppers = map[core.Frequency]Stepper{
	core.Daily:   DailyStepper{},
	core.Weekly:  WeeklyStepper{},
	core.Monthly: MonthlyStepper{},
	core.Yearly:  YearlyStepper{},
}

// GetStepper returns the stepper for a frequency.
// Returns an error if the frequency is not supported.
func GetStepper(frequency core.Frequency) (Stepper, error) {
	stepper, ok := recurrenceSteppers[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown frequency: %s", frequency)
	}
	return stepper, nil
}

// RegisterStepper installs a stepper for a new frequency. It is not safe
// to call concurrently with ComputeNextRun.
func RegisterStepper(frequency core.Frequency, stepper Stepper) {
	recurrenceSteppers[frequency] = stepper
}

// ComputeNextRun returns the occurrence that follows anchor. Interval is
// assumed positive; it is validated when a rule is created or edited.
// An unknown frequency leaves the anchor unchanged.
func ComputeNextRun(anchor time.Time, frequency core.Frequency, interval int) time.Time {
	stepper, err := GetStepper(frequency)
	if err != nil {
		return anchor
	}
	return stepper.Step(anchor, interval)
}
