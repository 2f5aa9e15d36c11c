package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Daily   Frequency = "DAILY"
	Weekly  Frequency = "WEEKLY"
	Monthly Frequency = "MONTHLY"
	Yearly  Frequency = "YEARLY"
)

const (
	KindExpense Kind = "EXPENSE"
	KindIncome  Kind = "INCOME"
)

const (
	SourceManual    Source = "MANUAL"
	SourceRecurring Source = "RECURRING"
)

const (
	ProviderEmail  AuthProvider = "EMAIL"
	ProviderGoogle AuthProvider = "GOOGLE"
	ProviderLinked AuthProvider = "LINKED"
)

const (
	MaxCategoryLength    = 100
	MaxDescriptionLength = 500
	MaxFavoritesPerKind  = 30
)

type (
	Frequency    string
	Kind         string
	Source       string
	AuthProvider string

	// RecurringRule is a template that materializes a Transaction every
	// Interval units of Frequency, starting from StartDate.
	RecurringRule struct {
		ID          string          `json:"id"`
		OwnerID     string          `json:"userId"`
		Amount      decimal.Decimal `json:"amount"`
		Kind        Kind            `json:"type"`
		Category    string          `json:"category"`
		Description string          `json:"description"`
		Frequency   Frequency       `json:"frequency"`
		Interval    int             `json:"interval"`
		StartDate   time.Time       `json:"startDate"`
		EndDate     *time.Time      `json:"endDate"`
		NextRun     time.Time       `json:"nextRun"`
		IsActive    bool            `json:"isActive"`
		CreatedAt   time.Time       `json:"createdAt"`
		UpdatedAt   time.Time       `json:"updatedAt"`
	}

	Transaction struct {
		ID              string          `json:"id"`
		OwnerID         string          `json:"userId"`
		Amount          decimal.Decimal `json:"amount"`
		Kind            Kind            `json:"type"`
		Category        string          `json:"category"`
		Description     string          `json:"description"`
		Date            time.Time       `json:"date"`
		Source          Source          `json:"source"`
		RecurringRuleID *string         `json:"recurringId"`
		CreatedAt       time.Time       `json:"createdAt"`
		UpdatedAt       time.Time       `json:"updatedAt"`
	}

	FavoriteCategory struct {
		ID        string    `json:"id"`
		OwnerID   string    `json:"userId"`
		Category  string    `json:"category"`
		Emoji     string    `json:"emoji"`
		Kind      Kind      `json:"type"`
		Order     int       `json:"order"`
		CreatedAt time.Time `json:"createdAt"`
	}

	User struct {
		ID           string       `json:"id"`
		Email        string       `json:"email"`
		PasswordHash string       `json:"-"`
		GoogleID     string       `json:"-"`
		Name         string       `json:"name"`
		FirstName    string       `json:"firstName"`
		LastName     string       `json:"lastName"`
		AuthProvider AuthProvider `json:"authProvider"`
		CreatedAt    time.Time    `json:"createdAt"`
		UpdatedAt    time.Time    `json:"updatedAt"`
	}
)

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")

	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrInvalidKind      = errors.New("type must be EXPENSE or INCOME")
	ErrInvalidFrequency = errors.New("frequency must be one of DAILY, WEEKLY, MONTHLY, YEARLY")
	ErrInvalidInterval  = errors.New("interval must be a positive integer")
	ErrEmptyCategory    = errors.New("category is required")
	ErrInvalidDateRange = errors.New("end date must be after start date")
	ErrMissingDate      = errors.New("date is required")
	ErrDateOutOfRange   = errors.New("date must fall between years 0001 and 9999")
)

// MinDate and MaxDate bound every instant that can be stored.
var (
	MinDate = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	MaxDate = time.Date(9999, time.December, 31, 23, 59, 59, 999999999, time.UTC)
)

// InDateRange reports whether t lies within [MinDate, MaxDate].
func InDateRange(t time.Time) bool {
	return !t.Before(MinDate) && !t.After(MaxDate)
}

// ValidationError reports a rejected field. Err is one of the sentinel
// errors above, or a free-form error when no sentinel fits.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError builds a ValidationError from a message.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Err: errors.New(msg)}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func (k Kind) Valid() bool {
	return k == KindExpense || k == KindIncome
}

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

func validateCategory(category string) error {
	if strings.TrimSpace(category) == "" {
		return &ValidationError{Field: "category", Err: ErrEmptyCategory}
	}
	if len(category) > MaxCategoryLength {
		return NewValidationError("category", "category too long (max 100 characters)")
	}
	return nil
}

func validateDescription(description string) error {
	if len(description) > MaxDescriptionLength {
		return NewValidationError("description", "description too long (max 500 characters)")
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}
	if !t.Kind.Valid() {
		return &ValidationError{Field: "type", Err: ErrInvalidKind}
	}
	if err := validateCategory(t.Category); err != nil {
		return err
	}
	if err := validateDescription(t.Description); err != nil {
		return err
	}
	if t.Date.IsZero() {
		return &ValidationError{Field: "date", Err: ErrMissingDate}
	}
	if t.Source != SourceManual && t.Source != SourceRecurring {
		return NewValidationError("source", "source must be MANUAL or RECURRING")
	}
	return nil
}

// Validate checks the fields a user controls. NextRun is derived and is
// not checked here.
func (r RecurringRule) Validate() error {
	if err := ValidateAmount(r.Amount); err != nil {
		return err
	}
	if !r.Kind.Valid() {
		return &ValidationError{Field: "type", Err: ErrInvalidKind}
	}
	if err := validateCategory(r.Category); err != nil {
		return err
	}
	if err := validateDescription(r.Description); err != nil {
		return err
	}
	if !r.Frequency.Valid() {
		return &ValidationError{Field: "frequency", Err: ErrInvalidFrequency}
	}
	if r.Interval < 1 {
		return &ValidationError{Field: "interval", Err: ErrInvalidInterval}
	}
	if r.StartDate.IsZero() {
		return &ValidationError{Field: "startDate", Err: ErrMissingDate}
	}
	return nil
}

// ValidateDateRange enforces endDate > startDate. It applies at creation
// only; later edits may move endDate freely.
func (r RecurringRule) ValidateDateRange() error {
	if r.EndDate != nil && !r.EndDate.After(r.StartDate) {
		return &ValidationError{Field: "endDate", Err: ErrInvalidDateRange}
	}
	return nil
}

// ValidateSchedule checks that every date of the rule, NextRun included,
// lies within the storable range.
func (r RecurringRule) ValidateSchedule() error {
	if !InDateRange(r.StartDate) {
		return &ValidationError{Field: "startDate", Err: ErrDateOutOfRange}
	}
	if r.EndDate != nil && !InDateRange(*r.EndDate) {
		return &ValidationError{Field: "endDate", Err: ErrDateOutOfRange}
	}
	if !InDateRange(r.NextRun) {
		return NewValidationError("interval", "next occurrence falls after year 9999")
	}
	return nil
}

func (f FavoriteCategory) Validate() error {
	if err := validateCategory(f.Category); err != nil {
		return err
	}
	if !f.Kind.Valid() {
		return &ValidationError{Field: "type", Err: ErrInvalidKind}
	}
	if f.Order < 0 {
		return NewValidationError("order", "order cannot be negative")
	}
	return nil
}

// HasPassword reports whether the user can sign in with email and password.
func (u User) HasPassword() bool {
	return u.PasswordHash != ""
}

// AccountLinked reports whether the user has both sign-in methods.
func (u User) AccountLinked() bool {
	return u.AuthProvider == ProviderLinked
}

// Error pairs a sentinel (ErrNotFound, ErrForbidden, ...) with a message
// that is safe to show to the client.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// NewError wraps kind with a client-facing message.
func NewError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}
