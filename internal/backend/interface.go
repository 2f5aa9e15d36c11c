// Package backend builds the ledger writer selected by configuration.
package backend

import (
	"context"

	"fintrack/internal/sheets"
)

// CleanupFunc releases resources held by a ledger.
type CleanupFunc func() error

// Result contains the ledger instance and optional cleanup function.
type Result struct {
	Ledger  sheets.LedgerWriter
	Cleanup CleanupFunc
}

// Factory creates ledgers based on configuration.
type Factory interface {
	CreateLedger(ctx context.Context, config Config) (*Result, error)
}

// Config holds what ledger creation needs.
type Config struct {
	Type BackendType

	// Google Sheets specific
	GoogleSpreadsheetID string
	GoogleSheetName     string
}

// BackendType names a ledger implementation.
type BackendType string

const (
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
