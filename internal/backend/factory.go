package backend

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/sheets"
	gsheet "fintrack/internal/sheets/google"
	"fintrack/internal/sheets/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger    *slog.Logger
	newSheets func(ctx context.Context, spreadsheetID, sheetName string) (sheets.LedgerWriter, error)
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) *DefaultFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
		newSheets: func(ctx context.Context, spreadsheetID, sheetName string) (sheets.LedgerWriter, error) {
			return gsheet.NewFromConfig(ctx, spreadsheetID, sheetName)
		},
	}
}

var _ Factory = (*DefaultFactory)(nil)

// CreateLedger implements Factory.CreateLedger
func (f *DefaultFactory) CreateLedger(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SheetsBackend:
		ledger, err := f.newSheets(ctx, config.GoogleSpreadsheetID, config.GoogleSheetName)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized Google Sheets ledger",
			"spreadsheet_id", config.GoogleSpreadsheetID,
			"sheet", config.GoogleSheetName)
		return &Result{Ledger: ledger}, nil
	case MemoryBackend:
		store := memory.New()
		f.logger.InfoContext(ctx, "Initialized memory ledger")
		return &Result{
			Ledger: store,
			Cleanup: func() error {
				f.logger.Info("Memory ledger discarded", "rows", len(store.Rows()))
				return nil
			},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
