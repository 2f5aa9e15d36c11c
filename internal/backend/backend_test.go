package backend

import (
	"context"
	"errors"
	"strings"
	"testing"

	"fintrack/internal/config"
	"fintrack/internal/sheets"
	"fintrack/internal/sheets/memory"
)

func TestFromAppConfig(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *config.Config
		wantType BackendType
		wantErr  string
	}{
		{"nil config", nil, "", "app config is nil"},
		{"empty means sheets", &config.Config{GoogleSpreadsheetID: "sheet"}, SheetsBackend, ""},
		{"sheets without id", &config.Config{LedgerBackend: "sheets"}, SheetsBackend, "Spreadsheet ID is required"},
		{"memory", &config.Config{LedgerBackend: "memory"}, MemoryBackend, ""},
		{"unknown", &config.Config{LedgerBackend: "csv"}, "csv", "invalid backend type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAppConfig(tt.cfg)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("FromAppConfig() error = %v, want %q", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("FromAppConfig() error = %v", err)
			}
			if got.Type != tt.wantType {
				t.Errorf("FromAppConfig() Type = %q, want %q", got.Type, tt.wantType)
			}
		})
	}
}

func TestDefaultFactory_CreateLedger(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		res, err := NewFactory(nil).CreateLedger(ctx, Config{Type: MemoryBackend})
		if err != nil {
			t.Fatalf("CreateLedger() error = %v", err)
		}
		if _, ok := res.Ledger.(*memory.Store); !ok {
			t.Errorf("CreateLedger() Ledger = %T, want *memory.Store", res.Ledger)
		}
		if res.Cleanup == nil || res.Cleanup() != nil {
			t.Error("Cleanup() should be set and succeed")
		}
	})

	t.Run("sheets", func(t *testing.T) {
		f := NewFactory(nil)
		want := memory.New()
		var gotID, gotName string
		f.newSheets = func(_ context.Context, id, name string) (sheets.LedgerWriter, error) {
			gotID, gotName = id, name
			return want, nil
		}
		res, err := f.CreateLedger(ctx, Config{Type: SheetsBackend, GoogleSpreadsheetID: "sheet", GoogleSheetName: "Ledger"})
		if err != nil {
			t.Fatalf("CreateLedger() error = %v", err)
		}
		if res.Ledger != want {
			t.Errorf("CreateLedger() Ledger = %v, want stub", res.Ledger)
		}
		if gotID != "sheet" || gotName != "Ledger" {
			t.Errorf("newSheets(%q, %q), want (sheet, Ledger)", gotID, gotName)
		}
	})

	t.Run("sheets failure", func(t *testing.T) {
		f := NewFactory(nil)
		boom := errors.New("no credentials")
		f.newSheets = func(context.Context, string, string) (sheets.LedgerWriter, error) {
			return nil, boom
		}
		_, err := f.CreateLedger(ctx, Config{Type: SheetsBackend, GoogleSpreadsheetID: "sheet"})
		if !errors.Is(err, boom) {
			t.Errorf("CreateLedger() error = %v, want %v", err, boom)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		if _, err := NewFactory(nil).CreateLedger(ctx, Config{Type: "csv"}); err == nil {
			t.Error("CreateLedger() error = nil, want invalid backend type")
		}
	})
}
