package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

func TestNewFromEnv_MissingSpreadsheetID(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")

	_, err := NewFromEnv(context.Background())
	if err == nil {
		t.Fatal("expected error for missing GOOGLE_SPREADSHEET_ID")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewFromEnv_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "sheet-id")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := NewFromEnv(context.Background())
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("NewFromEnv() error = %v, want missing credentials", err)
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"Ledger", "2024 Ledger"},
		{" Ledger ", "2024 Ledger"},
		{"2023 Ledger", "2023 Ledger"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			if got := yearPrefixedName(tt.base, 2024); got != tt.want {
				t.Errorf("yearPrefixedName(%q) = %q, want %q", tt.base, got, tt.want)
			}
		})
	}
}

func testTransaction() core.Transaction {
	return core.Transaction{
		ID:       "tx-1",
		Amount:   decimal.RequireFromString("42"),
		Kind:     core.KindIncome,
		Category: "Salary",
		Date:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Source:   core.SourceRecurring,
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	c := New(svc, "sheet-id", "")
	c.delay = time.Millisecond
	return c
}

func TestClient_AppendTransaction(t *testing.T) {
	var gotPath string
	var gotBody gsheet.ValueRange
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(gsheet.AppendValuesResponse{
			Updates: &gsheet.UpdateValuesResponse{UpdatedRange: "'2024 Ledger'!A2:G2"},
		})
	})

	ref, err := c.AppendTransaction(context.Background(), testTransaction())
	if err != nil {
		t.Fatalf("AppendTransaction() error = %v", err)
	}
	if ref != "'2024 Ledger'!A2:G2" {
		t.Errorf("AppendTransaction() ref = %q", ref)
	}
	if !strings.Contains(gotPath, "2024 Ledger!A:G") {
		t.Errorf("request path = %q, want the 2024 Ledger range", gotPath)
	}
	if len(gotBody.Values) != 1 || gotBody.Values[0][4] != "42.00" {
		t.Errorf("request values = %v", gotBody.Values)
	}
}

func TestClient_AppendTransaction_RetriesRateLimit(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"code":429,"message":"quota"}}`))
			return
		}
		json.NewEncoder(w).Encode(gsheet.AppendValuesResponse{})
	})

	if _, err := c.AppendTransaction(context.Background(), testTransaction()); err != nil {
		t.Fatalf("AppendTransaction() error = %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestClient_AppendTransaction_NoRetryOnOtherErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"bad range"}}`))
	})

	if _, err := c.AppendTransaction(context.Background(), testTransaction()); err == nil {
		t.Fatal("AppendTransaction() error = nil, want error")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestClient_AppendTransaction_Validation(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	tx := testTransaction()
	tx.Category = ""

	_, err := c.AppendTransaction(context.Background(), tx)
	if !errors.Is(err, core.ErrEmptyCategory) {
		t.Errorf("AppendTransaction() error = %v, want ErrEmptyCategory", err)
	}
}
