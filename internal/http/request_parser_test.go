package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fintrack/internal/core"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), false},
		{"2024-03-01T10:30:00Z", time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC), false},
		{"2024-03-01T12:00:00+02:00", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), false},
		{" 2024-03-01 ", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), false},
		{"01/03/2024", time.Time{}, true},
		{"", time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func decodeRequest(t *testing.T, body string, dst any) error {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	return DecodeJSON(httptest.NewRecorder(), r, dst)
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"valid", `{"amount":12.5,"type":"EXPENSE","category":"Food"}`, ""},
		{"amount as string", `{"amount":"12.5","type":"INCOME","category":"Salary"}`, ""},
		{"empty body", ``, "amount"},
		{"missing type", `{"amount":1,"category":"Food"}`, "type"},
		{"unknown type", `{"amount":1,"type":"TRANSFER","category":"Food"}`, "type"},
		{"blank category", `{"amount":1,"type":"EXPENSE","category":"   "}`, "category"},
		{"wrong field type", `{"amount":1,"type":"EXPENSE","category":7}`, "category"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req createTransactionRequest
			err := decodeRequest(t, tt.body, &req)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("DecodeJSON() error = %v", err)
				}
				return
			}
			var ve *core.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("DecodeJSON() error = %v, want ValidationError", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("DecodeJSON() field = %q, want %q", ve.Field, tt.wantField)
			}
		})
	}
}

func TestDecodeJSON_Malformed(t *testing.T) {
	var req createTransactionRequest
	err := decodeRequest(t, `{"amount":`, &req)
	if !core.IsValidation(err) {
		t.Fatalf("DecodeJSON() error = %v, want ValidationError", err)
	}
	if !strings.Contains(err.Error(), "invalid JSON") {
		t.Errorf("DecodeJSON() error = %q", err)
	}
}

func TestNullableDate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantSet bool
		wantNil bool
	}{
		{"absent", `{}`, false, true},
		{"null", `{"endDate":null}`, true, true},
		{"value", `{"endDate":"2024-12-31"}`, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req updateRecurringRequest
			if err := json.Unmarshal([]byte(tt.body), &req); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if req.EndDate.Set != tt.wantSet {
				t.Errorf("Set = %v, want %v", req.EndDate.Set, tt.wantSet)
			}
			if (req.EndDate.Value == nil) != tt.wantNil {
				t.Errorf("Value = %v, want nil %v", req.EndDate.Value, tt.wantNil)
			}
		})
	}
}

func TestQueryInt(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 50},
		{"limit=10", 10},
		{"limit=abc", 50},
		{"limit=-3", 50},
		{"limit=0", 50},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			if got := QueryInt(r, "limit", 50); got != tt.want {
				t.Errorf("QueryInt(%q) = %d, want %d", tt.query, got, tt.want)
			}
		})
	}
}

func TestQueryKind(t *testing.T) {
	tests := []struct {
		query   string
		want    core.Kind
		wantErr bool
	}{
		{"", "", false},
		{"type=income", core.KindIncome, false},
		{"type=EXPENSE", core.KindExpense, false},
		{"type=other", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			got, err := QueryKind(r)
			if (err != nil) != tt.wantErr {
				t.Fatalf("QueryKind() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("QueryKind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def", "abc.def", true},
		{"bearer abc", "abc", true},
		{"Basic abc", "", false},
		{"Bearer ", "", false},
		{"abc", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, ok := bearerToken(tt.header)
			if got != tt.want || ok != tt.ok {
				t.Errorf("bearerToken(%q) = %q, %v, want %q, %v", tt.header, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  Food\x00\x07 \n"); got != "Food" {
		t.Errorf("sanitizeInput() = %q, want %q", got, "Food")
	}
	if got := sanitizeInput("a\tb"); got != "a\tb" {
		t.Errorf("sanitizeInput() = %q, want tab kept", got)
	}
}
