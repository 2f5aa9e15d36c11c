package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewHandler_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: ComponentRecurring, Handler: NewHandler(&buf, slog.LevelInfo, "json")})

	logger.InfoContext(context.Background(), "Processed due rules", FieldOwnerID, "u1", FieldProcessed, 2)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if entry["component"] != ComponentRecurring || entry["owner_id"] != "u1" {
		t.Errorf("entry = %v", entry)
	}
}

func TestNewHandler_TextFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: "app", Handler: NewHandler(&buf, slog.LevelWarn, "text")})

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("output = %q", out)
	}
}

func TestLogFields(t *testing.T) {
	f := NewFields().
		WithOwner("u1").
		WithTransaction("tx-1", "EXPENSE", "10.00", "Food").
		WithRule("r-1", "MONTHLY").
		WithError(errors.New("boom")).
		WithError(nil)

	if f[FieldOwnerID] != "u1" || f[FieldTransactionID] != "tx-1" || f[FieldError] != "boom" || f[FieldRuleID] != "r-1" {
		t.Errorf("fields = %v", f)
	}
	if got := len(f.ToSlice()); got != 2*len(f) {
		t.Errorf("ToSlice() len = %d, want %d", got, 2*len(f))
	}
}

func TestFromContext_Default(t *testing.T) {
	if l := FromContext(context.Background()); l.Component() != "unknown" {
		t.Errorf("FromContext().Component() = %q, want unknown", l.Component())
	}
}

func jsonLogger(buf *bytes.Buffer, component string) *Logger {
	return New(Config{Component: component, Handler: NewHandler(buf, slog.LevelDebug, "json")})
}

func TestWithComponent_TagsOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := jsonLogger(&buf, ComponentApp).WithComponent(ComponentHTTP)

	logger.Info("hello")

	out := buf.String()
	if got := strings.Count(out, `"component"`); got != 1 {
		t.Errorf("component keys = %d, want 1 (%s)", got, out)
	}
	if !strings.Contains(out, `"component":"http"`) {
		t.Errorf("output = %s, want component http", out)
	}
}

func TestMiddleware_AttachesRequestID(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		wantID bool
	}{
		{"with id", "req-42", true},
		{"empty id", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := Middleware(jsonLogger(&buf, ComponentHTTP), func(*http.Request) string { return tt.id })(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					FromContext(r.Context()).InfoContext(r.Context(), "handled")
				}))

			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
			}
			_, has := entry[FieldRequestID]
			if has != tt.wantID || (tt.wantID && entry[FieldRequestID] != tt.id) {
				t.Errorf("request_id = %v, want present=%v", entry[FieldRequestID], tt.wantID)
			}
			if entry[FieldComponent] != ComponentHTTP {
				t.Errorf("component = %v, want %s", entry[FieldComponent], ComponentHTTP)
			}
		})
	}
}

func TestStructuredLogger_Events(t *testing.T) {
	tests := []struct {
		name    string
		log     func(*StructuredLogger)
		wantMsg string
		want    map[string]any
	}{
		{
			name: "rule materialized",
			log: func(sl *StructuredLogger) {
				sl.LogRuleMaterialized(context.Background(), "u1", "r1", "tx1", "9.99", "WEEKLY")
			},
			wantMsg: "Created transaction from recurring rule",
			want: map[string]any{
				FieldOwnerID: "u1", FieldRuleID: "r1", FieldTransactionID: "tx1",
				FieldAmount: "9.99", FieldFrequency: "WEEKLY", FieldOperation: OpProcess,
			},
		},
		{
			name: "request failed",
			log: func(sl *StructuredLogger) {
				sl.LogRequestFailed(context.Background(), "create transaction", "u1", errors.New("disk full"))
			},
			wantMsg: "Request failed",
			want: map[string]any{
				FieldOwnerID: "u1", FieldOperation: "create transaction", FieldError: "disk full", "level": "ERROR",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(NewStructuredLogger(jsonLogger(&buf, ComponentRecurring)))

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
			}
			if entry["msg"] != tt.wantMsg {
				t.Errorf("msg = %v, want %q", entry["msg"], tt.wantMsg)
			}
			for k, v := range tt.want {
				if entry[k] != v {
					t.Errorf("%s = %v, want %v", k, entry[k], v)
				}
			}
		})
	}
}

func TestStructuredLogger_RequestFailedWithoutOwner(t *testing.T) {
	var buf bytes.Buffer
	NewStructuredLogger(jsonLogger(&buf, ComponentHTTP)).
		LogRequestFailed(context.Background(), "login", "", errors.New("boom"))

	if strings.Contains(buf.String(), FieldOwnerID) {
		t.Errorf("output = %s, want no owner_id", buf.String())
	}
}

func TestSlog_CarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	jsonLogger(&buf, ComponentApp).WithComponent(ComponentSheets).Slog().Info("appended")

	if !strings.Contains(buf.String(), `"component":"sheets"`) {
		t.Errorf("output = %s, want component sheets", buf.String())
	}
}
