package log

import (
	"context"
	"log/slog"
	"net/http"
)

type ctxKey struct{}

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger stored by Middleware or NewContext, falling
// back to the process default.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// Middleware puts logger in every request context, tagged with the request
// id when requestID yields one.
func Middleware(logger *Logger, requestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := logger
			if requestID != nil {
				if id := requestID(r); id != "" {
					l = l.With(FieldRequestID, id)
				}
			}
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), l)))
		})
	}
}

// StructuredLogger writes the events whose field set is fixed, so log
// queries can rely on the keys.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogTransactionCreated logs a stored transaction
func (sl *StructuredLogger) LogTransactionCreated(ctx context.Context, ownerID, id, kind, amount, category string) {
	fields := NewFields().
		WithTransaction(id, kind, amount, category).
		WithOwner(ownerID).
		WithOperation(OpCreate)

	sl.logger.InfoContext(ctx, "Transaction created", fields.ToSlice()...)
}

// LogRuleMaterialized logs a transaction generated by a recurring rule.
func (sl *StructuredLogger) LogRuleMaterialized(ctx context.Context, ownerID, ruleID, transactionID, amount, frequency string) {
	fields := NewFields().
		WithRule(ruleID, frequency).
		WithOwner(ownerID).
		WithOperation(OpProcess)
	fields[FieldTransactionID] = transactionID
	fields[FieldAmount] = amount

	sl.logger.InfoContext(ctx, "Created transaction from recurring rule", fields.ToSlice()...)
}

// LogRequestFailed logs an unexpected failure of an API operation. ownerID
// may be empty for unauthenticated routes.
func (sl *StructuredLogger) LogRequestFailed(ctx context.Context, operation, ownerID string, err error) {
	fields := NewFields().
		WithOperation(operation).
		WithError(err)
	if ownerID != "" {
		fields.WithOwner(ownerID)
	}

	sl.logger.ErrorContext(ctx, "Request failed", fields.ToSlice()...)
}
