package http

import (
	"net/http"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/services"

	"github.com/shopspring/decimal"
)

type quickEntryRequest struct {
	Amount   *decimal.Decimal `json:"amount" validate:"required"`
	Category string           `json:"category" validate:"required,notblank,max=100"`
	Type     core.Kind        `json:"type" validate:"omitempty,oneof=EXPENSE INCOME"`
}

type createTransactionRequest struct {
	Amount      *decimal.Decimal `json:"amount" validate:"required"`
	Type        core.Kind        `json:"type" validate:"required,oneof=EXPENSE INCOME"`
	Category    string           `json:"category" validate:"required,notblank,max=100"`
	Description string           `json:"description" validate:"max=500"`
	Date        *string          `json:"date"`
}

type updateTransactionRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	Type        *core.Kind       `json:"type" validate:"omitempty,oneof=EXPENSE INCOME"`
	Category    *string          `json:"category" validate:"omitempty,notblank,max=100"`
	Description *string          `json:"description" validate:"omitempty,max=500"`
	Date        *string          `json:"date"`
}

func (s *Server) handleQuickEntry(w http.ResponseWriter, r *http.Request) {
	var req quickEntryRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		respondError(w, r, "quick_entry", err)
		return
	}

	ownerID := callerID(r)
	t, err := s.svc.Transactions.QuickEntry(r.Context(), ownerID, services.QuickEntryInput{
		Amount:   *req.Amount,
		Category: sanitizeInput(req.Category),
		Kind:     req.Type,
	})
	if err != nil {
		respondError(w, r, "quick_entry", err)
		return
	}
	s.InvalidateStats(ownerID)
	NewResponse().Status(http.StatusCreated).Data(map[string]any{"transaction": t}).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		respondError(w, r, "create_transaction", err)
		return
	}
	date, err := parseOptionalDate("date", req.Date)
	if err != nil {
		respondError(w, r, "create_transaction", err)
		return
	}

	ownerID := callerID(r)
	t, err := s.svc.Transactions.Create(r.Context(), ownerID, services.CreateTransactionInput{
		Amount:      *req.Amount,
		Kind:        req.Type,
		Category:    sanitizeInput(req.Category),
		Description: sanitizeInput(req.Description),
		Date:        date,
	})
	if err != nil {
		respondError(w, r, "create_transaction", err)
		return
	}
	s.InvalidateStats(ownerID)
	NewResponse().Status(http.StatusCreated).Data(map[string]any{"transaction": t}).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind, err := QueryKind(r)
	if err != nil {
		respondError(w, r, "list_transactions", err)
		return
	}
	filter := services.TransactionFilter{
		Category: sanitizeInput(q.Get("category")),
		Kind:     kind,
		Limit:    QueryInt(r, "limit", services.DefaultListLimit),
	}
	if start, end := strings.TrimSpace(q.Get("startDate")), strings.TrimSpace(q.Get("endDate")); start != "" && end != "" {
		if filter.From, err = parseOptionalDate("startDate", &start); err != nil {
			respondError(w, r, "list_transactions", err)
			return
		}
		if filter.To, err = parseOptionalDate("endDate", &end); err != nil {
			respondError(w, r, "list_transactions", err)
			return
		}
	}

	items, err := s.svc.Transactions.List(r.Context(), callerID(r), filter)
	if err != nil {
		respondError(w, r, "list_transactions", err)
		return
	}
	NewResponse().Data(map[string]any{
		"transactions": items,
		"count":        len(items),
	}).Write(w)
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	suggestions, err := s.svc.Transactions.Suggestions(r.Context(), callerID(r))
	if err != nil {
		respondError(w, r, "category_suggestions", err)
		return
	}
	NewResponse().Data(map[string]any{"suggestions": suggestions}).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.Transactions.Get(r.Context(), callerID(r), r.PathValue("id"))
	if err != nil {
		respondError(w, r, "get_transaction", err)
		return
	}
	NewResponse().Data(map[string]any{"transaction": t}).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req updateTransactionRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		respondError(w, r, "update_transaction", err)
		return
	}
	date, err := parseOptionalDate("date", req.Date)
	if err != nil {
		respondError(w, r, "update_transaction", err)
		return
	}

	ownerID := callerID(r)
	t, err := s.svc.Transactions.Update(r.Context(), ownerID, r.PathValue("id"), services.UpdateTransactionInput{
		Amount:      req.Amount,
		Kind:        req.Type,
		Category:    sanitizePtr(req.Category),
		Description: sanitizePtr(req.Description),
		Date:        date,
	})
	if err != nil {
		respondError(w, r, "update_transaction", err)
		return
	}
	s.InvalidateStats(ownerID)
	NewResponse().Data(map[string]any{"transaction": t}).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ownerID := callerID(r)
	if err := s.svc.Transactions.Delete(r.Context(), ownerID, r.PathValue("id")); err != nil {
		respondError(w, r, "delete_transaction", err)
		return
	}
	s.InvalidateStats(ownerID)
	NewResponse().Status(http.StatusNoContent).Write(w)
}
