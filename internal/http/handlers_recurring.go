package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/services"

	"github.com/shopspring/decimal"
)

type createRecurringRequest struct {
	Amount      *decimal.Decimal `json:"amount" validate:"required"`
	Type        core.Kind        `json:"type" validate:"required,oneof=EXPENSE INCOME"`
	Category    string           `json:"category" validate:"required,notblank,max=100"`
	Description string           `json:"description" validate:"max=500"`
	Frequency   core.Frequency   `json:"frequency" validate:"required,oneof=DAILY WEEKLY MONTHLY YEARLY"`
	Interval    *int             `json:"interval" validate:"omitempty,min=1"`
	StartDate   string           `json:"startDate" validate:"required"`
	EndDate     *string          `json:"endDate"`
}

type updateRecurringRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	Category    *string          `json:"category" validate:"omitempty,notblank,max=100"`
	Description *string          `json:"description" validate:"omitempty,max=500"`
	Frequency   *core.Frequency  `json:"frequency" validate:"omitempty,oneof=DAILY WEEKLY MONTHLY YEARLY"`
	Interval    *int             `json:"interval" validate:"omitempty,min=1"`
	EndDate     NullableDate     `json:"endDate"`
	IsActive    *bool            `json:"isActive"`
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req createRecurringRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		respondError(w, r, "create_recurring", err)
		return
	}
	start, err := parseOptionalDate("startDate", &req.StartDate)
	if err != nil {
		respondError(w, r, "create_recurring", err)
		return
	}
	end, err := parseOptionalDate("endDate", req.EndDate)
	if err != nil {
		respondError(w, r, "create_recurring", err)
		return
	}

	interval := 1
	if req.Interval != nil {
		interval = *req.Interval
	}

	rule, err := s.svc.Recurring.Create(r.Context(), callerID(r), services.CreateRuleInput{
		Amount:      *req.Amount,
		Kind:        req.Type,
		Category:    sanitizeInput(req.Category),
		Description: sanitizeInput(req.Description),
		Frequency:   req.Frequency,
		Interval:    interval,
		StartDate:   *start,
		EndDate:     end,
	})
	if err != nil {
		respondError(w, r, "create_recurring", err)
		return
	}
	NewResponse().Status(http.StatusCreated).Data(map[string]any{"recurring": rule}).Write(w)
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	rules, err := s.svc.Recurring.List(r.Context(), callerID(r))
	if err != nil {
		respondError(w, r, "list_recurring", err)
		return
	}
	if rules == nil {
		rules = []core.RecurringRule{}
	}
	NewResponse().Data(map[string]any{"recurring": rules}).Write(w)
}

func (s *Server) handleGetRecurring(w http.ResponseWriter, r *http.Request) {
	rule, err := s.svc.Recurring.Get(r.Context(), callerID(r), r.PathValue("id"))
	if err != nil {
		respondError(w, r, "get_recurring", err)
		return
	}
	NewResponse().Data(map[string]any{"recurring": rule}).Write(w)
}

func (s *Server) handleUpdateRecurring(w http.ResponseWriter, r *http.Request) {
	var req updateRecurringRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		respondError(w, r, "update_recurring", err)
		return
	}

	in := services.UpdateRuleInput{
		Amount:      req.Amount,
		Category:    sanitizePtr(req.Category),
		Description: sanitizePtr(req.Description),
		Frequency:   req.Frequency,
		Interval:    req.Interval,
		IsActive:    req.IsActive,
	}
	if req.EndDate.Set {
		end, err := parseOptionalDate("endDate", req.EndDate.Value)
		if err != nil {
			respondError(w, r, "update_recurring", err)
			return
		}
		in.EndDate = services.TimeUpdate{Set: true, Value: end}
	}

	rule, err := s.svc.Recurring.Update(r.Context(), callerID(r), r.PathValue("id"), in)
	if err != nil {
		respondError(w, r, "update_recurring", err)
		return
	}
	NewResponse().Data(map[string]any{"recurring": rule}).Write(w)
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Recurring.Delete(r.Context(), callerID(r), r.PathValue("id")); err != nil {
		respondError(w, r, "delete_recurring", err)
		return
	}
	NewResponse().Message("Recurring transaction deleted").Write(w)
}

// handleProcessRecurring materializes the caller's due rules now. Rules
// handled before a failure stay committed, so stats are invalidated either way.
func (s *Server) handleProcessRecurring(w http.ResponseWriter, r *http.Request) {
	ownerID := callerID(r)
	result, err := s.svc.Recurring.Process(r.Context(), ownerID)
	if result.Processed > 0 {
		s.InvalidateStats(ownerID)
	}
	if err != nil {
		respondError(w, r, "process_recurring", err)
		return
	}
	NewResponse().Data(result).Write(w)
}
