package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"bilancio/internal/core"
	"bilancio/internal/services"
)

type (
	createFamilyRequest struct {
		Name          string `json:"name"`
		MonthlyBudget string `json:"monthly_budget,omitempty"`
	}

	updateBudgetRequest struct {
		MonthlyBudget string `json:"monthly_budget"`
	}

	familyResponse struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		MonthlyBudget string `json:"monthly_budget,omitempty"`
		BudgetCents   int64  `json:"budget_cents"`
		CreatedAt     string `json:"created_at"`
	}

	expenseRequest struct {
		Description string `json:"description"`
		Amount      string `json:"amount"`
		Date        string `json:"date"`
	}

	expenseResponse struct {
		ID          string `json:"id"`
		FamilyID    string `json:"family_id"`
		Description string `json:"description"`
		AmountCents int64  `json:"amount_cents"`
		Amount      string `json:"amount"`
		Date        string `json:"date"`
	}

	notificationResponse struct {
		ID         string `json:"id"`
		FamilyID   string `json:"family_id"`
		Type       string `json:"type"`
		Title      string `json:"title"`
		Message    string `json:"message"`
		AlertMonth string `json:"alert_month"`
		IsRead     bool   `json:"is_read"`
		CreatedAt  string `json:"created_at"`
	}

	notificationListResponse struct {
		Notifications []notificationResponse `json:"notifications"`
		UnreadCount   int64                  `json:"unread_count"`
	}

	unreadCountResponse struct {
		UnreadCount int64 `json:"unread_count"`
	}
)

func toFamilyResponse(f core.Family) familyResponse {
	resp := familyResponse{
		ID:          string(f.ID),
		Name:        f.Name,
		BudgetCents: f.MonthlyBudget.Cents,
		CreatedAt:   f.CreatedAt.UTC().Format(time.RFC3339),
	}
	if f.MonthlyBudget.Cents > 0 {
		resp.MonthlyBudget = f.MonthlyBudget.Format()
	}
	return resp
}

func toExpenseResponse(e core.Expense) expenseResponse {
	return expenseResponse{
		ID:          e.ID,
		FamilyID:    string(e.FamilyID),
		Description: e.Description,
		AmountCents: e.Amount.Cents,
		Amount:      e.Amount.Format(),
		Date:        e.Date.UTC().Format("2006-01-02"),
	}
}

func toNotificationResponse(n core.Notification) notificationResponse {
	return notificationResponse{
		ID:         n.ID,
		FamilyID:   string(n.FamilyID),
		Type:       n.Type,
		Title:      n.Title,
		Message:    n.Message,
		AlertMonth: string(n.AlertMonth),
		IsRead:     n.IsRead,
		CreatedAt:  n.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func parseBudget(s string) (core.Money, error) {
	if s == "" {
		return core.Money{}, nil
	}
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return core.Money{}, core.ErrInvalidBudget
	}
	return core.Money{Cents: cents}, nil
}

func (h *Handler) CreateFamily(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		unauthorized(w)
		return
	}

	var req createFamilyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, core.ErrInvalidInput)
		return
	}
	budget, err := parseBudget(req.MonthlyBudget)
	if err != nil {
		writeError(w, err)
		return
	}

	f, err := h.families.CreateFamily(r.Context(), services.CreateFamilyRequest{
		Actor:  actor,
		Name:   req.Name,
		Budget: budget,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toFamilyResponse(f))
}

func (h *Handler) GetFamily(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		unauthorized(w)
		return
	}

	f, err := h.families.GetFamily(r.Context(), services.GetFamilyRequest{
		Actor:    actor,
		FamilyID: core.FamilyID(chi.URLParam(r, "familyID")),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFamilyResponse(f))
}

func (h *Handler) UpdateBudget(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		unauthorized(w)
		return
	}

	var req updateBudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, core.ErrInvalidInput)
		return
	}
	budget, err := parseBudget(req.MonthlyBudget)
	if err != nil {
		writeError(w, err)
		return
	}

	f, err := h.families.UpdateBudget(r.Context(), services.UpdateBudgetRequest{
		Actor:    actor,
		FamilyID: core.FamilyID(chi.URLParam(r, "familyID")),
		Budget:   budget,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFamilyResponse(f))
}

func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		unauthorized(w)
		return
	}

	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, core.ErrInvalidInput)
		return
	}
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, err)
		return
	}

	e, err := h.expenses.CreateExpense(r.Context(), services.CreateExpenseRequest{
		Actor:       actor,
		FamilyID:    core.FamilyID(chi.URLParam(r, "familyID")),
		Description: req.Description,
		Amount:      core.Money{Cents: cents},
		Date:        date,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseResponse(e))
}

func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		unauthorized(w)
		return
	}

	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, core.ErrInvalidInput)
		return
	}
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, err)
		return
	}

	e, err := h.expenses.UpdateExpense(r.Context(), services.UpdateExpenseRequest{
		Actor:       actor,
		FamilyID:    core.FamilyID(chi.URLParam(r, "familyID")),
		ExpenseID:   chi.URLParam(r, "expenseID"),
		Description: req.Description,
		Amount:      core.Money{Cents: cents},
		Date:        date,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseResponse(e))
}

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		unauthorized(w)
		return
	}

	list, err := h.notifications.ListFamilyNotifications(r.Context(), services.FamilyNotificationsRequest{
		Actor:    actor,
		FamilyID: core.FamilyID(chi.URLParam(r, "familyID")),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	resp := notificationListResponse{
		Notifications: make([]notificationResponse, len(list.Notifications)),
		UnreadCount:   list.UnreadCount,
	}
	for i, n := range list.Notifications {
		resp.Notifications[i] = toNotificationResponse(n)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		unauthorized(w)
		return
	}

	count, err := h.notifications.UnreadCount(r.Context(), services.FamilyNotificationsRequest{
		Actor:    actor,
		FamilyID: core.FamilyID(chi.URLParam(r, "familyID")),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, unreadCountResponse{UnreadCount: count})
}

func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		unauthorized(w)
		return
	}

	err := h.notifications.MarkAllAsRead(r.Context(), services.FamilyNotificationsRequest{
		Actor:    actor,
		FamilyID: core.FamilyID(chi.URLParam(r, "familyID")),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		unauthorized(w)
		return
	}

	n, err := h.notifications.MarkAsRead(r.Context(), actor, chi.URLParam(r, "notificationID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toNotificationResponse(n))
}
