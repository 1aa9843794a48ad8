package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/arcana-app/credits-server-go/internal/errors"
	"github.com/arcana-app/credits-server-go/internal/model"
	"github.com/arcana-app/credits-server-go/internal/service"
)

// AdminHandler exposes the privileged ledger operations. The admin auth
// middleware is attached by the router, not here.
type AdminHandler struct {
	adminService *service.AdminService
}

func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
	}
}

func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/credits/topup", h.TopUp)
	r.Patch("/credits/quota", h.SetQuota)
	r.Get("/credits/transactions", h.ListTransactions)

	return r
}

type topUpRequest struct {
	UserID string `json:"userId"`
	Amount int64  `json:"amount"`
	Note   string `json:"note"`
}

// POST /admin/credits/topup
func (h *AdminHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	var req topUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}
	if req.UserID == "" {
		writeError(w, apperrors.MissingRequired("userId"))
		return
	}

	newBalance, err := h.adminService.TopUp(r.Context(), req.UserID, req.Amount, req.Note)
	if err != nil {
		log.Error().Err(err).Str("userId", req.UserID).Msg("top-up failed")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"userId":     req.UserID,
		"amount":     req.Amount,
		"newBalance": newBalance,
	})
}

type setQuotaRequest struct {
	UserID       string `json:"userId"`
	DailyQuota   *int64 `json:"dailyQuota"`
	MonthlyQuota *int64 `json:"monthlyQuota"`
	ClearDaily   bool   `json:"clearDaily"`
	ClearMonthly bool   `json:"clearMonthly"`
}

// PATCH /admin/credits/quota
func (h *AdminHandler) SetQuota(w http.ResponseWriter, r *http.Request) {
	var req setQuotaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}
	if req.UserID == "" {
		writeError(w, apperrors.MissingRequired("userId"))
		return
	}
	if req.DailyQuota != nil && *req.DailyQuota < 0 {
		writeError(w, apperrors.InvalidInput("dailyQuota", "must be non-negative"))
		return
	}
	if req.MonthlyQuota != nil && *req.MonthlyQuota < 0 {
		writeError(w, apperrors.InvalidInput("monthlyQuota", "must be non-negative"))
		return
	}

	account, err := h.adminService.SetQuota(r.Context(), req.UserID, model.QuotaUpdateParams{
		DailyQuota:   req.DailyQuota,
		MonthlyQuota: req.MonthlyQuota,
		ClearDaily:   req.ClearDaily,
		ClearMonthly: req.ClearMonthly,
	})
	if err != nil {
		log.Error().Err(err).Str("userId", req.UserID).Msg("quota update failed")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, account)
}

// GET /admin/credits/transactions?userId=...&limit=...&offset=...
func (h *AdminHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, apperrors.MissingRequired("userId"))
		return
	}

	pagination := ParsePagination(r)

	txns, err := h.adminService.ListTransactions(r.Context(), userID, pagination.Limit, pagination.Offset)
	if err != nil {
		log.Error().Err(err).Str("userId", userID).Msg("transaction listing failed")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": txns,
		"limit":        pagination.Limit,
		"offset":       pagination.Offset,
	})
}
