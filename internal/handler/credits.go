package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/arcana-app/credits-server-go/internal/middleware"
	"github.com/arcana-app/credits-server-go/internal/service"
)

type CreditsHandler struct {
	balanceService *service.BalanceService
}

func NewCreditsHandler(balanceService *service.BalanceService) *CreditsHandler {
	return &CreditsHandler{
		balanceService: balanceService,
	}
}

func (h *CreditsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.GetBalance)

	return r
}

// GET /v1/credits
//
// Never fails: storage trouble degrades to a zero balance with source "none",
// so a balance badge in the client keeps rendering.
func (h *CreditsHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Missing user identity"})
		return
	}

	balance := h.balanceService.GetBalance(r.Context(), userID)
	writeJSON(w, http.StatusOK, balance)
}
