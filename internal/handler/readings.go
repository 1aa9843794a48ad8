package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/arcana-app/credits-server-go/internal/errors"
	"github.com/arcana-app/credits-server-go/internal/middleware"
	"github.com/arcana-app/credits-server-go/internal/model"
	"github.com/arcana-app/credits-server-go/internal/service"
)

const maxQuestionLength = 500

type ReadingsHandler struct {
	readingService *service.ReadingService
}

func NewReadingsHandler(readingService *service.ReadingService) *ReadingsHandler {
	return &ReadingsHandler{
		readingService: readingService,
	}
}

func (h *ReadingsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)

	return r
}

type createReadingRequest struct {
	Mode     string `json:"mode"`
	Question string `json:"question"`
}

// POST /v1/readings
func (h *ReadingsHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Missing user identity"})
		return
	}

	var req createReadingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}
	if req.Mode == "" {
		writeError(w, apperrors.MissingRequired("mode"))
		return
	}

	question := strings.TrimSpace(req.Question)
	if len(question) > maxQuestionLength {
		writeError(w, apperrors.InvalidInput("question", "too long"))
		return
	}

	result, err := h.readingService.Perform(r.Context(), userID, model.FeatureKey(req.Mode), question)
	if err != nil {
		if code := apperrors.GetCode(err); code == apperrors.ErrCodeInternal || code == apperrors.ErrCodeDatabase {
			log.Error().Err(err).Str("userId", userID).Msg("reading request failed")
		}
		writeError(w, err)
		return
	}

	if !result.Granted {
		writeError(w, apperrors.InsufficientFunds(result.NewBalance))
		return
	}

	writeJSON(w, http.StatusOK, result)
}
