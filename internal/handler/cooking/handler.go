package cooking

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rknm-cell/mise/backend/internal/apperr"
	"github.com/rknm-cell/mise/backend/internal/model/chat"
	cookingService "github.com/rknm-cell/mise/backend/internal/service/cooking"
	"github.com/rknm-cell/mise/backend/pkg/utils"
)

const genericFailure = "failed to process chat message"

// Handler serves the cooking chat endpoints.
type Handler struct {
	svc           *cookingService.Service
	exposeDetails bool
	log           *zap.Logger
}

// New creates a handler. exposeDetails attaches raw error text to 500
// responses and must be false in production.
func New(svc *cookingService.Service, exposeDetails bool, log *zap.Logger) *Handler {
	return &Handler{svc: svc, exposeDetails: exposeDetails, log: log}
}

// RegisterRoutes mounts the cooking chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/cooking-chat", h.handleChat)
	r.Post("/cooking-chat/suggestions", h.handleSuggestions)
	r.Post("/cooking-chat/substitutions", h.handleSubstitutions)
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload chat.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.svc.Chat(r.Context(), payload)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respond(w, http.StatusOK, resp)
}

func (h *Handler) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	var payload chat.SuggestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items, err := h.svc.Suggestions(r.Context(), payload)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respond(w, http.StatusOK, chat.SuggestionsResponse{Suggestions: items})
}

func (h *Handler) handleSubstitutions(w http.ResponseWriter, r *http.Request) {
	var payload chat.SubstitutionsRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items, err := h.svc.Substitutions(r.Context(), payload)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respond(w, http.StatusOK, chat.SubstitutionsResponse{Substitutions: items})
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	if apperr.IsValidation(err) {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.log.Error("cooking request failed", zap.Error(err))
	details := ""
	if h.exposeDetails {
		details = err.Error()
	}
	utils.RespondErrorDetails(w, http.StatusInternalServerError, genericFailure, details)
}

func (h *Handler) respond(w http.ResponseWriter, status int, payload any) {
	if err := utils.RespondJSON(w, status, payload); err != nil {
		h.log.Error("failed to write response", zap.Error(err))
	}
}
