package timer

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rknm-cell/mise/backend/internal/apperr"
	timerService "github.com/rknm-cell/mise/backend/internal/service/timer"
	"github.com/rknm-cell/mise/backend/pkg/utils"
)

// Handler serves the timer registry over HTTP.
type Handler struct {
	registry *timerService.Registry
	log      *zap.Logger
}

// New creates a timer handler.
func New(registry *timerService.Registry, log *zap.Logger) *Handler {
	return &Handler{registry: registry, log: log}
}

// RegisterRoutes mounts the timer routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/timer", func(r chi.Router) {
		r.Post("/create", h.handleCreate)
		r.Post("/start", h.handleStart)
		r.Post("/stop", h.handleStop)
		r.Get("/list", h.handleList)
		r.Get("/{timerID}", h.handleGet)
		r.Delete("/{timerID}", h.handleDelete)
	})
}

type createPayload struct {
	Duration    int    `json:"duration"`
	Description string `json:"description"`
	Stage       string `json:"stage"`
	RecipeID    string `json:"recipeId"`
	StepNumber  *int   `json:"stepNumber"`
}

type idPayload struct {
	TimerID string `json:"timerId"`
}

// Actions reported by the mutating endpoints.
const (
	actionCreated = "created"
	actionStarted = "started"
	actionStopped = "stopped"
	actionDeleted = "deleted"
)

type timerResponse struct {
	TimerID     string `json:"timerId"`
	Duration    int    `json:"duration"`
	Description string `json:"description"`
	Stage       string `json:"stage"`
	Message     string `json:"message"`
	Action      string `json:"action"`
}

type deleteResponse struct {
	Message string `json:"message"`
	Action  string `json:"action"`
}

func newTimerResponse(res timerService.Result, action string) timerResponse {
	return timerResponse{
		TimerID:     res.Timer.ID,
		Duration:    res.Timer.Duration,
		Description: res.Timer.Description,
		Stage:       res.Timer.Stage,
		Message:     res.Message,
		Action:      action,
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload createPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.registry.Create(r.Context(), timerService.CreateRequest{
		Duration:    payload.Duration,
		Description: payload.Description,
		Stage:       payload.Stage,
		RecipeID:    payload.RecipeID,
		StepNumber:  payload.StepNumber,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, newTimerResponse(res, actionCreated))
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	id, ok := decodeTimerID(w, r)
	if !ok {
		return
	}
	res, err := h.registry.Start(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, newTimerResponse(res, actionStarted))
}

func (h *Handler) handleStop(w http.ResponseWriter, r *http.Request) {
	id, ok := decodeTimerID(w, r)
	if !ok {
		return
	}
	res, err := h.registry.Stop(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, newTimerResponse(res, actionStopped))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	timers, err := h.registry.List(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]any{"timers": timers})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	t, err := h.registry.Get(r.Context(), chi.URLParam(r, "timerID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, t)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	msg, err := h.registry.Delete(r.Context(), chi.URLParam(r, "timerID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, deleteResponse{Message: msg, Action: actionDeleted})
}

func decodeTimerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var payload idPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}
	id := strings.TrimSpace(payload.TimerID)
	if id == "" {
		utils.RespondError(w, http.StatusBadRequest, "timerId is required")
		return "", false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case apperr.IsValidation(err):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, timerService.ErrNotFound):
		utils.RespondError(w, http.StatusNotFound, "timer not found")
	default:
		h.log.Error("timer request failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to process timer request")
	}
}

func (h *Handler) respond(w http.ResponseWriter, status int, payload any) {
	if err := utils.RespondJSON(w, status, payload); err != nil {
		h.log.Error("failed to write response", zap.Error(err))
	}
}
