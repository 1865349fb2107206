package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rknm-cell/mise/backend/internal/handler/cooking"
	"github.com/rknm-cell/mise/backend/internal/handler/timer"
	"github.com/rknm-cell/mise/backend/internal/handler/voice"
	"github.com/rknm-cell/mise/backend/internal/service/assistant"
	cookingService "github.com/rknm-cell/mise/backend/internal/service/cooking"
	"github.com/rknm-cell/mise/backend/internal/service/session"
	timerService "github.com/rknm-cell/mise/backend/internal/service/timer"
	"github.com/rknm-cell/mise/backend/pkg/utils"
)

// Dependencies are the services exposed over HTTP. Cooking and Assistant
// are nil when no language model is configured.
type Dependencies struct {
	Cooking       *cookingService.Service
	Assistant     *assistant.Assistant
	Timers        *timerService.Registry
	Sessions      *session.Manager
	ExposeDetails bool
	Log           *zap.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"}); err != nil {
			deps.Log.Error("failed to write health response", zap.Error(err))
		}
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		timer.New(deps.Timers, deps.Log).RegisterRoutes(api)

		if deps.Cooking != nil {
			cooking.New(deps.Cooking, deps.ExposeDetails, deps.Log).RegisterRoutes(api)
		} else {
			api.Post("/cooking-chat", unavailable)
			api.Post("/cooking-chat/*", unavailable)
		}

		if deps.Assistant != nil {
			voice.New(deps.Assistant, deps.Sessions, deps.ExposeDetails, deps.Log).RegisterRoutes(api)
		} else {
			api.Get("/voice/*", unavailable)
		}
	})

	return r
}

func unavailable(w http.ResponseWriter, _ *http.Request) {
	utils.RespondError(w, http.StatusServiceUnavailable, "cooking assistant unavailable")
}
