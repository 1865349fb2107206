package voice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rknm-cell/mise/backend/internal/apperr"
	"github.com/rknm-cell/mise/backend/internal/observability"
	"github.com/rknm-cell/mise/backend/internal/service/assistant"
	"github.com/rknm-cell/mise/backend/internal/service/session"
	"github.com/rknm-cell/mise/backend/pkg/utils"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	pingInterval = 54 * time.Second
)

// Message types sent by the client.
const (
	inboundUtterance = "utterance"
	inboundEnd       = "end"
)

// Handler serves the voice assistant websocket and session snapshots.
type Handler struct {
	assistant     *assistant.Assistant
	sessions      *session.Manager
	exposeDetails bool
	upgrader      websocket.Upgrader
	log           *zap.Logger
}

// New creates a voice handler.
func New(asst *assistant.Assistant, sessions *session.Manager, exposeDetails bool, log *zap.Logger) *Handler {
	return &Handler{
		assistant:     asst,
		sessions:      sessions,
		exposeDetails: exposeDetails,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: log,
	}
}

// RegisterRoutes mounts the voice routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/voice/ws", h.handleWebSocket)
	r.Get("/voice/sessions", h.handleSessions)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (h *Handler) handleSessions(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, map[string]any{"sessions": h.sessions.Sessions()})
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	recipe := assistant.Recipe{
		ID:          strings.TrimSpace(query.Get("recipeId")),
		Name:        strings.TrimSpace(query.Get("recipeName")),
		Description: strings.TrimSpace(query.Get("recipeDescription")),
	}
	if recipe.ID == "" {
		utils.RespondError(w, http.StatusBadRequest, "recipeId is required")
		return
	}
	if raw := query.Get("totalSteps"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			utils.RespondError(w, http.StatusBadRequest, "invalid totalSteps")
			return
		}
		recipe.TotalSteps = n
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	observability.ActiveVoiceSessions.Inc()
	defer observability.ActiveVoiceSessions.Dec()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var writeMu sync.Mutex
	emit := func(e assistant.Event) {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(e); err != nil {
			h.log.Debug("websocket write failed", zap.Error(err))
			cancel()
		}
	}

	conv, err := h.assistant.Open(ctx, recipe, query.Get("wakePhrase"), emit)
	if err != nil {
		h.emitError(emit, err)
		return
	}
	log := h.log.With(zap.String("session_id", conv.SessionID()))
	log.Info("voice connection opened", zap.String("recipe_id", recipe.ID))

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	go pingLoop(ctx, conn)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		switch msg.Type {
		case inboundUtterance:
			var u assistant.Utterance
			if err := json.Unmarshal(msg.Data, &u); err != nil {
				emit(assistant.Event{Type: assistant.EventError, Data: assistant.ErrorData{Message: "invalid utterance"}})
				continue
			}
			if err := conv.Handle(ctx, u); err != nil {
				h.emitError(emit, err)
			}
		case inboundEnd:
			conv.End(ctx)
			log.Info("voice session ended by client")
			return
		default:
			emit(assistant.Event{Type: assistant.EventError, Data: assistant.ErrorData{Message: "unknown message type"}})
		}
	}
}

func (h *Handler) emitError(emit assistant.Emitter, err error) {
	data := assistant.ErrorData{Message: "failed to process chat message"}
	switch {
	case apperr.IsValidation(err):
		data.Message = err.Error()
	case errors.Is(err, assistant.ErrSessionEnded):
		data.Message = err.Error()
	default:
		h.log.Error("voice turn failed", zap.Error(err))
		if h.exposeDetails {
			data.Details = err.Error()
		}
	}
	emit(assistant.Event{Type: assistant.EventError, Data: data})
}

func pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

func (h *Handler) respond(w http.ResponseWriter, status int, payload any) {
	if err := utils.RespondJSON(w, status, payload); err != nil {
		h.log.Error("failed to write response", zap.Error(err))
	}
}
