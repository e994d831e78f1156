package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/alexivanou/roamai/internal/chat"
	"github.com/alexivanou/roamai/internal/coordinator"
	"github.com/alexivanou/roamai/internal/events"
	"github.com/alexivanou/roamai/internal/model"
	"github.com/alexivanou/roamai/internal/repository"
	"github.com/alexivanou/roamai/internal/service"
	"github.com/alexivanou/roamai/internal/voice"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// maxBodySize bounds JSON request bodies
const maxBodySize = 1 << 16

// Handler handles HTTP requests
type Handler struct {
	service  service.ServiceInterface
	hub      *events.Hub
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a new handler instance. hub may be nil, in which case
// the event stream endpoint is unavailable.
func NewHandler(service service.ServiceInterface, hub *events.Hub, allowedOrigins []string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		service: service,
		hub:     hub,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		set[origin] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// errorStatus maps domain errors to HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, repository.ErrNotFound),
		errors.Is(err, coordinator.ErrUnknownSuggestion),
		errors.Is(err, coordinator.ErrUnknownOverlay),
		errors.Is(err, chat.ErrUnknownInterest):
		return http.StatusNotFound

	case errors.Is(err, coordinator.ErrInvalidTap),
		errors.Is(err, coordinator.ErrConfirmationRequired):
		return http.StatusBadRequest

	case errors.Is(err, coordinator.ErrClosed),
		errors.Is(err, coordinator.ErrOffline),
		errors.Is(err, coordinator.ErrNotDiscovering),
		errors.Is(err, coordinator.ErrNoFix),
		errors.Is(err, coordinator.ErrNoPOI),
		errors.Is(err, coordinator.ErrChatClosed),
		errors.Is(err, coordinator.ErrEmptyChat),
		errors.Is(err, coordinator.ErrVoiceActive),
		errors.Is(err, coordinator.ErrNoVoice),
		errors.Is(err, voice.ErrInvalidTransition),
		errors.Is(err, voice.ErrClosed):
		return http.StatusConflict

	case errors.Is(err, service.ErrShuttingDown),
		errors.Is(err, service.ErrNoHistoryStore):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError reports err to the client; unexpected errors are logged and
// their details withheld
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		http.Error(w, "internal server error", status)
		return
	}
	http.Error(w, err.Error(), status)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Error encoding response", zap.Error(err))
	}
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// session resolves the {id} route variable
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (service.Session, bool) {
	session, err := h.service.Session(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	return session, true
}

// respond writes the session snapshot, or the error of the action
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, session service.Session, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, session.Snapshot())
}

// ListHistory handles GET /api/v1/history
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.service.ListHistory(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []model.ChatSession{}
	}
	h.writeJSON(w, http.StatusOK, model.HistoryResponse{Sessions: sessions, Count: len(sessions)})
}

// OpenSession handles POST /api/v1/sessions
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req model.OpenSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	online := true
	if req.Online != nil {
		online = *req.Online
	}

	session, err := h.service.OpenSession(r.Context(), online)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, session.Snapshot())
}

// GetSession handles GET /api/v1/sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, session.Snapshot())
}

// CloseSession handles DELETE /api/v1/sessions/{id}
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.CloseSession(mux.Vars(r)["id"]); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
