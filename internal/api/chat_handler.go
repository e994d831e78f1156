package api

import (
	"net/http"

	"github.com/alexivanou/roamai/internal/model"
	"github.com/gorilla/mux"
)

// OpenChat handles POST /api/v1/sessions/{id}/chat/open
func (h *Handler) OpenChat(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	session.OpenChat()
	h.respond(w, r, session, nil)
}

// CloseChat handles POST /api/v1/sessions/{id}/chat/close
func (h *Handler) CloseChat(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	session.CloseChat()
	h.respond(w, r, session, nil)
}

// SendChat handles POST /api/v1/sessions/{id}/chat/messages.
// It blocks until the assistant reply has been merged.
func (h *Handler) SendChat(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req model.ChatMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.respond(w, r, session, session.SendChat(req.Text))
}

// ClearChat handles DELETE /api/v1/sessions/{id}/chat/messages?confirm=true
func (h *Handler) ClearChat(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	confirmed := r.URL.Query().Get("confirm") == "true"
	h.respond(w, r, session, session.ClearChat(confirmed))
}

// SuggestSpots handles POST /api/v1/sessions/{id}/chat/suggest-spots
func (h *Handler) SuggestSpots(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	h.respond(w, r, session, session.SuggestSpots())
}

// ToggleInterest handles PUT /api/v1/sessions/{id}/chat/interests/{interest}
func (h *Handler) ToggleInterest(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	h.respond(w, r, session, session.ToggleInterest(mux.Vars(r)["interest"]))
}

// SetPreference handles PUT /api/v1/sessions/{id}/chat/preference
func (h *Handler) SetPreference(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req model.PreferenceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.respond(w, r, session, session.SetPreference(req.Text))
}

// SetChatLocation handles PUT /api/v1/sessions/{id}/chat/location
func (h *Handler) SetChatLocation(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req model.LocationLabelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.respond(w, r, session, session.SetChatLocation(req.Label))
}

// ArchiveChat handles POST /api/v1/sessions/{id}/chat/archive
func (h *Handler) ArchiveChat(w http.ResponseWriter, r *http.Request) {
	archived, err := h.service.ArchiveChat(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, archived)
}

// LoadHistory handles POST /api/v1/sessions/{id}/history/{historyID}/load
func (h *Handler) LoadHistory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.service.LoadHistory(r.Context(), vars["id"], vars["historyID"]); err != nil {
		h.writeError(w, r, err)
		return
	}
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, session.Snapshot())
}
