package api

import (
	"net/http"
	"strconv"

	"github.com/alexivanou/roamai/internal/model"
	"github.com/gorilla/mux"
)

// Position handles POST /api/v1/sessions/{id}/position
func (h *Handler) Position(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req model.PositionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Lat == nil || req.Lng == nil {
		http.Error(w, "parameters 'lat' and 'lng' are required", http.StatusBadRequest)
		return
	}
	if *req.Lat < -90 || *req.Lat > 90 || *req.Lng < -180 || *req.Lng > 180 {
		http.Error(w, "invalid coordinates range", http.StatusBadRequest)
		return
	}

	err := session.Position(r.Context(), model.Coordinate{Lat: *req.Lat, Lng: *req.Lng})
	h.respond(w, r, session, err)
}

// PositionError handles POST /api/v1/sessions/{id}/position/error
func (h *Handler) PositionError(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req model.PositionErrorRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.respond(w, r, session, session.PositionError(r.Context(), req.Code, req.Message))
}

// Connectivity handles POST /api/v1/sessions/{id}/connectivity
func (h *Handler) Connectivity(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req model.ConnectivityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Online == nil {
		http.Error(w, "parameter 'online' is required", http.StatusBadRequest)
		return
	}
	h.respond(w, r, session, session.Connectivity(r.Context(), *req.Online))
}

// SetDiscovery handles PUT /api/v1/sessions/{id}/discovery
func (h *Handler) SetDiscovery(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req model.DiscoveryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	session.SetDiscovery(req.Active)
	h.respond(w, r, session, nil)
}

// TapMap handles POST /api/v1/sessions/{id}/map/tap.
// It answers 202 with the pending probe; the enriched card arrives as an event.
func (h *Handler) TapMap(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req model.MapTapRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	probe, err := session.TapMap(req.X, req.Y)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, probe)
}

// DismissPOI handles POST /api/v1/sessions/{id}/poi/dismiss
func (h *Handler) DismissPOI(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	session.DismissPOI()
	h.respond(w, r, session, nil)
}

// ExplorePOI handles POST /api/v1/sessions/{id}/poi/explore
func (h *Handler) ExplorePOI(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	h.respond(w, r, session, session.ExplorePOI())
}

// GoPOI handles POST /api/v1/sessions/{id}/poi/go
func (h *Handler) GoPOI(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	session.GoPOI()
	h.respond(w, r, session, nil)
}

// SelectSuggestion handles POST /api/v1/sessions/{id}/suggestions/{index}/select
func (h *Handler) SelectSuggestion(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		http.Error(w, "invalid suggestion index", http.StatusBadRequest)
		return
	}
	h.respond(w, r, session, session.SelectSuggestion(index))
}

// SetOverlay handles PUT /api/v1/sessions/{id}/overlays/{name}
func (h *Handler) SetOverlay(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req model.OverlayRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.respond(w, r, session, session.SetOverlay(mux.Vars(r)["name"], req.Open))
}

// UpdateSettings handles PUT /api/v1/sessions/{id}/settings
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	settings := session.Snapshot().Settings
	if !decodeJSON(w, r, &settings) {
		return
	}
	session.UpdateSettings(settings)
	h.respond(w, r, session, nil)
}
