package api

import (
	"github.com/alexivanou/roamai/internal/events"
	"github.com/alexivanou/roamai/internal/service"
	"github.com/alexivanou/roamai/internal/stats"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// NewRouter creates a new HTTP router
func NewRouter(service service.ServiceInterface, hub *events.Hub, statsCollector *stats.Collector, allowedOrigins []string, logger *zap.Logger) *mux.Router {
	handler := NewHandler(service, hub, allowedOrigins, logger)
	statsHandler := NewStatsHandler(statsCollector, logger)

	router := mux.NewRouter()

	// Health check
	router.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	// API v1
	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/stats", statsHandler.GetStats).Methods("GET")
	v1.HandleFunc("/history", handler.ListHistory).Methods("GET")
	v1.HandleFunc("/sessions", handler.OpenSession).Methods("POST")

	// Device sessions
	s := v1.PathPrefix("/sessions/{id}").Subrouter()
	s.HandleFunc("", handler.GetSession).Methods("GET")
	s.HandleFunc("", handler.CloseSession).Methods("DELETE")
	s.HandleFunc("/position", handler.Position).Methods("POST")
	s.HandleFunc("/position/error", handler.PositionError).Methods("POST")
	s.HandleFunc("/connectivity", handler.Connectivity).Methods("POST")
	s.HandleFunc("/discovery", handler.SetDiscovery).Methods("PUT")
	s.HandleFunc("/map/tap", handler.TapMap).Methods("POST")
	s.HandleFunc("/poi/dismiss", handler.DismissPOI).Methods("POST")
	s.HandleFunc("/poi/explore", handler.ExplorePOI).Methods("POST")
	s.HandleFunc("/poi/go", handler.GoPOI).Methods("POST")
	s.HandleFunc("/suggestions/{index:[0-9]+}/select", handler.SelectSuggestion).Methods("POST")
	s.HandleFunc("/overlays/{name}", handler.SetOverlay).Methods("PUT")
	s.HandleFunc("/settings", handler.UpdateSettings).Methods("PUT")
	s.HandleFunc("/history/{historyID}/load", handler.LoadHistory).Methods("POST")

	// Chat
	s.HandleFunc("/chat/open", handler.OpenChat).Methods("POST")
	s.HandleFunc("/chat/close", handler.CloseChat).Methods("POST")
	s.HandleFunc("/chat/messages", handler.SendChat).Methods("POST")
	s.HandleFunc("/chat/messages", handler.ClearChat).Methods("DELETE")
	s.HandleFunc("/chat/suggest-spots", handler.SuggestSpots).Methods("POST")
	s.HandleFunc("/chat/interests/{interest}", handler.ToggleInterest).Methods("PUT")
	s.HandleFunc("/chat/preference", handler.SetPreference).Methods("PUT")
	s.HandleFunc("/chat/location", handler.SetChatLocation).Methods("PUT")
	s.HandleFunc("/chat/archive", handler.ArchiveChat).Methods("POST")

	// Websockets
	s.HandleFunc("/events", handler.Events).Methods("GET")
	s.HandleFunc("/voice", handler.Voice).Methods("GET")

	return router
}
