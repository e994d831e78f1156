package service

import (
	"context"

	"github.com/alexivanou/roamai/internal/coordinator"
	"github.com/alexivanou/roamai/internal/model"
	"github.com/alexivanou/roamai/internal/voice"
)

// ServiceInterface defines the service interface for testing
type ServiceInterface interface {
	OpenSession(ctx context.Context, online bool) (Session, error)
	Session(id string) (Session, error)
	CloseSession(id string) error
	ActiveSessions() int

	ListHistory(ctx context.Context) ([]model.ChatSession, error)
	GetHistory(ctx context.Context, id string) (*model.ChatSession, error)
	ArchiveChat(ctx context.Context, sessionID string) (*model.ChatSession, error)
	LoadHistory(ctx context.Context, sessionID, historyID string) error
}

// Session is one mounted device session. *coordinator.Coordinator implements it.
type Session interface {
	ID() string
	Snapshot() coordinator.Snapshot

	Position(ctx context.Context, at model.Coordinate) error
	PositionError(ctx context.Context, code int, message string) error
	Connectivity(ctx context.Context, online bool) error

	SetDiscovery(active bool)
	TapMap(x, y float64) (model.POICandidate, error)
	DismissPOI()
	ExplorePOI() error
	GoPOI()
	SelectSuggestion(index int) error

	OpenChat()
	CloseChat()
	SendChat(text string) error
	SuggestSpots() error
	ToggleInterest(id string) error
	SetPreference(text string) error
	SetChatLocation(label string) error
	ClearChat(confirmed bool) error

	SetOverlay(name string, open bool) error
	UpdateSettings(s model.Settings)

	StartVoice(mic voice.Microphone, notify coordinator.VoiceNotify) error
	FinishVoice() error
	CancelVoice() error
	VoiceDone() <-chan struct{}
}

var _ Session = (*coordinator.Coordinator)(nil)
var _ ServiceInterface = (*Service)(nil)
