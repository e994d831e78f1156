package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/alexivanou/roamai/internal/config"
	"github.com/alexivanou/roamai/internal/coordinator"
	"github.com/alexivanou/roamai/internal/events"
	"github.com/alexivanou/roamai/internal/gateway"
	"github.com/alexivanou/roamai/internal/repository"
	"github.com/alexivanou/roamai/internal/voice"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrSessionNotFound is returned for an unknown or closed device session
	ErrSessionNotFound = errors.New("session not found")
	// ErrShuttingDown is returned when a session is opened after CloseAll
	ErrShuttingDown = errors.New("service is shutting down")
)

// Dependencies are the collaborators shared by every device session
type Dependencies struct {
	Gateway   gateway.Gateway
	Dialer    voice.Dialer
	Publisher events.Publisher
	Repos     *repository.Container
	Config    config.SessionConfig
	Logger    *zap.Logger
}

// Service provides business logic for the API
type Service struct {
	gw        gateway.Gateway
	dialer    voice.Dialer
	publisher events.Publisher
	history   repository.HistoryRepository
	cfg       config.SessionConfig
	logger    *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*coordinator.Coordinator
	closed   bool
}

// NewService creates a new service instance
func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.Nop{}
	}
	var history repository.HistoryRepository
	if deps.Repos != nil {
		history = deps.Repos.History
	}

	return &Service{
		gw:        deps.Gateway,
		dialer:    deps.Dialer,
		publisher: publisher,
		history:   history,
		cfg:       deps.Config,
		logger:    logger,
		sessions:  make(map[string]*coordinator.Coordinator),
	}
}

// OpenSession mounts a new device session
func (s *Service) OpenSession(ctx context.Context, online bool) (Session, error) {
	id := uuid.NewString()
	c := coordinator.New(coordinator.Options{
		ID:        id,
		Gateway:   s.gw,
		Dialer:    s.dialer,
		Publisher: s.publisher,
		Config:    s.cfg,
		Online:    online,
		Logger:    s.logger,
	})

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		c.Close()
		return nil, ErrShuttingDown
	}
	s.sessions[id] = c
	s.mu.Unlock()

	s.logger.Info("Session opened", zap.String("session_id", id), zap.Bool("online", online))
	ev := events.Event{Type: events.TypeSession, SessionID: id, Payload: c.Snapshot(), Timestamp: time.Now().UTC()}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("Failed to publish session event", zap.String("session_id", id), zap.Error(err))
	}
	return c, nil
}

func (s *Service) coordinator(id string) (*coordinator.Coordinator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return c, nil
}

// Session returns a mounted device session
func (s *Service) Session(id string) (Session, error) {
	c, err := s.coordinator(id)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CloseSession unmounts a device session and waits for its resources to be released
func (s *Service) CloseSession(id string) error {
	s.mu.Lock()
	c, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	c.Close()
	return nil
}

// ActiveSessions returns the number of mounted sessions
func (s *Service) ActiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// CloseAll unmounts every session; no session can be opened afterwards
func (s *Service) CloseAll() {
	s.mu.Lock()
	s.closed = true
	sessions := make([]*coordinator.Coordinator, 0, len(s.sessions))
	for id, c := range s.sessions {
		sessions = append(sessions, c)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, c := range sessions {
		wg.Add(1)
		go func(c *coordinator.Coordinator) {
			defer wg.Done()
			c.Close()
		}(c)
	}
	wg.Wait()

	if len(sessions) > 0 {
		s.logger.Info("Closed all sessions", zap.Int("count", len(sessions)))
	}
}
