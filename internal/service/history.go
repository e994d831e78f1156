package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexivanou/roamai/internal/model"
	"go.uber.org/zap"
)

// ErrNoHistoryStore is returned when the service runs without a repository
var ErrNoHistoryStore = errors.New("history store is not configured")

// ListHistory returns the saved conversations, newest first
func (s *Service) ListHistory(ctx context.Context) ([]model.ChatSession, error) {
	if s.history == nil {
		return nil, ErrNoHistoryStore
	}
	sessions, err := s.history.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return sessions, nil
}

// GetHistory returns one saved conversation
func (s *Service) GetHistory(ctx context.Context, id string) (*model.ChatSession, error) {
	if s.history == nil {
		return nil, ErrNoHistoryStore
	}
	session, err := s.history.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get history %s: %w", id, err)
	}
	return session, nil
}

// ArchiveChat stores the active conversation of a device session
func (s *Service) ArchiveChat(ctx context.Context, sessionID string) (*model.ChatSession, error) {
	if s.history == nil {
		return nil, ErrNoHistoryStore
	}
	c, err := s.coordinator(sessionID)
	if err != nil {
		return nil, err
	}

	archived, err := c.ArchiveChat()
	if err != nil {
		return nil, err
	}
	if err := s.history.Save(ctx, archived); err != nil {
		return nil, fmt.Errorf("failed to save history: %w", err)
	}

	s.logger.Info("Conversation archived",
		zap.String("session_id", sessionID),
		zap.String("history_id", archived.ID),
		zap.Int("messages", len(archived.Messages)))
	return &archived, nil
}

// LoadHistory replaces the conversation of a device session with a saved one
func (s *Service) LoadHistory(ctx context.Context, sessionID, historyID string) error {
	c, err := s.coordinator(sessionID)
	if err != nil {
		return err
	}
	saved, err := s.GetHistory(ctx, historyID)
	if err != nil {
		return err
	}
	c.LoadHistory(*saved)
	return nil
}
