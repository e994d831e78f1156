package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alexivanou/roamai/internal/config"
	"github.com/alexivanou/roamai/internal/model"
	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when a saved conversation does not exist
var ErrNotFound = errors.New("chat session not found")

// HistoryRepository defines operations for saved conversations
type HistoryRepository interface {
	// Save stores a new conversation; stored conversations are never updated
	Save(ctx context.Context, session model.ChatSession) error
	Get(ctx context.Context, id string) (*model.ChatSession, error)
	// List returns every conversation with its messages, newest first
	List(ctx context.Context) ([]model.ChatSession, error)
	// BulkInsert stores fixtures, skipping ids that already exist
	BulkInsert(ctx context.Context, sessions []model.ChatSession) error
	Count(ctx context.Context) (int, error)
}

// Container holds all repositories
type Container struct {
	History HistoryRepository
}

// NewRepositories creates repository implementations based on DB type
func NewRepositories(db *sqlx.DB, dbType config.DBType) *Container {
	if dbType == config.DBTypePostgreSQL {
		return &Container{History: &pgHistoryRepository{db: db}}
	}

	// Default to SQLite
	return &Container{History: &sqliteHistoryRepository{db: db}}
}

// IsDatabaseEmpty reports whether no conversation has been stored yet (used by main)
func IsDatabaseEmpty(ctx context.Context, db *sqlx.DB) (bool, error) {
	var count int
	if err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM chat_sessions"); err != nil {
		return false, fmt.Errorf("failed to count chat sessions: %w", err)
	}
	return count == 0, nil
}

// messageRow is the storage shape of one chat turn
type messageRow struct {
	SessionID string `db:"session_id"`
	Position  int    `db:"position"`
	Role      string `db:"role"`
	Text      string `db:"text"`
	Links     string `db:"links"`
}

func toRows(session model.ChatSession) ([]messageRow, error) {
	rows := make([]messageRow, 0, len(session.Messages))
	for i, m := range session.Messages {
		links := m.Links
		if links == nil {
			links = []model.Link{}
		}
		encoded, err := json.Marshal(links)
		if err != nil {
			return nil, fmt.Errorf("failed to encode links: %w", err)
		}
		rows = append(rows, messageRow{
			SessionID: session.ID,
			Position:  i,
			Role:      string(m.Role),
			Text:      m.Text,
			Links:     string(encoded),
		})
	}
	return rows, nil
}

func fromRow(row messageRow) (model.ChatMessage, error) {
	msg := model.ChatMessage{Role: model.Role(row.Role), Text: row.Text}
	if row.Links != "" {
		var links []model.Link
		if err := json.Unmarshal([]byte(row.Links), &links); err != nil {
			return msg, fmt.Errorf("failed to decode links of %s/%d: %w", row.SessionID, row.Position, err)
		}
		if len(links) > 0 {
			msg.Links = links
		}
	}
	return msg, nil
}

// attachMessages groups rows (ordered by session, position) onto their sessions
func attachMessages(sessions []model.ChatSession, rows []messageRow) error {
	index := make(map[string]int, len(sessions))
	for i := range sessions {
		index[sessions[i].ID] = i
		sessions[i].Messages = []model.ChatMessage{}
	}
	for _, row := range rows {
		i, ok := index[row.SessionID]
		if !ok {
			continue
		}
		msg, err := fromRow(row)
		if err != nil {
			return err
		}
		sessions[i].Messages = append(sessions[i].Messages, msg)
	}
	return nil
}

func chunk[T any](items []T, size int, fn func(batch []T) error) error {
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		if err := fn(items[i:end]); err != nil {
			return err
		}
	}
	return nil
}
