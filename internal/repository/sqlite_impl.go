package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexivanou/roamai/internal/model"
	"github.com/jmoiron/sqlx"
)

type sqliteHistoryRepository struct {
	db *sqlx.DB
}

func (r *sqliteHistoryRepository) Save(ctx context.Context, session model.ChatSession) error {
	return r.insert(ctx, []model.ChatSession{session}, "INSERT")
}

func (r *sqliteHistoryRepository) BulkInsert(ctx context.Context, sessions []model.ChatSession) error {
	return r.insert(ctx, sessions, "INSERT OR IGNORE")
}

func (r *sqliteHistoryRepository) insert(ctx context.Context, sessions []model.ChatSession, verb string) error {
	if len(sessions) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, s := range sessions {
		if s.CreatedAt.IsZero() {
			s.CreatedAt = time.Now()
		}
		s.CreatedAt = s.CreatedAt.UTC()
		res, err := tx.NamedExecContext(ctx, verb+` INTO chat_sessions (id, title, snippet, date, created_at)
			VALUES (:id, :title, :snippet, :date, :created_at)`, s)
		if err != nil {
			return fmt.Errorf("failed to insert chat session %s: %w", s.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			continue
		}

		rows, err := toRows(s)
		if err != nil {
			return err
		}
		// 5 params per row keeps batches well within SQLite variable limits
		err = chunk(rows, 100, func(batch []messageRow) error {
			_, err := tx.NamedExecContext(ctx, `
				INSERT INTO chat_messages (session_id, position, role, text, links)
				VALUES (:session_id, :position, :role, :text, :links)`, batch)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to insert messages of %s: %w", s.ID, err)
		}
	}

	return tx.Commit()
}

func (r *sqliteHistoryRepository) Get(ctx context.Context, id string) (*model.ChatSession, error) {
	var session model.ChatSession
	err := r.db.GetContext(ctx, &session,
		"SELECT id, title, snippet, date, created_at FROM chat_sessions WHERE id = ?", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var rows []messageRow
	err = r.db.SelectContext(ctx, &rows, `
		SELECT session_id, position, role, text, links
		FROM chat_messages WHERE session_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}

	sessions := []model.ChatSession{session}
	if err := attachMessages(sessions, rows); err != nil {
		return nil, err
	}
	return &sessions[0], nil
}

func (r *sqliteHistoryRepository) List(ctx context.Context) ([]model.ChatSession, error) {
	var sessions []model.ChatSession
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT id, title, snippet, date, created_at
		FROM chat_sessions ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}

	var rows []messageRow
	err = r.db.SelectContext(ctx, &rows, `
		SELECT session_id, position, role, text, links
		FROM chat_messages ORDER BY session_id, position`)
	if err != nil {
		return nil, err
	}

	if err := attachMessages(sessions, rows); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *sqliteHistoryRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM chat_sessions"); err != nil {
		return 0, err
	}
	return count, nil
}
