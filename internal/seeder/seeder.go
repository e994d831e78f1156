package seeder

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexivanou/roamai/internal/model"
	"go.uber.org/zap"
)

// Store receives imported conversations
type Store interface {
	BulkInsert(ctx context.Context, sessions []model.ChatSession) error
}

// Import loads the fixtures of parser into store. Without a fixture file
// the sample conversations are imported instead.
func Import(ctx context.Context, parser *Parser, store Store, logger *zap.Logger) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var inserted int
	accepted, skipped, err := parser.ProcessHistory(func(batch []model.ChatSession) error {
		if err := store.BulkInsert(ctx, batch); err != nil {
			return fmt.Errorf("failed to insert history batch: %w", err)
		}
		inserted += len(batch)
		logger.Debug("Inserted history batch", zap.Int("size", len(batch)), zap.Int("total", inserted))
		return nil
	})

	if errors.Is(err, ErrNoFixtures) {
		logger.Info("No history fixtures found, importing samples", zap.String("dir", parser.dataDir))
		samples := DefaultHistory()
		if err := store.BulkInsert(ctx, samples); err != nil {
			return 0, fmt.Errorf("failed to insert sample history: %w", err)
		}
		return len(samples), nil
	}
	if err != nil {
		return inserted, err
	}

	logger.Info("History imported", zap.Int("conversations", accepted), zap.Int("skipped", skipped))
	return inserted, nil
}
