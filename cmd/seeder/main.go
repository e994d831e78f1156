package main

import (
	"context"
	"flag"
	"log"

	"github.com/alexivanou/roamai/internal/config"
	"github.com/alexivanou/roamai/internal/database"
	"github.com/alexivanou/roamai/internal/repository"
	"github.com/alexivanou/roamai/internal/seeder"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	dataDir := flag.String("data", cfg.Seeder.DataDir, "Directory holding history.json or history.zip")
	flag.Parse()

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg.DB)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}
	logger.Info("Connected to database", zap.String("type", string(cfg.DB.Type)))

	// Auto-migrate so the schema exists for a fresh store
	if err := database.Migrate(db, cfg.DB); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	repos := repository.NewRepositories(db, cfg.DB.Type)

	logger.Info("Starting history import...", zap.String("dir", *dataDir))
	n, err := seeder.Import(ctx, seeder.NewParser(*dataDir, cfg.Seeder), repos.History, logger)
	if err != nil {
		logger.Fatal("Failed to import history", zap.Error(err))
	}

	total, err := repos.History.Count(ctx)
	if err != nil {
		logger.Warn("Failed to count conversations", zap.Error(err))
	}
	logger.Info("History import completed successfully!",
		zap.Int("imported", n),
		zap.Int("stored", total),
	)
}
