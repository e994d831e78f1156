package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexivanou/roamai/internal/api"
	"github.com/alexivanou/roamai/internal/config"
	"github.com/alexivanou/roamai/internal/database"
	"github.com/alexivanou/roamai/internal/events"
	"github.com/alexivanou/roamai/internal/gateway"
	"github.com/alexivanou/roamai/internal/repository"
	"github.com/alexivanou/roamai/internal/seeder"
	"github.com/alexivanou/roamai/internal/service"
	"github.com/alexivanou/roamai/internal/stats"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

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

	// Run migrations
	if err := database.Migrate(db, cfg.DB); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	repos := repository.NewRepositories(db, cfg.DB.Type)

	isEmpty, err := repository.IsDatabaseEmpty(ctx, db)
	if err != nil {
		logger.Warn("Failed to check if database is empty", zap.Error(err))
	} else if isEmpty {
		logger.Info("Database is empty, auto-seeding history...")
		n, err := seeder.Import(ctx, seeder.NewParser(cfg.Seeder.DataDir, cfg.Seeder), repos.History, logger)
		if err != nil {
			logger.Fatal("Failed to auto-seed database", zap.Error(err))
		}
		logger.Info("Database seeded successfully", zap.Int("conversations", n))
	}

	client, err := gateway.NewClient(ctx, cfg.AI)
	if err != nil {
		logger.Fatal("Failed to create AI client", zap.Error(err))
	}
	gw := gateway.NewGemini(client, cfg.AI, logger)
	dialer := gateway.NewLiveDialer(client, cfg.AI.LiveModel)

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := events.NewHub(logger)
	go hub.Run(hubCtx)

	var publisher events.Publisher = hub
	if cfg.Broker.Enabled() {
		broker, err := events.DialAMQP(cfg.Broker, logger)
		if err != nil {
			logger.Fatal("Failed to connect to broker", zap.Error(err))
		}
		defer broker.Close()
		publisher = events.Fanout{hub, broker}
		logger.Info("Publishing events to broker", zap.String("exchange", cfg.Broker.Exchange))
	}

	svc := service.NewService(service.Dependencies{
		Gateway:   gw,
		Dialer:    dialer,
		Publisher: publisher,
		Repos:     repos,
		Config:    cfg.Session,
		Logger:    logger,
	})
	statsCollector := stats.NewCollector(db, cfg.DB, svc)
	router := api.NewRouter(svc, hub, statsCollector, cfg.Server.AllowedOrigins, logger)

	srv := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// Chat sends block until the model answers
		WriteTimeout: cfg.AI.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Sessions first: closing them ends voice sockets and blocked chat sends
	svc.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	stopHub()

	logger.Info("Server exited")
}
