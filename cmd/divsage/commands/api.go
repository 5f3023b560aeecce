package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/divsage/internal/api"
	"github.com/wonny/divsage/internal/api/handlers"
	"github.com/wonny/divsage/pkg/config"
	"github.com/wonny/divsage/pkg/database"
	"github.com/wonny/divsage/pkg/logger"
	"github.com/wonny/divsage/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the REST API server",
	Long: `Start the REST API server.

Endpoints:
  GET    /health                      - Health check
  POST   /api/recommendations        - Run the advisory pipeline
  GET    /api/recommendations        - List recent recommendations
  GET    /api/recommendations/{id}   - Get one recommendation
  GET    /api/holdings               - List holdings
  POST   /api/holdings               - Add a holding
  GET    /api/holdings/{id}          - Get a holding
  PUT    /api/holdings/{id}          - Update a holding
  DELETE /api/holdings/{id}          - Delete a holding
  POST   /api/data/refresh           - Trigger market data refresh
  GET    /api/data/jobs              - Scheduler job stats

Example:
  go run ./cmd/divsage api
  go run ./cmd/divsage api --port 8080`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Connected to database")

	// 4. Connect to Redis (optional)
	rdb, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer rdb.Close()

	// 5. Wire the pipeline and ingestion worker
	adv, recStore := buildAdvisor(cfg, log, db, rdb)
	worker := buildIngestWorker(cfg, log, db, rdb)

	// 6. Create handlers and router
	recHandler := handlers.NewRecommendationHandler(adv, recStore, log)
	holdingHandler := handlers.NewHoldingHandler(buildHoldingStore(db), log)
	dataHandler := handlers.NewDataHandler(worker, nil, log)
	healthHandler := handlers.NewHealthHandler(db, rdb, log)

	router := api.NewRouter(recHandler, holdingHandler, dataHandler, healthHandler, log)
	server := api.New(cfg, log, router)

	// 7. Start server with graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
