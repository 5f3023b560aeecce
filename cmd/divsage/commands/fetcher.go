package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/divsage/pkg/config"
	"github.com/wonny/divsage/pkg/database"
	"github.com/wonny/divsage/pkg/logger"
	"github.com/wonny/divsage/pkg/redis"
)

// fetcherCmd triggers market data ingestion from the CLI
var fetcherCmd = &cobra.Command{
	Use:   "fetcher",
	Short: "Refresh market data",
	Long: `Refresh fundamentals, prices and dividend history.

Without --ticker, refreshes every tracked ticker.

Example:
  go run ./cmd/divsage fetcher
  go run ./cmd/divsage fetcher --ticker MSFT`,
	RunE: runFetcher,
}

var fetcherTicker string

func init() {
	rootCmd.AddCommand(fetcherCmd)
	fetcherCmd.Flags().StringVar(&fetcherTicker, "ticker", "", "refresh a single ticker")
}

func runFetcher(cmd *cobra.Command, args []string) error {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Connect to database and Redis
	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	rdb, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer rdb.Close()

	// 4. Wire the worker
	worker := buildIngestWorker(cfg, log, db, rdb)

	ctx := context.Background()

	if fetcherTicker != "" {
		ticker := strings.ToUpper(strings.TrimSpace(fetcherTicker))
		fmt.Printf("Refreshing %s...\n", ticker)
		if err := worker.RefreshTicker(ctx, ticker); err != nil {
			return fmt.Errorf("refresh %s: %w", ticker, err)
		}
		fmt.Printf("Refreshed %s\n", ticker)
		return nil
	}

	fmt.Println("Refreshing all tracked tickers...")
	result, err := worker.RefreshAll(ctx)
	if err != nil {
		return fmt.Errorf("refresh all: %w", err)
	}

	fmt.Printf("Refreshed %d tickers, %d failed\n", result.Refreshed, result.Failed)
	return nil
}
