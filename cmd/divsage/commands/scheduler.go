package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/divsage/internal/scheduler"
	"github.com/wonny/divsage/internal/scheduler/jobs"
	"github.com/wonny/divsage/pkg/config"
	"github.com/wonny/divsage/pkg/database"
	"github.com/wonny/divsage/pkg/logger"
	"github.com/wonny/divsage/pkg/redis"
)

// schedulerCmd runs the background job scheduler
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the background job scheduler",
	Long: `Run the background job scheduler.

Jobs:
  market_refresh - refresh fundamentals, prices and dividend history
                   for all tracked tickers (22:30 UTC, weekdays)

Example:
  go run ./cmd/divsage scheduler
  go run ./cmd/divsage scheduler --run-now market_refresh`,
	RunE: runScheduler,
}

var schedulerRunNow string

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.Flags().StringVar(&schedulerRunNow, "run-now", "", "trigger a job immediately on startup")
}

func runScheduler(cmd *cobra.Command, args []string) error {
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

	// 4. Wire jobs
	worker := buildIngestWorker(cfg, log, db, rdb)

	sched := scheduler.New(log)
	if err := sched.AddJob(jobs.NewMarketRefreshJob(worker, log)); err != nil {
		return fmt.Errorf("register market refresh job: %w", err)
	}

	// 5. Start
	sched.Start()
	defer sched.Stop()

	if schedulerRunNow != "" {
		if err := sched.RunJob(schedulerRunNow); err != nil {
			return fmt.Errorf("run job %s: %w", schedulerRunNow, err)
		}
	}

	fmt.Println("Scheduler running. Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	return nil
}
