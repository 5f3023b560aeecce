package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/divsage/internal/contracts"
	"github.com/wonny/divsage/pkg/config"
	"github.com/wonny/divsage/pkg/database"
	"github.com/wonny/divsage/pkg/logger"
	"github.com/wonny/divsage/pkg/redis"
)

// adviseCmd runs the recommendation pipeline once from the CLI
var adviseCmd = &cobra.Command{
	Use:   "advise",
	Short: "Run the recommendation pipeline for one owner",
	Long: `Run the full advisory pipeline once and print the result.

The run is persisted and audited exactly like an API-triggered run.

Example:
  go run ./cmd/divsage advise --owner user-1
  go run ./cmd/divsage advise --owner user-1 --max-holdings 10 --benchmark SCHD`,
	RunE: runAdvise,
}

var (
	adviseOwner       string
	adviseMaxHoldings int
	adviseBenchmark   string
	advisePayout      float64
	adviseLeverage    float64
	adviseAsOf        string
	adviseFallback    bool
)

func init() {
	rootCmd.AddCommand(adviseCmd)

	adviseCmd.Flags().StringVar(&adviseOwner, "owner", "", "owner id (required)")
	adviseCmd.Flags().IntVar(&adviseMaxHoldings, "max-holdings", 0, "max target positions (default 40)")
	adviseCmd.Flags().StringVar(&adviseBenchmark, "benchmark", "", "benchmark ticker (default VIG)")
	adviseCmd.Flags().Float64Var(&advisePayout, "payout-ceiling", 0, "payout ratio ceiling (default 0.8)")
	adviseCmd.Flags().Float64Var(&adviseLeverage, "leverage-ceiling", 0, "debt-to-equity ceiling (default 2.0)")
	adviseCmd.Flags().StringVar(&adviseAsOf, "as-of", "", "as-of date YYYY-MM-DD (default today)")
	adviseCmd.Flags().BoolVar(&adviseFallback, "fallback", false, "emit a rule-based packet when the reasoning step fails")
	_ = adviseCmd.MarkFlagRequired("owner")
}

func runAdvise(cmd *cobra.Command, args []string) error {
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

	// 4. Wire the pipeline
	adv, _ := buildAdvisor(cfg, log, db, rdb)

	constraints := contracts.DefaultConstraints()
	if adviseMaxHoldings > 0 {
		constraints.MaxHoldings = adviseMaxHoldings
	}
	if adviseBenchmark != "" {
		constraints.BenchmarkTicker = adviseBenchmark
	}
	if advisePayout > 0 {
		constraints.PayoutCeiling = advisePayout
	}
	if adviseLeverage > 0 {
		constraints.LeverageCeiling = adviseLeverage
	}
	constraints.FallbackOnFailure = adviseFallback

	asOf := time.Now().UTC()
	if adviseAsOf != "" {
		parsed, err := time.Parse("2006-01-02", adviseAsOf)
		if err != nil {
			return fmt.Errorf("parse --as-of: %w", err)
		}
		asOf = parsed
	}

	// 5. Run
	fmt.Printf("Running advisory pipeline for %s...\n\n", adviseOwner)
	start := time.Now()

	rec, runErr := adv.Recommend(context.Background(), adviseOwner, constraints, "", asOf)
	if rec == nil {
		return fmt.Errorf("rejected before pipeline start: %w", runErr)
	}

	// 6. Print result
	fmt.Printf("Status:         %s\n", rec.Status)
	fmt.Printf("Recommendation: %s\n", rec.ID)
	fmt.Printf("Correlation:    %s\n", rec.CorrelationID)
	fmt.Printf("Duration:       %s\n", time.Since(start).Round(time.Millisecond))

	if rec.Status == contracts.StatusFailed {
		fmt.Printf("Error:          %s\n", rec.ErrorDetail)
		return runErr
	}

	fmt.Printf("\nTarget portfolio (%d positions, benchmark %s):\n",
		rec.Packet.Count(), rec.Packet.Benchmark)
	for _, item := range rec.Packet.TargetPortfolio {
		fmt.Printf("  %-6s %5.1f%%  %s\n", item.Ticker, item.Weight*100, item.Rationale)
	}
	fmt.Printf("\nYield %.2f%%, beta %.2f\n",
		rec.Packet.Metrics.Yield*100, rec.Packet.Metrics.Beta)

	if len(rec.Packet.Compliance) > 0 {
		fmt.Println("\nCompliance flags:")
		for _, issue := range rec.Packet.Compliance {
			fmt.Printf("  [%s] %s\n", issue.Type, issue.Message)
		}
	}

	if verbose {
		pretty, _ := json.MarshalIndent(rec.Explanation, "", "  ")
		fmt.Printf("\nExplanation:\n%s\n", pretty)
	} else if rec.Explanation != nil {
		fmt.Printf("\n%s\n", rec.Explanation.Summary)
	}

	return nil
}
