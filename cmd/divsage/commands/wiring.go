package commands

import (
	"github.com/wonny/divsage/internal/advisor"
	"github.com/wonny/divsage/internal/assemble"
	"github.com/wonny/divsage/internal/audit"
	"github.com/wonny/divsage/internal/contracts"
	"github.com/wonny/divsage/internal/external/alphavantage"
	"github.com/wonny/divsage/internal/external/openai"
	"github.com/wonny/divsage/internal/external/stockanalysis"
	"github.com/wonny/divsage/internal/holdings"
	"github.com/wonny/divsage/internal/ingest"
	"github.com/wonny/divsage/internal/marketdata"
	"github.com/wonny/divsage/internal/prompt"
	"github.com/wonny/divsage/internal/reasoning"
	"github.com/wonny/divsage/internal/scoring"
	"github.com/wonny/divsage/internal/snapshot"
	"github.com/wonny/divsage/internal/validate"
	"github.com/wonny/divsage/pkg/config"
	"github.com/wonny/divsage/pkg/database"
	"github.com/wonny/divsage/pkg/httputil"
	"github.com/wonny/divsage/pkg/logger"
	"github.com/wonny/divsage/pkg/redis"
)

// buildHoldingStore wires the holdings repository
func buildHoldingStore(db *database.DB) contracts.HoldingStore {
	return holdings.NewRepository(db.Pool)
}

// buildMarketData wires the cached market data reader
func buildMarketData(db *database.DB, rdb *redis.Client) (*marketdata.Repository, *marketdata.CachedMarketData) {
	repo := marketdata.NewRepository(db.Pool)
	cache := redis.NewCache(rdb, "divsage")
	return repo, marketdata.NewCachedMarketData(repo, cache)
}

// buildAdvisor wires the full recommendation pipeline
func buildAdvisor(cfg *config.Config, log *logger.Logger, db *database.DB, rdb *redis.Client) (*advisor.Advisor, *advisor.Repository) {
	_, market := buildMarketData(db, rdb)

	scorer := scoring.NewScorer()
	snapshots := snapshot.NewBuilder(market, scorer, cfg.Advisor.MarketLookupTimeout, log)
	prompts := prompt.NewBuilder()

	modelHTTP := httputil.NewWithTimeout(cfg, log, cfg.Reasoning.Timeout)
	if rdb.Enabled() {
		modelHTTP = modelHTTP.WithRateLimiter(redis.NewRateLimiter(rdb, "divsage"), redis.ReasoningRateLimit)
	}
	model := openai.NewClient(modelHTTP, cfg.Reasoning, log)
	gateway := reasoning.NewGateway(model, cfg.Advisor.MaxPromptBytes, cfg.Reasoning.MaxTokens, cfg.Reasoning.Timeout, log)

	validator := validate.NewValidator(cfg.Advisor.WeightTolerance, log)
	assembler := assemble.NewAssembler(log)

	holdingStore := holdings.NewRepository(db.Pool)
	recStore := advisor.NewRepository(db.Pool)
	auditSink := audit.NewSink(db.Pool, log)

	adv := advisor.NewAdvisor(
		holdingStore, snapshots, prompts, gateway, validator,
		assembler, recStore, auditSink, cfg.Advisor, log,
	)
	return adv, recStore
}

// buildIngestWorker wires the market data ingestion worker
func buildIngestWorker(cfg *config.Config, log *logger.Logger, db *database.DB, rdb *redis.Client) *ingest.Worker {
	repo, cached := buildMarketData(db, rdb)

	providerHTTP := httputil.NewWithTimeout(cfg, log, cfg.AlphaVantage.Timeout)
	if rdb.Enabled() {
		providerHTTP = providerHTTP.WithRateLimiter(redis.NewRateLimiter(rdb, "divsage"), redis.AlphaVantageRateLimit)
	}
	provider := alphavantage.NewClient(providerHTTP, cfg.AlphaVantage, log)

	var scraper *stockanalysis.Client
	if cfg.Scrape.Enabled {
		scrapeHTTP := httputil.New(cfg, log)
		if rdb.Enabled() {
			scrapeHTTP = scrapeHTTP.WithRateLimiter(redis.NewRateLimiter(rdb, "divsage"), redis.ScrapeRateLimit)
		}
		scraper = stockanalysis.NewClient(scrapeHTTP, cfg.Scrape, log).
			WithCache(redis.NewCache(rdb, "divsage"))
	}

	return ingest.NewWorker(provider, scraper, repo, cached, log)
}
