package ingest

import (
	"context"
	"fmt"

	"github.com/wonny/divsage/internal/contracts"
	"github.com/wonny/divsage/internal/external/alphavantage"
	"github.com/wonny/divsage/internal/external/stockanalysis"
	"github.com/wonny/divsage/internal/marketdata"
	"github.com/wonny/divsage/pkg/logger"
)

// Worker refreshes fundamentals, prices and dividend history for
// tracked tickers.
// SSOT: market data ingestion happens here only.
// Runs on a schedule and on demand; the advisory pipeline never
// triggers ingestion, it reads whatever the worker last persisted.
type Worker struct {
	provider *alphavantage.Client
	scraper  *stockanalysis.Client
	repo     *marketdata.Repository
	cached   *marketdata.CachedMarketData
	logger   *logger.Logger
}

// NewWorker creates a new ingestion worker
func NewWorker(provider *alphavantage.Client, scraper *stockanalysis.Client, repo *marketdata.Repository, cached *marketdata.CachedMarketData, log *logger.Logger) *Worker {
	return &Worker{
		provider: provider,
		scraper:  scraper,
		repo:     repo,
		cached:   cached,
		logger:   log,
	}
}

// RefreshResult summarizes one refresh pass
type RefreshResult struct {
	Refreshed int
	Failed    int
}

// RefreshAll refreshes every tracked ticker. Per-ticker failures are
// logged and skipped so one bad ticker cannot starve the rest.
func (w *Worker) RefreshAll(ctx context.Context) (*RefreshResult, error) {
	tickers, err := w.repo.ListTickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked tickers: %w", err)
	}

	result := &RefreshResult{}
	for _, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := w.RefreshTicker(ctx, ticker); err != nil {
			w.logger.WithError(err).WithField("ticker", ticker).Error("Ticker refresh failed")
			result.Failed++
			continue
		}
		result.Refreshed++
	}

	w.logger.WithFields(map[string]interface{}{
		"refreshed": result.Refreshed,
		"failed":    result.Failed,
	}).Info("Market data refresh completed")

	return result, nil
}

// RefreshTicker fetches and persists all market data for one ticker
func (w *Worker) RefreshTicker(ctx context.Context, ticker string) error {
	if !contracts.IsValidTicker(ticker) {
		return fmt.Errorf("malformed ticker %q", ticker)
	}

	overview, err := w.provider.GetOverview(ctx, ticker)
	if err != nil {
		return fmt.Errorf("overview fetch failed: %w", err)
	}

	debtToEquity, err := w.provider.GetDebtToEquity(ctx, ticker)
	if err != nil {
		return fmt.Errorf("balance sheet fetch failed: %w", err)
	}

	prices, err := w.provider.GetDailyPrices(ctx, ticker)
	if err != nil {
		return fmt.Errorf("price fetch failed: %w", err)
	}

	record := &contracts.FundamentalRecord{
		Ticker:        ticker,
		AsOfDate:      overview.AsOfDate(),
		PayoutRatio:   overview.PayoutRatioValue(),
		DebtToEquity:  debtToEquity,
		DividendYield: overview.DividendYieldValue(),
		Beta:          overview.BetaValue(),
		DividendCut:   w.detectDividendCut(ctx, ticker, prices),
		RawPayload:    overview.RawPayload,
	}

	if err := w.repo.SaveFundamental(ctx, record); err != nil {
		return err
	}
	if len(prices) > 0 {
		latest := prices[0]
		if err := w.repo.SavePrice(ctx, ticker, latest.Date, latest.Close); err != nil {
			return err
		}
	}
	w.cached.Invalidate(ctx, ticker)

	w.logger.WithFields(map[string]interface{}{
		"ticker":       ticker,
		"payout_ratio": record.PayoutRatio,
		"dividend_cut": record.DividendCut,
	}).Debug("Refreshed ticker")

	return nil
}

// detectDividendCut runs the cut detector over the dividend history.
// The scraper is the primary source; when it fails, the dividend
// amounts embedded in the daily price series serve as fallback.
func (w *Worker) detectDividendCut(ctx context.Context, ticker string, prices []alphavantage.DailyPrice) bool {
	if w.scraper == nil {
		amounts := make([]float64, 0, len(prices))
		for _, p := range prices {
			amounts = append(amounts, p.Dividend)
		}
		return DetectCut(amounts)
	}

	payments, err := w.scraper.GetDividendHistory(ctx, ticker)
	if err == nil {
		amounts := make([]float64, 0, len(payments))
		for _, p := range payments {
			amounts = append(amounts, p.Amount)
		}
		return DetectCut(amounts)
	}

	w.logger.WithError(err).WithField("ticker", ticker).Warn("Dividend history scrape failed, using price series")

	amounts := make([]float64, 0, len(prices))
	for _, p := range prices {
		amounts = append(amounts, p.Dividend)
	}
	return DetectCut(amounts)
}
