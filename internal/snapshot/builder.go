package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/divsage/internal/contracts"
	"github.com/wonny/divsage/internal/scoring"
	"github.com/wonny/divsage/pkg/logger"
)

// Builder aggregates quality metrics and latest prices into the
// market context consumed by the reasoning step (R0).
// SSOT: snapshot construction happens here only
type Builder struct {
	market        contracts.MarketData
	scorer        *scoring.Scorer
	lookupTimeout time.Duration
	logger        *logger.Logger
}

// NewBuilder creates a new snapshot builder
func NewBuilder(market contracts.MarketData, scorer *scoring.Scorer, lookupTimeout time.Duration, log *logger.Logger) *Builder {
	return &Builder{
		market:        market,
		scorer:        scorer,
		lookupTimeout: lookupTimeout,
		logger:        log,
	}
}

// Build constructs the snapshot for a set of tickers.
// Tickers with no fundamental data are included with Quality=nil so
// the reasoning step is informed of data gaps instead of seeing
// tickers vanish. An empty ticker set yields an empty snapshot, not
// an error: the caller decides whether that is fatal.
func (b *Builder) Build(ctx context.Context, tickers []string, asOf time.Time) (*contracts.MarketSnapshot, error) {
	snapshot := &contracts.MarketSnapshot{
		AsOfDate: asOf,
		Entries:  make([]contracts.TickerSnapshot, 0, len(tickers)),
	}

	seen := make(map[string]struct{}, len(tickers))

	for _, ticker := range tickers {
		if _, dup := seen[ticker]; dup {
			continue
		}
		seen[ticker] = struct{}{}

		if !contracts.IsValidTicker(ticker) {
			b.logger.WithField("ticker", ticker).Warn("Skipping malformed ticker")
			continue
		}

		entry, err := b.buildEntry(ctx, ticker)
		if err != nil {
			return nil, err
		}
		snapshot.Entries = append(snapshot.Entries, entry)
	}

	b.logger.WithFields(map[string]interface{}{
		"tickers": len(snapshot.Entries),
		"as_of":   asOf.Format("2006-01-02"),
	}).Debug("Built market snapshot")

	return snapshot, nil
}

// buildEntry looks up one ticker with a bounded lookup deadline
func (b *Builder) buildEntry(ctx context.Context, ticker string) (contracts.TickerSnapshot, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, b.lookupTimeout)
	defer cancel()

	entry := contracts.TickerSnapshot{Ticker: ticker}

	fundamental, err := b.market.LatestFundamental(lookupCtx, ticker)
	if err != nil {
		return entry, b.lookupError(lookupCtx, ticker, "fundamental lookup", err)
	}
	if fundamental != nil {
		metrics := b.scorer.Score(*fundamental)
		entry.Quality = &metrics
		yield := fundamental.DividendYield
		beta := fundamental.Beta
		entry.Yield = &yield
		entry.Beta = &beta
	}

	price, ok, err := b.market.LatestPrice(lookupCtx, ticker)
	if err != nil {
		return entry, b.lookupError(lookupCtx, ticker, "price lookup", err)
	}
	if ok {
		entry.Price = &price
	}

	return entry, nil
}

// lookupError maps a lookup failure to the pipeline taxonomy:
// deadline expiry is TIMEOUT, anything else is UPSTREAM_UNAVAILABLE.
func (b *Builder) lookupError(ctx context.Context, ticker, op string, err error) error {
	kind := contracts.ErrUpstreamUnavailable
	if ctx.Err() == context.DeadlineExceeded {
		kind = contracts.ErrTimeout
	}
	return contracts.WrapError(kind, contracts.StageSnapshot,
		fmt.Sprintf("%s for %s failed", op, ticker), err)
}
