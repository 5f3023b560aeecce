package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/divsage/internal/contracts"
)

// Repository handles market data persistence. Implements
// contracts.MarketData.
// SSOT: fundamentals and price reads/writes happen here only.
// Fundamental rows are immutable: newer as_of_date rows supersede
// older ones, and latest-by-date is the active record.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new market data repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LatestFundamental retrieves the active fundamental record for a
// ticker. Returns nil without error when no record exists.
func (r *Repository) LatestFundamental(ctx context.Context, ticker string) (*contracts.FundamentalRecord, error) {
	query := `
		SELECT ticker, as_of_date, payout_ratio, debt_to_equity, dividend_yield, beta, dividend_cut, raw_payload
		FROM marketdata.fundamentals
		WHERE ticker = $1
		ORDER BY as_of_date DESC
		LIMIT 1
	`

	var rec contracts.FundamentalRecord
	err := r.pool.QueryRow(ctx, query, ticker).Scan(
		&rec.Ticker, &rec.AsOfDate, &rec.PayoutRatio, &rec.DebtToEquity,
		&rec.DividendYield, &rec.Beta, &rec.DividendCut, &rec.RawPayload,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fundamental for %s: %w", ticker, err)
	}

	return &rec, nil
}

// LatestPrice retrieves the most recent close price for a ticker.
// The second return value reports whether a price exists.
func (r *Repository) LatestPrice(ctx context.Context, ticker string) (float64, bool, error) {
	query := `
		SELECT close
		FROM marketdata.prices
		WHERE ticker = $1
		ORDER BY trade_date DESC
		LIMIT 1
	`

	var price float64
	err := r.pool.QueryRow(ctx, query, ticker).Scan(&price)

	if err == pgx.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get price for %s: %w", ticker, err)
	}

	return price, true, nil
}

// SaveFundamental appends one fundamental record. A re-ingestion of
// the same (ticker, as_of_date) replaces the payload in place.
func (r *Repository) SaveFundamental(ctx context.Context, rec *contracts.FundamentalRecord) error {
	query := `
		INSERT INTO marketdata.fundamentals (
			ticker, as_of_date, payout_ratio, debt_to_equity, dividend_yield, beta, dividend_cut, raw_payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (ticker, as_of_date) DO UPDATE SET
			payout_ratio = EXCLUDED.payout_ratio,
			debt_to_equity = EXCLUDED.debt_to_equity,
			dividend_yield = EXCLUDED.dividend_yield,
			beta = EXCLUDED.beta,
			dividend_cut = EXCLUDED.dividend_cut,
			raw_payload = EXCLUDED.raw_payload
	`

	_, err := r.pool.Exec(ctx, query,
		rec.Ticker, rec.AsOfDate, rec.PayoutRatio, rec.DebtToEquity,
		rec.DividendYield, rec.Beta, rec.DividendCut, rec.RawPayload,
	)
	if err != nil {
		return fmt.Errorf("failed to save fundamental for %s: %w", rec.Ticker, err)
	}

	return nil
}

// SavePrice upserts one daily close price
func (r *Repository) SavePrice(ctx context.Context, ticker string, tradeDate time.Time, close float64) error {
	query := `
		INSERT INTO marketdata.prices (ticker, trade_date, close)
		VALUES ($1, $2, $3)
		ON CONFLICT (ticker, trade_date) DO UPDATE SET close = EXCLUDED.close
	`

	_, err := r.pool.Exec(ctx, query, ticker, tradeDate, close)
	if err != nil {
		return fmt.Errorf("failed to save price for %s: %w", ticker, err)
	}

	return nil
}

// ListTickers returns the tickers the refresh worker should track:
// everything with fundamental data plus every currently held ticker
func (r *Repository) ListTickers(ctx context.Context) ([]string, error) {
	query := `
		SELECT ticker FROM marketdata.fundamentals
		UNION
		SELECT ticker FROM advisor.holdings
		ORDER BY ticker ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickers: %w", err)
	}
	defer rows.Close()

	tickers := make([]string, 0)
	for rows.Next() {
		var ticker string
		if err := rows.Scan(&ticker); err != nil {
			return nil, fmt.Errorf("failed to scan ticker: %w", err)
		}
		tickers = append(tickers, ticker)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return tickers, nil
}
