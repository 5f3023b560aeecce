package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// CompanyOverview holds the subset of the OVERVIEW response the
// ingestion pipeline consumes. All numerics arrive as strings.
type CompanyOverview struct {
	Symbol           string `json:"Symbol"`
	Name             string `json:"Name"`
	PayoutRatio      string `json:"PayoutRatio"`
	DividendYield    string `json:"DividendYield"`
	DividendPerShare string `json:"DividendPerShare"`
	Beta             string `json:"Beta"`
	EPS              string `json:"EPS"`
	LatestQuarter    string `json:"LatestQuarter"`
	RawPayload       []byte `json:"-"`
}

// PayoutRatioValue returns the payout ratio as a float
func (o *CompanyOverview) PayoutRatioValue() float64 {
	return parseFloat(o.PayoutRatio)
}

// DividendYieldValue returns the dividend yield as a float
func (o *CompanyOverview) DividendYieldValue() float64 {
	return parseFloat(o.DividendYield)
}

// BetaValue returns beta as a float, 0 when unreported
func (o *CompanyOverview) BetaValue() float64 {
	return parseFloat(o.Beta)
}

// AsOfDate returns the latest quarter date, falling back to today
// when the field is missing
func (o *CompanyOverview) AsOfDate() time.Time {
	if d, err := time.Parse("2006-01-02", o.LatestQuarter); err == nil {
		return d
	}
	return time.Now().UTC().Truncate(24 * time.Hour)
}

// GetOverview fetches company fundamentals for a ticker
func (c *Client) GetOverview(ctx context.Context, ticker string) (*CompanyOverview, error) {
	body, err := c.fetch(ctx, "OVERVIEW", ticker)
	if err != nil {
		return nil, err
	}

	var overview CompanyOverview
	if err := json.Unmarshal(body, &overview); err != nil {
		return nil, fmt.Errorf("failed to parse overview: %w", err)
	}
	if overview.Symbol == "" {
		// Unknown tickers come back as an empty object
		return nil, fmt.Errorf("no overview data for %s", ticker)
	}
	overview.RawPayload = body

	c.logger.WithField("ticker", ticker).Debug("Fetched company overview")

	return &overview, nil
}
