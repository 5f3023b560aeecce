package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// DailyPrice is one adjusted daily bar. Dividend is the per-share
// amount paid that day, 0 on non-payment days.
type DailyPrice struct {
	Date     time.Time
	Close    float64
	Dividend float64
}

// dailySeriesResponse is the TIME_SERIES_DAILY_ADJUSTED wire shape
type dailySeriesResponse struct {
	Series map[string]struct {
		Close    string `json:"4. close"`
		Adjusted string `json:"5. adjusted close"`
		Dividend string `json:"7. dividend amount"`
	} `json:"Time Series (Daily)"`
}

// GetDailyPrices fetches the adjusted daily series for a ticker,
// newest first
func (c *Client) GetDailyPrices(ctx context.Context, ticker string) ([]DailyPrice, error) {
	body, err := c.fetch(ctx, "TIME_SERIES_DAILY_ADJUSTED", ticker)
	if err != nil {
		return nil, err
	}

	var series dailySeriesResponse
	if err := json.Unmarshal(body, &series); err != nil {
		return nil, fmt.Errorf("failed to parse daily series: %w", err)
	}
	if len(series.Series) == 0 {
		return nil, fmt.Errorf("no price data for %s", ticker)
	}

	prices := make([]DailyPrice, 0, len(series.Series))
	for dateStr, bar := range series.Series {
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}
		prices = append(prices, DailyPrice{
			Date:     date,
			Close:    parseFloat(bar.Close),
			Dividend: parseFloat(bar.Dividend),
		})
	}

	sort.Slice(prices, func(i, j int) bool {
		return prices[i].Date.After(prices[j].Date)
	})

	c.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"bars":   len(prices),
	}).Debug("Fetched daily prices")

	return prices, nil
}
