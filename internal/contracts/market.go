package contracts

import (
	"encoding/json"
	"regexp"
	"time"
)

// tickerPattern: uppercase alphabetic, 1-5 characters
var tickerPattern = regexp.MustCompile(`^[A-Z]{1,5}$`)

// IsValidTicker reports whether s is a well-formed exchange symbol
func IsValidTicker(s string) bool {
	return tickerPattern.MatchString(s)
}

// FundamentalRecord is one ingested fundamentals row for a ticker.
// Immutable once created; newer asOfDate rows supersede older ones,
// latest-by-date is the active record.
type FundamentalRecord struct {
	Ticker        string          `json:"ticker"`
	AsOfDate      time.Time       `json:"as_of_date"`
	PayoutRatio   float64         `json:"payout_ratio"`    // >= 0
	DebtToEquity  float64         `json:"debt_to_equity"`  // >= 0
	DividendYield float64         `json:"dividend_yield"`  // >= 0
	Beta          float64         `json:"beta"`            // 0 when the provider reports none
	DividendCut   bool            `json:"dividend_cut"`    // set by the ingestion-side detector
	RawPayload    json.RawMessage `json:"raw_payload,omitempty"`
}

// QualityMetrics are derived safety/quality signals for one ticker.
// Computed fresh from the latest FundamentalRecord, never persisted
// independently.
type QualityMetrics struct {
	Ticker          string `json:"ticker"`
	QualityScore    int    `json:"quality_score"` // 0-100
	LeverageFlag    bool   `json:"leverage_flag"`
	YieldTrapFlag   bool   `json:"yield_trap_flag"`
	DividendCutFlag bool   `json:"dividend_cut_flag"`
}

// TickerSnapshot is one entry of the market snapshot handed to the
// reasoning step. Quality is nil when no fundamental data exists for
// the ticker: data gaps are surfaced, not silently dropped.
type TickerSnapshot struct {
	Ticker  string          `json:"ticker"`
	Price   *float64        `json:"price,omitempty"`
	Yield   *float64        `json:"yield,omitempty"`
	Beta    *float64        `json:"beta,omitempty"`
	Quality *QualityMetrics `json:"quality,omitempty"`
}

// MarketSnapshot is the ordered per-ticker context for one pipeline run
type MarketSnapshot struct {
	AsOfDate time.Time        `json:"as_of_date"`
	Entries  []TickerSnapshot `json:"entries"`
}

// Universe returns the set of tickers present in the snapshot.
// This is the only set of tickers the reasoning model is permitted
// to recommend.
func (s *MarketSnapshot) Universe() map[string]struct{} {
	universe := make(map[string]struct{}, len(s.Entries))
	for _, e := range s.Entries {
		universe[e.Ticker] = struct{}{}
	}
	return universe
}

// Tickers returns snapshot tickers in order
func (s *MarketSnapshot) Tickers() []string {
	tickers := make([]string, 0, len(s.Entries))
	for _, e := range s.Entries {
		tickers = append(tickers, e.Ticker)
	}
	return tickers
}

// Count returns the number of snapshot entries
func (s *MarketSnapshot) Count() int {
	return len(s.Entries)
}
