package scoring

import (
	"math"

	"github.com/wonny/divsage/internal/contracts"
)

// Policy constants for the safety score.
// Payout ratio and leverage thresholds mirror the ingestion safety gate.
const (
	PayoutRatioThreshold  = 0.8
	PayoutRatioPenalty    = 40
	DebtToEquityThreshold = 2.0
	DebtToEquityPenalty   = 30
)

// Scorer derives safety/quality metrics from fundamentals
// SSOT: quality scoring happens here only
type Scorer struct{}

// NewScorer creates a new quality scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score computes QualityMetrics from a fundamental record.
// Pure and total: no failure modes, missing or malformed numeric
// fields default to 0 before scoring.
//
//	score = max(0, 100 - 40*[payout > 0.8] - 30*[d/e > 2.0])
//
// The dividend-cut flag is set by the ingestion-side detector and
// passed through unchanged; the scorer does not infer cuts itself.
func (s *Scorer) Score(record contracts.FundamentalRecord) contracts.QualityMetrics {
	payout := sanitize(record.PayoutRatio)
	leverage := sanitize(record.DebtToEquity)

	score := 100
	if payout > PayoutRatioThreshold {
		score -= PayoutRatioPenalty
	}
	if leverage > DebtToEquityThreshold {
		score -= DebtToEquityPenalty
	}
	if score < 0 {
		score = 0
	}

	return contracts.QualityMetrics{
		Ticker:          record.Ticker,
		QualityScore:    score,
		LeverageFlag:    leverage > DebtToEquityThreshold,
		YieldTrapFlag:   payout > PayoutRatioThreshold,
		DividendCutFlag: record.DividendCut,
	}
}

// sanitize replaces NaN, infinities, and negative values with 0 so
// malformed provider data never propagates into the score
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
