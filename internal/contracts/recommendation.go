package contracts

import "time"

// PortfolioItem is one target position proposed by the reasoning model.
// JSON field names are the canonical wire contract shared with the
// model instructions and persisted packets.
type PortfolioItem struct {
	Ticker    string  `json:"ticker"`
	Weight    float64 `json:"weight"` // 0.0 ~ 1.0
	Rationale string  `json:"rationale"`
	Score     float64 `json:"score,omitempty"` // optional model echo, not validated
}

// ComplianceIssue flags a mechanically detected safety concern for a
// recommended ticker. Appended by the assembler from QualityMetrics,
// never taken from model output.
type ComplianceIssue struct {
	Ticker  string `json:"ticker"`
	Type    string `json:"type"` // LEVERAGE, YIELD_TRAP, DIVIDEND_CUT
	Message string `json:"message"`
}

// Compliance issue types
const (
	IssueLeverage    = "LEVERAGE"
	IssueYieldTrap   = "YIELD_TRAP"
	IssueDividendCut = "DIVIDEND_CUT"
)

// PacketMetrics holds portfolio-level metrics
type PacketMetrics struct {
	Yield float64 `json:"yield"`
	Beta  float64 `json:"beta"`
}

// RecommendationPacket is the validated rebalancing proposal.
// Invariant: weights sum to 1.0 within tolerance, and every ticker
// appears in the universe supplied to the reasoning step.
type RecommendationPacket struct {
	AsOf            string            `json:"asOf"` // YYYY-MM-DD
	Benchmark       string            `json:"benchmark"`
	TargetPortfolio []PortfolioItem   `json:"targetPortfolio"`
	Compliance      []ComplianceIssue `json:"compliance"`
	Metrics         PacketMetrics     `json:"metrics"`
}

// TotalWeight returns the sum of all target weights
func (p *RecommendationPacket) TotalWeight() float64 {
	total := 0.0
	for _, item := range p.TargetPortfolio {
		total += item.Weight
	}
	return total
}

// Count returns the number of target positions
func (p *RecommendationPacket) Count() int {
	return len(p.TargetPortfolio)
}

// Explanation always accompanies a packet, never persisted alone
type Explanation struct {
	Summary             string   `json:"summary"`
	Bullets             []string `json:"bullets"`
	WhatWouldChangeThis []string `json:"whatWouldChangeThis,omitempty"`
	RisksToWatch        []string `json:"risksToWatch"`
	Disclaimers         []string `json:"disclaimers,omitempty"`
}

// RecommendationStatus is the persisted lifecycle state
type RecommendationStatus string

const (
	StatusPending   RecommendationStatus = "PENDING"
	StatusCompleted RecommendationStatus = "COMPLETED"
	StatusFailed    RecommendationStatus = "FAILED"
)

// IsTerminal reports whether the status permits no further mutation.
// A retry creates a new Recommendation, it never reopens this one.
func (s RecommendationStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Recommendation is the persisted advisory artifact
type Recommendation struct {
	ID            string                `json:"id"`
	Owner         string                `json:"owner"`
	Status        RecommendationStatus  `json:"status"`
	Packet        *RecommendationPacket `json:"packet,omitempty"`
	Explanation   *Explanation          `json:"explanation,omitempty"`
	ErrorDetail   string                `json:"error_detail,omitempty"`
	CorrelationID string                `json:"correlation_id"`
	CreatedAt     time.Time             `json:"created_at"`
}
