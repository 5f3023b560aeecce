package assemble

import (
	"fmt"
	"time"

	"github.com/wonny/divsage/internal/contracts"
	"github.com/wonny/divsage/pkg/logger"
)

// defaultBeta is assumed for positions with no reported beta
const defaultBeta = 1.0

// Assembler turns a validated proposal into the persisted advisory
// artifact (R4). Compliance issues and portfolio metrics are computed
// mechanically from snapshot data here, never taken from model output.
type Assembler struct {
	logger *logger.Logger
}

// NewAssembler creates a new recommendation assembler
func NewAssembler(log *logger.Logger) *Assembler {
	return &Assembler{logger: log}
}

// Success builds a COMPLETED recommendation from a validated proposal
func (a *Assembler) Success(proposal *contracts.ModelProposal, snap *contracts.MarketSnapshot, constraints contracts.Constraints, owner, correlationID string, asOf time.Time) *contracts.Recommendation {
	byTicker := make(map[string]contracts.TickerSnapshot, len(snap.Entries))
	for _, entry := range snap.Entries {
		byTicker[entry.Ticker] = entry
	}

	packet := &contracts.RecommendationPacket{
		AsOf:            asOf.Format("2006-01-02"),
		Benchmark:       constraints.BenchmarkTicker,
		TargetPortfolio: proposal.TargetPortfolio,
		Compliance:      complianceIssues(proposal.TargetPortfolio, byTicker),
		Metrics:         portfolioMetrics(proposal.TargetPortfolio, byTicker),
	}

	explanation := proposal.Explanation

	a.logger.WithFields(map[string]interface{}{
		"owner":             owner,
		"positions":         packet.Count(),
		"compliance_issues": len(packet.Compliance),
	}).Info("Assembled recommendation")

	return &contracts.Recommendation{
		Owner:         owner,
		Status:        contracts.StatusCompleted,
		Packet:        packet,
		Explanation:   &explanation,
		CorrelationID: correlationID,
		CreatedAt:     time.Now().UTC(),
	}
}

// Failure builds a FAILED recommendation carrying the error kind.
// ErrorDetail exposes the taxonomy kind and stage only, never raw
// provider responses or model text.
func (a *Assembler) Failure(err error, owner, correlationID string) *contracts.Recommendation {
	kind := contracts.KindOf(err)
	detail := string(kind)
	if reason := contracts.ReasonOf(err); reason != "" {
		detail = fmt.Sprintf("%s:%s", kind, reason)
	}

	return &contracts.Recommendation{
		Owner:         owner,
		Status:        contracts.StatusFailed,
		ErrorDetail:   detail,
		CorrelationID: correlationID,
		CreatedAt:     time.Now().UTC(),
	}
}

// complianceIssues derives safety flags for the recommended tickers
// from the snapshot's quality metrics
func complianceIssues(portfolio []contracts.PortfolioItem, byTicker map[string]contracts.TickerSnapshot) []contracts.ComplianceIssue {
	issues := make([]contracts.ComplianceIssue, 0)
	for _, item := range portfolio {
		entry, ok := byTicker[item.Ticker]
		if !ok || entry.Quality == nil {
			continue
		}
		q := entry.Quality
		if q.LeverageFlag {
			issues = append(issues, contracts.ComplianceIssue{
				Ticker:  item.Ticker,
				Type:    contracts.IssueLeverage,
				Message: fmt.Sprintf("%s carries elevated leverage", item.Ticker),
			})
		}
		if q.YieldTrapFlag {
			issues = append(issues, contracts.ComplianceIssue{
				Ticker:  item.Ticker,
				Type:    contracts.IssueYieldTrap,
				Message: fmt.Sprintf("%s shows yield-trap characteristics", item.Ticker),
			})
		}
		if q.DividendCutFlag {
			issues = append(issues, contracts.ComplianceIssue{
				Ticker:  item.Ticker,
				Type:    contracts.IssueDividendCut,
				Message: fmt.Sprintf("%s recently reduced its dividend", item.Ticker),
			})
		}
	}
	return issues
}

// portfolioMetrics computes the weight-averaged yield and beta.
// Positions with no snapshot yield contribute zero; positions with no
// snapshot beta are assumed market-like.
func portfolioMetrics(portfolio []contracts.PortfolioItem, byTicker map[string]contracts.TickerSnapshot) contracts.PacketMetrics {
	var yield, beta float64
	for _, item := range portfolio {
		entry, ok := byTicker[item.Ticker]
		if ok && entry.Yield != nil {
			yield += item.Weight * *entry.Yield
		}
		if ok && entry.Beta != nil && *entry.Beta > 0 {
			beta += item.Weight * *entry.Beta
		} else {
			beta += item.Weight * defaultBeta
		}
	}
	return contracts.PacketMetrics{Yield: yield, Beta: beta}
}
