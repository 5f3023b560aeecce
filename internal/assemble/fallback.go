package assemble

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wonny/divsage/internal/contracts"
)

// standardDisclaimers accompany every rule-based explanation
var standardDisclaimers = []string{
	"This is an automatically generated analysis, not financial advice.",
	"Past dividend performance does not guarantee future payments.",
	"Consult a licensed financial advisor before making investment decisions.",
}

// Fallback builds a FAILED recommendation that still carries a
// mechanically computed packet and a rule-based explanation. Opt-in
// via Constraints.FallbackOnFailure: the artifact keeps its FAILED
// status and error detail so the substitution stays auditable.
// Falls back to a bare Failure artifact when no snapshot entry has
// quality data to rank.
func (a *Assembler) Fallback(err error, snap *contracts.MarketSnapshot, constraints contracts.Constraints, owner, correlationID string, asOf time.Time) *contracts.Recommendation {
	rec := a.Failure(err, owner, correlationID)

	portfolio := topQualityPortfolio(snap, constraints.MaxHoldings)
	if len(portfolio) == 0 {
		return rec
	}

	byTicker := make(map[string]contracts.TickerSnapshot, len(snap.Entries))
	for _, entry := range snap.Entries {
		byTicker[entry.Ticker] = entry
	}

	packet := &contracts.RecommendationPacket{
		AsOf:            asOf.Format("2006-01-02"),
		Benchmark:       constraints.BenchmarkTicker,
		TargetPortfolio: portfolio,
		Compliance:      complianceIssues(portfolio, byTicker),
		Metrics:         portfolioMetrics(portfolio, byTicker),
	}
	explanation := FallbackExplanation(packet, snap)

	rec.Packet = packet
	rec.Explanation = &explanation

	a.logger.WithFields(map[string]interface{}{
		"owner":     owner,
		"positions": packet.Count(),
		"error":     rec.ErrorDetail,
	}).Warn("Assembled rule-based fallback recommendation")

	return rec
}

// topQualityPortfolio ranks quality-scored snapshot entries and
// assigns equal weights across the top positions. Entries without
// fundamental data never enter a rule-based allocation.
func topQualityPortfolio(snap *contracts.MarketSnapshot, maxHoldings int) []contracts.PortfolioItem {
	scored := make([]contracts.TickerSnapshot, 0, len(snap.Entries))
	for _, entry := range snap.Entries {
		if entry.Quality != nil {
			scored = append(scored, entry)
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Quality.QualityScore > scored[j].Quality.QualityScore
	})
	if maxHoldings > 0 && len(scored) > maxHoldings {
		scored = scored[:maxHoldings]
	}
	if len(scored) == 0 {
		return nil
	}

	weight := 1.0 / float64(len(scored))
	items := make([]contracts.PortfolioItem, 0, len(scored))
	for _, entry := range scored {
		items = append(items, contracts.PortfolioItem{
			Ticker:    entry.Ticker,
			Weight:    weight,
			Rationale: fmt.Sprintf("Quality score %d of 100.", entry.Quality.QualityScore),
			Score:     float64(entry.Quality.QualityScore),
		})
	}
	return items
}

// FallbackExplanation builds a deterministic rule-based explanation
// from the packet and snapshot data. Always labeled as generated.
func FallbackExplanation(packet *contracts.RecommendationPacket, snap *contracts.MarketSnapshot) contracts.Explanation {
	byTicker := make(map[string]contracts.TickerSnapshot, len(snap.Entries))
	for _, entry := range snap.Entries {
		byTicker[entry.Ticker] = entry
	}

	ranked := make([]contracts.PortfolioItem, len(packet.TargetPortfolio))
	copy(ranked, packet.TargetPortfolio)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Weight > ranked[j].Weight
	})

	top := ranked
	if len(top) > 3 {
		top = top[:3]
	}
	names := make([]string, 0, len(top))
	for _, item := range top {
		names = append(names, fmt.Sprintf("%s (%.0f%%)", item.Ticker, item.Weight*100))
	}

	summary := fmt.Sprintf(
		"Rule-based allocation across %d dividend positions, led by %s, benchmarked against %s.",
		packet.Count(), strings.Join(names, ", "), packet.Benchmark)

	bullets := make([]string, 0, len(top)+1)
	for _, item := range top {
		entry, ok := byTicker[item.Ticker]
		if ok && entry.Quality != nil {
			bullets = append(bullets, fmt.Sprintf("%s holds a quality score of %d out of 100.",
				item.Ticker, entry.Quality.QualityScore))
			continue
		}
		bullets = append(bullets, fmt.Sprintf("%s has incomplete fundamental data; weight was assigned conservatively.", item.Ticker))
	}
	bullets = append(bullets, fmt.Sprintf("Portfolio yield is %.2f%% with an estimated beta of %.2f.",
		packet.Metrics.Yield*100, packet.Metrics.Beta))

	risks := []string{"Dividend policies can change without notice.", "Concentrated positions amplify single-name risk."}
	for _, issue := range packet.Compliance {
		risks = append(risks, issue.Message+".")
	}

	return contracts.Explanation{
		Summary:      summary,
		Bullets:      bullets,
		RisksToWatch: risks,
		Disclaimers:  standardDisclaimers,
	}
}
