package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/wonny/divsage/internal/contracts"
)

// Builder constructs the bounded reasoning request (R1).
// Deterministic: identical holdings, snapshot, constraints, and asOf
// produce byte-identical output. No clock reads and no randomness;
// asOf is always caller-supplied.
type Builder struct{}

// NewBuilder creates a new prompt builder
func NewBuilder() *Builder {
	return &Builder{}
}

// outputSchema is the exact shape the model must emit. Field names
// here are the wire contract the output validator enforces.
const outputSchema = `{
  "targetPortfolio": [
    {"ticker": "string (from the universe above)", "weight": "number in [0,1]", "rationale": "string"}
  ],
  "explanation": {
    "summary": "string",
    "bullets": ["string", "..."],
    "whatWouldChangeThis": ["string", "..."],
    "risksToWatch": ["string", "..."],
    "disclaimers": ["string", "..."]
  }
}`

// Build serializes holdings, snapshot, and constraints into a single
// reasoning request and returns it with the canonical universe used
// later by the hallucination guard.
func (b *Builder) Build(holdings []contracts.Holding, snapshot *contracts.MarketSnapshot, constraints contracts.Constraints, asOf time.Time) (*contracts.PromptRequest, error) {
	var sb strings.Builder

	sb.WriteString("You are a dividend-portfolio analyst. Propose a rebalanced target portfolio ")
	sb.WriteString("for the investor below. Base every statement strictly on the supplied data.\n\n")

	fmt.Fprintf(&sb, "As-of date: %s\n", asOf.Format("2006-01-02"))
	fmt.Fprintf(&sb, "Benchmark: %s\n\n", constraints.BenchmarkTicker)

	sb.WriteString("Constraints:\n")
	fmt.Fprintf(&sb, "- At most %d holdings in the target portfolio\n", constraints.MaxHoldings)
	fmt.Fprintf(&sb, "- Avoid payout ratios above %.2f\n", constraints.PayoutCeiling)
	fmt.Fprintf(&sb, "- Avoid debt-to-equity above %.2f\n\n", constraints.LeverageCeiling)

	writeHoldings(&sb, holdings)
	writeSnapshot(&sb, snapshot)

	tickers := snapshot.Tickers()
	fmt.Fprintf(&sb, "Universe (the ONLY tickers you may recommend): %s\n\n", strings.Join(tickers, ", "))

	sb.WriteString("Respond with exactly one JSON object and nothing else, matching this schema:\n")
	sb.WriteString(outputSchema)
	sb.WriteString("\n\nRules:\n")
	sb.WriteString("- Every ticker in targetPortfolio MUST be drawn from the universe above.\n")
	sb.WriteString("- Weights must be non-negative and sum to exactly 1.0.\n")
	sb.WriteString("- Do not invent tickers, prices, or fundamentals not present in this request.\n")

	return &contracts.PromptRequest{
		Text:     sb.String(),
		Universe: snapshot.Universe(),
	}, nil
}

// writeHoldings renders the current positions table
func writeHoldings(sb *strings.Builder, holdings []contracts.Holding) {
	if len(holdings) == 0 {
		sb.WriteString("Current holdings: none (new portfolio)\n\n")
		return
	}

	sb.WriteString("Current holdings:\n")
	for _, h := range holdings {
		fmt.Fprintf(sb, "- %s: %.4f shares, cost basis %.2f\n", h.Ticker, h.Shares, h.CostBasis)
	}
	sb.WriteString("\n")
}

// writeSnapshot renders the per-ticker market context, surfacing data
// gaps explicitly rather than omitting tickers
func writeSnapshot(sb *strings.Builder, snapshot *contracts.MarketSnapshot) {
	sb.WriteString("Market snapshot:\n")
	for _, e := range snapshot.Entries {
		fmt.Fprintf(sb, "- %s: ", e.Ticker)

		if e.Price != nil {
			fmt.Fprintf(sb, "price %.2f", *e.Price)
		} else {
			sb.WriteString("price unavailable")
		}

		if e.Quality != nil {
			fmt.Fprintf(sb, ", quality score %d/100", e.Quality.QualityScore)
			if e.Quality.LeverageFlag {
				sb.WriteString(", HIGH LEVERAGE")
			}
			if e.Quality.YieldTrapFlag {
				sb.WriteString(", POSSIBLE YIELD TRAP")
			}
			if e.Quality.DividendCutFlag {
				sb.WriteString(", RECENT DIVIDEND CUT")
			}
		} else {
			sb.WriteString(", NO FUNDAMENTAL DATA")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}
