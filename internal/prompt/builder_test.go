package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/divsage/internal/contracts"
)

func testInputs() ([]contracts.Holding, *contracts.MarketSnapshot, contracts.Constraints, time.Time) {
	price := 420.5
	holdings := []contracts.Holding{
		{Owner: "user-1", Ticker: "MSFT", Shares: 10, CostBasis: 300},
	}
	snapshot := &contracts.MarketSnapshot{
		AsOfDate: time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		Entries: []contracts.TickerSnapshot{
			{
				Ticker: "MSFT",
				Price:  &price,
				Quality: &contracts.QualityMetrics{
					Ticker:       "MSFT",
					QualityScore: 70,
					LeverageFlag: true,
				},
			},
			{Ticker: "JNJ"},
		},
	}
	constraints := contracts.DefaultConstraints()
	asOf := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	return holdings, snapshot, constraints, asOf
}

func TestBuilder_Deterministic(t *testing.T) {
	builder := NewBuilder()
	holdings, snapshot, constraints, asOf := testInputs()

	first, err := builder.Build(holdings, snapshot, constraints, asOf)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := builder.Build(holdings, snapshot, constraints, asOf)
		require.NoError(t, err)
		assert.Equal(t, first.Text, again.Text, "prompt must be byte-identical across calls")
	}
}

func TestBuilder_EmbedsSchemaAndUniverse(t *testing.T) {
	builder := NewBuilder()
	holdings, snapshot, constraints, asOf := testInputs()

	req, err := builder.Build(holdings, snapshot, constraints, asOf)
	require.NoError(t, err)

	// The instructions must state the exact output field names
	for _, field := range []string{"targetPortfolio", "ticker", "weight", "rationale", "summary", "bullets", "risksToWatch"} {
		assert.Contains(t, req.Text, field)
	}

	// And restrict recommendations to the supplied universe
	assert.Contains(t, req.Text, "MSFT, JNJ")
	assert.Contains(t, req.Text, "ONLY tickers")

	require.Len(t, req.Universe, 2)
	_, hasMSFT := req.Universe["MSFT"]
	assert.True(t, hasMSFT)
}

func TestBuilder_SurfacesDataGaps(t *testing.T) {
	builder := NewBuilder()
	holdings, snapshot, constraints, asOf := testInputs()

	req, err := builder.Build(holdings, snapshot, constraints, asOf)
	require.NoError(t, err)

	// JNJ has no fundamentals; the gap is stated, the ticker kept
	assert.Contains(t, req.Text, "JNJ")
	assert.Contains(t, req.Text, "NO FUNDAMENTAL DATA")

	// MSFT leverage flag is surfaced
	assert.Contains(t, req.Text, "HIGH LEVERAGE")
}

func TestBuilder_AsOfComesFromCaller(t *testing.T) {
	builder := NewBuilder()
	holdings, snapshot, constraints, _ := testInputs()

	asOf := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	req, err := builder.Build(holdings, snapshot, constraints, asOf)
	require.NoError(t, err)

	assert.Contains(t, req.Text, "2020-01-02")
	// No other date leaks in from the system clock
	assert.False(t, strings.Contains(req.Text, time.Now().AddDate(1, 0, 0).Format("2006")), "prompt must not read the wall clock")
}

func TestBuilder_EmptyHoldings(t *testing.T) {
	builder := NewBuilder()
	_, snapshot, constraints, asOf := testInputs()

	req, err := builder.Build(nil, snapshot, constraints, asOf)
	require.NoError(t, err)
	assert.Contains(t, req.Text, "new portfolio")
}
