package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/divsage/internal/contracts"
	"github.com/wonny/divsage/internal/scoring"
	"github.com/wonny/divsage/pkg/logger"
)

// fakeMarketData serves canned fundamentals and prices
type fakeMarketData struct {
	fundamentals map[string]*contracts.FundamentalRecord
	prices       map[string]float64
	err          error
}

func (f *fakeMarketData) LatestFundamental(ctx context.Context, ticker string) (*contracts.FundamentalRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.fundamentals[ticker], nil
}

func (f *fakeMarketData) LatestPrice(ctx context.Context, ticker string) (float64, bool, error) {
	if f.err != nil {
		return 0, false, f.err
	}
	price, ok := f.prices[ticker]
	return price, ok, nil
}

func newTestBuilder(market contracts.MarketData) *Builder {
	return NewBuilder(market, scoring.NewScorer(), 3*time.Second, logger.NewNop())
}

func TestBuilder_Build(t *testing.T) {
	market := &fakeMarketData{
		fundamentals: map[string]*contracts.FundamentalRecord{
			"MSFT": {Ticker: "MSFT", PayoutRatio: 0.3, DebtToEquity: 0.5},
		},
		prices: map[string]float64{
			"MSFT": 420.5,
			"JNJ":  155.0,
		},
	}

	builder := newTestBuilder(market)
	asOf := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	snap, err := builder.Build(context.Background(), []string{"MSFT", "JNJ"}, asOf)
	require.NoError(t, err)
	require.Equal(t, 2, snap.Count())

	// MSFT: full data
	msft := snap.Entries[0]
	assert.Equal(t, "MSFT", msft.Ticker)
	require.NotNil(t, msft.Price)
	assert.Equal(t, 420.5, *msft.Price)
	require.NotNil(t, msft.Quality)
	assert.Equal(t, 100, msft.Quality.QualityScore)

	// JNJ: no fundamentals, included with nil quality rather than dropped
	jnj := snap.Entries[1]
	assert.Equal(t, "JNJ", jnj.Ticker)
	assert.Nil(t, jnj.Quality)
	require.NotNil(t, jnj.Price)
}

func TestBuilder_EmptyTickerSet(t *testing.T) {
	builder := newTestBuilder(&fakeMarketData{})

	snap, err := builder.Build(context.Background(), nil, time.Now())
	require.NoError(t, err, "empty ticker set is not an error")
	assert.Equal(t, 0, snap.Count())
}

func TestBuilder_DedupesAndSkipsMalformed(t *testing.T) {
	market := &fakeMarketData{
		prices: map[string]float64{"KO": 60.0},
	}
	builder := newTestBuilder(market)

	snap, err := builder.Build(context.Background(), []string{"KO", "KO", "bad!", "TOOLONG"}, time.Now())
	require.NoError(t, err)
	require.Equal(t, 1, snap.Count())
	assert.Equal(t, "KO", snap.Entries[0].Ticker)
}

func TestBuilder_LookupFailure(t *testing.T) {
	market := &fakeMarketData{err: errors.New("provider down")}
	builder := newTestBuilder(market)

	_, err := builder.Build(context.Background(), []string{"MSFT"}, time.Now())
	require.Error(t, err)
	assert.Equal(t, contracts.ErrUpstreamUnavailable, contracts.KindOf(err))
}

func TestBuilder_PreservesInputOrder(t *testing.T) {
	market := &fakeMarketData{}
	builder := newTestBuilder(market)

	snap, err := builder.Build(context.Background(), []string{"ZZ", "AA", "MM"}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{"ZZ", "AA", "MM"}, snap.Tickers())
}
