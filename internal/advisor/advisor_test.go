package advisor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/divsage/internal/assemble"
	"github.com/wonny/divsage/internal/contracts"
	"github.com/wonny/divsage/pkg/config"
	"github.com/wonny/divsage/pkg/logger"
)

// --- fakes ---

type fakeHoldings struct {
	holdings []contracts.Holding
	err      error
}

func (f *fakeHoldings) ListByOwner(ctx context.Context, owner string) ([]contracts.Holding, error) {
	return f.holdings, f.err
}
func (f *fakeHoldings) Get(ctx context.Context, owner, id string) (*contracts.Holding, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeHoldings) Create(ctx context.Context, h *contracts.Holding) (string, error) {
	return "", errors.New("not implemented")
}
func (f *fakeHoldings) Update(ctx context.Context, h *contracts.Holding) error {
	return errors.New("not implemented")
}
func (f *fakeHoldings) Delete(ctx context.Context, owner, id string) error {
	return errors.New("not implemented")
}

type fakeSnapshots struct {
	snap    *contracts.MarketSnapshot
	err     error
	tickers []string
	asOf    time.Time
}

func (f *fakeSnapshots) Build(ctx context.Context, tickers []string, asOf time.Time) (*contracts.MarketSnapshot, error) {
	f.tickers = tickers
	f.asOf = asOf
	if f.err != nil {
		return nil, f.err
	}
	return f.snap, nil
}

type fakePrompts struct{}

func (f *fakePrompts) Build(holdings []contracts.Holding, snap *contracts.MarketSnapshot, constraints contracts.Constraints, asOf time.Time) (*contracts.PromptRequest, error) {
	return &contracts.PromptRequest{Text: "prompt", Universe: snap.Universe()}, nil
}

type fakeGateway struct {
	payload []byte
	err     error
	calls   int
}

func (f *fakeGateway) Invoke(ctx context.Context, req *contracts.PromptRequest) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

type fakeValidator struct {
	proposal *contracts.ModelProposal
	err      error
}

func (f *fakeValidator) Validate(raw []byte, universe map[string]struct{}, constraints contracts.Constraints) (*contracts.ModelProposal, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.proposal, nil
}

type fakeStore struct {
	saved    []*contracts.Recommendation
	failures int // number of leading Save calls that fail
	calls    int
}

func (f *fakeStore) Save(ctx context.Context, rec *contracts.Recommendation) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("connection reset")
	}
	f.saved = append(f.saved, rec)
	return fmt.Sprintf("rec-%d", len(f.saved)), nil
}
func (f *fakeStore) Get(ctx context.Context, owner, id string) (*contracts.Recommendation, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeStore) ListByOwner(ctx context.Context, owner string, limit int) ([]contracts.Recommendation, error) {
	return nil, errors.New("not implemented")
}

type fakeAudit struct {
	events []contracts.AuditEvent
	err    error
}

func (f *fakeAudit) Emit(ctx context.Context, event contracts.AuditEvent) error {
	f.events = append(f.events, event)
	return f.err
}

// --- helpers ---

func testHoldings() []contracts.Holding {
	return []contracts.Holding{
		{ID: "h1", Owner: "owner-1", Ticker: "MSFT", Shares: 10},
		{ID: "h2", Owner: "owner-1", Ticker: "JNJ", Shares: 25},
	}
}

func testSnapshot() *contracts.MarketSnapshot {
	yield := 0.01
	return &contracts.MarketSnapshot{
		AsOfDate: time.Now().UTC(),
		Entries: []contracts.TickerSnapshot{
			{Ticker: "MSFT", Yield: &yield, Quality: &contracts.QualityMetrics{Ticker: "MSFT", QualityScore: 100}},
			{Ticker: "JNJ", Quality: &contracts.QualityMetrics{Ticker: "JNJ", QualityScore: 100}},
			{Ticker: "VIG"},
		},
	}
}

func testProposal() *contracts.ModelProposal {
	return &contracts.ModelProposal{
		TargetPortfolio: []contracts.PortfolioItem{
			{Ticker: "MSFT", Weight: 0.6, Rationale: "quality"},
			{Ticker: "JNJ", Weight: 0.4, Rationale: "stability"},
		},
		Explanation: contracts.Explanation{
			Summary: "Balanced quality income.", Bullets: []string{"b"}, RisksToWatch: []string{"r"},
		},
	}
}

type fixture struct {
	advisor   *Advisor
	holdings  *fakeHoldings
	snapshots *fakeSnapshots
	gateway   *fakeGateway
	validator *fakeValidator
	store     *fakeStore
	audit     *fakeAudit
}

func newFixture() *fixture {
	f := &fixture{
		holdings:  &fakeHoldings{holdings: testHoldings()},
		snapshots: &fakeSnapshots{snap: testSnapshot()},
		gateway:   &fakeGateway{payload: []byte(`{}`)},
		validator: &fakeValidator{proposal: testProposal()},
		store:     &fakeStore{},
		audit:     &fakeAudit{},
	}
	cfg := config.AdvisorConfig{
		MaxHoldingsCeiling: 100,
		MaxPromptBytes:     65536,
		WeightTolerance:    1e-3,
		PersistRetries:     3,
	}
	f.advisor = NewAdvisor(
		f.holdings, f.snapshots, &fakePrompts{}, f.gateway, f.validator,
		assemble.NewAssembler(logger.NewNop()), f.store, f.audit, cfg, logger.NewNop(),
	)
	return f
}

// --- tests ---

func TestAdvisor_SuccessfulRun(t *testing.T) {
	f := newFixture()

	rec, err := f.advisor.Recommend(context.Background(), "owner-1", contracts.DefaultConstraints(), "corr-1", time.Time{})
	require.NoError(t, err)

	assert.Equal(t, contracts.StatusCompleted, rec.Status)
	assert.Equal(t, "rec-1", rec.ID)
	assert.Equal(t, "corr-1", rec.CorrelationID)
	require.NotNil(t, rec.Packet)
	assert.Equal(t, 2, rec.Packet.Count())
	assert.Equal(t, "VIG", rec.Packet.Benchmark)

	// universe = holdings plus benchmark
	assert.Equal(t, []string{"MSFT", "JNJ", "VIG"}, f.snapshots.tickers)

	require.Len(t, f.store.saved, 1)
	require.Len(t, f.audit.events, 1)
	assert.Equal(t, contracts.AuditActionSuccess, f.audit.events[0].Action)
	assert.Equal(t, "corr-1", f.audit.events[0].CorrelationID)
}

func TestAdvisor_GeneratesCorrelationID(t *testing.T) {
	f := newFixture()

	rec, err := f.advisor.Recommend(context.Background(), "owner-1", contracts.DefaultConstraints(), "", time.Time{})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.CorrelationID)
}

func TestAdvisor_InvalidConstraintsRejectedAtBoundary(t *testing.T) {
	f := newFixture()

	constraints := contracts.DefaultConstraints()
	constraints.MaxHoldings = 0

	rec, err := f.advisor.Recommend(context.Background(), "owner-1", constraints, "corr-1", time.Time{})
	require.Error(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, contracts.ErrInvalidConstraints, contracts.KindOf(err))

	// boundary rejection: nothing persisted, no audit, no model call
	assert.Empty(t, f.store.saved)
	assert.Empty(t, f.audit.events)
	assert.Zero(t, f.gateway.calls)
}

func TestAdvisor_NoHoldingsRejectedAtBoundary(t *testing.T) {
	f := newFixture()
	f.holdings.holdings = nil

	rec, err := f.advisor.Recommend(context.Background(), "owner-1", contracts.DefaultConstraints(), "corr-1", time.Time{})
	require.Error(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, contracts.ErrInvalidConstraints, contracts.KindOf(err))
	assert.Zero(t, f.gateway.calls)
}

func TestAdvisor_UpstreamFailureProducesFailedRecommendation(t *testing.T) {
	f := newFixture()
	f.gateway.err = contracts.WrapError(contracts.ErrUpstreamUnavailable, contracts.StageReasoning,
		"model invocation failed", errors.New("503"))

	rec, err := f.advisor.Recommend(context.Background(), "owner-1", contracts.DefaultConstraints(), "corr-2", time.Time{})
	require.Error(t, err)
	assert.Equal(t, contracts.ErrUpstreamUnavailable, contracts.KindOf(err))

	require.NotNil(t, rec)
	assert.Equal(t, contracts.StatusFailed, rec.Status)
	assert.Contains(t, rec.ErrorDetail, "UPSTREAM_UNAVAILABLE")
	assert.Nil(t, rec.Packet)

	// the failed run is still persisted and audited exactly once
	require.Len(t, f.store.saved, 1)
	require.Len(t, f.audit.events, 1)
	assert.Equal(t, contracts.AuditActionFailure, f.audit.events[0].Action)
	assert.Equal(t, "UPSTREAM_UNAVAILABLE", f.audit.events[0].Details["error_kind"])
	assert.Equal(t, 1, f.gateway.calls, "no reasoning retry inside a run")
}

func TestAdvisor_RejectionCarriesSubReason(t *testing.T) {
	f := newFixture()
	f.validator.err = contracts.NewRejection(contracts.RejectUnknownTicker, "TSLA not in universe")

	rec, err := f.advisor.Recommend(context.Background(), "owner-1", contracts.DefaultConstraints(), "corr-3", time.Time{})
	require.Error(t, err)

	assert.Equal(t, contracts.StatusFailed, rec.Status)
	assert.Equal(t, "INVALID_MODEL_OUTPUT:UNKNOWN_TICKER", rec.ErrorDetail)
	require.Len(t, f.audit.events, 1)
	assert.Equal(t, "UNKNOWN_TICKER", f.audit.events[0].Details["reject_reason"])
}

func TestAdvisor_PersistenceRetry(t *testing.T) {
	f := newFixture()
	f.store.failures = 2 // first two saves fail, third succeeds

	rec, err := f.advisor.Recommend(context.Background(), "owner-1", contracts.DefaultConstraints(), "corr-4", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, contracts.StatusCompleted, rec.Status)
	assert.Equal(t, 3, f.store.calls)
	assert.Equal(t, "rec-1", rec.ID)
}

func TestAdvisor_PersistenceExhaustion(t *testing.T) {
	f := newFixture()
	f.store.failures = 10

	rec, err := f.advisor.Recommend(context.Background(), "owner-1", contracts.DefaultConstraints(), "corr-5", time.Time{})
	require.Error(t, err)
	assert.Equal(t, contracts.ErrPersistenceFailure, contracts.KindOf(err))
	assert.Equal(t, 3, f.store.calls, "bounded retries")

	require.NotNil(t, rec)
	assert.Equal(t, contracts.StatusFailed, rec.Status)

	// still exactly one audit event, recording the failure
	require.Len(t, f.audit.events, 1)
	assert.Equal(t, contracts.AuditActionFailure, f.audit.events[0].Action)
}

func TestAdvisor_AuditFailureIsSwallowed(t *testing.T) {
	f := newFixture()
	f.audit.err = errors.New("audit sink down")

	rec, err := f.advisor.Recommend(context.Background(), "owner-1", contracts.DefaultConstraints(), "corr-6", time.Time{})
	require.NoError(t, err, "audit failure must not mask the pipeline result")
	assert.Equal(t, contracts.StatusCompleted, rec.Status)
}

func TestAdvisor_AsOfThreadsThroughPipeline(t *testing.T) {
	f := newFixture()
	asOf := time.Date(2026, 8, 14, 0, 0, 0, 0, time.UTC)

	rec, err := f.advisor.Recommend(context.Background(), "owner-1", contracts.DefaultConstraints(), "corr-8", asOf)
	require.NoError(t, err)

	assert.True(t, f.snapshots.asOf.Equal(asOf), "snapshot must see the caller-supplied date")
	require.NotNil(t, rec.Packet)
	assert.Equal(t, "2026-08-14", rec.Packet.AsOf)
}

func TestAdvisor_HoldingsLookupFailureRejectedAtBoundary(t *testing.T) {
	f := newFixture()
	f.holdings.err = errors.New("connection refused")

	rec, err := f.advisor.Recommend(context.Background(), "owner-1", contracts.DefaultConstraints(), "corr-9", time.Time{})
	require.Error(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, contracts.ErrUpstreamUnavailable, contracts.KindOf(err))

	// the pipeline never started: nothing persisted, no audit, no model call
	assert.Empty(t, f.store.saved)
	assert.Empty(t, f.audit.events)
	assert.Zero(t, f.gateway.calls)
}

func TestAdvisor_RejectionLeavesPacketNilByDefault(t *testing.T) {
	f := newFixture()
	f.validator.err = contracts.NewRejection(contracts.RejectUnknownTicker, "TSLA not in universe")

	rec, err := f.advisor.Recommend(context.Background(), "owner-1", contracts.DefaultConstraints(), "corr-10", time.Time{})
	require.Error(t, err)

	assert.Equal(t, contracts.StatusFailed, rec.Status)
	assert.Nil(t, rec.Packet, "rule-based substitution must not happen without opt-in")
	assert.Nil(t, rec.Explanation)
}

func TestAdvisor_FallbackOnRejection(t *testing.T) {
	f := newFixture()
	f.validator.err = contracts.NewRejection(contracts.RejectUnknownTicker, "TSLA not in universe")

	constraints := contracts.DefaultConstraints()
	constraints.FallbackOnFailure = true

	rec, err := f.advisor.Recommend(context.Background(), "owner-1", constraints, "corr-11", time.Time{})
	require.Error(t, err)

	// still a FAILED run, but carrying the rule-based allocation
	assert.Equal(t, contracts.StatusFailed, rec.Status)
	assert.Equal(t, "INVALID_MODEL_OUTPUT:UNKNOWN_TICKER", rec.ErrorDetail)

	require.NotNil(t, rec.Packet)
	assert.Equal(t, 2, rec.Packet.Count(), "only quality-scored tickers enter the fallback")
	for _, item := range rec.Packet.TargetPortfolio {
		assert.InDelta(t, 0.5, item.Weight, 1e-9)
	}
	require.NotNil(t, rec.Explanation)
	assert.NotEmpty(t, rec.Explanation.Summary)
	assert.NotEmpty(t, rec.Explanation.Disclaimers)

	require.Len(t, f.store.saved, 1)
	require.Len(t, f.audit.events, 1)
	assert.Equal(t, contracts.AuditActionFailure, f.audit.events[0].Action)
}

func TestAdvisor_AuditCarriesStageResults(t *testing.T) {
	f := newFixture()

	_, err := f.advisor.Recommend(context.Background(), "owner-1", contracts.DefaultConstraints(), "corr-12", time.Time{})
	require.NoError(t, err)

	require.Len(t, f.audit.events, 1)
	stages, ok := f.audit.events[0].Details["stages"].([]contracts.PipelineResult)
	require.True(t, ok, "audit details must carry per-stage results")

	require.Len(t, stages, len(contracts.AllStages()))
	for i, stage := range contracts.AllStages() {
		assert.Equal(t, stage, stages[i].Stage)
		assert.True(t, stages[i].Success)
	}
}

func TestAdvisor_AuditStageResultsStopAtFailedStage(t *testing.T) {
	f := newFixture()
	f.gateway.err = contracts.WrapError(contracts.ErrUpstreamUnavailable, contracts.StageReasoning,
		"model invocation failed", errors.New("503"))

	_, err := f.advisor.Recommend(context.Background(), "owner-1", contracts.DefaultConstraints(), "corr-13", time.Time{})
	require.Error(t, err)

	stages, ok := f.audit.events[0].Details["stages"].([]contracts.PipelineResult)
	require.True(t, ok)
	require.Len(t, stages, 3)
	last := stages[len(stages)-1]
	assert.Equal(t, contracts.StageReasoning, last.Stage)
	assert.False(t, last.Success)
	assert.NotEmpty(t, last.Error)
}

func TestAdvisor_CancelledContextAborts(t *testing.T) {
	f := newFixture()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec, err := f.advisor.Recommend(ctx, "owner-1", contracts.DefaultConstraints(), "corr-7", time.Time{})
	require.Error(t, err)

	require.NotNil(t, rec)
	assert.Equal(t, contracts.StatusFailed, rec.Status)
	assert.Zero(t, f.gateway.calls)
	// outcome is still recorded despite the cancelled run context
	require.Len(t, f.store.saved, 1)
	require.Len(t, f.audit.events, 1)
}
