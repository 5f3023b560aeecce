package advisor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/divsage/internal/assemble"
	"github.com/wonny/divsage/internal/contracts"
	"github.com/wonny/divsage/pkg/config"
	"github.com/wonny/divsage/pkg/logger"
)

// Advisor orchestrates one recommendation pipeline run:
//
//	R0 snapshot → R1 prompt → R2 reasoning → R3 validation → R4 assembly
//
// Every run terminates in exactly one persisted Recommendation
// (COMPLETED or FAILED) and exactly one audit event. Failed runs are
// never retried here; a retry is a fresh run with a new correlation id.
// SSOT: pipeline sequencing and failure policy live here only.
type Advisor struct {
	holdings  contracts.HoldingStore
	snapshots contracts.SnapshotBuilder
	prompts   contracts.PromptBuilder
	gateway   contracts.ReasoningGateway
	validator contracts.OutputValidator
	assembler *assemble.Assembler
	store     contracts.RecommendationStore
	audit     contracts.AuditSink
	cfg       config.AdvisorConfig
	logger    *logger.Logger
}

// NewAdvisor wires the pipeline stages together
func NewAdvisor(
	holdings contracts.HoldingStore,
	snapshots contracts.SnapshotBuilder,
	prompts contracts.PromptBuilder,
	gateway contracts.ReasoningGateway,
	validator contracts.OutputValidator,
	assembler *assemble.Assembler,
	store contracts.RecommendationStore,
	audit contracts.AuditSink,
	cfg config.AdvisorConfig,
	log *logger.Logger,
) *Advisor {
	return &Advisor{
		holdings:  holdings,
		snapshots: snapshots,
		prompts:   prompts,
		gateway:   gateway,
		validator: validator,
		assembler: assembler,
		store:     store,
		audit:     audit,
		cfg:       cfg,
		logger:    log,
	}
}

// Recommend runs the full pipeline for one owner as of the supplied
// date. A zero asOf defaults to the current UTC time here, at the
// entry point; no stage below this reads the wall clock.
//
// Constraint violations, a failed holdings lookup, and an empty
// universe are boundary rejections: they return an error before the
// pipeline starts, persist nothing, and emit no audit event. Once the
// pipeline proper starts, the outcome is always a persisted terminal
// Recommendation; the returned error, if any, carries the taxonomy
// kind for programmatic callers.
func (a *Advisor) Recommend(ctx context.Context, owner string, constraints contracts.Constraints, correlationID string, asOf time.Time) (*contracts.Recommendation, error) {
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	log := a.logger.WithCorrelationID(correlationID).WithField("owner", owner)

	if err := constraints.Validate(a.cfg.MaxHoldingsCeiling); err != nil {
		return nil, err
	}

	holdings, err := a.holdings.ListByOwner(ctx, owner)
	if err != nil {
		return nil, &contracts.PipelineError{
			Kind:    contracts.ErrUpstreamUnavailable,
			Message: "holdings lookup failed",
			Err:     err,
		}
	}
	if len(holdings) == 0 {
		return nil, &contracts.PipelineError{
			Kind:    contracts.ErrInvalidConstraints,
			Message: fmt.Sprintf("owner %s has no holdings to advise on", owner),
		}
	}

	tickers := universeTickers(holdings, constraints.BenchmarkTicker)

	log.WithFields(map[string]interface{}{
		"holdings": len(holdings),
		"universe": len(tickers),
	}).Info("Starting recommendation pipeline")

	rec, stages, pipelineErr := a.run(ctx, log, owner, correlationID, holdings, tickers, constraints, asOf)

	// Persistence and audit must survive caller cancellation: the run
	// happened, its outcome must be recorded.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := a.persist(recordCtx, log, rec); err != nil {
		if pipelineErr == nil {
			pipelineErr = err
			rec = a.assembler.Failure(err, owner, correlationID)
		}
	}
	a.emitAudit(recordCtx, log, rec, stages, pipelineErr)

	return rec, pipelineErr
}

// run executes stages R0 through R4 with a cancellation check at each
// stage boundary, recording a PipelineResult per attempted stage for
// the audit trail
func (a *Advisor) run(ctx context.Context, log *logger.Logger, owner, correlationID string, holdings []contracts.Holding, tickers []string, constraints contracts.Constraints, asOf time.Time) (*contracts.Recommendation, []contracts.PipelineResult, error) {
	results := make([]contracts.PipelineResult, 0, len(contracts.AllStages()))
	record := func(stage contracts.Stage, start time.Time, inputCount, outputCount int, err error) {
		res := contracts.PipelineResult{
			Stage:       stage,
			Success:     err == nil,
			InputCount:  inputCount,
			OutputCount: outputCount,
			Duration:    time.Since(start).Milliseconds(),
		}
		if err != nil {
			res.Error = err.Error()
		}
		results = append(results, res)
	}

	var snap *contracts.MarketSnapshot
	fail := func(stage contracts.Stage, err error) (*contracts.Recommendation, []contracts.PipelineResult, error) {
		log.WithError(err).WithField("stage", stage.ShortName()).Warn("Pipeline stage failed")
		if constraints.FallbackOnFailure && snap != nil && snap.Count() > 0 {
			return a.assembler.Fallback(err, snap, constraints, owner, correlationID, asOf), results, err
		}
		return a.assembler.Failure(err, owner, correlationID), results, err
	}

	start := time.Now()
	if err := stageGuard(ctx, contracts.StageSnapshot); err != nil {
		record(contracts.StageSnapshot, start, len(tickers), 0, err)
		return fail(contracts.StageSnapshot, err)
	}
	snap, err := a.snapshots.Build(ctx, tickers, asOf)
	if err != nil {
		record(contracts.StageSnapshot, start, len(tickers), 0, err)
		return fail(contracts.StageSnapshot, err)
	}
	if snap.Count() == 0 {
		err := contracts.NewError(contracts.ErrInvalidConstraints,
			contracts.StageSnapshot, "no valid tickers in universe")
		record(contracts.StageSnapshot, start, len(tickers), 0, err)
		return fail(contracts.StageSnapshot, err)
	}
	record(contracts.StageSnapshot, start, len(tickers), snap.Count(), nil)

	start = time.Now()
	if err := stageGuard(ctx, contracts.StagePrompt); err != nil {
		record(contracts.StagePrompt, start, snap.Count(), 0, err)
		return fail(contracts.StagePrompt, err)
	}
	req, err := a.prompts.Build(holdings, snap, constraints, asOf)
	if err != nil {
		record(contracts.StagePrompt, start, snap.Count(), 0, err)
		return fail(contracts.StagePrompt, err)
	}
	record(contracts.StagePrompt, start, snap.Count(), len(req.Text), nil)

	start = time.Now()
	if err := stageGuard(ctx, contracts.StageReasoning); err != nil {
		record(contracts.StageReasoning, start, len(req.Text), 0, err)
		return fail(contracts.StageReasoning, err)
	}
	raw, err := a.gateway.Invoke(ctx, req)
	if err != nil {
		record(contracts.StageReasoning, start, len(req.Text), 0, err)
		return fail(contracts.StageReasoning, err)
	}
	record(contracts.StageReasoning, start, len(req.Text), len(raw), nil)

	start = time.Now()
	if err := stageGuard(ctx, contracts.StageValidation); err != nil {
		record(contracts.StageValidation, start, len(raw), 0, err)
		return fail(contracts.StageValidation, err)
	}
	proposal, err := a.validator.Validate(raw, req.Universe, constraints)
	if err != nil {
		record(contracts.StageValidation, start, len(raw), 0, err)
		return fail(contracts.StageValidation, err)
	}
	record(contracts.StageValidation, start, len(raw), len(proposal.TargetPortfolio), nil)

	start = time.Now()
	rec := a.assembler.Success(proposal, snap, constraints, owner, correlationID, asOf)
	record(contracts.StageAssembly, start, len(proposal.TargetPortfolio), rec.Packet.Count(), nil)

	log.WithField("positions", rec.Packet.Count()).Info("Pipeline completed")
	return rec, results, nil
}

// persist writes the terminal recommendation, retrying transient
// persistence failures a small bounded number of times with
// exponential backoff
func (a *Advisor) persist(ctx context.Context, log *logger.Logger, rec *contracts.Recommendation) error {
	var lastErr error
	delay := 100 * time.Millisecond
	for attempt := 1; attempt <= a.cfg.PersistRetries; attempt++ {
		id, err := a.store.Save(ctx, rec)
		if err == nil {
			rec.ID = id
			return nil
		}
		lastErr = err
		log.WithError(err).WithField("attempt", attempt).Warn("Recommendation save failed")

		if attempt < a.cfg.PersistRetries {
			select {
			case <-time.After(delay):
				delay *= 2
			case <-ctx.Done():
				return contracts.WrapError(contracts.ErrPersistenceFailure, contracts.StageAssembly,
					"recommendation save abandoned", lastErr)
			}
		}
	}
	return contracts.WrapError(contracts.ErrPersistenceFailure, contracts.StageAssembly,
		fmt.Sprintf("recommendation save failed after %d attempts", a.cfg.PersistRetries), lastErr)
}

// emitAudit emits the single per-run audit event, carrying the
// per-stage results. Best-effort: an audit write failure is logged,
// never surfaced.
func (a *Advisor) emitAudit(ctx context.Context, log *logger.Logger, rec *contracts.Recommendation, stages []contracts.PipelineResult, pipelineErr error) {
	event := contracts.AuditEvent{
		Action:        contracts.AuditActionSuccess,
		CorrelationID: rec.CorrelationID,
		Timestamp:     time.Now().UTC(),
		Details: map[string]interface{}{
			"owner":  rec.Owner,
			"status": string(rec.Status),
		},
	}
	if len(stages) > 0 {
		event.Details["stages"] = stages
	}
	if pipelineErr != nil {
		event.Action = contracts.AuditActionFailure
		event.Details["error_kind"] = string(contracts.KindOf(pipelineErr))
		if reason := contracts.ReasonOf(pipelineErr); reason != "" {
			event.Details["reject_reason"] = string(reason)
		}
	} else if rec.Packet != nil {
		event.Details["positions"] = rec.Packet.Count()
	}

	if err := a.audit.Emit(ctx, event); err != nil {
		log.WithError(err).Error("Audit emit failed")
	}
}

// stageGuard aborts between stages when the run context is done
func stageGuard(ctx context.Context, stage contracts.Stage) error {
	if err := ctx.Err(); err != nil {
		kind := contracts.ErrUpstreamUnavailable
		if err == context.DeadlineExceeded {
			kind = contracts.ErrTimeout
		}
		return contracts.WrapError(kind, stage, "pipeline aborted", err)
	}
	return nil
}

// universeTickers collects the distinct holding tickers plus the
// benchmark, preserving holding order
func universeTickers(holdings []contracts.Holding, benchmark string) []string {
	seen := make(map[string]struct{}, len(holdings)+1)
	tickers := make([]string, 0, len(holdings)+1)
	for _, h := range holdings {
		if _, dup := seen[h.Ticker]; dup {
			continue
		}
		seen[h.Ticker] = struct{}{}
		tickers = append(tickers, h.Ticker)
	}
	if _, ok := seen[benchmark]; !ok {
		tickers = append(tickers, benchmark)
	}
	return tickers
}
