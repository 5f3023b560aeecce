package contracts

import (
	"context"
	"time"
)

// PromptRequest is the serialized reasoning request plus the canonical
// universe the hallucination guard checks against.
type PromptRequest struct {
	Text     string
	Universe map[string]struct{}
}

// ModelProposal is the immutable validated value produced by the
// output validator. No downstream mutation is permitted.
type ModelProposal struct {
	TargetPortfolio []PortfolioItem `json:"targetPortfolio"`
	Explanation     Explanation     `json:"explanation"`
}

// MarketData looks up the latest market facts for a ticker.
// LatestFundamental returns nil (not an error) when no record exists.
type MarketData interface {
	LatestFundamental(ctx context.Context, ticker string) (*FundamentalRecord, error)
	LatestPrice(ctx context.Context, ticker string) (float64, bool, error)
}

// HoldingStore manages user holdings
type HoldingStore interface {
	ListByOwner(ctx context.Context, owner string) ([]Holding, error)
	Get(ctx context.Context, owner, id string) (*Holding, error)
	Create(ctx context.Context, holding *Holding) (string, error)
	Update(ctx context.Context, holding *Holding) error
	Delete(ctx context.Context, owner, id string) error
}

// ReasoningModel invokes the external generative model.
// Provider failures surface as errors; the gateway maps them to
// UPSTREAM_UNAVAILABLE without interpreting provider shapes.
type ReasoningModel interface {
	Invoke(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// SnapshotBuilder builds the per-ticker market context (R0)
type SnapshotBuilder interface {
	Build(ctx context.Context, tickers []string, asOf time.Time) (*MarketSnapshot, error)
}

// PromptBuilder constructs the bounded reasoning request (R1)
type PromptBuilder interface {
	Build(holdings []Holding, snapshot *MarketSnapshot, constraints Constraints, asOf time.Time) (*PromptRequest, error)
}

// ReasoningGateway invokes the model and extracts the JSON payload (R2)
type ReasoningGateway interface {
	Invoke(ctx context.Context, req *PromptRequest) ([]byte, error)
}

// OutputValidator validates untrusted model output (R3)
type OutputValidator interface {
	Validate(raw []byte, universe map[string]struct{}, constraints Constraints) (*ModelProposal, error)
}

// RecommendationStore persists advisory artifacts
type RecommendationStore interface {
	Save(ctx context.Context, rec *Recommendation) (string, error)
	Get(ctx context.Context, owner, id string) (*Recommendation, error)
	ListByOwner(ctx context.Context, owner string, limit int) ([]Recommendation, error)
}

// Audit actions
const (
	AuditActionSuccess = "RECOMMENDATION_COMPLETED"
	AuditActionFailure = "RECOMMENDATION_FAILED"
)

// AuditEvent records one pipeline outcome, success or failure.
// Exactly one event is emitted per pipeline invocation.
type AuditEvent struct {
	Action        string                 `json:"action"`
	CorrelationID string                 `json:"correlation_id"`
	Details       map[string]interface{} `json:"details,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
}

// AuditSink receives audit events. Best-effort from the pipeline's
// perspective: a failed audit write is logged and swallowed, it never
// masks the pipeline result.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent) error
}
