package reasoning

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/divsage/internal/contracts"
	"github.com/wonny/divsage/pkg/logger"
)

// snippetCap bounds how much raw model text ever reaches a log line
const snippetCap = 500

// Gateway invokes the external reasoning model (R2).
// One invocation attempt per pipeline run; retries belong to the
// outer caller, which must re-run the whole pipeline with a fresh
// correlation id so the prompt reflects current market data.
type Gateway struct {
	model          contracts.ReasoningModel
	maxPromptBytes int
	maxTokens      int
	timeout        time.Duration
	logger         *logger.Logger
}

// NewGateway creates a new reasoning gateway
func NewGateway(model contracts.ReasoningModel, maxPromptBytes, maxTokens int, timeout time.Duration, log *logger.Logger) *Gateway {
	return &Gateway{
		model:          model,
		maxPromptBytes: maxPromptBytes,
		maxTokens:      maxTokens,
		timeout:        timeout,
		logger:         log,
	}
}

// Invoke sends the request and extracts the JSON payload from the
// response text. Oversized prompts are rejected before invocation:
// truncating would silently corrupt the universe constraint embedded
// in the instructions.
func (g *Gateway) Invoke(ctx context.Context, req *contracts.PromptRequest) ([]byte, error) {
	if len(req.Text) > g.maxPromptBytes {
		return nil, contracts.NewError(contracts.ErrRequestTooLarge, contracts.StageReasoning,
			fmt.Sprintf("prompt is %d bytes, limit %d", len(req.Text), g.maxPromptBytes))
	}

	invokeCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	raw, err := g.model.Invoke(invokeCtx, req.Text, g.maxTokens)
	if err != nil {
		kind := contracts.ErrUpstreamUnavailable
		if invokeCtx.Err() == context.DeadlineExceeded {
			kind = contracts.ErrTimeout
		}
		return nil, contracts.WrapError(kind, contracts.StageReasoning, "model invocation failed", err)
	}

	g.logger.WithFields(map[string]interface{}{
		"duration":       time.Since(start),
		"response_bytes": len(raw),
	}).Debug("Model invocation completed")

	payload, ok := extractJSON(raw)
	if !ok {
		g.logger.WithField("snippet", snippet(raw)).Warn("Model returned no structured output")
		return nil, contracts.NewError(contracts.ErrNoStructuredOutput, contracts.StageReasoning,
			"no JSON object found in model response")
	}

	return payload, nil
}

// snippet truncates raw model text for diagnostics
func snippet(s string) string {
	if len(s) <= snippetCap {
		return s
	}
	return s[:snippetCap] + "..."
}
