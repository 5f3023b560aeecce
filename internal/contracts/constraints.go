package contracts

import "fmt"

// Constraints are the caller-supplied numeric bounds for one
// recommendation run.
type Constraints struct {
	MaxHoldings     int     `json:"max_holdings"`     // positive, <= hard ceiling
	PayoutCeiling   float64 `json:"payout_ceiling"`   // (0, 1]
	LeverageCeiling float64 `json:"leverage_ceiling"` // > 0
	BenchmarkTicker string  `json:"benchmark_ticker"`

	// FallbackOnFailure opts in to a rule-based packet and explanation
	// on reasoning or validation failure. Off by default: substituting
	// model reasoning with rules must be an explicit, auditable choice.
	FallbackOnFailure bool `json:"fallback_on_failure"`
}

// Validate checks constraints at the pipeline boundary, before any
// external call. ceiling is the deployment-wide hard cap on
// MaxHoldings.
func (c *Constraints) Validate(ceiling int) error {
	if c.MaxHoldings <= 0 {
		return &PipelineError{
			Kind:    ErrInvalidConstraints,
			Message: fmt.Sprintf("max_holdings must be positive, got %d", c.MaxHoldings),
		}
	}
	if c.MaxHoldings > ceiling {
		return &PipelineError{
			Kind:    ErrInvalidConstraints,
			Message: fmt.Sprintf("max_holdings %d exceeds ceiling %d", c.MaxHoldings, ceiling),
		}
	}
	if c.PayoutCeiling <= 0 || c.PayoutCeiling > 1 {
		return &PipelineError{
			Kind:    ErrInvalidConstraints,
			Message: fmt.Sprintf("payout_ceiling must be in (0, 1], got %v", c.PayoutCeiling),
		}
	}
	if c.LeverageCeiling <= 0 {
		return &PipelineError{
			Kind:    ErrInvalidConstraints,
			Message: fmt.Sprintf("leverage_ceiling must be positive, got %v", c.LeverageCeiling),
		}
	}
	if !IsValidTicker(c.BenchmarkTicker) {
		return &PipelineError{
			Kind:    ErrInvalidConstraints,
			Message: fmt.Sprintf("benchmark_ticker %q is not a valid ticker", c.BenchmarkTicker),
		}
	}
	return nil
}

// DefaultConstraints returns the default run configuration
func DefaultConstraints() Constraints {
	return Constraints{
		MaxHoldings:     40,
		PayoutCeiling:   0.8,
		LeverageCeiling: 2.0,
		BenchmarkTicker: "VIG",
	}
}
