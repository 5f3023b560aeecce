package contracts

import "time"

// Holding is one manually entered position, owned exclusively by one
// user. The pipeline reads holdings but never mutates them.
type Holding struct {
	ID           string    `json:"id"`
	Owner        string    `json:"owner"`
	Ticker       string    `json:"ticker"`
	Shares       float64   `json:"shares"`     // > 0
	CostBasis    float64   `json:"cost_basis"` // >= 0
	PurchaseDate time.Time `json:"purchase_date"`
}

// Validate checks holding invariants before persistence
func (h *Holding) Validate() error {
	if !IsValidTicker(h.Ticker) {
		return &PipelineError{
			Kind:    ErrInvalidConstraints,
			Message: "ticker must be 1-5 uppercase letters",
		}
	}
	if h.Shares <= 0 {
		return &PipelineError{
			Kind:    ErrInvalidConstraints,
			Message: "shares must be positive",
		}
	}
	if h.CostBasis < 0 {
		return &PipelineError{
			Kind:    ErrInvalidConstraints,
			Message: "cost basis must be non-negative",
		}
	}
	return nil
}
