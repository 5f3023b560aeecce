package validate

import (
	"encoding/json"
	"fmt"

	"github.com/wonny/divsage/internal/contracts"
	"github.com/wonny/divsage/pkg/logger"
)

// Gate states, in order. Each gate is fail-closed: the first failure
// aborts with a specific reason, no partial repair is ever attempted.
const (
	stateExtracted      = "EXTRACTED"
	stateSchemaChecked  = "SCHEMA_CHECKED"
	stateUniverseChecked = "UNIVERSE_CHECKED"
	stateNumericChecked = "NUMERIC_CHECKED"
	stateAccepted       = "ACCEPTED"
)

// minSummaryChars is the hard floor for explanation.summary.
// Tunable policy, not an architectural requirement.
const minSummaryChars = 1

// softSummaryChars is the original product bar for summary length;
// shorter summaries are logged, not rejected.
const softSummaryChars = 50

// Validator is the output validation state machine (R3).
// Model output is adversarial input: nothing here trusts it.
type Validator struct {
	weightTolerance float64
	logger          *logger.Logger
}

// NewValidator creates a new output validator
func NewValidator(weightTolerance float64, log *logger.Logger) *Validator {
	return &Validator{
		weightTolerance: weightTolerance,
		logger:          log,
	}
}

// Raw parse targets. Pointer fields distinguish absent/null from
// zero values; a type mismatch fails json.Unmarshal outright.
type rawItem struct {
	Ticker    *string  `json:"ticker"`
	Weight    *float64 `json:"weight"`
	Rationale *string  `json:"rationale"`
	Reason    *string  `json:"reason"` // accepted alias for rationale
	Score     *float64 `json:"score"`
}

type rawExplanation struct {
	Summary             *string   `json:"summary"`
	Bullets             *[]string `json:"bullets"`
	WhatWouldChangeThis []string  `json:"whatWouldChangeThis"`
	RisksToWatch        *[]string `json:"risksToWatch"`
	Disclaimers         []string  `json:"disclaimers"`
}

type rawProposal struct {
	TargetPortfolio *[]rawItem      `json:"targetPortfolio"`
	Explanation     *rawExplanation `json:"explanation"`
}

// Validate runs the gates in order:
//
//	Extracted → SchemaChecked → UniverseChecked → NumericChecked → Accepted
//
// Any failure terminates in Rejected(reason), surfaced as
// INVALID_MODEL_OUTPUT with the sub-reason. The returned proposal is
// an immutable value; downstream code must not mutate it.
func (v *Validator) Validate(raw []byte, universe map[string]struct{}, constraints contracts.Constraints) (*contracts.ModelProposal, error) {
	state := stateExtracted

	proposal, err := v.checkSchema(raw, constraints)
	if err != nil {
		return nil, v.reject(state, err)
	}
	state = stateSchemaChecked

	if err := v.checkUniverse(proposal, universe); err != nil {
		return nil, v.reject(state, err)
	}
	state = stateUniverseChecked

	if err := v.checkNumeric(proposal); err != nil {
		return nil, v.reject(state, err)
	}
	state = stateNumericChecked

	// Soft heuristic: surface prose-level hallucinations for audit
	// without rejecting. The structured portfolio is already clean.
	if flagged := ScanForUnknownTickers(proposal, universe); len(flagged) > 0 {
		v.logger.WithField("flagged_tokens", flagged).Warn("Possible hallucinated tickers in explanation text")
	}

	state = stateAccepted
	v.logger.WithFields(map[string]interface{}{
		"state":     state,
		"positions": len(proposal.TargetPortfolio),
	}).Debug("Model output accepted")

	return proposal, nil
}

// reject logs the terminal state and passes the rejection through
func (v *Validator) reject(lastState string, err error) error {
	v.logger.WithFields(map[string]interface{}{
		"last_state": lastState,
		"reason":     string(contracts.ReasonOf(err)),
	}).Warn("Model output rejected")
	return err
}

// checkSchema parses and type-checks the extracted JSON against the
// packet+explanation shape
func (v *Validator) checkSchema(raw []byte, constraints contracts.Constraints) (*contracts.ModelProposal, error) {
	var parsed rawProposal
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, contracts.NewRejection(contracts.RejectSchemaViolation,
			fmt.Sprintf("payload is not the expected shape: %v", err))
	}

	if parsed.TargetPortfolio == nil {
		return nil, contracts.NewRejection(contracts.RejectSchemaViolation, "targetPortfolio is missing")
	}
	items := *parsed.TargetPortfolio
	if len(items) == 0 {
		return nil, contracts.NewRejection(contracts.RejectSchemaViolation, "targetPortfolio is empty")
	}
	if len(items) > constraints.MaxHoldings {
		return nil, contracts.NewRejection(contracts.RejectSchemaViolation,
			fmt.Sprintf("targetPortfolio has %d entries, max %d", len(items), constraints.MaxHoldings))
	}

	portfolio := make([]contracts.PortfolioItem, 0, len(items))
	for i, item := range items {
		if item.Ticker == nil {
			return nil, contracts.NewRejection(contracts.RejectSchemaViolation,
				fmt.Sprintf("targetPortfolio[%d].ticker is missing", i))
		}
		if item.Weight == nil {
			return nil, contracts.NewRejection(contracts.RejectSchemaViolation,
				fmt.Sprintf("targetPortfolio[%d].weight is missing", i))
		}

		rationale := item.Rationale
		if rationale == nil {
			rationale = item.Reason
		}
		if rationale == nil {
			return nil, contracts.NewRejection(contracts.RejectSchemaViolation,
				fmt.Sprintf("targetPortfolio[%d].rationale is missing", i))
		}

		out := contracts.PortfolioItem{
			Ticker:    *item.Ticker,
			Weight:    *item.Weight,
			Rationale: *rationale,
		}
		if item.Score != nil {
			out.Score = *item.Score
		}
		portfolio = append(portfolio, out)
	}

	if parsed.Explanation == nil {
		return nil, contracts.NewRejection(contracts.RejectSchemaViolation, "explanation is missing")
	}
	expl := parsed.Explanation

	if expl.Summary == nil || len(*expl.Summary) < minSummaryChars {
		return nil, contracts.NewRejection(contracts.RejectSchemaViolation, "explanation.summary is missing or empty")
	}
	if len(*expl.Summary) < softSummaryChars {
		v.logger.WithField("summary_len", len(*expl.Summary)).Debug("Explanation summary below product bar")
	}
	if expl.Bullets == nil || len(*expl.Bullets) == 0 {
		return nil, contracts.NewRejection(contracts.RejectSchemaViolation, "explanation.bullets must have at least one entry")
	}
	if expl.RisksToWatch == nil {
		return nil, contracts.NewRejection(contracts.RejectSchemaViolation, "explanation.risksToWatch is missing")
	}

	return &contracts.ModelProposal{
		TargetPortfolio: portfolio,
		Explanation: contracts.Explanation{
			Summary:             *expl.Summary,
			Bullets:             *expl.Bullets,
			WhatWouldChangeThis: expl.WhatWouldChangeThis,
			RisksToWatch:        *expl.RisksToWatch,
			Disclaimers:         expl.Disclaimers,
		},
	}, nil
}

// checkUniverse is the hallucination guard: every recommended ticker
// must be a member of the universe supplied to the reasoning step.
// A downstream consumer could act on an unvetted instrument as if it
// had been offered as context, so this gate is absolute.
func (v *Validator) checkUniverse(proposal *contracts.ModelProposal, universe map[string]struct{}) error {
	for _, item := range proposal.TargetPortfolio {
		if _, ok := universe[item.Ticker]; !ok {
			return contracts.NewRejection(contracts.RejectUnknownTicker,
				fmt.Sprintf("ticker %q is not in the supplied universe", item.Ticker))
		}
	}
	return nil
}

// checkNumeric enforces weight sanity. Never auto-normalizes:
// silently rescaling could mask a materially different allocation
// than the one the model explained.
func (v *Validator) checkNumeric(proposal *contracts.ModelProposal) error {
	sum := 0.0
	for _, item := range proposal.TargetPortfolio {
		if item.Weight < 0 {
			return contracts.NewRejection(contracts.RejectWeightsUnnormalized,
				fmt.Sprintf("ticker %s has negative weight %v", item.Ticker, item.Weight))
		}
		sum += item.Weight
	}

	if sum < 1-v.weightTolerance || sum > 1+v.weightTolerance {
		return contracts.NewRejection(contracts.RejectWeightsUnnormalized,
			fmt.Sprintf("weights sum to %.6f, expected 1.0 ± %g", sum, v.weightTolerance))
	}

	return nil
}
