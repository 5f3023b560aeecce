package contracts

// Pipeline stage definitions (SSOT)
// Every log line, audit event, and persisted row uses these constants.
//
// Pipeline flow:
//   R0 → R1 → R2 → R3 → R4
//   Snapshot  Prompt  Reasoning  Validation  Assembly

// Stage represents a recommendation pipeline stage
type Stage string

const (
	// StageSnapshot R0: market snapshot construction
	// Responsibility: per-ticker quality metrics + latest price aggregation
	// Location: internal/snapshot/
	StageSnapshot Stage = "R0_SNAPSHOT"

	// StagePrompt R1: reasoning request construction
	// Responsibility: deterministic prompt + canonical universe
	// Location: internal/prompt/
	StagePrompt Stage = "R1_PROMPT"

	// StageReasoning R2: model invocation
	// Responsibility: size bounds, single invocation, JSON extraction
	// Location: internal/reasoning/
	StageReasoning Stage = "R2_REASONING"

	// StageValidation R3: untrusted output validation
	// Responsibility: schema gate, hallucination guard, numeric gate
	// Location: internal/validate/
	StageValidation Stage = "R3_VALIDATION"

	// StageAssembly R4: recommendation assembly + persistence
	// Responsibility: terminal Recommendation record, audit event
	// Location: internal/assemble/, internal/advisor/
	StageAssembly Stage = "R4_ASSEMBLY"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// ShortName returns abbreviated stage name (e.g., "R0", "R1")
func (s Stage) ShortName() string {
	switch s {
	case StageSnapshot:
		return "R0"
	case StagePrompt:
		return "R1"
	case StageReasoning:
		return "R2"
	case StageValidation:
		return "R3"
	case StageAssembly:
		return "R4"
	default:
		return "UNKNOWN"
	}
}

// AllStages returns all pipeline stages in order
func AllStages() []Stage {
	return []Stage{
		StageSnapshot,
		StagePrompt,
		StageReasoning,
		StageValidation,
		StageAssembly,
	}
}

// PipelineResult represents the result of a pipeline stage execution
type PipelineResult struct {
	Stage       Stage                  `json:"stage"`
	Success     bool                   `json:"success"`
	InputCount  int                    `json:"input_count"`
	OutputCount int                    `json:"output_count"`
	Duration    int64                  `json:"duration_ms"`
	Error       string                 `json:"error,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}
