package entity

// Rule identifiers reported in ValidationResult.Violated.
const (
	RuleDialogueSimulation     = "dialogue_simulation"
	RuleInstructionLeakage     = "instruction_leakage"
	RuleLengthBounds           = "length_bounds"
	RuleStructuralCompleteness = "structural_completeness"
)

// ValidationResult is the full verdict for one generated response. It is
// created synchronously per generation and only ever persisted into the
// logging sink.
type ValidationResult struct {
	Passed      bool
	Score       float64
	Violated    []string
	Corrected   string
	Explanation string
}

// ValidationReport is the caller-facing subset embedded in ChatResponse.
type ValidationReport struct {
	Passed        bool     `json:"passed"`
	ViolatedRules []string `json:"violated_rules"`
	CorrectedText string   `json:"corrected_text,omitempty"`
}

// ReferenceExample is one record of the read-only reference corpus produced
// by the upstream extraction pipeline.
type ReferenceExample struct {
	Scenario string `json:"scenario_text"`
	Response string `json:"reference_response"`
	Category string `json:"category"`
}
