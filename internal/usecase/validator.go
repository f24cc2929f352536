package usecase

import (
	"fmt"
	"regexp"
	"strings"

	"steward-core/internal/domain/entity"
)

// ValidatorConfig tunes the rule set. Zero values fall back to defaults in
// NewValidator.
type ValidatorConfig struct {
	MinLength     int
	MaxLength     int
	PassThreshold float64
	// Verbatim fragments of the system instructions; a response echoing
	// any of them fails the leakage rule.
	InstructionFragments []string
}

// Rule weights. Structural completeness only applies to target-persona
// models; scores are normalized over the weights of the rules actually
// evaluated.
const (
	weightDialogue   = 0.30
	weightLeakage    = 0.30
	weightLength     = 0.15
	weightStructural = 0.35
)

var (
	// A line starting with a capitalized speaker label, e.g. "Tenant:".
	speakerLabelRe = regexp.MustCompile(`(?m)^\s*([A-Z][A-Za-z ]{1,24}):\s`)

	acknowledgmentRe = regexp.MustCompile(`(?i)\b(sorry|apologi[sz]e|thank(s| you)|i understand|i hear you|got it|good question|glad you)\b`)
	nextStepRe       = regexp.MustCompile(`(?i)\b(i'?ll|we'?ll|i am going to|i will|we will|putting in|sending|dispatch(ed|ing)?|schedul(e|ed|ing)|reach(ing)? out|follow(ing)? up|submit(ted|ting)?)\b`)
	timeframeRe      = regexp.MustCompile(`(?i)\b(today|tonight|tomorrow|within (the )?(\d+|a|an|one|two|few) ?(hour|hours|day|days|minutes)?|by (end of|the end of|tomorrow|tonight|\d{1,2}(am|pm))|this (week|afternoon|evening|morning)|shortly|right now|asap|business day)\b`)
)

// Validator applies the fixed rule set to generated responses. Evaluation
// is pure text analysis; the same input always yields the same verdict.
type Validator struct {
	cfg    ValidatorConfig
	corpus *CorpusIndex
}

// NewValidator builds a validator over a prebuilt corpus index.
func NewValidator(cfg ValidatorConfig, corpus *CorpusIndex) *Validator {
	if cfg.MinLength <= 0 {
		cfg.MinLength = 40
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = 1200
	}
	if cfg.PassThreshold <= 0 {
		cfg.PassThreshold = 0.75
	}
	return &Validator{cfg: cfg, corpus: corpus}
}

// Validate scores the response against the rule set. requestEmbedding is
// the embedding already computed for the inbound message; it drives the
// corrected-response lookup on failure and may be nil.
func (v *Validator) Validate(req entity.ChatRequest, response string, model entity.ModelDescriptor, requestEmbedding []float32) entity.ValidationResult {
	type ruleScore struct {
		id     string
		score  float64
		weight float64
	}

	scores := []ruleScore{
		{entity.RuleDialogueSimulation, v.scoreDialogue(response), weightDialogue},
		{entity.RuleInstructionLeakage, v.scoreLeakage(response), weightLeakage},
		{entity.RuleLengthBounds, v.scoreLength(response), weightLength},
	}
	if model.TargetPersona {
		scores = append(scores, ruleScore{entity.RuleStructuralCompleteness, v.scoreStructure(response), weightStructural})
	}

	var weighted, totalWeight float64
	var violated []string
	for _, rs := range scores {
		weighted += rs.score * rs.weight
		totalWeight += rs.weight
		if rs.score < 1 {
			violated = append(violated, rs.id)
		}
	}

	result := entity.ValidationResult{
		Score:    weighted / totalWeight,
		Violated: violated,
	}
	result.Passed = result.Score >= v.cfg.PassThreshold
	if result.Passed {
		return result
	}

	if ex, ok := v.corpus.Nearest(requestEmbedding); ok {
		result.Corrected = ex.Response
		result.Explanation = fmt.Sprintf(
			"score %.2f below threshold %.2f (violated: %s); substituted reference response from category %q",
			result.Score, v.cfg.PassThreshold, strings.Join(violated, ", "), ex.Category)
	} else {
		result.Explanation = fmt.Sprintf(
			"score %.2f below threshold %.2f (violated: %s); no reference response available",
			result.Score, v.cfg.PassThreshold, strings.Join(violated, ", "))
	}
	return result
}

// scoreDialogue fails a response that scripts both sides of the
// conversation, i.e. contains turn labels for more than one speaker.
func (v *Validator) scoreDialogue(response string) float64 {
	matches := speakerLabelRe.FindAllStringSubmatch(response, -1)
	speakers := make(map[string]struct{})
	for _, m := range matches {
		speakers[strings.TrimSpace(m[1])] = struct{}{}
	}
	if len(speakers) > 1 {
		return 0
	}
	return 1
}

// scoreLeakage fails a response echoing verbatim fragments of the system
// instructions.
func (v *Validator) scoreLeakage(response string) float64 {
	normalized := NormalizeMessage(response)
	for _, frag := range v.cfg.InstructionFragments {
		frag = NormalizeMessage(frag)
		if len(frag) < 12 {
			continue // too short to be meaningful evidence
		}
		if strings.Contains(normalized, frag) {
			return 0
		}
	}
	return 1
}

func (v *Validator) scoreLength(response string) float64 {
	n := len([]rune(strings.TrimSpace(response)))
	if n < v.cfg.MinLength || n > v.cfg.MaxLength {
		return 0
	}
	return 1
}

// scoreStructure gives partial credit for each of the three elements a
// persona response should carry: an acknowledgment, a concrete next step,
// and a time expectation.
func (v *Validator) scoreStructure(response string) float64 {
	var hits float64
	if acknowledgmentRe.MatchString(response) {
		hits++
	}
	if nextStepRe.MatchString(response) {
		hits++
	}
	if timeframeRe.MatchString(response) {
		hits++
	}
	return hits / 3
}
