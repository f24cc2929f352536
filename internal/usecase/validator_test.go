package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steward-core/internal/adapter/client"
	"steward-core/internal/domain/entity"
)

var (
	personaModel = entity.ModelDescriptor{ID: "gemini-2.5-flash", ProviderID: "gemini", TargetPersona: true}
	plainModel   = entity.ModelDescriptor{ID: "llama3.1", ProviderID: "ollama"}
)

func newTestValidator(t *testing.T) (*Validator, *CorpusIndex) {
	t.Helper()
	embedder := client.NewHashEmbedder(64)
	idx, err := BuildCorpusIndex(context.Background(), DefaultCorpus(), embedder)
	require.NoError(t, err)

	v := NewValidator(ValidatorConfig{
		InstructionFragments: []string{"You are a professional property manager"},
	}, idx)
	return v, idx
}

func embed(t *testing.T, text string) []float32 {
	t.Helper()
	vec, err := client.NewHashEmbedder(64).CreateEmbedding(context.Background(), NormalizeMessage(text))
	require.NoError(t, err)
	return vec
}

func TestValidateWellFormedPersonaResponse(t *testing.T) {
	v, _ := newTestValidator(t)
	req := entity.ChatRequest{Message: "My AC stopped working"}
	response := "So sorry to hear the AC is out — that's no fun in this heat. I'm putting in a work order right now and the HVAC vendor will call you to schedule within 24 hours."

	res := v.Validate(req, response, personaModel, embed(t, req.Message))
	assert.True(t, res.Passed)
	assert.Empty(t, res.Violated)
	assert.Empty(t, res.Corrected)
}

func TestValidateACScenarioFailsAndCorrects(t *testing.T) {
	v, _ := newTestValidator(t)
	req := entity.ChatRequest{Message: "My AC stopped working"}
	// No acknowledgment, no next step, no timeline.
	response := "The AC unit is probably low on refrigerant. Maintenance requests are generally handled in the order they arrive at the office."

	res := v.Validate(req, response, personaModel, embed(t, req.Message))
	assert.False(t, res.Passed)
	assert.Contains(t, res.Violated, entity.RuleStructuralCompleteness)
	assert.NotEmpty(t, res.Corrected, "a failed persona response must come with a reference correction")
	assert.NotEmpty(t, res.Explanation)

	// The correction is drawn from the reference corpus.
	var found bool
	for _, ex := range DefaultCorpus() {
		if ex.Response == res.Corrected {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidateDeterminism(t *testing.T) {
	v, _ := newTestValidator(t)
	req := entity.ChatRequest{Message: "My AC stopped working"}
	response := "The AC unit is probably low on refrigerant and someone may look at it eventually, whenever that is."

	first := v.Validate(req, response, personaModel, embed(t, req.Message))
	for i := 0; i < 5; i++ {
		again := v.Validate(req, response, personaModel, embed(t, req.Message))
		assert.Equal(t, first, again, "rule evaluation must be deterministic")
	}
}

func TestValidateDialogueSimulation(t *testing.T) {
	v, _ := newTestValidator(t)
	req := entity.ChatRequest{Message: "Is the pool open?"}
	response := "Tenant: Is the pool open today?\nManager: Yes, the pool is open from nine to nine, thanks for asking — come on by whenever you like."

	res := v.Validate(req, response, plainModel, embed(t, req.Message))
	assert.Contains(t, res.Violated, entity.RuleDialogueSimulation)
	assert.False(t, res.Passed)
}

func TestValidateSingleSpeakerLabelIsFine(t *testing.T) {
	v, _ := newTestValidator(t)
	req := entity.ChatRequest{Message: "Is the pool open?"}
	response := "Note: the pool is open nine to nine every day this season, and towels are available at the front desk for residents."

	res := v.Validate(req, response, plainModel, embed(t, req.Message))
	assert.NotContains(t, res.Violated, entity.RuleDialogueSimulation)
}

func TestValidateInstructionLeakage(t *testing.T) {
	v, _ := newTestValidator(t)
	req := entity.ChatRequest{Message: "Who are you?"}
	response := "You are a professional property manager — that is the instruction I was given, and I am happy to help you today."

	res := v.Validate(req, response, plainModel, embed(t, req.Message))
	assert.Contains(t, res.Violated, entity.RuleInstructionLeakage)
	assert.False(t, res.Passed)
}

func TestValidateLengthBounds(t *testing.T) {
	v, _ := newTestValidator(t)
	req := entity.ChatRequest{Message: "Thanks"}

	res := v.Validate(req, "ok", plainModel, embed(t, req.Message))
	assert.Contains(t, res.Violated, entity.RuleLengthBounds)

	long := make([]byte, 0, 2000)
	for i := 0; i < 2000; i++ {
		long = append(long, 'a')
	}
	res = v.Validate(req, string(long), plainModel, embed(t, req.Message))
	assert.Contains(t, res.Violated, entity.RuleLengthBounds)
}

func TestCorpusIndexNearest(t *testing.T) {
	_, idx := newTestValidator(t)

	ex, ok := idx.Nearest(embed(t, "my ac stopped working and the unit is getting hot"))
	require.True(t, ok)
	assert.Equal(t, "maintenance_emergency", ex.Category)

	// Nil embedding still yields a usable correction.
	ex, ok = idx.Nearest(nil)
	require.True(t, ok)
	assert.NotEmpty(t, ex.Response)
}
