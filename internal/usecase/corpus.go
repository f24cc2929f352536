package usecase

import (
	"context"
	"fmt"

	"steward-core/internal/domain/entity"
	"steward-core/internal/domain/repository"
)

// StaticCorpus serves a fixed slice of reference examples, for offline
// deployments and tests.
type StaticCorpus []entity.ReferenceExample

// Load implements repository.CorpusReader.
func (s StaticCorpus) Load(ctx context.Context) ([]entity.ReferenceExample, error) {
	return s, nil
}

// DefaultCorpus is a minimal built-in set of property-management reference
// responses, used when no extracted corpus is configured.
func DefaultCorpus() StaticCorpus {
	return StaticCorpus{
		{
			Scenario: "My AC stopped working and the unit is getting hot",
			Response: "So sorry to hear your AC is out — that's miserable. I'm putting in a work order for our HVAC vendor right now, and you should hear from them to schedule a visit within 24 hours. If it gets unbearable tonight, let me know and I'll see what we can do sooner.",
			Category: "maintenance_emergency",
		},
		{
			Scenario: "There is a leak under my kitchen sink",
			Response: "Thanks for flagging the leak — please put a bucket or towel under it for now if you can. I've dispatched a plumber; they'll reach out today to set a time. I'll follow up tomorrow to make sure it's handled.",
			Category: "maintenance_emergency",
		},
		{
			Scenario: "When is rent due and is there a grace period",
			Response: "Good question — rent is due on the 1st of each month, with a grace period through the 5th before any late fee applies. You can pay through the resident portal anytime. Let me know if you'd like me to resend your portal invite.",
			Category: "leasing_question",
		},
		{
			Scenario: "Can I get a copy of my lease agreement",
			Response: "Of course — I'll email you a copy of your signed lease within the hour. If anything in it looks off or you have questions about a clause, just reply here and I'll walk you through it.",
			Category: "leasing_question",
		},
		{
			Scenario: "My neighbors are being loud late at night",
			Response: "I'm sorry you're dealing with that — everyone deserves quiet at night. I'll reach out to the neighbors today and remind them of the quiet hours policy. If it continues this week, tell me and we'll escalate it formally.",
			Category: "community_issue",
		},
	}
}

// CorpusIndex holds the reference corpus together with precomputed
// embeddings for nearest-match lookup. Built once at startup; read-only
// afterwards.
type CorpusIndex struct {
	examples []entity.ReferenceExample
	vectors  [][]float32
}

// BuildCorpusIndex loads the corpus and embeds every scenario with the
// same embedder the semantic cache uses.
func BuildCorpusIndex(ctx context.Context, reader repository.CorpusReader, embedder repository.Embedder) (*CorpusIndex, error) {
	examples, err := reader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load reference corpus: %w", err)
	}

	idx := &CorpusIndex{
		examples: examples,
		vectors:  make([][]float32, len(examples)),
	}
	for i, ex := range examples {
		vec, err := embedder.CreateEmbedding(ctx, NormalizeMessage(ex.Scenario))
		if err != nil {
			return nil, fmt.Errorf("embed corpus scenario %d: %w", i, err)
		}
		idx.vectors[i] = vec
	}
	return idx, nil
}

// Len reports the number of indexed examples.
func (ci *CorpusIndex) Len() int { return len(ci.examples) }

// Nearest returns the example whose scenario is most similar to the query
// embedding. With a nil embedding (embedder outage) it falls back to the
// first example so a correction is always available.
func (ci *CorpusIndex) Nearest(embedding []float32) (entity.ReferenceExample, bool) {
	if len(ci.examples) == 0 {
		return entity.ReferenceExample{}, false
	}
	if len(embedding) == 0 {
		return ci.examples[0], true
	}

	bestIdx, bestSim := 0, -1.0
	for i, vec := range ci.vectors {
		if sim := entity.Cosine(embedding, vec); sim > bestSim {
			bestIdx, bestSim = i, sim
		}
	}
	return ci.examples[bestIdx], true
}
