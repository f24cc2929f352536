package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"steward-core/internal/domain/entity"
)

// QdrantStore backs the semantic cache with a Qdrant collection so several
// gateway instances can share one cache. Similarity scoring and the age
// filter run server-side; the tie-break on equal scores is whatever order
// Qdrant returns, which for a single best hit is equivalent.
type QdrantStore struct {
	client         *qdrant.Client
	collectionName string
}

// NewQdrantStore wraps an existing Qdrant client.
func NewQdrantStore(client *qdrant.Client, collectionName string) *QdrantStore {
	return &QdrantStore{
		client:         client,
		collectionName: collectionName,
	}
}

// InitCollection creates the collection and the created_at payload index if
// they do not exist yet.
func (s *QdrantStore) InitCollection(ctx context.Context, dim uint64) error {
	_, err := s.client.GetCollectionInfo(ctx, s.collectionName)
	if err != nil {
		st, ok := status.FromError(err)
		if ok && st.Code() == codes.NotFound {
			err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
				CollectionName: s.collectionName,
				VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
					Size:     dim,
					Distance: qdrant.Distance_Cosine,
				}),
			})
			if err != nil {
				return fmt.Errorf("failed to create collection: %w", err)
			}
		} else {
			return err
		}
	}

	// Payload index so the age range filter stays fast as entries pile up.
	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.collectionName,
		FieldName:      "created_at",
		FieldType:      qdrant.FieldType_FieldTypeInteger.Enum(),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		log.Printf("[QDRANT] Warning: could not create created_at index (might already exist): %v", err)
	}

	return nil
}

// Search queries the collection scoped to the query's provider/model with
// the resolved score threshold and age cutoff.
func (s *QdrantStore) Search(ctx context.Context, q entity.CacheQuery) (*entity.CacheHit, error) {
	threshold := float32(q.Threshold)
	mustConditions := []*qdrant.Condition{
		qdrant.NewMatch("provider_id", q.ProviderID),
		qdrant.NewMatch("model_id", q.ModelID),
		{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key: "created_at",
					Range: &qdrant.Range{
						Gt: qdrant.PtrOf(float64(q.OldestAllowed.Unix())),
					},
				},
			},
		},
	}

	res, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collectionName,
		Query:          qdrant.NewQuery(q.Embedding...),
		Filter:         &qdrant.Filter{Must: mustConditions},
		Limit:          qdrant.PtrOf(uint64(1)),
		WithPayload:    qdrant.NewWithPayload(true),
		ScoreThreshold: &threshold,
	})
	if err != nil || len(res) == 0 {
		return nil, err
	}

	hit := res[0]
	payload := hit.Payload

	return &entity.CacheHit{
		Entry: entity.CacheEntry{
			Fingerprint: payload["fingerprint"].GetStringValue(),
			Response:    payload["response"].GetStringValue(),
			ProviderID:  q.ProviderID,
			ModelID:     q.ModelID,
			CreatedAt:   time.Unix(payload["created_at"].GetIntegerValue(), 0),
		},
		Similarity: float64(hit.Score),
	}, nil
}

// Save upserts the entry as a new point; entries are never mutated, only
// added and swept.
func (s *QdrantStore) Save(ctx context.Context, entry entity.CacheEntry) error {
	id := entry.ID
	if id == "" {
		id = uuid.NewString()
	}
	payload := map[string]any{
		"fingerprint": entry.Fingerprint,
		"response":    entry.Response,
		"provider_id": entry.ProviderID,
		"model_id":    entry.ModelID,
		"created_at":  entry.CreatedAt.Unix(),
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collectionName,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewIDUUID(id),
				Vectors: qdrant.NewVectors(entry.Embedding...),
				Payload: qdrant.NewValueMap(payload),
			},
		},
	})
	return err
}

// Sweep deletes every point created before the cutoff. Qdrant does not
// report how many points a filtered delete removed, so the count is -1.
func (s *QdrantStore) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collectionName,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				{
					ConditionOneOf: &qdrant.Condition_Field{
						Field: &qdrant.FieldCondition{
							Key: "created_at",
							Range: &qdrant.Range{
								Lte: qdrant.PtrOf(float64(cutoff.Unix())),
							},
						},
					},
				},
			},
		}),
	})
	if err != nil {
		return 0, err
	}
	return -1, nil
}
