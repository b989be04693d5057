package kgraph

import (
	"context"

	"github.com/graphmind/kgraph/pkg/interfaces"
)

// Synonyms returns the topK records nearest to the seed node by store
// distance. The score is the store's reported distance, unmodified: lower
// means more similar. Results keep the store's ascending-distance order.
func (e *Engine) Synonyms(ctx context.Context, userID, nodeID string, topK int) ([]Recommendation, error) {
	if nodeID == "" {
		return nil, ErrMissingNodeID
	}
	if topK <= 0 {
		topK = 10
	}
	if err := e.ensureTenant(ctx, userID); err != nil {
		return nil, err
	}

	seed, err := e.seedEmbedding(ctx, userID, nodeID)
	if err != nil {
		return nil, err
	}

	// One extra result absorbs the seed's self-match.
	result, err := e.store.Query(ctx, userID, interfaces.QueryRequest{
		Vector: seed,
		Limit:  topK + 1,
	})
	if err != nil {
		return nil, err
	}

	recommendations := make([]Recommendation, 0, topK)
	for i, id := range result.IDs {
		if id == nodeID {
			continue
		}
		recommendations = append(recommendations, Recommendation{ID: id, Score: float64(result.Distances[i])})
		if len(recommendations) >= topK {
			break
		}
	}
	return recommendations, nil
}
