package kgraph

import (
	"context"
	"sort"

	"github.com/graphmind/kgraph/pkg/interfaces"
	"github.com/graphmind/kgraph/pkg/kgraph/numeric"
)

// LeastSimilar returns the topK records least similar to the seed node by
// cosine similarity, most dissimilar first. The nearest-neighbor primitive
// offers no farthest-neighbor search, so the pool is approximated by a uniform
// random sample when it exceeds the configured sample size; repeated calls
// over a large tenant intentionally vary.
func (e *Engine) LeastSimilar(ctx context.Context, userID, nodeID string, topK int) ([]Recommendation, error) {
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

	all, err := e.store.Get(ctx, userID, interfaces.GetRequest{})
	if err != nil {
		return nil, err
	}
	pool := make([]string, 0, all.Len())
	for _, id := range all.IDs {
		if id != nodeID {
			pool = append(pool, id)
		}
	}
	if len(pool) == 0 {
		return []Recommendation{}, nil
	}

	sampled := pool
	if len(pool) > e.sampleSize {
		sampled = make([]string, e.sampleSize)
		for i, idx := range e.randPerm(len(pool))[:e.sampleSize] {
			sampled[i] = pool[idx]
		}
	}

	embeddings, err := e.fetchEmbeddings(ctx, userID, sampled)
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return []Recommendation{}, nil
	}

	seedUnit := numeric.UnitNorm(numeric.ToFloat64(seed))
	scored := make([]Recommendation, 0, len(embeddings))
	for _, id := range sampled {
		vector, ok := embeddings[id]
		if !ok {
			continue
		}
		similarity := numeric.CosineSimilarity(seedUnit, numeric.UnitNorm(numeric.ToFloat64(vector)))
		scored = append(scored, Recommendation{ID: id, Score: similarity})
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Score < scored[j].Score })
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}
