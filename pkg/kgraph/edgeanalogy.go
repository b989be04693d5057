package kgraph

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/graphmind/kgraph/pkg/interfaces"
	"github.com/graphmind/kgraph/pkg/kgraph/numeric"
)

// EdgeAnalogy recommends nodes that plausibly complete the given relation from
// the seed node, TransE style: for a consistent relation the displacement
// vectors (target − source) of its example edges cluster tightly, and
// seed + cluster-centroid points at candidate completions.
//
// Too few example edges, or no cluster surviving the size filter, is a valid
// empty result: insufficient evidence, not an error.
func (e *Engine) EdgeAnalogy(ctx context.Context, userID, nodeID, label string, topK int) ([]Recommendation, error) {
	if nodeID == "" {
		return nil, ErrMissingNodeID
	}
	if label == "" {
		return nil, ErrMissingRelationLabel
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

	edges, err := e.store.Get(ctx, userID, interfaces.GetRequest{
		Where:   edgeLabelFilter(label),
		Include: interfaces.Include{Embeddings: true},
	})
	if err != nil {
		return nil, err
	}

	displacements := make([][]float64, 0, edges.Len())
	for _, vector := range edges.Embeddings {
		if len(vector) > 0 {
			displacements = append(displacements, numeric.ToFloat64(vector))
		}
	}

	if len(displacements) < e.analogy.MinClusterSize {
		e.logger.Info(ctx, "Too few example edges for analogy", map[string]interface{}{
			"label":    label,
			"examples": len(displacements),
			"required": e.analogy.MinClusterSize,
		})
		return []Recommendation{}, nil
	}

	centroids := e.relationCentroids(displacements)
	if len(centroids) == 0 {
		e.logger.Info(ctx, "No cluster survived the size filter", map[string]interface{}{
			"label": label,
		})
		return []Recommendation{}, nil
	}

	// Candidate scores merged across centroids, keeping the best score per
	// node. A failed centroid query is absorbed; the remaining centroids
	// still produce a best-effort result.
	var mu sync.Mutex
	best := map[string]float64{}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, centroid := range centroids {
		target := make([]float32, len(seed))
		for i := range seed {
			target[i] = seed[i] + float32(centroid[i])
		}

		group.Go(func() error {
			result, err := e.store.Query(groupCtx, userID, interfaces.QueryRequest{
				Vector: target,
				Limit:  topK + 1,
				Where:  nodeTypeFilter(),
			})
			if err != nil {
				e.logger.Warn(groupCtx, "Centroid query failed, skipping", map[string]interface{}{
					"error": err.Error(),
				})
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			for i, id := range result.IDs {
				if id == nodeID {
					continue
				}
				// Cosine distance converts to similarity as 1 − d.
				score := 1 - float64(result.Distances[i])
				if score < e.analogy.MinSimilarity {
					continue
				}
				if current, ok := best[id]; !ok || score > current {
					best[id] = score
				}
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	recommendations := make([]Recommendation, 0, len(best))
	for id, score := range best {
		recommendations = append(recommendations, Recommendation{ID: id, Score: score})
	}
	sort.Slice(recommendations, func(i, j int) bool {
		if recommendations[i].Score != recommendations[j].Score {
			return recommendations[i].Score > recommendations[j].Score
		}
		return recommendations[i].ID < recommendations[j].ID
	})
	if len(recommendations) > topK {
		recommendations = recommendations[:topK]
	}
	return recommendations, nil
}

// relationCentroids clusters the displacement vectors and returns the
// full-dimension centroid of every cluster meeting the size threshold. The
// distance matrix may be computed over a dimension prefix as a speed/accuracy
// trade on high-dimensional embeddings.
func (e *Engine) relationCentroids(displacements [][]float64) [][]float64 {
	dist := numeric.CosineDistanceMatrix(numeric.Prefix(displacements, e.analogy.PrefixDims))
	labels := numeric.AverageLinkage(dist, e.analogy.DistanceThreshold)

	centroids := make([][]float64, 0)
	for _, members := range numeric.ClusterMembers(labels) {
		if len(members) < e.analogy.MinClusterSize {
			continue
		}
		cluster := make([][]float64, len(members))
		for i, idx := range members {
			cluster[i] = displacements[idx]
		}
		centroids = append(centroids, numeric.Centroid(cluster))
	}
	return centroids
}
