package kgraph

import (
	"context"
	"fmt"

	"github.com/graphmind/kgraph/pkg/interfaces"
)

// ProjectLayout reduces every embedding in the tenant to 2-D coordinates,
// preserving input order. An empty tenant yields an empty result without
// invoking the reducer.
//
// The reduction is CPU-bound and long-running: a weighted semaphore keeps it
// from starving concurrent requests, and concurrent projections for the same
// tenant share a single computation.
func (e *Engine) ProjectLayout(ctx context.Context, userID string) ([]interfaces.Coordinate, error) {
	if err := e.ensureTenant(ctx, userID); err != nil {
		return nil, err
	}
	if e.reducer == nil {
		return nil, fmt.Errorf("%w: no reducer configured", ErrComputationFailed)
	}

	result, err, _ := e.layoutGroup.Do(userID, func() (interface{}, error) {
		return e.projectLayout(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return result.([]interfaces.Coordinate), nil
}

func (e *Engine) projectLayout(ctx context.Context, tenant string) ([]interfaces.Coordinate, error) {
	set, err := e.store.Get(ctx, tenant, interfaces.GetRequest{
		Include: interfaces.Include{Embeddings: true},
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, set.Len())
	vectors := make([][]float32, 0, set.Len())
	for i, id := range set.IDs {
		if i < len(set.Embeddings) && len(set.Embeddings[i]) > 0 {
			ids = append(ids, id)
			vectors = append(vectors, set.Embeddings[i])
		}
	}
	if len(ids) == 0 {
		return []interfaces.Coordinate{}, nil
	}

	if err := e.layoutSem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	coords, err := e.reducer.Reduce(ctx, vectors, 2)
	e.layoutSem.Release(1)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrComputationFailed, err)
	}
	if len(coords) != len(ids) {
		return nil, fmt.Errorf("%w: reducer returned %d points for %d inputs", ErrComputationFailed, len(coords), len(ids))
	}

	out := make([]interfaces.Coordinate, len(ids))
	for i, id := range ids {
		out[i] = interfaces.Coordinate{ID: id, X: coords[i][0], Y: coords[i][1]}
	}

	e.logger.Info(ctx, "Layout coordinates computed", map[string]interface{}{
		"records": len(out),
	})
	return out, nil
}
