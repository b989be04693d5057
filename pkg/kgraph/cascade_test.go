package kgraph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphmind/kgraph/pkg/interfaces"
)

// idGetFailStore fails Get calls that resolve records by ID while leaving
// filter-based Gets working, isolating the endpoint-embedding fetch.
type idGetFailStore struct {
	*memStore
	failIDGets bool
}

func (s *idGetFailStore) Get(ctx context.Context, tenant string, req interfaces.GetRequest) (interfaces.RecordSet, error) {
	if s.failIDGets && len(req.IDs) > 0 {
		return interfaces.RecordSet{}, errors.New("embedding fetch unavailable")
	}
	return s.memStore.Get(ctx, tenant, req)
}

// upsertQuotaStore rejects Upsert calls once the quota is spent, so a test can
// let the node batch through and fail the cascade's write.
type upsertQuotaStore struct {
	*memStore
	quota int
}

func (s *upsertQuotaStore) Upsert(ctx context.Context, tenant string, records []interfaces.Record) error {
	if s.quota <= 0 {
		return errors.New("write rejected")
	}
	s.quota--
	return s.memStore.Upsert(ctx, tenant, records)
}

func getEmbedding(t *testing.T, store *memStore, id string) []float32 {
	t.Helper()
	set, err := store.Get(context.Background(), testUser, interfaces.GetRequest{
		IDs:     []string{id},
		Include: interfaces.Include{Embeddings: true},
	})
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())
	return set.Embeddings[0]
}

func TestCascade(t *testing.T) {
	ctx := context.Background()

	t.Run("recomputes edges touching an updated node", func(t *testing.T) {
		store := newMemStore()
		embedder := &fakeEmbedder{vectors: map[string][]float32{
			"coffee": {1, 0},
			"tea":    {0, 1},
		}}
		engine := newTestEngine(store, embedder)

		_, err := engine.UpsertNodes(ctx, testUser, []NodeInput{
			{ID: "a", Content: "coffee"},
			{ID: "b", Content: "tea"},
		})
		require.NoError(t, err)
		_, err = engine.UpsertEdges(ctx, testUser, []EdgeInput{
			{ID: "e1", SourceID: "a", TargetID: "b", Label: "pairs_with"},
		})
		require.NoError(t, err)
		require.Equal(t, []float32{-1, 1}, getEmbedding(t, store, "e1"))

		// Moving node a must drag e1 along: target − source over the fresh
		// endpoint embeddings.
		embedder.vectors["coffee"] = []float32{2, 0}
		_, err = engine.UpsertNodes(ctx, testUser, []NodeInput{{ID: "a", Content: "coffee"}})
		require.NoError(t, err)
		assert.Equal(t, []float32{-2, 1}, getEmbedding(t, store, "e1"))
	})

	t.Run("edge touched on both sides is recomputed once", func(t *testing.T) {
		store := newMemStore()
		embedder := &fakeEmbedder{vectors: map[string][]float32{
			"coffee": {1, 0},
			"tea":    {0, 1},
		}}
		engine := newTestEngine(store, embedder)

		_, err := engine.UpsertNodes(ctx, testUser, []NodeInput{
			{ID: "a", Content: "coffee"},
			{ID: "b", Content: "tea"},
		})
		require.NoError(t, err)
		_, err = engine.UpsertEdges(ctx, testUser, []EdgeInput{
			{ID: "e1", SourceID: "a", TargetID: "b", Label: "pairs_with"},
		})
		require.NoError(t, err)

		embedder.vectors["coffee"] = []float32{3, 0}
		embedder.vectors["tea"] = []float32{0, 3}
		calls := store.upsertCalls
		_, err = engine.UpsertNodes(ctx, testUser, []NodeInput{
			{ID: "a", Content: "coffee"},
			{ID: "b", Content: "tea"},
		})
		require.NoError(t, err)

		// One batch for the nodes, one for the cascaded edges.
		assert.Equal(t, calls+2, store.upsertCalls)
		assert.Equal(t, []float32{-3, 3}, getEmbedding(t, store, "e1"))
	})

	t.Run("leaves edges with unresolvable endpoints stale", func(t *testing.T) {
		store := newMemStore()
		embedder := &fakeEmbedder{vectors: map[string][]float32{
			"coffee": {1, 0},
			"tea":    {0, 1},
		}}
		engine := newTestEngine(store, embedder)

		_, err := engine.UpsertNodes(ctx, testUser, []NodeInput{
			{ID: "a", Content: "coffee"},
			{ID: "b", Content: "tea"},
		})
		require.NoError(t, err)
		_, err = engine.UpsertEdges(ctx, testUser, []EdgeInput{
			{ID: "e1", SourceID: "a", TargetID: "b", Label: "pairs_with"},
		})
		require.NoError(t, err)

		// Simulate a dangling reference: the target node disappears.
		require.NoError(t, store.Delete(ctx, testUser, []string{"b"}))

		embedder.vectors["coffee"] = []float32{5, 0}
		_, err = engine.UpsertNodes(ctx, testUser, []NodeInput{{ID: "a", Content: "coffee"}})
		require.NoError(t, err)

		assert.Equal(t, []float32{-1, 1}, getEmbedding(t, store, "e1"))
	})

	t.Run("upsert succeeds when the endpoint fetch fails", func(t *testing.T) {
		inner := newMemStore()
		store := &idGetFailStore{memStore: inner}
		embedder := &fakeEmbedder{vectors: map[string][]float32{
			"coffee": {1, 0},
			"tea":    {0, 1},
		}}
		engine := newTestEngine(store, embedder)

		_, err := engine.UpsertNodes(ctx, testUser, []NodeInput{
			{ID: "a", Content: "coffee"},
			{ID: "b", Content: "tea"},
		})
		require.NoError(t, err)
		_, err = engine.UpsertEdges(ctx, testUser, []EdgeInput{
			{ID: "e1", SourceID: "a", TargetID: "b", Label: "pairs_with"},
		})
		require.NoError(t, err)

		// The candidate-edge lookup still works; only resolving node b's
		// embedding fails. The node batch must not fail retroactively.
		store.failIDGets = true
		embedder.vectors["coffee"] = []float32{2, 0}
		_, err = engine.UpsertNodes(ctx, testUser, []NodeInput{{ID: "a", Content: "coffee"}})
		require.NoError(t, err)

		store.failIDGets = false
		assert.Equal(t, []float32{2, 0}, getEmbedding(t, inner, "a"))
		assert.Equal(t, []float32{-1, 1}, getEmbedding(t, inner, "e1"))
	})

	t.Run("recomputed edges keep their stored document", func(t *testing.T) {
		store := newMemStore()
		embedder := &fakeEmbedder{vectors: map[string][]float32{
			"coffee": {1, 0},
			"tea":    {0, 1},
		}}
		engine := newTestEngine(store, embedder)

		_, err := engine.UpsertNodes(ctx, testUser, []NodeInput{
			{ID: "a", Content: "coffee"},
			{ID: "b", Content: "tea"},
		})
		require.NoError(t, err)

		edge := edgeRecord(Edge{ID: "e1", SourceID: "a", TargetID: "b", Label: "pairs_with", Embedding: []float32{-1, 1}})
		edge.Document = "coffee pairs with tea"
		require.NoError(t, store.Upsert(ctx, testUser, []interfaces.Record{edge}))

		embedder.vectors["coffee"] = []float32{2, 0}
		_, err = engine.UpsertNodes(ctx, testUser, []NodeInput{{ID: "a", Content: "coffee"}})
		require.NoError(t, err)

		set, err := store.Get(ctx, testUser, interfaces.GetRequest{
			IDs:     []string{"e1"},
			Include: interfaces.Include{Documents: true, Embeddings: true},
		})
		require.NoError(t, err)
		require.Equal(t, 1, set.Len())
		assert.Equal(t, []float32{-2, 1}, set.Embeddings[0])
		assert.Equal(t, "coffee pairs with tea", set.Documents[0])
	})

	t.Run("upsert succeeds when the cascade write fails", func(t *testing.T) {
		inner := newMemStore()
		store := &upsertQuotaStore{memStore: inner, quota: 2}
		embedder := &fakeEmbedder{vectors: map[string][]float32{
			"coffee": {1, 0},
			"tea":    {0, 1},
		}}
		engine := newTestEngine(store, embedder)

		_, err := engine.UpsertNodes(ctx, testUser, []NodeInput{
			{ID: "a", Content: "coffee"},
			{ID: "b", Content: "tea"},
		})
		require.NoError(t, err)
		_, err = engine.UpsertEdges(ctx, testUser, []EdgeInput{
			{ID: "e1", SourceID: "a", TargetID: "b", Label: "pairs_with"},
		})
		require.NoError(t, err)

		// One write left: the node batch lands, the cascaded edge batch is
		// rejected.
		store.quota = 1
		embedder.vectors["coffee"] = []float32{2, 0}
		_, err = engine.UpsertNodes(ctx, testUser, []NodeInput{{ID: "a", Content: "coffee"}})
		require.NoError(t, err)

		assert.Equal(t, []float32{2, 0}, getEmbedding(t, inner, "a"))
		assert.Equal(t, []float32{-1, 1}, getEmbedding(t, inner, "e1"))
	})

	t.Run("upsert succeeds when the edge lookup fails", func(t *testing.T) {
		store := newMemStore()
		embedder := &fakeEmbedder{vectors: map[string][]float32{"coffee": {1, 0}}}
		engine := newTestEngine(store, embedder)

		require.NoError(t, store.EnsureTenant(ctx, testUser))
		store.getErr = assert.AnError

		_, err := engine.UpsertNodes(ctx, testUser, []NodeInput{{ID: "a", Content: "coffee"}})
		assert.NoError(t, err)
	})

	t.Run("node without edges cascades nothing", func(t *testing.T) {
		store := newMemStore()
		embedder := &fakeEmbedder{vectors: map[string][]float32{"coffee": {1, 0}}}
		engine := newTestEngine(store, embedder)

		_, err := engine.UpsertNodes(ctx, testUser, []NodeInput{{ID: "a", Content: "coffee"}})
		require.NoError(t, err)
		assert.Equal(t, 1, store.upsertCalls)
	})
}
