package kgraph

import (
	"context"
	"fmt"
	"math/rand"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/graphmind/kgraph/pkg/embedding"
	"github.com/graphmind/kgraph/pkg/interfaces"
	"github.com/graphmind/kgraph/pkg/logging"
)

// AnalogyParams are the tunable thresholds of the edge-analogy strategy. The
// defaults match the production tuning; deployments adjust them through
// configuration rather than code.
type AnalogyParams struct {
	// DistanceThreshold is the cosine-distance limit up to which edge
	// displacement vectors keep merging into one cluster.
	DistanceThreshold float64

	// MinClusterSize is the minimum number of example edges a cluster needs
	// to count as evidence for a relation direction.
	MinClusterSize int

	// MinSimilarity is the floor below which projected candidates are
	// discarded.
	MinSimilarity float64

	// PrefixDims, when positive, restricts the pairwise distance computation
	// to the leading dimensions of each displacement vector. Centroids are
	// always computed over full dimensions.
	PrefixDims int
}

// DefaultAnalogyParams returns the default edge-analogy tuning.
func DefaultAnalogyParams() AnalogyParams {
	return AnalogyParams{
		DistanceThreshold: 0.2,
		MinClusterSize:    3,
		MinSimilarity:     0.75,
	}
}

// DefaultSampleSize bounds the least-similar candidate pool.
const DefaultSampleSize = 100

// Engine ties the record model, the consistency cascade, the recommendation
// strategies and the layout projector together over one vector store and one
// embedding provider. All operations are scoped to the tenant passed per call.
type Engine struct {
	store      interfaces.VectorStore
	embedder   embedding.Client
	reducer    interfaces.Reducer
	logger     logging.Logger
	analogy    AnalogyParams
	sampleSize int

	// layoutSem bounds concurrent CPU-bound reductions; layoutGroup
	// collapses concurrent recomputations for the same tenant.
	layoutSem   *semaphore.Weighted
	layoutGroup singleflight.Group

	// randPerm is swapped out in tests for deterministic sampling.
	randPerm func(n int) []int
}

// Option represents an option for configuring the engine.
type Option func(*Engine)

// WithLogger sets the logger for the engine.
func WithLogger(logger logging.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithReducer sets the dimensionality-reduction backend for layout
// projection.
func WithReducer(reducer interfaces.Reducer) Option {
	return func(e *Engine) {
		e.reducer = reducer
	}
}

// WithAnalogyParams overrides the edge-analogy thresholds.
func WithAnalogyParams(params AnalogyParams) Option {
	return func(e *Engine) {
		e.analogy = params
	}
}

// WithSampleSize overrides the least-similar sampling bound.
func WithSampleSize(size int) Option {
	return func(e *Engine) {
		if size > 0 {
			e.sampleSize = size
		}
	}
}

// WithLayoutConcurrency bounds how many layout reductions may run at once.
func WithLayoutConcurrency(n int64) Option {
	return func(e *Engine) {
		if n > 0 {
			e.layoutSem = semaphore.NewWeighted(n)
		}
	}
}

// NewEngine creates an engine over the given store and embedder.
func NewEngine(store interfaces.VectorStore, embedder embedding.Client, options ...Option) *Engine {
	e := &Engine{
		store:      store,
		embedder:   embedder,
		logger:     logging.New(),
		analogy:    DefaultAnalogyParams(),
		sampleSize: DefaultSampleSize,
		layoutSem:  semaphore.NewWeighted(1),
		randPerm:   rand.Perm,
	}

	for _, option := range options {
		option(e)
	}

	return e
}

// NodeInput is a node to upsert: the embedding is derived from Content by the
// embedding provider.
type NodeInput struct {
	ID      string
	Content string
}

// EdgeInput declares an edge between two existing nodes. The embedding is
// derived from the endpoints' current node embeddings.
type EdgeInput struct {
	ID       string
	SourceID string
	TargetID string
	Label    string
}

// Recommendation is one ranked result of a recommendation strategy. Score
// polarity depends on the strategy: raw store distance for synonyms (lower is
// closer), cosine similarity for the others.
type Recommendation struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// ensureTenant provisions the user's tenant, mapping failure onto the
// provisioning sentinel. Fatal for the calling request.
func (e *Engine) ensureTenant(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrMissingUserID
	}
	if err := e.store.EnsureTenant(ctx, userID); err != nil {
		return fmt.Errorf("%w: %v", ErrTenantProvisioning, err)
	}
	return nil
}

// UpsertNodes embeds the node contents, stores the node records, and runs the
// consistency cascade over every edge touching the updated nodes. The returned
// nodes carry their freshly computed embeddings.
func (e *Engine) UpsertNodes(ctx context.Context, userID string, inputs []NodeInput) ([]Node, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	for _, in := range inputs {
		if in.ID == "" {
			return nil, ErrMissingNodeID
		}
		if in.Content == "" {
			return nil, fmt.Errorf("node %s: %w", in.ID, ErrMissingContent)
		}
	}

	if err := e.ensureTenant(ctx, userID); err != nil {
		return nil, err
	}

	texts := make([]string, len(inputs))
	for i, in := range inputs {
		texts[i] = in.Content
	}
	vectors, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed node contents: %w", err)
	}

	nodes := make([]Node, len(inputs))
	records := make([]interfaces.Record, len(inputs))
	updated := make(map[string][]float32, len(inputs))
	for i, in := range inputs {
		nodes[i] = Node{ID: in.ID, Content: in.Content, Embedding: vectors[i]}
		records[i] = nodeRecord(nodes[i])
		updated[in.ID] = vectors[i]
	}

	if err := e.store.Upsert(ctx, userID, records); err != nil {
		return nil, fmt.Errorf("failed to upsert nodes: %w", err)
	}

	// Node writes are visible at this point; dependent edge reads in the
	// cascade observe the fresh embeddings. The cascade is best-effort and
	// never fails the batch that triggered it.
	e.cascadeEdges(ctx, userID, updated)

	return nodes, nil
}

// UpsertEdges stores explicitly declared edges, deriving each embedding from
// the endpoints' current node embeddings. Edges whose endpoints have no
// resolvable embedding are skipped and logged, not failed.
func (e *Engine) UpsertEdges(ctx context.Context, userID string, inputs []EdgeInput) ([]Edge, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	for _, in := range inputs {
		if in.ID == "" || in.SourceID == "" || in.TargetID == "" {
			return nil, fmt.Errorf("edge %q: id, source and target are required", in.ID)
		}
	}

	if err := e.ensureTenant(ctx, userID); err != nil {
		return nil, err
	}

	endpointIDs := make([]string, 0, len(inputs)*2)
	seen := map[string]bool{}
	for _, in := range inputs {
		for _, id := range []string{in.SourceID, in.TargetID} {
			if !seen[id] {
				seen[id] = true
				endpointIDs = append(endpointIDs, id)
			}
		}
	}
	embeddings, err := e.fetchEmbeddings(ctx, userID, endpointIDs)
	if err != nil {
		return nil, err
	}

	edges := make([]Edge, 0, len(inputs))
	records := make([]interfaces.Record, 0, len(inputs))
	for _, in := range inputs {
		source, okS := embeddings[in.SourceID]
		target, okT := embeddings[in.TargetID]
		if !okS || !okT {
			e.logger.Warn(ctx, "Skipping edge with unresolvable endpoint", map[string]interface{}{
				"edgeId":   in.ID,
				"sourceId": in.SourceID,
				"targetId": in.TargetID,
			})
			continue
		}
		vector, err := EdgeEmbedding(source, target)
		if err != nil {
			e.logger.Warn(ctx, "Skipping edge with mismatched endpoint dimensions", map[string]interface{}{
				"edgeId": in.ID,
				"error":  err.Error(),
			})
			continue
		}
		edge := Edge{ID: in.ID, SourceID: in.SourceID, TargetID: in.TargetID, Label: in.Label, Embedding: vector}
		edges = append(edges, edge)
		records = append(records, edgeRecord(edge))
	}

	if len(records) > 0 {
		if err := e.store.Upsert(ctx, userID, records); err != nil {
			return nil, fmt.Errorf("failed to upsert edges: %w", err)
		}
	}

	return edges, nil
}

// DeleteRecords removes records by ID. Edges referencing deleted nodes are NOT
// removed here: referential cleanup belongs to the document store that owns
// the graph structure.
func (e *Engine) DeleteRecords(ctx context.Context, userID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := e.ensureTenant(ctx, userID); err != nil {
		return err
	}
	if err := e.store.Delete(ctx, userID, ids); err != nil {
		return fmt.Errorf("failed to delete records: %w", err)
	}
	return nil
}

// fetchEmbeddings resolves stored embeddings for the given record IDs. IDs
// without a stored embedding are absent from the result.
func (e *Engine) fetchEmbeddings(ctx context.Context, tenant string, ids []string) (map[string][]float32, error) {
	if len(ids) == 0 {
		return map[string][]float32{}, nil
	}
	set, err := e.store.Get(ctx, tenant, interfaces.GetRequest{
		IDs:     ids,
		Include: interfaces.Include{Embeddings: true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch embeddings: %w", err)
	}

	out := make(map[string][]float32, set.Len())
	for i, id := range set.IDs {
		if i < len(set.Embeddings) && len(set.Embeddings[i]) > 0 {
			out[id] = set.Embeddings[i]
		}
	}
	return out, nil
}

// seedEmbedding fetches the seed node's embedding, failing with the not-found
// sentinel when it is absent.
func (e *Engine) seedEmbedding(ctx context.Context, tenant, nodeID string) ([]float32, error) {
	embeddings, err := e.fetchEmbeddings(ctx, tenant, []string{nodeID})
	if err != nil {
		return nil, err
	}
	vector, ok := embeddings[nodeID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEmbeddingNotFound, nodeID)
	}
	return vector, nil
}
