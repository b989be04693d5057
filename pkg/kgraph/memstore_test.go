package kgraph

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/graphmind/kgraph/pkg/interfaces"
)

// memStore is an in-memory vector store used to exercise the engine without a
// running Weaviate. Query ranks by cosine distance, matching the production
// index configuration.
type memStore struct {
	mu      sync.Mutex
	tenants map[string]map[string]interfaces.Record

	// failure injection
	ensureErr error
	upsertErr error
	getErr    error
	queryErr  error
	deleteErr error

	upsertCalls int
}

func newMemStore() *memStore {
	return &memStore{tenants: map[string]map[string]interfaces.Record{}}
}

func (m *memStore) EnsureTenant(ctx context.Context, tenant string) error {
	if m.ensureErr != nil {
		return m.ensureErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tenants[tenant]; !ok {
		m.tenants[tenant] = map[string]interfaces.Record{}
	}
	return nil
}

func (m *memStore) Upsert(ctx context.Context, tenant string, records []interfaces.Record) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertCalls++
	coll, ok := m.tenants[tenant]
	if !ok {
		return fmt.Errorf("tenant %s not provisioned", tenant)
	}
	for _, r := range records {
		coll[r.ID] = r
	}
	return nil
}

func (m *memStore) Get(ctx context.Context, tenant string, req interfaces.GetRequest) (interfaces.RecordSet, error) {
	if m.getErr != nil {
		return interfaces.RecordSet{}, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var candidates []interfaces.Record
	if len(req.IDs) > 0 {
		for _, id := range req.IDs {
			if r, ok := m.tenants[tenant][id]; ok {
				candidates = append(candidates, r)
			}
		}
	} else {
		for _, r := range m.tenants[tenant] {
			candidates = append(candidates, r)
		}
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })
	}

	set := interfaces.RecordSet{}
	for _, r := range candidates {
		if !matchFilter(r, req.Where) {
			continue
		}
		set.IDs = append(set.IDs, r.ID)
		if req.Include.Documents {
			set.Documents = append(set.Documents, r.Document)
		}
		if req.Include.Embeddings {
			set.Embeddings = append(set.Embeddings, r.Embedding)
		}
		if req.Include.Metadata {
			set.Metadatas = append(set.Metadatas, r.Metadata)
		}
	}
	return set, nil
}

func (m *memStore) Delete(ctx context.Context, tenant string, ids []string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.tenants[tenant], id)
	}
	return nil
}

func (m *memStore) Query(ctx context.Context, tenant string, req interfaces.QueryRequest) (interfaces.QueryResult, error) {
	if m.queryErr != nil {
		return interfaces.QueryResult{}, m.queryErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	type scored struct {
		id       string
		distance float32
	}
	var ranked []scored
	for _, r := range m.tenants[tenant] {
		if !matchFilter(r, req.Where) || len(r.Embedding) == 0 {
			continue
		}
		ranked = append(ranked, scored{id: r.ID, distance: cosineDistance(req.Vector, r.Embedding)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].distance != ranked[j].distance {
			return ranked[i].distance < ranked[j].distance
		}
		return ranked[i].id < ranked[j].id
	})
	if req.Limit > 0 && len(ranked) > req.Limit {
		ranked = ranked[:req.Limit]
	}

	out := interfaces.QueryResult{}
	for _, s := range ranked {
		out.IDs = append(out.IDs, s.id)
		out.Distances = append(out.Distances, s.distance)
	}
	return out, nil
}

func matchFilter(r interfaces.Record, f *interfaces.Filter) bool {
	if f == nil {
		return true
	}
	switch f.Operator {
	case interfaces.FilterEqual:
		v, _ := r.Metadata[f.Field].(string)
		return v == f.Value
	case interfaces.FilterIn:
		v, _ := r.Metadata[f.Field].(string)
		for _, candidate := range f.Values {
			if v == candidate {
				return true
			}
		}
		return false
	case interfaces.FilterAnd:
		for _, op := range f.Operands {
			if !matchFilter(r, op) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func cosineDistance(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return float32(1 - dot/(math.Sqrt(na)*math.Sqrt(nb)))
}

// fakeEmbedder returns fixed vectors per text.
type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v, ok := f.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no fixture embedding for %q", text)
	}
	return v, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := f.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
