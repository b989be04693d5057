// Package interfaces defines the narrow contracts between the knowledge-graph
// engine and its external collaborators: the multi-tenant vector store, the
// coordinate persistence layer, and the dimensionality-reduction primitive.
package interfaces

import "context"

// Record is a single document in a tenant's collection. Nodes and edges share
// the same record shape; the Metadata map carries the type tag that tells them
// apart (decoded into a typed form at the engine boundary).
type Record struct {
	ID        string
	Embedding []float32
	Document  string
	Metadata  map[string]interface{}
}

// Include selects which payloads a Get call should return. IDs are always
// returned.
type Include struct {
	Documents  bool
	Embeddings bool
	Metadata   bool
}

// FilterOperator is the predicate kind of a Filter node.
type FilterOperator string

const (
	// FilterEqual matches records whose metadata field equals Value.
	FilterEqual FilterOperator = "equal"

	// FilterIn matches records whose metadata field is one of Values.
	FilterIn FilterOperator = "in"

	// FilterAnd matches records satisfying every operand.
	FilterAnd FilterOperator = "and"
)

// Filter is the restricted predicate language supported by the store contract:
// field equality, set membership, and conjunction. Nothing else is permitted.
type Filter struct {
	Operator FilterOperator
	Field    string
	Value    string
	Values   []string
	Operands []*Filter
}

// FieldEquals builds an equality filter.
func FieldEquals(field, value string) *Filter {
	return &Filter{Operator: FilterEqual, Field: field, Value: value}
}

// FieldIn builds a set-membership filter.
func FieldIn(field string, values ...string) *Filter {
	return &Filter{Operator: FilterIn, Field: field, Values: values}
}

// And builds a conjunction of filters.
func And(operands ...*Filter) *Filter {
	return &Filter{Operator: FilterAnd, Operands: operands}
}

// GetRequest describes a metadata-filtered fetch. When IDs is non-empty the
// fetch is by identity; Where further restricts the result set.
type GetRequest struct {
	IDs     []string
	Where   *Filter
	Include Include
}

// RecordSet is the parallel-array result of a Get call. Documents, Embeddings
// and Metadatas are aligned with IDs and nil when not requested; individual
// entries may be nil/empty when the store has no value for them.
type RecordSet struct {
	IDs        []string
	Documents  []string
	Embeddings [][]float32
	Metadatas  []map[string]interface{}
}

// Len returns the number of records in the set.
func (rs RecordSet) Len() int { return len(rs.IDs) }

// QueryRequest describes a nearest-neighbor search by embedding.
type QueryRequest struct {
	Vector []float32
	Limit  int
	Where  *Filter
}

// QueryResult is a ranked nearest-neighbor result. Distances are aligned with
// IDs and sorted ascending (closest first) by the store's distance metric.
type QueryResult struct {
	IDs       []string
	Distances []float32
}

// VectorStore is the contract the engine holds against the vector store. All
// operations are scoped to an explicit tenant; implementations must never keep
// a mutable "current tenant" shared across calls.
type VectorStore interface {
	// EnsureTenant makes the tenant usable, creating it on first use.
	// It is idempotent and tolerates concurrent creation races.
	EnsureTenant(ctx context.Context, tenant string) error

	// Upsert writes records into the tenant's collection, replacing any
	// existing record with the same ID.
	Upsert(ctx context.Context, tenant string, records []Record) error

	// Get fetches records by ID and/or metadata filter.
	Get(ctx context.Context, tenant string, req GetRequest) (RecordSet, error)

	// Delete removes records by ID. Unknown IDs are ignored.
	Delete(ctx context.Context, tenant string, ids []string) error

	// Query returns the nearest neighbors of the given vector.
	Query(ctx context.Context, tenant string, req QueryRequest) (QueryResult, error)
}

// Coordinate is one node's 2-D layout position.
type Coordinate struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// LayoutRepository persists externally computed 2-D coordinates. A coordinate
// whose node ID matches nothing in the backing document is skipped silently;
// the returned count is the number of documents actually modified.
type LayoutRepository interface {
	SavePositions(ctx context.Context, userID string, coords []Coordinate) (int, error)
}

// Reducer is the nonlinear dimensionality-reduction primitive. It maps each
// input vector to a point with `components` coordinates, preserving input
// order. It is CPU-bound; callers are responsible for keeping it off the
// request-serving path.
type Reducer interface {
	Reduce(ctx context.Context, vectors [][]float32, components int) ([][]float64, error)
}
