// Package kgraph implements the knowledge-graph embedding engine: the record
// model shared with the vector store, the consistency cascade that keeps edge
// embeddings derived from their endpoint nodes, the recommendation strategies,
// and the 2-D layout projector.
package kgraph

import (
	"fmt"

	"github.com/graphmind/kgraph/pkg/interfaces"
)

// Record types stored in the recordType metadata field.
const (
	TypeNode = "node"
	TypeEdge = "edge"
)

// Metadata property names shared with the vector store.
const (
	fieldType     = "recordType"
	fieldLabel    = "label"
	fieldSourceID = "sourceId"
	fieldTargetID = "targetId"
)

// Node is a graph node: caller-assigned ID, the text its embedding is derived
// from, and the embedding itself.
type Node struct {
	ID        string
	Content   string
	Embedding []float32
}

// Edge is a directed, labeled relation between two nodes. Its embedding is
// always derived as target − source from the endpoints' node embeddings.
type Edge struct {
	ID        string
	SourceID  string
	TargetID  string
	Label     string
	Embedding []float32
}

// EdgeEmbedding computes the relation displacement target − source,
// element-wise. The result points from source toward target.
func EdgeEmbedding(source, target []float32) ([]float32, error) {
	if len(source) != len(target) {
		return nil, fmt.Errorf("%w: source %d, target %d", ErrDimensionMismatch, len(source), len(target))
	}
	out := make([]float32, len(source))
	for i := range source {
		out[i] = target[i] - source[i]
	}
	return out, nil
}

// NodeMeta is the typed metadata of a node record.
type NodeMeta struct{}

// EdgeMeta is the typed metadata of an edge record.
type EdgeMeta struct {
	SourceID string
	TargetID string
	Label    string
}

// Metadata is the tagged union of record metadata shapes: exactly one of Node
// and Edge is non-nil.
type Metadata struct {
	Node *NodeMeta
	Edge *EdgeMeta
}

// DecodeMetadata converts the untyped metadata map returned by the store into
// its typed form, rejecting unknown or malformed shapes.
func DecodeMetadata(raw map[string]interface{}) (Metadata, error) {
	recordType, _ := raw[fieldType].(string)
	switch recordType {
	case TypeNode:
		return Metadata{Node: &NodeMeta{}}, nil
	case TypeEdge:
		sourceID, _ := raw[fieldSourceID].(string)
		targetID, _ := raw[fieldTargetID].(string)
		label, _ := raw[fieldLabel].(string)
		if sourceID == "" || targetID == "" {
			return Metadata{}, fmt.Errorf("%w: edge record missing endpoint IDs", ErrMalformedMetadata)
		}
		return Metadata{Edge: &EdgeMeta{SourceID: sourceID, TargetID: targetID, Label: label}}, nil
	default:
		return Metadata{}, fmt.Errorf("%w: unknown record type %q", ErrMalformedMetadata, recordType)
	}
}

// nodeRecord converts a Node into its store representation. The node's content
// doubles as the record document.
func nodeRecord(n Node) interfaces.Record {
	return interfaces.Record{
		ID:        n.ID,
		Embedding: n.Embedding,
		Document:  n.Content,
		Metadata: map[string]interface{}{
			fieldType: TypeNode,
		},
	}
}

// edgeRecord converts an Edge into its store representation. The label doubles
// as the record document, matching how edges read back in search results.
func edgeRecord(e Edge) interfaces.Record {
	return interfaces.Record{
		ID:        e.ID,
		Embedding: e.Embedding,
		Document:  e.Label,
		Metadata: map[string]interface{}{
			fieldType:     TypeEdge,
			fieldLabel:    e.Label,
			fieldSourceID: e.SourceID,
			fieldTargetID: e.TargetID,
		},
	}
}

// nodeTypeFilter matches node records only.
func nodeTypeFilter() *interfaces.Filter {
	return interfaces.FieldEquals(fieldType, TypeNode)
}

// edgeLabelFilter matches edge records carrying the given relation label.
func edgeLabelFilter(label string) *interfaces.Filter {
	return interfaces.And(
		interfaces.FieldEquals(fieldType, TypeEdge),
		interfaces.FieldEquals(fieldLabel, label),
	)
}
