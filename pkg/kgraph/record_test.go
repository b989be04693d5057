package kgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEdgeEmbedding(t *testing.T) {
	t.Run("points from source toward target", func(t *testing.T) {
		vector, err := EdgeEmbedding([]float32{1, 0, 2}, []float32{0, 1, 2})
		require.NoError(t, err)
		assert.Equal(t, []float32{-1, 1, 0}, vector)
	})

	t.Run("rejects mismatched dimensions", func(t *testing.T) {
		_, err := EdgeEmbedding([]float32{1, 0}, []float32{1, 0, 0})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("identical endpoints give the zero vector", func(t *testing.T) {
		vector, err := EdgeEmbedding([]float32{0.5, 0.5}, []float32{0.5, 0.5})
		require.NoError(t, err)
		assert.Equal(t, []float32{0, 0}, vector)
	})
}

func TestDecodeMetadata(t *testing.T) {
	t.Run("node", func(t *testing.T) {
		meta, err := DecodeMetadata(map[string]interface{}{"recordType": "node"})
		require.NoError(t, err)
		require.NotNil(t, meta.Node)
		assert.Nil(t, meta.Edge)
	})

	t.Run("edge", func(t *testing.T) {
		meta, err := DecodeMetadata(map[string]interface{}{
			"recordType": "edge",
			"sourceId":   "a",
			"targetId":   "b",
			"label":      "knows",
		})
		require.NoError(t, err)
		require.NotNil(t, meta.Edge)
		assert.Equal(t, "a", meta.Edge.SourceID)
		assert.Equal(t, "b", meta.Edge.TargetID)
		assert.Equal(t, "knows", meta.Edge.Label)
	})

	t.Run("edge without endpoints is malformed", func(t *testing.T) {
		_, err := DecodeMetadata(map[string]interface{}{
			"recordType": "edge",
			"label":      "knows",
		})
		assert.ErrorIs(t, err, ErrMalformedMetadata)
	})

	t.Run("unknown type is malformed", func(t *testing.T) {
		_, err := DecodeMetadata(map[string]interface{}{"recordType": "graph"})
		assert.ErrorIs(t, err, ErrMalformedMetadata)
	})

	t.Run("missing type is malformed", func(t *testing.T) {
		_, err := DecodeMetadata(map[string]interface{}{})
		assert.ErrorIs(t, err, ErrMalformedMetadata)
	})
}

func TestRecordConversion(t *testing.T) {
	t.Run("node content doubles as document", func(t *testing.T) {
		record := nodeRecord(Node{ID: "n1", Content: "coffee", Embedding: []float32{1, 2}})
		assert.Equal(t, "n1", record.ID)
		assert.Equal(t, "coffee", record.Document)
		assert.Equal(t, TypeNode, record.Metadata["recordType"])
	})

	t.Run("edge label doubles as document", func(t *testing.T) {
		record := edgeRecord(Edge{ID: "e1", SourceID: "a", TargetID: "b", Label: "likes", Embedding: []float32{1}})
		assert.Equal(t, "likes", record.Document)
		assert.Equal(t, TypeEdge, record.Metadata["recordType"])
		assert.Equal(t, "a", record.Metadata["sourceId"])
		assert.Equal(t, "b", record.Metadata["targetId"])
		assert.Equal(t, "likes", record.Metadata["label"])
	})
}
