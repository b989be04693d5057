// Package embedding defines the contract for the external text-embedding
// provider. Node embeddings are always produced from node content by a
// provider implementation; the engine itself never computes raw embeddings.
package embedding

import "context"

// Client generates vector embeddings from text.
type Client interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, preserving order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
