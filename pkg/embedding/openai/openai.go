// Package openai provides an OpenAI-backed implementation of the embedding
// client contract.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// DefaultModel is the embedding model used when none is configured.
const DefaultModel = "text-embedding-3-small"

// Client generates embeddings through the OpenAI embeddings API.
type Client struct {
	client openai.Client
	model  openai.EmbeddingModel
}

// Option represents an option for configuring the client.
type Option func(*Client)

// WithModel overrides the embedding model.
func WithModel(model string) Option {
	return func(c *Client) {
		c.model = openai.EmbeddingModel(model)
	}
}

// New creates a new OpenAI embedding client.
func New(apiKey string, options ...Option) *Client {
	c := &Client{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  DefaultModel,
	}

	for _, opt := range options {
		opt(c)
	}

	return c
}

// Embed generates an embedding for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one API call,
// preserving input order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: c.model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: requested %d, got %d", len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, item := range resp.Data {
		vector := make([]float32, len(item.Embedding))
		for j, v := range item.Embedding {
			vector[j] = float32(v)
		}
		vectors[i] = vector
	}

	return vectors, nil
}
