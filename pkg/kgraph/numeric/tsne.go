package numeric

import (
	"context"
	"fmt"

	"github.com/danaugrs/go-tsne/tsne"
	"gonum.org/v1/gonum/mat"
)

// TSNEReducer implements the dimensionality-reduction contract with t-SNE.
// Input rows are unit-normalized first so that Euclidean neighborhoods in the
// fit match cosine neighborhoods in the original space.
type TSNEReducer struct {
	perplexity   float64
	learningRate float64
	maxIter      int
}

// TSNEOption represents an option for configuring the reducer.
type TSNEOption func(*TSNEReducer)

// WithPerplexity sets the t-SNE perplexity.
func WithPerplexity(p float64) TSNEOption {
	return func(r *TSNEReducer) {
		r.perplexity = p
	}
}

// WithMaxIter sets the number of gradient-descent iterations.
func WithMaxIter(n int) TSNEOption {
	return func(r *TSNEReducer) {
		r.maxIter = n
	}
}

// NewTSNEReducer creates a reducer with sensible defaults for layout-sized
// inputs.
func NewTSNEReducer(options ...TSNEOption) *TSNEReducer {
	r := &TSNEReducer{
		perplexity:   30,
		learningRate: 200,
		maxIter:      300,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Reduce maps each input vector to `components` coordinates, preserving input
// order. A panic inside the fit is converted into an error so a degenerate
// input cannot take down the caller.
func (r *TSNEReducer) Reduce(ctx context.Context, vectors [][]float32, components int) (coords [][]float64, err error) {
	n := len(vectors)
	if n == 0 {
		return nil, nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			coords = nil
			err = fmt.Errorf("t-SNE fit failed: %v", rec)
		}
	}()

	dims := len(vectors[0])
	data := mat.NewDense(n, dims, nil)
	for i, v := range vectors {
		data.SetRow(i, UnitNorm(ToFloat64(v)))
	}

	// Perplexity must stay below the sample count.
	perplexity := r.perplexity
	if limit := float64(n-1) / 3; perplexity > limit {
		perplexity = limit
	}
	if perplexity < 1 {
		perplexity = 1
	}

	t := tsne.NewTSNE(components, perplexity, r.learningRate, r.maxIter, false)
	embedded := t.EmbedData(data, nil)

	coords = make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, components)
		for j := 0; j < components; j++ {
			row[j] = embedded.At(i, j)
		}
		coords[i] = row
	}
	return coords, nil
}
