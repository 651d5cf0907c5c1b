package embedding

import "context"

// Provider defines the interface for generating text embeddings.
// Implementations must return unit-length vectors so cosine similarity can be
// computed directly by the index backends.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
