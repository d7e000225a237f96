package interfaces

import "context"

// EmbeddingClient maps text to fixed-dimension vectors. One backend per
// provider configuration; the dimension is stable for the lifetime of a
// session so vectors inserted into its index stay comparable.
type EmbeddingClient interface {
	// EmbedBatch generates embeddings for document chunks. Implementations
	// batch requests where the backend supports it.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a search query. Backends that
	// distinguish retrieval-document from retrieval-query task types apply
	// the query variant here.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}
