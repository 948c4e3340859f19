package llm

import (
	"context"
)

// LLMClient is the minimal text-generation surface the extraction and
// inference collaborators need. Implementations wrap one provider SDK.
type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// EmbedderClient produces a vector for a short text. Used by the entity
// linker for similarity matching. Providers without an embedding API
// return a nil EmbedderClient from the factory.
type EmbedderClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
