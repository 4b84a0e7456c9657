// File path: internal/embed/openai.go
package embed

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

const defaultEmbedModel = "text-embedding-3-small"

// OpenAIProvider embeds documents through the hosted OpenAI embedding API.
type OpenAIProvider struct {
	embedder embeddings.Embedder
	model    string
}

// NewOpenAIProvider constructs a provider from OPENAI_API_KEY and the
// optional KBCORE_EMBED_MODEL override.
func NewOpenAIProvider() (*OpenAIProvider, error) {
	if strings.TrimSpace(os.Getenv("OPENAI_API_KEY")) == "" {
		return nil, errors.New("OPENAI_API_KEY not set")
	}
	model := strings.TrimSpace(os.Getenv("KBCORE_EMBED_MODEL"))
	if model == "" {
		model = defaultEmbedModel
	}
	llm, err := openai.New(openai.WithEmbeddingModel(model))
	if err != nil {
		return nil, err
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, err
	}
	return &OpenAIProvider{embedder: embedder, model: model}, nil
}

// Name identifies the provider.
func (o *OpenAIProvider) Name() string {
	return "openai"
}

// Embed requests embeddings for every input in one batch.
func (o *OpenAIProvider) Embed(ctx context.Context, input []string) ([][]float32, error) {
	if o == nil || o.embedder == nil {
		return nil, errors.New("openai embedder not initialised")
	}
	if len(input) == 0 {
		return nil, nil
	}
	return o.embedder.EmbedDocuments(ctx, input)
}
