// File path: internal/embed/provider.go

// Package embed supplies the embedding vectors used by the bundled dev
// worker. The real production pipeline computes embeddings externally; these
// providers exist so a local build can exercise the whole flow.
package embed

import (
	"context"
	"os"
	"strings"

	"github.com/chatforge/kbcore/internal/common"
)

// Provider converts text into embedding vectors.
type Provider interface {
	Name() string
	Embed(ctx context.Context, input []string) ([][]float32, error)
}

// NewProvider selects a provider from the environment. KBCORE_EMBED_PROVIDER
// set to "openai" (with an OPENAI_API_KEY) picks the hosted embedder;
// everything else falls back to the deterministic local provider.
func NewProvider() Provider {
	logger := common.Logger()
	choice := strings.ToLower(strings.TrimSpace(os.Getenv("KBCORE_EMBED_PROVIDER")))
	if choice == "openai" {
		provider, err := NewOpenAIProvider()
		if err != nil {
			logger.Warn("embed: openai provider unavailable, using local", "error", err)
			return NewLocalProvider()
		}
		logger.Info("embed: provider ready", "provider", provider.Name())
		return provider
	}
	logger.Info("embed: provider ready", "provider", "local")
	return NewLocalProvider()
}
