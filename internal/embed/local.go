// File path: internal/embed/local.go
package embed

import (
	"context"
	"hash/fnv"
	"math"
)

const localDimension = 64

// LocalProvider produces deterministic vectors from token hashes. Useful for
// development and tests; not semantically meaningful.
type LocalProvider struct{}

// NewLocalProvider constructs a LocalProvider.
func NewLocalProvider() *LocalProvider {
	return &LocalProvider{}
}

// Name identifies the provider.
func (l *LocalProvider) Name() string {
	return "local"
}

// Embed folds each input's bytes into a fixed-dimension vector and
// normalises it. Identical input always yields an identical vector.
func (l *LocalProvider) Embed(ctx context.Context, input []string) ([][]float32, error) {
	vectors := make([][]float32, len(input))
	for i, text := range input {
		vec := make([]float32, localDimension)
		hasher := fnv.New32a()
		for j := 0; j < len(text); j++ {
			hasher.Reset()
			hasher.Write([]byte{text[j], byte(j)})
			sum := hasher.Sum32()
			vec[sum%localDimension] += float32(sum%255)/255 - 0.5
		}
		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		if norm > 0 {
			scale := float32(1 / math.Sqrt(norm))
			for j := range vec {
				vec[j] *= scale
			}
		}
		vectors[i] = vec
	}
	return vectors, nil
}
