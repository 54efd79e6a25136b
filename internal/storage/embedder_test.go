package storage

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/ademar/ragcore/internal/embedding"
)

const hashDim = 32

// hashEmbedder is a deterministic offline embedding.Provider for tests.
// Each lowercase token is hashed into one of hashDim buckets and the count
// vector is L2-normalized, so identical texts embed identically and texts
// sharing tokens score higher than unrelated ones.
type hashEmbedder struct{}

func (hashEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, hashDim)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(strings.Trim(token, ".,!?:;\"'()")))
		vec[h.Sum32()%hashDim]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

func (e hashEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, embedding.ErrInvalidInput
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.EmbedQuery(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (hashEmbedder) Dimension() int    { return hashDim }
func (hashEmbedder) ModelName() string { return "hash-test-embedder" }
