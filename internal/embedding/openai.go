package embedding

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	// DefaultOpenAIModel is used when the config names no embedding model.
	DefaultOpenAIModel = "text-embedding-3-small"

	// DefaultBatchSize balances requests-per-minute vs tokens-per-minute
	// rate limits. OpenAI accepts up to 2048 texts per request, but smaller
	// batches reduce TPM pressure.
	DefaultBatchSize = 500
)

// OpenAIProvider generates embeddings through any OpenAI-compatible API.
// It batches requests and retries with exponential backoff on rate limits.
type OpenAIProvider struct {
	client    openai.Client
	model     string
	batchSize int
	dim       int
}

// NewOpenAIProvider creates a provider for the given model.
//
// The API key is read from OPENAI_API_KEY. EMBEDDING_BASE_URL, when set,
// redirects requests to a mirror or self-hosted compatible endpoint.
// A one-shot canary embed verifies the model is reachable; failure returns
// ErrModelUnavailable.
func NewOpenAIProvider(ctx context.Context, model string, batchSize int) (*OpenAIProvider, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if base := os.Getenv("EMBEDDING_BASE_URL"); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}

	p := &OpenAIProvider{
		client:    openai.NewClient(opts...),
		model:     model,
		batchSize: batchSize,
	}

	if _, err := p.EmbedQuery(ctx, "ping"); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrModelUnavailable, model, err)
	}
	return p, nil
}

// EmbedQuery embeds a single text. Delegates to EmbedDocuments so single
// and batch embedding share one code path and cannot diverge.
func (p *OpenAIProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedDocuments embeds texts in batches, preserving input order.
func (p *OpenAIProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrInvalidInput
	}

	var all [][]float32
	for i := 0; i < len(texts); i += p.batchSize {
		end := min(i+p.batchSize, len(texts))
		vectors, err := p.embedBatchWithRetry(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", i, end, err)
		}
		all = append(all, vectors...)
	}

	for _, v := range all {
		if err := p.pinDimension(len(v)); err != nil {
			return nil, err
		}
	}
	return all, nil
}

// embedBatchWithRetry embeds a single batch, retrying with exponential
// backoff on rate limit errors (HTTP 429). Other errors fail immediately.
func (p *OpenAIProvider) embedBatchWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32

	operation := func() error {
		resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: texts,
			},
			Model: openai.EmbeddingModel(p.model),
		})
		if err != nil {
			if isRateLimitError(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if len(resp.Data) != len(texts) {
			return backoff.Permanent(fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data)))
		}
		vectors = make([][]float32, len(resp.Data))
		for i, data := range resp.Data {
			vectors[i] = toFloat32(data.Embedding)
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	err := backoff.Retry(operation, backoff.WithContext(b, ctx))
	return vectors, err
}

func (p *OpenAIProvider) Dimension() int    { return p.dim }
func (p *OpenAIProvider) ModelName() string { return p.model }

func (p *OpenAIProvider) pinDimension(n int) error {
	if p.dim == 0 {
		p.dim = n
		return nil
	}
	if n != p.dim {
		return fmt.Errorf("%w: got %d, pinned %d", ErrDimensionMismatch, n, p.dim)
	}
	return nil
}

// isRateLimitError checks for HTTP 429 from the API.
func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// toFloat32 narrows API float64 vectors to the float32 storage type.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
