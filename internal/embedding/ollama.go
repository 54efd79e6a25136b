package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultOllamaBaseURL is the local Ollama API root.
	DefaultOllamaBaseURL = "http://localhost:11434/api"

	// DefaultOllamaModel is a small local embedding model.
	DefaultOllamaModel = "nomic-embed-text"
)

// OllamaProvider generates embeddings with a locally running Ollama server.
// No API key is required; the model is pulled and cached by Ollama itself.
type OllamaProvider struct {
	baseURL    string
	model      string
	httpClient *http.Client
	dim        int
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// NewOllamaProvider creates a provider backed by an Ollama server.
// An empty baseURL falls back to DefaultOllamaBaseURL. A canary embed
// verifies the model is loadable; failure returns ErrModelUnavailable
// (first use of a model triggers a download inside Ollama, which is the
// slow, one-time initialization step).
func NewOllamaProvider(ctx context.Context, model, baseURL string) (*OllamaProvider, error) {
	if baseURL == "" {
		baseURL = DefaultOllamaBaseURL
	}
	if model == "" {
		model = DefaultOllamaModel
	}

	p := &OllamaProvider{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			// Model load on first request can take a while.
			Timeout: 5 * time.Minute,
		},
	}

	if _, err := p.EmbedQuery(ctx, "ping"); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrModelUnavailable, model, err)
	}
	return p, nil
}

// EmbedQuery embeds a single text via the /embeddings endpoint.
func (p *OllamaProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	reqBody, err := json.Marshal(ollamaEmbedRequest{Model: p.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embeddings", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, body)
	}

	var embedResp ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("parse embeddings response: %w", err)
	}

	vec := toFloat32(embedResp.Embedding)
	if err := p.pinDimension(len(vec)); err != nil {
		return nil, err
	}
	return vec, nil
}

// EmbedDocuments embeds each text with one API call per element, preserving
// input order. Ollama's embeddings endpoint takes a single prompt, so there
// is no server-side batching to exploit.
func (p *OllamaProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrInvalidInput
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := p.EmbedQuery(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (p *OllamaProvider) Dimension() int    { return p.dim }
func (p *OllamaProvider) ModelName() string { return p.model }

func (p *OllamaProvider) pinDimension(n int) error {
	if p.dim == 0 {
		p.dim = n
		return nil
	}
	if n != p.dim {
		return fmt.Errorf("%w: got %d, pinned %d", ErrDimensionMismatch, n, p.dim)
	}
	return nil
}
