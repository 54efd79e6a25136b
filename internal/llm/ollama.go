package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultOllamaBaseURL is the local Ollama API root.
const DefaultOllamaBaseURL = "http://localhost:11434/api"

// OllamaGenerator runs completions against a local Ollama server.
// Ollama streams responses as one JSON object per line; both endpoints are
// consumed to completion and concatenated.
type OllamaGenerator struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []Message     `json:"messages"`
	Options  ollamaOptions `json:"options,omitempty"`
}

type ollamaGenerateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type ollamaChatChunk struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
}

// NewOllamaGenerator creates a generator for a local model. No API key is
// involved; an empty baseURL falls back to DefaultOllamaBaseURL.
func NewOllamaGenerator(model, baseURL string) *OllamaGenerator {
	if baseURL == "" {
		baseURL = DefaultOllamaBaseURL
	}
	return &OllamaGenerator{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			// Long generations on CPU can take minutes.
			Timeout: 5 * time.Minute,
		},
	}
}

func (g *OllamaGenerator) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	req := ollamaGenerateRequest{
		Model:   g.model,
		Prompt:  prompt,
		Options: ollamaOptions{Temperature: temperature, NumPredict: maxTokens},
	}
	return g.stream(ctx, "/generate", req, func(line []byte) (string, error) {
		var chunk ollamaGenerateChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return "", err
		}
		return chunk.Response, nil
	})
}

func (g *OllamaGenerator) Chat(ctx context.Context, messages []Message, maxTokens int, temperature float64) (string, error) {
	req := ollamaChatRequest{
		Model:    g.model,
		Messages: messages,
		Options:  ollamaOptions{Temperature: temperature, NumPredict: maxTokens},
	}
	return g.stream(ctx, "/chat", req, func(line []byte) (string, error) {
		var chunk ollamaChatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return "", err
		}
		return chunk.Message.Content, nil
	})
}

func (g *OllamaGenerator) GenerateRAGResponse(ctx context.Context, query, contextText string, maxTokens int, temperature float64) (string, error) {
	return g.Generate(ctx, BuildRAGPrompt(query, contextText), maxTokens, temperature)
}

func (g *OllamaGenerator) TestConnection(ctx context.Context) bool {
	resp, err := g.Generate(ctx, "Reply with the single word OK.", 10, 0)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(resp), "ok")
}

func (g *OllamaGenerator) ModelInfo() map[string]string {
	return map[string]string{
		"provider": "ollama",
		"model":    g.model,
		"base_url": g.baseURL,
	}
}

// stream posts the request and concatenates the per-line chunks extracted
// by parse until the stream ends.
func (g *OllamaGenerator) stream(ctx context.Context, endpoint string, req any, parse func([]byte) (string, error)) (string, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: ollama API error (status %d): %s", ErrGeneration, resp.StatusCode, body)
	}

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		text, err := parse(line)
		if err != nil {
			return "", fmt.Errorf("parse response chunk: %w", err)
		}
		full.WriteString(text)
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("%w: read response stream: %v", ErrGeneration, err)
	}
	return full.String(), nil
}
