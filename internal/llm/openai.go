package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DeepSeekBaseURL is the default OpenAI-compatible endpoint.
const DeepSeekBaseURL = "https://api.deepseek.com"

// OpenAIGenerator talks to any OpenAI-compatible chat completion API
// (DeepSeek, OpenAI, or a self-hosted gateway).
type OpenAIGenerator struct {
	client   openai.Client
	provider string
	model    string
	baseURL  string
}

// NewOpenAIGenerator creates a generator for the given provider and model.
// The API key is read from keyEnv (e.g. DEEPSEEK_API_KEY); a missing key is
// a construction error, never silently defaulted.
func NewOpenAIGenerator(provider, model, baseURL, keyEnv string) (*OpenAIGenerator, error) {
	apiKey := os.Getenv(keyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("%s environment variable not set", keyEnv)
	}
	// Only DeepSeek needs a base URL override; the client's default already
	// points at OpenAI.
	if baseURL == "" && provider == "deepseek" {
		baseURL = DeepSeekBaseURL
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAIGenerator{
		client:   openai.NewClient(opts...),
		provider: provider,
		model:    model,
		baseURL:  baseURL,
	}, nil
}

// Generate produces a completion for a single user prompt.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	return g.Chat(ctx, []Message{{Role: "user", Content: prompt}}, maxTokens, temperature)
}

// Chat produces a completion for a full conversation.
func (g *OpenAIGenerator) Chat(ctx context.Context, messages []Message, maxTokens int, temperature float64) (string, error) {
	params := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			params = append(params, openai.SystemMessage(msg.Content))
		case "assistant":
			params = append(params, openai.AssistantMessage(msg.Content))
		default:
			params = append(params, openai.UserMessage(msg.Content))
		}
	}

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:    params,
		Model:       openai.ChatModel(g.model),
		MaxTokens:   openai.Int(int64(maxTokens)),
		Temperature: openai.Float(temperature),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrGeneration, g.provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: %s returned no choices", ErrGeneration, g.provider)
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateRAGResponse answers query grounded in the retrieved context.
func (g *OpenAIGenerator) GenerateRAGResponse(ctx context.Context, query, contextText string, maxTokens int, temperature float64) (string, error) {
	return g.Generate(ctx, BuildRAGPrompt(query, contextText), maxTokens, temperature)
}

// TestConnection sends a canary prompt and checks for a plausible reply.
// Best-effort: generation is non-deterministic, so any non-empty answer
// containing "ok" passes.
func (g *OpenAIGenerator) TestConnection(ctx context.Context) bool {
	resp, err := g.Generate(ctx, "Reply with the single word OK.", 10, 0)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(resp), "ok")
}

func (g *OpenAIGenerator) ModelInfo() map[string]string {
	return map[string]string{
		"provider": g.provider,
		"model":    g.model,
		"base_url": g.baseURL,
	}
}
