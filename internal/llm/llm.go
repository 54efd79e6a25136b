// Package llm wraps chat-completion providers behind one Generator
// interface and owns the retrieval-augmented prompt template.
//
// Providers return typed errors wrapping ErrGeneration rather than
// smuggling failure text through the answer string; deciding whether a
// generation failure is fatal belongs to the caller.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrGeneration wraps any failure from the underlying completion API.
var ErrGeneration = errors.New("generation failed")

// Message is one turn in a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generator produces text from a chat-completion model.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
	Chat(ctx context.Context, messages []Message, maxTokens int, temperature float64) (string, error)

	// GenerateRAGResponse builds the RAG prompt from query and context and
	// delegates to Generate.
	GenerateRAGResponse(ctx context.Context, query, contextText string, maxTokens int, temperature float64) (string, error)

	// TestConnection sends a minimal canary prompt and reports whether the
	// provider answered sensibly. Used at startup to decide whether
	// generation is enabled for the session.
	TestConnection(ctx context.Context) bool

	ModelInfo() map[string]string
}

// BuildRAGPrompt embeds retrieved context and the user question into the
// generation prompt. The instruction to refuse on insufficient context is
// part of the contract, not decoration: tests probe it with irrelevant
// context.
func BuildRAGPrompt(query, contextText string) string {
	return fmt.Sprintf(`Answer the question using only the information below. If the information is not sufficient, say that you cannot answer from the given context.

Context:
%s

Question: %s

Give an accurate, detailed answer based on the information above:`, contextText, query)
}
