package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fakeOllamaServer streams line-delimited JSON chunks the way Ollama does.
func fakeOllamaServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/generate":
			var req ollamaGenerateRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			for _, chunk := range []ollamaGenerateChunk{
				{Response: "Hello"},
				{Response: ", "},
				{Response: "world", Done: true},
			} {
				json.NewEncoder(w).Encode(chunk)
			}
		case "/chat":
			for _, chunk := range []ollamaChatChunk{
				{Message: Message{Role: "assistant", Content: "chat "}},
				{Message: Message{Role: "assistant", Content: "reply"}, Done: true},
			} {
				json.NewEncoder(w).Encode(chunk)
			}
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestOllamaGenerator_Generate(t *testing.T) {
	srv := fakeOllamaServer(t)
	defer srv.Close()

	g := NewOllamaGenerator("test-model", srv.URL)
	resp, err := g.Generate(context.Background(), "say hello", 100, 0.5)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if resp != "Hello, world" {
		t.Errorf("Expected concatenated stream 'Hello, world', got %q", resp)
	}
}

func TestOllamaGenerator_Chat(t *testing.T) {
	srv := fakeOllamaServer(t)
	defer srv.Close()

	g := NewOllamaGenerator("test-model", srv.URL)
	resp, err := g.Chat(context.Background(), []Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hi"},
	}, 100, 0)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp != "chat reply" {
		t.Errorf("Expected 'chat reply', got %q", resp)
	}
}

// TestOllamaGenerator_GenerateRAGResponse verifies the request carries the
// full RAG prompt, not the bare question.
func TestOllamaGenerator_GenerateRAGResponse(t *testing.T) {
	var gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaGenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotPrompt = req.Prompt
		json.NewEncoder(w).Encode(ollamaGenerateChunk{Response: "answer", Done: true})
	}))
	defer srv.Close()

	g := NewOllamaGenerator("test-model", srv.URL)
	resp, err := g.GenerateRAGResponse(context.Background(), "what is RAG?", "some context", 100, 0)
	if err != nil {
		t.Fatalf("GenerateRAGResponse failed: %v", err)
	}
	if resp != "answer" {
		t.Errorf("Expected 'answer', got %q", resp)
	}
	if gotPrompt != BuildRAGPrompt("what is RAG?", "some context") {
		t.Errorf("Request prompt is not the RAG prompt: %q", gotPrompt)
	}
}

// TestOllamaGenerator_APIError verifies non-200 responses wrap ErrGeneration.
func TestOllamaGenerator_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not loaded"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewOllamaGenerator("test-model", srv.URL)
	_, err := g.Generate(context.Background(), "hello", 100, 0)
	if !errors.Is(err, ErrGeneration) {
		t.Errorf("Expected ErrGeneration, got %v", err)
	}
}

// TestOllamaGenerator_TransportError verifies an unreachable server wraps
// ErrGeneration.
func TestOllamaGenerator_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // immediately unreachable

	g := NewOllamaGenerator("test-model", srv.URL)
	_, err := g.Generate(context.Background(), "hello", 100, 0)
	if !errors.Is(err, ErrGeneration) {
		t.Errorf("Expected ErrGeneration, got %v", err)
	}
}

func TestOllamaGenerator_TestConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaGenerateChunk{Response: "OK", Done: true})
	}))
	defer srv.Close()

	g := NewOllamaGenerator("test-model", srv.URL)
	if !g.TestConnection(context.Background()) {
		t.Error("Expected TestConnection to pass against an OK-answering server")
	}

	srv.Close()
	if g.TestConnection(context.Background()) {
		t.Error("Expected TestConnection to fail against a closed server")
	}
}

// TestOllamaGenerator_MalformedChunk verifies a broken stream line is an
// error, not silently dropped output.
func TestOllamaGenerator_MalformedChunk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"response": "partial"}`)
		fmt.Fprintln(w, `not json at all`)
	}))
	defer srv.Close()

	g := NewOllamaGenerator("test-model", srv.URL)
	if _, err := g.Generate(context.Background(), "hello", 100, 0); err == nil {
		t.Error("Expected error for malformed stream chunk")
	}
}
