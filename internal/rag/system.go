// Package rag wires the embedding provider, document loader, vector store
// and generation provider into one retrieve-then-generate pipeline.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ademar/ragcore/internal/config"
	"github.com/ademar/ragcore/internal/document"
	"github.com/ademar/ragcore/internal/embedding"
	"github.com/ademar/ragcore/internal/llm"
	"github.com/ademar/ragcore/internal/storage"
)

// Answer sentinels for queries where generation did not run.
const (
	AnswerNoGenerator = "generation not configured"
	AnswerNoDocuments = "no relevant documents found"
)

// System is the RAG orchestrator. Construction walks
// embedding → loader → store → llm-check; an embedding or store failure is
// fatal, a generation failure only degrades the session to retrieval-only.
type System struct {
	cfg       *config.Config
	provider  embedding.Provider
	loader    *document.Loader
	manager   *storage.Manager
	generator llm.Generator
	sessions  SessionStore
	logger    *slog.Logger

	opener            storage.Opener
	generatorInjected bool
}

// Option customizes system construction, mainly for injecting fakes in
// tests and for CLI modes that disable generation.
type Option func(*System)

func WithLogger(logger *slog.Logger) Option {
	return func(s *System) { s.logger = logger }
}

// WithProvider injects a pre-built embedding provider, skipping the
// config-driven construction.
func WithProvider(p embedding.Provider) Option {
	return func(s *System) { s.provider = p }
}

// WithGenerator injects a pre-built generation provider.
func WithGenerator(g llm.Generator) Option {
	return func(s *System) { s.generator = g; s.generatorInjected = true }
}

// WithoutGeneration forces retrieval-only mode regardless of config.
func WithoutGeneration() Option {
	return func(s *System) { s.generator = nil; s.generatorInjected = true }
}

// WithOpener injects the store opener, overriding the config backend.
func WithOpener(o storage.Opener) Option {
	return func(s *System) { s.opener = o }
}

// WithSessions attaches a caller-owned session store used by QuerySession.
func WithSessions(store SessionStore) Option {
	return func(s *System) { s.sessions = store }
}

// New builds a ready System. The vector store is loaded if it already
// exists; otherwise documents are loaded from the configured directory and
// ingested, falling back to the synthetic corpus when the directory is
// empty so the pipeline never starts on an empty store.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s := &System{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	// 1. Embedding provider. Fatal: nothing works without vectors.
	if s.provider == nil {
		provider, err := buildProvider(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("embedding provider: %w", err)
		}
		s.provider = provider
	}

	// 2. Document loader.
	s.loader = document.NewLoader(cfg.DocumentsDir, s.logger)

	// 3. Vector store: load, or create from documents.
	if s.opener == nil {
		s.opener = buildOpener(cfg)
	}
	s.manager = storage.NewManager(s.opener, s.provider, s.logger)
	if err := s.initStore(ctx); err != nil {
		return nil, fmt.Errorf("vector store: %w", err)
	}

	// 4. Generation provider. Non-fatal: a failed check degrades the
	// session to retrieval-only.
	if !s.generatorInjected {
		s.generator = buildGenerator(ctx, cfg, s.logger)
	} else if s.generator != nil && !s.generator.TestConnection(ctx) {
		s.logger.Warn("llm connection test failed, retrieval-only mode")
		s.generator = nil
	}

	s.logger.Info("rag system ready",
		"embedding_model", s.provider.ModelName(),
		"store", cfg.Store.Backend,
		"generation", s.generator != nil,
	)
	return s, nil
}

func (s *System) initStore(ctx context.Context) error {
	err := s.manager.Load(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	docs, err := s.loader.LoadAll()
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		s.logger.Info("no documents found, using synthetic corpus")
		docs = document.SyntheticDocuments()
	}
	return s.manager.Create(ctx, docs)
}

func buildProvider(ctx context.Context, cfg *config.Config) (embedding.Provider, error) {
	switch cfg.Embedding.Provider {
	case "openai":
		return embedding.NewOpenAIProvider(ctx, cfg.Embedding.Model, cfg.Embedding.BatchSize)
	default:
		return embedding.NewOllamaProvider(ctx, cfg.Embedding.Model, cfg.Embedding.BaseURL)
	}
}

func buildOpener(cfg *config.Config) storage.Opener {
	if cfg.Store.Backend == "qdrant" {
		return storage.QdrantOpener{
			Host:       cfg.Store.Qdrant.Host,
			Port:       cfg.Store.Qdrant.Port,
			Collection: cfg.Store.Qdrant.Collection,
		}
	}
	return storage.LocalOpener{Dir: cfg.Store.Path}
}

// buildGenerator constructs the configured generator and verifies it with
// a canary call. Any failure returns nil, which means retrieval-only.
func buildGenerator(ctx context.Context, cfg *config.Config, logger *slog.Logger) llm.Generator {
	if cfg.LLM.Provider == "" {
		return nil
	}

	var gen llm.Generator
	switch cfg.LLM.Provider {
	case "ollama":
		gen = llm.NewOllamaGenerator(cfg.LLM.Model, cfg.LLM.BaseURL)
	default:
		g, err := llm.NewOpenAIGenerator(cfg.LLM.Provider, cfg.LLM.Model, cfg.LLM.BaseURL, cfg.LLM.APIKeyEnv)
		if err != nil {
			logger.Warn("llm unavailable, retrieval-only mode", "error", err)
			return nil
		}
		gen = g
	}

	if !gen.TestConnection(ctx) {
		logger.Warn("llm connection test failed, retrieval-only mode", "provider", cfg.LLM.Provider)
		return nil
	}
	return gen
}

// Query retrieves the top-k documents for question and, when generation is
// enabled and retrieval found anything, answers grounded in them. k <= 0
// uses the configured retrieval k. Retrieval results survive generation
// failures.
func (s *System) Query(ctx context.Context, question string, k int) (*Result, error) {
	if k <= 0 {
		k = s.cfg.Retrieval.K
	}
	start := time.Now()

	retrievalStart := time.Now()
	scored, err := s.manager.SearchWithScores(ctx, question, k)
	if err != nil {
		return nil, fmt.Errorf("retrieval: %w", err)
	}
	retrievalTime := time.Since(retrievalStart)
	s.logger.Debug("retrieved documents", "query", question, "count", len(scored), "duration", retrievalTime)

	result := &Result{
		Query:         question,
		Sources:       make([]Source, len(scored)),
		RetrievalTime: retrievalTime,
	}
	for i, item := range scored {
		result.Sources[i] = Source{
			Content:    item.Item.Content,
			Similarity: item.Score,
			Metadata:   item.Item.Metadata,
		}
	}

	switch {
	case s.generator == nil:
		result.Answer = AnswerNoGenerator
	case len(scored) == 0:
		result.Answer = AnswerNoDocuments
	default:
		generationStart := time.Now()
		answer, err := s.generator.GenerateRAGResponse(ctx, question,
			buildContext(result.Sources), s.cfg.LLM.MaxTokens, s.cfg.LLM.Temperature)
		result.GenerationTime = time.Since(generationStart)
		if err != nil {
			// Fail-soft: keep retrieval output, flag the failure.
			s.logger.Warn("generation failed", "query", question, "error", err)
			result.Answer = fmt.Sprintf("generation unavailable: %v", err)
		} else {
			result.Answer = answer
			result.UsedContext = true
		}
	}

	result.TotalTime = time.Since(start)
	return result, nil
}

// buildContext concatenates source contents in ranked order, each labeled
// with its fragment number.
func buildContext(sources []Source) string {
	parts := make([]string, len(sources))
	for i, src := range sources {
		parts[i] = fmt.Sprintf("fragment %d:\n%s", i+1, src.Content)
	}
	return strings.Join(parts, "\n\n")
}

// BatchQuery runs one Query per question, sequentially and in input order.
// Each question is fully resolved before the next begins.
func (s *System) BatchQuery(ctx context.Context, questions []string) ([]*Result, error) {
	results := make([]*Result, 0, len(questions))
	for i, question := range questions {
		result, err := s.Query(ctx, question, 0)
		if err != nil {
			return results, fmt.Errorf("question %d: %w", i, err)
		}
		results = append(results, result)
	}
	return results, nil
}

// QuerySession runs Query and records the result under sessionID when a
// session store is attached.
func (s *System) QuerySession(ctx context.Context, sessionID, question string, k int) (*Result, error) {
	result, err := s.Query(ctx, question, k)
	if err != nil {
		return nil, err
	}
	if s.sessions != nil {
		s.sessions.Append(sessionID, result)
	}
	return result, nil
}

// Stats summarizes the active configuration.
func (s *System) Stats() map[string]string {
	stats := map[string]string{
		"embedding_model":   s.provider.ModelName(),
		"vector_store_type": s.cfg.Store.Backend,
		"llm_provider":      "not configured",
		"llm_model":         "not configured",
		"retrieval_k":       strconv.Itoa(s.cfg.Retrieval.K),
	}
	if s.generator != nil {
		info := s.generator.ModelInfo()
		stats["llm_provider"] = info["provider"]
		stats["llm_model"] = info["model"]
	}
	return stats
}

// Store exposes the vector store manager for maintenance commands.
func (s *System) Store() *storage.Manager { return s.manager }

// Close releases the store backend connection.
func (s *System) Close() error { return s.manager.Close() }
