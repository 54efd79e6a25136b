package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ademar/ragcore/internal/document"
	"github.com/ademar/ragcore/internal/embedding"
)

// Manager binds a vector store backend to the embedding provider that must
// be used for both ingestion and querying. Mixing providers between create
// and query time would silently corrupt rankings, so the pairing is fixed
// at construction.
type Manager struct {
	opener   Opener
	provider embedding.Provider
	logger   *slog.Logger
	backend  Backend
}

// NewManager creates an uninitialized manager. Call Create or Load before
// any search.
func NewManager(opener Opener, provider embedding.Provider, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{opener: opener, provider: provider, logger: logger}
}

// Create embeds the documents in one batch call and persists the resulting
// (content, vector, metadata) triples, replacing any existing collection.
func (m *Manager) Create(ctx context.Context, docs []document.Document) error {
	if len(docs) == 0 {
		return fmt.Errorf("no documents to ingest")
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}

	start := time.Now()
	vectors, err := m.provider.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}
	m.logger.Info("embedded documents",
		"count", len(docs),
		"dimension", len(vectors[0]),
		"duration", time.Since(start).Round(time.Millisecond),
	)

	backend, err := m.opener.Create(ctx, len(vectors[0]))
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}

	items := make([]Item, len(docs))
	for i, doc := range docs {
		items[i] = Item{
			ID:       uuid.New().String(),
			Content:  doc.Content,
			Metadata: doc.Metadata,
			Vector:   vectors[i],
		}
	}
	if err := backend.Upsert(ctx, items); err != nil {
		backend.Close()
		return fmt.Errorf("store documents: %w", err)
	}

	m.backend = backend
	return nil
}

// Load opens an existing collection. Returns ErrNotFound when nothing has
// been persisted at the configured location.
func (m *Manager) Load(ctx context.Context) error {
	backend, err := m.opener.Open(ctx)
	if err != nil {
		return err
	}
	m.backend = backend
	return nil
}

// Search embeds the query and returns the top-k documents, best first.
func (m *Manager) Search(ctx context.Context, query string, k int) ([]document.Document, error) {
	scored, err := m.SearchWithScores(ctx, query, k)
	if err != nil {
		return nil, err
	}
	docs := make([]document.Document, len(scored))
	for i, s := range scored {
		docs[i] = document.Document{Content: s.Item.Content, Metadata: s.Item.Metadata}
	}
	return docs, nil
}

// SearchWithScores embeds the query with the manager's provider and runs a
// k-nearest-neighbor lookup. k must be positive; k beyond the collection
// size returns all stored items.
func (m *Manager) SearchWithScores(ctx context.Context, query string, k int) ([]ScoredItem, error) {
	if m.backend == nil {
		return nil, ErrNotInitialized
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	vector, err := m.provider.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return m.backend.Search(ctx, vector, k)
}

// Count returns the number of stored items.
func (m *Manager) Count(ctx context.Context) (int, error) {
	if m.backend == nil {
		return 0, ErrNotInitialized
	}
	return m.backend.Count(ctx)
}

// Clear empties the collection but keeps it usable.
func (m *Manager) Clear(ctx context.Context) error {
	if m.backend == nil {
		return ErrNotInitialized
	}
	return m.backend.Clear(ctx)
}

// Delete destroys the collection and invalidates the handle; subsequent
// calls fail with ErrNotInitialized until Create or Load runs again.
func (m *Manager) Delete(ctx context.Context) error {
	if m.backend == nil {
		return ErrNotInitialized
	}
	if err := m.backend.Destroy(ctx); err != nil {
		return err
	}
	m.backend.Close()
	m.backend = nil
	return nil
}

// Close releases the backend connection without touching stored data.
func (m *Manager) Close() error {
	if m.backend == nil {
		return nil
	}
	err := m.backend.Close()
	m.backend = nil
	return err
}

// Info summarizes the active collection for stats output.
func (m *Manager) Info(ctx context.Context) (map[string]string, error) {
	if m.backend == nil {
		return nil, ErrNotInitialized
	}
	count, err := m.backend.Count(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"location":        m.backend.Location(),
		"document_count":  strconv.Itoa(count),
		"embedding_model": m.provider.ModelName(),
	}, nil
}
