package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/ademar/ragcore/internal/similarity"
)

// localFile is the on-disk name of the serialized collection.
const localFile = "vectors.json"

// LocalStore is a brute-force cosine-similarity store persisted as a JSON
// file under a directory. It suits small corpora and tests; for anything
// sizable use the Qdrant backend.
//
// Reads are safe to run concurrently against a stable store. Mutations
// assume a single writer.
type LocalStore struct {
	mu        sync.RWMutex
	dir       string
	dimension int
	items     []Item
}

// localSnapshot is the JSON persistence format.
type localSnapshot struct {
	Dimension int    `json:"dimension"`
	Items     []Item `json:"items"`
}

// LocalOpener opens or creates LocalStores under a fixed directory.
type LocalOpener struct {
	Dir string
}

// Open loads an existing store. Returns ErrNotFound if the directory or
// its data file does not exist.
func (o LocalOpener) Open(_ context.Context) (Backend, error) {
	data, err := os.ReadFile(filepath.Join(o.Dir, localFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, o.Dir)
		}
		return nil, fmt.Errorf("read local store: %w", err)
	}

	var snap localSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse local store: %w", err)
	}
	return &LocalStore{
		dir:       o.Dir,
		dimension: snap.Dimension,
		items:     snap.Items,
	}, nil
}

// Create initializes an empty store for vectors of the given dimension,
// replacing any existing data under the directory.
func (o LocalOpener) Create(_ context.Context, dimension int) (Backend, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dimension)
	}
	if err := os.MkdirAll(o.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	s := &LocalStore{dir: o.Dir, dimension: dimension}
	if err := s.persist(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *LocalStore) Upsert(_ context.Context, items []Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range items {
		if len(item.Vector) != s.dimension {
			return fmt.Errorf("%w: item %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(item.Vector), s.dimension)
		}
	}
	s.items = append(s.items, items...)
	return s.persist()
}

func (s *LocalStore) Search(_ context.Context, vector []float32, k int) ([]ScoredItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), s.dimension)
	}

	scored := make([]ScoredItem, len(s.items))
	for i, item := range s.items {
		score, err := similarity.Cosine(vector, item.Vector)
		if err != nil {
			return nil, err
		}
		scored[i] = ScoredItem{Item: item, Score: score}
	}

	// Stable: equal scores keep insertion order.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

func (s *LocalStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items), nil
}

func (s *LocalStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	return s.persist()
}

func (s *LocalStore) Destroy(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("remove store directory: %w", err)
	}
	return nil
}

func (s *LocalStore) Location() string { return s.dir }

func (s *LocalStore) Close() error { return nil }

// persist writes the snapshot atomically via a temp file rename.
// Callers hold the write lock.
func (s *LocalStore) persist() error {
	data, err := json.Marshal(localSnapshot{Dimension: s.dimension, Items: s.items})
	if err != nil {
		return fmt.Errorf("encode local store: %w", err)
	}
	tmp := filepath.Join(s.dir, localFile+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write local store: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, localFile)); err != nil {
		return fmt.Errorf("replace local store: %w", err)
	}
	return nil
}
