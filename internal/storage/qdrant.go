package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"
)

// QdrantStore keeps one collection in a Qdrant server reached over gRPC.
// Vectors are ranked by cosine similarity, matching the local backend.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	dimension  int // 0 when the store was opened rather than created
}

// QdrantOpener opens or creates collections on one Qdrant server.
type QdrantOpener struct {
	Host       string
	Port       int
	Collection string
}

func (o QdrantOpener) connect(ctx context.Context) (*qdrant.Client, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: o.Host,
		Port: o.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}
	if err := healthCheckWithRetry(ctx, client); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return client, nil
}

// Open returns a handle on an existing collection, or ErrNotFound when the
// server has no collection by that name.
func (o QdrantOpener) Open(ctx context.Context) (Backend, error) {
	client, err := o.connect(ctx)
	if err != nil {
		return nil, err
	}
	names, err := client.ListCollections(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("list collections: %w", err)
	}
	for _, name := range names {
		if name == o.Collection {
			return &QdrantStore{client: client, collection: o.Collection}, nil
		}
	}
	client.Close()
	return nil, fmt.Errorf("%w: collection %s", ErrNotFound, o.Collection)
}

// Create makes a fresh collection with cosine distance, replacing any
// existing collection of the same name.
func (o QdrantOpener) Create(ctx context.Context, dimension int) (Backend, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dimension)
	}
	client, err := o.connect(ctx)
	if err != nil {
		return nil, err
	}

	names, err := client.ListCollections(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("list collections: %w", err)
	}
	for _, name := range names {
		if name == o.Collection {
			if err := client.DeleteCollection(ctx, o.Collection); err != nil {
				client.Close()
				return nil, fmt.Errorf("delete existing collection: %w", err)
			}
			break
		}
	}

	err = client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: o.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return &QdrantStore{client: client, collection: o.Collection, dimension: dimension}, nil
}

// healthCheckWithRetry pings the server with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func healthCheckWithRetry(ctx context.Context, client *qdrant.Client) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		result, err := client.HealthCheck(ctx)
		if err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}
		if result == nil || result.Title == "" {
			return fmt.Errorf("health check returned invalid response")
		}
		return nil
	}
	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}

// Upsert stores items in batches of 100 with retry on transient errors.
func (s *QdrantStore) Upsert(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	if s.dimension > 0 {
		for i, item := range items {
			if len(item.Vector) != s.dimension {
				return fmt.Errorf("%w: item %d has %d dimensions, expected %d",
					ErrDimensionMismatch, i, len(item.Vector), s.dimension)
			}
		}
	}

	const batchSize = 100
	for i := 0; i < len(items); i += batchSize {
		end := min(i+batchSize, len(items))
		batch := items[i:end]

		points := make([]*qdrant.PointStruct, len(batch))
		for j, item := range batch {
			points[j] = &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(item.ID),
				Vectors: qdrant.NewVectors(item.Vector...),
				Payload: qdrant.NewValueMap(itemPayload(item)),
			}
		}
		if err := s.upsertWithRetry(ctx, points); err != nil {
			return fmt.Errorf("upsert batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

func (s *QdrantStore) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Points:         points,
		})
		return err
	}
	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}

// Search returns the top-k items by cosine similarity, best first.
func (s *QdrantStore) Search(ctx context.Context, vector []float32, k int) ([]ScoredItem, error) {
	if s.dimension > 0 && len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), s.dimension)
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("search collection: %w", err)
	}

	scored := make([]ScoredItem, 0, len(results))
	for _, result := range results {
		scored = append(scored, ScoredItem{
			Item:  itemFromPayload(result.Id.GetUuid(), result.Payload),
			Score: float64(result.Score),
		})
	}
	return scored, nil
}

func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	collection, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return 0, fmt.Errorf("get collection: %w", err)
	}
	return int(collection.GetPointsCount()), nil
}

// Clear deletes every point but keeps the collection.
func (s *QdrantStore) Clear(ctx context.Context) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrant.NewPointsSelectorFilter(&qdrant.Filter{}),
	})
	if err != nil {
		return fmt.Errorf("clear collection: %w", err)
	}
	return nil
}

func (s *QdrantStore) Destroy(ctx context.Context) error {
	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	return nil
}

func (s *QdrantStore) Location() string { return s.collection }

func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// itemPayload flattens metadata into the point payload under meta_ keys,
// keeping the payload flat so no nested value conversion is needed.
func itemPayload(item Item) map[string]any {
	payload := map[string]any{"content": item.Content}
	for k, v := range item.Metadata {
		payload["meta_"+k] = v
	}
	return payload
}

func itemFromPayload(id string, payload map[string]*qdrant.Value) Item {
	item := Item{ID: id}
	for k, v := range payload {
		switch {
		case k == "content":
			item.Content = v.GetStringValue()
		case len(k) > 5 && k[:5] == "meta_":
			if item.Metadata == nil {
				item.Metadata = make(map[string]any)
			}
			item.Metadata[k[5:]] = valueToAny(v)
		}
	}
	return item
}

func valueToAny(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	default:
		return v.String()
	}
}
