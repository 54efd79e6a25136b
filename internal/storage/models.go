package storage

// Item is one stored (content, vector, metadata) triple.
type Item struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Vector   []float32      `json:"vector"`
}

// ScoredItem pairs an item with its similarity to a query. Higher is more
// similar; cosine-ranked backends keep scores in [-1, 1].
type ScoredItem struct {
	Item  Item
	Score float64
}
