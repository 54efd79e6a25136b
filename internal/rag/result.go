package rag

import "time"

// Source is one retrieved document with its relevance to the query.
type Source struct {
	Content    string
	Similarity float64
	Metadata   map[string]any
}

// Result is the output of one query. It always carries whatever retrieval
// produced, even when generation was skipped or failed.
type Result struct {
	Query          string
	Answer         string
	Sources        []Source
	RetrievalTime  time.Duration
	GenerationTime time.Duration
	TotalTime      time.Duration

	// UsedContext is true only when generation actually ran with the
	// retrieved context.
	UsedContext bool
}
