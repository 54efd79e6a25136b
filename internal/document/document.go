// Package document loads ingestible text records from a directory tree.
package document

// Document is a unit of ingestible text with free-form metadata.
// Documents are immutable once created.
type Document struct {
	Content  string
	Metadata map[string]any
}

// FileType selects which file formats a load pass should pick up.
type FileType string

const (
	Text     FileType = "text"
	Markdown FileType = "markdown"
	PDF      FileType = "pdf"
	Word     FileType = "word"
	CSV      FileType = "csv"
	All      FileType = "all"
)

// extensions maps each concrete file type to the extensions it claims.
var extensions = map[FileType][]string{
	Text:     {".txt"},
	Markdown: {".md", ".markdown"},
	PDF:      {".pdf"},
	Word:     {".docx"},
	CSV:      {".csv"},
}

// SyntheticDocuments returns the fixed fallback corpus used when a document
// directory is empty, keeping the pipeline runnable in demo and test setups.
func SyntheticDocuments() []Document {
	return []Document{
		{
			Content:  "RAG (Retrieval-Augmented Generation) is an AI technique that combines information retrieval with text generation.",
			Metadata: map[string]any{"source": "synthetic-1.txt", "synthetic": true},
		},
		{
			Content:  "A RAG system retrieves relevant information from a knowledge base and then generates answers grounded in that information.",
			Metadata: map[string]any{"source": "synthetic-2.txt", "synthetic": true},
		},
		{
			Content:  "Sentence embedding models turn text into high-quality numeric vectors that capture semantic meaning.",
			Metadata: map[string]any{"source": "synthetic-3.txt", "synthetic": true},
		},
		{
			Content:  "A vector database is a core part of a RAG system: it stores document embeddings and answers nearest-neighbor queries.",
			Metadata: map[string]any{"source": "synthetic-4.txt", "synthetic": true},
		},
		{
			Content:  "Local embedding models generate text vectors without calling external APIs, which keeps data private and works offline.",
			Metadata: map[string]any{"source": "synthetic-5.txt", "synthetic": true},
		},
	}
}
