package document

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s failed: %v", name, err)
	}
}

func TestLoader_MissingDirectory(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "does-not-exist"), nil)

	docs, err := loader.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("Expected 0 documents for missing directory, got %d", len(docs))
	}
}

func TestLoader_TextFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "first document\n")
	writeFile(t, dir, "sub/b.txt", "second document, nested\n")
	writeFile(t, dir, "ignored.json", `{"not": "loaded"}`)

	loader := NewLoader(dir, nil)
	docs, err := loader.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("Expected 2 documents, got %d", len(docs))
	}

	sources := make(map[string]bool)
	for _, doc := range docs {
		src, ok := doc.Metadata["source"].(string)
		if !ok {
			t.Fatalf("Document missing source metadata: %+v", doc.Metadata)
		}
		sources[src] = true
		if doc.Metadata["type"] != "text" {
			t.Errorf("Expected type 'text', got %v", doc.Metadata["type"])
		}
	}
	if !sources["a.txt"] || !sources[filepath.Join("sub", "b.txt")] {
		t.Errorf("Unexpected sources: %v", sources)
	}
}

// TestLoader_MarkdownSections verifies markdown files split into one
// document per H1/H2 section while txt files stay whole.
func TestLoader_MarkdownSections(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "guide.md", `# Guide

Intro.

## Setup

Setup steps.
`)

	loader := NewLoader(dir, nil)
	docs, err := loader.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("Expected 2 section documents, got %d", len(docs))
	}
	for _, doc := range docs {
		if doc.Metadata["type"] != "markdown" {
			t.Errorf("Expected type 'markdown', got %v", doc.Metadata["type"])
		}
		if doc.Metadata["section"] == "" {
			t.Errorf("Expected section metadata, got %+v", doc.Metadata)
		}
	}
	if docs[1].Metadata["section"] != "# Guide > ## Setup" {
		t.Errorf("Unexpected section title: %v", docs[1].Metadata["section"])
	}
}

func TestLoader_TypeFilter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "text content")
	writeFile(t, dir, "b.md", "markdown content")
	writeFile(t, dir, "c.csv", "name,age\nAda,36\n")

	loader := NewLoader(dir, nil)

	docs, err := loader.Load(Text)
	if err != nil {
		t.Fatalf("Load(Text) failed: %v", err)
	}
	if len(docs) != 1 || docs[0].Metadata["type"] != "text" {
		t.Errorf("Load(Text): expected 1 text document, got %+v", docs)
	}

	docs, err = loader.Load(Text, CSV)
	if err != nil {
		t.Fatalf("Load(Text, CSV) failed: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("Load(Text, CSV): expected 2 documents, got %d", len(docs))
	}
}

func TestLoader_CSVFlattening(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "people.csv", "name,role\nAda,engineer\nGrace,admiral\n")

	loader := NewLoader(dir, nil)
	docs, err := loader.Load(CSV)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("Expected 1 document, got %d", len(docs))
	}

	want := "name: Ada; role: engineer\nname: Grace; role: admiral"
	if docs[0].Content != want {
		t.Errorf("Expected %q, got %q", want, docs[0].Content)
	}
}

// TestLoader_BadFileSkipped verifies one unparsable file does not abort the
// scan.
func TestLoader_BadFileSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.txt", "good content")
	writeFile(t, dir, "broken.pdf", "this is not a pdf")

	loader := NewLoader(dir, nil)
	docs, err := loader.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("Expected bad file skipped, got %d documents", len(docs))
	}
	if docs[0].Content != "good content" {
		t.Errorf("Unexpected content: %q", docs[0].Content)
	}
}

func TestLoader_EmptyFilesProduceNoDocuments(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "empty.txt", "   \n\n  ")

	loader := NewLoader(dir, nil)
	docs, err := loader.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("Expected 0 documents from whitespace-only file, got %d", len(docs))
	}
}

func TestLoader_Docx(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.docx")
	writeDocx(t, path, `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`)

	loader := NewLoader(dir, nil)
	docs, err := loader.Load(Word)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("Expected 1 document, got %d", len(docs))
	}

	want := "First paragraph.\nSecond paragraph."
	if docs[0].Content != want {
		t.Errorf("Expected %q, got %q", want, docs[0].Content)
	}
}

// writeDocx builds a minimal docx archive holding the given document.xml.
func writeDocx(t *testing.T, path, documentXML string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create docx failed: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry failed: %v", err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatalf("write zip entry failed: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip failed: %v", err)
	}
}

func TestSyntheticDocuments(t *testing.T) {
	docs := SyntheticDocuments()
	if len(docs) != 5 {
		t.Fatalf("Expected 5 synthetic documents, got %d", len(docs))
	}
	for i, doc := range docs {
		if doc.Content == "" {
			t.Errorf("Synthetic document %d has empty content", i)
		}
		if doc.Metadata["synthetic"] != true {
			t.Errorf("Synthetic document %d missing synthetic metadata", i)
		}
		if doc.Metadata["source"] == "" {
			t.Errorf("Synthetic document %d missing source", i)
		}
	}
}

func TestStats(t *testing.T) {
	stats := Stats(nil)
	if stats["document_count"] != 0 {
		t.Errorf("Expected count 0 for empty set, got %v", stats["document_count"])
	}

	docs := []Document{
		{Content: "one two three", Metadata: map[string]any{"source": "a.txt"}},
		{Content: "four five", Metadata: map[string]any{"source": "a.txt"}},
		{Content: "six", Metadata: map[string]any{"source": "b.txt"}},
	}
	stats = Stats(docs)
	if stats["document_count"] != 3 {
		t.Errorf("Expected document_count 3, got %v", stats["document_count"])
	}
	if stats["total_words"] != 6 {
		t.Errorf("Expected total_words 6, got %v", stats["total_words"])
	}
	if stats["unique_sources"] != 2 {
		t.Errorf("Expected unique_sources 2, got %v", stats["unique_sources"])
	}
}
