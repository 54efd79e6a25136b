package document

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Loader reads documents from a directory tree.
//
// Granularity policy: txt, pdf, docx and csv files each produce a single
// Document; markdown files produce one Document per H1/H2 section. Every
// Document carries "source" (path relative to the root) and "type" metadata.
type Loader struct {
	dir      string
	splitter *splitter
	logger   *slog.Logger
}

// NewLoader creates a loader rooted at dir.
func NewLoader(dir string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		dir:      dir,
		splitter: newSplitter(),
		logger:   logger,
	}
}

// Dir returns the document root this loader scans.
func (l *Loader) Dir() string { return l.dir }

// Load recursively scans the root for files matching the given types and
// returns one or more Documents per file. A missing root is not an error:
// it returns an empty slice. A file that fails to read or parse is logged
// and skipped so one bad file never aborts the scan.
func (l *Loader) Load(types ...FileType) ([]Document, error) {
	wanted := l.wantedExtensions(types)

	if _, err := os.Stat(l.dir); os.IsNotExist(err) {
		l.logger.Info("document directory does not exist", "dir", l.dir)
		return []Document{}, nil
	}

	var docs []Document
	err := filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			l.logger.Warn("skipping unreadable entry", "path", path, "error", err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ft, ok := wanted[strings.ToLower(filepath.Ext(path))]
		if !ok {
			return nil
		}
		fileDocs, err := l.loadFile(path, ft)
		if err != nil {
			l.logger.Warn("skipping file", "path", path, "error", err)
			return nil
		}
		docs = append(docs, fileDocs...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", l.dir, err)
	}

	l.logger.Info("loaded documents", "dir", l.dir, "count", len(docs))
	return docs, nil
}

// LoadAll loads every supported file type.
func (l *Loader) LoadAll() ([]Document, error) {
	return l.Load(All)
}

func (l *Loader) wantedExtensions(types []FileType) map[string]FileType {
	wanted := make(map[string]FileType)
	add := func(ft FileType) {
		for _, ext := range extensions[ft] {
			wanted[ext] = ft
		}
	}
	if len(types) == 0 {
		types = []FileType{All}
	}
	for _, t := range types {
		if t == All {
			for ft := range extensions {
				add(ft)
			}
			continue
		}
		add(t)
	}
	return wanted
}

func (l *Loader) loadFile(path string, ft FileType) ([]Document, error) {
	rel, err := filepath.Rel(l.dir, path)
	if err != nil {
		rel = path
	}

	meta := func() map[string]any {
		return map[string]any{"source": rel, "type": string(ft)}
	}

	switch ft {
	case Markdown:
		source, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		sections, err := l.splitter.split(source)
		if err != nil {
			return nil, err
		}
		docs := make([]Document, 0, len(sections))
		for _, sec := range sections {
			if sec.Text == "" {
				continue
			}
			m := meta()
			if sec.Title != "" {
				m["section"] = sec.Title
			}
			docs = append(docs, Document{Content: sec.Text, Metadata: m})
		}
		return docs, nil

	case Text:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		content := strings.TrimSpace(string(data))
		if content == "" {
			return nil, nil
		}
		return []Document{{Content: content, Metadata: meta()}}, nil

	case PDF:
		content, err := readPDF(path)
		if err != nil {
			return nil, err
		}
		if content == "" {
			return nil, nil
		}
		return []Document{{Content: content, Metadata: meta()}}, nil

	case Word:
		content, err := readDocx(path)
		if err != nil {
			return nil, err
		}
		if content == "" {
			return nil, nil
		}
		return []Document{{Content: content, Metadata: meta()}}, nil

	case CSV:
		content, err := readCSV(path)
		if err != nil {
			return nil, err
		}
		if content == "" {
			return nil, nil
		}
		return []Document{{Content: content, Metadata: meta()}}, nil
	}
	return nil, fmt.Errorf("unsupported file type %q", ft)
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// readDocx pulls paragraph text out of word/document.xml. A .docx file is
// a zip archive; the main body lives in w:t runs grouped by w:p paragraphs.
func readDocx(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer zr.Close()

	var body io.ReadCloser
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			body, err = f.Open()
			if err != nil {
				return "", fmt.Errorf("open document.xml: %w", err)
			}
			break
		}
	}
	if body == nil {
		return "", fmt.Errorf("no word/document.xml in %s", path)
	}
	defer body.Close()

	var sb strings.Builder
	dec := xml.NewDecoder(body)
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

// readCSV flattens rows into "header: value" lines so tabular data stays
// meaningful as embedded prose.
func readCSV(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return "", fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return "", nil
	}

	header := records[0]
	var sb strings.Builder
	for _, row := range records[1:] {
		fields := make([]string, 0, len(row))
		for i, val := range row {
			if i < len(header) {
				fields = append(fields, fmt.Sprintf("%s: %s", header[i], val))
			} else {
				fields = append(fields, val)
			}
		}
		sb.WriteString(strings.Join(fields, "; "))
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String()), nil
}

// Stats summarizes a loaded document set.
func Stats(docs []Document) map[string]any {
	if len(docs) == 0 {
		return map[string]any{"document_count": 0}
	}
	totalChars := 0
	totalWords := 0
	sources := make(map[string]int)
	for _, d := range docs {
		totalChars += len(d.Content)
		totalWords += len(strings.Fields(d.Content))
		if src, ok := d.Metadata["source"].(string); ok {
			sources[src]++
		}
	}
	return map[string]any{
		"document_count":   len(docs),
		"total_characters": totalChars,
		"total_words":      totalWords,
		"unique_sources":   len(sources),
	}
}
