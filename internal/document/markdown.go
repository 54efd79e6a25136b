package document

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// Section is one H1/H2-bounded slice of a markdown file.
type Section struct {
	Title string // header hierarchy, e.g. "# Guide > ## Setup"
	Text  string
}

// splitter cuts markdown at H1 and H2 boundaries. Deeper headings stay
// inside their parent section, which keeps sections large enough to embed
// usefully while still giving retrieval per-topic granularity.
type splitter struct {
	md goldmark.Markdown
}

func newSplitter() *splitter {
	return &splitter{
		md: goldmark.New(
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
		),
	}
}

// split returns one Section per H1/H2 heading. A file without headings
// comes back as a single untitled section holding the whole source.
func (s *splitter) split(source []byte) ([]Section, error) {
	reader := text.NewReader(source)
	doc := s.md.Parser().Parse(reader)

	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.MaxDepth(2),
		toc.Compact(true),
	)
	if err != nil {
		return nil, fmt.Errorf("inspect TOC: %w", err)
	}

	if len(tree.Items) == 0 {
		return []Section{{Text: strings.TrimSpace(string(source))}}, nil
	}

	var sections []Section
	s.collect(doc, source, tree.Items, nil, &sections)
	return sections, nil
}

// collect walks TOC items recursively, slicing the source between each
// heading and the next heading of equal or higher level.
func (s *splitter) collect(doc ast.Node, source []byte, items toc.Items, ancestors []string, out *[]Section) {
	for i, item := range items {
		path := append(ancestors, string(item.Title))
		headerNode := headingByID(doc, string(item.ID))
		if headerNode == nil {
			continue
		}

		start := headerNode.Lines().At(0)
		var end text.Segment
		if i+1 < len(items) {
			if next := headingByID(doc, string(items[i+1].ID)); next != nil {
				end = next.Lines().At(0)
			}
		} else {
			end = nextBoundary(doc, headerNode, headerNode.(*ast.Heading).Level)
		}

		*out = append(*out, Section{
			Title: headerTitle(path),
			Text:  sliceSource(source, start, end),
		})

		if len(item.Items) > 0 {
			s.collect(doc, source, item.Items, path, out)
		}
	}
}

// headerTitle renders a header hierarchy like "# Guide > ## Setup".
func headerTitle(path []string) string {
	parts := make([]string, len(path))
	for i, segment := range path {
		parts[i] = fmt.Sprintf("%s %s", strings.Repeat("#", i+1), segment)
	}
	return strings.Join(parts, " > ")
}

// headingByID finds the heading node carrying the auto-generated ID.
func headingByID(node ast.Node, id string) ast.Node {
	var found ast.Node
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && n.Kind() == ast.KindHeading {
			if attr, ok := n.(*ast.Heading).AttributeString("id"); ok && string(attr.([]byte)) == id {
				found = n
				return ast.WalkStop, nil
			}
		}
		return ast.WalkContinue, nil
	})
	return found
}

// nextBoundary finds the first heading after current at the same or a
// higher level. Returns a zero segment when the section runs to EOF.
func nextBoundary(root, current ast.Node, level int) text.Segment {
	var boundary ast.Node
	passedCurrent := false

	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Kind() != ast.KindHeading {
			return ast.WalkContinue, nil
		}
		if !passedCurrent {
			if n == current {
				passedCurrent = true
			}
			return ast.WalkContinue, nil
		}
		if n.(*ast.Heading).Level <= level {
			boundary = n
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})

	if boundary != nil {
		return boundary.Lines().At(0)
	}
	return text.Segment{}
}

// sliceSource extracts the text between two line segments; a zero end
// segment means "to end of file".
func sliceSource(source []byte, start, end text.Segment) string {
	var buf bytes.Buffer
	if end.Start == 0 && end.Stop == 0 {
		buf.Write(source[start.Start:])
	} else {
		buf.Write(source[start.Start:end.Start])
	}
	return strings.TrimSpace(buf.String())
}
