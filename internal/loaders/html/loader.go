package html

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/loaders"
)

// Ensure Loader implements the interface.
var _ driven.Loader = (*Loader)(nil)

var (
	multiSpaces   = regexp.MustCompile(`[ \t]+`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// Loader handles HTML documents.
type Loader struct{}

// New creates a new HTML loader.
func New() *Loader {
	return &Loader{}
}

// Name returns the loader name.
func (l *Loader) Name() string {
	return "html"
}

// Extensions returns the file extensions this loader handles.
func (l *Loader) Extensions() []string {
	return []string{".html", ".htm", ".xhtml"}
}

// Load parses the page and returns its body as Markdown.
func (l *Loader) Load(ctx context.Context, path string, _ driven.LoadOptions) ([]domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := loaders.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return nil, domain.NewDocumentProcessingError(path, errors.New("binary content"))
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, domain.NewDocumentProcessingError(path, err)
	}

	title := extractTitle(doc)
	if title == "" {
		title = loaders.TitleFromPath(path)
	}

	content, err := extractContent(doc)
	if err != nil {
		return nil, domain.NewDocumentProcessingError(path, err)
	}

	return []domain.Document{loaders.NewDocument(path, l.Name(), title, content, 0)}, nil
}

// extractTitle returns the <title>, or the first <h1> when there is none.
func extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

// extractContent converts the body to Markdown, falling back to plain
// text when the converter yields nothing.
func extractContent(doc *goquery.Document) (string, error) {
	doc.Find("script, style, noscript, svg, iframe, head").Remove()
	doc.Find("*").Contents().FilterFunction(func(_ int, s *goquery.Selection) bool {
		return goquery.NodeName(s) == "#comment"
	}).Remove()

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}

	inner, err := body.Html()
	if err != nil {
		return "", err
	}

	converter := md.NewConverter("", true, nil)
	converted, err := converter.ConvertString(inner)
	if err == nil && strings.TrimSpace(converted) != "" {
		return strings.TrimSpace(multiNewlines.ReplaceAllString(converted, "\n\n")), nil
	}

	return plainText(body.Text()), nil
}

// plainText collapses whitespace and drops empty lines.
func plainText(s string) string {
	s = multiSpaces.ReplaceAllString(s, " ")

	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
