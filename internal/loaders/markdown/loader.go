// Package markdown loads Markdown files as plain text documents.
package markdown

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/loaders"
)

// Ensure Loader implements the interface.
var _ driven.Loader = (*Loader)(nil)

var multiNewlines = regexp.MustCompile(`\n{3,}`)

// Loader handles Markdown documents.
type Loader struct {
	md goldmark.Markdown
}

// New creates a new Markdown loader.
func New() *Loader {
	return &Loader{
		md: goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough)),
	}
}

// Name returns the loader name.
func (l *Loader) Name() string {
	return "markdown"
}

// Extensions returns the file extensions this loader handles.
func (l *Loader) Extensions() []string {
	return []string{".md", ".markdown", ".mdown"}
}

// Load parses the file and returns its text with markup removed.
// The title is the first level-one heading, or the file name.
func (l *Loader) Load(ctx context.Context, path string, _ driven.LoadOptions) ([]domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := loaders.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, domain.NewDocumentProcessingError(path, errors.New("invalid UTF-8"))
	}

	title, content, err := l.render(data)
	if err != nil {
		return nil, domain.NewDocumentProcessingError(path, err)
	}
	if title == "" {
		title = loaders.TitleFromPath(path)
	}

	return []domain.Document{loaders.NewDocument(path, l.Name(), title, content, 0)}, nil
}

// render walks the goldmark AST and collects readable text.
func (l *Loader) render(src []byte) (title, content string, err error) {
	root := l.md.Parser().Parse(text.NewReader(src))

	var b strings.Builder
	endBlock := func() {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
	}

	err = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Heading:
			if entering && node.Level == 1 && title == "" {
				title = strings.TrimSpace(inlineText(node, src))
			}
			if !entering {
				endBlock()
			}
		case *ast.Paragraph, *ast.TextBlock, *ast.Blockquote:
			if !entering {
				endBlock()
			}
		case *ast.ListItem:
			if !entering {
				b.WriteString("\n")
			}
		case *ast.Text:
			if entering {
				b.Write(node.Segment.Value(src))
				if node.SoftLineBreak() || node.HardLineBreak() {
					b.WriteString("\n")
				}
			}
		case *ast.String:
			if entering {
				b.Write(node.Value)
			}
		case *ast.AutoLink:
			if entering {
				b.Write(node.Label(src))
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				lines := node.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					b.Write(seg.Value(src))
				}
			} else {
				endBlock()
			}
		case *ast.Image, *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		case *extast.TableCell:
			if !entering {
				b.WriteString(" ")
			}
		case *extast.TableHeader, *extast.TableRow:
			if !entering {
				b.WriteString("\n")
			}
		case *extast.Table:
			if !entering {
				endBlock()
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", "", err
	}

	content = multiNewlines.ReplaceAllString(b.String(), "\n\n")
	return title, strings.TrimSpace(content), nil
}

// inlineText concatenates the text segments below n.
func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := c.(*ast.Text); ok && entering {
			b.Write(t.Segment.Value(src))
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
