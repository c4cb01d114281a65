// Package pdf loads PDF files, one document per page. pdfcpu validates
// the file and ledongthuc/pdf extracts the text.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	pdftext "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/loaders"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure Loader implements the interface.
var _ driven.Loader = (*Loader)(nil)

func init() {
	// Keep pdfcpu from writing its config directory on first use.
	api.DisableConfigDir()
}

// pageSource yields the text of individual pages.
type pageSource interface {
	PageCount() int
	PageText(pageNr int) (string, error)
}

// Loader handles PDF documents.
type Loader struct{}

// New creates a new PDF loader.
func New() *Loader {
	return &Loader{}
}

// Name returns the loader name.
func (l *Loader) Name() string {
	return "pdf"
}

// Extensions returns the file extensions this loader handles.
func (l *Loader) Extensions() []string {
	return []string{".pdf"}
}

// Load returns one document per non-empty page. In strict mode the first
// unreadable page fails the file; in lenient mode readable pages are
// returned together with an error listing every page that failed.
func (l *Loader) Load(ctx context.Context, path string, opts driven.LoadOptions) ([]domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := loaders.ReadFile(path)
	if err != nil {
		return nil, err
	}

	src, err := openPDF(data)
	if err != nil {
		return nil, domain.NewDocumentProcessingError(path, err)
	}

	return collectPages(ctx, path, src, opts)
}

func collectPages(ctx context.Context, path string, src pageSource, opts driven.LoadOptions) ([]domain.Document, error) {
	title := loaders.TitleFromPath(path)
	docs := make([]domain.Document, 0, src.PageCount())
	var failures []domain.UnitFailure

	for pageNr := 1; pageNr <= src.PageCount(); pageNr++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := src.PageText(pageNr)
		if err != nil {
			failure := domain.UnitFailure{Unit: fmt.Sprintf("page %d", pageNr), Err: err}
			if !opts.Lenient {
				return nil, &domain.DocumentProcessingError{Path: path, Failures: []domain.UnitFailure{failure}}
			}
			failures = append(failures, failure)
			continue
		}

		if text == "" {
			logger.Debug("pdf: %s page %d has no text, skipping", path, pageNr)
			continue
		}

		docs = append(docs, loaders.NewDocument(path, "pdf", title, text, pageNr))
	}

	if len(failures) > 0 {
		return docs, &domain.DocumentProcessingError{Path: path, Failures: failures}
	}
	return docs, nil
}

// errUnmappedFont marks pages whose text cannot be decoded reliably.
var errUnmappedFont = errors.New("composite font without unicode mapping")

// pageReader extracts page text with ledongthuc/pdf, which decodes strings
// through each font's encoding and ToUnicode map.
type pageReader struct {
	r *pdftext.Reader
}

// openPDF validates data with pdfcpu, then opens it for text extraction.
func openPDF(data []byte) (src *pageReader, err error) {
	defer func() {
		if r := recover(); r != nil {
			src, err = nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pdfCtx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	if err := api.ValidateContext(pdfCtx); err != nil {
		return nil, fmt.Errorf("validate pdf: %w", err)
	}

	return newPageReader(data)
}

func newPageReader(data []byte) (src *pageReader, err error) {
	defer func() {
		if r := recover(); r != nil {
			src, err = nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdftext.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return &pageReader{r: r}, nil
}

func (s *pageReader) PageCount() int {
	return s.r.NumPage()
}

// PageText returns the page's text with blank lines dropped. Pages using a
// composite (Type0) font without a ToUnicode map fail with errUnmappedFont
// instead of yielding glyph ids as text.
func (s *pageReader) PageText(pageNr int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed page content: %v", r)
		}
	}()

	page := s.r.Page(pageNr)
	if page.V.IsNull() {
		return "", fmt.Errorf("page %d not found", pageNr)
	}

	fonts := make(map[string]*pdftext.Font)
	for _, name := range page.Fonts() {
		font := page.Font(name)
		if font.V.Key("Subtype").Name() == "Type0" && font.V.Key("ToUnicode").IsNull() {
			return "", fmt.Errorf("%w: %s", errUnmappedFont, font.BaseFont())
		}
		fonts[name] = &font
	}

	if page.V.Key("Contents").IsNull() {
		return "", nil
	}
	raw, err := page.GetPlainText(fonts)
	if err != nil {
		return "", err
	}
	return cleanText(raw), nil
}

// cleanText collapses runs of spaces and drops blank lines.
func cleanText(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
