// Package plaintext loads UTF-8 text files as single documents.
package plaintext

import (
	"bytes"
	"context"
	"errors"
	"unicode/utf8"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/loaders"
)

// Ensure Loader implements the interface.
var _ driven.Loader = (*Loader)(nil)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Loader handles plain text and source code files.
type Loader struct{}

// New creates a new plain text loader.
func New() *Loader {
	return &Loader{}
}

// Name returns the loader name.
func (l *Loader) Name() string {
	return "plaintext"
}

// Extensions returns the file extensions this loader handles.
func (l *Loader) Extensions() []string {
	return []string{
		".txt",
		".text",
		".log",
		".csv",
		".json",
		".yaml",
		".yml",
		".toml",
		".xml",
		".go",
		".py",
		".rs",
		".java",
		".c",
		".h",
		".sql",
		".sh",
		".js",
		".ts",
	}
}

// Load reads the file as one document. Content must be valid UTF-8 and
// free of NUL bytes; anything else is treated as a binary or corrupt file.
func (l *Loader) Load(ctx context.Context, path string, _ driven.LoadOptions) ([]domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := loaders.ReadFile(path)
	if err != nil {
		return nil, err
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if bytes.IndexByte(data, 0) >= 0 {
		return nil, domain.NewDocumentProcessingError(path, errors.New("binary content"))
	}
	if !utf8.Valid(data) {
		return nil, domain.NewDocumentProcessingError(path, errors.New("invalid UTF-8"))
	}

	doc := loaders.NewDocument(path, l.Name(), loaders.TitleFromPath(path), string(data), 0)
	return []domain.Document{doc}, nil
}
