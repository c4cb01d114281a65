package loaders

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// MaxFileSize bounds how much a loader reads into memory.
const MaxFileSize = 64 << 20

// ReadFile reads path for a loader, failing with a
// *domain.DocumentProcessingError when the file is missing, a directory,
// or too large.
func ReadFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, domain.NewDocumentProcessingError(path, err)
	}
	if info.IsDir() {
		return nil, domain.NewDocumentProcessingError(path, fmt.Errorf("is a directory"))
	}
	if info.Size() > MaxFileSize {
		return nil, domain.NewDocumentProcessingError(path, fmt.Errorf("file is %d bytes, limit is %d", info.Size(), MaxFileSize))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewDocumentProcessingError(path, err)
	}
	return data, nil
}

// NewDocument builds a document for one unit of path. Unit is 0 for
// single-unit formats and the 1-based page number otherwise. IDs are
// derived from the absolute path and unit, so reloading a file yields
// the same IDs.
func NewDocument(path, format, title, content string, unit int) domain.Document {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	meta := map[string]string{
		domain.MetaSource:     path,
		domain.MetaSourceFile: filepath.Base(path),
		domain.MetaFormat:     format,
	}
	if title != "" {
		meta[domain.MetaTitle] = title
	}
	if unit > 0 {
		meta[domain.MetaPageNumber] = strconv.Itoa(unit)
	}

	return domain.Document{
		ID:       uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+abs+"#"+strconv.Itoa(unit))).String(),
		Content:  content,
		Metadata: meta,
	}
}

// TitleFromPath extracts a human-readable title from a file name.
func TitleFromPath(path string) string {
	filename := filepath.Base(path)

	// Remove the extension for a cleaner title
	if ext := filepath.Ext(filename); ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}

	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")

	return filename
}
