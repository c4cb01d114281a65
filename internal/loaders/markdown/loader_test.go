package markdown

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

func load(t *testing.T, name, content string) domain.Document {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	docs, err := New().Load(context.Background(), path, driven.LoadOptions{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	return docs[0]
}

func TestNew(t *testing.T) {
	loader := New()
	require.NotNil(t, loader)
	assert.Equal(t, "markdown", loader.Name())
	assert.Contains(t, loader.Extensions(), ".md")
	assert.Contains(t, loader.Extensions(), ".markdown")
}

func TestLoad_Success(t *testing.T) {
	doc := load(t, "guide.md", "# Getting Started\n\nInstall the **tool** and run it.\n")

	assert.Equal(t, "Getting Started", doc.Metadata[domain.MetaTitle])
	assert.Equal(t, "markdown", doc.Metadata[domain.MetaFormat])
	assert.Contains(t, doc.Content, "Getting Started")
	assert.Contains(t, doc.Content, "Install the tool and run it.")
	assert.NotContains(t, doc.Content, "**")
	assert.NotContains(t, doc.Content, "#")
}

func TestLoad_TitleExtraction(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		expected string
	}{
		{"H1 heading", "doc.md", "# My Title\n\nBody", "My Title"},
		{"H1 with emphasis", "doc.md", "# The *real* title\n", "The real title"},
		{"H2 only falls back to filename", "release_notes.md", "## Section\n\nBody", "release notes"},
		{"first H1 wins", "doc.md", "# First\n\n# Second\n", "First"},
		{"no heading", "my-doc.md", "Just text", "my doc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := load(t, tt.file, tt.content)
			assert.Equal(t, tt.expected, doc.Metadata[domain.MetaTitle])
		})
	}
}

func TestLoad_StripsMarkup(t *testing.T) {
	src := "Intro with a [link](https://example.com) and ![logo](logo.png).\n\n" +
		"- first item\n- second item\n\n" +
		"> quoted text\n\n" +
		"```go\nfmt.Println(\"hi\")\n```\n\n" +
		"| a | b |\n|---|---|\n| 1 | 2 |\n"

	doc := load(t, "doc.md", src)

	assert.Contains(t, doc.Content, "Intro with a link and .")
	assert.NotContains(t, doc.Content, "https://example.com")
	assert.NotContains(t, doc.Content, "logo")
	assert.Contains(t, doc.Content, "first item")
	assert.Contains(t, doc.Content, "second item")
	assert.Contains(t, doc.Content, "quoted text")
	assert.Contains(t, doc.Content, "fmt.Println(\"hi\")")
	assert.Contains(t, doc.Content, "1 2")
	assert.NotContains(t, doc.Content, "\n\n\n")
}

func TestLoad_EmptyContent(t *testing.T) {
	doc := load(t, "empty.md", "")

	assert.Empty(t, doc.Content)
	assert.Equal(t, "empty", doc.Metadata[domain.MetaTitle])
}

func TestLoad_InvalidUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.md")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0xfe}, 0o600))

	_, err := New().Load(context.Background(), path, driven.LoadOptions{})
	assert.ErrorIs(t, err, domain.ErrDocumentProcessing)
}
