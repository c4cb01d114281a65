package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// createTestDOCX creates a minimal valid DOCX file in memory.
func createTestDOCX(documentXML, coreXML string) []byte {
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	// Add [Content_Types].xml (required for valid DOCX)
	contentTypes, _ := w.Create("[Content_Types].xml")
	contentTypes.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
</Types>`))

	if documentXML != "" {
		doc, _ := w.Create("word/document.xml")
		doc.Write([]byte(documentXML))
	}

	if coreXML != "" {
		core, _ := w.Create("docProps/core.xml")
		core.Write([]byte(coreXML))
	}

	w.Close()
	return buf.Bytes()
}

func writeDOCX(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

const twoParagraphs = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Hello </w:t></w:r><w:r><w:t>World</w:t></w:r></w:p>
<w:p><w:r><w:t>Second paragraph</w:t></w:r></w:p>
</w:body>
</w:document>`

func TestNew(t *testing.T) {
	loader := New()
	require.NotNil(t, loader)
	assert.Equal(t, "docx", loader.Name())
	assert.Equal(t, []string{".docx"}, loader.Extensions())
}

func TestLoad_Success(t *testing.T) {
	core := `<?xml version="1.0"?><cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/"><dc:title>Quarterly Report</dc:title></cp:coreProperties>`
	path := writeDOCX(t, "report.docx", createTestDOCX(twoParagraphs, core))

	docs, err := New().Load(context.Background(), path, driven.LoadOptions{})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Equal(t, "Hello World\nSecond paragraph", docs[0].Content)
	assert.Equal(t, "Quarterly Report", docs[0].Metadata[domain.MetaTitle])
	assert.Equal(t, "docx", docs[0].Metadata[domain.MetaFormat])
}

func TestLoad_TitleFallbackToFilename(t *testing.T) {
	path := writeDOCX(t, "meeting_notes.docx", createTestDOCX(twoParagraphs, ""))

	docs, err := New().Load(context.Background(), path, driven.LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "meeting notes", docs[0].Metadata[domain.MetaTitle])
}

func TestLoad_InvalidZip(t *testing.T) {
	path := writeDOCX(t, "broken.docx", []byte("this is not a zip archive"))

	_, err := New().Load(context.Background(), path, driven.LoadOptions{})
	require.ErrorIs(t, err, domain.ErrDocumentProcessing)
	assert.Contains(t, err.Error(), path)
}

func TestLoad_MissingDocumentPart(t *testing.T) {
	path := writeDOCX(t, "empty.docx", createTestDOCX("", ""))

	_, err := New().Load(context.Background(), path, driven.LoadOptions{})
	require.ErrorIs(t, err, domain.ErrDocumentProcessing)
	assert.Contains(t, err.Error(), "missing word/document.xml")
}

func TestLoad_MalformedXML(t *testing.T) {
	path := writeDOCX(t, "bad.docx", createTestDOCX("<w:document><w:body><w:p>", ""))

	_, err := New().Load(context.Background(), path, driven.LoadOptions{})
	assert.ErrorIs(t, err, domain.ErrDocumentProcessing)
}

func TestParseDocumentXML_EmptyBody(t *testing.T) {
	text, err := parseDocumentXML([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body></w:body></w:document>`))
	require.NoError(t, err)
	assert.Empty(t, text)
}
