package domain

// Metadata keys written by loaders and the chunker.
const (
	// MetaSource is the path the document was loaded from.
	MetaSource = "source"

	// MetaSourceFile is the base name of the source file.
	MetaSourceFile = "source_file"

	// MetaPageNumber is the 1-based page of a paginated source.
	MetaPageNumber = "page_number"

	// MetaTitle is the human-readable title, when the format has one.
	MetaTitle = "title"

	// MetaFormat is the name of the loader that produced the document.
	MetaFormat = "format"

	// MetaChunkIndex is the ordinal position of a chunk within its document.
	MetaChunkIndex = "chunk_index"

	// MetaSourceDocumentID links a chunk back to its document.
	MetaSourceDocumentID = "source_document_id"

	// MetaCharStart is the code point offset where a chunk starts.
	MetaCharStart = "char_start"

	// MetaCharEnd is the code point offset where a chunk ends (exclusive).
	MetaCharEnd = "char_end"
)

// Document is the uniform representation a loader produces for one
// logical unit of a source file (a whole file, or a single PDF page).
// It is immutable once created.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Content is the full extracted text before chunking.
	Content string

	// Metadata describes where the content came from.
	Metadata map[string]string
}

// Source returns the path the document was loaded from.
func (d Document) Source() string {
	return d.Metadata[MetaSource]
}

// Chunk is a contiguous span of a document's content and the unit of
// embedding and retrieval.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the text of this chunk.
	Content string

	// Index is the ordinal position within the document.
	Index int

	// CharStart is the code point offset of the first character.
	CharStart int

	// CharEnd is the code point offset one past the last character.
	CharEnd int

	// Metadata is the document's metadata extended with chunk offsets.
	Metadata map[string]string
}

// Len returns the chunk length in code points.
func (c Chunk) Len() int {
	return c.CharEnd - c.CharStart
}

// CopyMetadata returns a shallow copy of m that is safe to extend.
func CopyMetadata(m map[string]string) map[string]string {
	out := make(map[string]string, len(m)+4)
	for k, v := range m {
		out[k] = v
	}
	return out
}
