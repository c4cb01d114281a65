// Package domain defines the core entities of the retrieval pipeline.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: Text extracted from one logical unit of a source file
//   - Chunk: A contiguous span of a document with code point offsets
//   - RetrievalResult: Scored chunks in rank order
//   - Answer: Generated text plus the chunks it was grounded on
//   - Config: Pipeline parameters, validated eagerly
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
