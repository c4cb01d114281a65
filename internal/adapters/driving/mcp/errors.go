// Package mcp provides an MCP (Model Context Protocol) server adapter for docqa.
// It lets AI assistants retrieve context from, and ask questions of, the
// local document index.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")

// emptyIndexMessage tells clients no documents have been ingested yet,
// which is distinct from a search with no matches.
const emptyIndexMessage = "The index is empty. Add documents with 'docqa ingest'."
