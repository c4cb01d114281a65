package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// chunkJSON is the JSON form of a retrieved chunk.
type chunkJSON struct {
	ID         string            `json:"id"`
	DocumentID string            `json:"document_id"`
	Score      *float64          `json:"score,omitempty"`
	Content    string            `json:"content"`
	Metadata   map[string]string `json:"metadata"`
}

func toChunkJSON(c domain.Chunk) chunkJSON {
	return chunkJSON{ID: c.ID, DocumentID: c.DocumentID, Content: c.Content, Metadata: c.Metadata}
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

// describeSource formats where a chunk came from, e.g. "guide.pdf (Intro, page 3)".
func describeSource(c domain.Chunk) string {
	source := c.Metadata[domain.MetaSource]
	if source == "" {
		source = c.DocumentID
	}

	var details []string
	if title := c.Metadata[domain.MetaTitle]; title != "" {
		details = append(details, title)
	}
	if page, err := strconv.Atoi(c.Metadata[domain.MetaPageNumber]); err == nil {
		details = append(details, fmt.Sprintf("page %d", page))
	}
	if len(details) == 0 {
		return source
	}
	return fmt.Sprintf("%s (%s)", source, strings.Join(details, ", "))
}

// snippet returns the first line of content, shortened to width runes.
func snippet(content string, width int) string {
	line, _, _ := strings.Cut(strings.TrimSpace(content), "\n")
	runes := []rune(line)
	if len(runes) <= width {
		return line
	}
	return string(runes[:width-1]) + "…"
}
