package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var (
	searchK     int
	searchIndex string
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Find the passages most similar to a query",
	Long: `Embeds the query and lists the closest indexed passages with their
similarity scores. No language model is called.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchK, "top-k", "k", 0, "number of passages to return (default from config)")
	searchCmd.Flags().StringVar(&searchIndex, "index", "", "index file (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := openApp(ctx, appOptions{indexPath: searchIndex, needs: needEmbedding})
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	hits, err := a.retrieval.Retrieve(ctx, args[0], searchK)
	if errors.Is(err, domain.ErrEmptyIndex) {
		cmd.Println("The index is empty. Add documents with 'docqa ingest'.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		out := make([]chunkJSON, len(hits))
		for i, hit := range hits {
			out[i] = toChunkJSON(hit.Chunk)
			score := hit.Score
			out[i].Score = &score
		}
		return printJSON(cmd, out)
	}

	return outputSearchTable(cmd, hits)
}

func outputSearchTable(cmd *cobra.Command, hits domain.RetrievalResult) error {
	if len(hits) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	st := newStyles(cmd.OutOrStdout())
	cmd.Println(st.Title.Render("Results:"))
	cmd.Println()
	for i, hit := range hits {
		// Format: [N] source (title, page) (score)
		cmd.Printf("  [%d] %s (%.3f)\n", i+1, st.Source.Render(describeSource(hit.Chunk)), hit.Score)
		if s := snippet(hit.Chunk.Content, 100); s != "" {
			cmd.Printf("      %s\n", st.Muted.Render(s))
		}
		cmd.Println()
	}
	return nil
}
