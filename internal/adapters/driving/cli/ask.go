package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/connectors/filesystem"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

var (
	askK     int
	askFiles []string
	askIndex string
	askJSON  bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from indexed documents",
	Long: `Retrieves the passages most similar to the question and asks the
configured language model to answer using only those passages.

With --file, the given documents are ingested into a temporary index that
is discarded afterwards; the saved index is not touched.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askK, "top-k", "k", 0, "number of passages to use (default from config)")
	askCmd.Flags().StringSliceVarP(&askFiles, "file", "f", nil, "answer from these files instead of the saved index")
	askCmd.Flags().StringVar(&askIndex, "index", "", "index file (default from config)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := openApp(ctx, appOptions{
		indexPath: askIndex,
		transient: len(askFiles) > 0,
		needs:     needGeneration,
	})
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	if len(askFiles) > 0 {
		paths, err := filesystem.Expand(askFiles, a.loaders.Extensions())
		if err != nil {
			return err
		}
		if _, err := a.ingest.Ingest(ctx, paths, driving.IngestOptions{}); err != nil {
			return fmt.Errorf("ingest failed: %w", err)
		}
	}

	answer, err := a.answer.Answer(ctx, args[0], askK)
	if err != nil {
		return fmt.Errorf("answer failed: %w", err)
	}

	if askJSON {
		out := struct {
			Answer  string      `json:"answer"`
			Sources []chunkJSON `json:"sources"`
		}{Answer: answer.Text, Sources: make([]chunkJSON, len(answer.SourceChunks))}
		for i, c := range answer.SourceChunks {
			out.Sources[i] = toChunkJSON(c)
		}
		return printJSON(cmd, out)
	}

	st := newStyles(cmd.OutOrStdout())
	cmd.Println(st.Answer.Render(answer.Text))
	if len(answer.SourceChunks) == 0 {
		cmd.Println(st.Muted.Render("No indexed documents were used."))
		return nil
	}

	cmd.Println()
	cmd.Println(st.Title.Render("Sources"))
	for i, c := range answer.SourceChunks {
		cmd.Printf("  [%d] %s\n", i+1, st.Source.Render(describeSource(c)))
	}
	return nil
}
