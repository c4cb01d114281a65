package cli

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/connectors/filesystem"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

var (
	ingestIndex   string
	ingestLenient bool
	ingestWatch   bool
)

// watchDebounce collects bursts of file events into one ingestion.
var watchDebounce = 500 * time.Millisecond

var ingestCmd = &cobra.Command{
	Use:   "ingest [paths...]",
	Short: "Add documents to the index",
	Long: `Loads, chunks and embeds the given files and appends the chunks to the
index. Directories are walked for files with a supported extension.

The index is only written once every file has been embedded, so a failure
leaves the saved index unchanged. With --lenient, unreadable or unsupported
files are reported and skipped instead.

With --watch, docqa keeps running and ingests files created under the
given directories. Edited files are not re-ingested, since chunks cannot be
removed from an index; rebuild the index to pick up edits.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestIndex, "index", "", "index file (default from config)")
	ingestCmd.Flags().BoolVar(&ingestLenient, "lenient", false, "skip files that fail to load")
	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "keep ingesting new files until interrupted")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := openApp(ctx, appOptions{indexPath: ingestIndex, needs: needEmbedding})
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	st := newStyles(cmd.OutOrStdout())

	paths, err := filesystem.Expand(args, a.loaders.Extensions())
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no supported files found (supported: %s)", strings.Join(a.loaders.Extensions(), ", "))
	}

	if err := ingestAndSave(ctx, cmd, st, a, paths); err != nil {
		return err
	}

	if !ingestWatch {
		return nil
	}
	return watch(ctx, cmd, st, a, args)
}

// ingestAndSave ingests paths and persists the index.
func ingestAndSave(ctx context.Context, cmd *cobra.Command, st *styles, a *app, paths []string) error {
	report, err := a.ingest.Ingest(ctx, paths, driving.IngestOptions{Lenient: ingestLenient})
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	for _, skipped := range report.Skipped {
		cmd.Println(st.Warning.Render("skipped: " + skipped.Error()))
	}

	if err := a.index.Save(ctx); err != nil {
		return fmt.Errorf("save index: %w", err)
	}

	info := a.index.Info()
	cmd.Println(st.Success.Render(fmt.Sprintf(
		"Ingested %d files (%d documents, %d chunks).", report.Files, report.Documents, report.Chunks)))
	cmd.Println(st.Muted.Render(fmt.Sprintf("Index %s now holds %d chunks.", displayPath(info.Path), info.Size)))
	return nil
}

// watch ingests files created under the watched paths until ctx ends.
// Bursts of new files are collected into one ingestion.
func watch(ctx context.Context, cmd *cobra.Command, st *styles, a *app, args []string) error {
	created, err := filesystem.Watch(ctx, args, a.loaders.Extensions())
	if err != nil {
		return err
	}

	cmd.Println(st.Muted.Render("Watching for new files. Press Ctrl+C to stop."))

	pending := map[string]struct{}{}
	timer := time.NewTimer(watchDebounce)
	timer.Stop()

	for {
		select {
		case path, ok := <-created:
			if !ok {
				return nil
			}
			pending[path] = struct{}{}
			timer.Reset(watchDebounce)

		case <-timer.C:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			clear(pending)
			slices.Sort(paths)

			if err := ingestAndSave(ctx, cmd, st, a, paths); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				cmd.Println(st.Error.Render(err.Error()))
			}
		}
	}
}

func displayPath(path string) string {
	if path == "" {
		return "(in memory)"
	}
	return path
}
