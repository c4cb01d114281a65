package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var (
	indexPath string
	indexJSON bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect the vector index",
}

var indexInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show size, dimension, metric and model of the index",
	Args:  cobra.NoArgs,
	RunE:  runIndexInfo,
}

func init() {
	indexInfoCmd.Flags().StringVar(&indexPath, "index", "", "index file (default from config)")
	indexInfoCmd.Flags().BoolVar(&indexJSON, "json", false, "output as JSON")
	indexCmd.AddCommand(indexInfoCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexInfo(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := openApp(ctx, appOptions{indexPath: indexPath, needs: needIndex})
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	info := a.index.Info()
	if indexJSON {
		return printJSON(cmd, struct {
			Path      string `json:"path"`
			Size      int    `json:"size"`
			Dimension int    `json:"dimension"`
			Metric    string `json:"metric"`
			Model     string `json:"model"`
		}{info.Path, info.Size, info.Dimension, info.Metric.String(), info.Model})
	}

	st := newStyles(cmd.OutOrStdout())
	cmd.Println(st.Title.Render("Index"))
	cmd.Printf("  Path: %s\n", displayPath(info.Path))
	cmd.Printf("  Chunks: %d\n", info.Size)
	if info.Size == 0 {
		cmd.Println(st.Muted.Render("  Empty. Add documents with 'docqa ingest'."))
		return nil
	}
	cmd.Printf("  Dimension: %d\n", info.Dimension)
	cmd.Printf("  Metric: %s\n", info.Metric)
	if info.Model != "" {
		cmd.Printf("  Model: %s\n", info.Model)
	}
	return nil
}
