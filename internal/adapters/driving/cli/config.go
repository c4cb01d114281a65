package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driven/ai"
	"github.com/custodia-labs/docqa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

var configForce bool

// newValidator returns the provider checker. Tests replace it.
var newValidator = func() driven.AIConfigValidator { return ai.NewConfigValidator() }

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View or create the docqa configuration file.

Settings are layered: built-in defaults, then the config file, then .env
files, then DOCQA_* environment variables. API keys are read from
OPENAI_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY or GOOGLE_API_KEY, or from
DOCQA_EMBEDDING_API_KEY and DOCQA_GENERATION_API_KEY, and are never
written to the file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the configured providers are reachable",
	Long: `Loads the configuration and makes a lightweight request to the
embedding and generation providers. Nothing is embedded or generated.`,
	RunE: runConfigCheck,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default settings",
	RunE:  runConfigInit,
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, store, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	st := newStyles(cmd.OutOrStdout())
	source := store.Path()
	if !store.Exists() {
		source += " (not created, using defaults)"
	}

	cmd.Println(st.Title.Render("Current Configuration"))
	cmd.Println(st.Muted.Render(source))
	cmd.Println()

	cmd.Println("[Chunking]")
	cmd.Printf("  Chunk size: %d\n", cfg.Chunking.ChunkSize)
	cmd.Printf("  Overlap: %d\n", cfg.Chunking.Overlap)
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Top K: %d\n", cfg.Retrieval.TopK)
	cmd.Println()

	e := cfg.Embedding
	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", e.Provider.Description())
	cmd.Printf("  Model: %s\n", e.Model)
	printEndpoint(cmd, e.Provider, e.BaseURL, e.APIKey)
	cmd.Printf("  Batch size: %d\n", e.BatchSize)
	cmd.Printf("  Retries: %d attempts, backoff %s to %s\n", e.MaxAttempts, e.InitialBackoff, e.MaxBackoff)
	cmd.Printf("  Timeout: %s\n", e.Timeout)
	if e.RequestsPerSecond > 0 {
		cmd.Printf("  Rate limit: %.2f requests/s\n", e.RequestsPerSecond)
	}
	cmd.Printf("  Workers: %d\n", e.Workers)
	if e.CacheDir != "" {
		cmd.Printf("  Cache: %s\n", e.CacheDir)
	}
	cmd.Println()

	g := cfg.Generation
	cmd.Println("[Generation]")
	cmd.Printf("  Provider: %s\n", g.Provider.Description())
	cmd.Printf("  Model: %s\n", g.Model)
	printEndpoint(cmd, g.Provider, g.BaseURL, g.APIKey)
	cmd.Printf("  Temperature: %.2f\n", g.Temperature)
	cmd.Printf("  Max tokens: %d\n", g.MaxTokens)
	cmd.Printf("  Timeout: %s\n", g.Timeout)
	cmd.Println()

	cmd.Println("[Index]")
	cmd.Printf("  Path: %s\n", cfg.Index.Path)
	cmd.Printf("  Metric: %s\n", cfg.Index.Metric)
	return nil
}

func printEndpoint(cmd *cobra.Command, provider domain.AIProvider, baseURL, apiKey string) {
	if baseURL != "" {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if provider.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Println("  API Key: configured")
		} else {
			cmd.Println("  API Key: not set")
		}
	}
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	store, err := file.NewConfigStore(configPath)
	if err != nil {
		return err
	}
	if store.Exists() && !configForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", store.Path())
	}

	if err := store.Save(domain.DefaultConfig()); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	st := newStyles(cmd.OutOrStdout())
	cmd.Println(st.Success.Render("Wrote " + store.Path()))
	return nil
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	st := newStyles(cmd.OutOrStdout())
	v := newValidator()

	embedErr := v.ValidateEmbedding(&cfg.Embedding)
	printCheck(cmd, st, "Embedding", cfg.Embedding.Provider, cfg.Embedding.Model, embedErr)

	llmErr := v.ValidateLLM(&cfg.Generation)
	printCheck(cmd, st, "Generation", cfg.Generation.Provider, cfg.Generation.Model, llmErr)

	return errors.Join(embedErr, llmErr)
}

func printCheck(cmd *cobra.Command, st *styles, label string, provider domain.AIProvider, model string, err error) {
	name := fmt.Sprintf("%s: %s %s", label, provider, model)
	if err != nil {
		cmd.Println(st.Error.Render("  FAIL " + name))
		cmd.Println(st.Muted.Render("       " + err.Error()))
		return
	}
	cmd.Println(st.Success.Render("  OK   " + name))
}
