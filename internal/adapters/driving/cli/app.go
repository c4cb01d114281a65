package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/docqa/internal/adapters/driven/ai"
	"github.com/custodia-labs/docqa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docqa/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/core/services"
	"github.com/custodia-labs/docqa/internal/loaders/builtin"
	"github.com/custodia-labs/docqa/internal/logger"
	"github.com/custodia-labs/docqa/internal/postprocessors"
)

// needs selects which backends a command requires.
type needs int

const (
	needIndex      needs = iota // persisted index only
	needEmbedding               // index plus embedding backend
	needGeneration              // index, embedding and generative backends
)

// appOptions describes what a command runs against.
type appOptions struct {
	// indexPath overrides index.path from the configuration.
	indexPath string

	// transient builds an empty in-memory index that is never saved.
	transient bool

	needs needs
}

// app holds the services one command invocation uses.
type app struct {
	cfg       domain.Config
	loaders   driven.LoaderRegistry
	ingest    driving.IngestService
	retrieval driving.RetrievalService
	answer    driving.AnswerService
	index     driving.IndexService
	closers   []func() error
}

// Close releases backend resources.
func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// openApp builds the services for a command. Tests replace it.
var openApp = buildApp

// loadConfig reads the configuration selected by --config.
func loadConfig() (domain.Config, *file.ConfigStore, error) {
	store, err := file.NewConfigStore(configPath)
	if err != nil {
		return domain.Config{}, nil, err
	}
	cfg, err := store.Load()
	if err != nil {
		return domain.Config{}, nil, err
	}
	return cfg, store, nil
}

func buildApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if opts.indexPath != "" {
		cfg.Index.Path = opts.indexPath
	}

	a := &app{cfg: cfg}
	success := false
	defer func() {
		if !success {
			_ = a.Close()
		}
	}()

	// The model check only matters when new vectors will be compared with
	// stored ones.
	model := ""
	if opts.needs >= needEmbedding {
		model = cfg.Embedding.Model
	}

	var (
		index *memory.Index
		store driven.IndexStore
		path  string
	)
	if opts.transient {
		index, err = memory.New(cfg.Index.Metric, model)
	} else {
		store = sqlite.NewIndexStore()
		path = cfg.Index.Path
		index, err = memory.Open(ctx, store, path, cfg.Index.Metric, model)
	}
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	a.index = services.NewIndexManager(index, store, path)

	if opts.needs == needIndex {
		success = true
		return a, nil
	}

	var embedder driven.EmbeddingService
	var llm driven.LLMService
	if opts.needs == needGeneration {
		res, err := ai.Init(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, res.Close)
		embedder, llm = res.EmbeddingService, res.LLMService
	} else {
		embedder, err = ai.CreateAndValidateEmbeddingService(ctx, &cfg.Embedding)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, embedder.Close)
	}

	loaders := services.NewLoaderRegistry()
	builtin.RegisterDefaults(loaders)
	a.loaders = loaders

	pipeline, err := postprocessors.NewDefaultPipeline(cfg.Chunking)
	if err != nil {
		return nil, err
	}

	a.ingest = services.NewIngestService(loaders, pipeline, embedder, index, cfg.Embedding.Workers, cfg.Embedding.BatchSize)
	retriever := services.NewRetriever(embedder, index, cfg.Retrieval.TopK)
	a.retrieval = retriever

	if llm != nil {
		prompts, err := file.NewPromptStore("")
		if err != nil {
			logger.Warn("Prompt store unavailable, using built-in prompts: %v", err)
		}
		var promptStore driven.PromptStore
		if prompts != nil {
			promptStore = prompts
		}
		a.answer = services.NewAnswerService(retriever, llm, promptStore, driven.GenerateOptions{
			MaxTokens:   cfg.Generation.MaxTokens,
			Temperature: cfg.Generation.Temperature,
		})
	}

	success = true
	return a, nil
}
