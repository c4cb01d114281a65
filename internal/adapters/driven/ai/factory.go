// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	geminiembed "github.com/custodia-labs/docqa/internal/adapters/driven/embedding/gemini"
	ollamaembed "github.com/custodia-labs/docqa/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/docqa/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/docqa/internal/adapters/driven/embedding/policy"
	anthropicllm "github.com/custodia-labs/docqa/internal/adapters/driven/llm/anthropic"
	geminillm "github.com/custodia-labs/docqa/internal/adapters/driven/llm/gemini"
	"github.com/custodia-labs/docqa/internal/adapters/driven/llm/guard"
	ollamallm "github.com/custodia-labs/docqa/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/docqa/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
	"github.com/custodia-labs/docqa/internal/retry"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// rateBurst is the token bucket size used when throttling is enabled.
const rateBurst = 1

// InitResult holds the AI services the pipeline runs against.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() error {
	var errs []error
	if r.EmbeddingService != nil {
		errs = append(errs, r.EmbeddingService.Close())
	}
	if r.LLMService != nil {
		errs = append(errs, r.LLMService.Close())
	}
	return errors.Join(errs...)
}

// Init creates and validates both services.
func Init(ctx context.Context, cfg domain.Config) (*InitResult, error) {
	embedder, err := CreateAndValidateEmbeddingService(ctx, &cfg.Embedding)
	if err != nil {
		return nil, err
	}

	llm, err := CreateAndValidateLLMService(ctx, &cfg.Generation)
	if err != nil {
		_ = embedder.Close()
		return nil, err
	}

	return &InitResult{EmbeddingService: embedder, LLMService: llm}, nil
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
func CreateAndValidateEmbeddingService(ctx context.Context, cfg *domain.EmbeddingConfig) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := ping(ctx, svc); err != nil {
		_ = svc.Close()
		return nil, &domain.EmbeddingServiceError{Model: cfg.Model, Attempts: 1, Err: fmt.Errorf("service unreachable: %w", err)}
	}
	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
func CreateAndValidateLLMService(ctx context.Context, cfg *domain.GenerationConfig) (driven.LLMService, error) {
	svc, err := CreateLLMService(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := ping(ctx, svc); err != nil {
		_ = svc.Close()
		return nil, &domain.GenerationServiceError{Model: cfg.Model, Attempts: 1, Err: fmt.Errorf("service unreachable: %w", err)}
	}
	return svc, nil
}

// ValidateEmbeddingConfig creates a bare backend for cfg and pings it.
func ValidateEmbeddingConfig(ctx context.Context, cfg *domain.EmbeddingConfig) error {
	svc, err := CreateEmbeddingBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()
	return ping(ctx, svc)
}

// ValidateLLMConfig creates a bare backend for cfg and pings it.
func ValidateLLMConfig(ctx context.Context, cfg *domain.GenerationConfig) error {
	svc, err := CreateLLMBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()
	return ping(ctx, svc)
}

type pinger interface {
	Ping(ctx context.Context) error
}

func ping(ctx context.Context, svc pinger) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateEmbeddingService builds the embedding backend for cfg wrapped in
// the call policies. Outermost first: batching, cache (when CacheDir is
// set), retries, per-call timeout, rate limit.
func CreateEmbeddingService(ctx context.Context, cfg *domain.EmbeddingConfig) (driven.EmbeddingService, error) {
	backend, err := CreateEmbeddingBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var svc driven.EmbeddingService = policy.RateLimited(backend, cfg.RequestsPerSecond, rateBurst)
	svc = policy.Timeout(svc, cfg.Timeout)
	svc = policy.Retrying(svc, retryPolicy(cfg))

	if cfg.CacheDir != "" {
		cache, err := policy.OpenBadgerCache(cfg.CacheDir)
		if err != nil {
			_ = backend.Close()
			return nil, err
		}
		logger.Debug("embedding cache enabled at %s", cfg.CacheDir)
		svc = policy.Cached(svc, cache)
	}

	return policy.Batching(svc, cfg.BatchSize), nil
}

func retryPolicy(cfg *domain.EmbeddingConfig) retry.Policy {
	p := retry.DefaultPolicy()
	if cfg.MaxAttempts > 0 {
		p.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.InitialBackoff > 0 {
		p.InitialBackoff = cfg.InitialBackoff
	}
	if cfg.MaxBackoff > 0 {
		p.MaxBackoff = cfg.MaxBackoff
	}
	return p
}

// CreateEmbeddingBackend creates the bare embedding service for cfg.Provider.
func CreateEmbeddingBackend(ctx context.Context, cfg *domain.EmbeddingConfig) (driven.EmbeddingService, error) {
	if cfg == nil {
		return nil, &domain.ConfigurationError{Field: "embedding", Reason: "not configured"}
	}
	if err := checkAPIKey("embedding", cfg.Provider, cfg.APIKey); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})

	case domain.AIProviderGemini:
		return geminiembed.NewEmbeddingService(ctx, geminiembed.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})

	case domain.AIProviderAnthropic:
		return nil, &domain.ConfigurationError{Field: "embedding.provider", Reason: "anthropic does not support embeddings, use ollama, openai or gemini"}

	default:
		return nil, &domain.ConfigurationError{Field: "embedding.provider", Reason: fmt.Sprintf("unsupported provider %q", cfg.Provider)}
	}
}

// CreateLLMService builds the generative backend for cfg behind the
// timeout and single-retry guard.
func CreateLLMService(ctx context.Context, cfg *domain.GenerationConfig) (driven.LLMService, error) {
	backend, err := CreateLLMBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return guard.New(backend, cfg.Timeout), nil
}

// CreateLLMBackend creates the bare LLM service for cfg.Provider.
func CreateLLMBackend(ctx context.Context, cfg *domain.GenerationConfig) (driven.LLMService, error) {
	if cfg == nil {
		return nil, &domain.ConfigurationError{Field: "generation", Reason: "not configured"}
	}
	if err := checkAPIKey("generation", cfg.Provider, cfg.APIKey); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})

	case domain.AIProviderGemini:
		return geminillm.NewLLMService(ctx, geminillm.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})

	default:
		return nil, &domain.ConfigurationError{Field: "generation.provider", Reason: fmt.Sprintf("unsupported provider %q", cfg.Provider)}
	}
}

// checkAPIKey reports a cloud provider selected without a key as both a
// configuration error and domain.ErrAPIKeyMissing.
func checkAPIKey(section string, provider domain.AIProvider, key string) error {
	if !provider.RequiresAPIKey() || key != "" {
		return nil
	}
	cfgErr := &domain.ConfigurationError{
		Field:  section + ".api_key",
		Reason: fmt.Sprintf("%s requires an API key", provider),
	}
	return fmt.Errorf("%w (%w)", cfgErr, domain.ErrAPIKeyMissing)
}
