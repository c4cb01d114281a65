package driven

import "github.com/custodia-labs/docqa/internal/core/domain"

// AIConfigValidator validates AI provider configurations by testing
// connectivity to the underlying services.
type AIConfigValidator interface {
	// ValidateEmbedding pings the configured embedding provider.
	ValidateEmbedding(cfg *domain.EmbeddingConfig) error

	// ValidateLLM pings the configured generative provider.
	ValidateLLM(cfg *domain.GenerationConfig) error
}
