package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or generation.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is the Anthropic cloud API. Generation only.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderGemini is the Google Gemini API.
	AIProviderGemini AIProvider = "gemini"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderGemini:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic || p == AIProviderGemini
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// SupportsEmbedding returns true if the provider offers an embedding API.
func (p AIProvider) SupportsEmbedding() bool {
	return p == AIProviderOllama || p == AIProviderOpenAI || p == AIProviderGemini
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderGemini:
		return "Google Gemini (cloud)"
	default:
		return unknownDescription
	}
}

// ChunkingConfig controls how documents are split.
type ChunkingConfig struct {
	// ChunkSize is the window width in code points.
	ChunkSize int `validate:"gt=0"`

	// Overlap is how many code points consecutive chunks share.
	Overlap int `validate:"gte=0,ltfield=ChunkSize"`
}

// RetrievalConfig controls query-time retrieval.
type RetrievalConfig struct {
	// TopK is the default number of chunks to retrieve.
	TopK int `validate:"gt=0"`
}

// EmbeddingConfig selects and tunes the embedding backend.
type EmbeddingConfig struct {
	Provider AIProvider `validate:"required"`
	Model    string     `validate:"required"`

	// BaseURL overrides the provider endpoint (required for Ollama).
	BaseURL string

	// APIKey authenticates cloud providers.
	APIKey string

	// BatchSize is the most texts sent in one backend call.
	BatchSize int `validate:"gt=0"`

	// MaxAttempts bounds calls per batch, including the first.
	MaxAttempts int `validate:"gt=0"`

	// InitialBackoff is the wait before the first retry.
	InitialBackoff time.Duration `validate:"gt=0"`

	// MaxBackoff caps the wait between retries.
	MaxBackoff time.Duration `validate:"gtefield=InitialBackoff"`

	// Timeout bounds every backend call.
	Timeout time.Duration `validate:"gt=0"`

	// RequestsPerSecond throttles backend calls. Zero disables throttling.
	RequestsPerSecond float64 `validate:"gte=0"`

	// Workers bounds concurrent embedding calls during ingestion.
	Workers int `validate:"gt=0"`

	// CacheDir enables the on-disk embedding cache when set.
	CacheDir string
}

// GenerationConfig selects and tunes the generative backend.
type GenerationConfig struct {
	Provider AIProvider `validate:"required"`
	Model    string     `validate:"required"`
	BaseURL  string
	APIKey   string

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64 `validate:"gte=0,lte=2"`

	// MaxTokens bounds the answer length.
	MaxTokens int `validate:"gt=0"`

	// Timeout bounds a single generation call.
	Timeout time.Duration `validate:"gt=0"`
}

// IndexConfig locates and shapes the vector index.
type IndexConfig struct {
	// Path is the SQLite file the index is saved to.
	Path string `validate:"required"`

	// Metric is fixed for the lifetime of an index.
	Metric Metric `validate:"oneof=cosine l2"`
}

// Config is the full set of parameters the pipeline is built from.
type Config struct {
	Chunking   ChunkingConfig
	Retrieval  RetrievalConfig
	Embedding  EmbeddingConfig
	Generation GenerationConfig
	Index      IndexConfig
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-ada-002",
		AIProviderGemini: "text-embedding-004",
	}
}

// DefaultLLMModels returns default models for each generative provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-3.5-turbo",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
		AIProviderGemini:    "gemini-1.5-flash",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Gemini models
		"text-embedding-004": 768,
	}
}

// DefaultConfig returns the configuration used when nothing is set.
// API keys are left empty and must come from the environment.
func DefaultConfig() Config {
	return Config{
		Chunking: ChunkingConfig{
			ChunkSize: 1000,
			Overlap:   200,
		},
		Retrieval: RetrievalConfig{
			TopK: 3,
		},
		Embedding: EmbeddingConfig{
			Provider:       AIProviderOpenAI,
			Model:          DefaultEmbeddingModels()[AIProviderOpenAI],
			BatchSize:      100,
			MaxAttempts:    5,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     30 * time.Second,
			Timeout:        30 * time.Second,
			Workers:        4,
		},
		Generation: GenerationConfig{
			Provider:    AIProviderOpenAI,
			Model:       DefaultLLMModels()[AIProviderOpenAI],
			Temperature: 0.7,
			MaxTokens:   512,
			Timeout:     60 * time.Second,
		},
		Index: IndexConfig{
			Path:   "docqa.db",
			Metric: MetricCosine,
		},
	}
}

// Validate performs the checks that need no external library: the
// chunking and metric invariants every component relies on. The config
// loader runs the full tag-based validation on top of this.
func (c Config) Validate() error {
	if err := ValidateChunking(c.Chunking.ChunkSize, c.Chunking.Overlap); err != nil {
		return err
	}
	if c.Retrieval.TopK <= 0 {
		return &ConfigurationError{Field: "retrieval.top_k", Reason: "must be greater than 0"}
	}
	if !c.Index.Metric.IsValid() {
		return &ConfigurationError{Field: "index.metric", Reason: "must be cosine or l2"}
	}
	return nil
}

// ValidateChunking checks 0 <= overlap < chunkSize.
func ValidateChunking(chunkSize, overlap int) error {
	if chunkSize <= 0 {
		return &ConfigurationError{Field: "chunking.chunk_size", Reason: "must be greater than 0"}
	}
	if overlap < 0 {
		return &ConfigurationError{Field: "chunking.overlap", Reason: "must not be negative"}
	}
	if overlap >= chunkSize {
		return &ConfigurationError{Field: "chunking.overlap", Reason: "must be less than chunk_size"}
	}
	return nil
}
