package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// DefaultFileName is the configuration file created in the config directory.
const DefaultFileName = "config.toml"

// ConfigStore reads and writes the pipeline configuration as TOML or YAML,
// chosen by file extension. Values are layered: defaults, then the file,
// then .env files, then the process environment. API keys only ever come
// from the environment.
type ConfigStore struct {
	mu       sync.RWMutex
	filePath string
	envFiles []string
	getenv   func(string) string
}

// NewConfigStore creates a config store for path.
// If path is empty, defaults to ~/.docqa/config.toml. A .env file in the
// working directory and one next to the config file are consulted on Load.
func NewConfigStore(path string) (*ConfigStore, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		path = filepath.Join(home, ".docqa", DefaultFileName)
	}

	if _, err := formatOf(path); err != nil {
		return nil, err
	}

	return &ConfigStore{
		filePath: path,
		envFiles: []string{".env", filepath.Join(filepath.Dir(path), ".env")},
		getenv:   os.Getenv,
	}, nil
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

// Exists reports whether the configuration file has been written.
func (s *ConfigStore) Exists() bool {
	_, err := os.Stat(s.filePath)
	return err == nil
}

// Load builds the configuration and validates it.
func (s *ConfigStore) Load() (domain.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fc := toFile(domain.DefaultConfig())
	// Empty models are filled per provider once the provider is known.
	fc.Embedding.Model = ""
	fc.Generation.Model = ""

	data, err := os.ReadFile(s.filePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return domain.Config{}, fmt.Errorf("read config: %w", err)
	default:
		if err := decode(s.filePath, data, &fc); err != nil {
			return domain.Config{}, &domain.ConfigurationError{Field: "file", Reason: fmt.Sprintf("%s: %v", s.filePath, err)}
		}
	}

	env, err := s.environment()
	if err != nil {
		return domain.Config{}, err
	}
	if err := overlayEnv(&fc, env); err != nil {
		return domain.Config{}, err
	}

	cfg, err := fromFile(fc)
	if err != nil {
		return domain.Config{}, err
	}
	cfg.Embedding.APIKey = apiKey(env, "DOCQA_EMBEDDING_API_KEY", cfg.Embedding.Provider)
	cfg.Generation.APIKey = apiKey(env, "DOCQA_GENERATION_API_KEY", cfg.Generation.Provider)

	if err := Validate(cfg); err != nil {
		return domain.Config{}, err
	}
	return cfg, nil
}

// Save writes cfg to the configuration file with owner-only permissions.
// API keys are never written.
func (s *ConfigStore) Save(cfg domain.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := encode(s.filePath, toFile(cfg))
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(s.filePath, data, 0600)
}

// environment merges .env files under the process environment.
// Earlier .env files win over later ones, and real variables win over both.
func (s *ConfigStore) environment() (lookup, error) {
	dotenv := map[string]string{}
	for _, path := range s.envFiles {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		vars, err := godotenv.Read(path)
		if err != nil {
			return nil, &domain.ConfigurationError{Field: "env", Reason: fmt.Sprintf("%s: %v", path, err)}
		}
		for k, v := range vars {
			if _, ok := dotenv[k]; !ok {
				dotenv[k] = v
			}
		}
	}

	return func(key string) string {
		if v := s.getenv(key); v != "" {
			return v
		}
		return dotenv[key]
	}, nil
}

// lookup returns an environment value, or "" when unset.
type lookup func(key string) string

// providerKeyVars lists the conventional API key variables per provider.
var providerKeyVars = map[domain.AIProvider][]string{
	domain.AIProviderOpenAI:    {"OPENAI_API_KEY"},
	domain.AIProviderAnthropic: {"ANTHROPIC_API_KEY"},
	domain.AIProviderGemini:    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

func apiKey(env lookup, override string, provider domain.AIProvider) string {
	if v := env(override); v != "" {
		return v
	}
	for _, name := range providerKeyVars[provider] {
		if v := env(name); v != "" {
			return v
		}
	}
	return ""
}

// envVar binds a DOCQA_* variable to a field of the file representation.
type envVar struct {
	name  string
	field string
	set   func(fc *fileConfig, value string) error
}

var envVars = []envVar{
	{"DOCQA_CHUNK_SIZE", "chunking.chunk_size", func(fc *fileConfig, v string) error { return setInt(&fc.Chunking.ChunkSize, v) }},
	{"DOCQA_CHUNK_OVERLAP", "chunking.overlap", func(fc *fileConfig, v string) error { return setInt(&fc.Chunking.Overlap, v) }},
	{"DOCQA_TOP_K", "retrieval.top_k", func(fc *fileConfig, v string) error { return setInt(&fc.Retrieval.TopK, v) }},
	{"DOCQA_EMBEDDING_PROVIDER", "embedding.provider", func(fc *fileConfig, v string) error { fc.Embedding.Provider = v; return nil }},
	{"DOCQA_EMBEDDING_MODEL", "embedding.model", func(fc *fileConfig, v string) error { fc.Embedding.Model = v; return nil }},
	{"DOCQA_EMBEDDING_BASE_URL", "embedding.base_url", func(fc *fileConfig, v string) error { fc.Embedding.BaseURL = v; return nil }},
	{"DOCQA_EMBEDDING_WORKERS", "embedding.workers", func(fc *fileConfig, v string) error { return setInt(&fc.Embedding.Workers, v) }},
	{"DOCQA_EMBEDDING_CACHE_DIR", "embedding.cache_dir", func(fc *fileConfig, v string) error { fc.Embedding.CacheDir = v; return nil }},
	{"DOCQA_GENERATION_PROVIDER", "generation.provider", func(fc *fileConfig, v string) error { fc.Generation.Provider = v; return nil }},
	{"DOCQA_GENERATION_MODEL", "generation.model", func(fc *fileConfig, v string) error { fc.Generation.Model = v; return nil }},
	{"DOCQA_GENERATION_BASE_URL", "generation.base_url", func(fc *fileConfig, v string) error { fc.Generation.BaseURL = v; return nil }},
	{"DOCQA_TEMPERATURE", "generation.temperature", func(fc *fileConfig, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		fc.Generation.Temperature = f
		return err
	}},
	{"DOCQA_MAX_TOKENS", "generation.max_tokens", func(fc *fileConfig, v string) error { return setInt(&fc.Generation.MaxTokens, v) }},
	{"DOCQA_INDEX_PATH", "index.path", func(fc *fileConfig, v string) error { fc.Index.Path = v; return nil }},
	{"DOCQA_INDEX_METRIC", "index.metric", func(fc *fileConfig, v string) error { fc.Index.Metric = v; return nil }},
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func overlayEnv(fc *fileConfig, env lookup) error {
	for _, ev := range envVars {
		v := strings.TrimSpace(env(ev.name))
		if v == "" {
			continue
		}
		if err := ev.set(fc, v); err != nil {
			return &domain.ConfigurationError{Field: ev.field, Reason: fmt.Sprintf("%s=%q: %v", ev.name, v, err)}
		}
	}
	return nil
}

// fileConfig is the on-disk shape. Durations are Go duration strings.
type fileConfig struct {
	Chunking struct {
		ChunkSize int `toml:"chunk_size" yaml:"chunk_size"`
		Overlap   int `toml:"overlap" yaml:"overlap"`
	} `toml:"chunking" yaml:"chunking"`

	Retrieval struct {
		TopK int `toml:"top_k" yaml:"top_k"`
	} `toml:"retrieval" yaml:"retrieval"`

	Embedding struct {
		Provider          string  `toml:"provider" yaml:"provider"`
		Model             string  `toml:"model" yaml:"model"`
		BaseURL           string  `toml:"base_url,omitempty" yaml:"base_url,omitempty"`
		BatchSize         int     `toml:"batch_size" yaml:"batch_size"`
		MaxAttempts       int     `toml:"max_attempts" yaml:"max_attempts"`
		InitialBackoff    string  `toml:"initial_backoff" yaml:"initial_backoff"`
		MaxBackoff        string  `toml:"max_backoff" yaml:"max_backoff"`
		Timeout           string  `toml:"timeout" yaml:"timeout"`
		RequestsPerSecond float64 `toml:"requests_per_second" yaml:"requests_per_second"`
		Workers           int     `toml:"workers" yaml:"workers"`
		CacheDir          string  `toml:"cache_dir,omitempty" yaml:"cache_dir,omitempty"`
	} `toml:"embedding" yaml:"embedding"`

	Generation struct {
		Provider    string  `toml:"provider" yaml:"provider"`
		Model       string  `toml:"model" yaml:"model"`
		BaseURL     string  `toml:"base_url,omitempty" yaml:"base_url,omitempty"`
		Temperature float64 `toml:"temperature" yaml:"temperature"`
		MaxTokens   int     `toml:"max_tokens" yaml:"max_tokens"`
		Timeout     string  `toml:"timeout" yaml:"timeout"`
	} `toml:"generation" yaml:"generation"`

	Index struct {
		Path   string `toml:"path" yaml:"path"`
		Metric string `toml:"metric" yaml:"metric"`
	} `toml:"index" yaml:"index"`
}

func toFile(cfg domain.Config) fileConfig {
	var fc fileConfig
	fc.Chunking.ChunkSize = cfg.Chunking.ChunkSize
	fc.Chunking.Overlap = cfg.Chunking.Overlap
	fc.Retrieval.TopK = cfg.Retrieval.TopK

	e := cfg.Embedding
	fc.Embedding.Provider = string(e.Provider)
	fc.Embedding.Model = e.Model
	fc.Embedding.BaseURL = e.BaseURL
	fc.Embedding.BatchSize = e.BatchSize
	fc.Embedding.MaxAttempts = e.MaxAttempts
	fc.Embedding.InitialBackoff = e.InitialBackoff.String()
	fc.Embedding.MaxBackoff = e.MaxBackoff.String()
	fc.Embedding.Timeout = e.Timeout.String()
	fc.Embedding.RequestsPerSecond = e.RequestsPerSecond
	fc.Embedding.Workers = e.Workers
	fc.Embedding.CacheDir = e.CacheDir

	g := cfg.Generation
	fc.Generation.Provider = string(g.Provider)
	fc.Generation.Model = g.Model
	fc.Generation.BaseURL = g.BaseURL
	fc.Generation.Temperature = g.Temperature
	fc.Generation.MaxTokens = g.MaxTokens
	fc.Generation.Timeout = g.Timeout.String()

	fc.Index.Path = cfg.Index.Path
	fc.Index.Metric = string(cfg.Index.Metric)
	return fc
}

func fromFile(fc fileConfig) (domain.Config, error) {
	var cfg domain.Config
	var err error

	cfg.Chunking = domain.ChunkingConfig{ChunkSize: fc.Chunking.ChunkSize, Overlap: fc.Chunking.Overlap}
	cfg.Retrieval = domain.RetrievalConfig{TopK: fc.Retrieval.TopK}

	e := &cfg.Embedding
	e.Provider = domain.AIProvider(strings.ToLower(fc.Embedding.Provider))
	e.Model = fc.Embedding.Model
	if e.Model == "" {
		e.Model = domain.DefaultEmbeddingModels()[e.Provider]
	}
	e.BaseURL = fc.Embedding.BaseURL
	e.BatchSize = fc.Embedding.BatchSize
	e.MaxAttempts = fc.Embedding.MaxAttempts
	e.RequestsPerSecond = fc.Embedding.RequestsPerSecond
	e.Workers = fc.Embedding.Workers
	e.CacheDir = fc.Embedding.CacheDir
	if e.InitialBackoff, err = parseDuration("embedding.initial_backoff", fc.Embedding.InitialBackoff); err != nil {
		return cfg, err
	}
	if e.MaxBackoff, err = parseDuration("embedding.max_backoff", fc.Embedding.MaxBackoff); err != nil {
		return cfg, err
	}
	if e.Timeout, err = parseDuration("embedding.timeout", fc.Embedding.Timeout); err != nil {
		return cfg, err
	}

	g := &cfg.Generation
	g.Provider = domain.AIProvider(strings.ToLower(fc.Generation.Provider))
	g.Model = fc.Generation.Model
	if g.Model == "" {
		g.Model = domain.DefaultLLMModels()[g.Provider]
	}
	g.BaseURL = fc.Generation.BaseURL
	g.Temperature = fc.Generation.Temperature
	g.MaxTokens = fc.Generation.MaxTokens
	if g.Timeout, err = parseDuration("generation.timeout", fc.Generation.Timeout); err != nil {
		return cfg, err
	}

	cfg.Index.Path = fc.Index.Path
	if cfg.Index.Metric, err = domain.ParseMetric(strings.ToLower(fc.Index.Metric)); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func parseDuration(field, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, &domain.ConfigurationError{Field: field, Reason: fmt.Sprintf("invalid duration %q", s)}
	}
	return d, nil
}

type format int

const (
	formatTOML format = iota
	formatYAML
)

func formatOf(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return formatTOML, nil
	case ".yaml", ".yml":
		return formatYAML, nil
	default:
		return 0, &domain.ConfigurationError{Field: "config", Reason: fmt.Sprintf("%s: use a .toml, .yaml or .yml file", path)}
	}
}

func decode(path string, data []byte, fc *fileConfig) error {
	f, err := formatOf(path)
	if err != nil {
		return err
	}
	if f == formatYAML {
		return yaml.Unmarshal(data, fc)
	}
	return toml.Unmarshal(data, fc)
}

func encode(path string, fc fileConfig) ([]byte, error) {
	f, err := formatOf(path)
	if err != nil {
		return nil, err
	}
	if f == formatYAML {
		return yaml.Marshal(fc)
	}
	return toml.Marshal(fc)
}
