package driven

import "github.com/custodia-labs/docqa/internal/core/domain"

// ConfigStore loads and persists the pipeline configuration.
// Implementations validate eagerly: Load never returns a Config that
// would fail at first use.
type ConfigStore interface {
	// Load reads configuration from storage and the environment.
	// A missing file yields defaults overlaid with the environment.
	Load() (domain.Config, error)

	// Save persists cfg. API keys are never written.
	Save(cfg domain.Config) error

	// Path returns the configuration file path.
	Path() string
}
