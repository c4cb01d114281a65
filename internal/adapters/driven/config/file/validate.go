package file

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks cfg against the struct tags on domain.Config and the
// provider capabilities. The first violation is returned as a
// *domain.ConfigurationError naming the dotted setting.
func Validate(cfg domain.Config) error {
	if err := structValidator().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fieldError(verrs[0])
		}
		return &domain.ConfigurationError{Field: "config", Reason: err.Error()}
	}

	if !cfg.Embedding.Provider.IsValid() {
		return &domain.ConfigurationError{Field: "embedding.provider", Reason: fmt.Sprintf("unknown provider %q", cfg.Embedding.Provider)}
	}
	if !cfg.Embedding.Provider.SupportsEmbedding() {
		return &domain.ConfigurationError{Field: "embedding.provider", Reason: fmt.Sprintf("%s does not offer embeddings", cfg.Embedding.Provider)}
	}
	if !cfg.Generation.Provider.IsValid() {
		return &domain.ConfigurationError{Field: "generation.provider", Reason: fmt.Sprintf("unknown provider %q", cfg.Generation.Provider)}
	}

	return cfg.Validate()
}

func fieldError(fe validator.FieldError) *domain.ConfigurationError {
	return &domain.ConfigurationError{
		Field:  settingName(fe.Namespace()),
		Reason: reason(fe),
	}
}

// settingName turns "Config.Chunking.ChunkSize" into "chunking.chunk_size".
func settingName(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = snake(p)
	}
	return strings.Join(parts, ".")
}

func snake(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if i > 0 && (prevLower || (nextLower && unicode.IsUpper(runes[i-1]))) {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "ltfield":
		return "must be less than " + snake(fe.Param())
	case "gtefield":
		return "must not be less than " + snake(fe.Param())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
