// Package guard bounds calls to a generative backend.
//
// A guarded service gives every Generate call its own deadline and retries
// a transient failure once after a short backoff. Anything it cannot
// recover is reported as *domain.GenerationServiceError.
package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/retry"
)

// Ensure Service implements the interface.
var _ driven.LLMService = (*Service)(nil)

// Defaults for the single retry.
const (
	MaxAttempts = 2
	Backoff     = time.Second
)

// Service wraps an LLMService with a per-call timeout and one retry.
type Service struct {
	driven.LLMService
	timeout time.Duration
	policy  retry.Policy
}

// New guards svc. A non-positive timeout leaves calls unbounded.
func New(svc driven.LLMService, timeout time.Duration) *Service {
	return &Service{
		LLMService: svc,
		timeout:    timeout,
		policy: retry.Policy{
			MaxAttempts:    MaxAttempts,
			InitialBackoff: Backoff,
			MaxBackoff:     Backoff,
		},
	}
}

// WithSleep replaces the wait between attempts. Tests use it to skip the backoff.
func (s *Service) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *Service {
	s.policy.Sleep = sleep
	return s
}

// Generate calls the backend under the guard.
func (s *Service) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	var text string
	attempts, err := retry.Do(ctx, s.policy, "generate", func(ctx context.Context) error {
		var err error
		text, err = s.call(ctx, prompt, opts)
		return err
	})
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", &domain.GenerationServiceError{
			Model:    s.ModelName(),
			Attempts: attempts,
			Err:      err,
		}
	}
	return text, nil
}

func (s *Service) call(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	if s.timeout <= 0 {
		return s.LLMService.Generate(ctx, prompt, opts)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.LLMService.Generate(callCtx, prompt, opts)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("generation exceeded %s: %w", s.timeout, context.DeadlineExceeded)
	}
	return text, err
}
