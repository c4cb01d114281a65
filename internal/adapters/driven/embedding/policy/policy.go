package policy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/retry"
)

// Ensure decorators implement the interface.
var (
	_ driven.EmbeddingService = (*BatchingService)(nil)
	_ driven.EmbeddingService = (*RetryingService)(nil)
	_ driven.EmbeddingService = (*RateLimitedService)(nil)
	_ driven.EmbeddingService = (*TimeoutService)(nil)
)

// embedOne embeds text as a single-item batch.
func embedOne(ctx context.Context, svc driven.EmbeddingService, text string) ([]float32, error) {
	vectors, err := svc.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vectors))
	}
	return vectors[0], nil
}

// BatchingService splits large inputs into sub-batches of at most Limit texts.
type BatchingService struct {
	driven.EmbeddingService
	limit int
}

// Batching wraps svc so no backend call carries more than limit texts.
// A limit below 1 is treated as 1.
func Batching(svc driven.EmbeddingService, limit int) *BatchingService {
	if limit < 1 {
		limit = 1
	}
	return &BatchingService{EmbeddingService: svc, limit: limit}
}

// Embed embeds a single text.
func (s *BatchingService) Embed(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, s, text)
}

// EmbedBatch embeds texts in order, limit at a time.
func (s *BatchingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.limit {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+s.limit, len(texts))

		vectors, err := s.EmbeddingService.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(vectors) != end-start {
			return nil, fmt.Errorf("sub-batch %d-%d: expected %d embeddings, got %d", start, end, end-start, len(vectors))
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// RetryingService retries transient backend failures with bounded
// exponential backoff.
type RetryingService struct {
	driven.EmbeddingService
	policy retry.Policy
}

// Retrying wraps svc with policy. Failures the policy gives up on are
// returned as *domain.EmbeddingServiceError carrying the last cause.
func Retrying(svc driven.EmbeddingService, policy retry.Policy) *RetryingService {
	return &RetryingService{EmbeddingService: svc, policy: policy}
}

// Embed embeds a single text.
func (s *RetryingService) Embed(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, s, text)
}

// EmbedBatch embeds texts, retrying the whole batch on transient failure.
func (s *RetryingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	attempts, err := retry.Do(ctx, s.policy, "embed", func(ctx context.Context) error {
		var err error
		vectors, err = s.EmbeddingService.EmbedBatch(ctx, texts)
		return err
	})
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, &domain.EmbeddingServiceError{
			Model:    s.ModelName(),
			Attempts: attempts,
			Err:      err,
		}
	}
	return vectors, nil
}

// RateLimitedService waits for a token before every backend call.
type RateLimitedService struct {
	driven.EmbeddingService
	limiter *rate.Limiter
}

// RateLimited wraps svc with a token bucket of rps tokens per second.
// A non-positive rps disables throttling.
func RateLimited(svc driven.EmbeddingService, rps float64, burst int) *RateLimitedService {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedService{EmbeddingService: svc, limiter: rate.NewLimiter(limit, burst)}
}

// Embed embeds a single text.
func (s *RateLimitedService) Embed(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, s, text)
}

// EmbedBatch waits for the limiter, then calls the backend.
func (s *RateLimitedService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// Wait fails early when the deadline is closer than the next token.
		return nil, fmt.Errorf("rate limit wait: %w", context.DeadlineExceeded)
	}
	return s.EmbeddingService.EmbedBatch(ctx, texts)
}

// TimeoutService bounds every backend call.
type TimeoutService struct {
	driven.EmbeddingService
	timeout time.Duration
}

// Timeout wraps svc so each call gets at most d. A non-positive d
// disables the bound.
func Timeout(svc driven.EmbeddingService, d time.Duration) *TimeoutService {
	return &TimeoutService{EmbeddingService: svc, timeout: d}
}

// Embed embeds a single text.
func (s *TimeoutService) Embed(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, s, text)
}

// EmbedBatch calls the backend under a derived deadline. The call is
// detached from ctx cancellation so a request already sent completes;
// layers above still observe ctx and stop retrying. Running out of time is
// reported as context.DeadlineExceeded, which retries treat as transient.
func (s *TimeoutService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	callCtx := context.WithoutCancel(ctx)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, s.timeout)
		defer cancel()
	}

	vectors, err := s.EmbeddingService.EmbedBatch(callCtx, texts)
	if err != nil && s.timeout > 0 && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("embedding call exceeded %s: %w", s.timeout, context.DeadlineExceeded)
	}
	return vectors, err
}
