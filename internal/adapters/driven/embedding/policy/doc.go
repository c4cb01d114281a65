// Package policy wraps any driven.EmbeddingService with cross-cutting
// behaviour: batching, retries, rate limiting, per-call timeouts and
// caching. Each decorator is itself an EmbeddingService, so they compose:
//
//	svc := Batching(Cached(Retrying(Timeout(RateLimited(backend, 5, 1), 30*time.Second), p), cache), 100)
//
// Order matters. Retrying outside Timeout gives every attempt a fresh
// deadline; Cached outside Retrying never caches a failure.
package policy
