// Package httputil provides HTTP utilities for outbound API clients.
//
// # Overview
//
// This package provides infrastructure shared by the clients that talk
// to external services, most notably the vision-scoring client:
//
//   - [Cache]: File-based HTTP response caching
//   - [Retry]: Automatic retry with exponential backoff
//
// # Caching
//
// [Cache] stores HTTP responses in the filesystem (~/.cache/wiretidy/)
// with configurable TTL. Scoring the same snapshot twice should not cost
// a second API round trip.
//
// Usage:
//
//	cache, err := httputil.NewCache("", 24*time.Hour)
//	var score float64
//	if ok, _ := cache.Get("score:"+imageHash, &score); !ok {
//	    score = requestScore(image)
//	    cache.Set("score:"+imageHash, score)
//	}
//
// Cache keys should be namespaced by client to avoid collisions.
//
// # Retry
//
// [Retry] wraps HTTP requests with automatic retry for transient
// failures:
//
//   - Network errors
//   - 5xx server errors
//   - 429 rate limit responses
//
// Wrap transient errors with [RetryableError] so the helper knows which
// failures are worth another attempt:
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    return callScoringAPI()
//	})
//
// # Configuration
//
// Default settings are suitable for most use cases:
//
//   - Cache directory: ~/.cache/wiretidy/
//   - Default TTL: 24 hours
//   - Max retries: 3
//   - Base backoff: 2 seconds
//
// The cache can be cleared via `wiretidy cache clear` or by deleting
// the cache directory.
package httputil
