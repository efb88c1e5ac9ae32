// Package resilience provides the send-time fault tolerance applied by
// httpkit clients.
//
//   - Retry: re-runs an attempt with exponential backoff while the error is retryable
//   - CircuitBreaker: fails fast after repeated transport failures
//   - Bulkhead: caps the number of concurrent exchanges
//   - RateLimiter: token bucket on golang.org/x/time/rate
//
// A client composes them in a fixed order: rate limiter wait, bulkhead slot,
// circuit breaker, retry.
//
//	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: 100, Burst: 20})
//	bh := resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 10})
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("orders"))
//
//	if err := rl.Wait(ctx); err != nil {
//	    return err
//	}
//	release, err := bh.Acquire(ctx)
//	if err != nil {
//	    return err
//	}
//	defer release()
//	return cb.Execute(func() error {
//	    return resilience.RetryFunc(ctx, resilience.DefaultRetryConfig(), send)
//	})
package resilience
