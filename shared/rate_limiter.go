package shared

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RequestRateLimiter enforces a minimum delay between successive
// requests to the upstream open-data API. The delay is a politeness
// throttle, not a correctness requirement, but dropping it risks the
// upstream blocking the sync entirely.
type RequestRateLimiter struct {
	minimumDelay    time.Duration
	lastRequestTime time.Time
	mutex           sync.Mutex
	requestCount    int64
}

// NewRequestRateLimiter creates a rate limiter with the given minimum
// delay between requests.
func NewRequestRateLimiter(minimumDelay time.Duration) *RequestRateLimiter {
	return &RequestRateLimiter{
		minimumDelay:    minimumDelay,
		lastRequestTime: time.Now().Add(-minimumDelay),
	}
}

// EnforceRateLimit blocks until the minimum delay has elapsed since the
// previous request.
func (limiter *RequestRateLimiter) EnforceRateLimit() {
	limiter.mutex.Lock()
	defer limiter.mutex.Unlock()

	elapsed := time.Since(limiter.lastRequestTime)
	if elapsed < limiter.minimumDelay {
		remaining := limiter.minimumDelay - elapsed

		logrus.WithFields(logrus.Fields{
			"component":       "RequestRateLimiter",
			"elapsed_time":    elapsed,
			"minimum_delay":   limiter.minimumDelay,
			"remaining_delay": remaining,
			"request_count":   limiter.requestCount + 1,
		}).Debug("Enforcing rate limit delay")

		time.Sleep(remaining)
	}

	limiter.lastRequestTime = time.Now()
	limiter.requestCount++
}

// RequestCount returns the total number of requests processed.
func (limiter *RequestRateLimiter) RequestCount() int64 {
	limiter.mutex.Lock()
	defer limiter.mutex.Unlock()
	return limiter.requestCount
}
