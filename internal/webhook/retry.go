package webhook

import (
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"
)

// Backoff returns the delay before retry number attempt (1-based):
// InitialDelay * Multiplier^(attempt-1), capped at MaxDelay, with ±10% jitter.
func (c *RetryConfig) Backoff(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(attempt-1))
	if delay > float64(c.MaxDelay) {
		delay = float64(c.MaxDelay)
	}

	jitter := delay * 0.1
	delay = delay + (rand.Float64()*2-1)*jitter

	return time.Duration(delay)
}

// nextDelay honours a server-supplied Retry-After when it asks for longer
// than the computed backoff, still bounded by MaxDelay.
func (c *RetryConfig) nextDelay(attempt int, retryAfter time.Duration) time.Duration {
	delay := c.Backoff(attempt)
	if retryAfter > delay {
		delay = min(retryAfter, c.MaxDelay)
	}
	return delay
}

// parseRetryAfter reads a Retry-After header in either delta-seconds or
// HTTP-date form. Unparseable or past values yield zero.
func parseRetryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// isRetryableStatus checks if an HTTP status code should trigger a retry
func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
