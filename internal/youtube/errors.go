package youtube

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"
)

// ErrNoCredentials is returned when a client is constructed without any API keys.
var ErrNoCredentials = errors.New("at least one YouTube API key is required")

// quotaReasons are the machine-readable error reasons that indicate the calling
// credential has exhausted its allowance. Only these trigger credential rotation;
// every other API error is terminal because retrying it wastes quota.
var quotaReasons = map[string]bool{
	"quotaExceeded":         true,
	"dailyLimitExceeded":    true,
	"userRateLimitExceeded": true,
	"rateLimitExceeded":     true,
}

// QuotaExhaustedError is returned when every configured credential failed with a
// quota-class error. It is distinct from a generic API failure so callers can report
// the run as quota-starved rather than broken.
type QuotaExhaustedError struct {
	Attempts int
	Last     error
}

func (e *QuotaExhaustedError) Error() string {
	return fmt.Sprintf("all %d YouTube API keys exhausted (quota/rate limit): %v", e.Attempts, e.Last)
}

func (e *QuotaExhaustedError) Unwrap() error {
	return e.Last
}

// IsQuotaExhausted reports whether err represents full credential-pool exhaustion.
func IsQuotaExhausted(err error) bool {
	var qe *QuotaExhaustedError
	return errors.As(err, &qe)
}

// IsQuotaError reports whether err carries one of the quota-class reason codes.
func IsQuotaError(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, item := range apiErr.Errors {
		if quotaReasons[item.Reason] {
			return true
		}
	}
	return false
}

// isRetryable decides whether an attempt may rotate to the next credential.
// Quota-class failures rotate by definition. Timeouts and 5xx rotate too: it is
// ambiguous whether the quota was consumed, so the next credential is tried within
// the same bounded budget.
func isRetryable(err error) bool {
	if IsQuotaError(err) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code >= 500 {
		return true
	}
	return false
}
