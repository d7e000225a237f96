package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Sentinel errors for provider failures. Handlers map these onto HTTP
// status codes; the retry loop keys off them to decide whether another
// attempt is worthwhile.
var (
	// ErrProviderUnavailable indicates the backend could not be reached or
	// returned a server-side failure. Retryable.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrRateLimited indicates the backend rejected the call due to quota
	// or rate limits. Retryable with backoff.
	ErrRateLimited = errors.New("provider rate limited")

	// ErrMisconfigured indicates bad credentials or an unknown model. Not
	// retryable; the caller must fix the provider settings.
	ErrMisconfigured = errors.New("provider misconfigured")
)

// IsRetryable reports whether another attempt against the provider could
// succeed without a configuration change.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable) || errors.Is(err, ErrRateLimited)
}

// classifyStatus maps an HTTP status from a provider API onto the sentinel
// taxonomy. The body snippet is included for diagnostics but never contains
// credentials.
func classifyStatus(provider string, status int, body string) error {
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%s returned %d: %s: %w", provider, status, body, ErrRateLimited)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%s rejected credentials (%d): %w", provider, status, ErrMisconfigured)
	case status == http.StatusNotFound || status == http.StatusBadRequest:
		return fmt.Errorf("%s returned %d: %s: %w", provider, status, body, ErrMisconfigured)
	case status >= 500:
		return fmt.Errorf("%s returned %d: %s: %w", provider, status, body, ErrProviderUnavailable)
	default:
		return fmt.Errorf("%s returned unexpected status %d: %s: %w", provider, status, body, ErrProviderUnavailable)
	}
}

// classifyTransport maps transport-level failures (connection refused, DNS,
// timeouts) onto the taxonomy. Context cancellation passes through untouched
// so callers can distinguish their own deadlines from provider faults.
func classifyTransport(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%s request timed out: %w", provider, ErrProviderUnavailable)
	}
	return fmt.Errorf("%s unreachable: %v: %w", provider, err, ErrProviderUnavailable)
}
