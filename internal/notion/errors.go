package notion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"syscall"
	"time"
)

// Error codes returned by the API that affect retry decisions.
const (
	CodeRateLimited = "rate_limited"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Status     int
	Code       string
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("notion api error (%d): %s - %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("notion api returned status %d", e.Status)
}

// IsRetryable reports whether err is a transient failure worth retrying:
// rate limiting, gateway errors, and network-level failures.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// Only the per-request client timeout surfaces as DeadlineExceeded inside a url.Error.
		var ue *url.Error
		return errors.As(err, &ue) && ue.Timeout()
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case 429, 502, 503, 504:
			return true
		}
		return apiErr.Code == CodeRateLimited
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	// Any other transport failure from http.Client.Do.
	var ue *url.Error
	return errors.As(err, &ue)
}

// retryAfter returns the server-provided wait for err, or zero.
func retryAfter(err error) time.Duration {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.RetryAfter
	}
	return 0
}
