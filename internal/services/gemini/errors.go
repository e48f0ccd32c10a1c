package gemini

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	ErrProvider = errors.New("gemini request failed")

	errDecode = errors.New("invalid response body")
)

type Kind string

const (
	KindRateLimited Kind = "rate_limited"
	KindTimeout     Kind = "timeout"
	KindUpstream    Kind = "upstream"
	KindRejected    Kind = "rejected"
	KindNetwork     Kind = "network"
	KindDecode      Kind = "decode"
)

// HTTPError represents a non-2xx reply from the provider.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d from gemini: %s", e.StatusCode, e.Body)
}

// ProviderError is returned for every failed invocation.
type ProviderError struct {
	Kind     Kind
	Attempts int
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("gemini %s after %d attempt(s): %v", e.Kind, e.Attempts, e.Err)
}

func (e *ProviderError) Unwrap() []error { return []error{ErrProvider, e.Err} }

// Transient reports whether another attempt may succeed.
func (e *ProviderError) Transient() bool {
	switch e.Kind {
	case KindRateLimited, KindTimeout, KindUpstream, KindNetwork:
		return true
	}
	return false
}

func newProviderError(err error) *ProviderError {
	return &ProviderError{Kind: classify(err), Attempts: 1, Err: err}
}

func classify(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == http.StatusTooManyRequests:
			return KindRateLimited
		case httpErr.StatusCode == http.StatusRequestTimeout:
			return KindTimeout
		case httpErr.StatusCode >= 500:
			return KindUpstream
		default:
			return KindRejected
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindNetwork
	}

	if errors.Is(err, errDecode) {
		return KindDecode
	}

	return KindNetwork
}

// IsTransient reports whether err is a provider failure worth retrying.
func IsTransient(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Transient()
	}
	return false
}
