// Provider error taxonomy.
//
// Every failure returned by an Embedder or Completer is classified into one
// of a small set of causes so callers can branch exhaustively instead of
// inspecting raw status codes. The HTTP layer maps each Kind to a distinct
// response; the retrieval pipeline only cares that an error occurred.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"

	openai "github.com/sashabaranov/go-openai"
)

// Kind identifies the cause of a provider failure.
type Kind int

const (
	// KindUnauthorized: the configured credential was rejected (401/403).
	KindUnauthorized Kind = iota
	// KindRateLimited: the provider throttled the request (429).
	KindRateLimited
	// KindProviderFault: the provider failed server-side (5xx), returned an
	// unusable response, or the call exceeded its deadline. Timeouts are
	// deliberately treated the same as remote faults.
	KindProviderFault
	// KindNetwork: the request never completed at the transport level.
	KindNetwork
)

// String returns a stable machine-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindRateLimited:
		return "rate_limited"
	case KindProviderFault:
		return "provider_fault"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Error is a classified provider failure.
type Error struct {
	Kind   Kind
	Status int // HTTP status from the provider, 0 when not applicable
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("llm: %s", e.Kind)
	}
	return fmt.Sprintf("llm: %s: %v", e.Kind, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the classified kind from err. Unclassified errors report
// KindProviderFault, matching the "generic failure" bucket.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindProviderFault
}

// classify wraps a raw go-openai error into a tagged *Error.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &Error{Kind: kindFromStatus(apiErr.HTTPStatusCode), Status: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &Error{Kind: kindFromStatus(reqErr.HTTPStatusCode), Status: reqErr.HTTPStatusCode, Err: err}
	}

	// Deadline expiry counts as a provider fault, not a network problem.
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindProviderFault, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return &Error{Kind: KindProviderFault, Err: err}
		}
		return &Error{Kind: KindNetwork, Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &Error{Kind: KindNetwork, Err: err}
	}

	return &Error{Kind: KindProviderFault, Err: err}
}

// kindFromStatus maps a provider HTTP status to a Kind.
func kindFromStatus(status int) Kind {
	switch {
	case status == 401 || status == 403:
		return KindUnauthorized
	case status == 429:
		return KindRateLimited
	default:
		return KindProviderFault
	}
}
