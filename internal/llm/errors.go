package llm

import (
	"errors"
	"fmt"
)

// ProviderError indicates that a call to an external provider (embedding or
// language model) failed: network trouble, auth rejection, quota exhaustion,
// or an unexpected status. Retryable errors may be retried with bounded
// backoff via Retry; non-retryable ones (auth, bad request) fail immediately.
type ProviderError struct {
	Provider  string // "openai", "ollama", "anthropic"
	Op        string // "complete", "embed"
	Retryable bool
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ParseError indicates that a provider responded successfully but the
// response body violated the expected JSON shape. Parse errors never reach
// callers of the metadata extractor (it falls back deterministically); the
// classifier converts them into a typed ClassificationError instead.
type ParseError struct {
	Op  string // which parser failed, e.g. "classification", "metadata"
	Raw string // the offending response text, truncated for logs
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s response: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// newParseError builds a ParseError with the raw response truncated to keep
// log lines bounded.
func newParseError(op, raw string, err error) *ParseError {
	const maxRaw = 200
	if len(raw) > maxRaw {
		raw = raw[:maxRaw]
	}
	return &ParseError{Op: op, Raw: raw, Err: err}
}

// IsRetryable reports whether err is a provider failure that may succeed on
// retry. Circuit-open errors are not retryable: the breaker already decided
// the provider is down.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrCircuitOpen) {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}
