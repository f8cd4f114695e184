package engine

import "fmt"

// ClassificationError indicates that content could not be classified: the
// model response was malformed or the provider failed. The content is NOT
// stored; callers surface the error rather than guessing a route.
type ClassificationError struct {
	Reason string
	Err    error
}

func (e *ClassificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("classification failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("classification failed: %s", e.Reason)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

// ValidationError indicates that a request was rejected before any model or
// storage call: empty content, missing owner, or an unknown context.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
