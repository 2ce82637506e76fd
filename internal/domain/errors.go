package domain

import "fmt"

// FetchErrorKind classifies why a source contributed nothing.
type FetchErrorKind string

const (
	// FetchUnreachable covers transport errors and non-success statuses.
	FetchUnreachable FetchErrorKind = "unreachable"
	// FetchUnparseable covers malformed payloads from a reachable endpoint.
	FetchUnparseable FetchErrorKind = "unparseable"
)

// FetchError is the typed failure a source adapter returns instead of
// raising. It lets the orchestrator distinguish "empty because nothing
// found" from "empty because of failure" and surface the latter in the
// run summary.
type FetchError struct {
	Source string
	Kind   FetchErrorKind
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("source %s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError wraps err as a FetchError for the named source.
func NewFetchError(source string, kind FetchErrorKind, err error) *FetchError {
	return &FetchError{Source: source, Kind: kind, Err: err}
}
