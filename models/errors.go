package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for the pipeline. Wrapped variants must satisfy errors.Is.
var (
	// ErrDuplicateArticle means ingestion saw an article that already exists
	// (exact URL or fuzzy title match). Non-fatal: the candidate is skipped.
	ErrDuplicateArticle = errors.New("duplicate article")

	// ErrTranslationUnavailable means both translation providers failed and
	// the article state was left unchanged.
	ErrTranslationUnavailable = errors.New("translation unavailable")

	// ErrNotFound means the requested article does not exist.
	ErrNotFound = errors.New("article not found")

	// ErrNoTranslation means an operator tried to edit the translation of an
	// article that has not been translated yet.
	ErrNoTranslation = errors.New("article has no translation to edit")
)

// InvalidTransitionError reports a requested workflow edge that is not in
// the legal transition table. The record is left unchanged.
type InvalidTransitionError struct {
	ID   uint
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition for article %d: %s -> %s", e.ID, e.From, e.To)
}

// ConflictError reports that a concurrent transition on the same article won
// the race. The caller should reread and retry if the move is still wanted.
type ConflictError struct {
	ID       uint
	Expected Status
	Actual   Status
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("concurrent transition conflict for article %d: expected %s, found %s", e.ID, e.Expected, e.Actual)
}

// TransportError wraps a failed outbound HTTP call. Retryable marks failures
// worth retrying with backoff (network errors, 429, 5xx); callers never see
// proxy details.
type TransportError struct {
	Op         string
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// PublishError reports an exhausted publish attempt. The article remains in
// approved_for_publish so it can be retried later.
type PublishError struct {
	ID       uint
	Attempts int
	Err      error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish failed for article %d after %d attempts: %v", e.ID, e.Attempts, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }
