package domain

import "errors"

var (
	// ErrFetchFailed covers network, auth and timeout failures of a collaborator.
	ErrFetchFailed = errors.New("external fetch failed")
	// ErrExtractionDegraded marks candidates whose metrics could not be observed.
	ErrExtractionDegraded = errors.New("extraction degraded")
	// ErrPersistence is returned when a snapshot or state file cannot be replaced.
	ErrPersistence = errors.New("persistence failed")
	// ErrRateLimited is not a failure: the freshness gate denied the cycle.
	ErrRateLimited = errors.New("rate limited")
)
