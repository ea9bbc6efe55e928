package domain

import "errors"

var (
	// ErrSourceUnavailable aborts a whole run: the candidate list could not be obtained.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrItemFetchFailed affects a single candidate.
	ErrItemFetchFailed = errors.New("item fetch failed")
	// ErrTransformUnavailable leaves the item unmarked so a later run retries it.
	ErrTransformUnavailable = errors.New("transform unavailable")
	// ErrNotRelevant is the summarizer's explicit rejection; the item is marked and never published.
	ErrNotRelevant = errors.New("not relevant")
	ErrStore       = errors.New("store failure")
	ErrIneligible  = errors.New("item not eligible")
	// ErrRunInProgress is returned when a run of the same kind is already in flight.
	ErrRunInProgress = errors.New("run already in progress")
)
