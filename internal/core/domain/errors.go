package domain

import "errors"

// Domain errors represent pipeline failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Per-slide errors. Each of these skips the affected slide; the run
	// continues with the next one.

	// ErrMissingSlideFile indicates a coordinate index exists but no
	// matching slide file does.
	ErrMissingSlideFile = errors.New("missing slide file")

	// ErrMalformedCoordinateFile indicates the required coordinate
	// columns are absent from an index file.
	ErrMalformedCoordinateFile = errors.New("malformed coordinate file")

	// ErrRegionExtraction indicates a region could not be decoded from
	// a slide, e.g. an out-of-bounds read or a corrupt tile. It aborts
	// the remaining coordinates of that slide only; batches already
	// appended for the slide are kept unless rollback mode is on.
	ErrRegionExtraction = errors.New("region extraction failed")

	// Run-fatal errors.

	// ErrStoreCreation indicates the destination table could not be
	// created or opened. There is no per-slide fallback for this; the
	// whole run aborts.
	ErrStoreCreation = errors.New("store creation failed")

	// ErrSlideClosed indicates a region read on a closed slide handle.
	ErrSlideClosed = errors.New("slide closed")
)
