package driven

import (
	"context"

	"github.com/aperturebio/slidelake-cli/internal/core/domain"
)

// CoordinateSource reads per-slide coordinate index files.
type CoordinateSource interface {
	// Open reads the coordinate set stored at path. The set's length is
	// known on return so callers can window batches and report
	// progress.
	//
	// Returns domain.ErrNotFound (wrapped) if the file does not exist
	// and domain.ErrMalformedCoordinateFile (wrapped) if the required
	// coordinate columns are absent. Sampling metadata missing from the
	// file falls back to domain.DefaultLevel and
	// domain.DefaultPatchSize.
	Open(ctx context.Context, path string) (*domain.CoordinateSet, error)
}
