package driven

import (
	"context"

	"github.com/aperturebio/slidelake-cli/internal/core/domain"
)

// PatchStore opens destination tables in a directory-backed columnar
// store.
type PatchStore interface {
	// CreateTable opens the named table, creating it if needed. With
	// overwrite set, any prior table of the same name is replaced.
	// Without it, an existing table is opened as-is so a run can resume
	// appending into it. Failures other than the already-exists
	// conflict wrap domain.ErrStoreCreation and are run-fatal.
	CreateTable(ctx context.Context, name string, overwrite bool) (PatchTable, error)

	// OpenTable opens an existing table, returning domain.ErrNotFound
	// (wrapped) if it does not exist. Used by the verification read
	// path, which must not create empty tables as a side effect.
	OpenTable(ctx context.Context, name string) (PatchTable, error)
}

// PatchTable is an append-only relation of patch records with the fixed
// schema {wsi_id, patch_idx, coord_x, coord_y, image}.
type PatchTable interface {
	// Append writes one batch, preserving record order and field types
	// exactly per schema. There are no uniqueness or upsert semantics:
	// duplicate (wsi_id, patch_idx) pairs across repeated runs
	// accumulate unless the table was recreated with overwrite.
	// Returns an opaque fragment identifier for the written batch.
	Append(ctx context.Context, batch domain.Batch) (string, error)

	// DiscardFragments removes previously appended fragments. The
	// ingestor uses this to roll back a slide's partial output when
	// all-or-nothing mode is configured.
	DiscardFragments(ctx context.Context, fragments []string) error

	// Count returns the total number of records in the table.
	Count(ctx context.Context) (int64, error)

	// CountSlide returns the number of records carrying the given slide
	// identifier, so callers needing all-or-nothing guarantees can
	// post-validate against the expected coordinate count.
	CountSlide(ctx context.Context, slideID string) (int64, error)

	// Sample returns up to n records in append order.
	Sample(ctx context.Context, n int) ([]domain.PatchRecord, error)
}
