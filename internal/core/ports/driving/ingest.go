package driving

import (
	"context"

	"github.com/aperturebio/slidelake-cli/internal/core/domain"
)

// Ingestor drives the patch extraction and ingestion pipeline.
type Ingestor interface {
	// Ingest processes every coordinate index file under
	// opts.CoordsDir, extracting and appending patches slide by slide.
	// Per-slide failures are contained and reported in the summary;
	// only store initialization failures (and input enumeration
	// failures) return an error.
	Ingest(ctx context.Context, opts IngestOptions) (*domain.RunSummary, error)

	// Verify reads the table back: total record count plus up to n
	// sample records.
	Verify(ctx context.Context, table string, n int) (*VerifyReport, error)

	// Status returns a snapshot of the run in flight, for progress
	// display.
	Status(ctx context.Context) (*IngestStatus, error)
}

// IngestOptions configures one ingestion run.
type IngestOptions struct {
	// CoordsDir holds the per-slide coordinate index files.
	CoordsDir string

	// SlidesDir holds the slide files, named {slide_id}{SlideExt}.
	SlidesDir string

	// Table is the destination table name.
	Table string

	// Append opens an existing table instead of recreating it. Repeat
	// runs in append mode accumulate duplicate records.
	Append bool

	// Rollback switches the per-slide failure policy from best-effort
	// (keep batches appended before the failure) to all-or-nothing
	// (discard the slide's fragments).
	Rollback bool

	// BatchSize caps records held in memory before a flush. Zero means
	// domain.DefaultBatchSize.
	BatchSize int

	// SlideExt is the slide filename extension including the dot. Empty
	// means the configured default.
	SlideExt string
}

// IngestStatus is a point-in-time view of a running ingestion.
type IngestStatus struct {
	// Running reports whether an ingestion is in flight.
	Running bool

	// CurrentSlide is the slide being streamed, if any.
	CurrentSlide string

	// SlidesProcessed and SlidesSkipped count terminal slide outcomes
	// so far.
	SlidesProcessed int
	SlidesSkipped   int

	// Records counts records appended so far across all slides.
	Records int64
}

// VerifyReport is the result of a verification read-back.
type VerifyReport struct {
	// Table is the table that was read.
	Table string

	// Count is the total number of records.
	Count int64

	// Sample holds up to the requested number of records, in append
	// order.
	Sample []domain.PatchRecord
}
