package domain

import "time"

// SlideStatus is the terminal state of one slide's pipeline.
type SlideStatus string

const (
	// SlideIngested means every coordinate of the slide produced a
	// record in the destination table.
	SlideIngested SlideStatus = "ingested"

	// SlideSkipped means the slide contributed no further records:
	// either nothing at all, or only the batches appended before a
	// mid-stream failure.
	SlideSkipped SlideStatus = "skipped"
)

// SlideOutcome records how one slide's processing terminated. Failures
// are values here, not exceptions: the ingestor contains them at the
// slide boundary and moves on.
type SlideOutcome struct {
	// SlideID is the slide identifier.
	SlideID string

	// CoordFile is the coordinate index file basename, named so
	// operators can investigate skipped slides.
	CoordFile string

	// Status is the terminal state.
	Status SlideStatus

	// Reason is empty for ingested slides and names the failure for
	// skipped ones.
	Reason string

	// Records is the number of records appended for this slide. It can
	// be non-zero for a skipped slide: batches flushed before a
	// mid-stream failure are kept unless rollback mode is on.
	Records int64
}

// Ingested reports whether the slide completed fully.
func (o SlideOutcome) Ingested() bool {
	return o.Status == SlideIngested
}

// RunSummary aggregates the outcomes of one ingestion run.
type RunSummary struct {
	// RunID uniquely identifies the run.
	RunID string

	// Table is the destination table name.
	Table string

	// StartedAt and FinishedAt bound the run in UTC.
	StartedAt  time.Time
	FinishedAt time.Time

	// Processed counts slides that ingested fully.
	Processed int

	// Skipped counts slides that did not.
	Skipped int

	// Records is the total number of records appended.
	Records int64

	// Outcomes holds the per-slide results in processing order.
	Outcomes []SlideOutcome
}

// SkippedOutcomes returns the outcomes of slides that did not ingest
// fully, in processing order.
func (s *RunSummary) SkippedOutcomes() []SlideOutcome {
	var skipped []SlideOutcome
	for _, o := range s.Outcomes {
		if !o.Ingested() {
			skipped = append(skipped, o)
		}
	}
	return skipped
}
