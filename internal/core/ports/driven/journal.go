package driven

import (
	"context"

	"github.com/aperturebio/slidelake-cli/internal/core/domain"
)

// RunJournal persists per-run and per-slide outcomes so operators can
// find skipped slides after the fact and re-run them selectively.
// Journal failures never abort an ingestion run; they are logged and
// the run proceeds.
type RunJournal interface {
	// BeginRun records the start of a run.
	BeginRun(ctx context.Context, run *domain.RunSummary) error

	// RecordSlide records one slide's terminal outcome.
	RecordSlide(ctx context.Context, runID string, outcome domain.SlideOutcome) error

	// FinishRun records the run's final counts and finish time.
	FinishRun(ctx context.Context, run *domain.RunSummary) error

	// ListRuns returns up to limit runs, most recent first, with their
	// per-slide outcomes attached.
	ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error)

	// Close releases the journal.
	Close() error
}
