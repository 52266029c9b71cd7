package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aperturebio/slidelake-cli/internal/core/domain"
	"github.com/aperturebio/slidelake-cli/internal/core/ports/driven"
	"github.com/aperturebio/slidelake-cli/internal/core/ports/driving"
	"github.com/aperturebio/slidelake-cli/internal/logger"
)

// CoordExt is the fixed extension of coordinate index files. The file
// basename is the slide identifier.
const CoordExt = ".idx"

// DefaultSlideExt is the slide filename extension used when none is
// configured.
const DefaultSlideExt = ".tif"

// Ensure Ingestor implements the interface.
var _ driving.Ingestor = (*Ingestor)(nil)

// Ingestor coordinates the patch ingestion pipeline across slides.
type Ingestor struct {
	coords  driven.CoordinateSource
	slides  driven.SlideOpener
	encoder driven.PatchEncoder
	store   driven.PatchStore
	journal driven.RunJournal // optional; nil disables journaling

	// Status tracking
	mu     sync.RWMutex
	status driving.IngestStatus
}

// NewIngestor creates a new ingestor over the given ports. The journal
// is optional; pass nil to disable run journaling.
func NewIngestor(
	coords driven.CoordinateSource,
	slides driven.SlideOpener,
	encoder driven.PatchEncoder,
	store driven.PatchStore,
	journal driven.RunJournal,
) *Ingestor {
	return &Ingestor{
		coords:  coords,
		slides:  slides,
		encoder: encoder,
		store:   store,
		journal: journal,
	}
}

// Ingest processes every coordinate index file under opts.CoordsDir.
// Each slide moves through DISCOVERED -> OPENED -> STREAMING -> CLOSED,
// with failures diverting to SKIPPED; a skip never aborts the run. Only
// table initialization, input enumeration, and an empty input directory
// are fatal.
func (ing *Ingestor) Ingest(ctx context.Context, opts driving.IngestOptions) (*domain.RunSummary, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = domain.DefaultBatchSize
	}
	if opts.SlideExt == "" {
		opts.SlideExt = DefaultSlideExt
	}

	entries, err := os.ReadDir(opts.CoordsDir)
	if err != nil {
		return nil, fmt.Errorf("reading coordinate directory: %w", err)
	}

	var coordFiles []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), CoordExt) {
			continue
		}
		coordFiles = append(coordFiles, entry.Name())
	}
	if len(coordFiles) == 0 {
		// Refuse before touching the table: in overwrite mode an
		// empty input directory would wipe it for nothing.
		return nil, fmt.Errorf("%w: no %s files in %s", domain.ErrNotFound, CoordExt, opts.CoordsDir)
	}
	logger.Info("Found %d coordinate files in %s", len(coordFiles), opts.CoordsDir)

	table, err := ing.store.CreateTable(ctx, opts.Table, !opts.Append)
	if err != nil {
		return nil, fmt.Errorf("create table %s: %w", opts.Table, err)
	}

	summary := &domain.RunSummary{
		RunID:     uuid.New().String(),
		Table:     opts.Table,
		StartedAt: time.Now().UTC(),
	}
	ing.journalBegin(ctx, summary)

	ing.setStatus(driving.IngestStatus{Running: true})
	defer ing.clearStatus()

	for _, name := range coordFiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		slideID := strings.TrimSuffix(name, CoordExt)
		ing.setCurrentSlide(slideID)

		outcome := ing.processSlide(ctx, table, opts, filepath.Join(opts.CoordsDir, name), slideID)
		summary.Outcomes = append(summary.Outcomes, outcome)
		summary.Records += outcome.Records
		if outcome.Ingested() {
			summary.Processed++
		} else {
			summary.Skipped++
			logger.Warn("Skipped slide %s (%s): %s", outcome.SlideID, outcome.CoordFile, outcome.Reason)
		}
		ing.recordOutcome(outcome)
		ing.journalSlide(ctx, summary.RunID, outcome)
	}

	summary.FinishedAt = time.Now().UTC()
	ing.journalFinish(ctx, summary)

	logger.Info("Ingest complete: %d slides processed, %d skipped, %d records",
		summary.Processed, summary.Skipped, summary.Records)
	return summary, nil
}

// processSlide runs one slide's pipeline and returns its terminal
// outcome. All failure paths inside the slide are converted to a
// Skipped outcome here; nothing propagates to the run loop.
func (ing *Ingestor) processSlide(
	ctx context.Context,
	table driven.PatchTable,
	opts driving.IngestOptions,
	coordPath string,
	slideID string,
) domain.SlideOutcome {
	outcome := domain.SlideOutcome{
		SlideID:   slideID,
		CoordFile: filepath.Base(coordPath),
		Status:    domain.SlideSkipped,
	}

	slidePath := filepath.Join(opts.SlidesDir, slideID+opts.SlideExt)
	if _, err := os.Stat(slidePath); err != nil {
		outcome.Reason = fmt.Sprintf("%v: %s", domain.ErrMissingSlideFile, slidePath)
		return outcome
	}

	set, err := ing.coords.Open(ctx, coordPath)
	if err != nil {
		outcome.Reason = fmt.Sprintf("open coordinates: %v", err)
		return outcome
	}

	slide, err := ing.slides.Open(slidePath)
	if err != nil {
		outcome.Reason = fmt.Sprintf("open slide: %v", err)
		return outcome
	}
	// Guaranteed-release: the handle closes on every exit path before
	// the next slide is touched.
	defer slide.Close()

	logger.Debug("Processing %d patches from %s (level=%d, size=%d)",
		set.Len(), slideID, set.Level, set.PatchSize)

	var fragments []string
	var appended int64

	fail := func(stage string, idx int, err error) domain.SlideOutcome {
		outcome.Reason = fmt.Sprintf("%s at patch %d: %v", stage, idx, err)
		outcome.Records = appended
		if opts.Rollback && len(fragments) > 0 {
			if derr := table.DiscardFragments(ctx, fragments); derr != nil {
				logger.Warn("Rollback of %s left %d fragment(s) behind: %v", slideID, len(fragments), derr)
			} else {
				outcome.Records = 0
			}
		}
		return outcome
	}

	for start := 0; start < set.Len(); start += opts.BatchSize {
		end := start + opts.BatchSize
		if end > set.Len() {
			end = set.Len()
		}

		batch := make(domain.Batch, 0, end-start)
		for i := start; i < end; i++ {
			coord := set.At(i)
			img, err := slide.ReadRegion(coord.X, coord.Y, set.Level, set.PatchSize)
			if err != nil {
				return fail("extract region", i, err)
			}
			data, err := ing.encoder.Encode(img)
			if err != nil {
				return fail("encode patch", i, err)
			}
			batch = append(batch, domain.PatchRecord{
				SlideID: slideID,
				Index:   int64(i),
				X:       coord.X,
				Y:       coord.Y,
				Image:   data,
			})
		}

		fragment, err := table.Append(ctx, batch)
		if err != nil {
			return fail("append batch", start, err)
		}
		fragments = append(fragments, fragment)
		appended += int64(len(batch))
		ing.addRecords(int64(len(batch)))
		// The batch is released here; memory stays bounded by the
		// window size regardless of coordinate count.
	}

	outcome.Status = domain.SlideIngested
	outcome.Records = appended
	return outcome
}

// Verify reads the destination table back for post-run checking.
func (ing *Ingestor) Verify(ctx context.Context, tableName string, n int) (*driving.VerifyReport, error) {
	table, err := ing.store.OpenTable(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("open table %s: %w", tableName, err)
	}

	count, err := table.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}

	sample, err := table.Sample(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("sample records: %w", err)
	}

	return &driving.VerifyReport{Table: tableName, Count: count, Sample: sample}, nil
}

// Status returns a snapshot of the run in flight.
func (ing *Ingestor) Status(_ context.Context) (*driving.IngestStatus, error) {
	ing.mu.RLock()
	defer ing.mu.RUnlock()

	// Return a copy to avoid race conditions
	status := ing.status
	return &status, nil
}

func (ing *Ingestor) setStatus(status driving.IngestStatus) {
	ing.mu.Lock()
	defer ing.mu.Unlock()
	ing.status = status
}

func (ing *Ingestor) clearStatus() {
	ing.mu.Lock()
	defer ing.mu.Unlock()
	ing.status.Running = false
	ing.status.CurrentSlide = ""
}

func (ing *Ingestor) setCurrentSlide(slideID string) {
	ing.mu.Lock()
	defer ing.mu.Unlock()
	ing.status.CurrentSlide = slideID
}

func (ing *Ingestor) recordOutcome(outcome domain.SlideOutcome) {
	ing.mu.Lock()
	defer ing.mu.Unlock()
	if outcome.Ingested() {
		ing.status.SlidesProcessed++
	} else {
		ing.status.SlidesSkipped++
	}
}

func (ing *Ingestor) addRecords(n int64) {
	ing.mu.Lock()
	defer ing.mu.Unlock()
	ing.status.Records += n
}

// Journal writes are best-effort: a journaling failure is logged and
// never aborts the run.

func (ing *Ingestor) journalBegin(ctx context.Context, run *domain.RunSummary) {
	if ing.journal == nil {
		return
	}
	if err := ing.journal.BeginRun(ctx, run); err != nil {
		logger.Warn("Journal begin failed: %v", err)
	}
}

func (ing *Ingestor) journalSlide(ctx context.Context, runID string, outcome domain.SlideOutcome) {
	if ing.journal == nil {
		return
	}
	if err := ing.journal.RecordSlide(ctx, runID, outcome); err != nil {
		logger.Warn("Journal record for slide %s failed: %v", outcome.SlideID, err)
	}
}

func (ing *Ingestor) journalFinish(ctx context.Context, run *domain.RunSummary) {
	if ing.journal == nil {
		return
	}
	if err := ing.journal.FinishRun(ctx, run); err != nil {
		logger.Warn("Journal finish failed: %v", err)
	}
}
