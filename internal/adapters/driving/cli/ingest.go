package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aperturebio/slidelake-cli/internal/adapters/driven/coordindex/parquetidx"
	"github.com/aperturebio/slidelake-cli/internal/adapters/driven/encoder/jpegenc"
	"github.com/aperturebio/slidelake-cli/internal/adapters/driven/slide/imageslide"
	"github.com/aperturebio/slidelake-cli/internal/adapters/driven/storage/parquetstore"
	"github.com/aperturebio/slidelake-cli/internal/adapters/driven/storage/sqlite"
	"github.com/aperturebio/slidelake-cli/internal/core/domain"
	"github.com/aperturebio/slidelake-cli/internal/core/ports/driven"
	"github.com/aperturebio/slidelake-cli/internal/core/ports/driving"
	"github.com/aperturebio/slidelake-cli/internal/core/services"
	"github.com/aperturebio/slidelake-cli/internal/logger"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Extract patches from slides and load them into a table",
	Long: `Reads every coordinate index file (*.idx) in the coordinates
directory, extracts the referenced patches from the matching slide
file, JPEG-encodes them, and appends them to the destination table in
bounded batches.

By default the destination table is replaced. Use --append to add to an
existing table instead. Slides that cannot be processed are skipped and
listed at the end of the run.`,
	RunE: runIngest,
}

var (
	ingestCoordsDir string
	ingestSlidesDir string
	ingestDB        string
	ingestTable     string
	ingestBatchSize int
	ingestSlideExt  string
	ingestAppend    bool
	ingestRollback  bool
	ingestVerify    bool
	ingestNoJournal bool
)

func init() {
	ingestCmd.Flags().StringVar(&ingestCoordsDir, "coords", "", "directory of coordinate index files (required)")
	ingestCmd.Flags().StringVar(&ingestSlidesDir, "slides", "", "directory of whole-slide images (required)")
	ingestCmd.Flags().StringVar(&ingestDB, "db", "", "store directory (default ./db)")
	ingestCmd.Flags().StringVar(&ingestTable, "table", "", "destination table name (default patches)")
	ingestCmd.Flags().IntVar(&ingestBatchSize, "batch-size", 0, "records per batch (default 1000)")
	ingestCmd.Flags().StringVar(&ingestSlideExt, "slide-ext", "", "slide filename extension (default .tif)")
	ingestCmd.Flags().BoolVar(&ingestAppend, "append", false, "append to the table instead of replacing it")
	ingestCmd.Flags().BoolVar(&ingestRollback, "rollback", false, "discard a slide's batches when it fails mid-stream")
	ingestCmd.Flags().BoolVar(&ingestVerify, "verify", false, "read the table back after the run and report its size")
	ingestCmd.Flags().BoolVar(&ingestNoJournal, "no-journal", false, "disable the run journal")
	_ = ingestCmd.MarkFlagRequired("coords")
	_ = ingestCmd.MarkFlagRequired("slides")

	rootCmd.AddCommand(ingestCmd)
}

// newIngestor builds the ingestion pipeline over a store rooted at
// dbPath. Package variable so tests can substitute a mock.
var newIngestor = func(dbPath string, journaled bool) (driving.Ingestor, func(), error) {
	store, err := parquetstore.Open(dbPath)
	if err != nil {
		return nil, nil, err
	}

	var encOpts []jpegenc.Option
	if configStore != nil {
		if q := configStore.GetInt("encoder.jpeg_quality"); q > 0 {
			encOpts = append(encOpts, jpegenc.WithQuality(q))
		}
	}

	var journal *sqlite.Journal
	cleanup := func() {}
	if journaled {
		// A broken journal downgrades to an unjournaled run.
		journal, err = sqlite.NewJournal(configDir)
		if err != nil {
			logger.Warn("Run journal unavailable: %v", err)
			journal = nil
		} else {
			cleanup = func() { journal.Close() }
		}
	}

	ing := services.NewIngestor(
		parquetidx.NewReader(),
		imageslide.NewOpener(),
		jpegenc.New(encOpts...),
		store,
		journalOrNil(journal),
	)
	return ing, cleanup, nil
}

func runIngest(cmd *cobra.Command, _ []string) error {
	if _, err := os.Stat(ingestCoordsDir); err != nil {
		return fmt.Errorf("coordinates directory: %w", err)
	}
	if _, err := os.Stat(ingestSlidesDir); err != nil {
		return fmt.Errorf("slides directory: %w", err)
	}

	dbPath := configString(ingestDB, "store.path", "./db")
	opts := driving.IngestOptions{
		CoordsDir: ingestCoordsDir,
		SlidesDir: ingestSlidesDir,
		Table:     configString(ingestTable, "store.table", "patches"),
		BatchSize: configInt(ingestBatchSize, "ingest.batch_size", 0),
		SlideExt:  configString(ingestSlideExt, "slides.extension", ""),
		Append:    ingestAppend,
		Rollback:  configBool(ingestRollback, "ingest.rollback_on_error"),
	}

	ingestor, cleanup, err := newIngestor(dbPath, !ingestNoJournal)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer cleanup()

	ctx := context.Background()
	cmd.Printf("Ingesting into table %q at %s...\n", opts.Table, dbPath)

	summary, err := ingestWithProgress(ctx, cmd, ingestor, opts)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	cmd.Printf("Run %s finished in %s: %d slides ingested, %d skipped, %d records\n",
		summary.RunID, summary.FinishedAt.Sub(summary.StartedAt).Round(time.Second),
		summary.Processed, summary.Skipped, summary.Records)

	if skipped := summary.SkippedOutcomes(); len(skipped) > 0 {
		cmd.Println("Skipped slides:")
		for _, o := range skipped {
			cmd.Printf("  %s (%s): %s\n", o.SlideID, o.CoordFile, o.Reason)
		}
	}

	if ingestVerify {
		// Verification failure does not change the exit status; the
		// ingestion itself already succeeded.
		report, err := ingestor.Verify(ctx, opts.Table, 5)
		if err != nil {
			logger.Warn("Verification failed: %v", err)
			return nil
		}
		cmd.Printf("Verified table %q: %d records\n", report.Table, report.Count)
		for _, r := range report.Sample {
			cmd.Printf("  %s patch %d at (%d,%d): %d bytes\n",
				r.SlideID, r.Index, r.X, r.Y, len(r.Image))
		}
	}

	return nil
}

// ingestWithProgress runs the ingestor while displaying progress updates.
func ingestWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	ingestor driving.Ingestor,
	opts driving.IngestOptions,
) (*domain.RunSummary, error) {
	type result struct {
		summary *domain.RunSummary
		err     error
	}
	resCh := make(chan result, 1)
	go func() {
		summary, err := ingestor.Ingest(ctx, opts)
		resCh <- result{summary, err}
	}()

	// Poll status every 500ms
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	var lastRecords int64
	for {
		select {
		case res := <-resCh:
			if lastRecords > 0 {
				cmd.Println()
			}
			return res.summary, res.err
		case <-ticker.C:
			// Check progress (ignore status error - best effort)
			status, statusErr := ingestor.Status(ctx)
			if statusErr == nil && status != nil && status.Records > lastRecords {
				cmd.Printf("\r%s... %d records", status.CurrentSlide, status.Records)
				lastRecords = status.Records
			}
		}
	}
}

// journalOrNil converts a possibly-nil *sqlite.Journal into the port
// type without producing a non-nil interface around a nil pointer.
func journalOrNil(j *sqlite.Journal) driven.RunJournal {
	if j == nil {
		return nil
	}
	return j
}
