package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aperturebio/slidelake-cli/internal/adapters/driven/storage/sqlite"
	"github.com/aperturebio/slidelake-cli/internal/core/ports/driven"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent ingestion runs",
	Long: `Lists recent ingestion runs from the run journal, most recent
first, including the slides each run skipped and why.`,
	RunE: runRuns,
}

var runsLimit int

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 10, "maximum number of runs to list")

	rootCmd.AddCommand(runsCmd)
}

// newJournal opens the run journal. Package variable so tests can
// substitute a mock.
var newJournal = func() (driven.RunJournal, error) {
	j, err := sqlite.NewJournal(configDir)
	if err != nil {
		return nil, err
	}
	return j, nil
}

func runRuns(cmd *cobra.Command, _ []string) error {
	journal, err := newJournal()
	if err != nil {
		return fmt.Errorf("opening run journal: %w", err)
	}
	defer journal.Close()

	runs, err := journal.ListRuns(context.Background(), runsLimit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	if len(runs) == 0 {
		cmd.Println("No runs recorded.")
		return nil
	}

	for _, run := range runs {
		cmd.Printf("%s  table=%s  started=%s  ingested=%d  skipped=%d  records=%d\n",
			run.RunID, run.Table, run.StartedAt.Format(time.RFC3339),
			run.Processed, run.Skipped, run.Records)
		for _, o := range run.SkippedOutcomes() {
			cmd.Printf("    skipped %s (%s): %s\n", o.SlideID, o.CoordFile, o.Reason)
		}
	}

	return nil
}
