package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aperturebio/slidelake-cli/internal/adapters/driven/storage/parquetstore"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [table]",
	Short: "Read a table back and report its contents",
	Long: `Opens the destination table, reports the total record count, and
prints a small sample of records so a completed load can be checked
without external tooling.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

var (
	verifyDB     string
	verifySample int
)

func init() {
	verifyCmd.Flags().StringVar(&verifyDB, "db", "", "store directory (default ./db)")
	verifyCmd.Flags().IntVar(&verifySample, "sample", 5, "number of records to print")

	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	dbPath := configString(verifyDB, "store.path", "./db")
	table := configString("", "store.table", "patches")
	if len(args) > 0 {
		table = args[0]
	}

	ingestor, cleanup, err := newIngestor(dbPath, false)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer cleanup()

	report, err := ingestor.Verify(context.Background(), table, verifySample)
	if err != nil {
		return fmt.Errorf("verify failed: %w", err)
	}

	cmd.Println("Schema:")
	for _, f := range parquetstore.Schema.Fields() {
		cmd.Printf("  %s: %s\n", f.Name, f.Type)
	}
	cmd.Printf("Table %q at %s: %d records\n", report.Table, dbPath, report.Count)
	if len(report.Sample) > 0 {
		cmd.Println("Sample:")
		for _, r := range report.Sample {
			cmd.Printf("  %s patch %d at (%d,%d): %d bytes\n",
				r.SlideID, r.Index, r.X, r.Y, len(r.Image))
		}
	}

	return nil
}
