// Package cli implements the slidelake command-line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/aperturebio/slidelake-cli/internal/adapters/driven/config/file"
	"github.com/aperturebio/slidelake-cli/internal/core/ports/driven"
	"github.com/aperturebio/slidelake-cli/internal/logger"
)

// version is set at build time via ldflags.
var version = "0.1.0"

var (
	verbose   bool
	configDir string

	// configStore supplies persisted defaults for flags. Left nil when
	// the config file cannot be loaded; flag defaults apply then.
	configStore driven.ConfigStore
)

var rootCmd = &cobra.Command{
	Use:   "slidelake",
	Short: "Bulk-load whole-slide image patches into a columnar table",
	Long: `slidelake reads per-slide coordinate index files, extracts the
referenced patches from whole-slide images, JPEG-encodes them, and
bulk-loads them in bounded batches into a Parquet-backed table.

A slide that cannot be processed is skipped and reported; it never
aborts the run.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)

		if configStore == nil {
			store, err := file.NewConfigStore(configDir)
			if err != nil {
				logger.Warn("Config file unavailable: %v", err)
				return
			}
			configStore = store
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default ~/.slidelake)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// configString resolves a string setting: explicit flag value first,
// then the config file, then the built-in fallback.
func configString(flagVal, key, fallback string) string {
	if flagVal != "" {
		return flagVal
	}
	if configStore != nil {
		if v := configStore.GetString(key); v != "" {
			return v
		}
	}
	return fallback
}

// configInt resolves an integer setting the same way.
func configInt(flagVal int, key string, fallback int) int {
	if flagVal > 0 {
		return flagVal
	}
	if configStore != nil {
		if v := configStore.GetInt(key); v > 0 {
			return v
		}
	}
	return fallback
}

// configBool resolves a boolean setting. The flag can only turn the
// setting on; the config file supplies the default when it is off.
func configBool(flagVal bool, key string) bool {
	if flagVal {
		return true
	}
	return configStore != nil && configStore.GetBool(key)
}
