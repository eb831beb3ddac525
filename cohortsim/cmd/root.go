// Package cmd provides the command-line interface of cohortsim.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sarchlab/cohortsim/config"
)

var (
	configPath string
	verbose    bool
	logger     = zap.NewNop()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cohortsim",
	Short: "cohortsim projects a cohort-component population ledger.",
	Long: `cohortsim projects a population ledger keyed by race, sex, and ` +
		`age from a base year to a horizon year, and loads or exports the ` +
		`results of finished runs.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}

		l, err := cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		logger = l

		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c",
		"cohortsim.yaml", "Path to the run configuration")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Log at debug level")
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}

	return cfg, nil
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Exit handlers, such as the flush of open output databases,
// run before the process exits.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
