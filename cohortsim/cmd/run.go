package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sarchlab/cohortsim/cycle"
	"github.com/sarchlab/cohortsim/datarecording"
	"github.com/sarchlab/cohortsim/rates"
	"github.com/sarchlab/cohortsim/simulation"
)

var openMonitor bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Project the ledger over the configured interval.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if err := cfg.Validate(); err != nil {
			return err
		}

		policy, err := cfg.IntegerizePolicy()
		if err != nil {
			return err
		}

		controls, err := rates.LoadControls(cfg.Inputs.Controls)
		if err != nil {
			return err
		}

		if err := controls.Validate(); err != nil {
			return err
		}

		reader, err := datarecording.NewReader(cfg.Inputs.Database)
		if err != nil {
			return err
		}
		defer reader.Close()

		source := rates.NewSQLiteSource(reader, cfg.Inputs.RateYears)

		b := simulation.MakeBuilder().
			WithLogger(logger).
			WithOutputFileName(cfg.Output.Path).
			WithInterval(cfg.Interval.Base, cfg.Interval.Launch,
				cfg.Interval.Horizon).
			WithSeed(cfg.Seed).
			WithPolicy(policy).
			WithMaleFraction(cfg.MaleFraction).
			WithInputs(cycle.Inputs{
				Base:     source,
				Engine:   source,
				Military: source,
				Controls: controls,
			})

		if cfg.Output.Overwrite {
			b = b.WithOverwrite()
		}

		if cfg.Monitor.Enabled {
			b = b.WithMonitorPort(cfg.Monitor.Port)
		} else {
			b = b.WithoutMonitoring()
		}

		s, err := b.Build()
		if err != nil {
			return err
		}

		if (openMonitor || cfg.Monitor.Open) && s.GetMonitor() != nil {
			if err := s.GetMonitor().OpenInBrowser(); err != nil {
				logger.Warn("monitor not opened", zap.Error(err))
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		runErr := s.Run(ctx)
		if err := s.Terminate(); err != nil {
			logger.Error("output not closed", zap.Error(err))
		}

		if runErr != nil {
			return runErr
		}

		fmt.Fprintf(cmd.OutOrStdout(), "run %s written to %s\n",
			s.ID(), s.OutputFile())

		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&openMonitor, "open-monitor", false,
		"Open the monitor in the default browser")
}
