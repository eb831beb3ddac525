package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarchlab/cohortsim/ledger"
	"github.com/sarchlab/cohortsim/output"
)

var inspectYear int

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the years of an output, or the totals of one year.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		reader, err := openOutput(cfg.Output.Path)
		if err != nil {
			return err
		}
		defer reader.Close()

		out := cmd.OutOrStdout()

		if inspectYear == 0 {
			years, err := output.ReadYears(cmd.Context(), reader)
			if err != nil {
				return err
			}

			for _, y := range years {
				fmt.Fprintln(out, y)
			}

			return nil
		}

		l, err := output.ReadLedger(cmd.Context(), reader, inspectYear)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintf(w, "field\tlabel\ttotal\t\n")

		for _, info := range ledger.Catalogue {
			fmt.Fprintf(w, "%s\t%s\t%d\t\n",
				info.Name, info.Label, l.Total(info.Field))
		}

		if err := w.Flush(); err != nil {
			return err
		}

		if err := l.Validate(); err != nil {
			fmt.Fprintf(out, "\n%v\n", err)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().IntVar(&inspectYear, "year", 0,
		"Year to print; lists the years when zero")
}
