package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sarchlab/cohortsim/datarecording"
	"github.com/sarchlab/cohortsim/etl"
)

var etlOutput string

var etlCmd = &cobra.Command{
	Use:   "etl",
	Short: "Load the output of a finished run into the warehouse.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if cfg.Warehouse.DSN == "" {
			return errors.New("warehouse dsn is required")
		}

		reader, err := openOutput(cfg.Output.Path)
		if err != nil {
			return err
		}
		defer reader.Close()

		conn, err := etl.Connect(cmd.Context(), cfg.Warehouse.DSN)
		if err != nil {
			return err
		}
		defer conn.Close(context.Background())

		user := cfg.Warehouse.User
		if user == "" {
			user = os.Getenv("USER")
		}

		runID, err := etl.NewLoader(conn, logger).Load(cmd.Context(), reader,
			etl.RunInfo{
				User:     user,
				Date:     time.Now(),
				Version:  cfg.Warehouse.Version,
				Comments: cfg.Warehouse.Comments,
			})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "loaded as warehouse run %d\n", runID)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(etlCmd)
	etlCmd.Flags().StringVarP(&etlOutput, "output", "o", "",
		"Output database to load, overriding the configuration")
}

func openOutput(configured string) (datarecording.DataReader, error) {
	path := configured
	if etlOutput != "" {
		path = etlOutput
	}

	if path == "" {
		return nil, errors.New("output path is required")
	}

	return datarecording.NewReader(datarecording.FileName(path))
}
