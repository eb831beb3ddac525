package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/cohortsim/datarecording"
	"github.com/sarchlab/cohortsim/export"
)

var exportRunID string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Upload the output of a finished run to S3-compatible storage.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if cfg.Output.Path == "" {
			return errors.New("output path is required")
		}

		file := datarecording.FileName(cfg.Output.Path)

		runID := exportRunID
		if runID == "" {
			runID, err = recordedRunID(cmd.Context(), file)
			if err != nil {
				return err
			}
		}

		u, err := export.New(cmd.Context(), export.Config{
			Region:          cfg.Export.Region,
			Bucket:          cfg.Export.Bucket,
			Prefix:          cfg.Export.Prefix,
			Endpoint:        cfg.Export.Endpoint,
			AccessKeyID:     cfg.Export.AccessKeyID,
			SecretAccessKey: cfg.Export.SecretAccessKey,
			PathStyle:       cfg.Export.PathStyle,
		}, logger)
		if err != nil {
			return err
		}

		key, err := u.Upload(cmd.Context(), file, runID)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "exported to s3://%s/%s\n",
			cfg.Export.Bucket, key)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportRunID, "run-id", "",
		"Run id used in the object key, read from the output when empty")
}

func recordedRunID(ctx context.Context, file string) (string, error) {
	reader, err := datarecording.NewReader(file)
	if err != nil {
		return "", err
	}
	defer reader.Close()

	infos, err := datarecording.QueryAll[datarecording.ExecInfo](ctx, reader,
		datarecording.ExecTable, datarecording.QueryParams{
			Where: "Property = ?",
			Args:  []any{"Run ID"},
		})
	if err != nil {
		return "", err
	}

	if len(infos) == 0 {
		return "", fmt.Errorf("no run id recorded in %s", file)
	}

	return infos[0].Value, nil
}
