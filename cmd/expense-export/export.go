package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"expensetracker/internal/export"
	"expensetracker/internal/log"
	"expensetracker/internal/services"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		filter filterFlags
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render expenses as a CSV or PDF document",
		Example: `  expense-export export --owner 1 --format pdf --start 2025-01-01 --end 2025-01-31
  expense-export export --owner 1 --output -   # CSV to stdout`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := filter.criteria()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			result, err := a.openBackend(ctx)
			if err != nil {
				return err
			}
			defer result.Close()

			store := result.Backend
			svc := services.NewExportService(store, store, store, nil, services.ExportConfig{
				Timeout:         a.config.Timeout,
				FlushRows:       a.config.FlushRows,
				MaxRows:         a.config.MaxRows,
				RepeatHeader:    a.config.RepeatHeader,
				DefaultCurrency: a.config.DefaultCurrency,
			}, a.logger)

			job, err := svc.Prepare(format, f)
			if err != nil {
				return err
			}

			path := output
			if path == "" {
				path = job.Filename
			}

			var w io.Writer
			var file *os.File
			if path == "-" {
				w = cmd.OutOrStdout()
			} else {
				file, err = os.Create(path)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				w = file
			}

			out := svc.Run(ctx, job, export.NewWriterSink(ctx, w))

			if file != nil {
				closeErr := file.Close()
				if out.State == export.StateCompleted && closeErr != nil {
					return fmt.Errorf("close output: %w", closeErr)
				}
				if out.State != export.StateCompleted {
					// A truncated document is worse than none.
					_ = os.Remove(path)
				}
			}

			if out.State != export.StateCompleted {
				return fmt.Errorf("export %s: %w", out.State, errors.Join(out.Err, out.FinishErr))
			}

			a.logger.Info("Export written",
				log.FieldJobID, job.ID,
				log.FieldFilename, path,
				log.FieldRows, out.Rows,
				log.FieldBytes, out.Bytes)
			if path != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d rows to %s\n", out.Rows, path)
			}
			return nil
		},
	}

	filter.register(cmd)
	cmd.Flags().StringVar(&format, "format", "csv", "document format: csv or pdf")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, - for stdout (default: generated file name)")
	return cmd
}
