package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"expensetracker/internal/core"
	"expensetracker/internal/services"
)

func newReportCmd(a *app) *cobra.Command {
	var (
		filter  filterFlags
		asJSON  bool
		current bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the category summary and budget status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if current {
				if filter.start != "" || filter.end != "" {
					return fmt.Errorf("--current-month cannot be combined with --start or --end")
				}
				r := core.MonthRange(timeNow())
				filter.start, filter.end = r.Start.String(), r.End.String()
			}
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

			svc := services.NewReportService(result.Backend, result.Backend, a.config.DefaultCurrency, a.logger)
			rep, err := svc.Report(ctx, f)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			return printReport(cmd.OutOrStdout(), rep)
		},
	}

	filter.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	cmd.Flags().BoolVar(&current, "current-month", false, "limit the report to the current calendar month")
	return cmd
}

func printReport(out io.Writer, rep services.Report) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tCOUNT\tTOTAL\t")
	for _, c := range rep.Categories {
		fmt.Fprintf(tw, "%s\t%d\t%s\t\n", c.CategoryName, c.TransactionCount, core.FormatAmount(c.TotalAmount))
	}
	fmt.Fprintf(tw, "Total\t%d\t%s\t\n", rep.Count, core.FormatAmount(rep.Total))
	if err := tw.Flush(); err != nil {
		return err
	}

	b := rep.Budget
	fmt.Fprintf(out, "\nCurrency: %s\n", rep.CurrencyCode)
	if b.MonthlyLimit == nil {
		fmt.Fprintln(out, "Budget:   not set")
		return nil
	}
	fmt.Fprintf(out, "Budget:   %s", core.FormatAmount(*b.MonthlyLimit))
	if b.PercentUsed != nil {
		fmt.Fprintf(out, " (%s%% used)", b.PercentUsed.StringFixed(2))
	}
	fmt.Fprintln(out)
	if b.Remaining != nil {
		fmt.Fprintf(out, "Left:     %s\n", core.FormatAmount(*b.Remaining))
	}
	_, err := fmt.Fprintf(out, "Alert:    %s\n", b.AlertLevel)
	return err
}
