package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"expensetracker/internal/core"
)

// filterFlags are the filter options shared by export and report.
type filterFlags struct {
	owner    int64
	start    string
	end      string
	category int64
	limit    int
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&f.owner, "owner", 0, "owner (user) id, required")
	cmd.Flags().StringVar(&f.start, "start", "", "first date to include, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.end, "end", "", "last date to include, YYYY-MM-DD")
	cmd.Flags().Int64Var(&f.category, "category", 0, "only this category id")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "at most this many rows, 0 for all")
	_ = cmd.MarkFlagRequired("owner")
}

func (f *filterFlags) criteria() (core.FilterCriteria, error) {
	c := core.FilterCriteria{OwnerID: f.owner, Limit: f.limit}
	if f.start != "" {
		d, err := core.ParseDate(f.start)
		if err != nil {
			return c, fmt.Errorf("--start: %w", err)
		}
		c.DateRange.Start = d
	}
	if f.end != "" {
		d, err := core.ParseDate(f.end)
		if err != nil {
			return c, fmt.Errorf("--end: %w", err)
		}
		c.DateRange.End = d
	}
	if f.category != 0 {
		id := f.category
		c.CategoryID = &id
	}
	return c, c.Validate()
}
