// Package report derives per-category totals and budget status from a
// filtered row sequence.
package report

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

// Summary is the result of one aggregation pass.
type Summary struct {
	Categories []core.CategorySummary `json:"categories"`
	Total      decimal.Decimal        `json:"total"`
	Count      int                    `json:"count"`
}

// groupKey separates the records without a category from a real category
// that happens to be named like the fallback label.
type groupKey struct {
	name          string
	uncategorized bool
}

// Summarize consumes rows once and groups them by category name. Records
// without a category are grouped under core.UncategorizedName so that every
// row lands in exactly one group.
//
// The result is all or nothing: a malformed amount or a source error returns
// a zero Summary.
func Summarize(rows core.Rows) (Summary, error) {
	groups := make(map[groupKey]*core.CategorySummary)
	total := decimal.Zero
	count := 0

	for rec, err := range rows {
		if err != nil {
			return Summary{}, fmt.Errorf("read rows: %w", err)
		}
		amount, err := core.RecordAmount(rec)
		if err != nil {
			return Summary{}, err
		}
		name := rec.CategoryLabel("")
		key := groupKey{name: name, uncategorized: name == ""}
		g, ok := groups[key]
		if !ok {
			g = &core.CategorySummary{CategoryName: name, TotalAmount: decimal.Zero, Uncategorized: key.uncategorized}
			if key.uncategorized {
				g.CategoryName = core.UncategorizedName
			}
			groups[key] = g
		}
		g.TotalAmount = g.TotalAmount.Add(amount)
		g.TransactionCount++
		total = total.Add(amount)
		count++
	}

	cats := make([]core.CategorySummary, 0, len(groups))
	for _, g := range groups {
		cats = append(cats, *g)
	}
	slices.SortFunc(cats, func(a, b core.CategorySummary) int {
		if c := b.TotalAmount.Cmp(a.TotalAmount); c != 0 {
			return c
		}
		if c := strings.Compare(a.CategoryName, b.CategoryName); c != 0 {
			return c
		}
		// A real category sorts before the fallback group of the same name.
		switch {
		case a.Uncategorized == b.Uncategorized:
			return 0
		case a.Uncategorized:
			return 1
		default:
			return -1
		}
	})

	return Summary{Categories: cats, Total: total, Count: count}, nil
}
