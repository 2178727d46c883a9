package report

import (
	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

var (
	hundred         = decimal.NewFromInt(100)
	warningPercent  = decimal.NewFromInt(80)
	exceededPercent = decimal.NewFromInt(100)
)

// NewBudgetStatus compares spent against an optional monthly limit.
//
// A nil or zero limit never alerts and leaves PercentUsed undefined.
func NewBudgetStatus(spent decimal.Decimal, limit *decimal.Decimal) core.BudgetStatus {
	st := core.BudgetStatus{
		MonthlyLimit: limit,
		TotalSpent:   spent,
		AlertLevel:   core.AlertNone,
	}
	if limit == nil {
		return st
	}
	remaining := limit.Sub(spent)
	st.Remaining = &remaining
	if limit.IsZero() {
		return st
	}

	// Thresholds compare against the exact ratio; only the reported value is rounded.
	switch {
	case spent.Mul(hundred).GreaterThanOrEqual(limit.Mul(exceededPercent)):
		st.AlertLevel = core.AlertExceeded
	case spent.Mul(hundred).GreaterThanOrEqual(limit.Mul(warningPercent)):
		st.AlertLevel = core.AlertWarning
	}
	percent := core.Percent(spent, *limit)
	st.PercentUsed = &percent
	return st
}
