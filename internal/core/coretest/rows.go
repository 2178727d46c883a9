// Package coretest provides row sequences for tests of the reporting and
// export paths.
package coretest

import "expensetracker/internal/core"

// Rows returns a sequence over recs in order.
func Rows(recs ...core.ExpenseRecord) core.Rows {
	return func(yield func(core.ExpenseRecord, error) bool) {
		for _, r := range recs {
			if !yield(r, nil) {
				return
			}
		}
	}
}

// FailingRows yields recs and then err.
func FailingRows(err error, recs ...core.ExpenseRecord) core.Rows {
	return func(yield func(core.ExpenseRecord, error) bool) {
		for _, r := range recs {
			if !yield(r, nil) {
				return
			}
		}
		yield(core.ExpenseRecord{}, err)
	}
}
