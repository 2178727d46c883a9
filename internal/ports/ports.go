package ports

import (
	"context"

	"expensetracker/internal/core"
)

// Ports for outbound adapters.
type (
	// RowSource yields expense records already filtered by owner, date range
	// and category, in the requested order. The sequence is single use.
	RowSource interface {
		Expenses(ctx context.Context, f core.FilterCriteria, order core.SortOrder) core.Rows
	}

	// SettingsReader returns the preferences the reporting path displays.
	SettingsReader interface {
		Settings(ctx context.Context, ownerID int64) (core.Settings, error)
	}

	// HealthChecker reports whether the backing store is reachable.
	HealthChecker interface {
		Ping(ctx context.Context) error
	}
)

// CategoryLister returns the category taxonomy.
type CategoryLister interface {
	Categories(ctx context.Context) ([]core.Category, error)
}
