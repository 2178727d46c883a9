package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/ports"
	"expensetracker/internal/report"
)

// Report is the category breakdown of a filtered period with the owner's
// budget status measured against the same total.
type Report struct {
	report.Summary
	CurrencyCode string            `json:"currency_code"`
	Budget       core.BudgetStatus `json:"budget"`
}

// ReportService aggregates expenses and reads budget settings in parallel.
type ReportService struct {
	rows            ports.RowSource
	settings        ports.SettingsReader
	defaultCurrency string
	logger          *log.Logger
	now             func() time.Time
}

func NewReportService(rows ports.RowSource, settings ports.SettingsReader, defaultCurrency string, logger *log.Logger) *ReportService {
	if logger == nil {
		logger = log.Discard()
	}
	if defaultCurrency == "" {
		defaultCurrency = "USD"
	}
	return &ReportService{
		rows:            rows,
		settings:        settings,
		defaultCurrency: defaultCurrency,
		logger:          logger.WithComponent(log.ComponentReport),
		now:             time.Now,
	}
}

// Report summarizes the records matching f. An invalid amount anywhere in
// the range fails the whole report with core.ErrInvalidAmount.
func (s *ReportService) Report(ctx context.Context, f core.FilterCriteria) (Report, error) {
	if err := f.Validate(); err != nil {
		return Report{}, err
	}

	var (
		sum report.Summary
		st  core.Settings
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sum, err = report.Summarize(s.rows.Expenses(gctx, f, core.SortDateAsc))
		return err
	})
	g.Go(func() error {
		var err error
		st, err = s.settings.Settings(gctx, f.OwnerID)
		if err != nil {
			return fmt.Errorf("read settings: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	s.logger.DebugContext(ctx, "Report built",
		log.FieldOwnerID, f.OwnerID,
		log.FieldRows, sum.Count,
		"categories", len(sum.Categories))

	return Report{
		Summary:      sum,
		CurrencyCode: s.currency(st),
		Budget:       report.NewBudgetStatus(sum.Total, st.MonthlyLimit),
	}, nil
}

// BudgetStatus reports spending in the current calendar month against the
// owner's monthly limit.
func (s *ReportService) BudgetStatus(ctx context.Context, ownerID int64) (core.BudgetStatus, error) {
	r, err := s.Report(ctx, core.FilterCriteria{
		OwnerID:   ownerID,
		DateRange: core.MonthRange(s.now()),
	})
	if err != nil {
		return core.BudgetStatus{}, err
	}
	return r.Budget, nil
}

// Settings returns the owner's settings with the default currency applied.
func (s *ReportService) Settings(ctx context.Context, ownerID int64) (core.Settings, error) {
	st, err := s.settings.Settings(ctx, ownerID)
	if err != nil {
		return core.Settings{}, fmt.Errorf("read settings: %w", err)
	}
	st.CurrencyCode = s.currency(st)
	return st, nil
}

func (s *ReportService) currency(st core.Settings) string {
	if st.CurrencyCode == "" {
		return s.defaultCurrency
	}
	return st.CurrencyCode
}
