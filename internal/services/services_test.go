package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/core/coretest"
	"expensetracker/internal/export"
	"expensetracker/internal/storage/memory"
)

func newStore(t *testing.T) *memory.Store {
	t.Helper()
	s := memory.New()
	add := func(date, cat, amount, notes string) {
		d, err := core.ParseDate(date)
		require.NoError(t, err)
		rec := core.ExpenseRecord{OwnerID: 1, Date: d, Amount: amount, Notes: core.StringPtr(notes)}
		if cat != "" {
			rec.CategoryName = core.StringPtr(cat)
		}
		_, err = s.Add(rec)
		require.NoError(t, err)
	}
	add("2025-03-10", "Food", "12.50", "lunch")
	add("2025-03-02", "Housing", "800", "rent")
	add("2025-03-05", "Food", "30.25", "groceries")
	add("2025-03-20", "", "5", "misc")
	add("2025-04-01", "Food", "9.99", "april")
	return s
}

type staticSettings struct {
	st  core.Settings
	err error
}

func (s staticSettings) Settings(context.Context, int64) (core.Settings, error) { return s.st, s.err }

type sliceSource []core.ExpenseRecord

func (s sliceSource) Expenses(_ context.Context, _ core.FilterCriteria, _ core.SortOrder) core.Rows {
	return coretest.Rows(s...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []amqp.ExportEvent
	err    error
}

func (p *recordingPublisher) PublishExportEvent(ctx context.Context, ev amqp.ExportEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	p.events = append(p.events, ev)
	return p.err
}

func march() core.DateRange {
	return core.DateRange{Start: core.NewDate(2025, 3, 1), End: core.NewDate(2025, 3, 31)}
}

func TestReportService_Report(t *testing.T) {
	store := newStore(t)
	limit := decimal.NewFromInt(1000)
	store.SetSettings(1, core.Settings{CurrencyCode: "EUR", MonthlyLimit: &limit})
	svc := NewReportService(store, store, "USD", nil)

	r, err := svc.Report(context.Background(), core.FilterCriteria{OwnerID: 1, DateRange: march()})
	require.NoError(t, err)

	assert.Equal(t, "EUR", r.CurrencyCode)
	assert.Equal(t, 4, r.Count)
	assert.True(t, r.Total.Equal(decimal.RequireFromString("847.75")), r.Total.String())
	require.Len(t, r.Categories, 3)
	assert.Equal(t, "Housing", r.Categories[0].CategoryName)
	assert.Equal(t, "Food", r.Categories[1].CategoryName)
	assert.Equal(t, 2, r.Categories[1].TransactionCount)
	assert.Equal(t, core.UncategorizedName, r.Categories[2].CategoryName)

	assert.Equal(t, core.AlertWarning, r.Budget.AlertLevel)
	require.NotNil(t, r.Budget.Remaining)
	assert.True(t, r.Budget.Remaining.Equal(decimal.RequireFromString("152.25")))
}

func TestReportService_DefaultCurrency(t *testing.T) {
	store := newStore(t)
	svc := NewReportService(store, store, "GBP", nil)

	r, err := svc.Report(context.Background(), core.FilterCriteria{OwnerID: 1})
	require.NoError(t, err)
	assert.Equal(t, "GBP", r.CurrencyCode)
	assert.Equal(t, core.AlertNone, r.Budget.AlertLevel)
	assert.Nil(t, r.Budget.PercentUsed)

	st, err := svc.Settings(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "GBP", st.CurrencyCode)
}

func TestReportService_Errors(t *testing.T) {
	ctx := context.Background()

	svc := NewReportService(sliceSource{}, staticSettings{}, "", nil)
	_, err := svc.Report(ctx, core.FilterCriteria{})
	assert.ErrorIs(t, err, core.ErrMissingOwner)

	bad := sliceSource{{ID: 9, OwnerID: 1, Amount: "1.2.3"}}
	svc = NewReportService(bad, staticSettings{}, "", nil)
	_, err = svc.Report(ctx, core.FilterCriteria{OwnerID: 1})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
	var amountErr *core.AmountError
	require.ErrorAs(t, err, &amountErr)
	assert.Equal(t, int64(9), amountErr.RecordID)

	boom := errors.New("settings down")
	svc = NewReportService(sliceSource{}, staticSettings{err: boom}, "", nil)
	_, err = svc.Report(ctx, core.FilterCriteria{OwnerID: 1})
	assert.ErrorIs(t, err, boom)
}

func TestReportService_BudgetStatusUsesCurrentMonth(t *testing.T) {
	store := newStore(t)
	limit := decimal.NewFromInt(10)
	store.SetSettings(1, core.Settings{MonthlyLimit: &limit})
	svc := NewReportService(store, store, "USD", nil)
	svc.now = func() time.Time { return time.Date(2025, 4, 15, 12, 0, 0, 0, time.UTC) }

	st, err := svc.BudgetStatus(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, st.TotalSpent.Equal(decimal.RequireFromString("9.99")))
	assert.Equal(t, core.AlertWarning, st.AlertLevel)
}

func TestExportService_Prepare(t *testing.T) {
	cfg := DefaultExportConfig()
	cfg.MaxRows = 50
	svc := NewExportService(sliceSource{}, nil, nil, nil, cfg, nil)

	_, err := svc.Prepare("xlsx", core.FilterCriteria{OwnerID: 1})
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
	assert.True(t, IsClientError(err))

	_, err = svc.Prepare("csv", core.FilterCriteria{})
	assert.ErrorIs(t, err, core.ErrMissingOwner)

	job, err := svc.Prepare("", core.FilterCriteria{OwnerID: 1})
	require.NoError(t, err)
	assert.Equal(t, export.CSV, job.Format)
	assert.Equal(t, 50, job.Filter.Limit)
	assert.Equal(t, export.StateIdle, job.State())

	job, err = svc.Prepare("PDF", core.FilterCriteria{OwnerID: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, export.PDF, job.Format)
	assert.Equal(t, 10, job.Filter.Limit)
}

func TestExportService_RunCSV(t *testing.T) {
	store := newStore(t)
	pub := &recordingPublisher{}
	svc := NewExportService(store, store, store, pub, DefaultExportConfig(), nil)

	job, err := svc.Prepare("csv", core.FilterCriteria{OwnerID: 1, DateRange: march()})
	require.NoError(t, err)

	var buf bytes.Buffer
	ctx := context.Background()
	out := svc.Run(ctx, job, export.NewWriterSink(ctx, &buf))

	require.NoError(t, out.Err)
	assert.Equal(t, export.StateCompleted, out.State)
	assert.Equal(t, 4, out.Rows)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	var dates []string
	for _, rec := range records[1:] {
		dates = append(dates, rec[1])
	}
	assert.Equal(t, []string{"2025-03-02", "2025-03-05", "2025-03-10", "2025-03-20"}, dates)

	require.Len(t, pub.events, 1)
	assert.Equal(t, job.ID, pub.events[0].JobID)
	assert.Equal(t, "completed", pub.events[0].State)
	assert.Equal(t, 4, pub.events[0].Rows)
	assert.Empty(t, pub.events[0].Error)
}

func TestExportService_RunPDF(t *testing.T) {
	store := newStore(t)
	store.SetSettings(1, core.Settings{CurrencyCode: "USD"})
	svc := NewExportService(store, store, store, nil, DefaultExportConfig(), nil)

	job, err := svc.Prepare("pdf", core.FilterCriteria{OwnerID: 1})
	require.NoError(t, err)

	var buf bytes.Buffer
	ctx := context.Background()
	out := svc.Run(ctx, job, export.NewWriterSink(ctx, &buf))

	require.NoError(t, out.Err)
	assert.Equal(t, export.StateCompleted, out.State)
	assert.Equal(t, 5, out.Rows)
	assert.Equal(t, 1, out.Pages)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Contains(t, buf.String(), "($800.00)")
	assert.Contains(t, buf.String(), "(Currency: USD)")
}

func TestExportService_RunAbortedStillPublishes(t *testing.T) {
	store := newStore(t)
	pub := &recordingPublisher{}
	svc := NewExportService(store, store, store, pub, DefaultExportConfig(), nil)

	job, err := svc.Prepare("csv", core.FilterCriteria{OwnerID: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var buf bytes.Buffer
	out := svc.Run(ctx, job, export.NewWriterSink(context.Background(), &buf))

	assert.Equal(t, export.StateAborted, out.State)
	assert.ErrorIs(t, out.Err, core.ErrStreamAborted)
	assert.Equal(t, 0, out.Rows)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "aborted", pub.events[0].State)
	assert.NotEmpty(t, pub.events[0].Error)
}

func TestExportService_PublishErrorDoesNotFailExport(t *testing.T) {
	store := newStore(t)
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewExportService(store, store, store, pub, DefaultExportConfig(), nil)

	job, err := svc.Prepare("csv", core.FilterCriteria{OwnerID: 1})
	require.NoError(t, err)
	var buf bytes.Buffer
	out := svc.Run(context.Background(), job, export.NewWriterSink(context.Background(), &buf))
	assert.Equal(t, export.StateCompleted, out.State)
}

func TestExportService_RunInvalidAmountFails(t *testing.T) {
	src := sliceSource{
		{ID: 1, OwnerID: 1, Date: core.NewDate(2025, 1, 1), Amount: "1"},
		{ID: 2, OwnerID: 1, Date: core.NewDate(2025, 1, 2), Amount: "oops"},
	}
	svc := NewExportService(src, nil, nil, nil, DefaultExportConfig(), nil)

	job, err := svc.Prepare("pdf", core.FilterCriteria{OwnerID: 1})
	require.NoError(t, err)
	var buf bytes.Buffer
	out := svc.Run(context.Background(), job, export.NewWriterSink(context.Background(), &buf))

	assert.Equal(t, export.StateFailed, out.State)
	assert.ErrorIs(t, out.Err, core.ErrInvalidAmount)
}

func TestExportService_Describe(t *testing.T) {
	store := newStore(t)
	svc := NewExportService(store, store, store, nil, DefaultExportConfig(), nil)

	cats, err := store.Categories(context.Background())
	require.NoError(t, err)
	var food int64
	for _, c := range cats {
		if c.Name == "Food" {
			food = c.ID
		}
	}
	require.NotZero(t, food)

	job := export.NewJob(export.PDF, core.FilterCriteria{
		OwnerID:    1,
		DateRange:  core.DateRange{Start: core.NewDate(2025, 3, 1)},
		CategoryID: &food,
	}, time.Date(2025, 3, 31, 8, 30, 0, 0, time.UTC))

	lines := svc.describe(context.Background(), job, "EUR")
	assert.Equal(t, []string{
		"Generated: 2025-03-31 08:30 UTC",
		"Period: from 2025-03-01",
		"Category: Food",
		"Currency: EUR",
	}, lines)

	missing := int64(99)
	job.Filter.CategoryID = &missing
	job.Filter.DateRange = core.DateRange{}
	lines = svc.describe(context.Background(), job, "EUR")
	assert.Equal(t, "Period: all dates", lines[1])
	assert.Equal(t, "Category: #99", lines[2])
}

func TestCurrencyMarker(t *testing.T) {
	assert.Equal(t, "$", currencyMarker("USD"))
	assert.Equal(t, "€", currencyMarker("EUR"))
	assert.Equal(t, "CHF ", currencyMarker("CHF"))
}
