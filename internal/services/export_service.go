package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/export"
	"expensetracker/internal/log"
	"expensetracker/internal/ports"
)

// EventPublisher receives one audit event per finished export.
type EventPublisher interface {
	PublishExportEvent(ctx context.Context, ev amqp.ExportEvent) error
}

// ExportConfig holds the tunables of the export path.
type ExportConfig struct {
	// Timeout bounds a whole export. Exceeding it aborts the stream.
	Timeout time.Duration
	// FlushRows flushes the sink every N rows.
	FlushRows int
	// ProgressRows logs progress every N rows.
	ProgressRows int
	// MaxRows caps the row limit of every export; 0 means unlimited.
	MaxRows         int
	RepeatHeader    bool
	DefaultCurrency string
}

// DefaultExportConfig returns sensible defaults for exports
func DefaultExportConfig() ExportConfig {
	return ExportConfig{
		Timeout:         5 * time.Minute,
		FlushRows:       100,
		ProgressRows:    100,
		MaxRows:         100000,
		DefaultCurrency: "USD",
	}
}

const publishTimeout = 5 * time.Second

// ExportService prepares and runs export jobs.
type ExportService struct {
	rows       ports.RowSource
	settings   ports.SettingsReader
	categories ports.CategoryLister
	publisher  EventPublisher
	config     ExportConfig
	logger     *log.StructuredLogger
	now        func() time.Time
}

// NewExportService wires an export service. categories and publisher may be
// nil: the PDF then names categories by id and no audit events are sent.
func NewExportService(
	rows ports.RowSource,
	settings ports.SettingsReader,
	categories ports.CategoryLister,
	publisher EventPublisher,
	config ExportConfig,
	logger *log.Logger,
) *ExportService {
	if logger == nil {
		logger = log.Discard()
	}
	if config.DefaultCurrency == "" {
		config.DefaultCurrency = "USD"
	}
	return &ExportService{
		rows:       rows,
		settings:   settings,
		categories: categories,
		publisher:  publisher,
		config:     config,
		logger:     log.NewStructuredLogger(logger),
		now:        time.Now,
	}
}

// Prepare validates the request and creates an idle job. Nothing is read or
// written yet, so errors here can still be reported to the caller normally.
func (s *ExportService) Prepare(format string, f core.FilterCriteria) (*export.Job, error) {
	fm, err := export.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if s.config.MaxRows > 0 && (f.Limit == 0 || f.Limit > s.config.MaxRows) {
		f.Limit = s.config.MaxRows
	}
	return export.NewJob(fm, f, s.now()), nil
}

// Run streams the job's rows, oldest first, into sink. The returned outcome
// carries the terminal state; it is never Writing or Idle.
func (s *ExportService) Run(ctx context.Context, job *export.Job, sink export.Sink) export.Outcome {
	jobFields := log.NewFields().WithJob(job.ID, string(job.Format), job.Filename)
	filterFields := filterFields(job.Filter)
	s.logger.LogExportStarted(ctx, jobFields, filterFields)

	renderer, err := export.NewRenderer(job.Format, export.Options{
		FlushEvery: s.config.FlushRows,
		PDF:        s.pdfOptions(ctx, job),
	})
	if err != nil {
		// Only reachable with a hand-built job; Prepare rejects bad formats.
		out := export.Outcome{State: export.StateFailed, Err: err}
		if d, ok := sink.(export.Discarder); ok {
			out.Discarded = d.Discard()
		}
		out.FinishErr = sink.Finish()
		return s.finish(ctx, job, out, jobFields)
	}

	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	progress := &export.Progress{
		NotifyEvery: s.config.ProgressRows,
		Notify: func(p export.Progress) {
			s.logger.LogExportProgress(ctx, job.ID, p.Rows, p.Pages)
		},
	}

	rows := s.rows.Expenses(ctx, job.Filter, core.SortDateAsc)
	out := job.Run(ctx, rows, renderer, sink, progress)
	return s.finish(ctx, job, out, jobFields)
}

func (s *ExportService) finish(ctx context.Context, job *export.Job, out export.Outcome, fields log.LogFields) export.Outcome {
	fields.WithProgress(out.Rows, out.Pages, out.Bytes)
	fields[log.FieldCommitted] = out.Committed
	s.logger.LogExportFinished(ctx, string(out.State), out.Err, fields)
	s.publish(ctx, job, out)
	return out
}

func (s *ExportService) publish(ctx context.Context, job *export.Job, out export.Outcome) {
	if s.publisher == nil {
		return
	}
	ev := amqp.NewExportEvent(job.ID, job.Filter.OwnerID, string(job.Format), string(out.State))
	ev.Rows = out.Rows
	ev.Bytes = out.Bytes
	if out.Err != nil {
		ev.Error = out.Err.Error()
	}

	// The request context is usually done by now, most of all after an abort.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.PublishExportEvent(pubCtx, *ev); err != nil {
		s.logger.LogError(ctx, "Failed to publish export event", err, log.ComponentAMQP, log.OpPublish,
			log.NewFields().WithJob(job.ID, string(job.Format), ""))
	}
}

func (s *ExportService) pdfOptions(ctx context.Context, job *export.Job) export.PDFOptions {
	if job.Format != export.PDF {
		return export.PDFOptions{}
	}

	currency := s.config.DefaultCurrency
	if s.settings != nil {
		st, err := s.settings.Settings(ctx, job.Filter.OwnerID)
		if err != nil {
			s.logger.LogError(ctx, "Failed to read settings for export", err, log.ComponentExport, log.OpRead, nil)
		} else if st.CurrencyCode != "" {
			currency = st.CurrencyCode
		}
	}

	return export.PDFOptions{
		Title:          "Expense Report",
		Lines:          s.describe(ctx, job, currency),
		RepeatHeader:   s.config.RepeatHeader,
		CurrencyMarker: currencyMarker(currency),
	}
}

// describe renders the filter lines printed under the PDF title.
func (s *ExportService) describe(ctx context.Context, job *export.Job, currency string) []string {
	f := job.Filter
	lines := []string{"Generated: " + job.CreatedAt.UTC().Format("2006-01-02 15:04 UTC")}

	start, end := f.DateRange.Start.String(), f.DateRange.End.String()
	switch {
	case start != "" && end != "":
		lines = append(lines, fmt.Sprintf("Period: %s to %s", start, end))
	case start != "":
		lines = append(lines, "Period: from "+start)
	case end != "":
		lines = append(lines, "Period: until "+end)
	default:
		lines = append(lines, "Period: all dates")
	}

	if f.CategoryID != nil {
		lines = append(lines, "Category: "+s.categoryName(ctx, *f.CategoryID))
	}
	return append(lines, "Currency: "+currency)
}

func (s *ExportService) categoryName(ctx context.Context, id int64) string {
	fallback := "#" + strconv.FormatInt(id, 10)
	if s.categories == nil {
		return fallback
	}
	cats, err := s.categories.Categories(ctx)
	if err != nil {
		return fallback
	}
	for _, c := range cats {
		if c.ID == id {
			return c.Name
		}
	}
	return fallback
}

func currencyMarker(code string) string {
	switch code {
	case "USD":
		return "$"
	case "EUR":
		return "€"
	case "GBP":
		return "£"
	case "JPY":
		return "¥"
	default:
		return code + " "
	}
}

func filterFields(f core.FilterCriteria) log.LogFields {
	return log.NewFields().WithFilter(f.OwnerID, f.DateRange.Start.String(), f.DateRange.End.String(), f.CategoryID, f.Limit)
}

// IsClientError reports whether err was caused by the request rather than
// by the server, so it can be answered with a 4xx status.
func IsClientError(err error) bool {
	return errors.Is(err, core.ErrUnsupportedFormat) ||
		errors.Is(err, core.ErrMissingOwner) ||
		errors.Is(err, core.ErrInvalidDateRange) ||
		errors.Is(err, core.ErrInvalidLimit)
}
