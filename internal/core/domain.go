package core

import (
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/shopspring/decimal"
)

const (
	SortDateAsc  SortOrder = "date_asc"
	SortDateDesc SortOrder = "date_desc"
)

const (
	AlertNone     AlertLevel = "none"
	AlertWarning  AlertLevel = "warning"
	AlertExceeded AlertLevel = "exceeded"
)

// UncategorizedName groups records that carry no category.
const UncategorizedName = "Uncategorized"

type (
	SortOrder  string
	AlertLevel string

	Date struct {
		time.Time
	}

	// ExpenseRecord is a single expense row as read from storage.
	// Amount keeps the decimal text the store returned; it is parsed by
	// consumers so malformed data surfaces as ErrInvalidAmount.
	ExpenseRecord struct {
		ID           int64
		OwnerID      int64
		Amount       string
		CategoryID   *int64
		CategoryName *string
		CategoryIcon *string
		Date         Date
		Notes        *string
	}

	// DateRange is inclusive on both ends. Either bound may be zero.
	DateRange struct {
		Start Date
		End   Date
	}

	FilterCriteria struct {
		OwnerID    int64
		DateRange  DateRange
		CategoryID *int64
		Limit      int // 0 means no limit
	}

	CategorySummary struct {
		CategoryName     string          `json:"category_name"`
		TotalAmount      decimal.Decimal `json:"total_amount"`
		TransactionCount int             `json:"transaction_count"`
		// Uncategorized marks the group of records without a category, which
		// stays apart from any real category that shares its label.
		Uncategorized bool `json:"uncategorized,omitempty"`
	}

	BudgetStatus struct {
		MonthlyLimit *decimal.Decimal `json:"monthly_limit"`
		TotalSpent   decimal.Decimal  `json:"total_spent"`
		PercentUsed  *decimal.Decimal `json:"percent_used"`
		Remaining    *decimal.Decimal `json:"remaining"`
		AlertLevel   AlertLevel       `json:"alert_level"`
	}

	Category struct {
		ID   int64   `json:"id"`
		Name string  `json:"name"`
		Icon *string `json:"icon"`
	}

	// Settings are the per-owner preferences the reporting path reads.
	Settings struct {
		CurrencyCode string           `json:"currency_code"`
		MonthlyLimit *decimal.Decimal `json:"monthly_limit"`
	}

	// Rows is a single-use, ordered sequence of records. A non-nil error
	// ends the sequence.
	Rows = iter.Seq2[ExpenseRecord, error]
)

var (
	ErrInvalidDay        = errors.New("invalid day")
	ErrInvalidMonth      = errors.New("invalid month")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrMissingOwner      = errors.New("owner id is required")
	ErrInvalidDateRange  = errors.New("start date is after end date")
	ErrInvalidLimit      = errors.New("result limit must be positive")
	ErrUnsupportedFormat = errors.New("unsupported export format")
	ErrStreamAborted     = errors.New("export stream aborted")
	ErrStreamWriteFailed = errors.New("export stream write failed")
	ErrExportTimeout     = errors.New("export timed out")
)

// AmountError reports the record whose amount could not be parsed.
type AmountError struct {
	RecordID int64
	Value    string
}

func (e *AmountError) Error() string {
	return fmt.Sprintf("record %d: invalid amount %q", e.RecordID, e.Value)
}

func (e *AmountError) Unwrap() error {
	return ErrInvalidAmount
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// IsEmpty returns true if the date is zero (for optional dates)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// MonthRange returns the inclusive range covering the calendar month of t.
func MonthRange(t time.Time) DateRange {
	first := NewDate(t.Year(), int(t.Month()), 1)
	return DateRange{
		Start: first,
		End:   Date{Time: first.AddDate(0, 1, -1)},
	}
}

// Contains reports whether d falls inside the range.
func (r DateRange) Contains(d Date) bool {
	if !r.Start.IsEmpty() && d.Before(r.Start.Time) {
		return false
	}
	if !r.End.IsEmpty() && d.After(r.End.Time) {
		return false
	}
	return true
}

func (f FilterCriteria) Validate() error {
	if f.OwnerID <= 0 {
		return ErrMissingOwner
	}
	if !f.DateRange.Start.IsEmpty() && !f.DateRange.End.IsEmpty() &&
		f.DateRange.Start.After(f.DateRange.End.Time) {
		return ErrInvalidDateRange
	}
	if f.Limit < 0 {
		return ErrInvalidLimit
	}
	return nil
}

// Matches reports whether a record satisfies the owner, date and category filters.
// The limit is applied by the source, not here.
func (f FilterCriteria) Matches(rec ExpenseRecord) bool {
	if rec.OwnerID != f.OwnerID {
		return false
	}
	if !f.DateRange.Contains(rec.Date) {
		return false
	}
	if f.CategoryID != nil {
		if rec.CategoryID == nil || *rec.CategoryID != *f.CategoryID {
			return false
		}
	}
	return true
}

// CategoryLabel returns the category name, or fallback when absent.
func (e ExpenseRecord) CategoryLabel(fallback string) string {
	if e.CategoryName == nil || *e.CategoryName == "" {
		return fallback
	}
	return *e.CategoryName
}

// NotesText returns the notes, or an empty string.
func (e ExpenseRecord) NotesText() string {
	if e.Notes == nil {
		return ""
	}
	return *e.Notes
}

// StringPtr is a small helper for optional text fields.
func StringPtr(s string) *string {
	return &s
}
