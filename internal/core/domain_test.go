package core

import (
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-09")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "2025-03-09" {
		t.Fatalf("round trip mismatch: %s", d)
	}
	if _, err := ParseDate("09/03/2025"); err == nil {
		t.Fatalf("expected error for non ISO date")
	}
}

func TestMonthRange(t *testing.T) {
	r := MonthRange(time.Date(2024, 2, 17, 15, 0, 0, 0, time.UTC))
	if r.Start.String() != "2024-02-01" || r.End.String() != "2024-02-29" {
		t.Fatalf("unexpected range %s..%s", r.Start, r.End)
	}
	if !r.Contains(NewDate(2024, 2, 29)) || r.Contains(NewDate(2024, 3, 1)) {
		t.Fatalf("range bounds are not inclusive of the month only")
	}
}

func TestFilterCriteriaValidate(t *testing.T) {
	good := FilterCriteria{OwnerID: 1, DateRange: DateRange{Start: NewDate(2025, 1, 1), End: NewDate(2025, 1, 31)}}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		f    FilterCriteria
		want error
	}{
		{FilterCriteria{}, ErrMissingOwner},
		{FilterCriteria{OwnerID: 1, DateRange: DateRange{Start: NewDate(2025, 2, 1), End: NewDate(2025, 1, 1)}}, ErrInvalidDateRange},
		{FilterCriteria{OwnerID: 1, Limit: -1}, ErrInvalidLimit},
	}
	for i, tc := range bads {
		if err := tc.f.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestFilterCriteriaMatches(t *testing.T) {
	food := int64(3)
	other := int64(4)
	f := FilterCriteria{
		OwnerID:    7,
		DateRange:  DateRange{Start: NewDate(2025, 1, 10)},
		CategoryID: &food,
	}
	rec := ExpenseRecord{OwnerID: 7, Date: NewDate(2025, 1, 10), CategoryID: &food}
	if !f.Matches(rec) {
		t.Fatalf("expected record to match")
	}

	misses := []ExpenseRecord{
		{OwnerID: 8, Date: NewDate(2025, 1, 10), CategoryID: &food},
		{OwnerID: 7, Date: NewDate(2025, 1, 9), CategoryID: &food},
		{OwnerID: 7, Date: NewDate(2025, 1, 10), CategoryID: &other},
		{OwnerID: 7, Date: NewDate(2025, 1, 10)},
	}
	for i, r := range misses {
		if f.Matches(r) {
			t.Fatalf("case %d should not match", i)
		}
	}
}

func TestExpenseRecordLabels(t *testing.T) {
	rec := ExpenseRecord{}
	if rec.CategoryLabel("N/A") != "N/A" || rec.NotesText() != "" {
		t.Fatalf("unexpected defaults")
	}
	rec.CategoryName = StringPtr("Food")
	rec.Notes = StringPtr("lunch")
	if rec.CategoryLabel("N/A") != "Food" || rec.NotesText() != "lunch" {
		t.Fatalf("unexpected values")
	}
}
