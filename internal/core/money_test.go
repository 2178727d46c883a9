package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{"0", "0", true},
		{".5", "0.5", true},
		{"12.", "12", true},
		{"0.1000000001", "0.1000000001", true},
		{" 2.50 ", "2.5", true},
		{"-1", "", false},
		{"+1", "", false},
		{"1e3", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"1,000.00", "", false},
		{".", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("%q expected ErrInvalidAmount, got %v", tc.in, err)
			}
		}
	}
}

func TestRecordAmountNamesRecord(t *testing.T) {
	_, err := RecordAmount(ExpenseRecord{ID: 42, Amount: "twelve"})
	var amountErr *AmountError
	if !errors.As(err, &amountErr) {
		t.Fatalf("expected *AmountError, got %v", err)
	}
	if amountErr.RecordID != 42 || amountErr.Value != "twelve" {
		t.Fatalf("unexpected error fields: %+v", amountErr)
	}
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected error to wrap ErrInvalidAmount")
	}
}

func TestFormatAmount(t *testing.T) {
	cases := map[string]string{
		"12":      "12.00",
		"12.5":    "12.50",
		"0.005":   "0.01",
		"3.14159": "3.14",
	}
	for in, want := range cases {
		if got := FormatAmount(decimal.RequireFromString(in)); got != want {
			t.Fatalf("FormatAmount(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestPercent(t *testing.T) {
	got := Percent(decimal.NewFromInt(150), decimal.NewFromInt(200))
	if !got.Equal(decimal.NewFromInt(75)) {
		t.Fatalf("expected 75, got %s", got)
	}
}
