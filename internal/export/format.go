// Package export renders filtered expense rows as CSV or PDF documents and
// streams them through a Sink.
package export

import (
	"fmt"
	"strings"
	"time"

	"expensetracker/internal/core"
)

type Format string

const (
	CSV Format = "csv"
	PDF Format = "pdf"
)

// ParseFormat accepts csv or pdf in any case. An empty value selects CSV.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(CSV):
		return CSV, nil
	case string(PDF):
		return PDF, nil
	default:
		return "", fmt.Errorf("%w: %q", core.ErrUnsupportedFormat, s)
	}
}

func (f Format) ContentType() string {
	if f == PDF {
		return "application/pdf"
	}
	return "text/csv; charset=utf-8"
}

func (f Format) Extension() string {
	return string(f)
}

// Filename returns expenses_<timestamp>.<ext>, where the timestamp is the
// UTC ISO-8601 form of now with ':' and '.' replaced by '-'.
func Filename(f Format, now time.Time) string {
	ts := now.UTC().Format("2006-01-02T15:04:05.000Z")
	ts = strings.NewReplacer(":", "-", ".", "-").Replace(ts)
	return "expenses_" + ts + "." + f.Extension()
}
