package export

import (
	"context"
	"encoding/csv"
	"strconv"

	"expensetracker/internal/core"
)

var csvHeader = []string{"id", "date", "category_name", "amount", "notes"}

type csvRenderer struct {
	flushEvery int
}

func (r *csvRenderer) Render(ctx context.Context, rows core.Rows, sink Sink, p *Progress) error {
	if err := ready(ctx, sink); err != nil {
		return err
	}
	cw := csv.NewWriter(sinkWriter{sink})
	if err := writeRecord(cw, csvHeader); err != nil {
		return err
	}

	n := 0
	for rec, err := range rows {
		if err != nil {
			return rowsErr(err)
		}
		if err := ready(ctx, sink); err != nil {
			return err
		}
		if err := writeRecord(cw, csvFields(rec)); err != nil {
			return err
		}
		n++
		p.row()
		if r.flushEvery > 0 && n%r.flushEvery == 0 {
			if err := sink.Flush(); err != nil {
				return classify(err)
			}
		}
	}
	return classify(sink.Flush())
}

// writeRecord pushes one line to the sink immediately.
func writeRecord(cw *csv.Writer, fields []string) error {
	if err := cw.Write(fields); err != nil {
		return classify(err)
	}
	cw.Flush()
	return classify(cw.Error())
}

func csvFields(rec core.ExpenseRecord) []string {
	return []string{
		strconv.FormatInt(rec.ID, 10),
		rec.Date.String(),
		rec.CategoryLabel(""),
		rec.Amount,
		rec.NotesText(),
	}
}
