package export

import (
	"context"

	"expensetracker/internal/core"
	"expensetracker/internal/export/pdfdoc"
)

// Geometry is the page size and margins in points.
type Geometry struct {
	Width, Height           float64
	MarginTop, MarginBottom float64
	MarginLeft, MarginRight float64
}

// A4 with 50pt margins.
var A4 = Geometry{
	Width: 595.28, Height: 841.89,
	MarginTop: 50, MarginBottom: 50,
	MarginLeft: 50, MarginRight: 50,
}

// RowPlacement describes where a data row was drawn.
type RowPlacement struct {
	Index  int // zero based position in the row sequence
	Page   int // one based
	Y      float64
	Height float64
}

type PDFOptions struct {
	Geometry      Geometry
	Title         string
	Lines         []string // printed under the title, e.g. filter and currency
	FontSize      float64
	TitleFontSize float64
	LineHeight    float64 // multiple of FontSize
	RowPadding    float64
	// RepeatHeader redraws the column header at the top of every page.
	RepeatHeader bool
	// CurrencyMarker prefixes every amount, e.g. "$". Empty prints plain numbers.
	CurrencyMarker string
	OnRow          func(RowPlacement)
}

func (o PDFOptions) withDefaults() PDFOptions {
	if o.Geometry == (Geometry{}) {
		o.Geometry = A4
	}
	if o.Title == "" {
		o.Title = "Expense Report"
	}
	if o.FontSize <= 0 {
		o.FontSize = 10
	}
	if o.TitleFontSize <= 0 {
		o.TitleFontSize = 18
	}
	if o.LineHeight <= 0 {
		o.LineHeight = 1.2
	}
	if o.RowPadding <= 0 {
		o.RowPadding = 10
	}
	return o
}

// Column offsets from the left margin.
const (
	categoryOffset = 100
	categoryWidth  = 190
	amountOffset   = 300
	amountWidth    = 70
	notesOffset    = 380
)

// Helvetica ascender, used to place the baseline below a line top.
const ascent = 0.718

type pdfRenderer struct {
	opts       PDFOptions
	flushEvery int
}

// pdfLayout carries the cursor for one render.
type pdfLayout struct {
	o    PDFOptions
	doc  *pdfdoc.Writer
	page int
	y    float64
	// top is where rows start on a page that has no title block.
	top float64
}

func (r *pdfRenderer) Render(ctx context.Context, rows core.Rows, sink Sink, p *Progress) (err error) {
	if err := ready(ctx, sink); err != nil {
		return err
	}
	l := &pdfLayout{o: r.opts, doc: pdfdoc.New(sinkWriter{sink}, r.opts.Geometry.Width, r.opts.Geometry.Height)}
	defer func() {
		// Close the document structure on every path. After an abort or a
		// transport failure this is best effort and its error is ignored.
		cerr := l.doc.Close()
		p.setPages(l.page)
		if err == nil {
			err = classify(cerr)
			if err == nil {
				err = classify(sink.Flush())
			}
		}
	}()

	l.firstPage()
	if err := l.doc.Err(); err != nil {
		return classify(err)
	}
	p.setPages(l.page)

	n := 0
	for rec, rerr := range rows {
		if rerr != nil {
			return rowsErr(rerr)
		}
		if err := ready(ctx, sink); err != nil {
			return err
		}
		amount, aerr := core.RecordAmount(rec)
		if aerr != nil {
			return aerr
		}
		l.row(n, rec, r.opts.CurrencyMarker+core.FormatAmount(amount))
		if err := l.doc.Err(); err != nil {
			return classify(err)
		}
		n++
		p.setPages(l.page)
		p.row()
		if r.flushEvery > 0 && n%r.flushEvery == 0 {
			if err := sink.Flush(); err != nil {
				return classify(err)
			}
		}
	}
	return nil
}

func (l *pdfLayout) lineHeight() float64 {
	return l.o.FontSize * l.o.LineHeight
}

func (l *pdfLayout) contentWidth() float64 {
	g := l.o.Geometry
	return g.Width - g.MarginLeft - g.MarginRight
}

func (l *pdfLayout) notesWidth() float64 {
	return l.contentWidth() - notesOffset
}

// text draws s with its top edge at y.
func (l *pdfLayout) text(font pdfdoc.Font, size, x, y float64, s string) {
	l.doc.Text(font, size, x, y+size*ascent, s)
}

func (l *pdfLayout) firstPage() {
	g := l.o.Geometry
	l.doc.AddPage()
	l.page = 1
	l.y = g.MarginTop

	center := func(font pdfdoc.Font, size float64, s string) {
		w := pdfdoc.StringWidth(font, size, s)
		x := g.MarginLeft + (l.contentWidth()-w)/2
		l.text(font, size, x, l.y, s)
		l.y += size * l.o.LineHeight
	}
	center(pdfdoc.Bold, l.o.TitleFontSize, l.o.Title)
	l.y += l.lineHeight()
	for _, line := range l.o.Lines {
		center(pdfdoc.Regular, l.o.FontSize, line)
	}
	if len(l.o.Lines) > 0 {
		l.y += l.lineHeight()
	}
	l.header()

	l.top = g.MarginTop
	if l.o.RepeatHeader {
		l.top += l.headerHeight()
	}
}

func (l *pdfLayout) headerHeight() float64 {
	return l.lineHeight() + 5
}

// header draws the column titles at the cursor and moves below the rule.
func (l *pdfLayout) header() {
	g := l.o.Geometry
	x := g.MarginLeft
	size := l.o.FontSize
	l.text(pdfdoc.Bold, size, x, l.y, "Date")
	l.text(pdfdoc.Bold, size, x+categoryOffset, l.y, "Category")
	l.text(pdfdoc.Bold, size, x+amountOffset+amountWidth-pdfdoc.StringWidth(pdfdoc.Bold, size, "Amount"), l.y, "Amount")
	l.text(pdfdoc.Bold, size, x+notesOffset, l.y, "Notes")
	l.y += l.lineHeight()
	l.doc.Line(x, l.y, g.Width-g.MarginRight, l.y, 1)
	l.y += 5
}

func (l *pdfLayout) newPage() {
	l.doc.AddPage()
	l.page++
	l.y = l.o.Geometry.MarginTop
	if l.o.RepeatHeader {
		l.header()
	}
}

func (l *pdfLayout) row(index int, rec core.ExpenseRecord, amount string) {
	g := l.o.Geometry
	size := l.o.FontSize
	notes := pdfdoc.Wrap(pdfdoc.Regular, size, rec.NotesText(), l.notesWidth())
	h := max(l.lineHeight(), float64(len(notes))*l.lineHeight()) + l.o.RowPadding

	// A row taller than a whole page is drawn on a fresh page regardless.
	if l.y+h > g.Height-g.MarginBottom && l.y > l.top {
		l.newPage()
	}

	x := g.MarginLeft
	l.text(pdfdoc.Regular, size, x, l.y, rec.Date.String())
	category := pdfdoc.Truncate(pdfdoc.Regular, size, rec.CategoryLabel("N/A"), categoryWidth)
	l.text(pdfdoc.Regular, size, x+categoryOffset, l.y, category)
	aw := pdfdoc.StringWidth(pdfdoc.Regular, size, amount)
	l.text(pdfdoc.Regular, size, x+amountOffset+amountWidth-aw, l.y, amount)
	for i, line := range notes {
		if line == "" {
			continue
		}
		l.text(pdfdoc.Regular, size, x+notesOffset, l.y+float64(i)*l.lineHeight(), line)
	}

	if l.o.OnRow != nil {
		l.o.OnRow(RowPlacement{Index: index, Page: l.page, Y: l.y, Height: h})
	}
	l.y += h
	l.doc.Line(x, l.y, g.Width-g.MarginRight, l.y, 0.5)
}
