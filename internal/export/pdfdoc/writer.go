// Package pdfdoc writes PDF documents incrementally.
//
// Each page content stream is written straight to the underlying writer as
// drawing calls arrive; only object offsets and page numbers are kept in
// memory. Coordinates are measured from the upper left corner of the page,
// in points.
package pdfdoc

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Font selects one of the two standard Type1 fonts embedded by reference.
type Font int

const (
	Regular Font = iota
	Bold
)

const (
	catalogObj = 1
	pagesObj   = 2
	regularObj = 3
	boldObj    = 4
	firstFree  = 5
)

var ErrClosed = errors.New("pdf document already closed")

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Writer emits a single document. The first error is sticky: once a write
// fails every later call returns it without touching the output.
type Writer struct {
	out    *countingWriter
	width  float64
	height float64

	offsets map[int]int64
	nextObj int
	pages   []int

	// open page state
	inPage      bool
	contentObj  int
	streamStart int64

	begun  bool
	closed bool
	err    error
}

// New returns a writer for pages of the given size in points.
func New(w io.Writer, width, height float64) *Writer {
	return &Writer{
		out:     &countingWriter{w: w},
		width:   width,
		height:  height,
		offsets: make(map[int]int64),
		nextObj: firstFree,
	}
}

func (w *Writer) Err() error { return w.err }

// Pages returns the number of finished pages.
func (w *Writer) Pages() int { return len(w.pages) }

// Written returns the number of bytes emitted so far.
func (w *Writer) Written() int64 { return w.out.n }

// Begin writes the file header and the font resources.
func (w *Writer) Begin() error {
	if w.begun {
		return w.err
	}
	w.begun = true
	// Binary marker line tells transports the file is not plain text.
	w.printf("%%PDF-1.4\n%%\xe2\xe3\xcf\xd3\n")
	w.object(regularObj, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	w.object(boldObj, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica-Bold /Encoding /WinAnsiEncoding >>")
	return w.err
}

// AddPage ends the current page, if any, and opens a new one.
func (w *Writer) AddPage() error {
	if err := w.usable(); err != nil {
		return err
	}
	if !w.begun {
		if err := w.Begin(); err != nil {
			return err
		}
	}
	if w.inPage {
		w.endPage()
	}
	w.contentObj = w.alloc()
	lengthObj := w.alloc()
	w.offsets[w.contentObj] = w.out.n
	w.printf("%d 0 obj\n<< /Length %d 0 R >>\nstream\n", w.contentObj, lengthObj)
	w.streamStart = w.out.n
	w.inPage = true
	return w.err
}

// Text draws s with its baseline at y.
func (w *Writer) Text(font Font, size, x, y float64, s string) error {
	if err := w.drawable(); err != nil {
		return err
	}
	w.printf("BT /F%d %s Tf %s %s Td (%s) Tj ET\n",
		int(font)+1, num(size), num(x), num(w.height-y), escape(s))
	return w.err
}

// Line strokes a straight line of the given width.
func (w *Writer) Line(x1, y1, x2, y2, width float64) error {
	if err := w.drawable(); err != nil {
		return err
	}
	w.printf("%s w %s %s m %s %s l S\n",
		num(width), num(x1), num(w.height-y1), num(x2), num(w.height-y2))
	return w.err
}

// Close finishes the open page and writes the page tree, catalog, cross
// reference table and trailer. A document without pages gets one blank page.
// Calling Close more than once returns the first result.
func (w *Writer) Close() error {
	if w.closed {
		return w.err
	}
	if w.err != nil {
		w.closed = true
		return w.err
	}
	if len(w.pages) == 0 && !w.inPage {
		w.AddPage()
	}
	if w.inPage {
		w.endPage()
	}
	w.closed = true

	kids := make([]string, len(w.pages))
	for i, p := range w.pages {
		kids[i] = strconv.Itoa(p) + " 0 R"
	}
	w.object(pagesObj, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(w.pages)))
	w.object(catalogObj, fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pagesObj))

	xref := w.out.n
	size := w.nextObj
	w.printf("xref\n0 %d\n0000000000 65535 f \n", size)
	for n := 1; n < size; n++ {
		w.printf("%010d 00000 n \n", w.offsets[n])
	}
	w.printf("trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", size, catalogObj, xref)
	return w.err
}

func (w *Writer) endPage() {
	length := w.out.n - w.streamStart
	w.printf("endstream\nendobj\n")
	w.object(w.contentObj+1, strconv.FormatInt(length, 10))

	page := w.alloc()
	w.object(page, fmt.Sprintf(
		"<< /Type /Page /Parent %d 0 R /MediaBox [0 0 %s %s] /Resources << /Font << /F1 %d 0 R /F2 %d 0 R >> >> /Contents %d 0 R >>",
		pagesObj, num(w.width), num(w.height), regularObj, boldObj, w.contentObj))
	w.pages = append(w.pages, page)
	w.inPage = false
}

func (w *Writer) alloc() int {
	n := w.nextObj
	w.nextObj++
	return n
}

func (w *Writer) object(n int, body string) {
	if w.err != nil {
		return
	}
	w.offsets[n] = w.out.n
	w.printf("%d 0 obj\n%s\nendobj\n", n, body)
}

func (w *Writer) printf(format string, args ...any) {
	if w.err != nil {
		return
	}
	if _, err := fmt.Fprintf(w.out, format, args...); err != nil {
		w.err = err
	}
}

func (w *Writer) usable() error {
	if w.err != nil {
		return w.err
	}
	if w.closed {
		return ErrClosed
	}
	return nil
}

func (w *Writer) drawable() error {
	if err := w.usable(); err != nil {
		return err
	}
	if !w.inPage {
		return errors.New("pdf: no open page")
	}
	return nil
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// escape encodes s as WinAnsi and escapes it for a literal string.
// Characters outside the code page become '?'.
func escape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\', '(', ')':
			b.WriteByte('\\')
			b.WriteRune(r)
			continue
		case '\n', '\r', '\t':
			b.WriteByte(' ')
			continue
		}
		c, ok := charmap.Windows1252.EncodeRune(r)
		if !ok || c < 0x20 {
			c = '?'
		}
		b.WriteByte(c)
	}
	return b.String()
}
