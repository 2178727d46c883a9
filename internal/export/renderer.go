package export

import (
	"context"
	"errors"
	"fmt"

	"expensetracker/internal/core"
)

// Renderer writes rows to a sink in input order. It returns nil on
// completion, an error wrapping core.ErrStreamAborted when the sink stopped
// accepting data or the request was cancelled, core.ErrExportTimeout when the
// render deadline passed, core.ErrStreamWriteFailed on a transport error, or
// the error that ended the row sequence.
type Renderer interface {
	Render(ctx context.Context, rows core.Rows, sink Sink, p *Progress) error
}

// Options tune rendering independently of the format.
type Options struct {
	// FlushEvery flushes the sink after this many rows; 0 flushes only at the end.
	FlushEvery int
	PDF        PDFOptions
}

// NewRenderer returns the renderer for f.
func NewRenderer(f Format, opts Options) (Renderer, error) {
	switch f {
	case CSV:
		return &csvRenderer{flushEvery: opts.FlushEvery}, nil
	case PDF:
		return &pdfRenderer{opts: opts.PDF.withDefaults(), flushEvery: opts.FlushEvery}, nil
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrUnsupportedFormat, string(f))
	}
}

// Progress tracks how far a render got. A nil *Progress is valid.
type Progress struct {
	Rows  int
	Pages int

	// Notify, if set, is called every NotifyEvery rows.
	Notify      func(Progress)
	NotifyEvery int
}

func (p *Progress) row() {
	if p == nil {
		return
	}
	p.Rows++
	if p.Notify != nil && p.NotifyEvery > 0 && p.Rows%p.NotifyEvery == 0 {
		p.Notify(*p)
	}
}

func (p *Progress) setPages(n int) {
	if p != nil {
		p.Pages = n
	}
}

// ready is the per-row check performed before any row is written.
func ready(ctx context.Context, sink Sink) error {
	if err := ctx.Err(); err != nil {
		return contextErr(err)
	}
	if !sink.Writable() {
		return core.ErrStreamAborted
	}
	return nil
}

// contextErr tells a passed deadline, which is a server side failure, from
// a cancelled request.
func contextErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", core.ErrExportTimeout, err)
	}
	return fmt.Errorf("%w: %w", core.ErrStreamAborted, err)
}

// rowsErr wraps the error that ended the row sequence.
func rowsErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("read rows: %w", contextErr(err))
	}
	return fmt.Errorf("read rows: %w", err)
}

// classify maps a sink error onto the stream error taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, core.ErrStreamAborted) || errors.Is(err, core.ErrStreamWriteFailed) {
		return err
	}
	if errors.Is(err, ErrSinkClosed) {
		return fmt.Errorf("%w: %w", core.ErrStreamAborted, err)
	}
	return fmt.Errorf("%w: %w", core.ErrStreamWriteFailed, err)
}

// sinkWriter adapts a Sink to io.Writer.
type sinkWriter struct{ sink Sink }

func (w sinkWriter) Write(p []byte) (int, error) {
	if err := w.sink.Write(p); err != nil {
		return 0, err
	}
	return len(p), nil
}
