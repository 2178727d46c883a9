package export

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrSinkClosed is returned by Sink.Write once the sink no longer accepts
// data: the consumer went away or the sink was finished.
var ErrSinkClosed = errors.New("sink closed")

// Sink is the outbound side of an export.
//
// Writable reports whether another write can still be delivered. Finish is
// idempotent; only the first call has an effect.
type Sink interface {
	Writable() bool
	Write(p []byte) error
	Flush() error
	Finish() error
	// Committed reports whether any byte has reached the transport, after
	// which the response status can no longer change.
	Committed() bool
	Written() int64
}

// Discarder is implemented by sinks that can drop output that has not been
// committed yet.
type Discarder interface {
	Discard() bool
}

// HTTPSink streams into an http.ResponseWriter through a buffer. Response
// headers are sent with the first byte that leaves the buffer.
type HTTPSink struct {
	ctx    context.Context
	w      http.ResponseWriter
	rc     *http.ResponseController
	header http.Header
	buf    *bufio.Writer

	committed bool
	discarded bool
	finished  bool
	written   int64
	err       error
}

// NewHTTPSink returns a sink bound to the request context ctx. header is
// copied into the response on commit.
func NewHTTPSink(ctx context.Context, w http.ResponseWriter, header http.Header, bufSize int) *HTTPSink {
	s := &HTTPSink{
		ctx:    ctx,
		w:      w,
		rc:     http.NewResponseController(w),
		header: header,
	}
	if bufSize <= 0 {
		bufSize = 32 * 1024
	}
	s.buf = bufio.NewWriterSize(transport{s}, bufSize)
	return s
}

// transport is the unbuffered side of the sink.
type transport struct{ s *HTTPSink }

func (t transport) Write(p []byte) (int, error) {
	s := t.s
	if !s.committed {
		h := s.w.Header()
		for k, v := range s.header {
			h[k] = v
		}
		s.w.WriteHeader(http.StatusOK)
		s.committed = true
	}
	return s.w.Write(p)
}

func (s *HTTPSink) Writable() bool {
	return !s.finished && s.err == nil && s.ctx.Err() == nil
}

func (s *HTTPSink) Write(p []byte) error {
	if s.finished {
		return ErrSinkClosed
	}
	if s.err != nil {
		return s.err
	}
	if err := s.ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrSinkClosed, err)
	}
	n, err := s.buf.Write(p)
	s.written += int64(n)
	if err != nil {
		s.err = err
		return err
	}
	return nil
}

// Flush pushes buffered bytes to the client.
func (s *HTTPSink) Flush() error {
	if s.finished || s.err != nil {
		return s.err
	}
	if err := s.buf.Flush(); err != nil {
		s.err = err
		return err
	}
	if !s.committed {
		return nil
	}
	if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		s.err = err
		return err
	}
	return nil
}

// Finish flushes what is left unless the output was discarded.
func (s *HTTPSink) Finish() error {
	if s.finished {
		return nil
	}
	if s.discarded || s.err != nil {
		s.finished = true
		return s.err
	}
	err := s.Flush()
	s.finished = true
	return err
}

// Discard drops buffered output if nothing has been committed, leaving the
// response free for an error reply. It reports whether that was possible.
func (s *HTTPSink) Discard() bool {
	if s.committed {
		return false
	}
	s.buf.Reset(transport{s})
	s.discarded = true
	return true
}

func (s *HTTPSink) Committed() bool { return s.committed }
func (s *HTTPSink) Written() int64  { return s.written }

// WriterSink streams into any io.Writer, such as a file or stdout.
type WriterSink struct {
	ctx      context.Context
	buf      *bufio.Writer
	out      *countingWriter
	finished bool
	written  int64
	err      error
}

func NewWriterSink(ctx context.Context, w io.Writer) *WriterSink {
	out := &countingWriter{w: w}
	return &WriterSink{ctx: ctx, out: out, buf: bufio.NewWriter(out)}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func (s *WriterSink) Writable() bool {
	return !s.finished && s.err == nil && s.ctx.Err() == nil
}

func (s *WriterSink) Write(p []byte) error {
	if s.finished {
		return ErrSinkClosed
	}
	if s.err != nil {
		return s.err
	}
	if err := s.ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrSinkClosed, err)
	}
	n, err := s.buf.Write(p)
	s.written += int64(n)
	if err != nil {
		s.err = err
	}
	return err
}

func (s *WriterSink) Flush() error {
	if s.finished || s.err != nil {
		return s.err
	}
	if err := s.buf.Flush(); err != nil {
		s.err = err
	}
	return s.err
}

func (s *WriterSink) Finish() error {
	if s.finished {
		return nil
	}
	err := s.Flush()
	s.finished = true
	return err
}

func (s *WriterSink) Committed() bool { return s.out.n > 0 }
func (s *WriterSink) Written() int64  { return s.written }
