package export

import (
	"bytes"
	"errors"
)

// memSink is an in-memory Sink that can be closed or broken from a test.
type memSink struct {
	buf       bytes.Buffer
	pending   bytes.Buffer
	closed    bool
	failWith  error
	finishes  int
	discarded bool
	written   int64
}

func (s *memSink) Writable() bool { return !s.closed && s.finishes == 0 }

func (s *memSink) Write(p []byte) error {
	if s.closed || s.finishes > 0 {
		return ErrSinkClosed
	}
	if s.failWith != nil {
		return s.failWith
	}
	s.pending.Write(p)
	s.written += int64(len(p))
	return nil
}

func (s *memSink) Flush() error {
	if s.failWith != nil {
		return s.failWith
	}
	s.buf.Write(s.pending.Bytes())
	s.pending.Reset()
	return nil
}

func (s *memSink) Finish() error {
	s.finishes++
	if s.finishes > 1 {
		return errors.New("finish called twice")
	}
	if s.discarded || s.closed {
		return nil
	}
	return s.Flush()
}

func (s *memSink) Discard() bool {
	if s.buf.Len() > 0 {
		return false
	}
	s.pending.Reset()
	s.discarded = true
	return true
}

func (s *memSink) Committed() bool { return s.buf.Len() > 0 }
func (s *memSink) Written() int64  { return s.written }

// String returns everything that reached the transport.
func (s *memSink) String() string { return s.buf.String() }
