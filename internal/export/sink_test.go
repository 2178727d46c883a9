package export

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
	"expensetracker/internal/core/coretest"
)

func TestHTTPSinkCommitsHeadersLazily(t *testing.T) {
	rec := httptest.NewRecorder()
	job := NewJob(CSV, core.FilterCriteria{OwnerID: 1}, time.Now())
	sink := NewHTTPSink(context.Background(), rec, job.Header(), 64)

	require.NoError(t, sink.Write([]byte("id,date\n")))
	assert.False(t, sink.Committed())
	assert.False(t, rec.Flushed)

	require.NoError(t, sink.Flush())
	assert.True(t, sink.Committed())
	assert.True(t, rec.Flushed)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, job.ID, rec.Header().Get("X-Export-Job"))

	require.NoError(t, sink.Finish())
	require.NoError(t, sink.Finish())
	assert.Equal(t, "id,date\n", rec.Body.String())
	assert.Equal(t, int64(8), sink.Written())
	assert.ErrorIs(t, sink.Write([]byte("x")), ErrSinkClosed)
}

func TestHTTPSinkNotWritableAfterDisconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sink := NewHTTPSink(ctx, httptest.NewRecorder(), nil, 0)
	assert.True(t, sink.Writable())
	cancel()
	assert.False(t, sink.Writable())
	err := sink.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrSinkClosed)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPSinkDiscardLeavesResponseFree(t *testing.T) {
	rec := httptest.NewRecorder()
	sink := NewHTTPSink(context.Background(), rec, http.Header{"Content-Type": {"application/pdf"}}, 1024)
	require.NoError(t, sink.Write([]byte("%PDF-1.4 partial")))

	assert.True(t, sink.Discard())
	require.NoError(t, sink.Finish())
	assert.Zero(t, rec.Body.Len())

	// The handler can still reply with an error.
	http.Error(rec, "failed", http.StatusInternalServerError)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHTTPSinkCannotDiscardCommittedOutput(t *testing.T) {
	rec := httptest.NewRecorder()
	sink := NewHTTPSink(context.Background(), rec, nil, 4)
	require.NoError(t, sink.Write([]byte("more than four bytes")))
	assert.True(t, sink.Committed())
	assert.False(t, sink.Discard())
}

type brokenWriter struct {
	http.ResponseWriter
}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset by peer") }

func TestHTTPSinkTransportError(t *testing.T) {
	sink := NewHTTPSink(context.Background(), brokenWriter{httptest.NewRecorder()}, nil, 4)
	err := sink.Write([]byte("0123456789"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSinkClosed)
	assert.False(t, sink.Writable())
	assert.ErrorIs(t, classify(err), core.ErrStreamWriteFailed)
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewWriterSink(context.Background(), &buf)
	r, _ := NewRenderer(CSV, Options{})
	out := NewJob(CSV, core.FilterCriteria{OwnerID: 1}, time.Now()).Run(context.Background(), coretest.Rows(sampleRecords(2)...), r, sink, nil)
	require.Equal(t, StateCompleted, out.State)
	assert.True(t, out.Committed)
	assert.Equal(t, int64(buf.Len()), out.Bytes)
	assert.Contains(t, buf.String(), "id,date,category_name,amount,notes\n")
}
