package export

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"expensetracker/internal/core"
)

// State of an export job. A job moves from Idle to Writing and ends in
// exactly one of Completed, Aborted or Failed.
type State string

const (
	StateIdle      State = "idle"
	StateWriting   State = "writing"
	StateCompleted State = "completed"
	StateAborted   State = "aborted"
	StateFailed    State = "failed"
)

var ErrJobStarted = errors.New("export job already started")

// Job is one export request. It is not persisted and not safe for
// concurrent use.
type Job struct {
	ID        string
	Format    Format
	Filter    core.FilterCriteria
	Filename  string
	CreatedAt time.Time
	// Cursor is the number of rows written so far.
	Cursor int

	state State
	err   error
}

// Outcome summarises a finished job.
type Outcome struct {
	State     State
	Err       error
	Rows      int
	Pages     int
	Bytes     int64
	Committed bool
	// Discarded is set when uncommitted output was dropped so the caller can
	// still send an error response.
	Discarded bool
	FinishErr error
}

func NewJob(f Format, filter core.FilterCriteria, now time.Time) *Job {
	return &Job{
		ID:        uuid.NewString(),
		Format:    f,
		Filter:    filter,
		Filename:  Filename(f, now),
		CreatedAt: now,
		state:     StateIdle,
	}
}

func (j *Job) State() State { return j.state }
func (j *Job) Err() error   { return j.err }

// Header returns the response headers for the download.
func (j *Job) Header() http.Header {
	h := make(http.Header)
	h.Set("Content-Type", j.Format.ContentType())
	h.Set("Content-Disposition", `attachment; filename="`+j.Filename+`"`)
	h.Set("Cache-Control", "no-store")
	h.Set("X-Export-Job", j.ID)
	return h
}

// Run renders rows into sink. The sink is finished exactly once whatever the
// outcome; on Aborted or Failed output that never reached the transport is
// discarded first.
func (j *Job) Run(ctx context.Context, rows core.Rows, r Renderer, sink Sink, p *Progress) (out Outcome) {
	if j.state != StateIdle {
		return Outcome{State: j.state, Err: ErrJobStarted}
	}
	j.state = StateWriting
	if p == nil {
		p = &Progress{}
	}

	defer func() {
		if j.state != StateCompleted && !sink.Committed() {
			if d, ok := sink.(Discarder); ok {
				out.Discarded = d.Discard()
			}
		}
		ferr := sink.Finish()
		if ferr != nil && j.state == StateCompleted {
			j.transition(classify(ferr))
		}
		j.Cursor = p.Rows
		out.State = j.state
		out.Err = j.err
		out.Rows = p.Rows
		out.Pages = p.Pages
		out.Bytes = sink.Written()
		out.Committed = sink.Committed()
		out.FinishErr = ferr
	}()

	j.transition(r.Render(ctx, rows, sink, p))
	return out
}

func (j *Job) transition(err error) {
	j.err = err
	switch {
	case err == nil:
		j.state = StateCompleted
	case errors.Is(err, core.ErrStreamAborted):
		j.state = StateAborted
	default:
		j.state = StateFailed
	}
}
