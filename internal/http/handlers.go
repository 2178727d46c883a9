package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	"expensetracker/internal/export"
	"expensetracker/internal/log"
	"expensetracker/internal/middleware/auth"
	"expensetracker/internal/middleware/trace"
	"expensetracker/internal/services"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	}).Write(w)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.health == nil {
		checks["backend"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else if err := s.health.Ping(ctx); err != nil {
		checks["backend"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["backend"] = "ok"
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.GetMetrics().ClientCount,
		"status":         "ok",
	}

	NewJSONResponse().Status(httpStatus).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides request, rate limit and export counters in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.tracer.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()

	w.WriteHeader(http.StatusOK)

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
		fmt.Fprintf(w, "%s %v\n\n", name, value)
	}

	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_requests_active", "gauge", "Requests in flight", traceMetrics.ActiveRequests)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)
	metric("rate_limit_hits_total", "counter", "Total rate limit hits", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	metric("invalid_forwarded_headers_total", "counter", "Malformed client address headers from trusted proxies", s.clientIP.InvalidHeaders())

	fmt.Fprintf(w, "# HELP exports_total Finished exports by terminal state\n")
	fmt.Fprintf(w, "# TYPE exports_total counter\n")
	fmt.Fprintf(w, "exports_total{state=\"completed\"} %d\n", atomic.LoadInt64(&s.metrics.completed))
	fmt.Fprintf(w, "exports_total{state=\"aborted\"} %d\n", atomic.LoadInt64(&s.metrics.aborted))
	fmt.Fprintf(w, "exports_total{state=\"failed\"} %d\n\n", atomic.LoadInt64(&s.metrics.failed))

	if cc, ok := s.categories.(*cache.CategoryCache); ok {
		st := cc.Stats()
		metric("category_cache_hits_total", "counter", "Category lookups served from cache", st.Hits)
		metric("category_cache_misses_total", "counter", "Category lookups that reached the backend", st.Misses)
	}

	metric("export_bytes_total", "counter", "Document bytes accepted by export sinks", atomic.LoadInt64(&s.metrics.bytes))
	metric("uptime_seconds", "gauge", "Application uptime in seconds", fmt.Sprintf("%.0f", time.Since(s.startedAt).Seconds()))
}

// handleReport answers with the category breakdown and budget status of
// the filtered records.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, _ := auth.OwnerID(ctx)

	f, err := ParseFilterCriteria(r.URL.Query(), ownerID)
	if err != nil {
		s.badRequest(w, r, err)
		return
	}

	rep, err := s.reports.Report(ctx, f)
	if err != nil {
		s.serviceError(w, r, "Failed to build report", err)
		return
	}
	NewJSONResponse().Body(rep).Write(w)
}

// handleBudgetStatus answers with the budget status of the current month.
func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, _ := auth.OwnerID(ctx)

	st, err := s.reports.BudgetStatus(ctx, ownerID)
	if err != nil {
		s.serviceError(w, r, "Failed to compute budget status", err)
		return
	}
	NewJSONResponse().Body(st).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if s.categories == nil {
		s.writeError(w, r, ServiceUnavailableError("categories are not available"))
		return
	}
	cats, err := s.categories.Categories(r.Context())
	if err != nil {
		s.serviceError(w, r, "Failed to list categories", err)
		return
	}
	if cats == nil {
		cats = []core.Category{}
	}
	NewJSONResponse().Body(map[string]any{"categories": cats}).Write(w)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, _ := auth.OwnerID(ctx)

	st, err := s.reports.Settings(ctx, ownerID)
	if err != nil {
		s.serviceError(w, r, "Failed to read settings", err)
		return
	}
	NewJSONResponse().Body(st).Write(w)
}

// handleExport streams the filtered records as a CSV or PDF download.
//
// Errors found before the first byte is committed are answered with a JSON
// error. After commit the status line is gone: a failed export aborts the
// connection so the client sees a truncated transfer instead of a complete
// looking file, and an aborted export has nobody left to answer. Running out
// of export time is a failure, never an abort.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, _ := auth.OwnerID(ctx)
	logger := log.FromContext(ctx).WithComponent(log.ComponentExport)

	f, err := ParseFilterCriteria(r.URL.Query(), ownerID)
	if err != nil {
		s.badRequest(w, r, err)
		return
	}

	job, err := s.exports.Prepare(r.URL.Query().Get(paramFormat), f)
	if err != nil {
		s.badRequest(w, r, err)
		return
	}

	if s.exportWriteTimeout > 0 {
		rc := http.NewResponseController(w)
		if err := rc.SetWriteDeadline(time.Now().Add(s.exportWriteTimeout)); err != nil && !errors.Is(err, http.ErrNotSupported) {
			logger.WarnContext(ctx, "Could not extend write deadline", log.FieldError, err.Error())
		}
	}

	sink := export.NewHTTPSink(ctx, w, job.Header(), s.exportBufferBytes)
	out := s.exports.Run(ctx, job, sink)
	s.metrics.record(out.State, out.Bytes)

	switch out.State {
	case export.StateCompleted, export.StateAborted:
		return
	case export.StateFailed:
		if !out.Committed {
			if errors.Is(out.Err, core.ErrExportTimeout) {
				s.writeError(w, r, ServiceUnavailableError("export timed out"))
				return
			}
			s.writeError(w, r, InternalServerError("export failed"))
			return
		}
		panic(http.ErrAbortHandler)
	}
}

// badRequest answers parse and validation errors.
func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	var pe *ParamError
	if errors.As(err, &pe) || services.IsClientError(err) {
		s.writeError(w, r, BadRequestError(err.Error()))
		return
	}
	s.serviceError(w, r, "Request failed", err)
}

// serviceError maps service errors to status codes and logs server faults.
func (s *Server) serviceError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case services.IsClientError(err):
		s.writeError(w, r, BadRequestError(err.Error()))
	case errors.Is(err, core.ErrInvalidAmount):
		log.FromContext(r.Context()).WithComponent(log.ComponentReport).
			WarnContext(r.Context(), msg, log.FieldError, err.Error())
		s.writeError(w, r, UnprocessableEntityError(err.Error()))
	case errors.Is(err, context.Canceled):
		// Client went away; nothing to answer.
	default:
		log.FromContext(r.Context()).WithComponent(log.ComponentHTTP).
			ErrorContext(r.Context(), msg, log.FieldError, err.Error())
		s.writeError(w, r, InternalServerError("internal error"))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, resp *JSONResponseBuilder) {
	resp.RequestID(trace.GetRequestID(r.Context())).Write(w)
}
