package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"expensetracker/internal/export"
	"expensetracker/internal/log"
	"expensetracker/internal/middleware/auth"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/middleware/security"
	"expensetracker/internal/middleware/trace"
	"expensetracker/internal/ports"
	"expensetracker/internal/services"
)

// Dependencies are the collaborators the handlers call into.
type Dependencies struct {
	Reports    *services.ReportService
	Exports    *services.ExportService
	Categories ports.CategoryLister
	Health     ports.HealthChecker
	Logger     *log.Logger
}

// Options tune the server. Zero values fall back to defaults.
type Options struct {
	JWTSecret          string
	RateLimitPerMinute int
	// ExportBufferBytes is the sink buffer; its first flush commits the response.
	ExportBufferBytes int
	// ExportWriteTimeout extends the write deadline of export responses,
	// which outlive the server-wide WriteTimeout.
	ExportWriteTimeout time.Duration
	TrustedProxies     []string
}

// Server is an http.Server serving the reporting and export API.
type Server struct {
	http.Server

	reports    *services.ReportService
	exports    *services.ExportService
	categories ports.CategoryLister
	health     ports.HealthChecker
	logger     *log.Logger

	verifier    *auth.Verifier
	rateLimiter *ratelimit.Limiter
	tracer      *trace.Middleware
	clientIP    *security.ClientIPResolver

	exportBufferBytes  int
	exportWriteTimeout time.Duration

	metrics      exportMetrics
	startedAt    time.Time
	shutdownOnce sync.Once
}

// exportMetrics counts finished exports per terminal state.
type exportMetrics struct {
	completed int64
	aborted   int64
	failed    int64
	bytes     int64
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, opts Options, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}

	limitCfg := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		limitCfg.RequestsPerMinute = opts.RateLimitPerMinute
	}

	resolver := security.NewClientIPResolver()
	for _, cidr := range opts.TrustedProxies {
		if err := resolver.AddTrustedProxy(cidr); err != nil {
			logger.WithComponent(log.ComponentSecurity).Warn("Ignoring trusted proxy",
				"cidr", cidr, log.FieldError, err.Error())
		}
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		reports:            deps.Reports,
		exports:            deps.Exports,
		categories:         deps.Categories,
		health:             deps.Health,
		logger:             logger.WithComponent(log.ComponentHTTP),
		verifier:           auth.NewVerifier(opts.JWTSecret),
		rateLimiter:        ratelimit.NewLimiter(limitCfg),
		clientIP:           resolver,
		exportBufferBytes:  opts.ExportBufferBytes,
		exportWriteTimeout: opts.ExportWriteTimeout,
		startedAt:          time.Now(),
	}
	s.tracer = trace.NewMiddleware(logger, resolver.ExtractClientIP)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.Handle("GET /api/reports", s.authenticated(s.handleReport))
	mux.Handle("GET /api/budget-status", s.authenticated(s.handleBudgetStatus))
	mux.Handle("GET /api/export", s.authenticated(s.handleExport))
	mux.Handle("GET /api/categories", s.authenticated(s.handleCategories))
	mux.Handle("GET /api/settings", s.authenticated(s.handleSettings))

	limited := s.rateLimiter.Middleware(resolver.ExtractClientIP, s.writeRateLimited)(mux)
	traced := s.tracer.Middleware(limited)
	s.Handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(traced)

	return s
}

// authenticated resolves the owner from the bearer token before calling next.
func (s *Server) authenticated(next http.HandlerFunc) http.Handler {
	return s.verifier.Middleware(s.writeAuthError)(next)
}

func (s *Server) writeAuthError(w http.ResponseWriter, r *http.Request, status int, err error) {
	log.FromContext(r.Context()).WithComponent(log.ComponentAuth).
		WarnContext(r.Context(), "Request rejected", log.FieldStatusCode, status, log.FieldError, err.Error())

	var resp *JSONResponseBuilder
	if status == http.StatusUnauthorized {
		resp = UnauthorizedError("authentication required")
	} else {
		resp = ForbiddenError("invalid or expired token")
	}
	resp.RequestID(trace.GetRequestID(r.Context())).Write(w)
}

func (s *Server) writeRateLimited(w http.ResponseWriter, r *http.Request) {
	TooManyRequestsError("rate limit exceeded, please try again later").
		RequestID(trace.GetRequestID(r.Context())).
		Write(w)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	// Ensure shutdown logic runs only once
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func (m *exportMetrics) record(state export.State, bytes int64) {
	switch state {
	case export.StateCompleted:
		atomic.AddInt64(&m.completed, 1)
	case export.StateAborted:
		atomic.AddInt64(&m.aborted, 1)
	case export.StateFailed:
		atomic.AddInt64(&m.failed, 1)
	}
	atomic.AddInt64(&m.bytes, bytes)
}
