package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"kakeibo/internal/cache"
	applog "kakeibo/internal/log"
	"kakeibo/internal/middleware/ratelimit"
	"kakeibo/internal/middleware/security"
	"kakeibo/internal/middleware/trace"
	"kakeibo/internal/services"
	"kakeibo/internal/todo"
	appweb "kakeibo/web"
)

const (
	reportCacheSize      = 120
	cacheCleanupInterval = 10 * time.Minute
	staticMaxAge         = 3600
)

// Options configures NewServer. Zero values get defaults.
type Options struct {
	Addr               string
	Logger             *applog.Logger
	RateLimitPerMinute int
	CacheTTL           time.Duration
	TrustedProxies     []string
	// Ready checks the storage backend for /readyz. Nil means always ready.
	Ready func(ctx context.Context) error
	// Now is the clock for the default month. Defaults to time.Now.
	Now func() time.Time
}

type Server struct {
	http.Server

	templates *template.Template
	budget    *services.BudgetService
	board     *todo.Board
	logger    *applog.Logger
	now       func() time.Time
	ready     func(ctx context.Context) error

	reports *cache.LRUCache[services.MonthReport]
	caches  *cache.Manager

	detector *security.Detector
	headers  *security.HeadersMiddleware
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware

	appMetrics   appMetrics
	shutdownOnce sync.Once
}

type appMetrics struct {
	started             time.Time
	transactionsWritten atomic.Int64
	tasksChanged        atomic.Int64
	suspiciousBlocked   atomic.Int64
}

// NewServer configures routes, middleware and templates.
func NewServer(opts Options, budget *services.BudgetService, board *todo.Board) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, fmt.Errorf("trusted proxies: %w", err)
		}
	}

	rl := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		rl.RequestsPerMinute = opts.RateLimitPerMinute
	}

	logger := opts.Logger.WithComponent(applog.ComponentHTTP)
	s := &Server{
		budget:   budget,
		board:    board,
		logger:   logger,
		now:      opts.Now,
		ready:    opts.Ready,
		reports:  cache.NewLRUCache[services.MonthReport](reportCacheSize, opts.CacheTTL),
		caches:   cache.NewManager(),
		detector: detector,
		headers:  security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		limiter:  ratelimit.NewLimiter(rl),
		tracer:   trace.NewMiddleware(detector.ExtractClientIP, opts.Logger),
	}
	s.appMetrics.started = opts.Now()

	s.caches.Register("month_reports", s.reports)
	s.caches.StartCleanup(context.Background(), cacheCleanupInterval)

	t, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", applog.FieldError, err)
	}
	s.templates = t

	mux := http.NewServeMux()
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(staticMaxAge)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /budget", s.handleBudget)
	mux.HandleFunc("POST /transactions", s.handleCreateTransaction)
	mux.HandleFunc("POST /transactions/update", s.handleUpdateTransaction)
	mux.HandleFunc("POST /transactions/delete", s.handleDeleteTransaction)
	mux.HandleFunc("GET /api/transactions", s.handleExportTransactions)

	mux.HandleFunc("GET /todo", s.handleTodo)
	mux.HandleFunc("POST /todo/tasks", s.handleAddTask)
	mux.HandleFunc("POST /todo/tasks/update", s.handleRenameTask)
	mux.HandleFunc("POST /todo/tasks/status", s.handleTaskStatus)
	mux.HandleFunc("POST /todo/tasks/delete", s.handleDeleteTask)
	mux.HandleFunc("POST /todo/subtasks", s.handleAddSubtask)
	mux.HandleFunc("POST /todo/subtasks/status", s.handleSubtaskStatus)
	mux.HandleFunc("POST /todo/subtasks/delete", s.handleDeleteSubtask)

	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit)(h)
	h = s.blockSuspicious(h)
	h = s.headers.Middleware(h)
	h = applog.RequestIDMiddleware(trace.RequestIDFromRequest)(h)
	h = s.tracer.Middleware(h)
	h = applog.Middleware(opts.Logger)(h)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s, nil
}

// blockSuspicious answers probes with 403 before they reach a handler.
func (s *Server) blockSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if suspicious, reason := s.detector.DetectSuspiciousRequest(r); suspicious {
			s.appMetrics.suspiciousBlocked.Add(1)
			applog.FromContext(r.Context()).WithComponent(applog.ComponentSecurity).WarnContext(r.Context(),
				"Suspicious request blocked",
				"reason", reason,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				applog.FieldClientIP, s.detector.ExtractClientIP(r))
			ErrorResponse(http.StatusForbidden, "Forbidden").Write(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(),
		"Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	TooManyRequestsError("リクエストが多すぎます。しばらくしてから再度お試しください。").Write(w)
}

// Shutdown stops background goroutines and the HTTP server once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// monthReport returns the cached report for a month, loading it on a miss.
func (s *Server) monthReport(ctx context.Context, year, month int) services.MonthReport {
	key := strconv.Itoa(year) + "-" + strconv.Itoa(month)
	if report, ok := s.reports.Get(key); ok {
		applog.FromContext(ctx).WithComponent(applog.ComponentCache).DebugContext(ctx, "Month report cache hit",
			applog.FieldYear, year, applog.FieldMonth, month)
		return report
	}
	gen := s.reports.Generation()
	report := s.budget.MonthReport(ctx, year, month)
	s.reports.SetIfGeneration(gen, key, report)
	return report
}

// eventLog writes domain events with the request-scoped logger.
func eventLog(ctx context.Context) *applog.StructuredLogger {
	return applog.NewStructuredLogger(applog.FromContext(ctx))
}

// invalidateReports drops every cached month. A transaction edit can move
// a record between months, so per-key invalidation is not enough.
func (s *Server) invalidateReports() {
	s.reports.Purge()
}
