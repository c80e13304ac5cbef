package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	applog "kakeibo/internal/log"
)

const readyTimeout = 2 * time.Second

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Failed to encode JSON response", applog.FieldError, err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.appMetrics.started).Round(time.Second).String(),
	})
}

// handleReady reports whether templates and storage can serve requests.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]any)
	status := "ready"
	httpStatus := http.StatusOK
	fail := func(name, reason string) {
		checks[name] = reason
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	if s.templates == nil {
		fail("templates", "not_loaded")
	} else {
		checks["templates"] = "ok"
	}

	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		err := s.ready(ctx)
		cancel()
		if err != nil {
			fail("storage", fmt.Sprintf("failed: %v", err))
		} else {
			checks["storage"] = "ok"
		}
	} else {
		checks["storage"] = "ok"
	}

	checks["cache"] = map[string]any{
		"month_report_entries": s.reports.Size(),
		"status":               "ok",
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.limiter.ActiveClients(),
		"status":         "ok",
	}

	writeJSON(w, r, httpStatus, map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes application and security counters in a
// Prometheus-like text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	traceMetrics := s.tracer.GetMetrics()
	rateMetrics := s.limiter.GetMetrics()
	securityMetrics := s.detector.GetMetrics()
	cacheStats := s.reports.Stats()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	metric := func(name, help, kind string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
		fmt.Fprintf(w, "%s %v\n\n", name, value)
	}

	metric("http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests)
	metric("http_client_errors_total", "Responses with a 4xx status", "counter", traceMetrics.ClientErrors)
	metric("http_server_errors_total", "Responses with a 5xx status", "counter", traceMetrics.ServerErrors)
	metric("http_response_time_avg_ms", "Average response time in milliseconds", "gauge",
		traceMetrics.AverageResponseTime.Milliseconds())

	metric("transactions_written_total", "Transactions created, updated or deleted", "counter",
		s.appMetrics.transactionsWritten.Load())
	metric("tasks_changed_total", "Task board changes", "counter", s.appMetrics.tasksChanged.Load())
	metric("tasks", "Tasks on the board", "gauge", s.board.Len())

	metric("cache_hits_total", "Month report cache hits", "counter", cacheStats.Hits)
	metric("cache_misses_total", "Month report cache misses", "counter", cacheStats.Misses)
	metric("cache_entries", "Cached month reports", "gauge", cacheStats.Size)

	metric("rate_limit_allowed_total", "Requests admitted by the rate limiter", "counter", rateMetrics.Allowed)
	metric("rate_limit_hits_total", "Requests rejected by the rate limiter", "counter", rateMetrics.TotalHits)
	metric("active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", rateMetrics.ClientCount)

	metric("suspicious_requests_total", "Suspicious requests detected", "counter", securityMetrics.SuspiciousRequests)
	metric("suspicious_requests_blocked_total", "Suspicious requests answered with 403", "counter",
		s.appMetrics.suspiciousBlocked.Load())
	metric("invalid_ip_attempts_total", "Forwarded headers carrying an invalid IP", "counter",
		securityMetrics.InvalidIPAttempts)

	metric("uptime_seconds", "Application uptime in seconds", "gauge",
		int64(s.now().Sub(s.appMetrics.started).Seconds()))
}
