package http

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"finease/internal/buildinfo"
	"finease/internal/log"
)

const readyTimeout = 2 * time.Second

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Server is running Fine."))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":  "ok",
		"version": buildinfo.Version,
		"uptime":  time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	}).Write(w)
}

// handleReady pings the store; a failing store makes the instance unready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":        "ready",
		"store":         "ok",
		"events":        s.events,
		"cache":         s.reports.CacheStats(),
		"activeClients": s.rateLimiter.ActiveClients(),
	}
	status := http.StatusOK

	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WithComponent(log.ComponentStore).WarnContext(r.Context(), "Store ping failed",
				log.FieldError, err.Error())
			body["status"] = "unavailable"
			body["store"] = "unreachable"
			status = http.StatusServiceUnavailable
		}
	}

	NewJSONResponse().Status(status).Body(body).Write(w)
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var b strings.Builder

	tm := s.traceMiddleware.GetMetrics()
	writeMetric(&b, "finease_http_requests_total", "counter", tm.TotalRequests)
	writeMetric(&b, "finease_http_client_errors_total", "counter", tm.ClientErrors)
	writeMetric(&b, "finease_http_server_errors_total", "counter", tm.ServerErrors)
	writeMetric(&b, "finease_http_request_duration_avg_ms", "gauge", tm.AverageDurationMs())

	rl := s.rateLimiter.GetMetrics()
	writeMetric(&b, "finease_rate_limit_allowed_total", "counter", rl.Allowed)
	writeMetric(&b, "finease_rate_limit_rejected_total", "counter", rl.Rejected)
	writeMetric(&b, "finease_rate_limit_clients", "gauge", rl.ClientCount)

	sec := s.securityDetector.GetMetrics()
	writeMetric(&b, "finease_security_suspicious_requests_total", "counter", sec.SuspiciousRequests)
	writeMetric(&b, "finease_security_spoofed_forwarding_total", "counter", sec.SpoofedForwarding)

	writeMetric(&b, "finease_transactions_created_total", "counter", atomic.LoadInt64(&s.appMetrics.created))
	writeMetric(&b, "finease_transactions_updated_total", "counter", atomic.LoadInt64(&s.appMetrics.updated))
	writeMetric(&b, "finease_transactions_deleted_total", "counter", atomic.LoadInt64(&s.appMetrics.deleted))

	stats := s.reports.CacheStats()
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		st := stats[name]
		fmt.Fprintf(&b, "finease_cache_size{cache=%q} %d\n", name, st.Size)
		fmt.Fprintf(&b, "finease_cache_hits_total{cache=%q} %d\n", name, st.Hits)
		fmt.Fprintf(&b, "finease_cache_misses_total{cache=%q} %d\n", name, st.Misses)
		fmt.Fprintf(&b, "finease_cache_evictions_total{cache=%q} %d\n", name, st.Evictions)
	}

	writeMetric(&b, "finease_uptime_seconds", "gauge", int64(time.Since(s.appMetrics.uptime).Seconds()))

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	_, _ = w.Write([]byte(b.String()))
}

func writeMetric(b *strings.Builder, name, kind string, value any) {
	fmt.Fprintf(b, "# TYPE %s %s\n", name, kind)
	switch v := value.(type) {
	case float64:
		fmt.Fprintf(b, "%s %.3f\n", name, v)
	default:
		fmt.Fprintf(b, "%s %v\n", name, v)
	}
}
