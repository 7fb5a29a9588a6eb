// Package http is the JSON API of the service.
package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/cors"

	"finease/internal/auth"
	"finease/internal/log"
	"finease/internal/middleware/ratelimit"
	"finease/internal/middleware/security"
	"finease/internal/middleware/trace"
	"finease/internal/services"
	"finease/internal/store"
)

const defaultStoreTimeout = 7 * time.Second

// Deps are the collaborators of the server. Events reports whether change
// events are being published; it is informational only.
type Deps struct {
	Transactions *services.TransactionService
	Reports      *services.ReportService
	Health       store.HealthChecker
	Verifier     auth.Verifier
	Logger       *log.Logger
	Events       bool
}

type Options struct {
	CORSAllowedOrigins []string
	RateLimitPerMinute int
	StoreTimeout       time.Duration
}

type Server struct {
	http.Server

	transactions *services.TransactionService
	reports      *services.ReportService
	health       store.HealthChecker
	logger       *log.Logger
	events       bool
	storeTimeout time.Duration

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

type appMetrics struct {
	created int64
	updated int64
	deleted int64
	uptime  time.Time
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, deps Deps, opts Options) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = defaultStoreTimeout
	}

	detector := security.NewDetector()
	s := &Server{
		transactions:     deps.Transactions,
		reports:          deps.Reports,
		health:           deps.Health,
		logger:           logger.WithComponent(log.ComponentHTTP),
		events:           deps.Events,
		storeTimeout:     opts.StoreTimeout,
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(logger, detector.ExtractClientIP),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}

	mux := http.NewServeMux()
	authed := auth.Middleware(deps.Verifier, writeError)

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.Handle("POST /transactions", authed(http.HandlerFunc(s.handleCreateTransaction)))
	mux.Handle("GET /my-transactions", authed(http.HandlerFunc(s.handleListTransactions)))
	mux.Handle("GET /transaction/{id}", authed(http.HandlerFunc(s.handleGetTransaction)))
	mux.Handle("PUT /transaction/{id}", authed(http.HandlerFunc(s.handleUpdateTransaction)))
	mux.Handle("DELETE /transaction/{id}", authed(http.HandlerFunc(s.handleDeleteTransaction)))
	mux.Handle("GET /totalOverview", authed(http.HandlerFunc(s.handleTotalOverview)))
	mux.Handle("GET /reports", authed(http.HandlerFunc(s.handleReports)))

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, detector.ExtractClientIP(r), log.FieldPath, r.URL.Path)
		writeMessage(w, http.StatusTooManyRequests, msgTooManyRequests)
	})(handler)
	handler = newCORS(opts.CORSAllowedOrigins).Handler(handler)
	handler = detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// newCORS allows the configured origins; "*" allows any origin without
// credentials.
func newCORS(origins []string) *cors.Cors {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", trace.HeaderRequestID},
		ExposedHeaders: []string{trace.HeaderRequestID, "Retry-After"},
		MaxAge:         600,
	})
}

// storeContext bounds the store calls of one request.
func (s *Server) storeContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.storeTimeout)
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.logger.Info("HTTP server shutting down", log.FieldOperation, log.OpShutdown)
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (m *appMetrics) record(counter *int64) {
	atomic.AddInt64(counter, 1)
}
