package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"gastos/internal/log"
	"gastos/internal/metrics"
	"gastos/internal/services"
)

const (
	defaultWriteLimit = 60
	readyTimeout      = 2 * time.Second
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of the API. Metrics and Ready may be nil.
type Deps struct {
	Home     *services.HomeService
	Expenses *services.ExpenseService
	Catalog  *services.CatalogService
	Metrics  *metrics.Metrics
	Logger   *log.Logger
	Ready    Pinger
	Location *time.Location
	// WriteLimit is the number of mutating requests a client may send per
	// minute. Zero means the default of 60.
	WriteLimit int
}

type Server struct {
	http.Server
	deps        Deps
	rateLimiter *rateLimiter
	requests    *log.StructuredLogger

	shutdownOnce sync.Once
}

func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.New(log.DefaultConfig())
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	limit := deps.WriteLimit
	if limit <= 0 {
		limit = defaultWriteLimit
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		deps:        deps,
		rateLimiter: newRateLimiter(limit, time.Minute),
		requests:    log.NewStructuredLogger(deps.Logger.WithComponent(log.ComponentHTTP)),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", deps.Metrics.Handler())

	s.route(mux, "GET /api/home", s.handleHome)
	s.route(mux, "GET /api/home/state", s.handleHomeState)
	s.route(mux, "POST /api/home/state", s.handleUpdateHomeState)

	s.route(mux, "POST /api/expenses", s.handleCreateExpense)
	s.route(mux, "GET /api/expenses/{id}", s.handleGetExpense)
	s.route(mux, "PUT /api/expenses/{id}", s.handleUpdateExpense)
	s.route(mux, "DELETE /api/expenses/{id}", s.handleDeleteExpense)
	s.route(mux, "POST /api/expenses/{id}/tags/{tagID}", s.handleToggleTag)

	s.route(mux, "GET /api/categories", listHandler(s.deps.Catalog.ListCategories))
	s.route(mux, "POST /api/categories", addHandler(s.deps.Catalog.AddCategory))
	s.route(mux, "PUT /api/categories/{id}", renameHandler(s.deps.Catalog.RenameCategory))
	s.route(mux, "DELETE /api/categories/{id}", deleteHandler(s.deps.Catalog.DeleteCategory))

	s.route(mux, "GET /api/tags", listHandler(s.deps.Catalog.ListTags))
	s.route(mux, "POST /api/tags", addHandler(s.deps.Catalog.AddTag))
	s.route(mux, "PUT /api/tags/{id}", renameHandler(s.deps.Catalog.RenameTag))
	s.route(mux, "DELETE /api/tags/{id}", deleteHandler(s.deps.Catalog.DeleteTag))

	s.route(mux, "GET /api/accounts", listHandler(s.deps.Catalog.ListAccounts))
	s.route(mux, "POST /api/accounts", addHandler(s.deps.Catalog.AddAccount))
	s.route(mux, "PUT /api/accounts/{id}", renameHandler(s.deps.Catalog.RenameAccount))
	s.route(mux, "DELETE /api/accounts/{id}", deleteHandler(s.deps.Catalog.DeleteAccount))

	return s
}

// route registers h behind the logging, request id and security middleware.
// The pattern doubles as the metrics route label.
func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	handler := s.withSecurityHeaders(pattern, h)
	handler = log.RequestIDMiddleware(handler)
	handler = log.Middleware(s.deps.Logger)(handler)
	mux.Handle(pattern, handler)
}

// Shutdown stops the rate limiter and then the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) withSecurityHeaders(route string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		if isWrite(r.Method) && !s.rateLimiter.allow(clientIP) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").
				Header("Retry-After", "60").
				Write(rw)
		} else {
			next(rw, r)
		}

		duration := time.Since(start)
		s.deps.Metrics.ObserveRequest(r.Method, route, rw.statusCode, duration)
		s.requests.LogHTTPEnd(r.Context(), r, rw.statusCode, duration.Milliseconds(), clientIP)
	})
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	}
	return false
}

// responseWriter captures the status code for logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.deps.Ready.Ping(ctx); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
