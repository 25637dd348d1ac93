// Package http serves the upload and job-tracking API. Uploads are accepted
// and queued; processing happens in the worker, so every handler here stays
// fast and stateless.
package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"drawsum/internal/cache"
	"drawsum/internal/log"
	"drawsum/internal/storage"
)

// JobService is the part of the report service the API needs.
type JobService interface {
	CreateJob(ctx context.Context, originalFilename string, content io.Reader) (*storage.Job, error)
	GetJob(ctx context.Context, id string) (*storage.Job, error)
}

type appMetrics struct {
	startedAt    time.Time
	uploadsTotal int64
}

type Server struct {
	http.Server
	jobs           JobService
	maxUploadBytes int64
	rateLimiter    *rateLimiter
	secMetrics     *securityMetrics
	appMetrics     *appMetrics

	// Terminal job states never change, so their responses are cacheable.
	statusCache  *cache.LRUCache[jobResponse]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and returns a ready-to-run server.
func NewServer(addr string, jobs JobService, maxUploadBytes int64) *Server {
	mux := http.NewServeMux()
	apiLogger := log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: log.Middleware(apiLogger)(mux),
		},
		jobs:           jobs,
		maxUploadBytes: maxUploadBytes,
		rateLimiter:    newRateLimiter(),
		secMetrics:     &securityMetrics{},
		appMetrics:     &appMetrics{startedAt: time.Now()},
		statusCache:    cache.NewLRUCache[jobResponse](500, 5*time.Minute),
		cacheManager:   cache.NewManager(),
	}

	s.cacheManager.Register(s.statusCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("POST /api/v1/uploads", s.withSecurityHeaders(s.handleUpload))
	mux.HandleFunc("GET /api/v1/jobs/{id}", s.withSecurityHeaders(s.handleJobStatus))
	mux.HandleFunc("GET /api/v1/jobs/{id}/download", s.withSecurityHeaders(s.handleJobDownload))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.cacheManager != nil {
			s.cacheManager.Stop()
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request
// logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)
		logger := log.FromContext(ctx)

		logger.InfoContext(ctx, "Request started",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		if detectSuspiciousRequest(r, s.secMetrics) {
			logger.WarnContext(ctx, "Suspicious request detected",
				log.FieldRequestID, requestID,
				log.FieldClientIP, clientIP,
				log.FieldPath, r.URL.Path)
		}

		// Uploads are the expensive path; reads stay unthrottled.
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP, s.secMetrics) {
			logger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP, log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		logger.InfoContext(ctx, "Request completed",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, duration.Milliseconds(),
			log.FieldClientIP, clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.startedAt).String(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.jobs == nil {
		checks["job_service"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		// A lookup for a fabricated id exercises the job store round trip;
		// not-found is the healthy answer.
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if _, err := s.jobs.GetJob(ctx, "readyz-probe"); err != nil && !errors.Is(err, storage.ErrJobNotFound) {
			checks["job_service"] = "failed: " + err.Error()
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["job_service"] = "ok"
		}
	}

	checks["status_cache"] = map[string]any{
		"entries": s.statusCache.Size(),
		"status":  "ok",
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}
