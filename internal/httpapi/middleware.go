package httpapi

import (
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/taigrr/editorconfig-mcp/internal/pipeline"
	"github.com/taigrr/editorconfig-mcp/internal/types"
)

const (
	headerRequestID    = "X-Request-ID"
	maxRequestIDLength = 128
)

// statusRecorder captures the status code written by downstream handlers.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status == 0 {
		sr.status = code
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(p []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	return sr.ResponseWriter.Write(p)
}

// Flush keeps streaming responses working through the recorder.
func (sr *statusRecorder) Flush() {
	_ = http.NewResponseController(sr.ResponseWriter).Flush()
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter { return sr.ResponseWriter }

// requestID tags each request with an X-Request-ID, reusing the caller's when
// it is reasonable, and puts a request-scoped logger in the context.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)

		logger := s.logger.With("request_id", id)
		next.ServeHTTP(w, r.WithContext(log.WithContext(r.Context(), logger)))
	})
}

// securityHeaders adds standard defense-in-depth headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// observe logs one line per request and records request metrics.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		s.metrics.ObserveRequest(routeLabel(r), status, elapsed)
		log.FromContext(r.Context()).Info("Request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", elapsed,
			"remote", clientIP(r),
		)
	})
}

// recovery catches panics in handlers and returns a generic 500.
func recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.FromContext(r.Context()).Error("Panic in HTTP handler", "panic", err, "stack", string(debug.Stack()))

				// If headers were already sent, WriteHeader is a no-op.
				writeError(w, pipeline.ErrInternal)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// rateLimit rejects callers that exceed their request budget. Probes are exempt.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil || r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		if !s.limiter.Allow(clientIP(r)) {
			s.metrics.RateLimited()
			w.Header().Set("Retry-After", strconv.Itoa(int(s.limiter.Window().Seconds())))
			writeErrorBody(w, http.StatusTooManyRequests, types.ErrorBody{
				Error:   "Rate limit exceeded",
				Message: "Too many requests from this client",
				Hint:    "Wait before retrying",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP identifies the caller by remote address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// routeLabel keeps metric cardinality bounded to known routes.
func routeLabel(r *http.Request) string {
	switch p := r.URL.Path; p {
	case routeFormatFile, routeFormatFiles, routeHealth, routeOpenAPI, routeServers, routeMetrics, routeMCP:
		return p
	}
	return "other"
}
