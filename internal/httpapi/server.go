// Package httpapi serves the formatting tools over HTTP/REST.
package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/taigrr/editorconfig-mcp/internal/logging"
	"github.com/taigrr/editorconfig-mcp/internal/manifest"
	"github.com/taigrr/editorconfig-mcp/internal/metrics"
	"github.com/taigrr/editorconfig-mcp/internal/pipeline"
	"github.com/taigrr/editorconfig-mcp/internal/ratelimit"
	"github.com/taigrr/editorconfig-mcp/internal/types"
	"github.com/taigrr/editorconfig-mcp/internal/validate"
)

const (
	routeFormatFile  = "/v1/tools/" + manifest.ToolFormatFile
	routeFormatFiles = "/v1/tools/" + manifest.ToolFormatFiles
	routeHealth      = "/health"
	routeOpenAPI     = "/openapi.json"
	routeServers     = "/.well-known/mcp/servers.json"
	routeMetrics     = "/metrics"
	routeMCP         = "/mcp"

	// DefaultMaxBodyBytes bounds request bodies.
	DefaultMaxBodyBytes = 1 << 20
)

// Options configures a Server.
type Options struct {
	Version  string
	Pipeline *pipeline.Service
	Logger   *log.Logger
	Metrics  *metrics.Metrics
	// Limiter is optional; nil disables rate limiting.
	Limiter      *ratelimit.Limiter
	MaxBodyBytes int64
	// MCPHandler, when set, is mounted at /mcp.
	MCPHandler http.Handler
}

// Server routes HTTP requests to the formatting pipelines.
type Server struct {
	version      string
	pipeline     *pipeline.Service
	logger       *log.Logger
	metrics      *metrics.Metrics
	limiter      *ratelimit.Limiter
	maxBodyBytes int64
	mcpHandler   http.Handler
	started      time.Time
}

// New creates a Server.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &Server{
		version:      opts.Version,
		pipeline:     opts.Pipeline,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		limiter:      opts.Limiter,
		maxBodyBytes: opts.MaxBodyBytes,
		mcpHandler:   opts.MCPHandler,
		started:      time.Now(),
	}
}

// Handler returns the full middleware-wrapped handler.
//
// The handler mounts:
//   - POST /v1/tools/format_file
//   - POST /v1/tools/format_files
//   - GET  /health, /openapi.json, /.well-known/mcp/servers.json, /metrics
//   - /mcp → streamable MCP transport, when configured
//
// Everything else is a JSON 404.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+routeFormatFile, s.handleFormatFile)
	mux.HandleFunc("POST "+routeFormatFiles, s.handleFormatFiles)
	mux.HandleFunc("GET "+routeHealth, s.handleHealth)
	mux.HandleFunc("GET "+routeOpenAPI, s.handleOpenAPI)
	mux.HandleFunc("GET "+routeServers, s.handleServers)
	if s.metrics != nil {
		mux.Handle("GET "+routeMetrics, s.metrics.Handler())
	}
	if s.mcpHandler != nil {
		mux.Handle(routeMCP, s.mcpHandler)
	}
	mux.HandleFunc("/", handleNotFound)

	return s.requestID(securityHeaders(s.observe(recovery(s.rateLimit(mux)))))
}

func (s *Server) handleFormatFile(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r, s.maxBodyBytes)
	if err != nil {
		s.writeReadError(w, err)
		return
	}

	var in types.FormatFileInput
	if err := decodeRequest(body, validate.FormatFileInput, pipeline.FormatFileExpected, &in); err != nil {
		writeError(w, err)
		return
	}

	out, err := s.pipeline.FormatOne(r.Context(), in.FilePath)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFormatFiles(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r, s.maxBodyBytes)
	if err != nil {
		s.writeReadError(w, err)
		return
	}

	var in types.FormatFilesInput
	if err := decodeRequest(body, validate.FormatFilesInput, pipeline.FormatFilesExpected, &in); err != nil {
		writeError(w, err)
		return
	}

	out, err := s.pipeline.FormatMany(r.Context(), in.Pattern)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) writeReadError(w http.ResponseWriter, err error) {
	if errors.Is(err, errBodyTooLarge) {
		writeErrorBody(w, http.StatusRequestEntityTooLarge, types.ErrorBody{
			Error:   "Payload too large",
			Message: "Request body exceeds the size limit",
			Hint:    "Send a smaller request body",
		})
		return
	}
	writeError(w, err)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, types.HealthOutput{
		Status:  "ok",
		Version: s.version,
		Uptime:  time.Since(s.started).Seconds(),
	})
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, manifest.OpenAPI(s.version, baseURL(r)))
}

func (s *Server) handleServers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, manifest.NewServers(s.version, baseURL(r)))
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeErrorBody(w, http.StatusNotFound, types.ErrorBody{
		Error:   "Endpoint not found",
		Message: r.Method + " " + r.URL.Path + " is not a known endpoint",
		Hint:    "See /openapi.json for the available endpoints",
	})
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
