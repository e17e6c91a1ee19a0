// Package main implements the MCP server that applies .editorconfig rules.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"github.com/taigrr/editorconfig-mcp/internal/config"
	"github.com/taigrr/editorconfig-mcp/internal/filesystem"
	"github.com/taigrr/editorconfig-mcp/internal/formatter"
	"github.com/taigrr/editorconfig-mcp/internal/httpapi"
	"github.com/taigrr/editorconfig-mcp/internal/logging"
	"github.com/taigrr/editorconfig-mcp/internal/metrics"
	"github.com/taigrr/editorconfig-mcp/internal/pathfilter"
	"github.com/taigrr/editorconfig-mcp/internal/pipeline"
	"github.com/taigrr/editorconfig-mcp/internal/ratelimit"
	"github.com/taigrr/editorconfig-mcp/internal/telemetry"
)

type flags struct {
	configPath string
	logLevel   string
	maxFiles   int
	port       int
}

func main() {
	if err := fang.Execute(
		context.Background(),
		newRootCmd(),
		fang.WithVersion(version),
		fang.WithoutCompletions(),
		fang.WithoutManpage(),
	); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "editorconfig-mcp [project-root]",
		Short: "MCP server that formats files with .editorconfig rules",
		Long: `editorconfig-mcp is a Model Context Protocol (MCP) server that
formats files according to the .editorconfig rules of a project.
It exposes format_file and format_files tools over stdio, and
over HTTP with the serve command, while keeping every path inside
the project root.`,
		Example: `editorconfig-mcp ~/src/project`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStdio(cmd, args, &f)
		},
	}
	cmd.PersistentFlags().StringVar(&f.configPath, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().IntVar(&f.maxFiles, "max-files", 0, "Maximum number of files one format_files call may touch")

	serve := &cobra.Command{
		Use:     "serve [project-root]",
		Short:   "Serve the tools over HTTP",
		Example: `editorconfig-mcp serve --port 8432 ~/src/project`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHTTP(cmd, args, &f)
		},
	}
	serve.Flags().IntVar(&f.port, "port", 0, "Port to listen on (default $PORT or 8432)")
	cmd.AddCommand(serve)

	return cmd
}

// app holds the services shared by both transports.
type app struct {
	cfg      config.Config
	logger   *log.Logger
	metrics  *metrics.Metrics
	pipeline *pipeline.Service
	shutdown telemetry.ShutdownFunc
}

func setup(ctx context.Context, cmd *cobra.Command, args []string, f *flags) (*app, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}

	if len(args) > 0 {
		cfg.Root = args[0]
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if cmd.Flags().Changed("max-files") {
		cfg.MaxFiles = f.maxFiles
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = f.port
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("project root %s is not a directory", root)
	}
	cfg.Root = root

	logger, err := logging.NewStderr(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	shutdown, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, version)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	pf := pathfilter.New(&cfg.PathFilter)
	fileSystem := filesystem.New(root, pf)
	pipe := pipeline.New(fileSystem, formatter.New(), pipeline.Options{
		MaxFiles: cfg.MaxFiles,
		Logger:   logger,
		Metrics:  m,
	})

	logger.Debug("Configuration loaded", "root", root, "max_files", pipe.MaxFiles(), "ignored", pf.Patterns())

	return &app{
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		pipeline: pipe,
		shutdown: shutdown,
	}, nil
}

func (a *app) close() {
	if err := a.shutdown(context.Background()); err != nil {
		a.logger.Warn("Failed to flush traces", "err", err)
	}
}

func runStdio(cmd *cobra.Command, args []string, f *flags) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := setup(ctx, cmd, args, f)
	if err != nil {
		return err
	}
	defer a.close()

	server := newMCPServer(a.pipeline, a.logger)
	a.logger.Info("Serving over stdio", "root", a.cfg.Root)

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("error running server: %w", err)
	}
	return nil
}

func runHTTP(cmd *cobra.Command, args []string, f *flags) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := setup(ctx, cmd, args, f)
	if err != nil {
		return err
	}
	defer a.close()

	limiter, err := ratelimit.New(ratelimit.Config{
		Limit:  a.cfg.RateLimit,
		Window: a.cfg.RateWindow,
	})
	if err != nil {
		return err
	}

	mcpServer := newMCPServer(a.pipeline, a.logger)
	streamable := mcp.NewStreamableHTTPHandler(
		func(*http.Request) *mcp.Server { return mcpServer },
		&mcp.StreamableHTTPOptions{Stateless: true},
	)

	api := httpapi.New(httpapi.Options{
		Version:      version,
		Pipeline:     a.pipeline,
		Logger:       a.logger,
		Metrics:      a.metrics,
		Limiter:      limiter,
		MaxBodyBytes: a.cfg.MaxBodyBytes,
		MCPHandler:   streamable,
	})

	addr := ":" + strconv.Itoa(a.cfg.Port)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute, // large batches run synchronously
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		<-ctx.Done()
		// Drain in-flight requests within 15 seconds
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		a.logger.Info("Shutting down gracefully")
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("Error during shutdown", "err", err)
		}
	}()

	a.logger.Info("Listening", "addr", addr, "root", a.cfg.Root, "version", version)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("error running server: %w", err)
	}
	return nil
}
