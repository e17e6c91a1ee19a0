// Package pipeline runs the single-file and batch formatting workflows on top
// of the workspace filesystem and a Formatter.
package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/taigrr/editorconfig-mcp/internal/filesystem"
	"github.com/taigrr/editorconfig-mcp/internal/formatter"
	"github.com/taigrr/editorconfig-mcp/internal/logging"
	"github.com/taigrr/editorconfig-mcp/internal/metrics"
	"github.com/taigrr/editorconfig-mcp/internal/telemetry"
	"github.com/taigrr/editorconfig-mcp/internal/types"
	"github.com/taigrr/editorconfig-mcp/internal/validate"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxFiles caps how many candidates one batch may touch.
const DefaultMaxFiles = 1000

// Input shapes reported alongside InvalidInput errors.
var (
	FormatFileExpected  = map[string]string{"file_path": "string (required): path relative to the project root"}
	FormatFilesExpected = map[string]string{"pattern": "string (optional, default " + validate.DefaultPattern + "): glob relative to the project root"}
)

var errCapExceeded = errors.New("candidate cap exceeded")

// Options configures a Service. Zero values select defaults.
type Options struct {
	MaxFiles int
	Logger   *log.Logger
	Metrics  *metrics.Metrics
}

// Service formats files inside one project root.
type Service struct {
	fs        *filesystem.Service
	formatter formatter.Formatter
	maxFiles  int
	logger    *log.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

// New creates a Service.
func New(fsys *filesystem.Service, f formatter.Formatter, opts Options) *Service {
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = DefaultMaxFiles
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Service{
		fs:        fsys,
		formatter: f,
		maxFiles:  opts.MaxFiles,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		tracer:    telemetry.Tracer(),
	}
}

// MaxFiles returns the batch cap.
func (s *Service) MaxFiles() int { return s.maxFiles }

// FormatOne formats a single file and reports its size afterwards.
func (s *Service) FormatOne(ctx context.Context, filePath string) (types.FormatFileOutput, error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.FormatOne", trace.WithAttributes(attribute.String("file.path", filePath)))
	defer span.End()

	out, err := s.formatOne(ctx, filePath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, KindOf(err).String())
		return types.FormatFileOutput{}, err
	}
	span.SetAttributes(attribute.Int64("file.size", out.Bytes))
	return out, nil
}

func (s *Service) formatOne(ctx context.Context, filePath string) (types.FormatFileOutput, error) {
	logger := logging.FromContext(ctx, s.logger)
	// Once started, a file is formatted even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	if err := validate.FilePath(filePath); err != nil {
		return types.FormatFileOutput{}, invalidInput(err, FormatFileExpected)
	}

	fullPath, _, err := s.fs.StatFile(filePath)
	switch {
	case errors.Is(err, filesystem.ErrForbidden):
		logger.Warn("Rejected path outside project root", "path", filePath)
		return types.FormatFileOutput{}, forbiddenPath(filePath, err)
	case errors.Is(err, filesystem.ErrNotFound):
		return types.FormatFileOutput{}, fileNotFound(filePath, err)
	case err != nil:
		return types.FormatFileOutput{}, processingFailed(filePath, err)
	}

	start := time.Now()
	if err := s.formatter.Format(ctx, fullPath); err != nil {
		logger.Error("Failed to format file", "path", filePath, "err", err)
		return types.FormatFileOutput{}, processingFailed(filePath, err)
	}
	logging.LogDuration(logger, "format_file", start)

	info, err := os.Stat(fullPath)
	if err != nil {
		return types.FormatFileOutput{}, processingFailed(filePath, err)
	}

	s.metrics.FilesFormatted(1)
	logger.Info("Formatted file", "path", filePath, "bytes", info.Size())

	return types.FormatFileOutput{
		Success:  true,
		FilePath: filePath,
		Bytes:    info.Size(),
	}, nil
}

// FormatMany formats every file under the project root matching pattern.
// An empty pattern selects validate.DefaultPattern.
func (s *Service) FormatMany(ctx context.Context, pattern string) (types.FormatFilesOutput, error) {
	if pattern == "" {
		pattern = validate.DefaultPattern
	}

	ctx, span := s.tracer.Start(ctx, "pipeline.FormatMany", trace.WithAttributes(attribute.String("glob.pattern", pattern)))
	defer span.End()

	out, err := s.formatMany(ctx, pattern)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, KindOf(err).String())
		return types.FormatFilesOutput{}, err
	}
	span.SetAttributes(
		attribute.Int("files.formatted", out.Count),
		attribute.Int("files.skipped", len(out.Skipped)),
	)
	return out, nil
}

type outcome int

const (
	outcomeNone outcome = iota
	outcomeFormatted
	outcomeSkipped
)

func (s *Service) formatMany(ctx context.Context, pattern string) (types.FormatFilesOutput, error) {
	logger := logging.FromContext(ctx, s.logger)
	// A batch runs to completion once started.
	ctx = context.WithoutCancel(ctx)

	if err := validate.Pattern(pattern); err != nil {
		return types.FormatFilesOutput{}, invalidInput(err, FormatFilesExpected)
	}

	walkPattern := path.Clean(strings.TrimPrefix(pattern, "./"))
	if path.IsAbs(walkPattern) || walkPattern == ".." || strings.HasPrefix(walkPattern, "../") {
		err := errors.New("pattern must stay inside the project root")
		return types.FormatFilesOutput{}, invalidInput(err, FormatFilesExpected)
	}

	start := time.Now()
	var (
		candidates []string
		seen       = make(map[string]struct{})
		files      = []string{}
		skipped    []string
	)

	// Symlinks are not traversed, so a link loop cannot multiply candidates.
	// Linked files are deduplicated by their target.
	err := doublestar.GlobWalk(s.fs.FS(), walkPattern, func(rel string, d fs.DirEntry) error {
		if d.IsDir() || !s.fs.IsAllowed(rel) {
			return nil
		}
		key := rel
		if target, isDir, err := s.fs.Target(rel); err == nil {
			if isDir {
				return nil
			}
			key = target
		}
		if _, ok := seen[key]; ok {
			return nil
		}
		seen[key] = struct{}{}
		candidates = append(candidates, rel)
		if len(candidates) > s.maxFiles {
			return errCapExceeded
		}

		switch s.formatCandidate(ctx, logger, rel) {
		case outcomeFormatted:
			files = append(files, rel)
		case outcomeSkipped:
			skipped = append(skipped, rel)
		}
		return nil
	}, doublestar.WithFilesOnly(), doublestar.WithNoFollow())

	switch {
	case errors.Is(err, errCapExceeded):
		s.metrics.BatchAborted()
		logger.Warn("Batch aborted", "pattern", pattern, "limit", s.maxFiles)
		return types.FormatFilesOutput{}, tooManyFiles(pattern, s.maxFiles)
	case errors.Is(err, doublestar.ErrBadPattern):
		return types.FormatFilesOutput{}, invalidInput(err, FormatFilesExpected)
	case err != nil:
		return types.FormatFilesOutput{}, &Error{
			Kind:    KindInternal,
			Message: "Failed to enumerate files",
			Err:     err,
		}
	}

	skipped = reconcile(candidates, files, skipped)

	s.metrics.FilesFormatted(len(files))
	s.metrics.FilesSkipped(len(skipped))
	logger.Info("Formatted files", "pattern", pattern, "count", len(files), "skipped", len(skipped))
	logging.LogDuration(logger, "format_files", start)

	return types.FormatFilesOutput{
		Success: true,
		Pattern: pattern,
		Count:   len(files),
		Files:   files,
		Skipped: skipped,
	}, nil
}

// formatCandidate formats one batch candidate. A panicking formatter yields
// outcomeNone; reconcile then accounts for the file.
func (s *Service) formatCandidate(ctx context.Context, logger *log.Logger, rel string) (res outcome) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Formatter panicked", "path", rel, "panic", r)
			res = outcomeNone
		}
	}()

	fullPath := s.fs.Abs(rel)
	if !s.fs.Contains(fullPath) {
		logger.Warn("Skipping file outside project root", "path", rel)
		return outcomeSkipped
	}
	if err := s.formatter.Format(ctx, fullPath); err != nil {
		logger.Warn("Skipping file", "path", rel, "err", err)
		return outcomeSkipped
	}
	return outcomeFormatted
}

// reconcile appends to skipped every candidate with no recorded outcome.
func reconcile(candidates, files, skipped []string) []string {
	accounted := make(map[string]struct{}, len(files)+len(skipped))
	for _, f := range files {
		accounted[f] = struct{}{}
	}
	for _, f := range skipped {
		accounted[f] = struct{}{}
	}
	for _, c := range candidates {
		if _, ok := accounted[c]; !ok {
			skipped = append(skipped, c)
			accounted[c] = struct{}{}
		}
	}
	return skipped
}
