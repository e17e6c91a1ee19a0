// Package validate checks tool inputs against their declared JSON schemas.
package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/taigrr/editorconfig-mcp/internal/types"
)

const (
	// MaxFilePathLength bounds file_path, in characters.
	MaxFilePathLength = 1024
	// MaxPatternLength bounds pattern, in characters.
	MaxPatternLength = 256
	// DefaultPattern is used when a batch request carries no pattern.
	DefaultPattern = "**/*"
)

// noNullByte is the schema pattern rejecting embedded NUL characters.
const noNullByte = `^[^\x00]*$`

// Error lists every violation found in one input.
type Error struct {
	Violations []string
}

func (e *Error) Error() string {
	return strings.Join(e.Violations, "; ")
}

func violation(format string, args ...any) *Error {
	return &Error{Violations: []string{fmt.Sprintf(format, args...)}}
}

// FilePath checks a single-file path argument.
func FilePath(path string) error {
	return boundedString("file_path", path, MaxFilePathLength)
}

// Pattern checks a batch glob argument. The pattern is not resolved here,
// only checked for shape and glob syntax.
func Pattern(pattern string) error {
	if err := boundedString("pattern", pattern, MaxPatternLength); err != nil {
		return err
	}
	if !doublestar.ValidatePattern(pattern) {
		return violation("pattern: %q is not a valid glob", pattern)
	}
	return nil
}

func boundedString(field, value string, maxLen int) error {
	switch {
	case value == "":
		return violation("%s: must not be empty", field)
	case strings.ContainsRune(value, 0):
		return violation("%s: must not contain null bytes", field)
	case utf8.RuneCountInString(value) > maxLen:
		return violation("%s: must be at most %d characters", field, maxLen)
	}
	return nil
}

func intPtr(n int) *int { return &n }

// closed disallows properties not declared in the schema.
func closed() *jsonschema.Schema {
	return &jsonschema.Schema{Not: &jsonschema.Schema{}}
}

// FormatFileSchema returns the input schema of format_file.
func FormatFileSchema() *jsonschema.Schema {
	s, err := jsonschema.For[types.FormatFileInput](nil)
	if err != nil {
		panic(fmt.Sprintf("inferring format_file schema: %v", err))
	}
	s.Required = []string{"file_path"}
	s.AdditionalProperties = closed()

	p := s.Properties["file_path"]
	p.MinLength = intPtr(1)
	p.MaxLength = intPtr(MaxFilePathLength)
	p.Pattern = noNullByte
	return s
}

// FormatFilesSchema returns the input schema of format_files.
func FormatFilesSchema() *jsonschema.Schema {
	s, err := jsonschema.For[types.FormatFilesInput](nil)
	if err != nil {
		panic(fmt.Sprintf("inferring format_files schema: %v", err))
	}
	s.Required = nil
	s.AdditionalProperties = closed()

	p := s.Properties["pattern"]
	p.MinLength = intPtr(1)
	p.MaxLength = intPtr(MaxPatternLength)
	p.Pattern = noNullByte
	p.Default = json.RawMessage(`"` + DefaultPattern + `"`)
	return s
}

var (
	resolvedFormatFile  = sync.OnceValues(func() (*jsonschema.Resolved, error) { return FormatFileSchema().Resolve(nil) })
	resolvedFormatFiles = sync.OnceValues(func() (*jsonschema.Resolved, error) { return FormatFilesSchema().Resolve(nil) })
)

// Against validates a decoded JSON instance against a resolved schema.
func Against(schema *jsonschema.Resolved, instance any) error {
	if err := schema.Validate(instance); err != nil {
		return &Error{Violations: []string{err.Error()}}
	}
	return nil
}

// FormatFileInput validates a decoded format_file request body.
func FormatFileInput(instance any) error {
	rs, err := resolvedFormatFile()
	if err != nil {
		return fmt.Errorf("resolving format_file schema: %w", err)
	}
	return Against(rs, instance)
}

// FormatFilesInput validates a decoded format_files request body.
func FormatFilesInput(instance any) error {
	rs, err := resolvedFormatFiles()
	if err != nil {
		return fmt.Errorf("resolving format_files schema: %w", err)
	}
	return Against(rs, instance)
}

// IsViolation reports whether err carries schema or sanitizer violations.
func IsViolation(err error) bool {
	var verr *Error
	return errors.As(err, &verr)
}
