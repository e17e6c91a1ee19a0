// Package pathfilter decides which batch candidates are never handed to the formatter.
package pathfilter

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/taigrr/editorconfig-mcp/internal/types"
)

// DefaultIgnoredPatterns are excluded from every batch: version control
// metadata, the dependency cache and log files, at any depth.
var DefaultIgnoredPatterns = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/*.log",
}

// PathFilter filters batch candidates against ignore globs.
type PathFilter struct {
	ignoredPatterns []string
}

// New creates a new PathFilter with the given configuration.
func New(config *types.PathFilterConfig) *PathFilter {
	pf := &PathFilter{
		ignoredPatterns: append([]string(nil), DefaultIgnoredPatterns...),
	}

	if config != nil {
		for _, p := range config.IgnoredPatterns {
			p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
			if p == "" || !doublestar.ValidatePattern(p) {
				continue
			}
			pf.ignoredPatterns = append(pf.ignoredPatterns, p)
		}
	}

	return pf
}

// IsAllowed checks if a slash-separated path relative to the project root
// may be formatted.
func (pf *PathFilter) IsAllowed(path string) bool {
	normalizedPath := strings.TrimPrefix(strings.ReplaceAll(path, "\\", "/"), "./")

	for _, pattern := range pf.ignoredPatterns {
		if ok, err := doublestar.Match(pattern, normalizedPath); err == nil && ok {
			return false
		}
	}

	return true
}

// Patterns returns the active ignore globs.
func (pf *PathFilter) Patterns() []string {
	return append([]string(nil), pf.ignoredPatterns...)
}
