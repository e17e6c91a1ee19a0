// Package filesystem confines file access to the project root.
package filesystem

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/taigrr/editorconfig-mcp/internal/pathfilter"
)

var (
	// ErrForbidden is returned for paths that escape the project root.
	ErrForbidden = errors.New("path escapes project root")
	// ErrNotFound is returned for paths that do not name a regular file.
	ErrNotFound = errors.New("file not found")
)

// Service provides rooted file system operations for the project.
type Service struct {
	root       string
	pathFilter *pathfilter.PathFilter
}

// New creates a new Service rooted at root. The root is made absolute and,
// when it exists, symlink-resolved.
func New(root string, pf *pathfilter.PathFilter) *Service {
	absPath, err := filepath.Abs(root)
	if err != nil {
		absPath = filepath.Clean(root)
	}
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		absPath = resolved
	}
	if pf == nil {
		pf = pathfilter.New(nil)
	}
	return &Service{
		root:       absPath,
		pathFilter: pf,
	}
}

// IsSafe reports whether path, resolved against root, stays inside root.
// It is pure path arithmetic: the cleaned absolute path must be the root or
// lie under it, and must not retain a parent-directory segment.
func IsSafe(path, root string) bool {
	if root == "" || strings.ContainsRune(path, 0) {
		return false
	}
	root = filepath.Clean(root)

	resolved := path
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(root, resolved)
	}
	resolved = filepath.Clean(resolved)

	if resolved != root && !strings.HasPrefix(resolved, strings.TrimSuffix(root, string(filepath.Separator))+string(filepath.Separator)) {
		return false
	}

	return !slices.Contains(strings.Split(filepath.ToSlash(resolved), "/"), "..")
}

// ResolvePath resolves a path within the project root and validates it.
func (s *Service) ResolvePath(path string) (string, error) {
	if !IsSafe(path, s.root) {
		return "", fmt.Errorf("%w: %s", ErrForbidden, path)
	}

	resolved := path
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(s.root, resolved)
	}
	return filepath.Clean(resolved), nil
}

// StatFile resolves path and confirms it names an existing regular file.
func (s *Service) StatFile(path string) (string, fs.FileInfo, error) {
	fullPath, err := s.ResolvePath(path)
	if err != nil {
		return "", nil, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fullPath, nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fullPath, nil, fmt.Errorf("failed to stat file: %s - %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fullPath, nil, fmt.Errorf("%w: %s is not a regular file", ErrNotFound, path)
	}

	if !s.Contains(fullPath) {
		return fullPath, nil, fmt.Errorf("%w: %s resolves outside the project root", ErrForbidden, path)
	}

	return fullPath, info, nil
}

// Contains reports whether an absolute path, after following symlinks,
// still lies inside the project root.
func (s *Service) Contains(fullPath string) bool {
	target, err := filepath.EvalSymlinks(fullPath)
	if err != nil {
		return false
	}
	return IsSafe(target, s.root)
}

// Target follows symlinks from a root-relative path. It returns the real
// path and whether that path names a directory. A dangling link yields an
// error.
func (s *Service) Target(rel string) (string, bool, error) {
	target, err := filepath.EvalSymlinks(s.Abs(rel))
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(target)
	if err != nil {
		return "", false, err
	}
	return target, info.IsDir(), nil
}

// Abs joins a slash-separated root-relative path onto the root.
func (s *Service) Abs(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

// FS returns a read-only view of the project root for glob enumeration.
func (s *Service) FS() fs.FS {
	return os.DirFS(s.root)
}

// IsAllowed reports whether a root-relative path survives the ignore rules.
func (s *Service) IsAllowed(rel string) bool {
	return s.pathFilter.IsAllowed(rel)
}

// Root returns the absolute project root.
func (s *Service) Root() string {
	return s.root
}
