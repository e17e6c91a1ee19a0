// Package formatter applies .editorconfig rules to files in place.
package formatter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/editorconfig/editorconfig-core-go/v2"
)

// DefaultConfigName is the file looked up in every parent directory.
const DefaultConfigName = ".editorconfig"

// ErrBinary is returned for files that look like binary data.
var ErrBinary = errors.New("file appears to be binary")

// Formatter rewrites a file in place according to its discovered rules.
type Formatter interface {
	Format(ctx context.Context, path string) error
}

// Func adapts an ordinary function to the Formatter interface.
type Func func(ctx context.Context, path string) error

// Format calls f(ctx, path).
func (f Func) Format(ctx context.Context, path string) error {
	return f(ctx, path)
}

// EditorConfig formats files using the .editorconfig files found between
// each file and the nearest `root = true` ancestor.
type EditorConfig struct {
	ConfigName string
}

// New creates an EditorConfig formatter that reads .editorconfig files.
func New() *EditorConfig {
	return &EditorConfig{ConfigName: DefaultConfigName}
}

// Rules resolves the rules that apply to path.
func (e *EditorConfig) Rules(path string) (Rules, error) {
	name := e.ConfigName
	if name == "" {
		name = DefaultConfigName
	}
	def, err := editorconfig.GetDefinitionForFilenameWithConfigname(path, name)
	if err != nil {
		return Rules{}, fmt.Errorf("failed to resolve editorconfig for %s: %w", path, err)
	}
	return RulesFromDefinition(def), nil
}

// Format rewrites path in place. The file is only written when its content
// changes, and keeps its permission bits.
func (e *EditorConfig) Format(_ context.Context, path string) error {
	rules, err := e.Rules(path)
	if err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	out, err := Apply(src, rules)
	if err != nil {
		return err
	}
	if bytes.Equal(src, out) {
		return nil
	}

	if err := os.WriteFile(path, out, info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}
