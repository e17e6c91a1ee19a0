package formatter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/editorconfig/editorconfig-core-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestApply_Whitespace(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		rules Rules
		want  string
	}{
		{
			name:  "no rules leaves content alone",
			src:   "x \r\n\ty",
			rules: Rules{},
			want:  "x \r\n\ty",
		},
		{
			name:  "inserts final newline",
			src:   "function test() { console.log('test'); }",
			rules: Rules{InsertFinalNewline: boolPtr(true)},
			want:  "function test() { console.log('test'); }\n",
		},
		{
			name:  "final newline follows existing line endings",
			src:   "a\r\nb",
			rules: Rules{InsertFinalNewline: boolPtr(true)},
			want:  "a\r\nb\r\n",
		},
		{
			name:  "final newline uses configured end of line",
			src:   "a\nb",
			rules: Rules{EndOfLine: "crlf", InsertFinalNewline: boolPtr(true)},
			want:  "a\r\nb\r\n",
		},
		{
			name:  "keeps existing final newline",
			src:   "a\n",
			rules: Rules{InsertFinalNewline: boolPtr(true)},
			want:  "a\n",
		},
		{
			name:  "false removes trailing newlines",
			src:   "a\n\n",
			rules: Rules{InsertFinalNewline: boolPtr(false)},
			want:  "a",
		},
		{
			name:  "trims trailing whitespace",
			src:   "a  \nb\t\nc",
			rules: Rules{TrimTrailingWhitespace: true},
			want:  "a\nb\nc",
		},
		{
			name:  "whitespace-only last line collapses into final newline",
			src:   "a\n   ",
			rules: Rules{TrimTrailingWhitespace: true, InsertFinalNewline: boolPtr(true)},
			want:  "a\n",
		},
		{
			name:  "normalizes mixed line endings to lf",
			src:   "a\r\nb\rc\n",
			rules: Rules{EndOfLine: "lf"},
			want:  "a\nb\nc\n",
		},
		{
			name:  "normalizes to cr",
			src:   "a\nb\n",
			rules: Rules{EndOfLine: "cr"},
			want:  "a\rb\r",
		},
		{
			name:  "tabs to spaces",
			src:   "\tfoo\n\t\tbar\n",
			rules: Rules{IndentStyle: "space", IndentSize: 4, TabWidth: 4},
			want:  "    foo\n        bar\n",
		},
		{
			name:  "mixed indent to spaces respects tab stops",
			src:   "  \tfoo\n",
			rules: Rules{IndentStyle: "space", IndentSize: 4, TabWidth: 4},
			want:  "    foo\n",
		},
		{
			name:  "spaces to tabs",
			src:   "        foo\n    bar\n",
			rules: Rules{IndentStyle: "tab", IndentSize: 4, TabWidth: 4},
			want:  "\t\tfoo\n\tbar\n",
		},
		{
			name:  "spaces to tabs keeps alignment remainder",
			src:   "      foo\n",
			rules: Rules{IndentStyle: "tab", IndentSize: 4, TabWidth: 4},
			want:  "\t  foo\n",
		},
		{
			name:  "inner whitespace untouched",
			src:   "a\t=\tb\n",
			rules: Rules{IndentStyle: "space", IndentSize: 2, TabWidth: 2},
			want:  "a\t=\tb\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply([]byte(tt.src), tt.rules)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestApply_Charset(t *testing.T) {
	t.Run("adds utf-8 bom", func(t *testing.T) {
		got, err := Apply([]byte("hi\n"), Rules{Charset: "utf-8-bom"})
		require.NoError(t, err)
		assert.Equal(t, []byte{0xEF, 0xBB, 0xBF, 'h', 'i', '\n'}, got)
	})

	t.Run("strips utf-8 bom", func(t *testing.T) {
		got, err := Apply([]byte{0xEF, 0xBB, 0xBF, 'h', 'i'}, Rules{Charset: "utf-8"})
		require.NoError(t, err)
		assert.Equal(t, "hi", string(got))
	})

	t.Run("keeps bom when charset unset", func(t *testing.T) {
		src := []byte{0xEF, 0xBB, 0xBF, 'h', 'i'}
		got, err := Apply(src, Rules{})
		require.NoError(t, err)
		assert.Equal(t, src, got)
	})

	t.Run("converts to latin1", func(t *testing.T) {
		got, err := Apply([]byte("café"), Rules{Charset: "latin1"})
		require.NoError(t, err)
		assert.Equal(t, []byte{'c', 'a', 'f', 0xE9}, got)
	})

	t.Run("reads latin1 source", func(t *testing.T) {
		got, err := Apply([]byte{'c', 'a', 'f', 0xE9, ' ', '\n'}, Rules{Charset: "latin1", TrimTrailingWhitespace: true})
		require.NoError(t, err)
		assert.Equal(t, []byte{'c', 'a', 'f', 0xE9, '\n'}, got)
	})

	t.Run("latin1 rejects unrepresentable runes", func(t *testing.T) {
		_, err := Apply([]byte("€"), Rules{Charset: "latin1"})
		assert.Error(t, err)
	})

	t.Run("converts to utf-16le", func(t *testing.T) {
		got, err := Apply([]byte("hi"), Rules{Charset: "utf-16le"})
		require.NoError(t, err)
		assert.Equal(t, []byte{0xFF, 0xFE, 'h', 0, 'i', 0}, got)
	})

	t.Run("utf-16be source is not binary", func(t *testing.T) {
		src := []byte{0xFE, 0xFF, 0, 'h', 0, 'i', 0, ' '}
		got, err := Apply(src, Rules{TrimTrailingWhitespace: true})
		require.NoError(t, err)
		assert.Equal(t, []byte{0xFE, 0xFF, 0, 'h', 0, 'i'}, got)
	})
}

func TestApply_Binary(t *testing.T) {
	_, err := Apply([]byte("PK\x03\x04\x00\x00binary"), Rules{InsertFinalNewline: boolPtr(true)})
	assert.True(t, errors.Is(err, ErrBinary))
}

func TestRulesFromDefinition(t *testing.T) {
	t.Run("nil definition", func(t *testing.T) {
		assert.Equal(t, Rules{}, RulesFromDefinition(nil))
	})

	t.Run("tab width defaults to indent size", func(t *testing.T) {
		r := RulesFromDefinition(&editorconfig.Definition{
			IndentStyle: "space",
			IndentSize:  "2",
			EndOfLine:   "LF",
			Raw: map[string]string{
				"trim_trailing_whitespace": "true",
				"insert_final_newline":     "false",
			},
		})
		assert.Equal(t, "space", r.IndentStyle)
		assert.Equal(t, 2, r.IndentSize)
		assert.Equal(t, 2, r.TabWidth)
		assert.Equal(t, "lf", r.EndOfLine)
		assert.True(t, r.TrimTrailingWhitespace)
		require.NotNil(t, r.InsertFinalNewline)
		assert.False(t, *r.InsertFinalNewline)
	})

	t.Run("indent size tab uses tab width", func(t *testing.T) {
		r := RulesFromDefinition(&editorconfig.Definition{
			IndentStyle: "tab",
			IndentSize:  "tab",
			Raw:         map[string]string{"tab_width": "8"},
		})
		assert.Equal(t, 8, r.TabWidth)
		assert.Equal(t, 8, r.IndentSize)
		assert.Nil(t, r.InsertFinalNewline)
	})
}

func TestEditorConfig_Format(t *testing.T) {
	dir := t.TempDir()
	config := "root = true\n\n[*]\ninsert_final_newline = true\ntrim_trailing_whitespace = true\n\n[*.go]\nindent_style = tab\nindent_size = 4\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".editorconfig"), []byte(config), 0o644))

	t.Run("rewrites file in place", func(t *testing.T) {
		path := filepath.Join(dir, "test.js")
		src := "function test() { console.log('test'); }"
		require.NoError(t, os.WriteFile(path, []byte(src), 0o600))

		require.NoError(t, New().Format(context.Background(), path))

		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, src+"\n", string(got))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})

	t.Run("section specific rules", func(t *testing.T) {
		path := filepath.Join(dir, "main.go")
		require.NoError(t, os.WriteFile(path, []byte("func main() {\n    println()  \n}"), 0o644))

		require.NoError(t, New().Format(context.Background(), path))

		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "func main() {\n\tprintln()\n}\n", string(got))
	})

	t.Run("missing file fails", func(t *testing.T) {
		err := New().Format(context.Background(), filepath.Join(dir, "nope.js"))
		assert.Error(t, err)
	})

	t.Run("binary file fails without writing", func(t *testing.T) {
		path := filepath.Join(dir, "blob.bin")
		src := []byte{0x00, 0x01, 0x02}
		require.NoError(t, os.WriteFile(path, src, 0o644))

		err := New().Format(context.Background(), path)
		assert.ErrorIs(t, err, ErrBinary)

		got, _ := os.ReadFile(path)
		assert.Equal(t, src, got)
	})
}

func TestFunc(t *testing.T) {
	var called string
	var f Formatter = Func(func(_ context.Context, path string) error {
		called = path
		return nil
	})
	require.NoError(t, f.Format(context.Background(), "a.txt"))
	assert.Equal(t, "a.txt", called)
}
