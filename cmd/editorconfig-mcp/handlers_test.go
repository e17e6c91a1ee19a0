package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/taigrr/editorconfig-mcp/internal/filesystem"
	"github.com/taigrr/editorconfig-mcp/internal/formatter"
	"github.com/taigrr/editorconfig-mcp/internal/logging"
	"github.com/taigrr/editorconfig-mcp/internal/pipeline"
	"github.com/taigrr/editorconfig-mcp/internal/types"
)

const testSource = "function test() { console.log('test'); }"

// newTestSession connects an in-memory client session over a temp project.
func newTestSession(t *testing.T, f formatter.Formatter) (*mcp.ClientSession, string) {
	t.Helper()

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ".editorconfig"), []byte("root = true\n\n[*]\ninsert_final_newline = true\n"), 0o644); err != nil {
		t.Fatalf("Failed to write .editorconfig: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "test.js"), []byte(testSource), 0o644); err != nil {
		t.Fatalf("Failed to write test.js: %v", err)
	}

	if f == nil {
		f = formatter.New()
	}
	pipe := pipeline.New(filesystem.New(root, nil), f, pipeline.Options{})
	server := newMCPServer(pipe, logging.Discard())

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)

	ctx := context.Background()
	go func() {
		_ = server.Run(ctx, serverTransport)
	}()

	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client.Connect: %v", err)
	}
	t.Cleanup(func() { cs.Close() })
	return cs, root
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("result has no content")
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return tc.Text
}

func errorBodyOf(t *testing.T, res *mcp.CallToolResult) types.ErrorBody {
	t.Helper()
	var body types.ErrorBody
	if err := json.Unmarshal([]byte(textOf(t, res)), &body); err != nil {
		t.Fatalf("error content is not a descriptor: %v", err)
	}
	return body
}

func TestListTools(t *testing.T) {
	cs, _ := newTestSession(t, nil)

	result, err := cs.ListTools(context.Background(), &mcp.ListToolsParams{})
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}

	names := map[string]bool{}
	for _, tool := range result.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"format_file", "format_files"} {
		if !names[want] {
			t.Errorf("tool %q not registered", want)
		}
	}
}

func TestFormatFileTool(t *testing.T) {
	cs, root := newTestSession(t, nil)
	ctx := context.Background()

	t.Run("formats file", func(t *testing.T) {
		res, err := cs.CallTool(ctx, &mcp.CallToolParams{
			Name:      "format_file",
			Arguments: map[string]any{"file_path": "test.js"},
		})
		if err != nil {
			t.Fatalf("CallTool: %v", err)
		}
		if res.IsError {
			t.Fatalf("unexpected error result: %s", textOf(t, res))
		}

		var out types.FormatFileOutput
		if err := json.Unmarshal([]byte(textOf(t, res)), &out); err != nil {
			t.Fatalf("decoding output: %v", err)
		}
		if !out.Success || out.Bytes != int64(len(testSource)+1) {
			t.Errorf("unexpected output: %+v", out)
		}

		content, _ := os.ReadFile(filepath.Join(root, "test.js"))
		if string(content) != testSource+"\n" {
			t.Errorf("expected final newline, got %q", content)
		}
	})

	t.Run("traversal is an error result", func(t *testing.T) {
		res, err := cs.CallTool(ctx, &mcp.CallToolParams{
			Name:      "format_file",
			Arguments: map[string]any{"file_path": "../../../etc/passwd"},
		})
		if err != nil {
			t.Fatalf("CallTool: %v", err)
		}
		if !res.IsError {
			t.Fatal("expected IsError result")
		}
		if body := errorBodyOf(t, res); body.Error != "Forbidden path" {
			t.Errorf("expected Forbidden path, got %q", body.Error)
		}
	})

	t.Run("schema violation is rejected", func(t *testing.T) {
		res, err := cs.CallTool(ctx, &mcp.CallToolParams{
			Name:      "format_file",
			Arguments: map[string]any{"wrong_field": "x"},
		})
		if err == nil && !res.IsError {
			t.Fatal("expected invalid params error or IsError result")
		}
	})
}

func TestFormatFilesTool(t *testing.T) {
	cs, _ := newTestSession(t, nil)
	ctx := context.Background()

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "format_files",
		Arguments: map[string]any{"pattern": "test-files/*.xyz"},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", textOf(t, res))
	}

	var out types.FormatFilesOutput
	if err := json.Unmarshal([]byte(textOf(t, res)), &out); err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if !out.Success || out.Count != 0 || out.Files == nil || len(out.Files) != 0 {
		t.Errorf("expected empty success, got %+v", out)
	}
}

func TestToolPanicIsContained(t *testing.T) {
	cs, _ := newTestSession(t, formatter.Func(func(context.Context, string) error {
		panic("secret internal detail")
	}))

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "format_file",
		Arguments: map[string]any{"file_path": "test.js"},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected IsError result")
	}
	body := errorBodyOf(t, res)
	if body.Error != "Internal server error" {
		t.Errorf("expected generic internal error, got %q", body.Error)
	}
	if body.Message == "secret internal detail" {
		t.Error("panic detail leaked to the client")
	}
}

func TestErrorResult(t *testing.T) {
	res := errorResult(&pipeline.Error{
		Kind:    pipeline.KindTooManyFiles,
		Message: "Pattern matched more than 2 files",
		Hint:    "Narrow the pattern",
	})
	if !res.IsError {
		t.Fatal("expected IsError")
	}
	body := errorBodyOf(t, res)
	if body.Error != "Too many files" || body.Hint != "Narrow the pattern" {
		t.Errorf("unexpected descriptor: %+v", body)
	}
}
