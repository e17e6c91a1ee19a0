package main

import (
	"context"
	"encoding/json"
	"runtime/debug"

	"github.com/charmbracelet/log"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/taigrr/editorconfig-mcp/internal/manifest"
	"github.com/taigrr/editorconfig-mcp/internal/pipeline"
	"github.com/taigrr/editorconfig-mcp/internal/types"
)

type toolHandlers struct {
	pipeline *pipeline.Service
	logger   *log.Logger
}

func (h *toolHandlers) handleFormatFile(ctx context.Context, req *mcp.CallToolRequest, input types.FormatFileInput) (res *mcp.CallToolResult, out types.FormatFileOutput, err error) {
	defer h.recoverTool(req, &res)

	ctx = log.WithContext(ctx, h.logger.With("tool", manifest.ToolFormatFile))
	out, err = h.pipeline.FormatOne(ctx, input.FilePath)
	if err != nil {
		return errorResult(err), types.FormatFileOutput{FilePath: input.FilePath}, nil
	}
	return nil, out, nil
}

func (h *toolHandlers) handleFormatFiles(ctx context.Context, req *mcp.CallToolRequest, input types.FormatFilesInput) (res *mcp.CallToolResult, out types.FormatFilesOutput, err error) {
	out.Files = []string{}
	defer h.recoverTool(req, &res)

	ctx = log.WithContext(ctx, h.logger.With("tool", manifest.ToolFormatFiles))
	out, err = h.pipeline.FormatMany(ctx, input.Pattern)
	if err != nil {
		return errorResult(err), types.FormatFilesOutput{Pattern: input.Pattern, Files: []string{}}, nil
	}
	return nil, out, nil
}

// recoverTool turns a panic inside a tool handler into a generic error result.
func (h *toolHandlers) recoverTool(req *mcp.CallToolRequest, res **mcp.CallToolResult) {
	if r := recover(); r != nil {
		name := ""
		if req != nil && req.Params != nil {
			name = req.Params.Name
		}
		h.logger.Error("Panic in tool handler", "tool", name, "panic", r, "stack", string(debug.Stack()))
		*res = errorResult(pipeline.ErrInternal)
	}
}

// errorResult creates an IsError CallToolResult carrying the error descriptor
// so the client can see the error and self-correct.
func errorResult(err error) *mcp.CallToolResult {
	title, message, hint, expected := pipeline.Describe(err)
	data, _ := json.MarshalIndent(types.ErrorBody{
		Error:          title,
		Message:        message,
		Hint:           hint,
		ExpectedFormat: expected,
	}, "", "  ")
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
		IsError: true,
	}
}
