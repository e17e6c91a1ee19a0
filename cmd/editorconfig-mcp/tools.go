package main

import (
	"github.com/charmbracelet/log"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/taigrr/editorconfig-mcp/internal/manifest"
	"github.com/taigrr/editorconfig-mcp/internal/pipeline"
	"github.com/taigrr/editorconfig-mcp/internal/validate"
)

func newMCPServer(pipe *pipeline.Service, logger *log.Logger) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    manifest.ServerName,
		Version: version,
	}, nil)

	registerTools(server, &toolHandlers{pipeline: pipe, logger: logger})
	return server
}

func registerTools(server *mcp.Server, h *toolHandlers) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        manifest.ToolFormatFile,
		Description: manifest.FormatFileDescription,
		InputSchema: validate.FormatFileSchema(),
	}, h.handleFormatFile)

	mcp.AddTool(server, &mcp.Tool{
		Name:        manifest.ToolFormatFiles,
		Description: manifest.FormatFilesDescription,
		InputSchema: validate.FormatFilesSchema(),
	}, h.handleFormatFiles)
}
