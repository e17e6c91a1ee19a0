// Package manifest describes the server's tools and HTTP surface: the MCP
// server manifest and the OpenAPI document.
package manifest

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/taigrr/editorconfig-mcp/internal/types"
	"github.com/taigrr/editorconfig-mcp/internal/validate"
)

const (
	ServerName        = "editorconfig-mcp"
	ServerDescription = "Formats files in a project according to its .editorconfig rules"

	ToolFormatFile  = "format_file"
	ToolFormatFiles = "format_files"

	FormatFileDescription  = "Format a single file in place according to the .editorconfig rules that apply to it"
	FormatFilesDescription = "Format every file matching a glob pattern (default **/*) according to .editorconfig rules; .git, node_modules and *.log are always skipped"
)

// Tool describes one tool for manifests and the OpenAPI document.
type Tool struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"inputSchema"`
}

// Transport describes one way to reach the server.
type Transport struct {
	Type    string   `json:"type"`
	URL     string   `json:"url,omitempty"`
	Command string   `json:"command,omitempty"`
	Args    []string `json:"args,omitempty"`
}

// Server is one entry of the servers.json manifest.
type Server struct {
	Name        string      `json:"name"`
	Version     string      `json:"version"`
	Description string      `json:"description"`
	Transports  []Transport `json:"transports"`
	Tools       []Tool      `json:"tools"`
}

// Servers is the document served at /.well-known/mcp/servers.json.
type Servers struct {
	Servers []Server `json:"servers"`
}

// Tools returns the tools exposed by both transports.
func Tools() []Tool {
	return []Tool{
		{Name: ToolFormatFile, Description: FormatFileDescription, InputSchema: validate.FormatFileSchema()},
		{Name: ToolFormatFiles, Description: FormatFilesDescription, InputSchema: validate.FormatFilesSchema()},
	}
}

// NewServers builds the manifest for a server reachable at baseURL.
func NewServers(version, baseURL string) Servers {
	return Servers{
		Servers: []Server{{
			Name:        ServerName,
			Version:     version,
			Description: ServerDescription,
			Transports: []Transport{
				{Type: "stdio", Command: ServerName},
				{Type: "streamable-http", URL: baseURL + "/mcp"},
				{Type: "http", URL: baseURL + "/v1/tools"},
			},
			Tools: Tools(),
		}},
	}
}

func mustSchema[T any]() *jsonschema.Schema {
	s, err := jsonschema.For[T](nil)
	if err != nil {
		panic(fmt.Sprintf("inferring schema for %T: %v", *new(T), err))
	}
	return s
}

func jsonContent(schema any) map[string]any {
	return map[string]any{
		"application/json": map[string]any{"schema": schema},
	}
}

func errorResponse(description string) map[string]any {
	return map[string]any{
		"description": description,
		"content":     jsonContent(map[string]any{"$ref": "#/components/schemas/Error"}),
	}
}

func toolOperation(t Tool, success *jsonschema.Schema, failures map[string]string) map[string]any {
	responses := map[string]any{
		"200": map[string]any{
			"description": "Success",
			"content":     jsonContent(success),
		},
		"413": errorResponse("Request body too large"),
		"429": errorResponse("Rate limit exceeded"),
	}
	for code, description := range failures {
		responses[code] = errorResponse(description)
	}
	return map[string]any{
		"post": map[string]any{
			"operationId": t.Name,
			"summary":     t.Description,
			"requestBody": map[string]any{
				"required": true,
				"content":  jsonContent(t.InputSchema),
			},
			"responses": responses,
		},
	}
}

// OpenAPI returns the OpenAPI 3.0 document for the HTTP API.
func OpenAPI(version, baseURL string) map[string]any {
	tools := Tools()

	return map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":       ServerName,
			"version":     version,
			"description": ServerDescription,
		},
		"servers": []map[string]any{{"url": baseURL}},
		"paths": map[string]any{
			"/v1/tools/" + ToolFormatFile: toolOperation(tools[0], mustSchema[types.FormatFileOutput](), map[string]string{
				"403": "Path escapes the project root",
				"404": "File not found",
				"422": "Invalid input",
				"500": "Processing failed",
			}),
			"/v1/tools/" + ToolFormatFiles: toolOperation(tools[1], mustSchema[types.FormatFilesOutput](), map[string]string{
				"422": "Invalid input or too many files",
				"500": "Internal server error",
			}),
			"/health": map[string]any{
				"get": map[string]any{
					"operationId": "health",
					"responses": map[string]any{
						"200": map[string]any{
							"description": "Server is healthy",
							"content":     jsonContent(mustSchema[types.HealthOutput]()),
						},
					},
				},
			},
		},
		"components": map[string]any{
			"schemas": map[string]any{
				"Error": mustSchema[types.ErrorBody](),
			},
		},
	}
}
