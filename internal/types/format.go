// Package types defines all data structures used across the MCP server.
package types

type (
	// FormatFileInput contains parameters for formatting a single file.
	FormatFileInput struct {
		FilePath string `json:"file_path" jsonschema:"Path to the file, relative to the project root"`
	}

	// FormatFileOutput contains the result of formatting a single file.
	FormatFileOutput struct {
		Success  bool   `json:"success"`
		FilePath string `json:"file_path"`
		Bytes    int64  `json:"bytes"`
	}

	// FormatFilesInput contains parameters for formatting files by glob.
	FormatFilesInput struct {
		Pattern string `json:"pattern,omitempty" jsonschema:"Glob pattern relative to the project root (default: **/*)"`
	}

	// FormatFilesOutput contains the result of a batch format.
	FormatFilesOutput struct {
		Success bool     `json:"success"`
		Pattern string   `json:"pattern"`
		Count   int      `json:"count"`
		Files   []string `json:"files"`
		Skipped []string `json:"skipped,omitempty"`
	}
)
