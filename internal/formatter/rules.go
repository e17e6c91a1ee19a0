package formatter

import (
	"strconv"
	"strings"

	"github.com/editorconfig/editorconfig-core-go/v2"
)

// Rules is the subset of an editorconfig definition this formatter applies.
// Empty strings and zero widths mean "leave as is".
type Rules struct {
	Charset                string
	EndOfLine              string
	IndentStyle            string
	IndentSize             int
	TabWidth               int
	TrimTrailingWhitespace bool
	// InsertFinalNewline is nil when unset; false removes trailing newlines.
	InsertFinalNewline *bool
}

// RulesFromDefinition converts a resolved definition into Rules.
func RulesFromDefinition(def *editorconfig.Definition) Rules {
	if def == nil {
		return Rules{}
	}

	r := Rules{
		Charset:     strings.ToLower(strings.TrimSpace(def.Charset)),
		EndOfLine:   strings.ToLower(strings.TrimSpace(def.EndOfLine)),
		IndentStyle: strings.ToLower(strings.TrimSpace(def.IndentStyle)),
		TabWidth:    def.TabWidth,
	}

	if n, err := strconv.Atoi(strings.TrimSpace(def.IndentSize)); err == nil && n > 0 {
		r.IndentSize = n
	}
	if n, err := strconv.Atoi(strings.TrimSpace(def.Raw["tab_width"])); err == nil && n > 0 {
		r.TabWidth = n
	}
	if r.TabWidth <= 0 {
		r.TabWidth = r.IndentSize
	}
	if r.IndentSize == 0 {
		r.IndentSize = r.TabWidth
	}

	r.TrimTrailingWhitespace = strings.EqualFold(strings.TrimSpace(def.Raw["trim_trailing_whitespace"]), "true")
	r.InsertFinalNewline = parseBool(def.Raw["insert_final_newline"])

	return r
}

func parseBool(v string) *bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true":
		b := true
		return &b
	case "false":
		b := false
		return &b
	}
	return nil
}

func (r Rules) eol() string {
	switch r.EndOfLine {
	case editorconfig.EndOfLineLf:
		return "\n"
	case editorconfig.EndOfLineCrLf:
		return "\r\n"
	case editorconfig.EndOfLineCr:
		return "\r"
	}
	return ""
}
