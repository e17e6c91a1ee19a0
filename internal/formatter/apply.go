package formatter

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/editorconfig/editorconfig-core-go/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// binarySniffLen bounds how much of a file is inspected for NUL bytes.
const binarySniffLen = 8000

var bomUTF8 = []byte{0xEF, 0xBB, 0xBF}

type line struct {
	text string
	eol  string
}

// Apply returns src rewritten according to rules. It never touches disk.
func Apply(src []byte, rules Rules) ([]byte, error) {
	text, detected, err := decode(src, rules.Charset)
	if err != nil {
		return nil, err
	}
	if isBinary(text) {
		return nil, ErrBinary
	}

	text = transform(text, rules)

	target := detected
	if rules.Charset != "" {
		target = rules.Charset
	}
	return encode(text, target)
}

func isBinary(text string) bool {
	return strings.IndexByte(text[:min(len(text), binarySniffLen)], 0) >= 0
}

func decode(src []byte, declared string) (string, string, error) {
	switch {
	case bytes.HasPrefix(src, bomUTF8):
		return string(src[len(bomUTF8):]), editorconfig.CharsetUTF8BOM, nil

	case bytes.HasPrefix(src, []byte{0xFE, 0xFF}):
		out, err := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(src)
		if err != nil {
			return "", "", fmt.Errorf("failed to decode utf-16be: %w", err)
		}
		return string(out), editorconfig.CharsetUTF16BE, nil

	case bytes.HasPrefix(src, []byte{0xFF, 0xFE}):
		out, err := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder().Bytes(src)
		if err != nil {
			return "", "", fmt.Errorf("failed to decode utf-16le: %w", err)
		}
		return string(out), editorconfig.CharsetUTF16LE, nil

	case declared == editorconfig.CharsetLatin1 && !utf8.Valid(src):
		out, err := charmap.ISO8859_1.NewDecoder().Bytes(src)
		if err != nil {
			return "", "", fmt.Errorf("failed to decode latin1: %w", err)
		}
		return string(out), editorconfig.CharsetLatin1, nil
	}

	return string(src), editorconfig.CharsetUTF8, nil
}

func encode(text, charset string) ([]byte, error) {
	switch charset {
	case editorconfig.CharsetUTF8BOM:
		return append([]byte{0xEF, 0xBB, 0xBF}, text...), nil

	case editorconfig.CharsetUTF16BE, editorconfig.CharsetUTF16LE, editorconfig.CharsetLatin1:
		if !utf8.ValidString(text) {
			return nil, fmt.Errorf("cannot convert to %s: content is not valid utf-8", charset)
		}
	}

	var (
		out []byte
		err error
	)
	switch charset {
	case editorconfig.CharsetUTF16BE:
		out, err = unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(text))
	case editorconfig.CharsetUTF16LE:
		out, err = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(text))
	case editorconfig.CharsetLatin1:
		out, err = charmap.ISO8859_1.NewEncoder().Bytes([]byte(text))
	default:
		out = []byte(text)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode as %s: %w", charset, err)
	}
	return out, nil
}

func transform(text string, r Rules) string {
	lines := splitLines(text)
	eol := r.eol()

	for i := range lines {
		l := &lines[i]
		if r.TrimTrailingWhitespace {
			l.text = strings.TrimRight(l.text, " \t")
		}
		l.text = reindent(l.text, r)
		if eol != "" && l.eol != "" {
			l.eol = eol
		}
	}

	if r.InsertFinalNewline != nil && *r.InsertFinalNewline {
		// A whitespace-only last line trims to nothing; drop it.
		if n := len(lines); n > 1 && lines[n-1].text == "" && lines[n-1].eol == "" {
			lines = lines[:n-1]
		}
		if n := len(lines); n > 0 && lines[n-1].eol == "" {
			lines[n-1].eol = finalEOL(lines, eol)
		}
	}

	var b strings.Builder
	b.Grow(len(text) + 2)
	for _, l := range lines {
		b.WriteString(l.text)
		b.WriteString(l.eol)
	}
	out := b.String()

	if r.InsertFinalNewline != nil && !*r.InsertFinalNewline {
		out = strings.TrimRight(out, "\r\n")
	}
	return out
}

// splitLines splits s on LF, CRLF and CR, keeping each terminator.
func splitLines(s string) []line {
	var lines []line
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\n':
			lines = append(lines, line{text: s[start:i], eol: "\n"})
			start = i + 1
		case '\r':
			if i+1 < len(s) && s[i+1] == '\n' {
				lines = append(lines, line{text: s[start:i], eol: "\r\n"})
				i++
			} else {
				lines = append(lines, line{text: s[start:i], eol: "\r"})
			}
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, line{text: s[start:]})
	}
	return lines
}

func finalEOL(lines []line, configured string) string {
	if configured != "" {
		return configured
	}
	for _, l := range lines {
		if l.eol != "" {
			return l.eol
		}
	}
	return "\n"
}

// reindent rewrites the leading whitespace of s to the configured style.
func reindent(s string, r Rules) string {
	if r.IndentStyle == "" || r.TabWidth <= 0 {
		return s
	}

	n := 0
	for n < len(s) && (s[n] == ' ' || s[n] == '\t') {
		n++
	}
	if n == 0 {
		return s
	}
	lead, rest := s[:n], s[n:]

	width := 0
	for i := 0; i < len(lead); i++ {
		if lead[i] == '\t' {
			width += r.TabWidth - width%r.TabWidth
		} else {
			width++
		}
	}

	switch r.IndentStyle {
	case editorconfig.IndentStyleSpaces:
		if !strings.Contains(lead, "\t") {
			return s
		}
		return strings.Repeat(" ", width) + rest
	case editorconfig.IndentStyleTab:
		if !strings.Contains(lead, " ") {
			return s
		}
		return strings.Repeat("\t", width/r.TabWidth) + strings.Repeat(" ", width%r.TabWidth) + rest
	}
	return s
}
