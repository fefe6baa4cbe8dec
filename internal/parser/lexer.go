// Package parser is the textual front-end: a line-oriented lexer plus a
// recursive-descent parser that drives ir.Builder through its six
// events. spec.md treats this surface as an external collaborator and
// only specifies its grammar, but the module map still needs a real
// front-end for the CLI to run end-to-end, so it's implemented here,
// grounded on KTStephano-GVM/vm/compile.go's two-pass regex-preprocess-
// then-tokenize shape.
package parser

import (
	"regexp"
	"strings"
)

var commentRE = regexp.MustCompile(`//.*$|;.*$`)

// line is one preprocessed source line: its original 1-based number (for
// diagnostics) and its whitespace-split fields with comments stripped.
type line struct {
	num    int
	fields []string
	raw    string
}

// lex splits src into non-blank, comment-stripped lines. Mirrors
// compile.go's preprocessLine, which strips comments via regexp and
// trims whitespace before tokenizing.
func lex(src string) []line {
	var out []line
	for i, raw := range strings.Split(src, "\n") {
		stripped := commentRE.ReplaceAllString(raw, "")
		stripped = strings.TrimSpace(stripped)
		if stripped == "" {
			continue
		}
		out = append(out, line{num: i + 1, fields: strings.Fields(stripped), raw: stripped})
	}
	return out
}
