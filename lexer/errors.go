package lexer

import (
	gotoken "go/token"

	goscanner "go/scanner"

	"github.com/mna/focus/token"
)

// Error and ErrorList are re-exported from the standard library's go/scanner
// package: its Error type already carries a go/token.Position and a
// message, and its ErrorList already sorts by position, which is exactly
// the shape every phase of this pipeline (lexer, parser, compiler) wants for
// accumulated diagnostics. ErrorList has no Unwrap method.
type (
	Error     = goscanner.Error
	ErrorList = goscanner.ErrorList
)

// PrintError prints a list (or a single) error to w, one per line.
var PrintError = goscanner.PrintError

// GoPosition converts a lexer/parser Pos into the go/token.Position shape
// ErrorList expects, attaching filename since our Pos does not carry one.
func GoPosition(filename string, p token.Pos) gotoken.Position {
	return gotoken.Position{Filename: filename, Offset: p.Offset, Line: p.Line, Column: p.Col}
}
