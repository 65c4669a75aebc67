// Package parser implements a recursive-descent, offside-rule-aware parser
// for focus source text. It turns a byte slice into an *ast.Chunk, using the
// lexer's snapshot-based lookahead to resolve indentation and the
// call-vs-binary-operator ambiguity without synthesized INDENT/DEDENT
// tokens.
package parser

import (
	"fmt"

	"github.com/mna/focus/ast"
	"github.com/mna/focus/lexer"
	"github.com/mna/focus/token"
)

// Parse tokenizes and parses src, returning the resulting chunk. Parse
// errors are accumulated rather than aborting immediately, so a single call
// can report more than one problem; the returned error is nil only if no
// errors were recorded, and is otherwise a *lexer.ErrorList (a
// go/scanner.ErrorList) sorted by position.
func Parse(filename string, src []byte) (*ast.Chunk, error) {
	p := &parser{filename: filename}
	p.lex.Init(src, filename, p.onLexError)
	p.advance()

	chunk := p.parseChunk()
	if len(p.errors) == 0 {
		return chunk, nil
	}
	p.errors.Sort()
	return chunk, p.errors
}

type parser struct {
	lex      lexer.Lexer
	filename string
	errors   lexer.ErrorList

	tok token.Kind
	val token.Value

	// prevEnd is the byte offset just past the last consumed token, used to
	// decide adjacency: '.' and '[' act as path accessors only when they
	// touch the expression they follow ("a.b", "a[0]"), while "f [0]" is a
	// call whose argument is an array literal.
	prevEnd int

	// callDepth is >0 while gathering the arguments of a call; it suppresses
	// call detection for a bare identifier argument (so "f a b" is a single
	// call with two arguments, not f applied to "a b"). Entering any
	// explicitly delimited sub-expression resets it to 0.
	callDepth int
}

// pstate is a parser-level lookahead snapshot: the lexer's own Snapshot plus
// the one token of lookahead the parser keeps buffered in tok/val.
type pstate struct {
	lex     lexer.Snapshot
	tok     token.Kind
	val     token.Value
	prevEnd int
}

func (p *parser) save() pstate {
	return pstate{lex: p.lex.Save(), tok: p.tok, val: p.val, prevEnd: p.prevEnd}
}

func (p *parser) restore(s pstate) {
	p.lex.Restore(s.lex)
	p.tok, p.val, p.prevEnd = s.tok, s.val, s.prevEnd
}

func (p *parser) onLexError(pos token.Pos, msg string) { p.errorAt(pos, msg) }

func (p *parser) advance() {
	if end := p.val.Span.End; end > 0 {
		p.prevEnd = end
	} else {
		p.prevEnd = p.val.Pos.Offset + len(p.val.Raw)
	}
	p.tok, p.val = p.lex.Next()
}

// adjacent reports whether the buffered lookahead token immediately follows
// the previously consumed one, with no whitespace in between.
func (p *parser) adjacent() bool { return p.val.Pos.Offset == p.prevEnd }

func (p *parser) errorAt(pos token.Pos, msg string) {
	p.errors.Add(lexer.GoPosition(p.filename, pos), msg)
}

func (p *parser) errorf(pos token.Pos, format string, args ...any) {
	p.errorAt(pos, fmt.Sprintf(format, args...))
}

// expect consumes the current token if it has kind k, reporting an error and
// leaving the cursor in place otherwise. It returns the token's position
// either way, for span bookkeeping by the caller.
func (p *parser) expect(k token.Kind) token.Pos {
	pos := p.val.Pos
	if p.tok != k {
		p.errorf(pos, "unexpected %#v, expected %#v", p.tok, k)
		return pos
	}
	p.advance()
	return pos
}

func (p *parser) resync() {
	for p.tok != token.NEWLINE && p.tok != token.EOF {
		p.advance()
	}
}

func (p *parser) withFreshCallScope(fn func()) {
	saved := p.callDepth
	p.callDepth = 0
	fn()
	p.callDepth = saved
}

// canStartCallArg reports whether the current token can begin another
// argument of a call already in progress (or the first argument following a
// callee). Unary minus is deliberately excluded: "f -1" parses as the binary
// expression "f - 1", matching this language's call-disambiguation rule.
func (p *parser) canStartCallArg() bool {
	return p.callDepth == 0 && token.IsPrimaryStart(p.tok)
}

// parseChunk parses the top level of a file: zero or more LetStmt/ImportStmt
// separated by newlines. A bare expression at this level is a hard error,
// but parsing continues afterward so later errors are still reported.
func (p *parser) parseChunk() *ast.Chunk {
	c := &ast.Chunk{Name: p.filename}
	for p.tok != token.EOF {
		if p.tok == token.NEWLINE {
			p.advance()
			continue
		}
		c.Stmts = append(c.Stmts, p.parseTopLevelStmt())
	}
	c.End = p.val.Pos
	return c
}

func (p *parser) parseTopLevelStmt() ast.Stmt {
	switch p.tok {
	case token.LET:
		return p.parseLetOrFunc(0)
	case token.IMPORT:
		return p.parseImport()
	default:
		start := p.val.Pos
		p.errorf(start, "expression at module top level: only let and import are allowed here")
		p.resync()
		return &ast.BadStmt{Start: start, End: p.val.Pos}
	}
}
