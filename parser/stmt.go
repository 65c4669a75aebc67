package parser

import (
	"github.com/mna/focus/ast"
	"github.com/mna/focus/token"
)

// parseLetOrFunc parses both "let ident = expr" and the sugared function
// declaration "let ident arg1 arg2 = body"; the two forms share their first
// two tokens and only diverge once a second identifier (a parameter) shows
// up where a plain let would expect '='.
func (p *parser) parseLetOrFunc(baseCol int) ast.Stmt {
	start := p.expect(token.LET)
	line := start.Line
	ident := p.parseIdentName()

	if p.tok == token.IDENT || p.tok == token.UNIT {
		var params []*ast.IdentExpr
		for p.tok == token.IDENT || p.tok == token.UNIT {
			params = append(params, p.parseParam())
		}
		p.expect(token.EQ)
		body := p.parseBlock(baseCol)
		return &ast.FuncStmt{Ident: ident, Params: params, Body: body, Start: start, Line: line}
	}

	if p.tok == token.EQ {
		p.advance()
		value := p.parseExpr(baseCol)
		return &ast.LetStmt{Ident: ident, Value: value, Start: start, Line: line}
	}

	return &ast.LetStmt{Ident: ident, Start: start, Line: line}
}

func (p *parser) parseImport() ast.Stmt {
	start := p.expect(token.IMPORT)
	line := start.Line
	if p.tok != token.STRING {
		p.errorf(p.val.Pos, "unexpected %#v, expected a string literal import path", p.tok)
		p.resync()
		return &ast.BadStmt{Start: start, End: p.val.Pos}
	}
	src := p.val.String
	end := p.val.Pos
	end.Col += len(p.val.Raw)
	p.advance()
	return &ast.ImportStmt{Source: src, Start: start, End: end, Line: line}
}

// parseParam parses one function parameter: an identifier, or the "()"
// placeholder for a unit parameter whose value is never looked at (the
// conventional spelling for zero-argument functions, which still receive one
// implicit unit argument at every call site).
func (p *parser) parseParam() *ast.IdentExpr {
	if p.tok == token.UNIT {
		pos := p.val.Pos
		p.advance()
		return &ast.IdentExpr{Name: "()", Start: pos}
	}
	return p.parseIdentName()
}

func (p *parser) parseIdentName() *ast.IdentExpr {
	pos := p.val.Pos
	name := p.val.Raw
	if p.tok != token.IDENT {
		p.errorf(pos, "unexpected %#v, expected an identifier", p.tok)
		p.advance()
		return &ast.IdentExpr{Name: "<error>", Start: pos}
	}
	p.advance()
	return &ast.IdentExpr{Name: name, Start: pos}
}

// parseStmt parses one Statement: let/fn-sugar, import, or (inside a block
// only) a bare expression statement.
func (p *parser) parseStmt(baseCol int) ast.Stmt {
	switch p.tok {
	case token.LET:
		return p.parseLetOrFunc(baseCol)
	case token.IMPORT:
		return p.parseImport()
	default:
		line := p.val.Pos.Line
		expr := p.parseExpr(baseCol)
		return &ast.ExpressionStmt{Expr: expr, Line: line}
	}
}

// parseBlock parses "Block = INLINE Statement | NEWLINE INDENT Statement+
// DEDENT". parentCol is the indentation column of the construct this block
// belongs to (the enclosing let/fn/if/else); a multi-statement block must be
// indented strictly deeper than it, and every statement in it must line up
// at exactly the same column: a shallower or differently-indented
// continuation ends the block, a deeper one is a mixed-indentation error.
func (p *parser) parseBlock(parentCol int) *ast.BlockExpr {
	start := p.val.Pos

	if p.tok != token.NEWLINE {
		stmt := p.parseStmt(parentCol)
		_, end := stmt.Span()
		return &ast.BlockExpr{Stmts: []ast.Stmt{stmt}, Start: start, End: end}
	}

	for p.tok == token.NEWLINE {
		p.advance()
	}
	if p.tok == token.EOF {
		p.errorf(start, "expected an indented block, found end of file")
		return &ast.BlockExpr{Start: start, End: start}
	}
	blockCol := p.val.Indent
	if blockCol <= parentCol {
		p.errorf(p.val.Pos, "expected an indented block")
		return &ast.BlockExpr{Start: start, End: start}
	}

	var stmts []ast.Stmt
	end := start
	for p.tok != token.EOF {
		if p.val.Indent < blockCol {
			break
		}
		if p.val.Indent > blockCol {
			p.errorf(p.val.Pos, "inconsistent indentation in block")
		}
		stmt := p.parseStmt(blockCol)
		stmts = append(stmts, stmt)
		_, end = stmt.Span()
		if p.tok != token.NEWLINE && p.tok != token.EOF {
			p.errorf(p.val.Pos, "unexpected %#v after statement", p.tok)
			p.resync()
		}
		for p.tok == token.NEWLINE {
			p.advance()
		}
	}
	return &ast.BlockExpr{Stmts: stmts, Start: start, End: end}
}
