// Package ast defines the abstract syntax tree produced by the parser and
// consumed by the resolver and compiler.
package ast

import "github.com/mna/focus/token"

// A Node is any AST node; Span reports its source extent.
type Node interface {
	Span() (start, end token.Pos)
}

// A Stmt is a top-level or block-level statement.
type Stmt interface {
	Node
	stmtNode()
}

// An Expr is any expression. Most of the language's constructs: including
// if/then/else and blocks: are expressions.
type Expr interface {
	Node
	exprNode()
}

// Chunk is the root node of a parsed file or source fragment: an ordered
// list of top-level statements (only LetStmt and ImportStmt are valid at
// this level; the parser enforces that).
type Chunk struct {
	Name  string // filename, or empty for non-file sources
	Stmts []Stmt
	End   token.Pos
}

func (c *Chunk) Span() (token.Pos, token.Pos) {
	if len(c.Stmts) == 0 {
		return c.End, c.End
	}
	start, _ := c.Stmts[0].Span()
	return start, c.End
}
