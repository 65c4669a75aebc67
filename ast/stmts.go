package ast

import "github.com/mna/focus/token"

func (*LetStmt) stmtNode()        {}
func (*FuncStmt) stmtNode()       {}
func (*ImportStmt) stmtNode()     {}
func (*ExpressionStmt) stmtNode() {}
func (*BadStmt) stmtNode()        {}

// LetStmt is "let ident" or "let ident = value". With no initializer, the
// binding's value is unit.
type LetStmt struct {
	Ident *IdentExpr
	Value Expr // nil if omitted
	Start token.Pos
	Line  int
}

func (s *LetStmt) Span() (token.Pos, token.Pos) {
	if s.Value != nil {
		_, end := s.Value.Span()
		return s.Start, end
	}
	_, end := s.Ident.Span()
	return s.Start, end
}

// FuncStmt is the sugared function-declaration form: "let f args = body".
// It binds Ident as a local before compiling Body so the function can call
// itself recursively.
type FuncStmt struct {
	Ident  *IdentExpr
	Params []*IdentExpr
	Body   *BlockExpr
	Start  token.Pos
	Line   int
}

func (s *FuncStmt) Span() (token.Pos, token.Pos) {
	_, end := s.Body.Span()
	return s.Start, end
}

// ImportStmt is "import "path"": a whole-module import. Every exported
// local of the imported module becomes resolvable by name in the importing
// scope.
type ImportStmt struct {
	Source string // resolved import path, without quotes
	Start  token.Pos
	End    token.Pos
	Line   int
}

func (s *ImportStmt) Span() (token.Pos, token.Pos) { return s.Start, s.End }

// ExpressionStmt wraps an expression used as a statement (assignment or
// call); in block context the compiler decides whether its value must be
// popped.
type ExpressionStmt struct {
	Expr Expr
	Line int
}

func (s *ExpressionStmt) Span() (token.Pos, token.Pos) { return s.Expr.Span() }

// BadStmt is a placeholder for a statement that failed to parse, allowing
// the parser to keep going and report further errors in the same pass.
type BadStmt struct {
	Start, End token.Pos
}

func (s *BadStmt) Span() (token.Pos, token.Pos) { return s.Start, s.End }
