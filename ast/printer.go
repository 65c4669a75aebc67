package ast

import (
	"fmt"
	"io"
	"strings"
)

// Print writes an indented textual dump of chunk to w, one node per line.
// It exists to back the "parse" CLI command; it is debugging output, not a
// format any other tool reads back in.
func Print(w io.Writer, chunk *Chunk) {
	p := &printer{w: w}
	for _, s := range chunk.Stmts {
		p.stmt(0, s)
	}
}

type printer struct{ w io.Writer }

func (p *printer) line(depth int, format string, args ...any) {
	fmt.Fprintf(p.w, "%s%s\n", strings.Repeat("  ", depth), fmt.Sprintf(format, args...))
}

func (p *printer) stmt(depth int, s Stmt) {
	switch s := s.(type) {
	case *LetStmt:
		p.line(depth, "Let %s", s.Ident.Name)
		if s.Value != nil {
			p.expr(depth+1, s.Value)
		}
	case *FuncStmt:
		p.line(depth, "Function %s(%s)", s.Ident.Name, joinIdents(s.Params))
		for _, st := range s.Body.Stmts {
			p.stmt(depth+1, st)
		}
	case *ImportStmt:
		p.line(depth, "Import %q", s.Source)
	case *ExpressionStmt:
		p.expr(depth, s.Expr)
	case *BadStmt:
		p.line(depth, "<bad statement>")
	}
}

func (p *printer) expr(depth int, e Expr) {
	switch e := e.(type) {
	case *UnitLit:
		p.line(depth, "Unit")
	case *BoolLit:
		p.line(depth, "Bool %v", e.Val)
	case *CharLit:
		p.line(depth, "Char %q", e.Val)
	case *IntLit:
		p.line(depth, "Int %d", e.Val)
	case *FloatLit:
		p.line(depth, "Float %v", e.Val)
	case *StringLit:
		p.line(depth, "String %q", e.Val)
	case *InterpolatedStringExpr:
		p.line(depth, "InterpolatedString %q", e.Format)
		for _, a := range e.Args {
			p.expr(depth+1, a.Expr)
		}
	case *ArrayExpr:
		p.line(depth, "Array")
		for _, el := range e.Elems {
			p.expr(depth+1, el)
		}
	case *TableExpr:
		p.line(depth, "Table")
		for _, ent := range e.Entries {
			if ent.KeyExpr != nil {
				p.line(depth+1, "Key:")
				p.expr(depth+2, ent.KeyExpr)
			} else {
				p.line(depth+1, "Key %s", ent.KeyIdent)
			}
			p.expr(depth+1, ent.Value)
		}
	case *BlockExpr:
		p.line(depth, "Block")
		for _, s := range e.Stmts {
			p.stmt(depth+1, s)
		}
	case *IdentExpr:
		p.line(depth, "Ident %s", e.Name)
	case *PathExpr:
		p.line(depth, "Path")
		p.expr(depth+1, e.Base)
		for _, part := range e.Parts {
			if part.Index != nil {
				p.line(depth+1, "Index")
				p.expr(depth+2, part.Index)
			} else {
				p.line(depth+1, "Field %s", part.Field)
			}
		}
	case *CallExpr:
		p.line(depth, "Call")
		p.expr(depth+1, e.Callee)
		for _, a := range e.Args {
			p.expr(depth+1, a)
		}
	case *FuncExpr:
		p.line(depth, "Fn(%s)", joinIdents(e.Params))
		for _, s := range e.Body.Stmts {
			p.stmt(depth+1, s)
		}
	case *CondExpr:
		p.line(depth, "If")
		p.expr(depth+1, e.Cond)
		p.line(depth, "Then")
		p.expr(depth+1, e.Then)
		if e.Else != nil {
			p.line(depth, "Else")
			p.expr(depth+1, e.Else)
		}
	case *UnaryExpr:
		p.line(depth, "Unary %s", e.Op)
		p.expr(depth+1, e.X)
	case *BinaryExpr:
		p.line(depth, "Binary %s", e.Op)
		p.expr(depth+1, e.X)
		p.expr(depth+1, e.Y)
	case *AssignExpr:
		p.line(depth, "Assign")
		p.expr(depth+1, e.Target)
		p.expr(depth+1, e.Value)
	case *BadExpr:
		p.line(depth, "<bad expression>")
	default:
		p.line(depth, "<unknown %T>", e)
	}
}

func joinIdents(ids []*IdentExpr) string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id.Name
	}
	return strings.Join(names, ", ")
}
