package ast

// A Visitor's Visit method is invoked for each node encountered by Walk. If
// the result Visitor w is not nil, Walk visits each of the children of node
// with the visitor w, followed by a call of w.Visit(nil).
type Visitor interface {
	Visit(node Node) (w Visitor)
}

// Walk traverses an AST in depth-first order: it starts by calling
// v.Visit(node); node must not be nil. If the visitor w returned by
// v.Visit(node) is not nil, Walk visits each of the children of node with
// the visitor w, followed by a call of w.Visit(nil).
func Walk(v Visitor, node Node) {
	if v = v.Visit(node); v == nil {
		return
	}

	switch n := node.(type) {
	case *Chunk:
		for _, s := range n.Stmts {
			Walk(v, s)
		}

	case *LetStmt:
		Walk(v, n.Ident)
		if n.Value != nil {
			Walk(v, n.Value)
		}
	case *FuncStmt:
		Walk(v, n.Ident)
		for _, p := range n.Params {
			Walk(v, p)
		}
		Walk(v, n.Body)
	case *ImportStmt:
		// leaf
	case *ExpressionStmt:
		Walk(v, n.Expr)
	case *BadStmt:
		// leaf

	case *IdentExpr, *UnitLit, *BoolLit, *CharLit, *IntLit, *FloatLit, *StringLit, *BadExpr:
		// leaves

	case *InterpolatedStringExpr:
		for _, a := range n.Args {
			Walk(v, a.Expr)
		}
	case *ArrayExpr:
		for _, e := range n.Elems {
			Walk(v, e)
		}
	case *TableExpr:
		for _, ent := range n.Entries {
			if ent.KeyExpr != nil {
				Walk(v, ent.KeyExpr)
			}
			Walk(v, ent.Value)
		}
	case *BlockExpr:
		for _, s := range n.Stmts {
			Walk(v, s)
		}
	case *PathExpr:
		Walk(v, n.Base)
		for _, p := range n.Parts {
			if p.Index != nil {
				Walk(v, p.Index)
			}
		}
	case *CallExpr:
		Walk(v, n.Callee)
		for _, a := range n.Args {
			Walk(v, a)
		}
	case *FuncExpr:
		for _, p := range n.Params {
			Walk(v, p)
		}
		Walk(v, n.Body)
	case *CondExpr:
		Walk(v, n.Cond)
		Walk(v, n.Then)
		if n.Else != nil {
			Walk(v, n.Else)
		}
	case *UnaryExpr:
		Walk(v, n.X)
	case *BinaryExpr:
		Walk(v, n.X)
		Walk(v, n.Y)
	case *AssignExpr:
		Walk(v, n.Target)
		Walk(v, n.Value)
	case *PipeExpr:
		Walk(v, n.Left)
		Walk(v, n.Call)

	default:
		panic("ast.Walk: unexpected node type")
	}

	v.Visit(nil)
}
