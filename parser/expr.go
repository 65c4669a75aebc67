package parser

import (
	"strconv"
	"strings"

	"github.com/mna/focus/ast"
	"github.com/mna/focus/token"
)

// precOf returns the binding power of a binary operator token, whether it is
// right-associative, and whether it is the assignment operator (which builds
// an AssignExpr instead of a BinaryExpr). ok is false for anything that is
// not a binary operator at all.
func precOf(k token.Kind) (prec int, rightAssoc, isAssign, ok bool) {
	switch k {
	case token.EQ:
		return 10, true, true, true
	case token.OR, token.AND, token.EQEQ, token.NEQ, token.LT, token.LE, token.GT, token.GE:
		return 20, false, false, true
	case token.PLUS, token.MINUS:
		return 30, false, false, true
	case token.STAR, token.SLASH, token.SLASHSLASH, token.PERCENT:
		return 40, false, false, true
	case token.PLUSPLUS:
		return 50, false, false, true
	default:
		return 0, false, false, false
	}
}

// parseExpr parses a full Expression, including the pipe operator, which
// this parser handles above ordinary precedence climbing: "a |> f b" is
// rewritten, at parse time, into the call "f a b" (left operand inserted as
// argument 0), so nothing past this function ever sees a PipeExpr survive.
func (p *parser) parseExpr(baseCol int) ast.Expr {
	left := p.parseBinary(10, baseCol)
	for {
		if p.tok == token.PIPEGT {
			pos := p.val.Pos
			p.advance()
			call := p.parseBinary(10, baseCol)
			left = p.rewritePipe(left, call, pos)
			continue
		}
		if p.tok == token.NEWLINE {
			s := p.save()
			for p.tok == token.NEWLINE {
				p.advance()
			}
			if p.tok == token.PIPEGT && p.val.Indent == baseCol {
				pos := p.val.Pos
				p.advance()
				call := p.parseBinary(10, baseCol)
				left = p.rewritePipe(left, call, pos)
				continue
			}
			p.restore(s)
		}
		break
	}
	return left
}

// rewritePipe inserts left as argument 0 of call, or: if the right-hand
// side of "|>" was not itself a call (e.g. "x |> double"): turns it into
// one.
func (p *parser) rewritePipe(left, call ast.Expr, pos token.Pos) ast.Expr {
	if c, ok := call.(*ast.CallExpr); ok {
		c.Args = append([]ast.Expr{left}, c.Args...)
		return c
	}
	_, end := call.Span()
	return &ast.CallExpr{Callee: call, Args: []ast.Expr{left}, End: end}
}

func (p *parser) parseBinary(minPrec int, baseCol int) ast.Expr {
	left := p.parseUnary(baseCol)
	for {
		prec, rightAssoc, isAssign, ok := precOf(p.tok)
		if !ok || prec < minPrec {
			break
		}
		op := p.tok
		pos := p.val.Pos
		p.advance()
		nextMin := prec + 1
		if rightAssoc {
			nextMin = prec
		}
		right := p.parseBinary(nextMin, baseCol)
		if isAssign {
			if !ast.IsAssignable(left) {
				p.errorf(pos, "left side of '=' must be an identifier or path")
			}
			left = &ast.AssignExpr{Target: left, Value: right, Pos: pos}
		} else {
			left = &ast.BinaryExpr{Op: op, X: left, Y: right, Pos: pos}
		}
	}
	return left
}

func (p *parser) parseUnary(baseCol int) ast.Expr {
	if p.tok == token.MINUS || p.tok == token.NOT {
		op := p.tok
		pos := p.val.Pos
		p.advance()
		x := p.parseUnary(baseCol)
		return &ast.UnaryExpr{Op: op, X: x, Start: pos}
	}
	return p.parsePrimary(baseCol)
}

// parsePrimary parses a Primary, then: only when not already gathering the
// arguments of an enclosing call (callDepth == 0): greedily consumes
// further primaries as a Call.
func (p *parser) parsePrimary(baseCol int) ast.Expr {
	base := p.parsePrimaryBase(baseCol)
	base = p.parsePathTail(base, baseCol)
	if p.canStartCallArg() {
		base = p.parseCall(base, baseCol)
	}
	return base
}

func (p *parser) parsePathTail(base ast.Expr, baseCol int) ast.Expr {
	var parts []ast.PathPart
	for {
		switch p.tok {
		case token.DOT:
			if !p.adjacent() {
				p.errorf(p.val.Pos, "invalid empty whitespace between identifier and accessor")
			}
			pos := p.val.Pos
			p.advance()
			if p.tok != token.IDENT {
				p.errorf(p.val.Pos, "expected a field name after '.'")
				return base
			}
			field := p.val.Raw
			p.advance()
			parts = append(parts, ast.PathPart{Field: field, Pos: pos})
			continue
		case token.LBRACK:
			// a detached '[' begins an array literal (a call argument), not
			// an index accessor
			if !p.adjacent() {
				break
			}
			pos := p.val.Pos
			p.advance()
			var idx ast.Expr
			p.withFreshCallScope(func() { idx = p.parseExpr(baseCol) })
			p.expect(token.RBRACK)
			parts = append(parts, ast.PathPart{Index: idx, Pos: pos})
			continue
		}
		break
	}
	if len(parts) == 0 {
		return base
	}
	return &ast.PathExpr{Base: base, Parts: parts, End: p.val.Pos}
}

// parseCall parses "one or more primaries on the same line" as the
// arguments of callee. Arguments are parsed with callDepth incremented so a
// bare identifier argument does not itself trigger a nested call: that is
// what keeps "f a b" a single 2-argument call rather than "f applied to (a
// applied to b)".
func (p *parser) parseCall(callee ast.Expr, baseCol int) ast.Expr {
	_, end := callee.Span()
	var args []ast.Expr
	for p.canStartCallArg() {
		p.callDepth++
		arg := p.parsePrimary(baseCol)
		p.callDepth--
		args = append(args, arg)
		_, end = arg.Span()
	}
	return &ast.CallExpr{Callee: callee, Args: args, End: end}
}

func (p *parser) parsePrimaryBase(baseCol int) ast.Expr {
	switch p.tok {
	case token.IDENT:
		return p.parseIdentName()
	case token.NUMBER:
		return p.parseNumber()
	case token.STRING:
		return p.parseStringExpr()
	case token.CHAR:
		pos := p.val.Pos
		runes := []rune(p.val.String)
		var r rune
		if len(runes) > 0 {
			r = runes[0]
		}
		end := pos
		end.Col += len(p.val.Raw)
		p.advance()
		return &ast.CharLit{Val: r, Start: pos, End: end}
	case token.TRUE:
		pos := p.val.Pos
		end := pos
		end.Col += len(p.val.Raw)
		p.advance()
		return &ast.BoolLit{Val: true, Start: pos, End: end}
	case token.FALSE:
		pos := p.val.Pos
		end := pos
		end.Col += len(p.val.Raw)
		p.advance()
		return &ast.BoolLit{Val: false, Start: pos, End: end}
	case token.UNIT:
		pos := p.val.Pos
		end := pos
		end.Col += 2
		p.advance()
		return &ast.UnitLit{Start: pos, End: end}
	case token.LPAREN:
		return p.parseParen(baseCol)
	case token.LBRACK:
		return p.parseArray(baseCol)
	case token.LBRACE:
		return p.parseTable(baseCol)
	case token.IF:
		return p.parseIf(baseCol)
	case token.FN:
		return p.parseFn(baseCol)
	default:
		pos := p.val.Pos
		p.errorf(pos, "unexpected %#v", p.tok)
		p.advance()
		return &ast.BadExpr{Start: pos, End: pos}
	}
}

func (p *parser) parseNumber() ast.Expr {
	pos := p.val.Pos
	raw := p.val.Raw
	clean := strings.ReplaceAll(raw, "_", "")
	end := pos
	end.Col += len(raw)
	p.advance()

	if strings.Contains(clean, ".") {
		f, err := strconv.ParseFloat(clean, 64)
		if err != nil {
			p.errorf(pos, "malformed float literal %q", raw)
		}
		return &ast.FloatLit{Val: f, Start: pos, End: end}
	}
	i, err := strconv.ParseInt(clean, 10, 64)
	if err != nil {
		p.errorf(pos, "malformed integer literal %q", raw)
	}
	return &ast.IntLit{Val: i, Start: pos, End: end}
}

// parseStringExpr lowers a decoded string literal into either a plain
// StringLit, or: when it contains one or more "{expr}" substitutions: an
// InterpolatedStringExpr. "{{" and "}}" are literal braces; anything else
// between a single '{' and its matching '}' is re-lexed and parsed as a
// standalone expression.
func (p *parser) parseStringExpr() ast.Expr {
	pos := p.val.Pos
	raw := p.val.Raw
	decoded := p.val.String
	end := pos
	end.Col += len(raw)
	p.advance()

	var format strings.Builder
	var args []ast.InterpArg
	i, n := 0, len(decoded)
	for i < n {
		switch decoded[i] {
		case '{':
			if i+1 < n && decoded[i+1] == '{' {
				format.WriteByte('{')
				i += 2
				continue
			}
			j, depth := i+1, 1
			for j < n && depth > 0 {
				switch decoded[j] {
				case '{':
					depth++
				case '}':
					depth--
				}
				if depth == 0 {
					break
				}
				j++
			}
			if j >= n {
				p.errorAt(pos, "unterminated '{' interpolation in string literal")
				i = n
				break
			}
			offset := format.Len()
			args = append(args, ast.InterpArg{Expr: p.parseInterpSubExpr(decoded[i+1:j], pos), Offset: offset})
			i = j + 1
		case '}':
			if i+1 < n && decoded[i+1] == '}' {
				format.WriteByte('}')
				i += 2
				continue
			}
			p.errorAt(pos, "unmatched '}' in string literal")
			i++
		default:
			format.WriteByte(decoded[i])
			i++
		}
	}

	if len(args) == 0 {
		return &ast.StringLit{Val: format.String(), Start: pos, End: end}
	}
	return &ast.InterpolatedStringExpr{Format: format.String(), Args: args, Start: pos, End: end}
}

func (p *parser) parseInterpSubExpr(src string, pos token.Pos) ast.Expr {
	sub := &parser{filename: p.filename}
	sub.lex.Init([]byte(src), p.filename, sub.onLexError)
	sub.advance()
	expr := sub.parseExpr(0)
	if sub.tok != token.EOF {
		sub.errorf(sub.val.Pos, "unexpected %#v at end of interpolated expression", sub.tok)
	}
	for _, e := range sub.errors {
		p.errorAt(pos, e.Msg)
	}
	return expr
}

func (p *parser) parseParen(baseCol int) ast.Expr {
	p.expect(token.LPAREN)
	var inner ast.Expr
	p.withFreshCallScope(func() { inner = p.parseExpr(baseCol) })
	p.expect(token.RPAREN)
	return inner
}

func (p *parser) parseArray(baseCol int) ast.Expr {
	start := p.expect(token.LBRACK)
	var elems []ast.Expr
	p.withFreshCallScope(func() {
		for p.tok != token.RBRACK && p.tok != token.EOF {
			elems = append(elems, p.parseExpr(baseCol))
			if p.tok == token.COMMA {
				p.advance()
			} else {
				break
			}
		}
	})
	end := p.expect(token.RBRACK)
	return &ast.ArrayExpr{Elems: elems, Start: start, End: end}
}

func (p *parser) parseTable(baseCol int) ast.Expr {
	start := p.expect(token.LBRACE)
	var entries []ast.TableEntry
	p.withFreshCallScope(func() {
		for p.tok != token.RBRACE && p.tok != token.EOF {
			var ent ast.TableEntry
			switch {
			case p.tok == token.LBRACK:
				p.advance()
				ent.KeyExpr = p.parseExpr(baseCol)
				p.expect(token.RBRACK)
			case p.tok == token.IDENT:
				ent.KeyIdent = p.val.Raw
				p.advance()
			case p.tok == token.STRING:
				ent.KeyIdent = p.val.String
				p.advance()
			default:
				p.errorf(p.val.Pos, "expected a table key, found %#v", p.tok)
			}
			p.expect(token.COLON)
			ent.Value = p.parseExpr(baseCol)
			entries = append(entries, ent)
			if p.tok == token.COMMA {
				p.advance()
			} else {
				break
			}
		}
	})
	end := p.expect(token.RBRACE)
	return &ast.TableExpr{Entries: entries, Start: start, End: end}
}

// parseIf parses "if cond then Block (else Block)?". The else clause may
// appear inline on the then-block's last line, or on its own line aligned
// with the 'if' keyword's column (a continuation, per NextContinued's
// contract); anything else ends the conditional with no else branch.
func (p *parser) parseIf(baseCol int) ast.Expr {
	start := p.expect(token.IF)
	var cond ast.Expr
	p.withFreshCallScope(func() { cond = p.parseExpr(baseCol) })
	p.expect(token.THEN)
	then := p.parseBlock(baseCol)

	var elseExpr ast.Expr
	switch {
	case p.tok == token.ELSE:
		p.advance()
		elseExpr = p.parseBlock(baseCol)
	case p.tok == token.NEWLINE:
		s := p.save()
		for p.tok == token.NEWLINE {
			p.advance()
		}
		if p.tok == token.ELSE && p.val.Indent == start.Col {
			p.advance()
			elseExpr = p.parseBlock(baseCol)
		} else {
			p.restore(s)
		}
	}
	return &ast.CondExpr{Cond: cond, Then: then, Else: elseExpr, Start: start}
}

func (p *parser) parseFn(baseCol int) ast.Expr {
	start := p.expect(token.FN)
	var params []*ast.IdentExpr
	for p.tok == token.IDENT || p.tok == token.UNIT {
		params = append(params, p.parseParam())
	}
	p.expect(token.ARROW)
	body := p.parseBlock(baseCol)
	_, end := body.Span()
	return &ast.FuncExpr{Params: params, Body: body, Start: start, End: end}
}
