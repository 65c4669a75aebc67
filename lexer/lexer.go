// Package lexer tokenizes focus source text. It follows the
// position-tracking, rune-at-a-time scanning style of go/scanner,
// generalized to support the offside-rule indentation queries the parser
// needs: bounded lookahead via cheap state snapshots, and explicit
// indentation reporting instead of synthesized INDENT/DEDENT tokens.
package lexer

import (
	"unicode"
	"unicode/utf8"

	"github.com/mna/focus/token"
)

// ErrorHandler is called for each illegal token or malformed literal
// encountered while scanning.
type ErrorHandler func(pos token.Pos, msg string)

// Lexer tokenizes a source file lazily: every field is a plain value so the
// entire scanning state can be copied by value, which is how Peek/PeekNth
// and the indentation-aware helpers implement lookahead without an explicit
// token buffer.
type Lexer struct {
	src      []byte
	filename string
	err      ErrorHandler

	cur       rune
	off, roff int
	line, col int
	lineStart int // 0-based byte offset of the current line's first byte
}

// Init resets l to scan src. filename is used only for error positions.
func (l *Lexer) Init(src []byte, filename string, err ErrorHandler) {
	*l = Lexer{src: src, filename: filename, err: err, line: 1, col: 0}
	l.advance()
}

func (l *Lexer) error(pos token.Pos, msg string) {
	if l.err != nil {
		l.err(pos, msg)
	}
}

func (l *Lexer) advance() {
	if l.cur == '\n' {
		l.line++
		l.lineStart = l.roff
	}
	if l.roff >= len(l.src) {
		l.off = len(l.src)
		l.cur = -1
		l.col = l.off - l.lineStart + 1
		return
	}
	l.off = l.roff
	r, w := rune(l.src[l.roff]), 1
	if r >= utf8.RuneSelf {
		r, w = utf8.DecodeRune(l.src[l.roff:])
		if r == utf8.RuneError && w == 1 {
			l.error(l.pos(), "illegal UTF-8 encoding")
		}
	}
	l.roff += w
	l.cur = r
	l.col = l.off - l.lineStart + 1
}

func (l *Lexer) peekByte() byte {
	if l.roff < len(l.src) {
		return l.src[l.roff]
	}
	return 0
}

func (l *Lexer) pos() token.Pos { return token.Pos{Offset: l.off, Line: l.line, Col: l.col} }

// Snapshot is an O(1) copy of the scanning state, used to implement
// unlimited, side-effect-free lookahead: copy, advance the copy, inspect,
// discard.
type Snapshot struct{ l Lexer }

// Save captures the current scanning position.
func (l *Lexer) Save() Snapshot { return Snapshot{l: *l} }

// Restore rewinds l to a previously captured Snapshot.
func (l *Lexer) Restore(s Snapshot) { *l = s.l }

func isLetter(r rune) bool {
	return r == '_' || 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' ||
		r >= utf8.RuneSelf && unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return '0' <= r && r <= '9' || r >= utf8.RuneSelf && unicode.IsDigit(r)
}

func isHSpace(r rune) bool { return r == ' ' || r == '\t' || r == '\r' }

// skipHSpaceAndComments consumes horizontal whitespace and '#' line
// comments, but never consumes the newline itself: callers that care about
// newlines (Next, NextIndented, PeekIndentation) observe it as NEWLINE.
func (l *Lexer) skipHSpaceAndComments() {
	for {
		for isHSpace(l.cur) {
			l.advance()
		}
		if l.cur == '#' {
			for l.cur != '\n' && l.cur != -1 {
				l.advance()
			}
			continue
		}
		return
	}
}

// Next returns the next token, consuming it.
func (l *Lexer) Next() (token.Kind, token.Value) {
	l.skipHSpaceAndComments()

	start := l.off
	pos := l.pos()
	indent := l.col

	switch {
	case l.cur == '\n':
		l.advance()
		return token.NEWLINE, token.Value{Raw: "\n", Pos: pos, Indent: indent}

	case l.cur == -1:
		return token.EOF, token.Value{Pos: pos, Indent: indent}

	case isLetter(l.cur):
		for isLetter(l.cur) || isDigit(l.cur) {
			l.advance()
		}
		lit := string(l.src[start:l.off])
		k := token.Lookup(lit)
		return k, token.Value{Raw: lit, Pos: pos, Span: token.Span{Start: start, End: l.off}, Indent: indent}

	case isDigit(l.cur) || l.cur == '.' && isDigit(rune(l.peekByte())):
		return l.scanNumber(pos, indent)

	case l.cur == '"' || l.cur == '\'':
		return l.scanString(pos, indent)

	default:
		return l.scanPunct(pos, indent)
	}
}

func (l *Lexer) scanPunct(pos token.Pos, indent int) (token.Kind, token.Value) {
	start := l.off
	cur := l.cur
	l.advance()

	mk := func(k token.Kind) (token.Kind, token.Value) {
		return k, token.Value{Raw: string(l.src[start:l.off]), Pos: pos, Span: token.Span{Start: start, End: l.off}, Indent: indent}
	}

	switch cur {
	case '+':
		if l.cur == '+' {
			l.advance()
			return mk(token.PLUSPLUS)
		}
		return mk(token.PLUS)
	case '-':
		if l.cur == '>' {
			l.advance()
			return mk(token.ARROW)
		}
		return mk(token.MINUS)
	case '*':
		return mk(token.STAR)
	case '/':
		if l.cur == '/' {
			l.advance()
			return mk(token.SLASHSLASH)
		}
		return mk(token.SLASH)
	case '%':
		return mk(token.PERCENT)
	case '=':
		if l.cur == '=' {
			l.advance()
			return mk(token.EQEQ)
		}
		return mk(token.EQ)
	case '!':
		if l.cur == '=' {
			l.advance()
			return mk(token.NEQ)
		}
		l.error(pos, "illegal character '!'")
		return mk(token.ILLEGAL)
	case '<':
		if l.cur == '=' {
			l.advance()
			return mk(token.LE)
		}
		return mk(token.LT)
	case '>':
		if l.cur == '=' {
			l.advance()
			return mk(token.GE)
		}
		return mk(token.GT)
	case '(':
		if l.cur == ')' {
			l.advance()
			return mk(token.UNIT)
		}
		return mk(token.LPAREN)
	case ')':
		return mk(token.RPAREN)
	case '[':
		return mk(token.LBRACK)
	case ']':
		return mk(token.RBRACK)
	case '{':
		return mk(token.LBRACE)
	case '}':
		return mk(token.RBRACE)
	case ',':
		return mk(token.COMMA)
	case ':':
		return mk(token.COLON)
	case '.':
		return mk(token.DOT)
	case '|':
		if l.cur == '>' {
			l.advance()
			return mk(token.PIPEGT)
		}
		l.error(pos, "illegal character '|'")
		return mk(token.ILLEGAL)
	default:
		l.error(pos, "illegal character "+string(cur))
		return mk(token.ILLEGAL)
	}
}
