package lexer

import "github.com/mna/focus/token"

// Peek returns the next token without consuming it.
func (l *Lexer) Peek() (token.Kind, token.Value) {
	s := l.Save()
	k, v := l.Next()
	l.Restore(s)
	return k, v
}

// PeekNth returns the nth following token (1 == Peek) without consuming
// anything. It is an O(n) rescan from the current state, which is fine for
// the parser's small lookahead needs (call-vs-binary-op disambiguation and
// similar one-or-two-token questions).
func (l *Lexer) PeekNth(n int) (token.Kind, token.Value) {
	s := l.Save()
	var k token.Kind
	var v token.Value
	for i := 0; i < n; i++ {
		k, v = l.Next()
	}
	l.Restore(s)
	return k, v
}

// NextEmpty returns an EMPTY token if the next character is horizontal
// whitespace (not a newline), without consuming it; otherwise it behaves
// exactly like Next. This is how the parser forbids whitespace between an
// identifier and its '.field' accessor ("a .b" is not "a.b").
func (l *Lexer) NextEmpty() (token.Kind, token.Value) {
	if isHSpace(l.cur) {
		pos := l.pos()
		return token.EMPTY, token.Value{Pos: pos, Indent: l.col}
	}
	return l.Next()
}

// NextIndented treats a single leading newline as transparent iff the
// following non-blank token is indented strictly deeper than baseCol;
// otherwise it returns ok=false without consuming anything. This lets an
// expression continue onto the next line only when that continuation is
// clearly more indented than the construct it belongs to.
func (l *Lexer) NextIndented(baseCol int) (k token.Kind, v token.Value, ok bool) {
	s := l.Save()
	if pk, _ := l.Peek(); pk != token.NEWLINE {
		l.Restore(s)
		k, v = l.Next()
		return k, v, true
	}
	l.Next() // consume the newline
	col := l.PeekIndentation()
	if col <= baseCol {
		l.Restore(s)
		return token.ILLEGAL, token.Value{}, false
	}
	k, v = l.Next()
	return k, v, true
}

// NextContinued is like NextIndented but requires the following line to sit
// at exactly level (used for 'else' and pipe continuation, which must line
// up with the statement they continue rather than merely being deeper).
func (l *Lexer) NextContinued(level int) (k token.Kind, v token.Value, ok bool) {
	s := l.Save()
	if pk, _ := l.Peek(); pk != token.NEWLINE {
		l.Restore(s)
		k, v = l.Next()
		return k, v, true
	}
	l.Next()
	col := l.PeekIndentation()
	if col != level {
		l.Restore(s)
		return token.ILLEGAL, token.Value{}, false
	}
	k, v = l.Next()
	return k, v, true
}

// PeekIndentation skips newlines (and the comments/whitespace around them)
// and returns the indentation column of the next substantive token, without
// consuming anything.
func (l *Lexer) PeekIndentation() int {
	s := l.Save()
	defer l.Restore(s)
	for {
		k, v := l.Next()
		if k == token.NEWLINE {
			continue
		}
		return v.Indent
	}
}

// SkipCommentsAndNewLines consumes (and discards) any run of NEWLINE tokens;
// '#' comments are already swallowed by the lower-level scanning, so this is
// just blank-line skipping ahead of a statement.
func (l *Lexer) SkipCommentsAndNewLines() {
	for {
		s := l.Save()
		k, _ := l.Next()
		if k != token.NEWLINE {
			l.Restore(s)
			return
		}
	}
}
