package lexer_test

import (
	"strings"
	"testing"

	"github.com/mna/focus/lexer"
	"github.com/mna/focus/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokErr struct {
	pos token.Pos
	msg string
}

func initLexer(t *testing.T, src string) (*lexer.Lexer, *[]tokErr) {
	t.Helper()
	var errs []tokErr
	var lex lexer.Lexer
	lex.Init([]byte(src), "test.fl", func(pos token.Pos, msg string) {
		errs = append(errs, tokErr{pos, msg})
	})
	return &lex, &errs
}

func kinds(t *testing.T, src string) []token.Kind {
	t.Helper()
	lex, _ := initLexer(t, src)
	var ks []token.Kind
	for {
		k, _ := lex.Next()
		ks = append(ks, k)
		if k == token.EOF {
			return ks
		}
	}
}

func TestScanKinds(t *testing.T) {
	cases := []struct {
		src  string
		want []token.Kind
	}{
		{"", []token.Kind{token.EOF}},
		{"let x = 1", []token.Kind{token.LET, token.IDENT, token.EQ, token.NUMBER, token.EOF}},
		{"()", []token.Kind{token.UNIT, token.EOF}},
		{"( )", []token.Kind{token.LPAREN, token.RPAREN, token.EOF}},
		{"a.b[0]", []token.Kind{token.IDENT, token.DOT, token.IDENT, token.LBRACK, token.NUMBER, token.RBRACK, token.EOF}},
		{"x |> f", []token.Kind{token.IDENT, token.PIPEGT, token.IDENT, token.EOF}},
		{"fn x -> x", []token.Kind{token.FN, token.IDENT, token.ARROW, token.IDENT, token.EOF}},
		{"a == b != c <= >= < >", []token.Kind{token.IDENT, token.EQEQ, token.IDENT, token.NEQ, token.IDENT, token.LE, token.GE, token.LT, token.GT, token.EOF}},
		{"1 + 2.5 * 3 // 4 % 5 - 6 / 7", []token.Kind{token.NUMBER, token.PLUS, token.NUMBER, token.STAR, token.NUMBER, token.SLASHSLASH, token.NUMBER, token.PERCENT, token.NUMBER, token.MINUS, token.NUMBER, token.SLASH, token.NUMBER, token.EOF}},
		{"\"s\" ++ 'c'", []token.Kind{token.STRING, token.PLUSPLUS, token.CHAR, token.EOF}},
		{"{a: 1, b: 2}", []token.Kind{token.LBRACE, token.IDENT, token.COLON, token.NUMBER, token.COMMA, token.IDENT, token.COLON, token.NUMBER, token.RBRACE, token.EOF}},
		{"# just a comment", []token.Kind{token.EOF}},
		{"a # trailing\nb", []token.Kind{token.IDENT, token.NEWLINE, token.IDENT, token.EOF}},
		{"not true and false or x", []token.Kind{token.NOT, token.TRUE, token.AND, token.FALSE, token.OR, token.IDENT, token.EOF}},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, kinds(t, c.src), "%q", c.src)
	}
}

func TestScanValues(t *testing.T) {
	lex, _ := initLexer(t, `ident_1 12_000 3.14 "a\nb" 'x'`)

	k, v := lex.Next()
	assert.Equal(t, token.IDENT, k)
	assert.Equal(t, "ident_1", v.Raw)

	k, v = lex.Next()
	assert.Equal(t, token.NUMBER, k)
	assert.Equal(t, "12_000", v.Raw)

	k, v = lex.Next()
	assert.Equal(t, token.NUMBER, k)
	assert.Equal(t, "3.14", v.Raw)

	k, v = lex.Next()
	assert.Equal(t, token.STRING, k)
	assert.Equal(t, "a\nb", v.String)

	k, v = lex.Next()
	assert.Equal(t, token.CHAR, k)
	assert.Equal(t, "x", v.String)
}

func TestScanPositions(t *testing.T) {
	lex, _ := initLexer(t, "let a\n    b = 1\n")

	_, v := lex.Next() // let
	assert.Equal(t, token.Pos{Offset: 0, Line: 1, Col: 1}, v.Pos)
	assert.Equal(t, 1, v.Indent)

	_, v = lex.Next() // a
	assert.Equal(t, token.Pos{Offset: 4, Line: 1, Col: 5}, v.Pos)
	assert.Equal(t, 5, v.Indent)

	lex.Next() // newline
	_, v = lex.Next() // b
	assert.Equal(t, token.Pos{Offset: 10, Line: 2, Col: 5}, v.Pos)
	assert.Equal(t, 5, v.Indent)
}

func TestIllegalAndUnterminated(t *testing.T) {
	lex, errs := initLexer(t, "a ! b")
	for k, _ := lex.Next(); k != token.EOF; k, _ = lex.Next() {
	}
	require.Len(t, *errs, 1)
	assert.Contains(t, (*errs)[0].msg, "illegal character")

	lex, errs = initLexer(t, "\"never ends")
	for k, _ := lex.Next(); k != token.EOF; k, _ = lex.Next() {
	}
	require.Len(t, *errs, 1)
	assert.Contains(t, (*errs)[0].msg, "not terminated")

	lex, errs = initLexer(t, "'ab'")
	for k, _ := lex.Next(); k != token.EOF; k, _ = lex.Next() {
	}
	require.Len(t, *errs, 1)
	assert.Contains(t, (*errs)[0].msg, "exactly one character")
}

func TestPeekAndPeekNth(t *testing.T) {
	lex, _ := initLexer(t, "a b c")

	k, v := lex.Peek()
	assert.Equal(t, token.IDENT, k)
	assert.Equal(t, "a", v.Raw)
	// peeking does not consume
	k, v = lex.Peek()
	assert.Equal(t, "a", v.Raw)

	_, v = lex.PeekNth(3)
	assert.Equal(t, "c", v.Raw)
	_, v = lex.Next()
	assert.Equal(t, "a", v.Raw)
	_, v = lex.PeekNth(2)
	assert.Equal(t, "c", v.Raw)
	_ = k
}

func TestNextEmpty(t *testing.T) {
	// whitespace between an identifier and its accessor yields EMPTY
	lex, _ := initLexer(t, "a .b")
	k, _ := lex.Next() // a
	require.Equal(t, token.IDENT, k)
	k, _ = lex.NextEmpty()
	assert.Equal(t, token.EMPTY, k)

	// no whitespace: behaves exactly like Next
	lex, _ = initLexer(t, "a.b")
	lex.Next() // a
	k, _ = lex.NextEmpty()
	assert.Equal(t, token.DOT, k)
}

func TestNextIndented(t *testing.T) {
	// deeper continuation line is transparent
	lex, _ := initLexer(t, "a\n    + b")
	_, v := lex.Next() // a
	k, v2, ok := lex.NextIndented(v.Indent)
	require.True(t, ok)
	assert.Equal(t, token.PLUS, k)
	assert.Equal(t, 5, v2.Indent)

	// same-or-shallower indentation is not a continuation
	lex, _ = initLexer(t, "a\nb")
	_, v = lex.Next()
	_, _, ok = lex.NextIndented(v.Indent)
	assert.False(t, ok)

	// no newline: behaves like Next
	lex, _ = initLexer(t, "a b")
	lex.Next()
	k, _, ok = lex.NextIndented(1)
	require.True(t, ok)
	assert.Equal(t, token.IDENT, k)
}

func TestNextContinued(t *testing.T) {
	lex, _ := initLexer(t, "a\n    |> f")
	lex.Next() // a
	k, _, ok := lex.NextContinued(5)
	require.True(t, ok)
	assert.Equal(t, token.PIPEGT, k)

	lex, _ = initLexer(t, "a\n    |> f")
	lex.Next()
	_, _, ok = lex.NextContinued(3) // wrong level
	assert.False(t, ok)
}

func TestPeekIndentation(t *testing.T) {
	lex, _ := initLexer(t, "\n\n   # comment line\n      x")
	assert.Equal(t, 7, lex.PeekIndentation())
	// nothing was consumed
	k, _ := lex.Next()
	assert.Equal(t, token.NEWLINE, k)
}

func TestSkipCommentsAndNewLines(t *testing.T) {
	lex, _ := initLexer(t, "\n# c1\n\n# c2\nx")
	lex.SkipCommentsAndNewLines()
	k, v := lex.Next()
	assert.Equal(t, token.IDENT, k)
	assert.Equal(t, "x", v.Raw)
}

// TestRelexRoundTrip checks that printing the raw text of each token and
// re-lexing yields the same token stream.
func TestRelexRoundTrip(t *testing.T) {
	src := "let add a b =\n    a + b\nlet main () =\n    add 1 2 |> Parse.to_string\n"
	lex, _ := initLexer(t, src)

	var raws []string
	var ks []token.Kind
	for {
		k, v := lex.Next()
		if k == token.EOF {
			break
		}
		ks = append(ks, k)
		raws = append(raws, v.Raw)
	}

	relex, _ := initLexer(t, strings.Join(raws, " "))
	var ks2 []token.Kind
	for {
		k, _ := relex.Next()
		if k == token.EOF {
			break
		}
		ks2 = append(ks2, k)
	}
	assert.Equal(t, ks, ks2)
}

func TestSnapshotRestore(t *testing.T) {
	lex, _ := initLexer(t, "a b c")
	s := lex.Save()
	lex.Next()
	lex.Next()
	lex.Restore(s)
	_, v := lex.Next()
	assert.Equal(t, "a", v.Raw)
}
