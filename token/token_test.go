package token_test

import (
	"testing"

	"github.com/mna/focus/token"
	"github.com/stretchr/testify/assert"
)

func TestLookup(t *testing.T) {
	cases := map[string]token.Kind{
		"let":    token.LET,
		"fn":     token.FN,
		"import": token.IMPORT,
		"if":     token.IF,
		"then":   token.THEN,
		"else":   token.ELSE,
		"true":   token.TRUE,
		"false":  token.FALSE,
		"not":    token.NOT,
		"and":    token.AND,
		"or":     token.OR,
		"foo":    token.IDENT,
		"lets":   token.IDENT,
		"Fn":     token.IDENT,
	}
	for in, want := range cases {
		assert.Equal(t, want, token.Lookup(in), in)
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "let", token.LET.String())
	assert.Equal(t, "|>", token.PIPEGT.String())
	assert.Equal(t, "identifier", token.IDENT.String())
	assert.Equal(t, "'let'", token.LET.GoString())
	assert.Equal(t, "'+'", token.PLUS.GoString())
	assert.Equal(t, "identifier", token.IDENT.GoString())
}

func TestIsPrimaryStart(t *testing.T) {
	for _, k := range []token.Kind{
		token.IDENT, token.NUMBER, token.STRING, token.CHAR, token.TRUE,
		token.FALSE, token.NOT, token.LPAREN, token.LBRACK, token.LBRACE,
		token.IF, token.FN, token.UNIT,
	} {
		assert.True(t, token.IsPrimaryStart(k), k.String())
	}
	// a bare '-' starts a binary subtraction, never a call argument
	for _, k := range []token.Kind{
		token.MINUS, token.PLUS, token.EQ, token.NEWLINE, token.EOF,
		token.RPAREN, token.DOT, token.PIPEGT,
	} {
		assert.False(t, token.IsPrimaryStart(k), k.String())
	}
}

func TestPosValid(t *testing.T) {
	assert.False(t, token.Pos{}.Valid())
	assert.True(t, token.Pos{Line: 1, Col: 1}.Valid())
}
