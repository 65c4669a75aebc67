package token

// Pos is a 1-based line/column/byte-offset source position. The zero value
// denotes an unknown position, matching the convention used throughout the
// compiler pipeline.
type Pos struct {
	Offset int // 0-based byte offset
	Line   int // 1-based line number
	Col    int // 1-based column number (in bytes)
}

// Span is a half-open byte range [Start, End) into the source.
type Span struct {
	Start, End int
}

// Valid reports whether p carries known line/column information.
func (p Pos) Valid() bool { return p.Line > 0 && p.Col > 0 }

// Value is the payload produced by the lexer for a single token: its
// rendered/raw text plus, for literal kinds, the decoded value.
type Value struct {
	Raw    string // verbatim source text (for punctuation, the canonical spelling)
	Pos    Pos
	Span   Span
	Indent int // column of the first character on this token's line

	Int    int64
	Float  float64
	String string // decoded string literal content, or decoded char
}
