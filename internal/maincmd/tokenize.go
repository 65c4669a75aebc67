package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/focus/lexer"
	"github.com/mna/focus/token"
	"github.com/mna/mainer"
)

func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return TokenizeFiles(ctx, stdio, args...)
}

// TokenizeFiles lexes each file and prints one token per line, with its
// position, kind and raw text.
func TokenizeFiles(_ context.Context, stdio mainer.Stdio, files ...string) error {
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			return printError(stdio, err)
		}

		var errs lexer.ErrorList
		var lex lexer.Lexer
		lex.Init(src, file, func(pos token.Pos, msg string) {
			errs.Add(lexer.GoPosition(file, pos), msg)
		})
		for {
			k, v := lex.Next()
			fmt.Fprintf(stdio.Stdout, "%d:%d\t%s\t%q\n", v.Pos.Line, v.Pos.Col, k, v.Raw)
			if k == token.EOF {
				break
			}
		}
		if len(errs) > 0 {
			errs.Sort()
			lexer.PrintError(stdio.Stderr, errs)
			return fmt.Errorf("%s: %w", file, errSilent)
		}
	}
	return nil
}
