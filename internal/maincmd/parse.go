package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/focus/ast"
	"github.com/mna/focus/lexer"
	"github.com/mna/focus/parser"
	"github.com/mna/mainer"
)

func (c *Cmd) Parse(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return ParseFiles(ctx, stdio, args...)
}

// ParseFiles parses each file and prints the resulting AST; parse errors go
// to stderr and parsing continues with the next file only when a file
// parses cleanly.
func ParseFiles(_ context.Context, stdio mainer.Stdio, files ...string) error {
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			return printError(stdio, err)
		}
		chunk, err := parser.Parse(file, src)
		if chunk != nil {
			ast.Print(stdio.Stdout, chunk)
		}
		if err != nil {
			lexer.PrintError(stdio.Stderr, err)
			return fmt.Errorf("%s: %w", file, errSilent)
		}
	}
	return nil
}
