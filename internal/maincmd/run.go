package maincmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/mna/focus/lexer"
	"github.com/mna/focus/loader"
	"github.com/mna/focus/stdlib"
	"github.com/mna/focus/value"
	"github.com/mna/focus/vm"
	"github.com/mna/mainer"
)

func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return RunFiles(ctx, stdio, c.Entry, args...)
}

// RunFiles loads, compiles and executes each file's entry function,
// printing the resulting value to stdout.
func RunFiles(ctx context.Context, stdio mainer.Stdio, entry string, files ...string) error {
	if entry == "" {
		entry = "main"
	}
	for _, file := range files {
		ld := loader.New(filepath.Dir(file))
		ld.AddModules(stdlib.Modules()...)

		idx, err := ld.LoadModule(file)
		if err != nil {
			lexer.PrintError(stdio.Stderr, err)
			return errSilent
		}

		machine := vm.New(ld, stdio)
		res, err := machine.ExecuteModule(ctx, idx, entry)
		if err != nil {
			return printError(stdio, err)
		}
		fmt.Fprintln(stdio.Stdout, value.Display(res))
	}
	return nil
}
