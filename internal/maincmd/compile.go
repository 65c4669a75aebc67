package maincmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/mna/focus/compiler"
	"github.com/mna/focus/lexer"
	"github.com/mna/focus/loader"
	"github.com/mna/focus/stdlib"
	"github.com/mna/mainer"
)

func (c *Cmd) Compile(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return CompileFiles(ctx, stdio, args...)
}

// CompileFiles compiles each file and writes a readable dump of its
// prototypes next to it, with the DumpExt extension. The dump is debugging
// output, not a loader target.
func CompileFiles(_ context.Context, stdio mainer.Stdio, files ...string) error {
	for _, file := range files {
		ld := loader.New(filepath.Dir(file))
		ld.AddModules(stdlib.Modules()...)

		idx, err := ld.LoadModule(file)
		if err != nil {
			lexer.PrintError(stdio.Stderr, err)
			return errSilent
		}
		mod := ld.ModuleAt(idx)

		out := strings.TrimSuffix(file, filepath.Ext(file)) + DumpExt
		f, err := os.Create(out)
		if err != nil {
			return printError(stdio, err)
		}
		compiler.Dump(f, mod.Proto)
		if err := f.Close(); err != nil {
			return printError(stdio, err)
		}
	}
	return nil
}
