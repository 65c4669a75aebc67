package compiler

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes a human-readable listing of p and all its nested prototypes
// to w: opcodes with their source lines, constants, locals and upvalue
// descriptors. It is debugging output for the "compile" command, not a
// format the loader reads back.
func Dump(w io.Writer, p *Prototype) {
	dumpProto(w, p, 0)
}

func dumpProto(w io.Writer, p *Prototype, depth int) {
	pad := strings.Repeat("  ", depth)
	name := p.Name
	if name == "" {
		name = "<anonymous>"
	}
	fmt.Fprintf(w, "%sfunction %s (%d args)\n", pad, name, p.NumArgs)

	lastLine := -1
	for i, in := range p.Code {
		line := "   |"
		if l := p.Lines[i]; l != lastLine {
			line = fmt.Sprintf("%4d", l)
			lastLine = l
		}
		fmt.Fprintf(w, "%s  %4d %s  %s\n", pad, i, line, in)
	}

	if len(p.Constants) > 0 {
		fmt.Fprintf(w, "%s  constants:\n", pad)
		for i, c := range p.Constants {
			switch c := c.(type) {
			case string:
				fmt.Fprintf(w, "%s    %3d: %q\n", pad, i, c)
			case rune:
				fmt.Fprintf(w, "%s    %3d: '%c'\n", pad, i, c)
			default:
				fmt.Fprintf(w, "%s    %3d: %v\n", pad, i, c)
			}
		}
	}
	if len(p.Locals) > 0 {
		fmt.Fprintf(w, "%s  locals: %s\n", pad, strings.Join(p.Locals, ", "))
	}
	if len(p.Upvalues) > 0 {
		descs := make([]string, len(p.Upvalues))
		for i, u := range p.Upvalues {
			kind := "upvalue"
			if u.IsLocal {
				kind = "local"
			}
			descs[i] = fmt.Sprintf("%d: %s %d", i, kind, u.Index)
		}
		fmt.Fprintf(w, "%s  upvalues: %s\n", pad, strings.Join(descs, ", "))
	}
	for _, child := range p.Prototypes {
		dumpProto(w, child, depth+1)
	}
}
