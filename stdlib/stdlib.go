// Package stdlib provides the native standard-library modules: Io, Iter,
// String, Parse, Fmt and Http. Every function follows the one native
// calling convention: it receives the machine, reads its arguments off the
// stack in reverse with Pop (Top reports how many there are), may re-enter
// the machine through Call, and returns a single value or an error.
package stdlib

import (
	"fmt"

	"github.com/mna/focus/value"
)

// Modules returns all native modules, ready to be registered with the
// module loader before any user compilation starts.
func Modules() []*value.Module {
	return []*value.Module{
		ioModule(),
		iterModule(),
		stringModule(),
		parseModule(),
		fmtModule(),
		httpModule(),
	}
}

type nativeEntry struct {
	ident string
	fn    value.NativeFn
}

func nativeModule(ident string, fns ...nativeEntry) *value.Module {
	locals := make([]string, len(fns))
	values := make([]value.Value, len(fns))
	for i, f := range fns {
		locals[i] = f.ident
		values[i] = value.NewNativeClosure(ident+"."+f.ident, f.fn)
	}
	return value.NewNativeModule(ident, locals, values)
}

func argCountError(ident string, want, got int) error {
	return fmt.Errorf("%s takes %d arguments (%d given)", ident, want, got)
}
