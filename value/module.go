package value

import (
	"fmt"

	"github.com/mna/focus/compiler"
)

// A Module is a named collection of top-level bindings. A native module
// carries its values precomputed (typically closures wrapping host
// functions); a normal module carries the compiled top-level prototype whose
// execution leaves the exported values on the stack, in Locals order. For
// normal modules Values stays nil until the VM materializes the exports by
// running the prototype once.
type Module struct {
	Ident  string
	Locals []string // exported names, in slot order

	Proto  *compiler.Prototype // nil for native modules
	Values []Value             // precomputed (native) or materialized (normal)
}

// NewNativeModule builds a native module from parallel name/value lists.
func NewNativeModule(ident string, locals []string, values []Value) *Module {
	return &Module{Ident: ident, Locals: locals, Values: values}
}

func (m *Module) Kind() Kind     { return KindModule }
func (m *Module) String() string { return fmt.Sprintf("module(%s)", m.Ident) }

// IsNative reports whether the module's values are host-provided rather
// than compiled.
func (m *Module) IsNative() bool { return m.Proto == nil }

// ExportIndex returns the position of the export named name. It is the
// single routing point for name-based module lookup: compiled code embeds
// the index it returns, and runtime name lookups go through it too, so the
// two paths always agree.
func (m *Module) ExportIndex(name string) (int, bool) {
	for i, l := range m.Locals {
		if l == name {
			return i, true
		}
	}
	return 0, false
}
