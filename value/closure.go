package value

import (
	"fmt"
	"io"

	"github.com/mna/focus/compiler"
)

// An Upvalue is the cell mediating access to a closed-over variable. It is
// Open while the owning stack slot is alive (reads and writes forward to
// that slot) and Closed once the slot is about to be popped, at which point
// the cell owns the value. Cells are heap-shared: every closure capturing
// the same local holds the same *Upvalue, so mutation through any of them
// is observed by all.
type Upvalue struct {
	open bool
	slot int
	val  Value
}

// NewUpvalue returns an Open cell forwarding to stack slot slot.
func NewUpvalue(slot int) *Upvalue { return &Upvalue{open: true, slot: slot} }

// NewClosedUpvalue returns a cell that already owns v, used by tests and by
// native code that builds closures directly.
func NewClosedUpvalue(v Value) *Upvalue { return &Upvalue{val: v} }

// IsOpen reports whether the cell still forwards to a stack slot.
func (u *Upvalue) IsOpen() bool { return u.open }

// Slot returns the stack slot an Open cell forwards to.
func (u *Upvalue) Slot() int { return u.slot }

// Close transitions the cell to Closed, taking ownership of v (the value
// currently held in the cell's stack slot).
func (u *Upvalue) Close(v Value) {
	u.open = false
	u.slot = -1
	u.val = v
}

// Get returns a Closed cell's value.
func (u *Upvalue) Get() Value { return u.val }

// Set overwrites a Closed cell's value.
func (u *Upvalue) Set(v Value) { u.val = v }

// VM is the interface the virtual machine presents to native functions: the
// operand stack of the native's own frame plus re-entry for higher-order
// natives that call back into the language. Arguments sit on the stack in
// declaration order, so a native pops them in reverse.
type VM interface {
	// Top reports the number of arguments in the current frame.
	Top() int
	// Pop removes and returns the value on top of the stack.
	Pop() Value
	// Push pushes v on top of the stack.
	Push(v Value)
	// Call invokes callee with args and returns its result; re-entry is safe
	// from inside a native function.
	Call(callee Value, args []Value) (Value, error)

	Stdout() io.Writer
	Stderr() io.Writer
	Stdin() io.Reader
}

// NativeFn is a host function callable from the language.
type NativeFn func(vm VM) (Value, error)

// Native pairs a host function with the name used in stack traces.
type Native struct {
	Ident string
	Fn    NativeFn
}

// A Closure pairs a function - a compiled prototype or a native callable -
// with the upvalue cells it captured. Closures are heap-shared and compare
// by identity.
type Closure struct {
	Proto    *compiler.Prototype // nil when Native is set
	Native   *Native
	Upvalues []*Upvalue
}

// NewNativeClosure wraps a host function as a callable value.
func NewNativeClosure(ident string, fn NativeFn) *Closure {
	return &Closure{Native: &Native{Ident: ident, Fn: fn}}
}

func (c *Closure) Kind() Kind { return KindClosure }

func (c *Closure) String() string { return fmt.Sprintf("closure(%p %s)", c, c.Name()) }

// Name returns the closure's function name, for traces and error messages.
func (c *Closure) Name() string {
	switch {
	case c.Native != nil:
		return c.Native.Ident
	case c.Proto != nil && c.Proto.Name != "":
		return c.Proto.Name
	default:
		return "<anonymous>"
	}
}
