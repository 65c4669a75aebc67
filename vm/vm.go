// Package vm implements the stack machine that executes compiled
// prototypes: call frames addressing locals as frame-relative stack slots,
// a dispatch loop over the compact opcode set, the open-upvalue list that
// backs closure capture, and the native-function trampoline that lets host
// code re-enter the machine.
package vm

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mna/focus/loader"
	"github.com/mna/focus/value"
	"github.com/mna/mainer"
	"golang.org/x/exp/slices"
)

// DefaultMaxCallDepth bounds the number of nested call frames before a
// stack overflow error is raised.
const DefaultMaxCallDepth = 256

// frame records one in-progress call: the closure being run, its
// instruction pointer and the stack position of its local 0 (the callee).
type frame struct {
	closure    *value.Closure
	ip         int
	slotOffset int
}

// HeapStats reports how many shared containers the machine allocated while
// executing bytecode, as a diagnostics hook; it is not a collector and does
// not track reclamation.
type HeapStats struct {
	Tables, Arrays, Closures int
}

// VM is one execution engine instance. It is strictly sequential: a single
// goroutine owns it for the duration of ExecuteModule.
type VM struct {
	loader *loader.Loader
	stdio  mainer.Stdio

	stack  []value.Value
	frames []frame
	open   []*value.Upvalue // open upvalue cells, descending by stack slot

	maxCallDepth int
	ctx          context.Context
	steps        uint64
	stats        HeapStats
}

// New returns a VM reading modules from ld. Zero-value stdio fields default
// to the process's standard streams.
func New(ld *loader.Loader, stdio mainer.Stdio) *VM {
	if stdio.Stdin == nil {
		stdio.Stdin = os.Stdin
	}
	if stdio.Stdout == nil {
		stdio.Stdout = os.Stdout
	}
	if stdio.Stderr == nil {
		stdio.Stderr = os.Stderr
	}
	return &VM{loader: ld, stdio: stdio, maxCallDepth: DefaultMaxCallDepth}
}

// SetMaxCallDepth overrides the call-depth limit; n <= 0 restores the
// default.
func (m *VM) SetMaxCallDepth(n int) {
	if n <= 0 {
		n = DefaultMaxCallDepth
	}
	m.maxCallDepth = n
}

// HeapStats returns the allocation counters accumulated so far.
func (m *VM) HeapStats() HeapStats { return m.stats }

// ExecuteModule materializes the module at index and calls its exported
// closure named entry (which must declare zero arguments or the single
// implicit unit argument), returning the call's result. On error the
// machine is reset to a clean state: empty stack, no frames, no open
// upvalue cells.
func (m *VM) ExecuteModule(ctx context.Context, index int, entry string) (res value.Value, err error) {
	m.ctx = ctx
	defer func() {
		m.ctx = nil
		if err != nil {
			m.reset()
		}
	}()

	mod := m.loader.ModuleAt(index)
	if mod == nil {
		return nil, fmt.Errorf("no module at index %d", index)
	}
	if err := m.materialize(mod); err != nil {
		return nil, err
	}
	i, ok := mod.ExportIndex(entry)
	if !ok {
		return nil, fmt.Errorf("module %s has no export %s", mod.Ident, entry)
	}
	cl, ok := mod.Values[i].(*value.Closure)
	if !ok {
		return nil, fmt.Errorf("%s.%s is not callable", mod.Ident, entry)
	}
	var args []value.Value
	if cl.Proto != nil {
		switch cl.Proto.NumArgs {
		case 0:
		case 1:
			args = []value.Value{value.Unit{}}
		default:
			return nil, fmt.Errorf("%s.%s must take zero arguments", mod.Ident, entry)
		}
	}
	return m.Call(cl, args)
}

// materialize runs a normal module's top-level prototype once, capturing the
// stack region it leaves behind as the module's export values. Native
// modules carry their values precomputed and need no execution.
func (m *VM) materialize(mod *value.Module) error {
	if mod.Values != nil {
		return nil
	}
	if mod.Proto == nil {
		return m.errorf("cannot execute native module %s at runtime", mod.Ident)
	}
	if len(m.frames) >= m.maxCallDepth {
		return m.errorf("stack overflow")
	}
	base := len(m.stack)
	m.frames = append(m.frames, frame{
		closure:    &value.Closure{Proto: mod.Proto},
		slotOffset: base,
	})
	if err := m.run(); err != nil {
		return err
	}
	vals := make([]value.Value, len(m.stack)-base)
	copy(vals, m.stack[base:])
	m.stack = m.stack[:base]
	mod.Values = vals
	return nil
}

// Call invokes callee with args and returns the result; it is the re-entry
// point native functions use for higher-order operations. It implements
// value.VM.
func (m *VM) Call(callee value.Value, args []value.Value) (value.Value, error) {
	m.Push(callee)
	for _, a := range args {
		m.Push(a)
	}
	if err := m.call(len(args)); err != nil {
		return nil, err
	}
	return m.Pop(), nil
}

// call performs the Call opcode: the callee and its n arguments are already
// on the stack. Prototype closures push a new frame and re-enter the
// dispatch loop recursively; native closures run in a lightweight frame so
// that Top() reports the argument count and re-entry is safe.
func (m *VM) call(n int) error {
	offset := len(m.stack) - n - 1
	cl, ok := m.stack[offset].(*value.Closure)
	if !ok {
		return m.errorf("cannot call a %s value", value.TypeName(m.stack[offset]))
	}
	if len(m.frames) >= m.maxCallDepth {
		return m.errorf("stack overflow")
	}

	if cl.Proto != nil {
		if n != cl.Proto.NumArgs {
			return m.errorf("function %s takes %d arguments (%d given)", cl.Name(), cl.Proto.NumArgs, n)
		}
		m.frames = append(m.frames, frame{closure: cl, slotOffset: offset})
		return m.run()
	}

	m.frames = append(m.frames, frame{closure: cl, slotOffset: offset})
	res, err := cl.Native.Fn(m)
	if err != nil {
		err = m.wrap(err)
	}
	m.frames = m.frames[:len(m.frames)-1]
	if err != nil {
		return err
	}
	if res == nil {
		res = value.Unit{}
	}
	m.stack = m.stack[:offset]
	m.Push(res)
	return nil
}

// ---- stack primitives (also the native-function protocol) ----

// Push pushes v. It implements value.VM.
func (m *VM) Push(v value.Value) { m.stack = append(m.stack, v) }

// Pop removes and returns the top of the stack. It implements value.VM.
func (m *VM) Pop() value.Value {
	v := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return v
}

// Top reports the number of arguments of the current frame. It implements
// value.VM.
func (m *VM) Top() int {
	return len(m.stack) - m.frames[len(m.frames)-1].slotOffset - 1
}

// Stdout implements value.VM.
func (m *VM) Stdout() io.Writer { return m.stdio.Stdout }

// Stderr implements value.VM.
func (m *VM) Stderr() io.Writer { return m.stdio.Stderr }

// Stdin implements value.VM.
func (m *VM) Stdin() io.Reader { return m.stdio.Stdin }

var _ value.VM = (*VM)(nil)

// ---- open-upvalue list ----

// captureUpvalue returns the open cell forwarding to slot, creating it if
// none exists. The list is kept sorted by descending slot and never holds
// two cells for the same slot, so closures capturing the same local share
// one cell.
func (m *VM) captureUpvalue(slot int) *value.Upvalue {
	i, found := slices.BinarySearchFunc(m.open, slot, func(u *value.Upvalue, s int) int {
		return s - u.Slot()
	})
	if found {
		return m.open[i]
	}
	u := value.NewUpvalue(slot)
	m.open = slices.Insert(m.open, i, u)
	return u
}

// closeUpvalues closes every open cell at slot >= min, deepest first,
// migrating the slot's current value into the cell.
func (m *VM) closeUpvalues(min int) {
	k := 0
	for k < len(m.open) && m.open[k].Slot() >= min {
		u := m.open[k]
		if u.Slot() < len(m.stack) {
			u.Close(m.stack[u.Slot()])
		} else {
			u.Close(value.Unit{})
		}
		k++
	}
	m.open = m.open[k:]
}

// reset restores the machine to a pristine state after an error escaped
// ExecuteModule: remaining open cells are closed with their current values
// so no cell dangles over a popped slot, then all execution state is
// dropped.
func (m *VM) reset() {
	m.closeUpvalues(0)
	m.stack = m.stack[:0]
	m.frames = m.frames[:0]
	m.open = m.open[:0]
}
