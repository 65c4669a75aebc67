package vm

import (
	"github.com/mna/focus/compiler"
	"github.com/mna/focus/value"
)

// checkEvery is how many dispatched opcodes pass between context
// cancellation checks.
const checkEvery = 1024

// run executes the instructions of the topmost frame until it returns. A
// nested Call opcode re-enters run recursively, so each invocation owns
// exactly one frame. A module's top-level prototype has no trailing Return;
// falling off the end of its code pops the frame while leaving the locals
// in place for the loader to read as exports.
func (m *VM) run() error {
	fi := len(m.frames) - 1
	cl := m.frames[fi].closure
	proto := cl.Proto
	code := proto.Code
	offset := m.frames[fi].slotOffset

	ip := m.frames[fi].ip
	// syncIP keeps the frame's stored ip current for error traces and for
	// re-entrant calls (m.frames may be reallocated by a nested append).
	syncIP := func() { m.frames[fi].ip = ip }

	for {
		if ip >= len(code) {
			m.closeUpvalues(offset)
			m.frames = m.frames[:fi]
			return nil
		}

		m.steps++
		if m.steps%checkEvery == 0 && m.ctx != nil {
			if err := m.ctx.Err(); err != nil {
				syncIP()
				return m.errorf("execution cancelled: %s", err)
			}
		}

		in := code[ip]
		ip++

		switch in.Op {
		case compiler.LoadUnit:
			m.Push(value.Unit{})

		case compiler.LoadTrue:
			m.Push(value.Bool(true))

		case compiler.LoadFalse:
			m.Push(value.Bool(false))

		case compiler.LoadInt:
			m.Push(value.Int(in.Arg))

		case compiler.LoadConst:
			m.Push(constValue(proto.Constants[in.Arg]))

		case compiler.GetLocal:
			m.Push(m.stack[offset+int(in.Arg)])

		case compiler.SetLocal:
			// the assigned value stays on the stack: assignment is
			// expression-shaped
			m.stack[offset+int(in.Arg)] = m.stack[len(m.stack)-1]

		case compiler.GetUpvalue:
			u := cl.Upvalues[in.Arg]
			if u.IsOpen() {
				m.Push(m.stack[u.Slot()])
			} else {
				m.Push(u.Get())
			}

		case compiler.SetUpvalue:
			u := cl.Upvalues[in.Arg]
			v := m.stack[len(m.stack)-1]
			if u.IsOpen() {
				m.stack[u.Slot()] = v
			} else {
				u.Set(v)
			}

		case compiler.GetModule:
			mod := m.loader.ModuleAt(int(in.Arg))
			if mod == nil {
				syncIP()
				return m.errorf("no module at index %d", in.Arg)
			}
			m.Push(mod)

		case compiler.GetTable:
			k := m.Pop()
			c := m.Pop()
			syncIP()
			v, err := m.getIndex(c, k)
			if err != nil {
				return err
			}
			m.Push(v)

		case compiler.SetTable:
			v := m.Pop()
			k := m.Pop()
			c := m.Pop()
			syncIP()
			if err := m.setIndex(c, k, v); err != nil {
				return err
			}

		case compiler.CreateList:
			n := int(in.Arg)
			elems := make([]value.Value, n)
			copy(elems, m.stack[len(m.stack)-n:])
			m.stack = m.stack[:len(m.stack)-n]
			m.Push(value.NewArrayOf(elems))
			m.stats.Arrays++

		case compiler.CreateTable:
			n := int(in.Arg)
			t := value.NewTable(n)
			base := len(m.stack) - 2*n
			for i := 0; i < n; i++ {
				t.Set(m.stack[base+2*i], m.stack[base+2*i+1])
			}
			m.stack = m.stack[:base]
			m.Push(t)
			m.stats.Tables++

		case compiler.Closure:
			child := proto.Prototypes[in.Arg]
			ups := make([]*value.Upvalue, len(child.Upvalues))
			for i, d := range child.Upvalues {
				if d.IsLocal {
					ups[i] = m.captureUpvalue(offset + d.Index)
				} else {
					ups[i] = cl.Upvalues[d.Index]
				}
			}
			m.Push(&value.Closure{Proto: child, Upvalues: ups})
			m.stats.Closures++

		case compiler.Add, compiler.Subtract, compiler.Multiply, compiler.Divide,
			compiler.IDivide, compiler.Modulus, compiler.Concat:
			y := m.Pop()
			x := m.Pop()
			syncIP()
			v, err := m.binary(in.Op, x, y)
			if err != nil {
				return err
			}
			m.Push(v)

		case compiler.Negate:
			syncIP()
			switch x := m.stack[len(m.stack)-1].(type) {
			case value.Int:
				m.stack[len(m.stack)-1] = -x
			case value.Float:
				m.stack[len(m.stack)-1] = -x
			default:
				return m.errorf("cannot negate a %s value", value.TypeName(x))
			}

		case compiler.Not:
			m.stack[len(m.stack)-1] = value.Bool(!value.Truthy(m.stack[len(m.stack)-1]))

		case compiler.CmpEq:
			y := m.Pop()
			x := m.Pop()
			m.Push(value.Bool(equal(x, y)))

		case compiler.CmpLess, compiler.CmpGreater, compiler.CmpLEq, compiler.CmpGEq:
			y := m.Pop()
			x := m.Pop()
			syncIP()
			v, err := m.compare(in.Op, x, y)
			if err != nil {
				return err
			}
			m.Push(v)

		case compiler.CmpAnd:
			y := m.Pop()
			x := m.Pop()
			m.Push(value.Bool(value.Truthy(x) && value.Truthy(y)))

		case compiler.CmpOr:
			y := m.Pop()
			x := m.Pop()
			m.Push(value.Bool(value.Truthy(x) || value.Truthy(y)))

		case compiler.Jump:
			d := jumpDisp(in, code[ip])
			ip += 1 + d // skip the ExtraArg slot, then the displacement

		case compiler.JumpIfFalse:
			d := jumpDisp(in, code[ip])
			ip++
			if !value.Truthy(m.Pop()) {
				ip += d
			}

		case compiler.Call:
			syncIP()
			if err := m.call(int(in.Arg)); err != nil {
				return err
			}

		case compiler.CloseUpvalue:
			m.closeUpvalues(offset + int(in.Arg))

		case compiler.Pop:
			m.stack = m.stack[:len(m.stack)-1]

		case compiler.Return:
			result := m.Pop()
			m.closeUpvalues(offset)
			m.frames = m.frames[:fi]
			m.stack = m.stack[:offset]
			m.Push(result)
			return nil

		default:
			syncIP()
			return m.errorf("illegal opcode %s", in.Op)
		}
	}
}

// jumpDisp combines a jump's low byte with its ExtraArg high byte into a
// signed opcode-count displacement.
func jumpDisp(in, extra compiler.Instr) int {
	return int(int16(uint16(extra.Arg)<<8 | uint16(in.Arg)))
}

// constValue converts a constant-pool entry to its runtime representation.
func constValue(c compiler.Constant) value.Value {
	switch c := c.(type) {
	case int64:
		return value.Int(c)
	case float64:
		return value.Float(c)
	case string:
		return value.String(c)
	case rune:
		return value.Char(c)
	default:
		// unreachable: the compiler only interns the above kinds
		return value.Unit{}
	}
}
