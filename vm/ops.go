package vm

import (
	"math"

	"github.com/mna/focus/compiler"
	"github.com/mna/focus/value"
)

// binary implements the arithmetic and concatenation opcodes. Integer with
// integer stays integer; any float operand promotes the operation to float;
// integer division on floats truncates back to integer. Integer division or
// modulus by zero is an error, float division follows IEEE 754.
func (m *VM) binary(op compiler.Opcode, x, y value.Value) (value.Value, error) {
	if op == compiler.Concat {
		return m.concat(x, y)
	}

	switch x := x.(type) {
	case value.Int:
		switch y := y.(type) {
		case value.Int:
			return m.intOp(op, int64(x), int64(y))
		case value.Float:
			return m.floatOp(op, float64(x), float64(y))
		}
	case value.Float:
		switch y := y.(type) {
		case value.Int:
			return m.floatOp(op, float64(x), float64(y))
		case value.Float:
			return m.floatOp(op, float64(x), float64(y))
		}
	}
	return nil, m.errorf("cannot %s %s and %s values", opVerb(op), value.TypeName(x), value.TypeName(y))
}

func opVerb(op compiler.Opcode) string {
	switch op {
	case compiler.Add:
		return "add"
	case compiler.Subtract:
		return "subtract"
	case compiler.Multiply:
		return "multiply"
	case compiler.Divide, compiler.IDivide:
		return "divide"
	case compiler.Modulus:
		return "take the modulus of"
	case compiler.Concat:
		return "concatenate"
	default:
		return "compare"
	}
}

func (m *VM) intOp(op compiler.Opcode, x, y int64) (value.Value, error) {
	switch op {
	case compiler.Add:
		return value.Int(x + y), nil
	case compiler.Subtract:
		return value.Int(x - y), nil
	case compiler.Multiply:
		return value.Int(x * y), nil
	case compiler.Divide, compiler.IDivide:
		if y == 0 {
			return nil, m.errorf("integer division by zero")
		}
		return value.Int(x / y), nil
	case compiler.Modulus:
		if y == 0 {
			return nil, m.errorf("integer modulus by zero")
		}
		return value.Int(x % y), nil
	}
	return nil, m.errorf("illegal arithmetic opcode %s", op)
}

func (m *VM) floatOp(op compiler.Opcode, x, y float64) (value.Value, error) {
	switch op {
	case compiler.Add:
		return value.Float(x + y), nil
	case compiler.Subtract:
		return value.Float(x - y), nil
	case compiler.Multiply:
		return value.Float(x * y), nil
	case compiler.Divide:
		// IEEE: division by zero yields an infinity or NaN
		return value.Float(x / y), nil
	case compiler.IDivide:
		// truncates to integer, so the zero divisor cannot hide behind an
		// infinity
		if y == 0 {
			return nil, m.errorf("integer division by zero")
		}
		return value.Int(int64(math.Trunc(x / y))), nil
	case compiler.Modulus:
		return value.Float(math.Mod(x, y)), nil
	}
	return nil, m.errorf("illegal arithmetic opcode %s", op)
}

func (m *VM) concat(x, y value.Value) (value.Value, error) {
	xs, xok := asText(x)
	ys, yok := asText(y)
	if xok && yok {
		return value.String(xs + ys), nil
	}
	if xa, ok := x.(*value.Array); ok {
		if ya, ok := y.(*value.Array); ok {
			res := value.NewArray(xa.Len() + ya.Len())
			xa.Each(func(_ int, v value.Value) { res.Push(v) })
			ya.Each(func(_ int, v value.Value) { res.Push(v) })
			m.stats.Arrays++
			return res, nil
		}
	}
	return nil, m.errorf("cannot concatenate %s and %s values", value.TypeName(x), value.TypeName(y))
}

func asText(v value.Value) (string, bool) {
	switch v := v.(type) {
	case value.String:
		return string(v), true
	case value.Char:
		return string(rune(v)), true
	}
	return "", false
}

// equal implements CmpEq: structural for scalars and strings (with numeric
// promotion across int and float), identity for shared containers. NaN
// compares unequal to everything including itself.
func equal(x, y value.Value) bool {
	switch a := x.(type) {
	case value.Int:
		if b, ok := y.(value.Float); ok {
			return float64(a) == float64(b)
		}
	case value.Float:
		if b, ok := y.(value.Int); ok {
			return float64(a) == float64(b)
		}
	}
	return x == y
}

// compare implements the ordering opcodes over numbers (promoting across
// int and float), strings and chars.
func (m *VM) compare(op compiler.Opcode, x, y value.Value) (value.Value, error) {
	if xf, ok := asNumber(x); ok {
		if yf, ok := asNumber(y); ok {
			return value.Bool(ordered(op, xf, yf)), nil
		}
	}
	if xs, ok := asText(x); ok {
		if ys, ok := asText(y); ok {
			switch {
			case xs < ys:
				return value.Bool(op == compiler.CmpLess || op == compiler.CmpLEq), nil
			case xs > ys:
				return value.Bool(op == compiler.CmpGreater || op == compiler.CmpGEq), nil
			default:
				return value.Bool(op == compiler.CmpLEq || op == compiler.CmpGEq), nil
			}
		}
	}
	return nil, m.errorf("cannot compare %s and %s values", value.TypeName(x), value.TypeName(y))
}

func asNumber(v value.Value) (float64, bool) {
	switch v := v.(type) {
	case value.Int:
		return float64(v), true
	case value.Float:
		return float64(v), true
	}
	return 0, false
}

func ordered(op compiler.Opcode, x, y float64) bool {
	switch op {
	case compiler.CmpLess:
		return x < y
	case compiler.CmpGreater:
		return x > y
	case compiler.CmpLEq:
		return x <= y
	case compiler.CmpGEq:
		return x >= y
	}
	return false
}

// getIndex implements GetTable: tables yield unit for missing keys, arrays
// require an in-range integer index, and modules select the export at the
// integer position (materializing the module on first access).
func (m *VM) getIndex(container, key value.Value) (value.Value, error) {
	switch c := container.(type) {
	case *value.Table:
		v, _ := c.Get(key)
		return v, nil
	case *value.Array:
		i, ok := key.(value.Int)
		if !ok {
			return nil, m.errorf("cannot index an array with a %s value", value.TypeName(key))
		}
		v, ok := c.Get(int(i))
		if !ok {
			return nil, m.errorf("array index %d out of range (len %d)", i, c.Len())
		}
		return v, nil
	case *value.Module:
		i, ok := key.(value.Int)
		if !ok {
			return nil, m.errorf("cannot index module %s with a %s value", c.Ident, value.TypeName(key))
		}
		if err := m.materialize(c); err != nil {
			return nil, err
		}
		if int(i) < 0 || int(i) >= len(c.Values) {
			return nil, m.errorf("module %s has no export at index %d", c.Ident, i)
		}
		return c.Values[i], nil
	default:
		return nil, m.errorf("cannot index a %s value", value.TypeName(container))
	}
}

// setIndex implements SetTable: tables insert, arrays grow with unit
// padding to reach the index, anything else is an error.
func (m *VM) setIndex(container, key, v value.Value) error {
	switch c := container.(type) {
	case *value.Table:
		c.Set(key, v)
		return nil
	case *value.Array:
		i, ok := key.(value.Int)
		if !ok {
			return m.errorf("cannot index an array with a %s value", value.TypeName(key))
		}
		if !c.Set(int(i), v) {
			return m.errorf("array index %d out of range", i)
		}
		return nil
	default:
		return m.errorf("cannot assign into a %s value", value.TypeName(container))
	}
}
