package compiler

import "github.com/mna/focus/resolver"

// Limits imposed by the one-byte instruction argument encoding.
const (
	MaxConstants  = 256
	MaxLocals     = 256
	MaxArgs       = 255
	MaxInitLen    = 255
	MaxPrototypes = 256
)

// A Constant is one entry of a prototype's constant pool. Only literals that
// do not fit a dedicated load opcode are interned: integers outside 0..=255
// (as int64), all floats (float64), all strings (string) and all chars
// (rune). The concrete Go type is the discriminant; the VM converts to its
// runtime value representation when a LoadConst executes.
type Constant any

// A Prototype is the code of a compiled function, immutable once the
// compiler returns it. The top-level code of a module is also represented by
// a Prototype (with NumArgs 0 and no trailing Return: its locals are the
// module's exports and must survive execution).
type Prototype struct {
	Name      string
	Anonymous bool
	NumArgs   int

	Code      []Instr
	Lines     []int // Lines[i] is the source line of Code[i]
	Constants []Constant

	Upvalues   []resolver.UpvalueDesc
	Prototypes []*Prototype // nested function prototypes, Closure<i> operands

	// Locals is the debug name list of the function's frame slots, in slot
	// order. For a module's top-level prototype this doubles as the export
	// list: Locals[i] names the value left at stack slot i.
	Locals []string
}

// constant interns c into the pool, deduplicating by structural equality
// (NaN floats never compare equal and therefore never dedupe, which is
// harmless). ok is false when the pool is full.
func (p *Prototype) constant(c Constant) (idx int, ok bool) {
	for i, have := range p.Constants {
		if have == c {
			return i, true
		}
	}
	if len(p.Constants) >= MaxConstants {
		return 0, false
	}
	p.Constants = append(p.Constants, c)
	return len(p.Constants) - 1, true
}
