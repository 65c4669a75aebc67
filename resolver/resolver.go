// Package resolver implements per-function scope tracking: an ordered list
// of locals, a current nesting depth, and upvalue-chain resolution across
// nested functions. It holds no reference to the AST and does no tree
// walking of its own; the compiler drives it inline, one ScopeResolver per
// function under compilation, while it emits bytecode in a single pass.
package resolver

type local struct {
	name     string
	depth    int
	slot     int
	captured bool
}

// UpvalueDesc is one entry of a prototype's upvalue descriptor list: either
// a reference to a slot in the immediately enclosing function's frame
// (IsLocal), or a reference to one of that function's own upvalues
// (!IsLocal, chained transitively up to the function that owns the slot).
type UpvalueDesc struct {
	Index   int
	IsLocal bool
}

// ScopeResolver tracks one function's locals and the upvalues it captures
// from enclosing functions. Functions form a tree via Parent, matching the
// static nesting of fn literals/declarations in the source.
type ScopeResolver struct {
	Parent *ScopeResolver

	locals []local
	depth  int

	upvalues     []UpvalueDesc
	upvalueNames map[string]int
}

// New creates a ScopeResolver for a function nested directly inside parent
// (nil for the top-level module function).
func New(parent *ScopeResolver) *ScopeResolver {
	return &ScopeResolver{Parent: parent, upvalueNames: make(map[string]int)}
}

// BeginScope enters a new lexical block within the current function.
func (r *ScopeResolver) BeginScope() { r.depth++ }

// EndScope leaves the current lexical block, discarding every local
// declared at this depth or deeper. It returns the stack slots of any
// discarded locals that were captured by a nested closure, deepest slot
// first (latest declaration first): the caller (the compiler) emits a CloseUpvalue for
// each, migrating its value into the shared cell before the slot is
// reused.
func (r *ScopeResolver) EndScope() []int {
	var closed []int
	for len(r.locals) > 0 && r.locals[len(r.locals)-1].depth >= r.depth {
		last := r.locals[len(r.locals)-1]
		if last.captured {
			closed = append(closed, last.slot)
		}
		r.locals = r.locals[:len(r.locals)-1]
	}
	r.depth--
	return closed
}

// Depth reports the current lexical block depth (0 at function entry).
func (r *ScopeResolver) Depth() int { return r.depth }

// AddLocal declares name as a new local at the current depth, occupying the
// next stack slot. ok is false once 256 locals are live, matching the
// one-byte local-index encoding.
func (r *ScopeResolver) AddLocal(name string) (slot int, ok bool) {
	if len(r.locals) >= 256 {
		return 0, false
	}
	slot = len(r.locals)
	r.locals = append(r.locals, local{name: name, depth: r.depth, slot: slot})
	return slot, true
}

// NumLocals reports how many locals are currently live (== the next slot
// that AddLocal would assign).
func (r *ScopeResolver) NumLocals() int { return len(r.locals) }

// ResolveLocal finds name among this function's currently live locals,
// latest declaration wins (so shadowing in a nested block works).
func (r *ScopeResolver) ResolveLocal(name string) (slot int, ok bool) {
	for i := len(r.locals) - 1; i >= 0; i-- {
		if r.locals[i].name == name {
			return r.locals[i].slot, true
		}
	}
	return 0, false
}

func (r *ScopeResolver) markCaptured(slot int) {
	for i := range r.locals {
		if r.locals[i].slot == slot {
			r.locals[i].captured = true
			return
		}
	}
}

// ResolveUpvalue looks for name in enclosing functions. If found as a local
// of the immediate parent, that local is promoted to a cell (marked
// captured) and a new {index, IsLocal: true} descriptor is appended.
// Otherwise the search continues into the parent's own upvalues, chaining
// {index, IsLocal: false} descriptors so the VM can walk from any nested
// closure back to the function that owns the slot. Repeated requests for
// the same name return the same (deduplicated) descriptor index.
func (r *ScopeResolver) ResolveUpvalue(name string) (index int, ok bool) {
	if r.Parent == nil {
		return 0, false
	}
	if idx, ok := r.upvalueNames[name]; ok {
		return idx, true
	}
	if slot, ok := r.Parent.ResolveLocal(name); ok {
		r.Parent.markCaptured(slot)
		return r.addUpvalue(name, slot, true), true
	}
	if idx, ok := r.Parent.ResolveUpvalue(name); ok {
		return r.addUpvalue(name, idx, false), true
	}
	return 0, false
}

func (r *ScopeResolver) addUpvalue(name string, index int, isLocal bool) int {
	idx := len(r.upvalues)
	r.upvalues = append(r.upvalues, UpvalueDesc{Index: index, IsLocal: isLocal})
	r.upvalueNames[name] = idx
	return idx
}

// Upvalues returns the upvalue descriptor list built so far, in the order
// they were first captured: the same order the compiler writes them into
// the Prototype and the order a Closure opcode must walk.
func (r *ScopeResolver) Upvalues() []UpvalueDesc { return r.upvalues }
