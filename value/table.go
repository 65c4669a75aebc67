package value

import (
	"fmt"

	"github.com/dolthub/swiss"
)

// Table is a shared, mutable key→value mapping. It is always handled by
// pointer, so two Table values compare equal (via the Value interface's
// "==") exactly when they are the same table: identity equality, as this
// language requires for shared containers.
type Table struct {
	m *swiss.Map[Value, Value]
}

// NewTable returns an empty table with initial capacity for at least size
// entries.
func NewTable(size int) *Table {
	return &Table{m: swiss.NewMap[Value, Value](uint32(size))}
}

func (t *Table) Kind() Kind     { return KindTable }
func (t *Table) String() string { return fmt.Sprintf("table(%p)", t) }

// Get returns the value for k, or (Unit{}, false) if absent: missing keys
// read as unit rather than erroring, per this language's table semantics.
func (t *Table) Get(k Value) (Value, bool) {
	v, ok := t.m.Get(k)
	if !ok {
		return Unit{}, false
	}
	return v, true
}

// Set inserts or overwrites the value at k.
func (t *Table) Set(k, v Value) { t.m.Put(k, v) }

// Len reports the number of entries.
func (t *Table) Len() int { return t.m.Count() }

// Each calls fn for every entry; iteration order is unspecified.
func (t *Table) Each(fn func(k, v Value)) {
	t.m.Iter(func(k, v Value) bool {
		fn(k, v)
		return false
	})
}
