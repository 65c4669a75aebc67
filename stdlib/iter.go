package stdlib

import (
	"fmt"

	"github.com/mna/focus/value"
)

// iterFromFn wraps a Go step function as an iterator closure: each call
// yields the next element, unit signals exhaustion.
func iterFromFn(step func() value.Value) *value.Closure {
	return value.NewNativeClosure("_iter", func(value.VM) (value.Value, error) {
		return step(), nil
	})
}

// newIterator builds an iterator closure over v: arrays yield their
// elements, strings their chars; a closure is taken to already be an
// iterator and returned as-is.
func newIterator(v value.Value) (*value.Closure, error) {
	switch v := v.(type) {
	case *value.Closure:
		return v, nil
	case *value.Array:
		i := 0
		return iterFromFn(func() value.Value {
			if i >= v.Len() {
				return value.Unit{}
			}
			el, _ := v.Get(i)
			i++
			return el
		}), nil
	case value.String:
		runes := []rune(string(v))
		i := 0
		return iterFromFn(func() value.Value {
			if i >= len(runes) {
				return value.Unit{}
			}
			c := value.Char(runes[i])
			i++
			return c
		}), nil
	default:
		return nil, fmt.Errorf("cannot iterate a %s value", value.TypeName(v))
	}
}

func iterNew(vm value.VM) (value.Value, error) {
	if vm.Top() != 1 {
		return nil, argCountError("Iter.new", 1, vm.Top())
	}
	return newIterator(vm.Pop())
}

// each drives fn over every element of iterable (an array, string or
// iterator closure), calling it through the machine so closures observe
// their upvalues. Iteration through a closure stops at the first unit.
func each(vm value.VM, iterable value.Value, fn func(v value.Value) error) error {
	if arr, ok := iterable.(*value.Array); ok {
		var err error
		arr.Each(func(_ int, v value.Value) {
			if err == nil {
				err = fn(v)
			}
		})
		return err
	}
	iter, err := newIterator(iterable)
	if err != nil {
		return err
	}
	for {
		v, err := vm.Call(iter, []value.Value{value.Unit{}})
		if err != nil {
			return err
		}
		if _, done := v.(value.Unit); done {
			return nil
		}
		if err := fn(v); err != nil {
			return err
		}
	}
}

func iterMap(vm value.VM) (value.Value, error) {
	if vm.Top() != 2 {
		return nil, argCountError("Iter.map", 2, vm.Top())
	}
	fn, ok := vm.Pop().(*value.Closure)
	if !ok {
		return nil, fmt.Errorf("Iter.map takes a function")
	}
	iterable := vm.Pop()

	results := value.NewArray(0)
	err := each(vm, iterable, func(v value.Value) error {
		res, err := vm.Call(fn, []value.Value{v})
		if err != nil {
			return err
		}
		results.Push(res)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// iterFilter keeps the function's result for every element where it is not
// unit, so a predicate can both select and transform in one pass.
func iterFilter(vm value.VM) (value.Value, error) {
	if vm.Top() != 2 {
		return nil, argCountError("Iter.filter", 2, vm.Top())
	}
	fn, ok := vm.Pop().(*value.Closure)
	if !ok {
		return nil, fmt.Errorf("Iter.filter takes a function")
	}
	iterable := vm.Pop()

	results := value.NewArray(0)
	err := each(vm, iterable, func(v value.Value) error {
		res, err := vm.Call(fn, []value.Value{v})
		if err != nil {
			return err
		}
		if _, skip := res.(value.Unit); !skip {
			results.Push(res)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func iterForEach(vm value.VM) (value.Value, error) {
	if vm.Top() != 2 {
		return nil, argCountError("Iter.for_each", 2, vm.Top())
	}
	fn, ok := vm.Pop().(*value.Closure)
	if !ok {
		return nil, fmt.Errorf("Iter.for_each takes a function")
	}
	iterable := vm.Pop()

	err := each(vm, iterable, func(v value.Value) error {
		_, err := vm.Call(fn, []value.Value{v})
		return err
	})
	if err != nil {
		return nil, err
	}
	return value.Unit{}, nil
}

func iterModule() *value.Module {
	return nativeModule("Iter",
		nativeEntry{"new", iterNew},
		nativeEntry{"map", iterMap},
		nativeEntry{"filter", iterFilter},
		nativeEntry{"for_each", iterForEach},
	)
}
