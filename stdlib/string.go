package stdlib

import (
	"fmt"

	"github.com/mna/focus/value"
)

// stringFromFormat renders a format descriptor table to a string without
// printing it; it is the same primitive Io.printf prints.
func stringFromFormat(vm value.VM) (value.Value, error) {
	if vm.Top() != 1 {
		return nil, argCountError("String.from_format", 1, vm.Top())
	}
	t, ok := vm.Pop().(*value.Table)
	if !ok {
		return nil, fmt.Errorf("String.from_format takes a format descriptor table")
	}
	s, err := formatToString(t)
	if err != nil {
		return nil, err
	}
	return value.String(s), nil
}

func stringModule() *value.Module {
	return nativeModule("String",
		nativeEntry{"from_format", stringFromFormat},
	)
}
