package stdlib

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mna/focus/value"
)

func parseToInt(vm value.VM) (value.Value, error) {
	if vm.Top() != 1 {
		return nil, argCountError("Parse.to_int", 1, vm.Top())
	}
	switch v := vm.Pop().(type) {
	case value.Bool:
		if v {
			return value.Int(1), nil
		}
		return value.Int(0), nil
	case value.Int:
		return v, nil
	case value.Float:
		return value.Int(v), nil
	case value.String:
		n, err := strconv.ParseInt(strings.TrimSpace(string(v)), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot convert %q to an integer", string(v))
		}
		return value.Int(n), nil
	default:
		return nil, fmt.Errorf("cannot convert a %s value to an integer", value.TypeName(v))
	}
}

func parseToFloat(vm value.VM) (value.Value, error) {
	if vm.Top() != 1 {
		return nil, argCountError("Parse.to_float", 1, vm.Top())
	}
	switch v := vm.Pop().(type) {
	case value.Int:
		return value.Float(v), nil
	case value.Float:
		return v, nil
	case value.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
		if err != nil {
			return nil, fmt.Errorf("cannot convert %q to a float", string(v))
		}
		return value.Float(f), nil
	default:
		return nil, fmt.Errorf("cannot convert a %s value to a float", value.TypeName(v))
	}
}

func parseToString(vm value.VM) (value.Value, error) {
	if vm.Top() != 1 {
		return nil, argCountError("Parse.to_string", 1, vm.Top())
	}
	return value.String(value.Display(vm.Pop())), nil
}

func parseModule() *value.Module {
	return nativeModule("Parse",
		nativeEntry{"to_int", parseToInt},
		nativeEntry{"to_string", parseToString},
		nativeEntry{"to_float", parseToFloat},
	)
}
