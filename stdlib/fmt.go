package stdlib

import (
	"fmt"
	"strings"

	"github.com/mna/focus/value"
)

// formatToString consumes the {format, args} table shape the compiler emits
// for interpolated strings: args is an array of {arg, offset} tables whose
// offsets are byte positions into the original format text. Each rendered
// argument is inserted at its offset, successive inserts shifting by the
// lengths already inserted, which reduces to stitching format segments
// between consecutive offsets.
func formatToString(t *value.Table) (string, error) {
	fv, _ := t.Get(value.String("format"))
	format, ok := fv.(value.String)
	if !ok {
		return "", fmt.Errorf("format descriptor has no format string")
	}
	av, _ := t.Get(value.String("args"))
	args, ok := av.(*value.Array)
	if !ok {
		return "", fmt.Errorf("format descriptor has no args array")
	}

	var sb strings.Builder
	last := 0
	var err error
	args.Each(func(_ int, v value.Value) {
		if err != nil {
			return
		}
		at, ok := v.(*value.Table)
		if !ok {
			err = fmt.Errorf("format argument is not a table")
			return
		}
		arg, _ := at.Get(value.String("arg"))
		ov, _ := at.Get(value.String("offset"))
		off, ok := ov.(value.Int)
		if !ok {
			err = fmt.Errorf("format argument has no offset")
			return
		}
		pos := int(off)
		if pos < last {
			pos = last
		}
		if pos > len(format) {
			pos = len(format)
		}
		sb.WriteString(string(format)[last:pos])
		sb.WriteString(value.Display(arg))
		last = pos
	})
	if err != nil {
		return "", err
	}
	sb.WriteString(string(format)[last:])
	return sb.String(), nil
}

func fmtFormat(vm value.VM) (value.Value, error) {
	if vm.Top() != 1 {
		return nil, argCountError("Fmt.format", 1, vm.Top())
	}
	t, ok := vm.Pop().(*value.Table)
	if !ok {
		return nil, fmt.Errorf("Fmt.format takes a format descriptor table")
	}
	s, err := formatToString(t)
	if err != nil {
		return nil, err
	}
	return value.String(s), nil
}

func fmtModule() *value.Module {
	return nativeModule("Fmt",
		nativeEntry{"format", fmtFormat},
	)
}
