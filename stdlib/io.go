package stdlib

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mna/focus/value"
)

const fileTag = "file"

// ioPrint writes its arguments, concatenated, to standard output followed
// by a newline. Arguments are popped in reverse so the output preserves
// call order.
func ioPrint(vm value.VM) (value.Value, error) {
	parts := make([]string, vm.Top())
	for i := len(parts) - 1; i >= 0; i-- {
		parts[i] = value.Display(vm.Pop())
	}
	fmt.Fprintln(vm.Stdout(), strings.Join(parts, ""))
	return value.Unit{}, nil
}

// ioPrintf takes one format descriptor table (the shape interpolated
// strings compile to) and prints its rendering.
func ioPrintf(vm value.VM) (value.Value, error) {
	if vm.Top() != 1 {
		return nil, argCountError("Io.printf", 1, vm.Top())
	}
	t, ok := vm.Pop().(*value.Table)
	if !ok {
		return nil, fmt.Errorf("Io.printf takes a format descriptor table")
	}
	s, err := formatToString(t)
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(vm.Stdout(), s)
	return value.Unit{}, nil
}

// ioOpenFile opens path with a mode string of letters: a append, c create,
// t truncate, w write, r read. The file is returned as opaque user-data.
func ioOpenFile(vm value.VM) (value.Value, error) {
	if vm.Top() != 2 {
		return nil, argCountError("Io.open_file", 2, vm.Top())
	}
	mode, ok := vm.Pop().(value.String)
	if !ok {
		return nil, fmt.Errorf("Io.open_file mode must be a string")
	}
	path, ok := vm.Pop().(value.String)
	if !ok {
		return nil, fmt.Errorf("Io.open_file path must be a string")
	}

	var flag int
	if strings.ContainsRune(string(mode), 'a') {
		flag |= os.O_APPEND
	}
	if strings.ContainsRune(string(mode), 'c') {
		flag |= os.O_CREATE
	}
	if strings.ContainsRune(string(mode), 't') {
		flag |= os.O_TRUNC
	}
	switch r, w := strings.ContainsRune(string(mode), 'r'), strings.ContainsRune(string(mode), 'w'); {
	case r && w:
		flag |= os.O_RDWR
	case w:
		flag |= os.O_WRONLY
	default:
		flag |= os.O_RDONLY
	}

	f, err := os.OpenFile(string(path), flag, 0o644)
	if err != nil {
		return nil, fmt.Errorf("Io.open_file: %w", err)
	}
	return &value.UserData{Tag: fileTag, Data: f}, nil
}

// ioReadFile reads the remaining content of an open file handle as a
// string.
func ioReadFile(vm value.VM) (value.Value, error) {
	if vm.Top() != 1 {
		return nil, argCountError("Io.read_file", 1, vm.Top())
	}
	ud, ok := vm.Pop().(*value.UserData)
	if !ok || ud.Tag != fileTag {
		return nil, fmt.Errorf("Io.read_file takes a file handle")
	}
	f := ud.Data.(*os.File)
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("Io.read_file: %w", err)
	}
	return value.String(b), nil
}

func ioModule() *value.Module {
	return nativeModule("Io",
		nativeEntry{"print", ioPrint},
		nativeEntry{"printf", ioPrintf},
		nativeEntry{"open_file", ioOpenFile},
		nativeEntry{"read_file", ioReadFile},
	)
}
