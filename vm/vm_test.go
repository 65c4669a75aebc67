package vm_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mna/focus/loader"
	"github.com/mna/focus/stdlib"
	"github.com/mna/focus/value"
	"github.com/mna/focus/vm"
	"github.com/mna/mainer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runSource compiles src as a module and executes its main export,
// returning the result and anything printed to stdout.
func runSource(t *testing.T, src string) (value.Value, string, error) {
	t.Helper()
	ld := loader.New(t.TempDir())
	ld.AddModules(stdlib.Modules()...)

	idx, err := ld.LoadModuleFromSource("main", []byte(src))
	require.NoError(t, err, "compile")

	var out bytes.Buffer
	machine := vm.New(ld, mainer.Stdio{Stdout: &out})
	res, err := machine.ExecuteModule(context.Background(), idx, "main")
	return res, out.String(), err
}

func mustRun(t *testing.T, src string) value.Value {
	t.Helper()
	res, _, err := runSource(t, src)
	require.NoError(t, err)
	return res
}

func TestArithmeticBinding(t *testing.T) {
	res := mustRun(t, "let a = 1 + 2\nlet main () = a")
	assert.Equal(t, value.Int(3), res)
}

// TestCounterClosure verifies upvalue capture, shared mutation across calls
// and closed-upvalue semantics after the creating function returns.
func TestCounterClosure(t *testing.T) {
	res := mustRun(t, `let make () =
    let n = 0
    fn -> n = n + 1
let main () =
    let c = make ()
    c ()
    c ()
    c ()
`)
	assert.Equal(t, value.Int(3), res)
}

// TestSharedUpvalueCell verifies that two closures capturing the same local
// observe each other's mutations through a single shared cell, before and
// after the owning frame returns.
func TestSharedUpvalueCell(t *testing.T) {
	res := mustRun(t, `let pair () =
    let n = 0
    let inc = fn -> n = n + 1
    let get = fn -> n
    [inc, get]
let main () =
    let p = pair ()
    let inc = p[0]
    let get = p[1]
    inc ()
    inc ()
    get ()
`)
	assert.Equal(t, value.Int(2), res)
}

func TestTableArrayMutation(t *testing.T) {
	res := mustRun(t, `let main () =
    let t = {a: [1, 2, 3]}
    t.a[1] = 9
    t.a[1]
`)
	assert.Equal(t, value.Int(9), res)
}

func TestPrintfInterpolation(t *testing.T) {
	res, out, err := runSource(t, `let main () = Io.printf "x={(1 + 1)}!"`)
	require.NoError(t, err)
	assert.Equal(t, value.Unit{}, res)
	assert.Equal(t, "x=2!\n", out)
}

func TestIterMap(t *testing.T) {
	res := mustRun(t, "let main () =\n    Iter.map [1, 2, 3] (fn x -> x * x)")
	require.IsType(t, (*value.Array)(nil), res)
	assert.Equal(t, "[1, 4, 9]", value.Display(res))
}

func TestArithmeticTypeError(t *testing.T) {
	_, _, err := runSource(t, `let main () = 1 + "a"`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot add int and string values")

	var rerr *vm.Error
	require.ErrorAs(t, err, &rerr)
	require.NotEmpty(t, rerr.Trace)
	assert.Equal(t, "main", rerr.Trace[0].Name)
	assert.Equal(t, 1, rerr.Trace[0].Line)
}

// TestMachineUsableAfterError verifies the machine is reset to a
// well-formed state when an error escapes: a later execution on the same
// machine runs normally.
func TestMachineUsableAfterError(t *testing.T) {
	ld := loader.New(t.TempDir())
	ld.AddModules(stdlib.Modules()...)

	bad, err := ld.LoadModuleFromSource("bad", []byte(`let main () = 1 + "a"`))
	require.NoError(t, err)
	good, err := ld.LoadModuleFromSource("good", []byte(`let make () =
    let n = 40
    fn -> n = n + 1
let main () =
    let c = make ()
    c ()
    c ()
`))
	require.NoError(t, err)

	machine := vm.New(ld, mainer.Stdio{})
	_, err = machine.ExecuteModule(context.Background(), bad, "main")
	require.Error(t, err)

	res, err := machine.ExecuteModule(context.Background(), good, "main")
	require.NoError(t, err)
	assert.Equal(t, value.Int(42), res)
}

func TestConditionals(t *testing.T) {
	cases := []struct {
		src  string
		want value.Value
	}{
		{"let main () = if true then 1 else 2", value.Int(1)},
		{"let main () = if false then 1 else 2", value.Int(2)},
		{"let main () = if false then 1", value.Unit{}},
		// truthiness: unit, false and integer 0 are falsy
		{"let main () = if 0 then 1 else 2", value.Int(2)},
		{"let main () = if () then 1 else 2", value.Int(2)},
		// everything else is truthy, including empty strings and float zero
		{"let main () = if \"\" then 1 else 2", value.Int(1)},
		{"let main () = if 0.0 then 1 else 2", value.Int(1)},
		{"let main () = if [] then 1 else 2", value.Int(1)},
		{"let main () = not (not 5)", value.Bool(true)},
		{"let main () = not ()", value.Bool(true)},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, mustRun(t, c.src), c.src)
	}
}

func TestArithmetic(t *testing.T) {
	cases := []struct {
		src  string
		want value.Value
	}{
		{"let main () = 7 - 2 * 3", value.Int(1)},
		{"let main () = (7 - 2) * 3", value.Int(15)},
		{"let main () = -3 + 1", value.Int(-2)},
		{"let main () = 7 / 2", value.Int(3)},
		{"let main () = 7 % 3", value.Int(1)},
		// a float operand promotes the operation
		{"let main () = 1 + 2.5", value.Float(3.5)},
		{"let main () = 2.5 + 1", value.Float(3.5)},
		// integer division on floats truncates back to integer
		{"let main () = 7.5 // 2.0", value.Int(3)},
		{"let main () = 1.0 / 0.0", value.Float(mathInf())},
		{"let main () = \"ab\" ++ \"cd\"", value.String("abcd")},
		{"let main () = 'a' ++ \"b\"", value.String("ab")},
		{"let main () = 1 < 2", value.Bool(true)},
		{"let main () = 2 <= 1", value.Bool(false)},
		{"let main () = \"a\" < \"b\"", value.Bool(true)},
		{"let main () = 1 == 1.0", value.Bool(true)},
		{"let main () = 1 != 2", value.Bool(true)},
		{"let main () = 1 < 2 and 3 < 4", value.Bool(true)},
		{"let main () = 0 or 3", value.Bool(true)},
		{"let main () = 0 and 3", value.Bool(false)},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, mustRun(t, c.src), c.src)
	}
}

func mathInf() float64 { return 1.0 / zero }

var zero = 0.0

func TestDivisionByZero(t *testing.T) {
	_, _, err := runSource(t, "let main () = 1 / 0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "integer division by zero")

	_, _, err = runSource(t, "let main () = 1 % 0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "integer modulus by zero")
}

func TestNegateNonNumeric(t *testing.T) {
	_, _, err := runSource(t, `let main () = -"a"`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot negate a string value")
}

func TestCallNonCallable(t *testing.T) {
	_, _, err := runSource(t, "let main () =\n    let x = 3\n    x ()")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot call a int value")
}

func TestWrongArgumentCount(t *testing.T) {
	_, _, err := runSource(t, "let f a b = a\nlet main () = f 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "takes 2 arguments (1 given)")
}

func TestArrayIndexOutOfRange(t *testing.T) {
	_, _, err := runSource(t, "let main () = [1, 2][5]")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestTableMissingKeyIsUnit(t *testing.T) {
	res := mustRun(t, "let main () = {a: 1}.b")
	assert.Equal(t, value.Unit{}, res)
}

func TestRecursion(t *testing.T) {
	res := mustRun(t, `let fact n =
    if n <= 1 then 1
    else n * fact (n - 1)
let main () = fact 10
`)
	assert.Equal(t, value.Int(3628800), res)
}

func TestStackOverflow(t *testing.T) {
	_, _, err := runSource(t, "let loop n = loop (n + 1)\nlet main () = loop 0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stack overflow")
}

func TestAssignReadBack(t *testing.T) {
	res := mustRun(t, "let main () =\n    let a = 1\n    a = a + 41\n    a")
	assert.Equal(t, value.Int(42), res)
}

func TestAssignmentAsLastStatementYieldsValue(t *testing.T) {
	res := mustRun(t, "let main () =\n    let a = 1\n    a = 7")
	assert.Equal(t, value.Int(7), res)
}

func TestBlockLocals(t *testing.T) {
	res := mustRun(t, `let choose c =
    if c then
        let a = 10
        a + 1
    else 0
let main () = choose true
`)
	assert.Equal(t, value.Int(11), res)
}

func TestPipe(t *testing.T) {
	res := mustRun(t, `let add a b = a + b
let main () = 40 |> add 2
`)
	assert.Equal(t, value.Int(42), res)

	res = mustRun(t, `let main () =
    [1, 2, 3]
    |> Iter.map (fn x -> x + 1)
`)
	assert.Equal(t, "[2, 3, 4]", value.Display(res))
}

func TestIterOverString(t *testing.T) {
	res := mustRun(t, `let main () = Iter.map "ab" (fn c -> c ++ "!")`)
	assert.Equal(t, "[a!, b!]", value.Display(res))
}

func TestIterFilterKeepsNonUnitResults(t *testing.T) {
	res := mustRun(t, `let main () =
    Iter.filter [1, 2, 3, 4] (fn x -> if x % 2 == 0 then x)
`)
	assert.Equal(t, "[2, 4]", value.Display(res))
}

func TestIterForEach(t *testing.T) {
	res, out, err := runSource(t, `let main () =
    Iter.for_each [1, 2] (fn x -> Io.print x)
`)
	require.NoError(t, err)
	assert.Equal(t, value.Unit{}, res)
	assert.Equal(t, "1\n2\n", out)
}

func TestIterNewExplicitIterator(t *testing.T) {
	res := mustRun(t, `let main () =
    let it = Iter.new [5, 6]
    let a = it ()
    let b = it ()
    let c = it ()
    [a, b, c]
`)
	assert.Equal(t, "[5, 6, ()]", value.Display(res))
}

func TestStringFromFormat(t *testing.T) {
	res := mustRun(t, `let main () = String.from_format "{(6 * 7)} is the answer"`)
	assert.Equal(t, value.String("42 is the answer"), res)
}

func TestFmtFormat(t *testing.T) {
	res := mustRun(t, `let main () = Fmt.format "a={(1)}, b={(2)}"`)
	assert.Equal(t, value.String("a=1, b=2"), res)
}

func TestParseModule(t *testing.T) {
	cases := []struct {
		src  string
		want value.Value
	}{
		{`let main () = Parse.to_int "42"`, value.Int(42)},
		{"let main () = Parse.to_int 3.9", value.Int(3)},
		{"let main () = Parse.to_int true", value.Int(1)},
		{"let main () = Parse.to_string 42", value.String("42")},
		{"let main () = Parse.to_string [1, 2]", value.String("[1, 2]")},
		{`let main () = Parse.to_float "2.5"`, value.Float(2.5)},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, mustRun(t, c.src), c.src)
	}
}

func TestPrintConcatenatesArgs(t *testing.T) {
	_, out, err := runSource(t, `let main () = Io.print "a=" 1`)
	require.NoError(t, err)
	assert.Equal(t, "a=1\n", out)
}

func TestLiteralBraces(t *testing.T) {
	res := mustRun(t, `let main () = "{{not an arg}}"`)
	assert.Equal(t, value.String("{not an arg}"), res)
}

func TestUserModuleImport(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mathx.fl"),
		[]byte("let factor = 6\nlet scale x = x * factor\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "top.fl"),
		[]byte("import \"./mathx.fl\"\nlet main () = scale 7\n"), 0o600))

	ld := loader.New(dir)
	ld.AddModules(stdlib.Modules()...)
	idx, err := ld.LoadModule("top")
	require.NoError(t, err)

	machine := vm.New(ld, mainer.Stdio{})
	res, err := machine.ExecuteModule(context.Background(), idx, "main")
	require.NoError(t, err)
	assert.Equal(t, value.Int(42), res)
}

// TestUserModuleByName verifies the module-by-name resolution path: a
// registered module's exports are addressable as Module.export without an
// import statement.
func TestUserModuleByName(t *testing.T) {
	ld := loader.New(t.TempDir())
	ld.AddModules(stdlib.Modules()...)

	_, err := ld.LoadModuleFromSource("mathx", []byte("let double x = x * 2\n"))
	require.NoError(t, err)
	idx, err := ld.LoadModuleFromSource("main", []byte("let main () = mathx.double 21\n"))
	require.NoError(t, err)

	machine := vm.New(ld, mainer.Stdio{})
	res, err := machine.ExecuteModule(context.Background(), idx, "main")
	require.NoError(t, err)
	assert.Equal(t, value.Int(42), res)
}

func TestExecuteModuleMissingEntry(t *testing.T) {
	ld := loader.New(t.TempDir())
	idx, err := ld.LoadModuleFromSource("m", []byte("let x = 1\n"))
	require.NoError(t, err)

	machine := vm.New(ld, mainer.Stdio{})
	_, err = machine.ExecuteModule(context.Background(), idx, "main")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no export main")
}

func TestHeapStats(t *testing.T) {
	ld := loader.New(t.TempDir())
	ld.AddModules(stdlib.Modules()...)
	idx, err := ld.LoadModuleFromSource("main", []byte(`let main () =
    let t = {a: 1}
    let l = [1, 2]
    let f = fn -> 1
    f ()
`))
	require.NoError(t, err)

	machine := vm.New(ld, mainer.Stdio{})
	_, err = machine.ExecuteModule(context.Background(), idx, "main")
	require.NoError(t, err)

	stats := machine.HeapStats()
	assert.Equal(t, 1, stats.Tables)
	assert.Equal(t, 1, stats.Arrays)
	// main itself plus the anonymous fn
	assert.Equal(t, 2, stats.Closures)
}

func TestCancellation(t *testing.T) {
	ld := loader.New(t.TempDir())
	idx, err := ld.LoadModuleFromSource("main", []byte("let loop n = loop n\nlet main () = loop 0"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	machine := vm.New(ld, mainer.Stdio{})
	machine.SetMaxCallDepth(1 << 20) // let cancellation fire before overflow
	_, err = machine.ExecuteModule(ctx, idx, "main")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled")
}

func TestCharsAndEquality(t *testing.T) {
	cases := []struct {
		src  string
		want value.Value
	}{
		{"let main () = 'a' == 'a'", value.Bool(true)},
		{"let main () = 'a' < 'b'", value.Bool(true)},
		{`let main () = "x" == "x"`, value.Bool(true)},
		// shared containers compare by identity, not structure
		{"let main () = [1] == [1]", value.Bool(false)},
		{"let main () =\n    let a = [1]\n    let b = a\n    a == b", value.Bool(true)},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, mustRun(t, c.src), c.src)
	}
}
