// Package compiler lowers a parsed chunk to per-function bytecode
// prototypes in a single pass: it walks the AST once, resolving locals and
// upvalues through the resolver package as it goes, interning constants and
// backpatching jump displacements. There is no separate resolve phase and
// no optimization pass; what the walk emits is what runs.
package compiler

import (
	"fmt"
	"math"

	"github.com/mna/focus/ast"
	"github.com/mna/focus/lexer"
	"github.com/mna/focus/resolver"
	"github.com/mna/focus/token"
)

// Modules is the compiler's view of the module loader: importing compiles
// the imported file (transitively, through the same loader) and yields a
// stable index that GetModule opcodes embed directly.
type Modules interface {
	// LoadModule resolves path, compiles the file if needed and returns the
	// module's index.
	LoadModule(path string) (int, error)
	// ModuleIndex returns the index of an already-registered module by name.
	ModuleIndex(name string) (int, bool)
	// ModuleExports lists a module's exported names, in slot order.
	ModuleExports(index int) []string
}

// Compile lowers chunk to the top-level prototype of a module named name.
// The returned prototype's Locals are the module's exports; its code leaves
// them on the stack and does not end in Return. Errors are accumulated and
// returned as a position-sorted *lexer.ErrorList.
func Compile(chunk *ast.Chunk, name string, mods Modules) (*Prototype, error) {
	c := &compiler{
		filename: chunk.Name,
		mods:     mods,
		aliases:  make(map[string]moduleAlias),
	}
	top := &funcCompiler{
		c:     c,
		scope: resolver.New(nil),
		proto: &Prototype{Name: name},
		line:  1,
	}

	for _, s := range chunk.Stmts {
		switch s := s.(type) {
		case *ast.LetStmt:
			top.letStmt(s)
		case *ast.FuncStmt:
			top.funcStmt(s)
		case *ast.ImportStmt:
			top.importStmt(s)
		case *ast.BadStmt:
			// already reported by the parser
		default:
			start, _ := s.Span()
			c.errorf(start, "only let and import are allowed at module top level")
		}
	}
	top.proto.Upvalues = top.scope.Upvalues()

	if len(c.errors) == 0 {
		return top.proto, nil
	}
	c.errors.Sort()
	return top.proto, c.errors
}

// moduleAlias names one exported local of an imported module; resolving the
// alias compiles to GetModule + the export's integer index + GetTable.
type moduleAlias struct {
	module int
	local  int
}

// compiler is the state shared by every function under compilation in one
// module: the loader, the import aliases and the accumulated errors.
type compiler struct {
	filename string
	mods     Modules
	aliases  map[string]moduleAlias
	errors   lexer.ErrorList
}

func (c *compiler) errorf(pos token.Pos, format string, args ...any) {
	c.errors.Add(lexer.GoPosition(c.filename, pos), fmt.Sprintf(format, args...))
}

// funcCompiler emits the bytecode of a single function (or of the module's
// top level). Functions form a tree via parent, mirroring the resolver's
// scope chain.
type funcCompiler struct {
	c      *compiler
	parent *funcCompiler
	scope  *resolver.ScopeResolver
	proto  *Prototype
	line   int // source line attached to emitted opcodes
}

func (f *funcCompiler) errorf(pos token.Pos, format string, args ...any) {
	f.c.errorf(pos, format, args...)
}

func (f *funcCompiler) emit(op Opcode, arg uint8) int {
	f.proto.Code = append(f.proto.Code, Instr{Op: op, Arg: arg})
	f.proto.Lines = append(f.proto.Lines, f.line)
	return len(f.proto.Code) - 1
}

// emitJump emits op with a zero displacement placeholder plus its ExtraArg
// slot, returning the index to hand to patchJump once the target is known.
func (f *funcCompiler) emitJump(op Opcode) int {
	at := f.emit(op, 0)
	f.emit(ExtraArg, 0)
	return at
}

// patchJump sets the displacement of the jump at index at to land on the
// next opcode to be emitted. Displacements are counted in opcode units from
// after the ExtraArg slot, so a zero displacement is a no-op jump.
func (f *funcCompiler) patchJump(at int, pos token.Pos) {
	d := len(f.proto.Code) - (at + 2)
	if d > math.MaxInt16 {
		f.errorf(pos, "jump displacement too large")
		d = 0
	}
	f.proto.Code[at].Arg = uint8(d & 0xff)
	f.proto.Code[at+1].Arg = uint8(uint16(d) >> 8)
}

func (f *funcCompiler) addLocal(name string, pos token.Pos) {
	if _, ok := f.scope.AddLocal(name); !ok {
		f.errorf(pos, "too many local variables in function")
		return
	}
	f.proto.Locals = append(f.proto.Locals, name)
}

// constOperand interns c and emits LoadConst.
func (f *funcCompiler) constOperand(c Constant, pos token.Pos) {
	idx, ok := f.proto.constant(c)
	if !ok {
		f.errorf(pos, "too many constants in function")
		return
	}
	f.emit(LoadConst, uint8(idx))
}

// intOperand emits the cheapest encoding of integer n: a LoadInt for
// 0..=255, a constant-pool slot otherwise.
func (f *funcCompiler) intOperand(n int64, pos token.Pos) {
	if n >= 0 && n <= 255 {
		f.emit(LoadInt, uint8(n))
		return
	}
	f.constOperand(n, pos)
}

func (f *funcCompiler) stringOperand(s string, pos token.Pos) {
	f.constOperand(s, pos)
}

// ---- statements ----

func (f *funcCompiler) letStmt(s *ast.LetStmt) {
	f.line = s.Line
	if s.Value != nil {
		f.expr(s.Value)
	} else {
		f.emit(LoadUnit, 0)
	}
	// the value left on the stack is the local: no explicit store
	f.addLocal(s.Ident.Name, s.Ident.Start)
}

func (f *funcCompiler) funcStmt(s *ast.FuncStmt) {
	f.line = s.Line
	// bind the name before compiling the body so the function is in scope
	// inside itself; the Closure opcode pushes its value at exactly the slot
	// the binding reserved.
	f.addLocal(s.Ident.Name, s.Ident.Start)
	f.function(s.Ident.Name, false, s.Params, s.Body, s.Start)
}

func (f *funcCompiler) importStmt(s *ast.ImportStmt) {
	f.line = s.Line
	idx, err := f.c.mods.LoadModule(s.Source)
	if err != nil {
		f.errorf(s.Start, "cannot import %q: %s", s.Source, err)
		return
	}
	for i, name := range f.c.mods.ModuleExports(idx) {
		f.c.aliases[name] = moduleAlias{module: idx, local: i}
	}
}

// function compiles a nested function into a child prototype and emits the
// Closure opcode that instantiates it. Zero-parameter functions are given
// one implicit unit parameter so that every call site can uniformly pass an
// argument and local 1 is always addressable.
func (f *funcCompiler) function(name string, anonymous bool, params []*ast.IdentExpr, body *ast.BlockExpr, pos token.Pos) {
	if len(f.proto.Prototypes) >= MaxPrototypes {
		f.errorf(pos, "too many functions in function")
		return
	}

	child := &funcCompiler{
		c:      f.c,
		parent: f,
		scope:  resolver.New(f.scope),
		proto:  &Prototype{Name: name, Anonymous: anonymous},
		line:   pos.Line,
	}
	self := name
	if anonymous {
		self = ""
	}
	// the callee itself occupies local 0
	child.addLocal(self, pos)
	switch {
	case len(params) == 0:
		child.proto.NumArgs = 1
		child.addLocal("", pos)
	case len(params) > MaxArgs:
		f.errorf(pos, "too many arguments in function")
		return
	default:
		child.proto.NumArgs = len(params)
		for _, p := range params {
			child.addLocal(p.Name, p.Start)
		}
	}

	child.stmtsWithResult(body)
	child.emit(Return, 0)
	child.proto.Upvalues = child.scope.Upvalues()

	idx := len(f.proto.Prototypes)
	f.proto.Prototypes = append(f.proto.Prototypes, child.proto)
	f.emit(Closure, uint8(idx))
}

// stmtsWithResult compiles the statements of a block so that exactly one
// value is left above the block's entry height: every non-final statement's
// value is popped (when it leaves one), and the final statement must be an
// expression. An assignment through SetLocal/SetUpvalue already leaves the
// assigned value; an assignment through SetTable leaves nothing, so a final
// one is padded with LoadUnit.
func (f *funcCompiler) stmtsWithResult(b *ast.BlockExpr) {
	if len(b.Stmts) == 0 {
		f.emit(LoadUnit, 0)
		return
	}
	for i, s := range b.Stmts {
		last := i == len(b.Stmts)-1
		switch s := s.(type) {
		case *ast.LetStmt:
			f.letStmt(s)
			if last {
				f.errorBlockEnd(s)
			}
		case *ast.FuncStmt:
			f.funcStmt(s)
			if last {
				f.errorBlockEnd(s)
			}
		case *ast.ImportStmt:
			f.importStmt(s)
			if last {
				f.errorBlockEnd(s)
			}
		case *ast.ExpressionStmt:
			f.line = s.Line
			f.expr(s.Expr)
			if last {
				if !leavesValue(s.Expr) {
					f.emit(LoadUnit, 0)
				}
			} else if leavesValue(s.Expr) {
				f.emit(Pop, 0)
			}
		case *ast.BadStmt:
			// already reported by the parser; keep the stack shape sound
			if last {
				f.emit(LoadUnit, 0)
			}
		}
	}
}

func (f *funcCompiler) errorBlockEnd(s ast.Stmt) {
	start, _ := s.Span()
	f.errorf(start, "a block must end in an expression")
	f.emit(LoadUnit, 0)
}

// leavesValue reports whether the compiled form of e, used as a statement,
// leaves a value on the stack. Only an assignment through a path (lowered to
// SetTable) leaves nothing.
func leavesValue(e ast.Expr) bool {
	if a, ok := e.(*ast.AssignExpr); ok {
		if _, isPath := a.Target.(*ast.PathExpr); isPath {
			return false
		}
	}
	return true
}

// blockExpr compiles a block used as an expression. Locals declared inside
// the block die with it: after the result is computed, any captured ones are
// closed into their cells, then the result is slid down over the first
// block-local slot and the remainder popped, so the net stack effect of any
// block is exactly one value.
func (f *funcCompiler) blockExpr(b *ast.BlockExpr) {
	f.scope.BeginScope()
	base := f.scope.NumLocals()
	f.stmtsWithResult(b)
	n := f.scope.NumLocals() - base
	closed := f.scope.EndScope()
	for _, slot := range closed {
		f.emit(CloseUpvalue, uint8(slot))
	}
	if n > 0 {
		f.emit(SetLocal, uint8(base))
		for i := 0; i < n; i++ {
			f.emit(Pop, 0)
		}
	}
}

// ---- expressions ----

func (f *funcCompiler) expr(e ast.Expr) {
	if start, _ := e.Span(); start.Valid() {
		f.line = start.Line
	}

	switch e := e.(type) {
	case *ast.UnitLit:
		f.emit(LoadUnit, 0)
	case *ast.BoolLit:
		if e.Val {
			f.emit(LoadTrue, 0)
		} else {
			f.emit(LoadFalse, 0)
		}
	case *ast.IntLit:
		f.intOperand(e.Val, e.Start)
	case *ast.FloatLit:
		f.constOperand(e.Val, e.Start)
	case *ast.CharLit:
		f.constOperand(e.Val, e.Start)
	case *ast.StringLit:
		f.stringOperand(e.Val, e.Start)
	case *ast.InterpolatedStringExpr:
		f.interpolated(e)
	case *ast.ArrayExpr:
		if len(e.Elems) > MaxInitLen {
			f.errorf(e.Start, "list literal too large")
			return
		}
		for _, el := range e.Elems {
			f.expr(el)
		}
		f.emit(CreateList, uint8(len(e.Elems)))
	case *ast.TableExpr:
		f.tableExpr(e)
	case *ast.BlockExpr:
		f.blockExpr(e)
	case *ast.IdentExpr:
		f.identExpr(e)
	case *ast.PathExpr:
		for _, p := range f.pathBase(e) {
			f.pathPart(p)
		}
	case *ast.CallExpr:
		f.callExpr(e)
	case *ast.FuncExpr:
		f.function("", true, e.Params, e.Body, e.Start)
	case *ast.CondExpr:
		f.condExpr(e)
	case *ast.UnaryExpr:
		f.expr(e.X)
		if e.Op == token.MINUS {
			f.emit(Negate, 0)
		} else {
			f.emit(Not, 0)
		}
	case *ast.BinaryExpr:
		f.binaryExpr(e)
	case *ast.AssignExpr:
		f.assignExpr(e)
	case *ast.BadExpr:
		// already reported; keep the stack shape sound
		f.emit(LoadUnit, 0)
	default:
		start, _ := e.Span()
		f.errorf(start, "internal error: unexpected expression %T", e)
	}
}

func (f *funcCompiler) tableExpr(e *ast.TableExpr) {
	if len(e.Entries) > MaxInitLen {
		f.errorf(e.Start, "table literal too large")
		return
	}
	for _, ent := range e.Entries {
		if ent.KeyExpr != nil {
			f.expr(ent.KeyExpr)
		} else {
			f.stringOperand(ent.KeyIdent, e.Start)
		}
		f.expr(ent.Value)
	}
	f.emit(CreateTable, uint8(len(e.Entries)))
}

// interpolated lowers an interpolated string to the {format, args} table
// shape consumed by the standard library's formatter: args is an array of
// {arg, offset} tables, offsets being byte positions into format.
func (f *funcCompiler) interpolated(e *ast.InterpolatedStringExpr) {
	if len(e.Args) > MaxInitLen {
		f.errorf(e.Start, "too many interpolated arguments")
		return
	}
	f.stringOperand("format", e.Start)
	f.stringOperand(e.Format, e.Start)
	f.stringOperand("args", e.Start)
	for _, a := range e.Args {
		f.stringOperand("arg", e.Start)
		f.expr(a.Expr)
		f.stringOperand("offset", e.Start)
		f.intOperand(int64(a.Offset), e.Start)
		f.emit(CreateTable, 2)
	}
	f.emit(CreateList, uint8(len(e.Args)))
	f.emit(CreateTable, 2)
}

func (f *funcCompiler) emitModule(idx int, pos token.Pos) {
	if idx > 255 {
		f.errorf(pos, "too many modules")
		idx = 0
	}
	f.emit(GetModule, uint8(idx))
}

// moduleValue emits the read of one exported local of a module: the module
// handle, the export's integer index and a GetTable (modules index by
// position, not by name).
func (f *funcCompiler) moduleValue(mod, local int, pos token.Pos) {
	f.emitModule(mod, pos)
	f.intOperand(int64(local), pos)
	f.emit(GetTable, 0)
}

func (f *funcCompiler) identExpr(e *ast.IdentExpr) {
	if slot, ok := f.scope.ResolveLocal(e.Name); ok {
		f.emit(GetLocal, uint8(slot))
		return
	}
	if idx, ok := f.scope.ResolveUpvalue(e.Name); ok {
		f.emit(GetUpvalue, uint8(idx))
		return
	}
	if a, ok := f.c.aliases[e.Name]; ok {
		f.moduleValue(a.module, a.local, e.Start)
		return
	}
	if idx, ok := f.c.mods.ModuleIndex(e.Name); ok {
		f.emitModule(idx, e.Start)
		return
	}
	f.errorf(e.Start, "unknown name %s", e.Name)
}

// pathBase emits the base of a path and returns the accessor parts that
// remain to be applied. When the base names a module directly, the first
// field accessor is folded into the base as an integer export lookup.
func (f *funcCompiler) pathBase(e *ast.PathExpr) []ast.PathPart {
	id, ok := e.Base.(*ast.IdentExpr)
	if !ok {
		f.expr(e.Base)
		return e.Parts
	}
	if slot, ok := f.scope.ResolveLocal(id.Name); ok {
		f.emit(GetLocal, uint8(slot))
		return e.Parts
	}
	if idx, ok := f.scope.ResolveUpvalue(id.Name); ok {
		f.emit(GetUpvalue, uint8(idx))
		return e.Parts
	}
	if a, ok := f.c.aliases[id.Name]; ok {
		f.moduleValue(a.module, a.local, id.Start)
		return e.Parts
	}
	if midx, ok := f.c.mods.ModuleIndex(id.Name); ok {
		f.emitModule(midx, id.Start)
		if len(e.Parts) == 0 {
			return nil
		}
		p := e.Parts[0]
		if p.Field != "" {
			li := exportIndex(f.c.mods.ModuleExports(midx), p.Field)
			if li < 0 {
				f.errorf(p.Pos, "module %s has no export %s", id.Name, p.Field)
				li = 0
			}
			f.intOperand(int64(li), p.Pos)
		} else {
			f.expr(p.Index)
		}
		f.emit(GetTable, 0)
		return e.Parts[1:]
	}
	f.errorf(id.Start, "unknown name %s", id.Name)
	f.emit(LoadUnit, 0)
	return e.Parts
}

func (f *funcCompiler) pathPart(p ast.PathPart) {
	if p.Field != "" {
		f.stringOperand(p.Field, p.Pos)
	} else {
		f.expr(p.Index)
	}
	f.emit(GetTable, 0)
}

func exportIndex(exports []string, name string) int {
	for i, e := range exports {
		if e == name {
			return i
		}
	}
	return -1
}

func (f *funcCompiler) callExpr(e *ast.CallExpr) {
	if len(e.Args) > MaxArgs {
		start, _ := e.Span()
		f.errorf(start, "too many arguments in call")
		return
	}
	f.expr(e.Callee)
	for _, a := range e.Args {
		f.expr(a)
	}
	f.emit(Call, uint8(len(e.Args)))
}

func (f *funcCompiler) condExpr(e *ast.CondExpr) {
	f.expr(e.Cond)
	jf := f.emitJump(JumpIfFalse)
	f.expr(e.Then)
	j := f.emitJump(Jump)
	f.patchJump(jf, e.Start)
	if e.Else != nil {
		f.expr(e.Else)
	} else {
		f.emit(LoadUnit, 0)
	}
	f.patchJump(j, e.Start)
}

func (f *funcCompiler) binaryExpr(e *ast.BinaryExpr) {
	f.expr(e.X)
	f.expr(e.Y)
	switch e.Op {
	case token.PLUS:
		f.emit(Add, 0)
	case token.MINUS:
		f.emit(Subtract, 0)
	case token.STAR:
		f.emit(Multiply, 0)
	case token.SLASH:
		f.emit(Divide, 0)
	case token.SLASHSLASH:
		f.emit(IDivide, 0)
	case token.PERCENT:
		f.emit(Modulus, 0)
	case token.PLUSPLUS:
		f.emit(Concat, 0)
	case token.EQEQ:
		f.emit(CmpEq, 0)
	case token.NEQ:
		f.emit(CmpEq, 0)
		f.emit(Not, 0)
	case token.LT:
		f.emit(CmpLess, 0)
	case token.LE:
		f.emit(CmpLEq, 0)
	case token.GT:
		f.emit(CmpGreater, 0)
	case token.GE:
		f.emit(CmpGEq, 0)
	case token.AND:
		f.emit(CmpAnd, 0)
	case token.OR:
		f.emit(CmpOr, 0)
	default:
		f.errorf(e.Pos, "internal error: unexpected binary operator %s", e.Op)
	}
}

func (f *funcCompiler) assignExpr(e *ast.AssignExpr) {
	switch t := e.Target.(type) {
	case *ast.IdentExpr:
		if slot, ok := f.scope.ResolveLocal(t.Name); ok {
			f.expr(e.Value)
			f.emit(SetLocal, uint8(slot))
			return
		}
		if idx, ok := f.scope.ResolveUpvalue(t.Name); ok {
			f.expr(e.Value)
			f.emit(SetUpvalue, uint8(idx))
			return
		}
		if _, ok := f.c.aliases[t.Name]; ok {
			f.errorf(e.Pos, "cannot set the value of a module")
			return
		}
		if _, ok := f.c.mods.ModuleIndex(t.Name); ok {
			f.errorf(e.Pos, "cannot set the value of a module")
			return
		}
		f.errorf(t.Start, "unknown name %s", t.Name)

	case *ast.PathExpr:
		rest := f.pathBase(t)
		if len(rest) == 0 {
			// the whole path was consumed as a module export lookup
			f.errorf(e.Pos, "cannot set the value of a module")
			return
		}
		for _, p := range rest[:len(rest)-1] {
			f.pathPart(p)
		}
		last := rest[len(rest)-1]
		if last.Field != "" {
			f.stringOperand(last.Field, last.Pos)
		} else {
			f.expr(last.Index)
		}
		f.expr(e.Value)
		f.emit(SetTable, 0)

	default:
		// the parser reports the invalid target; keep the stack sound
		f.expr(e.Value)
	}
}
