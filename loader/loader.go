// Package loader resolves import paths to compiled modules. It owns module
// storage: native modules are registered up front, user modules are
// compiled on first load and registered by stable numeric index, which
// GetModule opcodes embed directly. The loader is handed to every compile
// it starts, so transitive imports flow back through it.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mna/focus/compiler"
	"github.com/mna/focus/parser"
	"github.com/mna/focus/value"
)

// Ext is the source file extension appended to import paths that have none.
const Ext = ".fl"

// Loader stores modules and compiles imports. The zero value is not usable;
// use New.
type Loader struct {
	root    string
	modules []*value.Module
	byPath  map[string]int
	loading map[string]bool
}

// New returns a Loader resolving relative import paths against root.
func New(root string) *Loader {
	return &Loader{
		root:    root,
		byPath:  make(map[string]int),
		loading: make(map[string]bool),
	}
}

// AddModules registers built-in native modules; it must be called before
// any user compilation starts so that the modules are resolvable by name.
func (l *Loader) AddModules(mods ...*value.Module) {
	l.modules = append(l.modules, mods...)
}

// Module returns the index of a registered module by name.
func (l *Loader) Module(ident string) (int, bool) {
	for i, m := range l.modules {
		if m.Ident == ident {
			return i, true
		}
	}
	return 0, false
}

// ModuleAt returns the module at index, or nil if out of range.
func (l *Loader) ModuleAt(index int) *value.Module {
	if index < 0 || index >= len(l.modules) {
		return nil
	}
	return l.modules[index]
}

// LoadModule canonicalizes path (appending the default extension when it
// has none), compiles the file if this path was not loaded before, and
// returns the module's index. Repeated loads of the same path return the
// original index without recompiling.
func (l *Loader) LoadModule(path string) (int, error) {
	if filepath.Ext(path) == "" {
		path += Ext
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.root, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, err
	}
	if idx, ok := l.byPath[abs]; ok {
		return idx, nil
	}
	if l.loading[abs] {
		return 0, fmt.Errorf("import cycle through %s", abs)
	}

	src, err := os.ReadFile(abs)
	if err != nil {
		return 0, err
	}
	name := strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))

	l.loading[abs] = true
	defer delete(l.loading, abs)

	idx, err := l.compile(abs, name, src)
	if err != nil {
		return 0, err
	}
	l.byPath[abs] = idx
	return idx, nil
}

// LoadModuleFromSource compiles src as a module named ident, without any
// file involved; used by hosts and tests.
func (l *Loader) LoadModuleFromSource(ident string, src []byte) (int, error) {
	return l.compile(ident, ident, src)
}

func (l *Loader) compile(filename, name string, src []byte) (int, error) {
	chunk, err := parser.Parse(filename, src)
	if err != nil {
		return 0, err
	}
	proto, err := compiler.Compile(chunk, name, l)
	if err != nil {
		return 0, err
	}
	m := &value.Module{Ident: name, Locals: proto.Locals, Proto: proto}
	l.modules = append(l.modules, m)
	return len(l.modules) - 1, nil
}

// ModuleIndex implements compiler.Modules.
func (l *Loader) ModuleIndex(name string) (int, bool) { return l.Module(name) }

// ModuleExports implements compiler.Modules.
func (l *Loader) ModuleExports(index int) []string {
	if m := l.ModuleAt(index); m != nil {
		return m.Locals
	}
	return nil
}

var _ compiler.Modules = (*Loader)(nil)
