package vm

import (
	"fmt"

	"github.com/oolong-lang/oolong/internal/object"
)

// VM holds the state the compiler shares with the runtime: the string
// interning table, the read-only globals, the module-constant table and the
// module registry. Execution itself lives on the other side of the bytecode
// contract.
type VM struct {
	strings   map[string]*object.String
	globals   map[string]object.Object
	constants map[*object.String]struct{}
	modules   map[string]*object.Module

	repl bool

	// compiler is the innermost open compiler during a Compile call; the GC
	// root hook walks the chain from here.
	compiler *Compiler
}

func New() *VM {
	return &VM{
		strings:   make(map[string]*object.String),
		globals:   make(map[string]object.Object),
		constants: make(map[*object.String]struct{}),
		modules:   make(map[string]*object.Module),
	}
}

// SetREPL switches REPL mode: top-level expression statements then emit
// OP_POP_REPL so the shell can print results, and the module-constant table
// survives across inputs.
func (v *VM) SetREPL(repl bool) {
	v.repl = repl
}

// InternString returns the canonical *String for content, creating it on
// first use. All strings the compiler builds go through here, so string
// identity is content identity.
func (v *VM) InternString(content string) *object.String {
	if s, ok := v.strings[content]; ok {
		return s
	}
	s := &object.String{Value: content}
	v.strings[content] = s
	return s
}

// DefineGlobal installs a read-only global. Scripts can read it through
// OP_GET_GLOBAL but never assign it.
func (v *VM) DefineGlobal(name string, value object.Object) {
	v.globals[name] = value
}

func (v *VM) hasGlobal(name string) bool {
	_, ok := v.globals[name]
	return ok
}

// DefineModuleConstant records name as a module-level constant; any
// subsequent assignment to it in compiled code is a compile error.
func (v *VM) DefineModuleConstant(name string) {
	v.constants[v.InternString(name)] = struct{}{}
}

func (v *VM) isModuleConstant(s *object.String) bool {
	_, ok := v.constants[s]
	return ok
}

// ClearConstants empties the module-constant table. The driver calls it
// after compiling a script; constness tracking is per compilation unit.
func (v *VM) ClearConstants() {
	clear(v.constants)
}

// RegisterModule creates and registers a module handle for a compilation
// unit. Registering the same name twice returns the existing module.
func (v *VM) RegisterModule(name, path string) *object.Module {
	if m, ok := v.modules[name]; ok {
		return m
	}
	m := object.NewModule(name, path)
	v.modules[name] = m
	return m
}

// RegisterBuiltins installs the standard globals scripts expect to exist.
// Their presence is what routes identifier reads to OP_GET_GLOBAL.
func (v *VM) RegisterBuiltins() {
	builtins := []*object.Builtin{
		{Name: "print", Fn: func(args []object.Object) object.Object {
			for i, a := range args {
				if i > 0 {
					fmt.Print(" ")
				}
				fmt.Print(a.Inspect())
			}
			fmt.Println()
			return &object.Nil{}
		}},
		{Name: "type", Fn: func(args []object.Object) object.Object {
			if len(args) != 1 {
				return &object.Nil{}
			}
			return &object.String{Value: string(args[0].Type())}
		}},
		{Name: "len", Fn: func(args []object.Object) object.Object {
			if len(args) != 1 {
				return &object.Nil{}
			}
			if s, ok := args[0].(*object.String); ok {
				return &object.Number{Value: float64(len(s.Value))}
			}
			return &object.Nil{}
		}},
		{Name: "assert", Fn: func(args []object.Object) object.Object {
			return &object.Nil{}
		}},
	}

	for _, b := range builtins {
		v.DefineGlobal(b.Name, b)
	}
}
