package vm

import (
	"fmt"

	"github.com/oolong-lang/oolong/internal/object"
)

// FunctionType distinguishes what kind of function body is being compiled.
type FunctionType int

const (
	TYPE_TOP_LEVEL FunctionType = iota
	TYPE_FUNCTION
	TYPE_METHOD
	TYPE_STATIC
	TYPE_INITIALIZER
)

// AccessLevel is the visibility of a method or function.
type AccessLevel int

const (
	ACCESS_PUBLIC AccessLevel = iota
	ACCESS_PRIVATE
)

// ClassKind is the kind byte carried by OP_CLASS / OP_SUBCLASS.
type ClassKind byte

const (
	CLASS_DEFAULT ClassKind = iota
	CLASS_ABSTRACT
)

// Function is a compiled function: its chunk, its shape, and the closure
// metadata the VM needs to build an invokable value from it.
type Function struct {
	Chunk *Chunk

	// Arity is the number of required parameters; ArityOptional counts the
	// parameters carrying default expressions.
	Arity         int
	ArityOptional int
	IsVariadic    bool

	UpvalueCount int

	// PropertyCount counts var-prefixed constructor parameters captured as
	// fields. PropertyNames holds their name-constant indexes and
	// PropertyIndexes their parameter positions.
	PropertyCount   int
	PropertyNames   []byte
	PropertyIndexes []int

	// LocalCount is the high-water mark of locals in this function.
	LocalCount int

	AccessLevel AccessLevel

	// Name is nil for top-level code.
	Name   *object.String
	Module *object.Module
}

func (f *Function) Type() object.ObjectType { return object.ObjectType("FUNCTION") }

func (f *Function) Inspect() string {
	if f.Name == nil {
		if f.Module != nil {
			return fmt.Sprintf("<module %s>", f.Module.Name)
		}
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name.Value)
}

func newFunction(module *object.Module, level AccessLevel) *Function {
	return &Function{
		Chunk:       NewChunk(),
		AccessLevel: level,
		Module:      module,
	}
}
