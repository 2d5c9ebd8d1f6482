// Package vm implements the Oolong bytecode compiler: a single-pass Pratt
// parser that emits chunks directly, plus the VM-owned tables the compiler
// shares with the runtime.
package vm

import "github.com/oolong-lang/oolong/internal/object"

// Opcode represents a single VM instruction.
type Opcode byte

const (
	OP_CONSTANT Opcode = iota // Push constant from pool
	OP_NIL
	OP_TRUE
	OP_FALSE
	OP_POP
	OP_POP_REPL // Like POP, but the REPL prints the value first

	// Variables
	OP_GET_LOCAL
	OP_SET_LOCAL
	OP_GET_GLOBAL // VM globals are read-only; there is no SET_GLOBAL
	OP_GET_MODULE
	OP_SET_MODULE
	OP_DEFINE_MODULE
	OP_GET_UPVALUE
	OP_SET_UPVALUE

	// Properties
	OP_GET_PROPERTY
	OP_GET_PROPERTY_NO_POP // Keeps the receiver for compound assignment
	OP_SET_PROPERTY
	OP_GET_SUPER

	// Operators
	OP_EQUAL
	OP_GREATER
	OP_LESS
	OP_ADD
	OP_SUBTRACT
	OP_MULTIPLY
	OP_DIVIDE
	OP_MOD
	OP_POW
	OP_NOT
	OP_NEGATE
	OP_BITWISE_AND
	OP_BITWISE_XOR
	OP_BITWISE_OR

	// Control flow
	OP_JUMP
	OP_JUMP_IF_FALSE
	OP_LOOP
	OP_BREAK // Placeholder; rewritten to OP_JUMP before the loop ends

	// Calls and closures
	OP_CALL
	OP_INVOKE
	OP_INVOKE_INTERNAL // INVOKE through 'this' or the class's own name
	OP_SUPER
	OP_CLOSURE
	OP_CLOSE_UPVALUE
	OP_RETURN
	OP_EMPTY

	// Classes
	OP_CLASS
	OP_SUBCLASS
	OP_END_CLASS
	OP_METHOD
	OP_SET_CLASS_VAR
	OP_DEFINE_OPTIONAL

	// Imports
	OP_IMPORT
	OP_IMPORT_VARIABLE
	OP_IMPORT_FROM
	OP_IMPORT_END
)

// OpcodeNames maps opcodes to their string names (for the disassembler).
var OpcodeNames = map[Opcode]string{
	OP_CONSTANT:            "CONSTANT",
	OP_NIL:                 "NIL",
	OP_TRUE:                "TRUE",
	OP_FALSE:               "FALSE",
	OP_POP:                 "POP",
	OP_POP_REPL:            "POP_REPL",
	OP_GET_LOCAL:           "GET_LOCAL",
	OP_SET_LOCAL:           "SET_LOCAL",
	OP_GET_GLOBAL:          "GET_GLOBAL",
	OP_GET_MODULE:          "GET_MODULE",
	OP_SET_MODULE:          "SET_MODULE",
	OP_DEFINE_MODULE:       "DEFINE_MODULE",
	OP_GET_UPVALUE:         "GET_UPVALUE",
	OP_SET_UPVALUE:         "SET_UPVALUE",
	OP_GET_PROPERTY:        "GET_PROPERTY",
	OP_GET_PROPERTY_NO_POP: "GET_PROPERTY_NO_POP",
	OP_SET_PROPERTY:        "SET_PROPERTY",
	OP_GET_SUPER:           "GET_SUPER",
	OP_EQUAL:               "EQUAL",
	OP_GREATER:             "GREATER",
	OP_LESS:                "LESS",
	OP_ADD:                 "ADD",
	OP_SUBTRACT:            "SUBTRACT",
	OP_MULTIPLY:            "MULTIPLY",
	OP_DIVIDE:              "DIVIDE",
	OP_MOD:                 "MOD",
	OP_POW:                 "POW",
	OP_NOT:                 "NOT",
	OP_NEGATE:              "NEGATE",
	OP_BITWISE_AND:         "BITWISE_AND",
	OP_BITWISE_XOR:         "BITWISE_XOR",
	OP_BITWISE_OR:          "BITWISE_OR",
	OP_JUMP:                "JUMP",
	OP_JUMP_IF_FALSE:       "JUMP_IF_FALSE",
	OP_LOOP:                "LOOP",
	OP_BREAK:               "BREAK",
	OP_CALL:                "CALL",
	OP_INVOKE:              "INVOKE",
	OP_INVOKE_INTERNAL:     "INVOKE_INTERNAL",
	OP_SUPER:               "SUPER",
	OP_CLOSURE:             "CLOSURE",
	OP_CLOSE_UPVALUE:       "CLOSE_UPVALUE",
	OP_RETURN:              "RETURN",
	OP_EMPTY:               "EMPTY",
	OP_CLASS:               "CLASS",
	OP_SUBCLASS:            "SUBCLASS",
	OP_END_CLASS:           "END_CLASS",
	OP_METHOD:              "METHOD",
	OP_SET_CLASS_VAR:       "SET_CLASS_VAR",
	OP_DEFINE_OPTIONAL:     "DEFINE_OPTIONAL",
	OP_IMPORT:              "IMPORT",
	OP_IMPORT_VARIABLE:     "IMPORT_VARIABLE",
	OP_IMPORT_FROM:         "IMPORT_FROM",
	OP_IMPORT_END:          "IMPORT_END",
}

// operandCount returns the number of operand bytes following the opcode at
// ip. The break rewriter and the disassembler both walk instructions with
// it, so it must match the emitter exactly. OP_BREAK reports zero: it is a
// placeholder whose two offset bytes the rewriter accounts for itself.
func operandCount(code []byte, constants []object.Object, ip int) int {
	switch Opcode(code[ip]) {
	case OP_NIL, OP_TRUE, OP_FALSE, OP_POP, OP_POP_REPL,
		OP_EQUAL, OP_GREATER, OP_LESS,
		OP_ADD, OP_SUBTRACT, OP_MULTIPLY, OP_DIVIDE, OP_MOD, OP_POW,
		OP_NOT, OP_NEGATE,
		OP_BITWISE_AND, OP_BITWISE_XOR, OP_BITWISE_OR,
		OP_CLOSE_UPVALUE, OP_RETURN, OP_EMPTY, OP_END_CLASS,
		OP_IMPORT_VARIABLE, OP_IMPORT_END, OP_BREAK:
		return 0

	case OP_CONSTANT, OP_GET_LOCAL, OP_SET_LOCAL, OP_GET_GLOBAL,
		OP_GET_MODULE, OP_SET_MODULE, OP_DEFINE_MODULE,
		OP_GET_UPVALUE, OP_SET_UPVALUE,
		OP_GET_PROPERTY, OP_GET_PROPERTY_NO_POP, OP_SET_PROPERTY,
		OP_GET_SUPER, OP_METHOD, OP_IMPORT:
		return 1

	case OP_JUMP, OP_JUMP_IF_FALSE, OP_LOOP,
		OP_CLASS, OP_SUBCLASS, OP_SET_CLASS_VAR,
		OP_DEFINE_OPTIONAL, OP_CALL:
		return 2

	case OP_INVOKE, OP_INVOKE_INTERNAL, OP_SUPER:
		return 3

	case OP_CLOSURE:
		constant := code[ip+1]
		fn := constants[constant].(*Function)
		// One byte for the constant, then two per upvalue.
		return 1 + fn.UpvalueCount*2

	case OP_IMPORT_FROM:
		// One count byte, then one name constant per imported variable.
		return 1 + int(code[ip+1])
	}

	return 0
}
