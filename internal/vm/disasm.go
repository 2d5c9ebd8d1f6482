package vm

import (
	"fmt"
	"strings"
)

// Instruction is one decoded bytecode instruction.
type Instruction struct {
	Offset   int
	Op       Opcode
	Operands []byte
}

// decodeInstruction decodes the instruction at offset and returns it with
// the offset of the next instruction. An unpatched OP_BREAK still carries
// its two placeholder bytes, so it decodes like a jump.
func decodeInstruction(chunk *Chunk, offset int) (Instruction, int) {
	op := Opcode(chunk.Code[offset])

	width := operandCount(chunk.Code, chunk.Constants, offset)
	if op == OP_BREAK {
		width = 2
	}

	ins := Instruction{
		Offset:   offset,
		Op:       op,
		Operands: chunk.Code[offset+1 : offset+1+width],
	}
	return ins, offset + 1 + width
}

// encode appends the instruction's bytes to dst and returns it.
func (ins Instruction) encode(dst []byte) []byte {
	dst = append(dst, byte(ins.Op))
	return append(dst, ins.Operands...)
}

// Instructions decodes a whole chunk.
func Instructions(chunk *Chunk) []Instruction {
	var out []Instruction
	offset := 0
	for offset < chunk.Len() {
		var ins Instruction
		ins, offset = decodeInstruction(chunk, offset)
		out = append(out, ins)
	}
	return out
}

// Disassemble returns a human-readable representation of the bytecode.
func Disassemble(chunk *Chunk, name string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("== %s ==\n", name))

	offset := 0
	for offset < chunk.Len() {
		offset = disassembleInstruction(&sb, chunk, offset)
	}

	return sb.String()
}

func disassembleInstruction(sb *strings.Builder, chunk *Chunk, offset int) int {
	sb.WriteString(fmt.Sprintf("%04d ", offset))

	if offset > 0 && chunk.Lines[offset] == chunk.Lines[offset-1] {
		sb.WriteString("   | ")
	} else {
		sb.WriteString(fmt.Sprintf("%4d ", chunk.Lines[offset]))
	}

	op := Opcode(chunk.Code[offset])
	name := OpcodeNames[op]

	switch op {
	case OP_CONSTANT, OP_GET_GLOBAL, OP_GET_MODULE, OP_SET_MODULE,
		OP_DEFINE_MODULE, OP_GET_PROPERTY, OP_GET_PROPERTY_NO_POP,
		OP_SET_PROPERTY, OP_GET_SUPER, OP_METHOD, OP_IMPORT:
		return constantInstruction(sb, name, chunk, offset)

	case OP_GET_LOCAL, OP_SET_LOCAL, OP_GET_UPVALUE, OP_SET_UPVALUE:
		return byteInstruction(sb, name, chunk, offset)

	case OP_JUMP, OP_JUMP_IF_FALSE:
		return jumpInstruction(sb, name, 1, chunk, offset)
	case OP_LOOP:
		return jumpInstruction(sb, name, -1, chunk, offset)
	case OP_BREAK:
		// Placeholder form; final chunks never contain it.
		return jumpInstruction(sb, name, 1, chunk, offset)

	case OP_CALL:
		argCount := chunk.Code[offset+1]
		unpack := chunk.Code[offset+2]
		sb.WriteString(fmt.Sprintf("%-16s %4d (unpack %d)\n", name, argCount, unpack))
		return offset + 3

	case OP_DEFINE_OPTIONAL:
		arity := chunk.Code[offset+1]
		arityOptional := chunk.Code[offset+2]
		sb.WriteString(fmt.Sprintf("%-16s %4d %4d\n", name, arity, arityOptional))
		return offset + 3

	case OP_CLASS, OP_SUBCLASS:
		kind := chunk.Code[offset+1]
		index := chunk.Code[offset+2]
		sb.WriteString(fmt.Sprintf("%-16s kind %d %4d '%s'\n", name, kind, index, constantLabel(chunk, index)))
		return offset + 3

	case OP_SET_CLASS_VAR:
		index := chunk.Code[offset+1]
		flag := chunk.Code[offset+2]
		sb.WriteString(fmt.Sprintf("%-16s %4d '%s' (%d)\n", name, index, constantLabel(chunk, index), flag))
		return offset + 3

	case OP_INVOKE, OP_INVOKE_INTERNAL, OP_SUPER:
		argCount := chunk.Code[offset+1]
		index := chunk.Code[offset+2]
		unpack := chunk.Code[offset+3]
		sb.WriteString(fmt.Sprintf("%-16s (%d args) %4d '%s' (unpack %d)\n",
			name, argCount, index, constantLabel(chunk, index), unpack))
		return offset + 4

	case OP_CLOSURE:
		return closureInstruction(sb, name, chunk, offset)

	case OP_IMPORT_FROM:
		count := int(chunk.Code[offset+1])
		sb.WriteString(fmt.Sprintf("%-16s %4d", name, count))
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf(" '%s'", constantLabel(chunk, chunk.Code[offset+2+i])))
		}
		sb.WriteString("\n")
		return offset + 2 + count

	default:
		if name == "" {
			sb.WriteString(fmt.Sprintf("Unknown opcode %d\n", op))
			return offset + 1
		}
		sb.WriteString(name + "\n")
		return offset + 1
	}
}

func constantLabel(chunk *Chunk, index byte) string {
	if int(index) < len(chunk.Constants) {
		return chunk.Constants[index].Inspect()
	}
	return "(invalid)"
}

func constantInstruction(sb *strings.Builder, name string, chunk *Chunk, offset int) int {
	index := chunk.Code[offset+1]
	sb.WriteString(fmt.Sprintf("%-16s %4d '%s'\n", name, index, constantLabel(chunk, index)))
	return offset + 2
}

func byteInstruction(sb *strings.Builder, name string, chunk *Chunk, offset int) int {
	slot := chunk.Code[offset+1]
	sb.WriteString(fmt.Sprintf("%-16s %4d\n", name, slot))
	return offset + 2
}

func jumpInstruction(sb *strings.Builder, name string, sign int, chunk *Chunk, offset int) int {
	jump := int(chunk.Code[offset+1])<<8 | int(chunk.Code[offset+2])
	target := offset + 3 + sign*jump
	sb.WriteString(fmt.Sprintf("%-16s %4d -> %d\n", name, jump, target))
	return offset + 3
}

func closureInstruction(sb *strings.Builder, name string, chunk *Chunk, offset int) int {
	index := chunk.Code[offset+1]
	offset += 2

	if int(index) >= len(chunk.Constants) {
		sb.WriteString(fmt.Sprintf("%-16s %4d (invalid)\n", name, index))
		return offset
	}

	fn, ok := chunk.Constants[index].(*Function)
	if !ok {
		sb.WriteString(fmt.Sprintf("%-16s %4d (not a function)\n", name, index))
		return offset
	}

	sb.WriteString(fmt.Sprintf("%-16s %4d %s\n", name, index, fn.Inspect()))

	for i := 0; i < fn.UpvalueCount; i++ {
		isLocal := chunk.Code[offset]
		upIndex := chunk.Code[offset+1]
		offset += 2

		kind := "upvalue"
		if isLocal == 1 {
			kind = "local"
		}
		sb.WriteString(fmt.Sprintf("%04d    |                     %s %d\n", offset-2, kind, upIndex))
	}

	// Nested functions disassemble inline, indented.
	nested := Disassemble(fn.Chunk, fn.Inspect())
	sb.WriteString("    | " + strings.ReplaceAll(strings.TrimSuffix(nested, "\n"), "\n", "\n    | ") + "\n")

	return offset
}
