package vm

import (
	"github.com/oolong-lang/oolong/internal/object"
	"github.com/oolong-lang/oolong/internal/token"
)

func (c *Compiler) currentChunk() *Chunk {
	return c.function.Chunk
}

// beginScope starts a new scope.
func (c *Compiler) beginScope() {
	c.scopeDepth++
}

// endScope ends the current scope, popping its locals in reverse
// declaration order. Captured locals are closed instead of popped.
func (c *Compiler) endScope() {
	c.scopeDepth--

	for c.localCount > 0 && c.locals[c.localCount-1].depth > c.scopeDepth {
		if c.locals[c.localCount-1].isUpvalue {
			c.emitOp(OP_CLOSE_UPVALUE)
		} else {
			c.emitOp(OP_POP)
		}
		c.localCount--
	}
}

func identifiersEqual(a, b token.Token) bool {
	return a.Lexeme == b.Lexeme
}

// identifierConstant returns the constant-pool index for name, reusing the
// existing entry when this function already holds it.
func (c *Compiler) identifierConstant(name token.Token) byte {
	s := c.parser.vm.InternString(name.Lexeme)
	if index, ok := c.stringConstants[s]; ok {
		return byte(index)
	}

	index := c.makeConstant(s)
	c.stringConstants[s] = int(index)
	return index
}

// resolveLocal looks name up in the local slots, most nested first so inner
// declarations shadow outer ones.
func (c *Compiler) resolveLocal(name token.Token, inFunction bool) int {
	for i := c.localCount - 1; i >= 0; i-- {
		local := &c.locals[i]
		if identifiersEqual(name, local.name) {
			if !inFunction && local.depth == -1 {
				c.error("Cannot read local variable in its own initializer.")
			}
			return i
		}
	}

	return -1
}

// addUpvalue records a captured variable, coalescing duplicates: an existing
// upvalue with the same (index, isLocal) is returned unchanged.
func (c *Compiler) addUpvalue(index byte, isLocal, constant bool) int {
	upvalueCount := c.function.UpvalueCount
	for i := 0; i < upvalueCount; i++ {
		upvalue := &c.upvalues[i]
		if upvalue.index == index && upvalue.isLocal == isLocal {
			return i
		}
	}

	if upvalueCount == 256 {
		c.error("Too many closure variables in function.")
		return 0
	}

	c.upvalues[upvalueCount] = Upvalue{index: index, isLocal: isLocal, constant: constant}
	c.function.UpvalueCount++
	return upvalueCount
}

// resolveUpvalue looks name up in the enclosing compilers. Finding it as a
// local there marks that local captured; otherwise the recursion gives every
// intermediate function its own upvalue, flattening the closure so a deeply
// nested function reaches a distant local in one hop per level.
func (c *Compiler) resolveUpvalue(name token.Token) int {
	if c.enclosing == nil {
		return -1
	}

	if local := c.enclosing.resolveLocal(name, true); local != -1 {
		c.enclosing.locals[local].isUpvalue = true
		return c.addUpvalue(byte(local), true, c.enclosing.locals[local].constant)
	}

	if upvalue := c.enclosing.resolveUpvalue(name); upvalue != -1 {
		return c.addUpvalue(byte(upvalue), false, c.enclosing.upvalues[upvalue].constant)
	}

	return -1
}

func (c *Compiler) addLocal(name token.Token) {
	if c.localCount == 256 {
		c.error("Too many local variables in function.")
		return
	}

	// Declared but not yet defined.
	c.locals[c.localCount] = Local{name: name, depth: -1}
	c.localCount++
	if c.localCount > c.function.LocalCount {
		c.function.LocalCount = c.localCount
	}
}

// declareVariable reserves a slot for name if we are in a local scope.
// Module-level variables are implicitly declared.
func (c *Compiler) declareVariable(name token.Token) {
	if c.scopeDepth == 0 {
		return
	}

	for i := c.localCount - 1; i >= 0; i-- {
		local := &c.locals[i]
		if local.depth != -1 && local.depth < c.scopeDepth {
			break
		}
		if identifiersEqual(name, local.name) {
			c.parser.errorAt(name, "Variable with this name already declared in this scope.")
		}
	}

	c.addLocal(name)
}

// parseVariable consumes a variable name. At module scope the name becomes a
// constant; in a local scope it occupies a slot.
func (c *Compiler) parseVariable(errorMessage string) byte {
	c.consume(token.IDENTIFIER, errorMessage)

	if c.scopeDepth == 0 {
		return c.identifierConstant(c.parser.previous)
	}

	c.declareVariable(c.parser.previous)
	return 0
}

func (c *Compiler) defineVariable(global byte, constant bool) {
	if c.scopeDepth == 0 {
		if constant {
			if name, ok := c.currentChunk().Constants[global].(*object.String); ok {
				c.parser.vm.constants[name] = struct{}{}
			}
		}
		c.emitOpByte(OP_DEFINE_MODULE, global)
		return
	}

	// Mark the local as defined now.
	c.locals[c.localCount-1].depth = c.scopeDepth
	c.locals[c.localCount-1].constant = constant
}

// checkConst rejects assignment when the target binding is constant.
func (c *Compiler) checkConst(setOp Opcode, arg int) {
	switch setOp {
	case OP_SET_LOCAL:
		if c.locals[arg].constant {
			c.error("Cannot assign to a constant.")
		}
	case OP_SET_UPVALUE:
		if c.upvalues[arg].constant {
			c.error("Cannot assign to a constant.")
		}
	case OP_SET_MODULE:
		if name, ok := c.currentChunk().Constants[arg].(*object.String); ok {
			if c.parser.vm.isModuleConstant(name) {
				c.error("Cannot assign to a constant.")
			}
		}
	}
}

// Emit helpers. Every instruction goes through emitOp so the folding window
// always knows where the last two instructions begin; emitRaw appends
// operand bytes only.

// note records the start offset of a just-emitted instruction. The window
// only ever needs its top two entries at once, but folds pop one entry per
// merge, so a little depth lets nested folds keep going.
func (c *Compiler) note(offset int) {
	c.window = append(c.window, offset)
	if len(c.window) > 32 {
		c.window = c.window[len(c.window)-32:]
	}
}

// lastInstr returns the start offset of the most recent instruction, or -1.
func (c *Compiler) lastInstr() int {
	if len(c.window) == 0 {
		return -1
	}
	return c.window[len(c.window)-1]
}

// prevInstr returns the start offset of the instruction before it, or -1.
func (c *Compiler) prevInstr() int {
	if len(c.window) < 2 {
		return -1
	}
	return c.window[len(c.window)-2]
}

func (c *Compiler) emitRaw(b byte) {
	c.currentChunk().Write(b, c.parser.previous.Line)
}

func (c *Compiler) emitOp(op Opcode) {
	c.note(c.currentChunk().Len())
	c.emitRaw(byte(op))
}

func (c *Compiler) emitOpByte(op Opcode, operand byte) {
	c.emitOp(op)
	c.emitRaw(operand)
}

func (c *Compiler) emitOpBytes(op Opcode, b1, b2 byte) {
	c.emitOp(op)
	c.emitRaw(b1)
	c.emitRaw(b2)
}

// emitJump writes op plus a two-byte placeholder and returns the offset of
// the placeholder for patchJump.
func (c *Compiler) emitJump(op Opcode) int {
	c.emitOp(op)
	c.emitRaw(0xff)
	c.emitRaw(0xff)
	c.foldBarrier = c.currentChunk().Len()
	return c.currentChunk().Len() - 2
}

// patchJump fills a placeholder emitted by emitJump with the distance to the
// current end of the chunk.
func (c *Compiler) patchJump(offset int) {
	// -2 to adjust for the offset bytes themselves.
	jump := c.currentChunk().Len() - offset - 2

	if jump > 0xffff {
		c.error("Too much code to jump over.")
	}

	c.currentChunk().Patch(offset, byte(jump>>8), byte(jump))
	if c.currentChunk().Len() > c.foldBarrier {
		c.foldBarrier = c.currentChunk().Len()
	}
}

func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(OP_LOOP)

	offset := c.currentChunk().Len() - loopStart + 2
	if offset > 0xffff {
		c.error("Loop body too large.")
	}

	c.emitRaw(byte(offset >> 8))
	c.emitRaw(byte(offset))
	c.foldBarrier = c.currentChunk().Len()
}

func (c *Compiler) emitReturn() {
	// An initializer automatically returns "this".
	if c.fnType == TYPE_INITIALIZER {
		c.emitOpByte(OP_GET_LOCAL, 0)
	} else {
		c.emitOp(OP_NIL)
	}

	c.emitOp(OP_RETURN)
}

func (c *Compiler) makeConstant(value object.Object) byte {
	constant := c.currentChunk().AddConstant(value)
	if constant > 255 {
		c.error("Too many constants in one chunk.")
		return 0
	}

	return byte(constant)
}

func (c *Compiler) emitConstant(value object.Object) {
	c.emitOpByte(OP_CONSTANT, c.makeConstant(value))
}
