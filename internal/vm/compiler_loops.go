package vm

import "github.com/oolong-lang/oolong/internal/token"

func (c *Compiler) whileStatement() {
	loop := &Loop{
		start:      c.currentChunk().Len(),
		end:        -1,
		scopeDepth: c.scopeDepth,
		enclosing:  c.loop,
	}
	c.loop = loop

	if c.check(token.LEFT_BRACE) {
		// No condition: loop on a constant true. The loop is
		// unconditional, so there is no exit jump to patch.
		c.emitOp(OP_TRUE)
	} else {
		c.consume(token.LEFT_PAREN, "Expect '(' after 'while'.")
		c.expression()
		c.consume(token.RIGHT_PAREN, "Expect ')' after condition.")

		// Jump out of the loop if the condition is false.
		loop.end = c.emitJump(OP_JUMP_IF_FALSE)
	}

	c.emitOp(OP_POP) // condition
	loop.body = c.currentChunk().Len()
	c.statement()

	// Loop back to the start.
	c.emitLoop(loop.start)
	c.endLoop()
}

func (c *Compiler) forStatement() {
	// for (var i = 0; i < 10; i = i + 1) ... lowers to:
	//
	//   var i = 0
	// start:                   <--.
	//   if !(i < 10) goto exit ---+--.
	//   goto body  ------------.  |  |
	// increment:            <--+--+--+--.
	//   i = i + 1              |  |  |  |
	//   goto start  -----------+--'  |  |
	// body:                 <--'     |  |
	//   ...                          |  |
	//   goto increment  -------------+--'
	// exit:                       <--'

	// Scope for the loop variable.
	c.beginScope()

	c.consume(token.LEFT_PAREN, "Expect '(' after 'for'.")
	if c.match(token.VAR) {
		c.varDeclaration(false)
	} else if c.match(token.SEMICOLON) {
		// No initializer.
	} else {
		c.expressionStatement()
	}

	loop := &Loop{
		start:      c.currentChunk().Len(),
		end:        -1,
		scopeDepth: c.scopeDepth,
		enclosing:  c.loop,
	}
	c.loop = loop

	// The exit condition.
	if !c.match(token.SEMICOLON) {
		c.expression()
		c.consume(token.SEMICOLON, "Expect ';' after loop condition.")

		// Jump out of the loop if the condition is false.
		loop.end = c.emitJump(OP_JUMP_IF_FALSE)
		c.emitOp(OP_POP) // condition
	}

	// Increment step.
	if !c.match(token.RIGHT_PAREN) {
		// The increment runs after the body, so jump over it for now.
		bodyJump := c.emitJump(OP_JUMP)

		incrementStart := c.currentChunk().Len()
		c.expression()
		c.emitOp(OP_POP)
		c.consume(token.RIGHT_PAREN, "Expect ')' after for clauses.")

		c.emitLoop(loop.start)
		loop.start = incrementStart

		c.patchJump(bodyJump)
	}

	// Compile the body.
	loop.body = c.currentChunk().Len()
	c.statement()

	// Jump back to the beginning (or the increment).
	c.emitLoop(loop.start)

	c.endLoop()
	c.endScope() // loop variable
}

func (c *Compiler) breakStatement() {
	if c.loop == nil {
		c.error("Cannot utilise 'break' outside of a loop.")
		return
	}

	c.consume(token.SEMICOLON, "Expected semicolon after break")

	// Discard any locals created inside the loop.
	for i := c.localCount - 1; i >= 0 && c.locals[i].depth > c.loop.scopeDepth; i-- {
		if c.locals[i].isUpvalue {
			c.emitOp(OP_CLOSE_UPVALUE)
		} else {
			c.emitOp(OP_POP)
		}
	}

	// Placeholder; endLoop rewrites it into an OP_JUMP past the loop.
	c.emitJump(OP_BREAK)
}

func (c *Compiler) continueStatement() {
	if c.loop == nil {
		c.error("Cannot utilise 'continue' outside of a loop.")
		return
	}

	c.consume(token.SEMICOLON, "Expect ';' after 'continue'.")

	// Discard any locals created inside the loop.
	for i := c.localCount - 1; i >= 0 && c.locals[i].depth > c.loop.scopeDepth; i-- {
		if c.locals[i].isUpvalue {
			c.emitOp(OP_CLOSE_UPVALUE)
		} else {
			c.emitOp(OP_POP)
		}
	}

	// Jump to the top of the innermost loop.
	c.emitLoop(c.loop.start)
}

// endLoop patches the exit jump and rewrites every OP_BREAK placeholder in
// the body into an OP_JUMP to the current position. Walking the bytecode
// needs the per-opcode operand widths.
func (c *Compiler) endLoop() {
	if c.loop.end != -1 {
		c.patchJump(c.loop.end)
		c.emitOp(OP_POP) // condition
	}

	chunk := c.currentChunk()
	i := c.loop.body
	for i < chunk.Len() {
		if Opcode(chunk.Code[i]) == OP_BREAK {
			chunk.Code[i] = byte(OP_JUMP)
			c.patchJump(i + 1)
			i += 3
		} else {
			i += 1 + operandCount(chunk.Code, chunk.Constants, i)
		}
	}

	c.loop = c.loop.enclosing
}
