package vm

import (
	"github.com/oolong-lang/oolong/internal/object"
	"github.com/oolong-lang/oolong/internal/token"
)

func (c *Compiler) declaration() {
	if c.match(token.CLASS) {
		c.classDeclaration()
		if c.parser.panicMode {
			c.parser.synchronize()
		}
		return
	}

	if c.match(token.DEF) {
		c.funDeclaration()
	} else if c.match(token.VAR) {
		c.varDeclaration(false)
	} else {
		c.statement()
	}

	if c.parser.panicMode {
		c.parser.synchronize()
	}
}

func (c *Compiler) statement() {
	switch {
	case c.match(token.FOR):
		c.forStatement()
	case c.match(token.IF):
		c.ifStatement()
	case c.match(token.RETURN):
		c.returnStatement()
	case c.match(token.IMPORT):
		c.importStatement()
	case c.match(token.FROM):
		c.fromImportStatement()
	case c.match(token.BREAK):
		c.breakStatement()
	case c.match(token.WHILE):
		c.whileStatement()
	case c.match(token.LEFT_BRACE):
		c.blockStatement()
	case c.match(token.CONTINUE):
		c.continueStatement()
	default:
		c.expressionStatement()
	}
}

// blockStatement compiles a braced block. The degenerate '{};' compiles as
// an expression statement pushing EMPTY, for REPL friendliness.
func (c *Compiler) blockStatement() {
	if c.check(token.RIGHT_BRACE) {
		c.parser.advance()
		if c.match(token.SEMICOLON) {
			c.emitOp(OP_EMPTY)
			if c.parser.vm.repl && c.fnType == TYPE_TOP_LEVEL {
				c.emitOp(OP_POP_REPL)
			} else {
				c.emitOp(OP_POP)
			}
		}
		// '{ }' without a semicolon is an empty block; nothing to emit.
		return
	}

	c.beginScope()
	c.block()
	c.endScope()
}

func (c *Compiler) block() {
	for !c.check(token.RIGHT_BRACE) && !c.check(token.EOF) {
		c.declaration()
	}

	c.consume(token.RIGHT_BRACE, "Expect '}' after block.")
}

func (c *Compiler) funDeclaration() {
	global := c.parseVariable("Expect function name.")
	c.compileFunction(TYPE_FUNCTION, ACCESS_PUBLIC)
	c.defineVariable(global, false)
}

func (c *Compiler) varDeclaration(constant bool) {
	for {
		global := c.parseVariable("Expect variable name.")

		if c.match(token.EQUAL) || constant {
			// Compile the initializer.
			c.expression()
		} else {
			// Default to nil.
			c.emitOp(OP_NIL)
		}

		c.defineVariable(global, constant)

		if !c.match(token.COMMA) {
			break
		}
	}

	c.consume(token.SEMICOLON, "Expect ';' after variable declaration.")
}

// compileFunction compiles a function literal into a fresh compiler and
// leaves the closure on the parent's stack.
func (c *Compiler) compileFunction(fnType FunctionType, level AccessLevel) {
	fnCompiler := newCompiler(c.parser, c, fnType, level)

	fnCompiler.beginFunction()
	fnCompiler.consume(token.LEFT_BRACE, "Expect '{' before function body.")
	fnCompiler.block()

	// Closing the body scope emits OP_CLOSE_UPVALUE for captured locals;
	// endCompiler then adds the implicit return and emits the OP_CLOSURE in
	// the parent.
	fnCompiler.endScope()
	fnCompiler.endCompiler()
}

// beginFunction parses the parameter list into the new compiler.
func (c *Compiler) beginFunction() {
	c.beginScope()
	c.consume(token.LEFT_PAREN, "Expect '(' after function name.")

	if !c.check(token.RIGHT_PAREN) {
		fn := c.function
		optional := false
		isSpreadParam := false
		index := 0

		for {
			if isSpreadParam {
				c.error("spread parameter must be last in the parameter list")
			}

			varKeyword := c.match(token.VAR)
			isSpreadParam = c.match(token.DOT_DOT_DOT)
			c.consume(token.IDENTIFIER, "Expect parameter name.")
			paramConstant := c.identifierConstant(c.parser.previous)
			c.declareVariable(c.parser.previous)
			c.defineVariable(paramConstant, false)

			if c.fnType == TYPE_INITIALIZER && varKeyword {
				// var-prefixed constructor parameters are captured as
				// fields on the instance.
				fn.PropertyNames = append(fn.PropertyNames, paramConstant)
				fn.PropertyIndexes = append(fn.PropertyIndexes, index)
				fn.PropertyCount++
			} else if varKeyword {
				c.error("var keyword in a function definition that is not a class constructor")
			}

			if isSpreadParam {
				if c.fnType == TYPE_INITIALIZER {
					c.error("spread parameter cannot be used in a class constructor")
				}
				fn.IsVariadic = true
			}

			if c.match(token.EQUAL) {
				if isSpreadParam {
					c.error("spread parameter cannot have an optional value")
				}
				fn.ArityOptional++
				optional = true
				c.expression()
			} else {
				fn.Arity++

				if optional {
					c.error("Cannot have non-optional parameter after optional.")
				}
			}

			if fn.Arity+fn.ArityOptional > 255 {
				c.error("Cannot have more than 255 parameters.")
			}

			index++
			if !c.match(token.COMMA) {
				break
			}
		}

		if fn.ArityOptional > 0 {
			c.emitOpBytes(OP_DEFINE_OPTIONAL, byte(fn.Arity), byte(fn.ArityOptional))
		}
	}

	c.consume(token.RIGHT_PAREN, "Expect ')' after parameters.")
}

func (c *Compiler) classDeclaration() {
	c.consume(token.IDENTIFIER, "Expect class name.")
	nameConstant := c.identifierConstant(c.parser.previous)
	c.declareVariable(c.parser.previous)

	classCompiler := &ClassCompiler{
		name:           c.parser.previous,
		enclosing:      c.class,
		privateMembers: make(map[*object.String]struct{}),
	}
	c.class = classCompiler

	if c.match(token.LESS) {
		c.expression()
		classCompiler.hasSuperclass = true

		c.beginScope()

		// Bind the just-evaluated superclass to the synthetic name "super".
		c.addLocal(token.Synthetic("super"))
		c.defineVariable(0, false)

		c.emitOpBytes(OP_SUBCLASS, byte(CLASS_DEFAULT), nameConstant)
	} else {
		c.emitOpBytes(OP_CLASS, byte(CLASS_DEFAULT), nameConstant)
	}

	c.consume(token.LEFT_BRACE, "Expect '{' before class body.")
	c.parseClassBody()
	c.consume(token.RIGHT_BRACE, "Expect '}' after class body.")

	if classCompiler.hasSuperclass {
		c.endScope()
		// With a superclass the VM verifies abstract methods were defined.
		c.emitOp(OP_END_CLASS)
	}

	c.class = c.class.enclosing
	c.defineVariable(nameConstant, false)
}

func (c *Compiler) parseClassBody() {
	for !c.check(token.RIGHT_BRACE) && !c.check(token.EOF) {
		if c.match(token.VAR) {
			c.consume(token.IDENTIFIER, "Expect class variable name.")
			name := c.identifierConstant(c.parser.previous)
			c.consume(token.EQUAL, "Expect '=' after class variable identifier.")
			c.expression()
			c.emitOpBytes(OP_SET_CLASS_VAR, name, 0)

			c.consume(token.SEMICOLON, "Expect ';' after class variable declaration.")
		} else {
			c.method()
		}
	}
}

func (c *Compiler) method() {
	c.class.staticMethod = false
	fnType := TYPE_METHOD

	c.consume(token.IDENTIFIER, "Expect method name.")
	constant := c.identifierConstant(c.parser.previous)

	// A method named "init" is the initializer.
	if c.parser.previous.Lexeme == "init" {
		fnType = TYPE_INITIALIZER
	}

	if c.class.abstract && c.check(token.LEFT_PAREN) {
		c.error("Abstract methods can not have an implementation.")
	}

	c.compileFunction(fnType, ACCESS_PUBLIC)
	c.emitOpByte(OP_METHOD, constant)
}

func (c *Compiler) ifStatement() {
	c.consume(token.LEFT_PAREN, "Expect '(' after 'if'.")
	c.expression()
	c.consume(token.RIGHT_PAREN, "Expect ')' after condition.")

	// Jump to the else branch if the condition is false.
	elseJump := c.emitJump(OP_JUMP_IF_FALSE)

	c.emitOp(OP_POP) // condition
	c.statement()

	// Jump over the else branch when the if branch is taken.
	endJump := c.emitJump(OP_JUMP)

	c.patchJump(elseJump)
	c.emitOp(OP_POP) // condition

	if c.match(token.ELSE) {
		c.statement()
	}

	c.patchJump(endJump)
}

func (c *Compiler) returnStatement() {
	if c.fnType == TYPE_TOP_LEVEL {
		c.error("Cannot return from top-level code.")
	}

	if c.match(token.SEMICOLON) {
		c.emitReturn()
		return
	}

	if c.fnType == TYPE_INITIALIZER {
		c.error("Cannot return a value from an initializer.")
	}

	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after return value.")
	c.emitOp(OP_RETURN)
}

func (c *Compiler) importStatement() {
	if c.match(token.STRING) {
		lexeme := c.parser.previous.Lexeme
		path := c.parser.vm.InternString(lexeme[1 : len(lexeme)-1])
		importConstant := c.makeConstant(path)

		c.emitOpByte(OP_IMPORT, importConstant)
		c.emitOp(OP_POP)

		if c.match(token.AS) {
			importName := c.parseVariable("Expect import alias.")
			c.emitOp(OP_IMPORT_VARIABLE)
			c.defineVariable(importName, false)
		}
	}

	c.emitOp(OP_IMPORT_END)
	c.consume(token.SEMICOLON, "Expect ';' after import.")
}

func (c *Compiler) fromImportStatement() {
	if c.match(token.STRING) {
		lexeme := c.parser.previous.Lexeme
		path := c.parser.vm.InternString(lexeme[1 : len(lexeme)-1])
		importConstant := c.makeConstant(path)

		c.consume(token.IMPORT, "Expect 'import' after import path.")
		c.emitOpByte(OP_IMPORT, importConstant)
		c.emitOp(OP_POP)

		var variables []byte
		var names []token.Token

		for {
			c.consume(token.IDENTIFIER, "Expect variable name.")
			names = append(names, c.parser.previous)
			variables = append(variables, c.identifierConstant(c.parser.previous))

			if len(variables) > 255 {
				c.error("Cannot have more than 255 variables.")
			}

			if !c.match(token.COMMA) {
				break
			}
		}

		c.emitOpByte(OP_IMPORT_FROM, byte(len(variables)))
		for _, v := range variables {
			c.emitRaw(v)
		}

		// The VM pops the imported values before defining them, so
		// module-scope defines run in reverse.
		if c.scopeDepth == 0 {
			for i := len(variables) - 1; i >= 0; i-- {
				c.defineVariable(variables[i], false)
			}
		} else {
			for i := range variables {
				c.declareVariable(names[i])
				c.defineVariable(0, false)
			}
		}
	}

	c.emitOp(OP_IMPORT_END)
	c.consume(token.SEMICOLON, "Expect ';' after import.")
}

func (c *Compiler) expressionStatement() {
	p := c.parser

	// One-token lookahead to see whether this statement is an assignment:
	// the REPL prints the value of anything else. The scanner backtracks
	// one byte at a time, so rewinding the lexeme re-reads the token.
	previous := p.previous
	p.advance()
	next := p.current.Type

	for i := 0; i < len(p.current.Lexeme); i++ {
		p.lexer.Backtrack()
	}
	p.current = p.previous
	p.previous = previous

	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after expression.")

	if p.vm.repl && next != token.EQUAL && c.fnType == TYPE_TOP_LEVEL {
		c.emitOp(OP_POP_REPL)
	} else {
		c.emitOp(OP_POP)
	}
}
