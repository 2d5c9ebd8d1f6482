package vm

import (
	"github.com/oolong-lang/oolong/internal/diagnostics"
	"github.com/oolong-lang/oolong/internal/lexer"
	"github.com/oolong-lang/oolong/internal/object"
	"github.com/oolong-lang/oolong/internal/token"
)

// Parser holds the token stream state shared by every compiler of one
// compilation: current and previous token, the scanner, and the error
// accumulator.
type Parser struct {
	vm     *VM
	lexer  *lexer.Lexer
	module *object.Module

	current  token.Token
	previous token.Token

	hadError  bool
	panicMode bool
	errors    diagnostics.List
}

// Local is a variable slot in the function being compiled.
type Local struct {
	name token.Token

	// depth is the scope depth of the declaration, or -1 while the local
	// is declared but not yet initialized.
	depth int

	// isUpvalue marks locals captured by a nested function; endScope emits
	// OP_CLOSE_UPVALUE for them instead of OP_POP.
	isUpvalue bool

	constant bool
}

// Upvalue describes a captured variable: an index into the enclosing
// function's locals (isLocal) or its upvalues.
type Upvalue struct {
	index    byte
	isLocal  bool
	constant bool
}

// Loop tracks the innermost loop for break/continue. Loops form a stack
// threaded through enclosing.
type Loop struct {
	start      int // offset continue and the back-jump return to
	body       int // offset of the first body instruction
	end        int // offset of the exit-jump placeholder, -1 if none
	scopeDepth int
	enclosing  *Loop
}

// ClassCompiler tracks the class declaration being compiled. Classes nest in
// a stack parallel to the function compilers.
type ClassCompiler struct {
	name          token.Token
	hasSuperclass bool
	enclosing     *ClassCompiler
	staticMethod  bool
	abstract      bool

	// privateMembers records member names only dispatchable through
	// OP_INVOKE_INTERNAL.
	privateMembers map[*object.String]struct{}
}

// Compiler compiles one function. Entering a nested function pushes a new
// Compiler linked to its parent through enclosing; the chain doubles as the
// GC root set during compilation.
type Compiler struct {
	parser    *Parser
	enclosing *Compiler

	function *Function
	fnType   FunctionType

	class *ClassCompiler
	loop  *Loop

	// stringConstants dedups identifier constants within this function.
	// Keys are interned, so identity is content.
	stringConstants map[*object.String]int

	locals     [256]Local
	localCount int
	scopeDepth int

	upvalues [256]Upvalue

	// Peephole folding state: start offsets of the most recently emitted
	// instructions, and the barrier folding must not reach behind (bumped
	// whenever a jump is emitted, patched, or looped). A fold pops the
	// merged instruction off the window so chained folds keep going.
	window      []int
	foldBarrier int
}

func newCompiler(p *Parser, parent *Compiler, fnType FunctionType, level AccessLevel) *Compiler {
	c := &Compiler{
		parser:          p,
		enclosing:       parent,
		fnType:          fnType,
		stringConstants: make(map[*object.String]int),
	}
	if parent != nil {
		c.class = parent.class
	}

	p.vm.compiler = c
	c.function = newFunction(p.module, level)

	switch fnType {
	case TYPE_FUNCTION, TYPE_METHOD, TYPE_STATIC, TYPE_INITIALIZER:
		c.function.Name = p.vm.InternString(p.previous.Lexeme)
	case TYPE_TOP_LEVEL:
		// Top-level code has no name.
	}

	// Slot zero is reserved. In a method or initializer it holds the
	// receiver as "this"; otherwise it holds the function itself and
	// cannot be referenced, so it has no name.
	local := &c.locals[c.localCount]
	c.localCount++
	c.function.LocalCount = c.localCount
	local.depth = c.scopeDepth
	if fnType == TYPE_METHOD || fnType == TYPE_INITIALIZER {
		local.name = token.Synthetic("this")
	}

	return c
}

// endCompiler finishes the function: emits the implicit return, and for
// nested functions embeds the result as a constant in the parent followed by
// one (isLocal, index) pair per upvalue.
func (c *Compiler) endCompiler() *Function {
	c.emitReturn()

	fn := c.function
	if c.enclosing != nil {
		parent := c.enclosing
		parent.emitOpByte(OP_CLOSURE, parent.makeConstant(fn))

		for i := 0; i < fn.UpvalueCount; i++ {
			isLocal := byte(0)
			if c.upvalues[i].isLocal {
				isLocal = 1
			}
			parent.emitRaw(isLocal)
			parent.emitRaw(c.upvalues[i].index)
		}
	}

	c.stringConstants = nil
	c.parser.vm.compiler = c.enclosing
	return fn
}

func (p *Parser) errorAt(tok token.Token, message string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.hadError = true

	p.errors = append(p.errors, &diagnostics.Diagnostic{
		Module:  p.module.Name,
		Token:   tok,
		Message: message,
	})
}

func (p *Parser) errorAtCurrent(message string) {
	p.errorAt(p.current, message)
}

func (c *Compiler) error(message string) {
	c.parser.errorAt(c.parser.previous, message)
}

func (c *Compiler) errorAtCurrent(message string) {
	c.parser.errorAt(c.parser.current, message)
}

func (p *Parser) advance() {
	p.previous = p.current

	for {
		p.current = p.lexer.NextToken()
		if p.current.Type != token.ERROR {
			break
		}
		p.errorAtCurrent(p.current.Lexeme)
	}
}

func (c *Compiler) consume(kind token.Type, message string) {
	if c.parser.current.Type == kind {
		c.parser.advance()
		return
	}
	c.errorAtCurrent(message)
}

func (c *Compiler) check(kind token.Type) bool {
	return c.parser.current.Type == kind
}

func (c *Compiler) match(kind token.Type) bool {
	if !c.check(kind) {
		return false
	}
	c.parser.advance()
	return true
}

// synchronize leaves panic mode at the next statement boundary: after a
// semicolon, or in front of a keyword that begins a declaration.
func (p *Parser) synchronize() {
	p.panicMode = false

	for p.current.Type != token.EOF {
		if p.previous.Type == token.SEMICOLON {
			return
		}

		switch p.current.Type {
		case token.CLASS, token.DEF, token.VAR, token.FOR, token.IF,
			token.WHILE, token.BREAK, token.RETURN, token.IMPORT:
			return
		}

		p.advance()
	}
}

// Compile compiles source as module's top-level code and returns the
// resulting function. Compilation always runs to EOF; errors accumulate and
// come back as a diagnostics list, with a nil function.
func Compile(v *VM, module *object.Module, source string) (*Function, error) {
	parser := &Parser{
		vm:     v,
		lexer:  lexer.New(source),
		module: module,
	}

	c := newCompiler(parser, nil, TYPE_TOP_LEVEL, ACCESS_PUBLIC)

	parser.advance()

	if !c.match(token.EOF) {
		for {
			c.declaration()
			if c.match(token.EOF) {
				break
			}
		}
	}

	fn := c.endCompiler()

	// In the REPL the constants table lives for the whole session;
	// otherwise constness tracking ends with the compilation unit.
	if !v.repl {
		v.ClearConstants()
	}

	if parser.hadError {
		return nil, parser.errors.Err()
	}
	return fn, nil
}
