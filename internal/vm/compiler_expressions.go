package vm

import (
	"strconv"
	"strings"

	"github.com/oolong-lang/oolong/internal/object"
	"github.com/oolong-lang/oolong/internal/token"
)

// Precedence levels, lowest first.
type Precedence int

const (
	PREC_NONE       Precedence = iota
	PREC_ASSIGNMENT            // =
	PREC_OR                    // or
	PREC_AND                   // and
	PREC_EQUALITY              // == !=
	PREC_COMPARISON            // < > <= >=
	PREC_TERM                  // + -
	PREC_FACTOR                // * / %
	PREC_INDICES               // **
	PREC_UNARY                 // not -
	PREC_CALL                  // . ()
	PREC_PRIMARY
)

type prefixFn func(c *Compiler, canAssign bool)

// infixFn additionally receives the token immediately before the operator;
// dot needs it to see whether the receiver was 'this'.
type infixFn func(c *Compiler, previous token.Token, canAssign bool)

// ParseRule ties a token type to its prefix and infix behavior and the
// precedence it binds at as an infix operator.
type ParseRule struct {
	prefix     prefixFn
	infix      infixFn
	precedence Precedence
}

var rules [token.Count]ParseRule

// The rule functions recurse through parsePrecedence back into the table,
// so it is filled here rather than in the declaration.
func init() {
	rules[token.LEFT_PAREN] = ParseRule{grouping, call, PREC_CALL}
	rules[token.DOT] = ParseRule{nil, dot, PREC_CALL}
	rules[token.MINUS] = ParseRule{unary, binary, PREC_TERM}
	rules[token.PLUS] = ParseRule{nil, binary, PREC_TERM}
	rules[token.SLASH] = ParseRule{nil, binary, PREC_FACTOR}
	rules[token.STAR] = ParseRule{nil, binary, PREC_FACTOR}
	rules[token.PERCENT] = ParseRule{nil, binary, PREC_FACTOR}
	rules[token.STAR_STAR] = ParseRule{nil, binary, PREC_INDICES}
	rules[token.NOT] = ParseRule{unary, nil, PREC_NONE}
	rules[token.BANG_EQUAL] = ParseRule{nil, binary, PREC_EQUALITY}
	rules[token.EQUAL_EQUAL] = ParseRule{nil, binary, PREC_EQUALITY}
	rules[token.GREATER] = ParseRule{nil, binary, PREC_COMPARISON}
	rules[token.GREATER_EQUAL] = ParseRule{nil, binary, PREC_COMPARISON}
	rules[token.LESS] = ParseRule{nil, binary, PREC_COMPARISON}
	rules[token.LESS_EQUAL] = ParseRule{nil, binary, PREC_COMPARISON}
	rules[token.IDENTIFIER] = ParseRule{variable, nil, PREC_NONE}
	rules[token.STRING] = ParseRule{stringLiteral, nil, PREC_NONE}
	rules[token.R] = ParseRule{rString, nil, PREC_NONE}
	rules[token.NUMBER] = ParseRule{number, nil, PREC_NONE}
	rules[token.AND] = ParseRule{nil, and_, PREC_AND}
	rules[token.OR] = ParseRule{nil, or_, PREC_OR}
	rules[token.TRUE] = ParseRule{literal, nil, PREC_NONE}
	rules[token.FALSE] = ParseRule{literal, nil, PREC_NONE}
	rules[token.NIL] = ParseRule{literal, nil, PREC_NONE}
	rules[token.SUPER] = ParseRule{super_, nil, PREC_NONE}
	rules[token.THIS] = ParseRule{this_, nil, PREC_NONE}
}

func getRule(kind token.Type) *ParseRule {
	return &rules[kind]
}

func (c *Compiler) parsePrecedence(precedence Precedence) {
	p := c.parser
	p.advance()

	prefix := getRule(p.previous.Type).prefix
	if prefix == nil {
		c.error("Expect expression.")
		return
	}

	canAssign := precedence <= PREC_ASSIGNMENT
	prefix(c, canAssign)

	for precedence <= getRule(p.current.Type).precedence {
		before := p.previous
		p.advance()
		infix := getRule(p.previous.Type).infix
		infix(c, before, canAssign)
	}

	if canAssign && c.match(token.EQUAL) {
		// The '=' was never consumed, so the left side cannot be assigned.
		c.error("Invalid assignment target.")
	}
}

func (c *Compiler) expression() {
	c.parsePrecedence(PREC_ASSIGNMENT)
}

// compoundAssignments maps the compound-assignment tokens to the operator
// emitted between the read and the write of the desugared form.
var compoundAssignments = []struct {
	tok token.Type
	op  Opcode
}{
	{token.PLUS_EQUALS, OP_ADD},
	{token.MINUS_EQUALS, OP_SUBTRACT},
	{token.MULTIPLY_EQUALS, OP_MULTIPLY},
	{token.DIVIDE_EQUALS, OP_DIVIDE},
	{token.AMPERSAND_EQUALS, OP_BITWISE_AND},
	{token.CARET_EQUALS, OP_BITWISE_XOR},
	{token.PIPE_EQUALS, OP_BITWISE_OR},
}

func binary(c *Compiler, _ token.Token, _ bool) {
	operatorType := c.parser.previous.Type

	rule := getRule(operatorType)
	c.parsePrecedence(rule.precedence + 1)

	if c.foldBinary(operatorType) {
		return
	}

	switch operatorType {
	case token.BANG_EQUAL:
		c.emitOp(OP_EQUAL)
		c.emitOp(OP_NOT)
	case token.EQUAL_EQUAL:
		c.emitOp(OP_EQUAL)
	case token.GREATER:
		c.emitOp(OP_GREATER)
	case token.GREATER_EQUAL:
		c.emitOp(OP_LESS)
		c.emitOp(OP_NOT)
	case token.LESS:
		c.emitOp(OP_LESS)
	case token.LESS_EQUAL:
		c.emitOp(OP_GREATER)
		c.emitOp(OP_NOT)
	case token.PLUS:
		c.emitOp(OP_ADD)
	case token.MINUS:
		c.emitOp(OP_SUBTRACT)
	case token.STAR:
		c.emitOp(OP_MULTIPLY)
	case token.SLASH:
		c.emitOp(OP_DIVIDE)
	case token.PERCENT:
		c.emitOp(OP_MOD)
	case token.STAR_STAR:
		c.emitOp(OP_POW)
	case token.AMPERSAND:
		c.emitOp(OP_BITWISE_AND)
	case token.CARET:
		c.emitOp(OP_BITWISE_XOR)
	case token.PIPE:
		c.emitOp(OP_BITWISE_OR)
	}
}

// foldBinary rewrites CONSTANT a; CONSTANT b; <op> into a single constant
// when both operands are numbers, the two constants are the last emitted
// instructions, and no jump target lies between them.
func (c *Compiler) foldBinary(operatorType token.Type) bool {
	chunk := c.currentChunk()
	n := chunk.Len()

	last := c.lastInstr()
	prev := c.prevInstr()
	if prev < 0 || prev < c.foldBarrier {
		return false
	}
	if last != n-2 || prev != n-4 {
		return false
	}
	if Opcode(chunk.Code[last]) != OP_CONSTANT ||
		Opcode(chunk.Code[prev]) != OP_CONSTANT {
		return false
	}

	leftIndex := chunk.Code[prev+1]
	rightIndex := chunk.Code[last+1]
	if int(rightIndex) != len(chunk.Constants)-1 {
		return false
	}

	left, ok := chunk.Constants[leftIndex].(*object.Number)
	if !ok {
		return false
	}
	right, ok := chunk.Constants[rightIndex].(*object.Number)
	if !ok {
		return false
	}

	var value float64
	switch operatorType {
	case token.PLUS:
		value = left.Value + right.Value
	case token.MINUS:
		value = left.Value - right.Value
	case token.STAR:
		value = left.Value * right.Value
	case token.SLASH:
		value = left.Value / right.Value
	default:
		return false
	}

	chunk.Constants[leftIndex] = &object.Number{Value: value}
	chunk.popConstant()
	chunk.truncate(2)

	// Pop the merged-away instruction; the window top is now the surviving
	// constant, so a fold one level up can fire on it.
	c.window = c.window[:len(c.window)-1]
	return true
}

// foldUnary folds negation of a just-emitted number constant and 'not' of a
// just-emitted TRUE/FALSE, in place.
func (c *Compiler) foldUnary(operatorType token.Type) bool {
	chunk := c.currentChunk()
	n := chunk.Len()

	last := c.lastInstr()
	if last < 0 || last < c.foldBarrier {
		return false
	}

	switch operatorType {
	case token.NOT:
		if last != n-1 {
			return false
		}
		switch Opcode(chunk.Code[last]) {
		case OP_TRUE:
			chunk.Code[last] = byte(OP_FALSE)
			return true
		case OP_FALSE:
			chunk.Code[last] = byte(OP_TRUE)
			return true
		}
		return false

	case token.MINUS:
		if last != n-2 || Opcode(chunk.Code[last]) != OP_CONSTANT {
			return false
		}
		index := chunk.Code[last+1]
		number, ok := chunk.Constants[index].(*object.Number)
		if !ok {
			return false
		}
		chunk.Constants[index] = &object.Number{Value: -number.Value}
		return true
	}

	return false
}

func unary(c *Compiler, _ bool) {
	operatorType := c.parser.previous.Type
	c.parsePrecedence(PREC_UNARY)

	if c.foldUnary(operatorType) {
		return
	}

	switch operatorType {
	case token.NOT:
		c.emitOp(OP_NOT)
	case token.MINUS:
		c.emitOp(OP_NEGATE)
	}
}

func and_(c *Compiler, _ token.Token, _ bool) {
	// left operand...
	// JUMP_IF_FALSE    ------.
	// POP  (left operand)    |
	// right operand...       |
	//   <--------------------'

	// Short circuit, keeping a falsy left operand.
	endJump := c.emitJump(OP_JUMP_IF_FALSE)

	c.emitOp(OP_POP) // left operand
	c.parsePrecedence(PREC_AND)

	c.patchJump(endJump)
}

func or_(c *Compiler, _ token.Token, _ bool) {
	// left operand...
	// JUMP_IF_FALSE    ---.
	// JUMP             ---+--.
	//   <-----------------'  |
	// POP  (left operand)    |
	// right operand...       |
	//   <--------------------'

	// Short circuit, keeping a truthy left operand.
	elseJump := c.emitJump(OP_JUMP_IF_FALSE)
	endJump := c.emitJump(OP_JUMP)

	c.patchJump(elseJump)
	c.emitOp(OP_POP) // left operand

	c.parsePrecedence(PREC_OR)
	c.patchJump(endJump)
}

func (c *Compiler) argumentList(unpack *bool) int {
	argCount := 0

	if !c.check(token.RIGHT_PAREN) {
		for {
			if *unpack {
				c.errorAtCurrent("Value unpacking must be the last argument.")
			}

			if c.match(token.DOT_DOT_DOT) {
				*unpack = true
			}

			c.expression()
			argCount++

			if argCount > 255 {
				c.error("Cannot have more than 255 arguments.")
			}

			if !c.match(token.COMMA) {
				break
			}
		}
	}

	c.consume(token.RIGHT_PAREN, "Expect ')' after arguments.")
	return argCount
}

func call(c *Compiler, _ token.Token, _ bool) {
	unpack := false
	argCount := c.argumentList(&unpack)
	c.emitOpBytes(OP_CALL, byte(argCount), boolByte(unpack))
}

func dot(c *Compiler, previous token.Token, canAssign bool) {
	c.consume(token.IDENTIFIER, "Expect property name after '.'.")
	name := c.identifierConstant(c.parser.previous)

	if c.match(token.LEFT_PAREN) {
		unpack := false
		argCount := c.argumentList(&unpack)

		// Calls through 'this' or the class's own name may reach private
		// members, so they dispatch internally.
		if c.class != nil && (previous.Type == token.THIS || identifiersEqual(previous, c.class.name)) {
			c.emitOpByte(OP_INVOKE_INTERNAL, byte(argCount))
		} else {
			c.emitOpByte(OP_INVOKE, byte(argCount))
		}
		c.emitRaw(name)
		c.emitRaw(boolByte(unpack))
		return
	}

	if canAssign && c.match(token.EQUAL) {
		c.expression()
		c.emitOpByte(OP_SET_PROPERTY, name)
		return
	}

	if canAssign {
		for _, ca := range compoundAssignments {
			if c.match(ca.tok) {
				c.emitOpByte(OP_GET_PROPERTY_NO_POP, name)
				c.expression()
				c.emitOp(ca.op)
				c.emitOpByte(OP_SET_PROPERTY, name)
				return
			}
		}
	}

	c.emitOpByte(OP_GET_PROPERTY, name)
}

func literal(c *Compiler, _ bool) {
	switch c.parser.previous.Type {
	case token.FALSE:
		c.emitOp(OP_FALSE)
	case token.NIL:
		c.emitOp(OP_NIL)
	case token.TRUE:
		c.emitOp(OP_TRUE)
	}
}

func grouping(c *Compiler, _ bool) {
	c.expression()
	c.consume(token.RIGHT_PAREN, "Expect ')' after expression.")
}

func number(c *Compiler, _ bool) {
	// Underscore separators are legal inside number literals; strip them
	// before parsing.
	lexeme := strings.ReplaceAll(c.parser.previous.Lexeme, "_", "")

	value, err := strconv.ParseFloat(lexeme, 64)
	if err != nil {
		c.error("Invalid number.")
		return
	}

	c.emitConstant(&object.Number{Value: value})
}

func stringLiteral(c *Compiler, _ bool) {
	lexeme := c.parser.previous.Lexeme
	content := processEscapes(lexeme[1 : len(lexeme)-1])
	c.emitConstant(c.parser.vm.InternString(content))
}

// rString compiles r"..." literals: the bytes are preserved exactly.
func rString(c *Compiler, _ bool) {
	if c.match(token.STRING) {
		lexeme := c.parser.previous.Lexeme
		c.emitConstant(c.parser.vm.InternString(lexeme[1 : len(lexeme)-1]))
		return
	}

	c.consume(token.STRING, "Expected string after r delimiter")
}

// processEscapes decodes the escape sequences the language recognizes.
// Unknown escapes are kept as-is, backslash included.
func processEscapes(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}

	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			out = append(out, s[i])
			continue
		}

		switch s[i+1] {
		case 'n':
			out = append(out, '\n')
		case 't':
			out = append(out, '\t')
		case 'r':
			out = append(out, '\r')
		case 'v':
			out = append(out, '\v')
		case '\\':
			out = append(out, '\\')
		case '\'':
			out = append(out, '\'')
		case '"':
			out = append(out, '"')
		default:
			out = append(out, '\\', s[i+1])
		}
		i++
	}

	return string(out)
}

func variable(c *Compiler, canAssign bool) {
	c.namedVariable(c.parser.previous, canAssign)
}

// namedVariable emits the read or write of an identifier: local slot,
// flattened upvalue, read-only VM global, or module binding, in that order.
func (c *Compiler) namedVariable(name token.Token, canAssign bool) {
	var getOp, setOp Opcode

	arg := c.resolveLocal(name, false)
	if arg != -1 {
		getOp = OP_GET_LOCAL
		setOp = OP_SET_LOCAL
	} else if arg = c.resolveUpvalue(name); arg != -1 {
		getOp = OP_GET_UPVALUE
		setOp = OP_SET_UPVALUE
	} else {
		arg = int(c.identifierConstant(name))
		if c.parser.vm.hasGlobal(name.Lexeme) {
			// VM globals have no set variant.
			getOp = OP_GET_GLOBAL
			canAssign = false
		} else {
			getOp = OP_GET_MODULE
			setOp = OP_SET_MODULE
		}
	}

	if canAssign && c.match(token.EQUAL) {
		c.checkConst(setOp, arg)
		c.expression()
		c.emitOpByte(setOp, byte(arg))
		return
	}

	if canAssign {
		for _, ca := range compoundAssignments {
			if c.match(ca.tok) {
				// x op= e desugars to: get x; e; op; set x.
				c.checkConst(setOp, arg)
				c.namedVariable(name, false)
				c.expression()
				c.emitOp(ca.op)
				c.emitOpByte(setOp, byte(arg))
				return
			}
		}
	}

	c.emitOpByte(getOp, byte(arg))
}

func (c *Compiler) pushSuperclass() {
	if c.class == nil {
		return
	}
	c.namedVariable(token.Synthetic("super"), false)
}

func super_(c *Compiler, _ bool) {
	if c.class == nil {
		c.error("Cannot utilise 'super' outside of a class.")
	} else if !c.class.hasSuperclass {
		c.error("Cannot utilise 'super' in a class with no superclass.")
	}

	c.consume(token.DOT, "Expect '.' after 'super'.")
	c.consume(token.IDENTIFIER, "Expect superclass method name.")
	name := c.identifierConstant(c.parser.previous)

	// Push the receiver.
	c.namedVariable(token.Synthetic("this"), false)

	if c.match(token.LEFT_PAREN) {
		unpack := false
		argCount := c.argumentList(&unpack)

		c.pushSuperclass()
		c.emitOpByte(OP_SUPER, byte(argCount))
		c.emitRaw(name)
		c.emitRaw(boolByte(unpack))
	} else {
		c.pushSuperclass()
		c.emitOpByte(OP_GET_SUPER, name)
	}
}

func this_(c *Compiler, _ bool) {
	if c.class == nil {
		c.error("Cannot utilise 'this' outside of a class.")
	} else if c.class.staticMethod {
		c.error("Cannot utilise 'this' inside a static method.")
	} else {
		variable(c, false)
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
