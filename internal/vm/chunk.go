package vm

import "github.com/oolong-lang/oolong/internal/object"

// Chunk represents a sequence of bytecode instructions.
type Chunk struct {
	// Code is the bytecode instructions
	Code []byte

	// Constants pool - literals, identifier names, nested functions
	Constants []object.Object

	// Lines maps bytecode offset to source line number (for errors)
	Lines []int
}

// NewChunk creates a new empty chunk.
func NewChunk() *Chunk {
	return &Chunk{
		Code:      make([]byte, 0, 64),
		Constants: make([]object.Object, 0, 8),
		Lines:     make([]int, 0, 64),
	}
}

// Write adds a byte to the chunk with line info.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// AddConstant adds a constant to the pool and returns its index. No
// deduplication happens at this level; the compiler dedups identifier
// constants itself.
func (c *Chunk) AddConstant(value object.Object) int {
	c.Constants = append(c.Constants, value)
	return len(c.Constants) - 1
}

// Patch overwrites the two bytes at offset, used to fill jump placeholders.
func (c *Chunk) Patch(offset int, hi, lo byte) {
	c.Code[offset] = hi
	c.Code[offset+1] = lo
}

// Len returns the number of bytes in the chunk.
func (c *Chunk) Len() int {
	return len(c.Code)
}

// truncate drops the last n code bytes; the constant folder uses it to
// remove instructions it has combined.
func (c *Chunk) truncate(n int) {
	c.Code = c.Code[:len(c.Code)-n]
	c.Lines = c.Lines[:len(c.Lines)-n]
}

// popConstant drops the most recently added constant.
func (c *Chunk) popConstant() {
	c.Constants = c.Constants[:len(c.Constants)-1]
}
