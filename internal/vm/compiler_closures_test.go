package vm

import (
	"testing"
)

func TestUpvalueCapture(t *testing.T) {
	fn := compileSource(t, `
		def outer() {
			var a = 1;
			def inner() { return a; }
			return inner;
		}
	`)

	outer := functionConstants(fn.Chunk)[0]
	if outer.Name.Value != "outer" {
		t.Fatalf("expected outer, got %s", outer.Inspect())
	}

	inners := functionConstants(outer.Chunk)
	if len(inners) != 1 {
		t.Fatalf("expected one nested function, got %d", len(inners))
	}
	inner := inners[0]

	if inner.UpvalueCount != 1 {
		t.Fatalf("inner upvalue count: got=%d, want=1", inner.UpvalueCount)
	}
	if outer.UpvalueCount != 0 {
		t.Errorf("outer upvalue count: got=%d, want=0", outer.UpvalueCount)
	}

	// Inner reads the captured variable through upvalue 0.
	innerOps := ops(inner.Chunk)
	if innerOps[0] != OP_GET_UPVALUE {
		t.Errorf("inner chunk: got=%v, want GET_UPVALUE first", opNames(innerOps))
	}

	// Outer's CLOSURE carries one (isLocal=1, index=slot of a) pair: a is
	// the first named local after the reserved slot.
	var closure *Instruction
	for _, ins := range Instructions(outer.Chunk) {
		if ins.Op == OP_CLOSURE {
			closure = &ins
			break
		}
	}
	if closure == nil {
		t.Fatal("no OP_CLOSURE in outer")
	}
	if len(closure.Operands) != 3 {
		t.Fatalf("CLOSURE operands: got=%v, want constant + one pair", closure.Operands)
	}
	if closure.Operands[1] != 1 || closure.Operands[2] != 1 {
		t.Errorf("CLOSURE pair: got=(%d, %d), want (1, 1)", closure.Operands[1], closure.Operands[2])
	}

	// The captured local is closed, not popped, when outer's scope ends.
	if countOps(outer.Chunk, OP_CLOSE_UPVALUE) != 1 {
		t.Errorf("expected one CLOSE_UPVALUE in outer, got %v", opNames(ops(outer.Chunk)))
	}
}

func TestUpvalueFlattening(t *testing.T) {
	fn := compileSource(t, `
		def a() {
			var x = 1;
			def b() {
				def c() { return x; }
			}
		}
	`)

	fa := functionConstants(fn.Chunk)[0]
	fb := functionConstants(fa.Chunk)[0]
	fc := functionConstants(fb.Chunk)[0]

	// Every intermediate function gains an upvalue entry chaining to its
	// parent.
	if fb.UpvalueCount != 1 || fc.UpvalueCount != 1 {
		t.Fatalf("upvalue counts: b=%d c=%d, want 1 and 1", fb.UpvalueCount, fc.UpvalueCount)
	}

	// b captures a's local directly; c captures b's upvalue.
	var bClosure, cClosure *Instruction
	for _, ins := range Instructions(fa.Chunk) {
		if ins.Op == OP_CLOSURE {
			ins := ins
			bClosure = &ins
		}
	}
	for _, ins := range Instructions(fb.Chunk) {
		if ins.Op == OP_CLOSURE {
			ins := ins
			cClosure = &ins
		}
	}

	if bClosure.Operands[1] != 1 {
		t.Errorf("b's capture should be a local, got isLocal=%d", bClosure.Operands[1])
	}
	if cClosure.Operands[1] != 0 || cClosure.Operands[2] != 0 {
		t.Errorf("c's capture should be upvalue 0, got (%d, %d)", cClosure.Operands[1], cClosure.Operands[2])
	}
}

func TestUpvalueDedup(t *testing.T) {
	fn := compileSource(t, `
		def outer() {
			var a = 1;
			def inner() { return a + a; }
		}
	`)

	outer := functionConstants(fn.Chunk)[0]
	inner := functionConstants(outer.Chunk)[0]

	// Both reads coalesce onto one upvalue.
	if inner.UpvalueCount != 1 {
		t.Errorf("upvalue count: got=%d, want=1", inner.UpvalueCount)
	}
}

func TestBlockScopeClosesUpvalues(t *testing.T) {
	fn := compileSource(t, `
		def f() {
			{
				var a = 1;
				def g() { return a; }
			}
		}
	`)

	ff := functionConstants(fn.Chunk)[0]

	// The block's endScope closes the captured 'a'.
	if countOps(ff.Chunk, OP_CLOSE_UPVALUE) < 1 {
		t.Errorf("expected CLOSE_UPVALUE at block end, got %v", opNames(ops(ff.Chunk)))
	}
}
