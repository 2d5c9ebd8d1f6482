package vm

import (
	"testing"

	"github.com/oolong-lang/oolong/internal/object"
)

func TestClassDeclaration(t *testing.T) {
	fn := compileSource(t, "class A { }")

	assertOps(t, fn.Chunk, OP_CLASS, OP_DEFINE_MODULE, OP_NIL, OP_RETURN)

	instructions := Instructions(fn.Chunk)
	class := instructions[0]
	if class.Operands[0] != byte(CLASS_DEFAULT) {
		t.Errorf("class kind: got=%d, want default", class.Operands[0])
	}
	name := fn.Chunk.Constants[class.Operands[1]].(*object.String)
	if name.Value != "A" {
		t.Errorf("class name constant: got=%q, want A", name.Value)
	}
}

func TestClassVariables(t *testing.T) {
	fn := compileSource(t, "class A { var count = 0; }")

	var found *Instruction
	for _, ins := range Instructions(fn.Chunk) {
		if ins.Op == OP_SET_CLASS_VAR {
			ins := ins
			found = &ins
		}
	}
	if found == nil {
		t.Fatalf("no SET_CLASS_VAR: %v", opNames(ops(fn.Chunk)))
	}

	name := fn.Chunk.Constants[found.Operands[0]].(*object.String)
	if name.Value != "count" {
		t.Errorf("class var name: got=%q, want count", name.Value)
	}
	if found.Operands[1] != 0 {
		t.Errorf("class var flag: got=%d, want 0", found.Operands[1])
	}
}

func TestMethodCompilation(t *testing.T) {
	fn := compileSource(t, "class A { greet() { return 1; } }")

	if countOps(fn.Chunk, OP_METHOD) != 1 {
		t.Fatalf("expected one METHOD, got %v", opNames(ops(fn.Chunk)))
	}

	greet := functionConstants(fn.Chunk)[0]
	if greet.Name.Value != "greet" {
		t.Errorf("method name: got=%q", greet.Name.Value)
	}
}

func TestInitializer(t *testing.T) {
	fn := compileSource(t, "class A { init(var x) {} }")

	init := functionConstants(fn.Chunk)[0]

	// The var-prefixed parameter is recorded as a property.
	if init.PropertyCount != 1 {
		t.Errorf("property count: got=%d, want=1", init.PropertyCount)
	}
	if len(init.PropertyIndexes) != 1 || init.PropertyIndexes[0] != 0 {
		t.Errorf("property indexes: got=%v, want [0]", init.PropertyIndexes)
	}

	// An initializer implicitly returns 'this' (slot 0).
	instructions := Instructions(init.Chunk)
	last := instructions[len(instructions)-1]
	beforeLast := instructions[len(instructions)-2]
	if last.Op != OP_RETURN || beforeLast.Op != OP_GET_LOCAL || beforeLast.Operands[0] != 0 {
		t.Errorf("initializer epilogue: got=%v, want GET_LOCAL 0; RETURN", opNames(ops(init.Chunk)))
	}
}

func TestSubclass(t *testing.T) {
	fn := compileSource(t, `
		class A { init(var x) {} }
		class B < A { init() { super.init(); } }
	`)

	// B's declaration evaluates the superclass, emits SUBCLASS, and closes
	// the class with END_CLASS.
	if countOps(fn.Chunk, OP_SUBCLASS) != 1 {
		t.Fatalf("expected one SUBCLASS, got %v", opNames(ops(fn.Chunk)))
	}
	if countOps(fn.Chunk, OP_END_CLASS) != 1 {
		t.Errorf("expected END_CLASS after subclass body")
	}

	// The scope binding 'super' closes it: B.init captures it as an
	// upvalue.
	if countOps(fn.Chunk, OP_CLOSE_UPVALUE) != 1 {
		t.Errorf("expected CLOSE_UPVALUE for the captured 'super': %v", opNames(ops(fn.Chunk)))
	}

	var bInit *Function
	for _, nested := range functionConstants(fn.Chunk) {
		if nested.Name.Value == "init" && nested.UpvalueCount == 1 {
			bInit = nested
		}
	}
	if bInit == nil {
		t.Fatal("B.init not found or did not capture 'super'")
	}

	// super.init() pushes the receiver, then the superclass, then invokes:
	// GET_LOCAL 0; GET_UPVALUE 0; SUPER 0 <init-const> 0.
	instructions := Instructions(bInit.Chunk)
	if instructions[0].Op != OP_GET_LOCAL || instructions[0].Operands[0] != 0 {
		t.Fatalf("expected GET_LOCAL 0 first, got %v", opNames(ops(bInit.Chunk)))
	}
	if instructions[1].Op != OP_GET_UPVALUE || instructions[1].Operands[0] != 0 {
		t.Fatalf("expected GET_UPVALUE 0 second, got %v", opNames(ops(bInit.Chunk)))
	}
	super := instructions[2]
	if super.Op != OP_SUPER {
		t.Fatalf("expected SUPER third, got %v", opNames(ops(bInit.Chunk)))
	}
	if super.Operands[0] != 0 || super.Operands[2] != 0 {
		t.Errorf("SUPER operands: got=%v, want argCount 0, unpack 0", super.Operands)
	}
	name := bInit.Chunk.Constants[super.Operands[1]].(*object.String)
	if name.Value != "init" {
		t.Errorf("SUPER name constant: got=%q, want init", name.Value)
	}
}

func TestInvokeInternal(t *testing.T) {
	fn := compileSource(t, `
		class A {
			helper() { return 1; }
			run() { return this.helper(); }
		}
	`)

	var run *Function
	for _, nested := range functionConstants(fn.Chunk) {
		if nested.Name.Value == "run" {
			run = nested
		}
	}

	// Calls through 'this' dispatch internally.
	if countOps(run.Chunk, OP_INVOKE_INTERNAL) != 1 {
		t.Errorf("expected INVOKE_INTERNAL for this.helper(), got %v", opNames(ops(run.Chunk)))
	}
}

func TestInvokeExternal(t *testing.T) {
	fn := compileSource(t, "var obj = 1; obj.run();")

	if countOps(fn.Chunk, OP_INVOKE) != 1 {
		t.Errorf("expected INVOKE for obj.run(), got %v", opNames(ops(fn.Chunk)))
	}
}

func TestPropertyAccess(t *testing.T) {
	fn := compileSource(t, "var obj = 1; obj.field = 2; obj.field; obj.field += 3;")

	if countOps(fn.Chunk, OP_SET_PROPERTY) != 2 {
		t.Errorf("expected two SET_PROPERTY, got %v", opNames(ops(fn.Chunk)))
	}
	if countOps(fn.Chunk, OP_GET_PROPERTY) != 1 {
		t.Errorf("expected one GET_PROPERTY, got %v", opNames(ops(fn.Chunk)))
	}
	// Compound assignment keeps the receiver around for the write.
	if countOps(fn.Chunk, OP_GET_PROPERTY_NO_POP) != 1 {
		t.Errorf("expected one GET_PROPERTY_NO_POP, got %v", opNames(ops(fn.Chunk)))
	}
}

func TestThisPropertyAssignment(t *testing.T) {
	// this.x behaves like any property access; assignment is allowed in an
	// assignment context.
	fn := compileSource(t, "class A { init() { this.x = 1; } }")

	init := functionConstants(fn.Chunk)[0]
	if countOps(init.Chunk, OP_SET_PROPERTY) != 1 {
		t.Errorf("expected SET_PROPERTY for this.x, got %v", opNames(ops(init.Chunk)))
	}
}

func TestMethodsAreConstantsOfTheEnclosingChunk(t *testing.T) {
	fn := compileSource(t, "class A { one() {} two() {} }")

	if len(functionConstants(fn.Chunk)) != 2 {
		t.Errorf("expected both methods in the class chunk's pool")
	}
	if countOps(fn.Chunk, OP_METHOD) != 2 {
		t.Errorf("expected two METHOD, got %v", opNames(ops(fn.Chunk)))
	}
}
