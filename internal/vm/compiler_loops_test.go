package vm

import (
	"testing"
)

func TestForLoopWithBreak(t *testing.T) {
	fn := compileSource(t, "for (var i = 0; i < 3; i = i + 1) { break; }")

	chunk := fn.Chunk

	// No break placeholder survives endLoop.
	if countOps(chunk, OP_BREAK) != 0 {
		t.Errorf("OP_BREAK left in final bytecode: %v", opNames(ops(chunk)))
	}

	// One exit check.
	if countOps(chunk, OP_JUMP_IF_FALSE) != 1 {
		t.Errorf("expected one JUMP_IF_FALSE, got %v", opNames(ops(chunk)))
	}

	// Two back-jumps: one to the condition after the increment, and
	// exactly one into the increment after the body.
	var loops []Instruction
	for _, ins := range Instructions(chunk) {
		if ins.Op == OP_LOOP {
			loops = append(loops, ins)
		}
	}
	if len(loops) != 2 {
		t.Fatalf("expected two OP_LOOP, got %d", len(loops))
	}

	// The first LOOP closes the increment and its target is the condition
	// start; the second closes the body and must target the increment,
	// which begins right after the first JUMP's placeholder.
	first := loops[0]
	second := loops[1]
	firstTarget := loopTarget(first)
	secondTarget := loopTarget(second)

	if secondTarget <= firstTarget {
		t.Errorf("body back-jump should target the increment (after the condition): condition=%d increment=%d",
			firstTarget, secondTarget)
	}
}

func loopTarget(ins Instruction) int {
	next := ins.Offset + 3
	return next - (int(ins.Operands[0])<<8 | int(ins.Operands[1]))
}

func TestForLoopWithoutClauses(t *testing.T) {
	fn := compileSource(t, "for (;;) { break; }")

	if countOps(fn.Chunk, OP_BREAK) != 0 {
		t.Errorf("OP_BREAK left in final bytecode")
	}
	if countOps(fn.Chunk, OP_JUMP_IF_FALSE) != 0 {
		t.Errorf("unconditional for loop should have no exit check")
	}
	if countOps(fn.Chunk, OP_LOOP) != 1 {
		t.Errorf("expected one OP_LOOP, got %v", opNames(ops(fn.Chunk)))
	}
}

func TestWhileLoop(t *testing.T) {
	fn := compileSource(t, "var i = 0; while (i < 3) { i = i + 1; }")

	if countOps(fn.Chunk, OP_LOOP) != 1 {
		t.Errorf("expected one OP_LOOP, got %v", opNames(ops(fn.Chunk)))
	}
	if countOps(fn.Chunk, OP_JUMP_IF_FALSE) != 1 {
		t.Errorf("expected one JUMP_IF_FALSE, got %v", opNames(ops(fn.Chunk)))
	}
}

func TestWhileWithoutCondition(t *testing.T) {
	// 'while {' loops on a constant true condition; the loop is
	// unconditional, so no exit jump is emitted.
	fn := compileSource(t, "while { break; }")

	instructions := Instructions(fn.Chunk)
	if instructions[0].Op != OP_TRUE {
		t.Errorf("expected TRUE condition, got %v", opNames(ops(fn.Chunk)))
	}
	if countOps(fn.Chunk, OP_JUMP_IF_FALSE) != 0 {
		t.Errorf("unconditional while should have no exit check: %v", opNames(ops(fn.Chunk)))
	}
	if countOps(fn.Chunk, OP_BREAK) != 0 {
		t.Errorf("OP_BREAK left in final bytecode")
	}
}

func TestContinue(t *testing.T) {
	fn := compileSource(t, "while (true) { continue; }")

	// The continue and the loop end both jump back to the condition.
	if countOps(fn.Chunk, OP_LOOP) != 2 {
		t.Errorf("expected two OP_LOOP, got %v", opNames(ops(fn.Chunk)))
	}
}

func TestContinuePopsLoopLocals(t *testing.T) {
	fn := compileSource(t, "while (true) { var a = 1; continue; }")

	// 'a' is live at the continue, so it pops before the back-jump.
	var sawPopBeforeLoop bool
	instructions := Instructions(fn.Chunk)
	for i := 1; i < len(instructions); i++ {
		if instructions[i].Op == OP_LOOP && instructions[i-1].Op == OP_POP {
			sawPopBeforeLoop = true
		}
	}
	if !sawPopBeforeLoop {
		t.Errorf("continue should pop loop locals first: %v", opNames(ops(fn.Chunk)))
	}
}

func TestNestedLoops(t *testing.T) {
	fn := compileSource(t, `
		while (true) {
			while (true) { break; }
			break;
		}
	`)

	if countOps(fn.Chunk, OP_BREAK) != 0 {
		t.Errorf("OP_BREAK left in final bytecode: %v", opNames(ops(fn.Chunk)))
	}
	if countOps(fn.Chunk, OP_LOOP) != 2 {
		t.Errorf("expected two OP_LOOP, got %v", opNames(ops(fn.Chunk)))
	}
}

func TestBreakInsideNestedScope(t *testing.T) {
	// The break discards the block's local before jumping out.
	fn := compileSource(t, "while (true) { var a = 1; { var b = 2; break; } }")

	if countOps(fn.Chunk, OP_BREAK) != 0 {
		t.Errorf("OP_BREAK left in final bytecode: %v", opNames(ops(fn.Chunk)))
	}
}

func TestLoopInsideFunction(t *testing.T) {
	fn := compileSource(t, `
		def count(n) {
			for (var i = 0; i < n; i = i + 1) {
				if (i == 2) { break; }
			}
		}
	`)

	count := functionConstants(fn.Chunk)[0]
	if countOps(count.Chunk, OP_BREAK) != 0 {
		t.Errorf("OP_BREAK left in function bytecode: %v", opNames(ops(count.Chunk)))
	}
}
