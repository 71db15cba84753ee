package vm

import "testing"

func TestChunkEmitAndPatchJump(t *testing.T) {
	ch := &Chunk{}
	ch.Emit(OpTrue)
	placeholder := ch.EmitJump(OpJumpIfFalse)
	ch.Emit(OpVoid)
	ch.Emit(OpVoid)
	ch.PatchJump(placeholder)

	// Displacement is relative to the byte after the two operand bytes.
	delta := ch.ReadU16(placeholder)
	if int(delta) != 2 {
		t.Fatalf("patched displacement = %d, want 2", delta)
	}
}

func TestChunkAddConstantDedup(t *testing.T) {
	ch := &Chunk{}
	a := ch.AddConstant(FromFloat(1))
	b := ch.AddConstant(FromFloat(2))
	c := ch.AddConstant(FromFloat(1))
	if a == b {
		t.Fatal("distinct constants share an index")
	}
	if a != c {
		t.Fatal("identical constants were not deduplicated")
	}
	if len(ch.Constants) != 2 {
		t.Fatalf("constant pool has %d entries, want 2", len(ch.Constants))
	}
}

func TestChunkPositions(t *testing.T) {
	ch := &Chunk{}
	ch.AddPosition(0, 1)
	ch.AddPosition(5, 1) // same line collapses
	ch.AddPosition(9, 3)
	if got := ch.Line(0); got != 1 {
		t.Fatalf("Line(0) = %d, want 1", got)
	}
	if got := ch.Line(7); got != 1 {
		t.Fatalf("Line(7) = %d, want 1", got)
	}
	if got := ch.Line(12); got != 3 {
		t.Fatalf("Line(12) = %d, want 3", got)
	}
	if len(ch.Positions) != 2 {
		t.Fatalf("position table has %d entries, want 2", len(ch.Positions))
	}
}

func TestOpcodeMetadataComplete(t *testing.T) {
	for _, op := range AllOpcodes() {
		info := GetOpcodeInfo(op)
		if info.Name == "" {
			t.Errorf("opcode 0x%02x has no name", byte(op))
		}
	}
	if got := GetOpcodeInfo(Opcode(0xEE)).Name; got != "UNKNOWN(0xEE)" {
		t.Errorf("unknown opcode name = %q", got)
	}
}

func TestOpcodePredicates(t *testing.T) {
	if !OpJump.IsJump() || !OpJumpIfFalse.IsJump() {
		t.Fatal("jump predicates wrong")
	}
	if OpCall.IsJump() {
		t.Fatal("OpCall is not a jump")
	}
	if !OpCall.IsCall() || !OpTailCall.IsCall() {
		t.Fatal("call predicates wrong")
	}
}
