package vm_test

import (
	"testing"

	"github.com/sadderchris/cheshire/vm"
)

// ---------------------------------------------------------------------------
// Proper tail call tests
// ---------------------------------------------------------------------------

// TestTailCallLoop runs a million-iteration self tail call. The frame
// stack must not grow with the iteration count; this is a correctness
// requirement, not an optimization.
func TestTailCallLoop(t *testing.T) {
	interp := newInterp(t)
	got := interp.WriteString(evalAll(t, interp, `
		(let loop ((i 0))
		  (if (= i 1000000) 'done (loop (+ i 1))))`))
	if got != "done" {
		t.Fatalf("loop result = %s, want done", got)
	}
	if interp.FrameHighWater > 8 {
		t.Fatalf("frame stack grew to %d during a tail-call loop", interp.FrameHighWater)
	}
}

// TestMutualTailRecursion alternates between two procedures in tail
// position; neither direction may grow the frame stack.
func TestMutualTailRecursion(t *testing.T) {
	interp := newInterp(t)
	got := interp.WriteString(evalAll(t, interp, `
		(begin
		  (define (even? n) (if (= n 0) #t (odd? (- n 1))))
		  (define (odd? n) (if (= n 0) #f (even? (- n 1))))
		  (even? 100000))`))
	if got != "#t" {
		t.Fatalf("(even? 100000) = %s, want #t", got)
	}
	if interp.FrameHighWater > 8 {
		t.Fatalf("frame stack grew to %d during mutual tail recursion", interp.FrameHighWater)
	}
}

// TestTailCallAccumulator exercises a tail-recursive factorial with an
// accumulator, mixing arithmetic calls (non-tail) with the recursive
// tail call.
func TestTailCallAccumulator(t *testing.T) {
	interp := newInterp(t)
	got := interp.WriteString(evalAll(t, interp, `
		(begin
		  (define (fact n acc) (if (= n 0) acc (fact (- n 1) (* acc n))))
		  (fact 10 1))`))
	if got != "3628800" {
		t.Fatalf("fact = %s, want 3628800", got)
	}
	if interp.FrameHighWater > 8 {
		t.Fatalf("frame stack grew to %d", interp.FrameHighWater)
	}
}

// TestTailCallThroughBegin checks that the final expression of a begin
// inherits the tail position.
func TestTailCallThroughBegin(t *testing.T) {
	interp := newInterp(t)
	got := interp.WriteString(evalAll(t, interp, `
		(let loop ((i 0) (seen 0))
		  (if (= i 200000)
		      seen
		      (begin 'not-tail (loop (+ i 1) (+ seen 1)))))`))
	if got != "200000" {
		t.Fatalf("result = %s", got)
	}
	if interp.FrameHighWater > 8 {
		t.Fatalf("frame stack grew to %d", interp.FrameHighWater)
	}
}

// TestTailCallToNative verifies a native in tail position returns
// through the caller's frame.
func TestTailCallToNative(t *testing.T) {
	interp := newInterp(t)
	got := interp.WriteString(evalAll(t, interp, `
		(begin
		  (define (f a b) (+ a b))
		  (f 1 2))`))
	if got != "3" {
		t.Fatalf("got %s", got)
	}
}

// TestCompilerEmitsTailCall inspects generated bytecode: the recursive
// call in tail position must be TAIL_CALL.
func TestCompilerEmitsTailCall(t *testing.T) {
	interp := newInterp(t)
	evalAll(t, interp, "(define (spin) (spin))")
	closure := evalAll(t, interp, "spin")
	cl, ok := interp.Heap.Get(closure.Handle()).(*vm.Closure)
	if !ok {
		t.Fatal("spin is not a closure")
	}
	ch := interp.Heap.Get(cl.Fn).(*vm.Chunk)

	foundTail := false
	for i := 0; i < len(ch.Code); {
		op := vm.Opcode(ch.Code[i])
		if op == vm.OpTailCall {
			foundTail = true
		}
		if op == vm.OpClosure {
			t.Fatal("unexpected nested closure in spin")
		}
		n := op.OperandLen()
		if n < 0 {
			t.Fatalf("variable-length opcode %s unexpected here", op)
		}
		i += 1 + n
	}
	if !foundTail {
		t.Fatal("self call in tail position did not emit TAIL_CALL")
	}
}
