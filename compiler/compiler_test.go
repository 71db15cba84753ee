package compiler

import (
	"strings"
	"testing"

	"github.com/sadderchris/cheshire/pkg/reader"
	"github.com/sadderchris/cheshire/vm"
)

func compileSrc(t *testing.T, interp *vm.VM, src string) *vm.Chunk {
	t.Helper()
	form, err := reader.NewString(src).Read()
	if err != nil {
		t.Fatalf("read %q: %v", src, err)
	}
	thunk, err := Compile(interp, form)
	if err != nil {
		t.Fatalf("compile %q: %v", src, err)
	}
	cl := interp.Heap.Get(thunk.Handle()).(*vm.Closure)
	return interp.Heap.Get(cl.Fn).(*vm.Chunk)
}

func compileErr(t *testing.T, src string) error {
	t.Helper()
	interp := vm.New()
	form, err := reader.NewString(src).Read()
	if err != nil {
		t.Fatalf("read %q: %v", src, err)
	}
	_, cerr := Compile(interp, form)
	return cerr
}

// opcodes decodes the instruction stream of a chunk.
func opcodes(t *testing.T, interp *vm.VM, ch *vm.Chunk) []vm.Opcode {
	t.Helper()
	var out []vm.Opcode
	for i := 0; i < len(ch.Code); {
		op := vm.Opcode(ch.Code[i])
		out = append(out, op)
		n := op.OperandLen()
		if n < 0 {
			// OpClosure: 2 operand bytes plus inline descriptors.
			idx := ch.ReadU16(i + 1)
			nested := interp.Heap.Get(ch.Constants[idx].Handle()).(*vm.Chunk)
			n = 2 + 2*len(nested.Upvalues)
		}
		i += 1 + n
	}
	return out
}

func hasOp(ops []vm.Opcode, want vm.Opcode) bool {
	for _, op := range ops {
		if op == want {
			return true
		}
	}
	return false
}

func TestCompileLiteral(t *testing.T) {
	interp := vm.New()
	ch := compileSrc(t, interp, "42")
	ops := opcodes(t, interp, ch)
	if !hasOp(ops, vm.OpConst) || !hasOp(ops, vm.OpHalt) {
		t.Fatalf("literal compiled to %v", ops)
	}
}

func TestCompileBooleansUseFastOps(t *testing.T) {
	interp := vm.New()
	if ops := opcodes(t, interp, compileSrc(t, interp, "#t")); !hasOp(ops, vm.OpTrue) {
		t.Fatal("#t should use the TRUE fast constant")
	}
	if ops := opcodes(t, interp, compileSrc(t, interp, "'()")); !hasOp(ops, vm.OpNil) {
		t.Fatal("'() should use the NIL fast constant")
	}
}

func TestCompileIfJumpsForward(t *testing.T) {
	interp := vm.New()
	ch := compileSrc(t, interp, "(if #t 1 2)")
	ops := opcodes(t, interp, ch)
	if !hasOp(ops, vm.OpJumpIfFalse) || !hasOp(ops, vm.OpJump) {
		t.Fatalf("if compiled to %v", ops)
	}
	// Verify every jump displacement is forward (it is encoded unsigned,
	// so decoding it as a landing offset must stay inside the chunk).
	for i := 0; i < len(ch.Code); {
		op := vm.Opcode(ch.Code[i])
		if op.IsJump() {
			delta := ch.ReadU16(i + 1)
			if target := i + 3 + int(delta); target > len(ch.Code) {
				t.Fatalf("jump at %d lands outside the chunk", i)
			}
		}
		n := op.OperandLen()
		if n < 0 {
			idx := ch.ReadU16(i + 1)
			nested := interp.Heap.Get(ch.Constants[idx].Handle()).(*vm.Chunk)
			n = 2 + 2*len(nested.Upvalues)
		}
		i += 1 + n
	}
}

func TestTailPositionDetection(t *testing.T) {
	interp := vm.New()

	// The last body expression's call is a tail call.
	ch := compileSrc(t, interp, "(lambda () (f) (g))")
	lambda := nestedChunk(t, interp, ch, 0)
	ops := opcodes(t, interp, lambda)
	if !hasOp(ops, vm.OpCall) || !hasOp(ops, vm.OpTailCall) {
		t.Fatalf("body compiled to %v: (f) must be CALL, (g) TAIL_CALL", ops)
	}

	// Both if branches in tail position tail-call.
	ch = compileSrc(t, interp, "(lambda (x) (if x (f) (g)))")
	lambda = nestedChunk(t, interp, ch, 0)
	count := 0
	for _, op := range opcodes(t, interp, lambda) {
		if op == vm.OpTailCall {
			count++
		}
	}
	if count != 2 {
		t.Fatalf("expected 2 tail calls in if branches, found %d", count)
	}

	// The test of an if is never in tail position.
	ch = compileSrc(t, interp, "(lambda () (if (t?) 1 2))")
	lambda = nestedChunk(t, interp, ch, 0)
	if hasOp(opcodes(t, interp, lambda), vm.OpTailCall) {
		t.Fatal("if test must not be a tail call")
	}
}

// nestedChunk finds the n-th chunk constant in ch.
func nestedChunk(t *testing.T, interp *vm.VM, ch *vm.Chunk, n int) *vm.Chunk {
	t.Helper()
	seen := 0
	for _, c := range ch.Constants {
		if !c.IsObject() {
			continue
		}
		if nested, ok := interp.Heap.Get(c.Handle()).(*vm.Chunk); ok {
			if seen == n {
				return nested
			}
			seen++
		}
	}
	t.Fatalf("chunk has no nested chunk #%d", n)
	return nil
}

func TestUpvalueResolution(t *testing.T) {
	interp := vm.New()
	// y is captured directly from the enclosing lambda; the inner chunk
	// must carry one local-capture descriptor.
	ch := compileSrc(t, interp, "(lambda (y) (lambda () y))")
	outer := nestedChunk(t, interp, ch, 0)
	inner := nestedChunk(t, interp, outer, 0)
	if len(inner.Upvalues) != 1 {
		t.Fatalf("inner chunk has %d upvalues, want 1", len(inner.Upvalues))
	}
	if !inner.Upvalues[0].IsLocal {
		t.Fatal("direct capture must record is_local=true")
	}

	// Two levels of nesting re-capture through the middle chunk.
	ch = compileSrc(t, interp, "(lambda (y) (lambda () (lambda () y)))")
	outer = nestedChunk(t, interp, ch, 0)
	middle := nestedChunk(t, interp, outer, 0)
	innermost := nestedChunk(t, interp, middle, 0)
	if len(middle.Upvalues) != 1 || !middle.Upvalues[0].IsLocal {
		t.Fatal("middle chunk must capture y from its parent's locals")
	}
	if len(innermost.Upvalues) != 1 || innermost.Upvalues[0].IsLocal {
		t.Fatal("innermost chunk must re-capture through the middle upvalue")
	}
}

func TestUpvalueDeduplication(t *testing.T) {
	interp := vm.New()
	ch := compileSrc(t, interp, "(lambda (y) (lambda () (+ y y y)))")
	outer := nestedChunk(t, interp, ch, 0)
	inner := nestedChunk(t, interp, outer, 0)
	if len(inner.Upvalues) != 1 {
		t.Fatalf("repeated captures of one variable produced %d descriptors", len(inner.Upvalues))
	}
}

func TestBoxPromotionOnlyWhenAssigned(t *testing.T) {
	interp := vm.New()

	// x is set!: its binding is box-promoted.
	ch := compileSrc(t, interp, "(lambda (x) (set! x 1) x)")
	lambda := nestedChunk(t, interp, ch, 0)
	ops := opcodes(t, interp, lambda)
	if !hasOp(ops, vm.OpMakeBox) || !hasOp(ops, vm.OpBoxSet) || !hasOp(ops, vm.OpUnbox) {
		t.Fatalf("assigned local not boxed: %v", ops)
	}

	// y is never assigned: no boxing anywhere.
	ch = compileSrc(t, interp, "(lambda (y) (lambda () y))")
	lambda = nestedChunk(t, interp, ch, 0)
	if hasOp(opcodes(t, interp, lambda), vm.OpMakeBox) {
		t.Fatal("unassigned local must not be boxed")
	}
}

func TestGlobalResolution(t *testing.T) {
	interp := vm.New()
	ch := compileSrc(t, interp, "(lambda () unknown-global)")
	lambda := nestedChunk(t, interp, ch, 0)
	if !hasOp(opcodes(t, interp, lambda), vm.OpGetGlobal) {
		t.Fatal("free variable must compile to a global lookup")
	}
}

func TestMaxStackComputed(t *testing.T) {
	interp := vm.New()
	ch := compileSrc(t, interp, "(f 1 2 3 4 5)")
	// Callee plus five arguments are live at once.
	if ch.MaxStack < 6 {
		t.Fatalf("MaxStack = %d, want >= 6", ch.MaxStack)
	}
}

func TestArityDescriptors(t *testing.T) {
	interp := vm.New()

	ch := compileSrc(t, interp, "(lambda (a b) a)")
	lambda := nestedChunk(t, interp, ch, 0)
	if lambda.NumParams != 2 || lambda.Variadic {
		t.Fatalf("fixed arity: NumParams=%d Variadic=%v", lambda.NumParams, lambda.Variadic)
	}

	ch = compileSrc(t, interp, "(lambda (a . rest) a)")
	lambda = nestedChunk(t, interp, ch, 0)
	if lambda.NumParams != 2 || !lambda.Variadic {
		t.Fatalf("dotted arity: NumParams=%d Variadic=%v", lambda.NumParams, lambda.Variadic)
	}

	ch = compileSrc(t, interp, "(lambda args args)")
	lambda = nestedChunk(t, interp, ch, 0)
	if lambda.NumParams != 1 || !lambda.Variadic {
		t.Fatalf("bare-symbol arity: NumParams=%d Variadic=%v", lambda.NumParams, lambda.Variadic)
	}
}

func TestDefineNamesProcedure(t *testing.T) {
	interp := vm.New()
	ch := compileSrc(t, interp, "(define (fact n) n)")
	lambda := nestedChunk(t, interp, ch, 0)
	if lambda.Name != "fact" {
		t.Fatalf("procedure name = %q, want fact", lambda.Name)
	}
}

func TestCompileErrorMessages(t *testing.T) {
	cases := map[string]string{
		"(set! 3 4)":       "not a variable",
		"(lambda (1) x)":   "not a symbol",
		"(lambda (x) )":    "empty procedure body",
		"(if 1)":           "if expects",
		"(quote 1 2)":      "quote expects",
		"(lambda (x x) x)": "duplicate binding",
		"(unquote x)":      "not supported",
		",x":               "outside quasiquotation",
	}
	for src, fragment := range cases {
		err := compileErr(t, src)
		if err == nil {
			t.Errorf("compile %q succeeded, want error", src)
			continue
		}
		if !strings.Contains(err.Error(), fragment) {
			t.Errorf("compile %q: error %q does not mention %q", src, err, fragment)
		}
	}
}

func TestAbbreviationNormalization(t *testing.T) {
	// 'x compiles exactly like (quote x).
	interp := vm.New()
	abbrev := compileSrc(t, interp, "'x")
	explicit := compileSrc(t, interp, "(quote x)")
	if string(abbrev.Code) != string(explicit.Code) {
		t.Fatal("'x and (quote x) compiled differently")
	}
}
