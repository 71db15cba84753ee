package vm_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sadderchris/cheshire/vm"
)

func disassembleClosure(t *testing.T, interp *vm.VM, v vm.Value) string {
	t.Helper()
	cl, ok := interp.Heap.Get(v.Handle()).(*vm.Closure)
	if !ok {
		t.Fatal("value is not a closure")
	}
	return interp.DisassembleChunk(interp.Heap.Get(cl.Fn).(*vm.Chunk))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadFile(t *testing.T) {
	interp := newInterp(t)
	dir := t.TempDir()
	script := filepath.Join(dir, "lib.scm")
	writeFile(t, script, `
		(define (square x) (* x x))
		(define answer (square 8))
	`)

	if err := interp.LoadFile(script); err != nil {
		t.Fatal(err)
	}
	if got := interp.WriteString(evalAll(t, interp, "answer")); got != "64" {
		t.Fatalf("answer = %s", got)
	}
}

func TestLoadPrimitive(t *testing.T) {
	interp := newInterp(t)
	dir := t.TempDir()
	script := filepath.Join(dir, "lib.scm")
	writeFile(t, script, "(define loaded 'yes)")

	src := "(load \"" + strings.ReplaceAll(script, "\\", "\\\\") + "\") loaded"
	if got := interp.WriteString(evalAll(t, interp, src)); got != "yes" {
		t.Fatalf("loaded = %s", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	interp := newInterp(t)
	if err := interp.LoadFile(filepath.Join(t.TempDir(), "absent.scm")); err == nil {
		t.Fatal("loading a missing file must fail")
	}
}

func TestLoadErrorUnwindsToHost(t *testing.T) {
	interp := newInterp(t)
	dir := t.TempDir()
	script := filepath.Join(dir, "bad.scm")
	writeFile(t, script, "(define ok 1) (car 99)")

	if err := interp.LoadFile(script); err == nil {
		t.Fatal("runtime error in loaded file must surface to load's host")
	}
	// Forms before the failing one took effect.
	if got := interp.WriteString(evalAll(t, interp, "ok")); got != "1" {
		t.Fatalf("ok = %s", got)
	}
	// The interpreter remains usable after unwinding.
	if got := interp.WriteString(evalAll(t, interp, "(+ 1 1)")); got != "2" {
		t.Fatalf("post-error eval = %s", got)
	}
}

func TestDisassemblePrimitive(t *testing.T) {
	// disassemble writes its listing to the current output port; here we
	// only check that it runs and returns void.
	interp := newInterp(t)
	v := evalAll(t, interp, `
		(define (f x) (if x (f #f) 'done))
		(disassemble f)`)
	if !v.IsVoid() {
		t.Fatalf("disassemble returned %s, want void", interp.WriteString(v))
	}
}

func TestDisassembleListing(t *testing.T) {
	interp := newInterp(t)
	closure := evalAll(t, interp, "(define (f x) (if x (f #f) 'done)) f")
	listing := disassembleClosure(t, interp, closure)
	for _, want := range []string{"GET_GLOBAL", "JMP_IF_FALSE", "TAIL_CALL", "RETURN", "; === f ==="} {
		if !strings.Contains(listing, want) {
			t.Errorf("listing missing %q:\n%s", want, listing)
		}
	}
}
