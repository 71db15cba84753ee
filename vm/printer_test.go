package vm_test

import (
	"strings"
	"testing"
)

func TestWriteVsDisplay(t *testing.T) {
	interp := newInterp(t)

	v := evalAll(t, interp, `"a\nb"`)
	if got := interp.WriteString(v); got != `"a\nb"` {
		t.Errorf("write string = %s", got)
	}
	if got := interp.DisplayString(v); got != "a\nb" {
		t.Errorf("display string = %s", got)
	}

	c := evalAll(t, interp, `#\x`)
	if got := interp.WriteString(c); got != `#\x` {
		t.Errorf("write char = %s", got)
	}
	if got := interp.DisplayString(c); got != "x" {
		t.Errorf("display char = %s", got)
	}
}

func TestPrintCompound(t *testing.T) {
	interp := newInterp(t)
	tests := []struct {
		src  string
		want string
	}{
		{"'(1 2 3)", "(1 2 3)"},
		{"'(1 . 2)", "(1 . 2)"},
		{"'(1 (2 3) . 4)", "(1 (2 3) . 4)"},
		{"(vector 1 'a \"s\")", `#(1 a "s")`},
		{"'()", "()"},
	}
	for _, tt := range tests {
		if got := interp.WriteString(evalAll(t, interp, tt.src)); got != tt.want {
			t.Errorf("write %q = %s, want %s", tt.src, got, tt.want)
		}
	}
}

func TestPrintProcedures(t *testing.T) {
	interp := newInterp(t)
	evalAll(t, interp, "(define (named x) x)")
	if got := interp.WriteString(evalAll(t, interp, "named")); got != "#<procedure named>" {
		t.Errorf("named procedure prints as %s", got)
	}
	if got := interp.WriteString(evalAll(t, interp, "(lambda (x) x)")); got != "#<procedure>" {
		t.Errorf("anonymous procedure prints as %s", got)
	}
	if got := interp.WriteString(evalAll(t, interp, "car")); got != "#<primitive car>" {
		t.Errorf("primitive prints as %s", got)
	}
}

func TestPrintCyclicBounded(t *testing.T) {
	interp := newInterp(t)
	v := evalAll(t, interp, `
		(define x (list 1 2))
		(set-cdr! (cdr x) x)
		x`)
	out := interp.WriteString(v)
	if len(out) > 1<<20 {
		t.Fatal("cyclic print did not stay bounded")
	}
	if !strings.Contains(out, "...") {
		t.Fatalf("cyclic print %q has no truncation marker", out[:40])
	}
}
