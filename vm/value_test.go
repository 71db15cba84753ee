package vm

import (
	"math"
	"testing"
)

func TestValueFloats(t *testing.T) {
	cases := []float64{0, 1, -1, 3.14, 1e300, -1e-300, math.Inf(1), math.Inf(-1)}
	for _, f := range cases {
		v := FromFloat(f)
		if !v.IsFloat() {
			t.Errorf("FromFloat(%v).IsFloat() = false", f)
		}
		if v.AsFloat() != f {
			t.Errorf("FromFloat(%v).AsFloat() = %v", f, v.AsFloat())
		}
		if v.IsObject() || v.IsSymbol() || v.IsChar() || v.IsBool() {
			t.Errorf("FromFloat(%v) claims a non-float tag", f)
		}
	}
}

func TestValueNaNNormalized(t *testing.T) {
	v := FromFloat(math.NaN())
	if !v.IsFloat() {
		t.Fatal("NaN should still be a float")
	}
	if !math.IsNaN(v.AsFloat()) {
		t.Fatal("NaN payload lost")
	}
}

func TestValueSpecials(t *testing.T) {
	if !True.IsBool() || !False.IsBool() {
		t.Fatal("booleans not recognized")
	}
	if True.IsFalsey() {
		t.Fatal("#t is falsey")
	}
	if !False.IsFalsey() {
		t.Fatal("#f is not falsey")
	}
	// Only #f is false in conditionals.
	for _, v := range []Value{Empty, Void, EOF, FromFloat(0)} {
		if v.IsFalsey() {
			t.Errorf("%v should be truthy", v)
		}
	}
	if Empty.IsBool() {
		t.Fatal("empty list must be distinct from booleans")
	}
	if !Empty.IsEmpty() {
		t.Fatal("Empty not recognized")
	}
}

func TestValueChars(t *testing.T) {
	for _, r := range []rune{'a', ' ', '\n', '世'} {
		v := FromChar(r)
		if !v.IsChar() || v.AsChar() != r {
			t.Errorf("char %q did not round-trip", r)
		}
		if v.IsFloat() {
			t.Errorf("char %q claims to be a float", r)
		}
	}
}

func TestValueSymbols(t *testing.T) {
	a := FromSymbol(7)
	b := FromSymbol(7)
	c := FromSymbol(8)
	if a != b {
		t.Fatal("same symbol id should compare equal")
	}
	if a == c {
		t.Fatal("distinct symbol ids should differ")
	}
	if a.SymbolID() != 7 {
		t.Fatalf("SymbolID = %d", a.SymbolID())
	}
}

func TestValueHandles(t *testing.T) {
	v := FromObject(Handle(12345))
	if !v.IsObject() || v.Handle() != 12345 {
		t.Fatal("object handle did not round-trip")
	}
	b := FromBox(Handle(99))
	if !b.IsBox() || b.Handle() != 99 {
		t.Fatal("box handle did not round-trip")
	}
	if b.IsObject() {
		t.Fatal("box must not answer IsObject")
	}
}
