package datum

import "testing"

func TestListHelpers(t *testing.T) {
	l := List(Number(1), Number(2), Number(3))
	if !IsList(l) {
		t.Fatal("List did not build a proper list")
	}
	if n := Length(l); n != 3 {
		t.Fatalf("Length = %d, want 3", n)
	}
	elems, ok := Elems(l)
	if !ok || len(elems) != 3 {
		t.Fatalf("Elems = %v, %v", elems, ok)
	}

	if !IsList(Empty{}) {
		t.Fatal("empty list is a proper list")
	}
	if Length(Empty{}) != 0 {
		t.Fatal("empty list has length 0")
	}
}

func TestImproperList(t *testing.T) {
	d := ImproperList([]Datum{Symbol("a"), Symbol("b")}, Symbol("c"))
	if IsList(d) {
		t.Fatal("dotted list must not be a proper list")
	}
	if Length(d) != -1 {
		t.Fatal("Length of improper list must be -1")
	}
	if _, ok := Elems(d); ok {
		t.Fatal("Elems of improper list must fail")
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		d    Datum
		want string
	}{
		{Bool(true), "#t"},
		{Bool(false), "#f"},
		{Number(42), "42"},
		{Number(3.5), "3.5"},
		{Number(3628800), "3628800"},
		{Char('a'), `#\a`},
		{Char(' '), `#\space`},
		{Char('\n'), `#\newline`},
		{String("hi\n"), `"hi\n"`},
		{Symbol("lambda"), "lambda"},
		{Empty{}, "()"},
		{List(Symbol("+"), Number(1), Number(2)), "(+ 1 2)"},
		{ImproperList([]Datum{Number(1)}, Number(2)), "(1 . 2)"},
		{&Vector{Elems: []Datum{Number(1), Number(2)}}, "#(1 2)"},
		{&Abbrev{Kind: AbbrevQuote, Inner: Symbol("x")}, "'x"},
		{&Abbrev{Kind: AbbrevQuasiquote, Inner: Symbol("x")}, "`x"},
		{&Abbrev{Kind: AbbrevUnquote, Inner: Symbol("x")}, ",x"},
		{&Abbrev{Kind: AbbrevUnquoteSplicing, Inner: Symbol("x")}, ",@x"},
	}
	for _, tt := range tests {
		if got := Format(tt.d); got != tt.want {
			t.Errorf("Format(%#v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestAbbrevNames(t *testing.T) {
	names := map[AbbrevKind]string{
		AbbrevQuote:           "quote",
		AbbrevQuasiquote:      "quasiquote",
		AbbrevUnquote:         "unquote",
		AbbrevUnquoteSplicing: "unquote-splicing",
	}
	for kind, want := range names {
		if kind.String() != want {
			t.Errorf("%d.String() = %q, want %q", kind, kind.String(), want)
		}
	}
}
