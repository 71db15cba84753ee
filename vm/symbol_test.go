package vm

import "testing"

func TestSymbolIntern(t *testing.T) {
	st := NewSymbolTable()

	a := st.Intern("foo")
	b := st.Intern("foo")
	if a != b {
		t.Fatal("interning the same name twice must return the same id")
	}

	c := st.Intern("bar")
	if a == c {
		t.Fatal("distinct names must get distinct ids")
	}

	if st.Name(a) != "foo" || st.Name(c) != "bar" {
		t.Fatal("Name does not round-trip")
	}
	if st.Len() != 2 {
		t.Fatalf("Len = %d, want 2", st.Len())
	}
}

func TestSymbolLookup(t *testing.T) {
	st := NewSymbolTable()
	if _, ok := st.Lookup("missing"); ok {
		t.Fatal("Lookup of an uninterned name succeeded")
	}
	id := st.Intern("present")
	got, ok := st.Lookup("present")
	if !ok || got != id {
		t.Fatal("Lookup does not agree with Intern")
	}
}

func TestSymbolTablesIndependent(t *testing.T) {
	// Two interpreters must not share symbol identity.
	a := NewSymbolTable()
	b := NewSymbolTable()
	a.Intern("x")
	a.Intern("y")
	if id := b.Intern("y"); id != 0 {
		t.Fatalf("fresh table assigned id %d, want 0", id)
	}
}
