// Package datum defines the immutable read-time representation of source
// forms. The reader produces Datum trees; the compiler consumes them.
// Datums are never mutated after construction and are not heap-managed.
package datum

import (
	"fmt"
	"strconv"
	"strings"
)

// Datum is a single read-time form.
type Datum interface {
	datum()
}

// Bool is a boolean literal (#t or #f).
type Bool bool

// Number is a numeric literal. All numbers fold to float64.
type Number float64

// Char is a character literal (a Unicode scalar).
type Char rune

// String is an immutable string literal.
type String string

// Symbol is an identifier. Symbols are compared by name at read time;
// the compiler interns them into identity-comparable ids.
type Symbol string

// Empty is the empty list ().
type Empty struct{}

// Pair is a cons cell. Proper lists chain Cdr fields down to Empty;
// improper lists end in any other Datum.
type Pair struct {
	Car Datum
	Cdr Datum
}

// Vector is a vector literal #(...).
type Vector struct {
	Elems []Datum
}

// AbbrevKind identifies a reader abbreviation prefix.
type AbbrevKind uint8

const (
	AbbrevQuote           AbbrevKind = iota // 'x
	AbbrevQuasiquote                        // `x
	AbbrevUnquote                           // ,x
	AbbrevUnquoteSplicing                   // ,@x
)

// String returns the special-form name an abbreviation expands to.
func (k AbbrevKind) String() string {
	switch k {
	case AbbrevQuote:
		return "quote"
	case AbbrevQuasiquote:
		return "quasiquote"
	case AbbrevUnquote:
		return "unquote"
	case AbbrevUnquoteSplicing:
		return "unquote-splicing"
	default:
		return fmt.Sprintf("AbbrevKind(%d)", uint8(k))
	}
}

// Abbrev is a quote-family abbreviation wrapping a child datum.
type Abbrev struct {
	Kind  AbbrevKind
	Inner Datum
}

func (Bool) datum()    {}
func (Number) datum()  {}
func (Char) datum()    {}
func (String) datum()  {}
func (Symbol) datum()  {}
func (Empty) datum()   {}
func (*Pair) datum()   {}
func (*Vector) datum() {}
func (*Abbrev) datum() {}

// List builds a proper list from the given elements.
func List(elems ...Datum) Datum {
	var out Datum = Empty{}
	for i := len(elems) - 1; i >= 0; i-- {
		out = &Pair{Car: elems[i], Cdr: out}
	}
	return out
}

// ImproperList builds a dotted list ending in tail. It panics if no
// elements are given, since (. x) is not a datum.
func ImproperList(elems []Datum, tail Datum) Datum {
	if len(elems) == 0 {
		panic("datum: improper list needs at least one element")
	}
	out := tail
	for i := len(elems) - 1; i >= 0; i-- {
		out = &Pair{Car: elems[i], Cdr: out}
	}
	return out
}

// IsList reports whether d is a proper list (chained pairs ending in Empty).
func IsList(d Datum) bool {
	for {
		switch t := d.(type) {
		case Empty:
			return true
		case *Pair:
			d = t.Cdr
		default:
			return false
		}
	}
}

// Elems returns the elements of a proper list. The second result is false
// if d is not a proper list.
func Elems(d Datum) ([]Datum, bool) {
	var out []Datum
	for {
		switch t := d.(type) {
		case Empty:
			return out, true
		case *Pair:
			out = append(out, t.Car)
			d = t.Cdr
		default:
			return nil, false
		}
	}
}

// Length returns the number of pairs in a proper list, or -1 for
// anything else.
func Length(d Datum) int {
	n := 0
	for {
		switch t := d.(type) {
		case Empty:
			return n
		case *Pair:
			n++
			d = t.Cdr
		default:
			return -1
		}
	}
}

// Format renders a datum in external (write) syntax.
func Format(d Datum) string {
	var sb strings.Builder
	writeDatum(&sb, d)
	return sb.String()
}

func writeDatum(sb *strings.Builder, d Datum) {
	switch t := d.(type) {
	case Bool:
		if t {
			sb.WriteString("#t")
		} else {
			sb.WriteString("#f")
		}
	case Number:
		sb.WriteString(FormatNumber(float64(t)))
	case Char:
		sb.WriteString(FormatChar(rune(t)))
	case String:
		sb.WriteString(strconv.Quote(string(t)))
	case Symbol:
		sb.WriteString(string(t))
	case Empty:
		sb.WriteString("()")
	case *Pair:
		sb.WriteByte('(')
		writeDatum(sb, t.Car)
		rest := t.Cdr
		for {
			switch r := rest.(type) {
			case Empty:
				sb.WriteByte(')')
				return
			case *Pair:
				sb.WriteByte(' ')
				writeDatum(sb, r.Car)
				rest = r.Cdr
			default:
				sb.WriteString(" . ")
				writeDatum(sb, r)
				sb.WriteByte(')')
				return
			}
		}
	case *Vector:
		sb.WriteString("#(")
		for i, e := range t.Elems {
			if i > 0 {
				sb.WriteByte(' ')
			}
			writeDatum(sb, e)
		}
		sb.WriteByte(')')
	case *Abbrev:
		switch t.Kind {
		case AbbrevQuote:
			sb.WriteByte('\'')
		case AbbrevQuasiquote:
			sb.WriteByte('`')
		case AbbrevUnquote:
			sb.WriteByte(',')
		case AbbrevUnquoteSplicing:
			sb.WriteString(",@")
		}
		writeDatum(sb, t.Inner)
	default:
		fmt.Fprintf(sb, "#<unknown datum %T>", d)
	}
}

// FormatNumber renders a float the way the printer does: integral values
// with magnitude below 1e15 print without a decimal point or exponent;
// all other values use the shortest %g form.
func FormatNumber(f float64) string {
	if f > -1e15 && f < 1e15 && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// FormatChar renders a character in #\ notation, naming space and newline.
func FormatChar(r rune) string {
	switch r {
	case ' ':
		return `#\space`
	case '\n':
		return `#\newline`
	case '\t':
		return `#\tab`
	default:
		return `#\` + string(r)
	}
}
