package vm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sadderchris/cheshire/pkg/datum"
)

// ---------------------------------------------------------------------------
// Printer: write and display renderings of Values
// ---------------------------------------------------------------------------

// maxPrintDepth bounds rendering of nested structure so cyclic pairs and
// vectors terminate.
const maxPrintDepth = 64

// WriteString renders v in write syntax: strings quoted, characters in
// #\ notation.
func (vm *VM) WriteString(v Value) string {
	var sb strings.Builder
	vm.printValue(&sb, v, true, 0)
	return sb.String()
}

// DisplayString renders v in display syntax: strings raw, characters as
// themselves.
func (vm *VM) DisplayString(v Value) string {
	var sb strings.Builder
	vm.printValue(&sb, v, false, 0)
	return sb.String()
}

func (vm *VM) printValue(sb *strings.Builder, v Value, write bool, depth int) {
	if depth > maxPrintDepth {
		sb.WriteString("...")
		return
	}
	switch {
	case v.IsFloat():
		sb.WriteString(datum.FormatNumber(v.AsFloat()))
	case v.IsBool():
		if v.AsBool() {
			sb.WriteString("#t")
		} else {
			sb.WriteString("#f")
		}
	case v.IsChar():
		if write {
			sb.WriteString(datum.FormatChar(v.AsChar()))
		} else {
			sb.WriteRune(v.AsChar())
		}
	case v.IsSymbol():
		sb.WriteString(vm.Symbols.Name(v.SymbolID()))
	case v.IsEmpty():
		sb.WriteString("()")
	case v.IsVoid():
		sb.WriteString("#<void>")
	case v.IsEOF():
		sb.WriteString("#<eof>")
	case v.IsBox():
		sb.WriteString("#<box ")
		vm.printValue(sb, vm.upvalue(v.Handle()).Cell, write, depth+1)
		sb.WriteByte('>')
	case v.IsObject():
		vm.printObject(sb, v.Handle(), write, depth)
	default:
		sb.WriteString("#<unknown>")
	}
}

func (vm *VM) printObject(sb *strings.Builder, h Handle, write bool, depth int) {
	switch o := vm.Heap.Get(h).(type) {
	case *Pair:
		sb.WriteByte('(')
		vm.printValue(sb, o.Car, write, depth+1)
		rest := o.Cdr
		for n := 0; ; n++ {
			if n > 1<<16 {
				sb.WriteString(" ...")
				break
			}
			if rest.IsEmpty() {
				break
			}
			if rest.IsObject() {
				if p, ok := vm.Heap.Get(rest.Handle()).(*Pair); ok {
					sb.WriteByte(' ')
					vm.printValue(sb, p.Car, write, depth+1)
					rest = p.Cdr
					continue
				}
			}
			sb.WriteString(" . ")
			vm.printValue(sb, rest, write, depth+1)
			break
		}
		sb.WriteByte(')')
	case *Vector:
		sb.WriteString("#(")
		for i, e := range o.Elems {
			if i > 0 {
				sb.WriteByte(' ')
			}
			vm.printValue(sb, e, write, depth+1)
		}
		sb.WriteByte(')')
	case *MutString:
		if write {
			sb.WriteString(strconv.Quote(o.String()))
		} else {
			sb.WriteString(o.String())
		}
	case *Closure:
		name := vm.chunk(o.Fn).Name
		if name == "" {
			sb.WriteString("#<procedure>")
		} else {
			fmt.Fprintf(sb, "#<procedure %s>", name)
		}
	case *Native:
		fmt.Fprintf(sb, "#<primitive %s>", o.Name)
	case *Continuation:
		sb.WriteString("#<continuation>")
	case *Chunk:
		if o.Name == "" {
			sb.WriteString("#<chunk>")
		} else {
			fmt.Fprintf(sb, "#<chunk %s>", o.Name)
		}
	case *Port:
		kind := "input"
		if o.Kind == PortOutput {
			kind = "output"
		}
		fmt.Fprintf(sb, "#<%s-port %s %s>", kind, o.Name, o.ID)
	case *Upvalue:
		sb.WriteString("#<upvalue>")
	default:
		fmt.Fprintf(sb, "#<object %T>", o)
	}
}
