package vm

import (
	"bufio"
	"io"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Heap objects
// ---------------------------------------------------------------------------

// Object is a heap-resident, GC-traced entity. Trace calls mark on every
// Value the object holds a reference to.
type Object interface {
	Trace(mark func(Value))
}

// Pair is a mutable cons cell.
type Pair struct {
	Car Value
	Cdr Value
}

func (p *Pair) Trace(mark func(Value)) {
	mark(p.Car)
	mark(p.Cdr)
}

// Vector is a mutable array of Values.
type Vector struct {
	Elems []Value
}

func (v *Vector) Trace(mark func(Value)) {
	for _, e := range v.Elems {
		mark(e)
	}
}

// MutString is a mutable character sequence. Strings are stored as runes
// so string-ref/string-set! index by character.
type MutString struct {
	Runes []rune
}

func (s *MutString) String() string { return string(s.Runes) }

func (s *MutString) Trace(func(Value)) {}

// Upvalue is a one-cell indirection for a captured lexical variable.
// While open it refers to an absolute value-stack slot; once its home
// frame returns it is closed and owns the Value. Box Values point at
// Upvalues that are created closed.
type Upvalue struct {
	Open bool
	Slot int   // value-stack index while open
	Cell Value // owned value once closed
}

func (u *Upvalue) Trace(mark func(Value)) {
	if !u.Open {
		mark(u.Cell)
	}
	// An open upvalue's referent lives on the value stack, which is
	// itself a root.
}

// Closure pairs an immutable chunk with its captured upvalues.
type Closure struct {
	Fn       Handle   // handle of the Chunk object
	Upvalues []Handle // handles of Upvalue objects
}

func (c *Closure) Trace(mark func(Value)) {
	mark(FromObject(c.Fn))
	for _, u := range c.Upvalues {
		mark(FromObject(u))
	}
}

// PortKind distinguishes input from output ports.
type PortKind uint8

const (
	PortInput PortKind = iota
	PortOutput
)

// Port wraps an external byte stream. Every port carries a uuid so
// distinct ports print distinctly and close bookkeeping has an identity.
type Port struct {
	ID     uuid.UUID
	Kind   PortKind
	Name   string
	R      *bufio.Reader // input ports
	W      io.Writer     // output ports
	C      io.Closer     // nil for the standard ports
	Closed bool
}

func (p *Port) Trace(func(Value)) {}

// Close releases the underlying stream. Closing is idempotent.
func (p *Port) Close() error {
	if p.Closed {
		return nil
	}
	p.Closed = true
	if p.C != nil {
		return p.C.Close()
	}
	return nil
}

// NewInputPort wraps a reader as an input port.
func NewInputPort(name string, r io.Reader, c io.Closer) *Port {
	return &Port{ID: uuid.New(), Kind: PortInput, Name: name, R: bufio.NewReader(r), C: c}
}

// NewOutputPort wraps a writer as an output port.
func NewOutputPort(name string, w io.Writer, c io.Closer) *Port {
	return &Port{ID: uuid.New(), Kind: PortOutput, Name: name, W: w, C: c}
}

// NativeFn is the signature of a host procedure. Arguments are a view of
// the VM's argument region; the function must not retain the slice.
type NativeFn func(vm *VM, args []Value) (Value, error)

// ControlKind marks natives that rearrange VM state instead of computing
// a value directly.
type ControlKind uint8

const (
	ControlNone   ControlKind = iota
	ControlApply              // (apply f arg ... lst)
	ControlCallCC             // (call/cc f)
)

// Native is a host procedure exposed through the primitive registry.
type Native struct {
	Name     string
	Arity    int
	Variadic bool
	Fn       NativeFn
	Control  ControlKind
}

func (n *Native) Trace(func(Value)) {}

// Continuation is captured VM state for call/cc: deep copies of the frame
// stack and the value stack contents, plus the open-upvalue list, taken at
// capture time. Invocation re-copies, so continuations are multi-shot;
// they may be invoked from any evaluation at the nesting depth recorded
// in Barrier.
type Continuation struct {
	Frames  []CallFrame
	Stack   []Value
	Open    []Handle
	Barrier int // nested-execution depth at capture
}

func (k *Continuation) Trace(mark func(Value)) {
	for i := range k.Frames {
		mark(FromObject(k.Frames[i].Closure))
	}
	for _, v := range k.Stack {
		mark(v)
	}
	for _, h := range k.Open {
		mark(FromObject(h))
	}
}
