package vm

import (
	"fmt"
	"os"

	"github.com/sadderchris/cheshire/pkg/datum"
	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// VM: the interpreter instance
// ---------------------------------------------------------------------------

// ErrorKind classifies runtime errors per the error taxonomy.
type ErrorKind uint8

const (
	ErrRuntime ErrorKind = iota
	ErrArity
	ErrType
	ErrUnbound
	ErrIO
)

// RuntimeError is a VM execution error. It aborts the executing chunk and
// unwinds to the caller of Call (the REPL, or load's host).
type RuntimeError struct {
	Kind ErrorKind
	Msg  string
}

func (e *RuntimeError) Error() string {
	switch e.Kind {
	case ErrArity:
		return "arity error: " + e.Msg
	case ErrType:
		return "type error: " + e.Msg
	case ErrUnbound:
		return "unbound variable: " + e.Msg
	case ErrIO:
		return "i/o error: " + e.Msg
	default:
		return "runtime error: " + e.Msg
	}
}

func runtimeErrorf(kind ErrorKind, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// CallFrame is the execution state of a single procedure activation.
type CallFrame struct {
	Closure Handle // handle of the Closure being executed
	IP      int    // instruction pointer into the chunk's code
	Base    int    // value-stack index of parameter slot 0
}

// CompileFn turns a datum into a callable closure Value. The compiler
// package installs its entry point here so the compile and load
// primitives can reach it without an import cycle.
type CompileFn func(vm *VM, d datum.Datum) (Value, error)

// VM is a single-threaded Scheme interpreter: a heap, a symbol table, a
// global environment, and the value/frame stacks. Nothing is shared
// between VM instances.
type VM struct {
	Heap    *Heap
	Symbols *SymbolTable
	Globals map[uint32]Value

	stack []Value
	sp    int

	frames []CallFrame
	fp     int // index of the current frame, -1 when idle

	// openUpvalues holds handles of open Upvalue objects sorted by stack
	// slot, innermost (highest slot) last.
	openUpvalues []Handle

	// barriers records the entry frame index of each nested Call in
	// flight. Continuations may only be invoked at the barrier depth
	// they were captured at.
	barriers []int

	// Trace enables per-instruction tracing (opcode + stack contents).
	Trace bool

	// MaxFrames caps non-tail call depth; 0 means unlimited.
	MaxFrames int

	// FrameHighWater records the deepest frame stack seen, for tests and
	// diagnostics around proper tail calls.
	FrameHighWater int

	// Compile is installed by the compiler package.
	Compile CompileFn

	// Cache, when non-nil, backs load with compiled-chunk reuse.
	Cache *CompileCache

	inPort  Value // current input port
	outPort Value // current output port

	log commonlog.Logger
}

// New creates a VM with the full primitive registry installed and the
// standard ports wired to stdin/stdout.
func New() *VM {
	vm := &VM{
		Heap:    NewHeap(),
		Symbols: NewSymbolTable(),
		Globals: make(map[uint32]Value),
		stack:   make([]Value, 256),
		frames:  make([]CallFrame, 0, 64),
		fp:      -1,
		log:     commonlog.GetLogger("cheshire.vm"),
	}
	vm.inPort = FromObject(vm.Heap.Alloc(NewInputPort("stdin", os.Stdin, nil)))
	vm.outPort = FromObject(vm.Heap.Alloc(NewOutputPort("stdout", os.Stdout, nil)))
	registerPrimitives(vm)
	return vm
}

// TraceRoots marks every Value reachable from the VM: the value stack,
// the frame stack's closures, the open-upvalue list, the global table,
// and the current ports.
func (vm *VM) TraceRoots(mark func(Value)) {
	for i := 0; i < vm.sp; i++ {
		mark(vm.stack[i])
	}
	for i := 0; i <= vm.fp; i++ {
		mark(FromObject(vm.frames[i].Closure))
	}
	for _, h := range vm.openUpvalues {
		mark(FromObject(h))
	}
	for _, v := range vm.Globals {
		mark(v)
	}
	mark(vm.inPort)
	mark(vm.outPort)
}

// MaybeCollect runs a collection if the heap has crossed its threshold.
// The interpreter calls this at every call, tail call and return, the
// designated GC safe points.
func (vm *VM) MaybeCollect() {
	if vm.Heap.NeedsCollection() {
		vm.Heap.Collect(vm)
	}
}

// DefineGlobal binds a value to a symbol in the global environment.
func (vm *VM) DefineGlobal(name string, v Value) {
	vm.Globals[vm.Symbols.Intern(name)] = v
}

// DefineNative registers a host procedure under the given name.
func (vm *VM) DefineNative(name string, arity int, variadic bool, fn NativeFn) {
	vm.defineNativeControl(name, arity, variadic, fn, ControlNone)
}

func (vm *VM) defineNativeControl(name string, arity int, variadic bool, fn NativeFn, control ControlKind) {
	h := vm.Heap.Alloc(&Native{
		Name:     name,
		Arity:    arity,
		Variadic: variadic,
		Fn:       fn,
		Control:  control,
	})
	vm.DefineGlobal(name, FromObject(h))
}

// ---------------------------------------------------------------------------
// Stack helpers
// ---------------------------------------------------------------------------

func (vm *VM) push(v Value) {
	if vm.sp >= len(vm.stack) {
		grown := make([]Value, len(vm.stack)*2)
		copy(grown, vm.stack)
		vm.stack = grown
	}
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() Value {
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) top() Value {
	return vm.stack[vm.sp-1]
}

// reserve ensures capacity for n more stack slots.
func (vm *VM) reserve(n int) {
	need := vm.sp + n
	if need <= len(vm.stack) {
		return
	}
	size := len(vm.stack) * 2
	for size < need {
		size *= 2
	}
	grown := make([]Value, size)
	copy(grown, vm.stack)
	vm.stack = grown
}

// ---------------------------------------------------------------------------
// Heap accessors
// ---------------------------------------------------------------------------

func (vm *VM) closure(h Handle) *Closure {
	return vm.Heap.Get(h).(*Closure)
}

func (vm *VM) chunk(h Handle) *Chunk {
	return vm.Heap.Get(h).(*Chunk)
}

func (vm *VM) upvalue(h Handle) *Upvalue {
	return vm.Heap.Get(h).(*Upvalue)
}

// NewClosure allocates a closure over a chunk with no captures and
// returns it as a Value. Top-level thunks are built this way.
func (vm *VM) NewClosure(chunk Handle) Value {
	return FromObject(vm.Heap.Alloc(&Closure{Fn: chunk}))
}

// Cons allocates a pair.
func (vm *VM) Cons(car, cdr Value) Value {
	return FromObject(vm.Heap.Alloc(&Pair{Car: car, Cdr: cdr}))
}

// ListValue builds a proper list from elems.
func (vm *VM) ListValue(elems ...Value) Value {
	out := Empty
	for i := len(elems) - 1; i >= 0; i-- {
		out = vm.Cons(elems[i], out)
	}
	return out
}

// StringValue allocates a mutable string object.
func (vm *VM) StringValue(s string) Value {
	return FromObject(vm.Heap.Alloc(&MutString{Runes: []rune(s)}))
}

// CurrentInputPort returns the current input port object.
func (vm *VM) CurrentInputPort() *Port {
	return vm.Heap.Get(vm.inPort.Handle()).(*Port)
}

// CurrentOutputPort returns the current output port object.
func (vm *VM) CurrentOutputPort() *Port {
	return vm.Heap.Get(vm.outPort.Handle()).(*Port)
}

// ---------------------------------------------------------------------------
// Datum conversion
// ---------------------------------------------------------------------------

// DatumToValue materializes a read-time datum as a runtime Value,
// allocating pairs, vectors and strings on the heap. Abbreviations
// materialize as two-element lists headed by their special-form symbol.
func (vm *VM) DatumToValue(d datum.Datum) Value {
	switch t := d.(type) {
	case datum.Bool:
		return FromBool(bool(t))
	case datum.Number:
		return FromFloat(float64(t))
	case datum.Char:
		return FromChar(rune(t))
	case datum.String:
		return vm.StringValue(string(t))
	case datum.Symbol:
		return vm.Symbols.Symbol(string(t))
	case datum.Empty:
		return Empty
	case *datum.Pair:
		// Build iteratively so long lists cannot overflow the Go stack.
		var elems []Value
		var cur datum.Datum = t
		for {
			p, ok := cur.(*datum.Pair)
			if !ok {
				break
			}
			elems = append(elems, vm.DatumToValue(p.Car))
			cur = p.Cdr
		}
		tail := Empty
		if _, ok := cur.(datum.Empty); !ok {
			tail = vm.DatumToValue(cur)
		}
		out := tail
		for i := len(elems) - 1; i >= 0; i-- {
			out = vm.Cons(elems[i], out)
		}
		return out
	case *datum.Vector:
		elems := make([]Value, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = vm.DatumToValue(e)
		}
		return FromObject(vm.Heap.Alloc(&Vector{Elems: elems}))
	case *datum.Abbrev:
		head := vm.Symbols.Symbol(t.Kind.String())
		return vm.ListValue(head, vm.DatumToValue(t.Inner))
	default:
		return Void
	}
}

// ValueToDatum converts a runtime value back into a datum tree, as the
// compile primitive requires. Procedures, ports and other opaque objects
// cannot appear in source and report a type error. Depth is bounded so
// cyclic pairs terminate.
func (vm *VM) ValueToDatum(v Value) (datum.Datum, error) {
	return vm.valueToDatum(v, 0)
}

const maxDatumDepth = 10000

func (vm *VM) valueToDatum(v Value, depth int) (datum.Datum, error) {
	if depth > maxDatumDepth {
		return nil, runtimeErrorf(ErrType, "datum too deep (cyclic structure?)")
	}
	switch {
	case v.IsFloat():
		return datum.Number(v.AsFloat()), nil
	case v.IsBool():
		return datum.Bool(v.AsBool()), nil
	case v.IsChar():
		return datum.Char(v.AsChar()), nil
	case v.IsSymbol():
		return datum.Symbol(vm.Symbols.Name(v.SymbolID())), nil
	case v.IsEmpty():
		return datum.Empty{}, nil
	case v.IsObject():
		switch o := vm.Heap.Get(v.Handle()).(type) {
		case *MutString:
			return datum.String(o.String()), nil
		case *Pair:
			car, err := vm.valueToDatum(o.Car, depth+1)
			if err != nil {
				return nil, err
			}
			cdr, err := vm.valueToDatum(o.Cdr, depth+1)
			if err != nil {
				return nil, err
			}
			return &datum.Pair{Car: car, Cdr: cdr}, nil
		case *Vector:
			elems := make([]datum.Datum, len(o.Elems))
			for i, e := range o.Elems {
				d, err := vm.valueToDatum(e, depth+1)
				if err != nil {
					return nil, err
				}
				elems[i] = d
			}
			return &datum.Vector{Elems: elems}, nil
		}
	}
	return nil, runtimeErrorf(ErrType, "%s cannot be represented as a datum", vm.WriteString(v))
}
