package vm

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Interpreter: fetch/decode/execute loop
// ---------------------------------------------------------------------------

// Call invokes a procedure value with the given arguments and runs the
// interpreter until that invocation returns. It is the sole entry point:
// the REPL, load, and primitives that call back into Scheme all go
// through here. Errors unwind the VM back to the state at entry.
func (vm *VM) Call(fn Value, args ...Value) (result Value, err error) {
	entrySP := vm.sp
	entryFP := vm.fp

	defer func() {
		if r := recover(); r != nil {
			if oom, ok := r.(*OOMError); ok {
				err = oom
			} else {
				panic(r)
			}
		}
		if err != nil {
			vm.unwind(entrySP, entryFP)
		}
	}()

	vm.push(fn)
	for _, a := range args {
		vm.push(a)
	}

	vm.barriers = append(vm.barriers, entryFP+1)
	defer func() {
		vm.barriers = vm.barriers[:len(vm.barriers)-1]
	}()

	if err := vm.callValue(len(args), false); err != nil {
		return Void, err
	}

	// A native callee computed its result without pushing a frame.
	if vm.fp == entryFP {
		return vm.pop(), nil
	}

	if err := vm.run(entryFP); err != nil {
		return Void, err
	}
	return vm.pop(), nil
}

// unwind discards stack and frame state above the given marks after an
// error. Upvalues opened above the entry stack top are dropped; their
// frames are gone.
func (vm *VM) unwind(sp, fp int) {
	live := vm.openUpvalues[:0]
	for _, h := range vm.openUpvalues {
		if vm.upvalue(h).Slot < sp {
			live = append(live, h)
		}
	}
	vm.openUpvalues = live
	vm.sp = sp
	vm.fp = fp
	if fp >= 0 {
		vm.frames = vm.frames[:fp+1]
	} else {
		vm.frames = vm.frames[:0]
	}
}

// run executes instructions until every frame above entryFP has
// returned.
func (vm *VM) run(entryFP int) error {
	for vm.fp > entryFP {
		frame := &vm.frames[vm.fp]
		cl := vm.closure(frame.Closure)
		ch := vm.chunk(cl.Fn)

		if vm.Trace {
			vm.traceInstruction(ch, frame.IP)
		}

		op := Opcode(ch.Code[frame.IP])
		frame.IP++

		switch op {
		case OpNop:

		case OpPop:
			vm.sp--

		case OpConst:
			idx := ch.ReadU16(frame.IP)
			frame.IP += 2
			vm.push(ch.Constants[idx])

		case OpNil:
			vm.push(Empty)

		case OpTrue:
			vm.push(True)

		case OpFalse:
			vm.push(False)

		case OpVoid:
			vm.push(Void)

		case OpGetLocal:
			slot := ch.Code[frame.IP]
			frame.IP++
			vm.push(vm.stack[frame.Base+int(slot)])

		case OpSetLocal:
			slot := ch.Code[frame.IP]
			frame.IP++
			vm.stack[frame.Base+int(slot)] = vm.top()

		case OpGetUpvalue:
			idx := ch.Code[frame.IP]
			frame.IP++
			uv := vm.upvalue(cl.Upvalues[idx])
			if uv.Open {
				vm.push(vm.stack[uv.Slot])
			} else {
				vm.push(uv.Cell)
			}

		case OpSetUpvalue:
			idx := ch.Code[frame.IP]
			frame.IP++
			uv := vm.upvalue(cl.Upvalues[idx])
			if uv.Open {
				vm.stack[uv.Slot] = vm.top()
			} else {
				uv.Cell = vm.top()
			}

		case OpGetGlobal:
			idx := ch.ReadU16(frame.IP)
			frame.IP += 2
			sym := ch.Constants[idx]
			v, ok := vm.Globals[sym.SymbolID()]
			if !ok {
				return runtimeErrorf(ErrUnbound, "%s", vm.Symbols.Name(sym.SymbolID()))
			}
			vm.push(v)

		case OpDefineGlobal:
			idx := ch.ReadU16(frame.IP)
			frame.IP += 2
			sym := ch.Constants[idx]
			vm.Globals[sym.SymbolID()] = vm.pop()

		case OpSetGlobal:
			idx := ch.ReadU16(frame.IP)
			frame.IP += 2
			sym := ch.Constants[idx]
			if _, ok := vm.Globals[sym.SymbolID()]; !ok {
				return runtimeErrorf(ErrUnbound, "%s", vm.Symbols.Name(sym.SymbolID()))
			}
			vm.Globals[sym.SymbolID()] = vm.top()

		case OpJump:
			delta := ch.ReadU16(frame.IP)
			frame.IP += 2 + int(delta)

		case OpJumpIfFalse:
			delta := ch.ReadU16(frame.IP)
			frame.IP += 2
			if vm.pop().IsFalsey() {
				frame.IP += int(delta)
			}

		case OpCall:
			argc := int(ch.Code[frame.IP])
			frame.IP++
			vm.MaybeCollect()
			if err := vm.callValue(argc, false); err != nil {
				return err
			}

		case OpTailCall:
			argc := int(ch.Code[frame.IP])
			frame.IP++
			vm.MaybeCollect()
			if err := vm.callValue(argc, true); err != nil {
				return err
			}

		case OpClosure:
			idx := ch.ReadU16(frame.IP)
			frame.IP += 2
			chunkVal := ch.Constants[idx]
			nested := vm.chunk(chunkVal.Handle())
			ups := make([]Handle, len(nested.Upvalues))
			for i := range nested.Upvalues {
				isLocal := ch.Code[frame.IP]
				index := ch.Code[frame.IP+1]
				frame.IP += 2
				if isLocal != 0 {
					ups[i] = vm.captureUpvalue(frame.Base + int(index))
				} else {
					ups[i] = cl.Upvalues[index]
				}
			}
			h := vm.Heap.Alloc(&Closure{Fn: chunkVal.Handle(), Upvalues: ups})
			vm.push(FromObject(h))

		case OpMakeBox:
			v := vm.pop()
			h := vm.Heap.Alloc(&Upvalue{Open: false, Cell: v})
			vm.push(FromBox(h))

		case OpUnbox:
			b := vm.pop()
			if !b.IsBox() {
				return runtimeErrorf(ErrType, "expected box, got %s", vm.WriteString(b))
			}
			vm.push(vm.upvalue(b.Handle()).Cell)

		case OpBoxSet:
			b := vm.pop()
			if !b.IsBox() {
				return runtimeErrorf(ErrType, "expected box, got %s", vm.WriteString(b))
			}
			vm.upvalue(b.Handle()).Cell = vm.top()

		case OpReturn:
			vm.MaybeCollect()
			result := vm.pop()
			vm.closeUpvalues(frame.Base)
			vm.sp = frame.Base - 1
			vm.frames = vm.frames[:vm.fp]
			vm.fp--
			vm.push(result)

		case OpHalt:
			vm.MaybeCollect()
			result := vm.pop()
			vm.closeUpvalues(frame.Base)
			vm.sp = frame.Base - 1
			vm.frames = vm.frames[:vm.fp]
			vm.fp--
			vm.push(result)

		default:
			return runtimeErrorf(ErrRuntime, "unknown opcode 0x%02x at offset %d", byte(op), frame.IP-1)
		}
	}
	return nil
}

// callValue dispatches a call to whatever sits below the argument region
// on the stack: closure, native, or continuation. For tail calls the
// current frame is reused instead of growing the frame stack.
func (vm *VM) callValue(argc int, tail bool) error {
	callee := vm.stack[vm.sp-argc-1]
	if !callee.IsObject() {
		return runtimeErrorf(ErrType, "%s is not a procedure", vm.WriteString(callee))
	}

	switch o := vm.Heap.Get(callee.Handle()).(type) {
	case *Closure:
		return vm.callClosure(callee.Handle(), o, argc, tail)

	case *Native:
		switch o.Control {
		case ControlApply:
			return vm.applyControl(o, argc, tail)
		case ControlCallCC:
			return vm.callCCControl(o, argc, tail)
		default:
			return vm.callNative(o, argc, tail)
		}

	case *Continuation:
		if argc != 1 {
			return runtimeErrorf(ErrArity, "continuation expects 1 argument, got %d", argc)
		}
		v := vm.stack[vm.sp-1]
		return vm.invokeContinuation(o, v)

	default:
		return runtimeErrorf(ErrType, "%s is not a procedure", vm.WriteString(callee))
	}
}

func (vm *VM) callClosure(h Handle, cl *Closure, argc int, tail bool) error {
	ch := vm.chunk(cl.Fn)

	argc, err := vm.checkArity(ch.Name, int(ch.NumParams), ch.Variadic, argc)
	if err != nil {
		return err
	}

	if tail && vm.fp >= 0 {
		// Reuse the current frame: close upvalues above the frame base,
		// shift callee and arguments down, and reset the instruction
		// pointer. The frame stack does not grow, which is what makes
		// unbounded iteration possible.
		frame := &vm.frames[vm.fp]
		vm.closeUpvalues(frame.Base)
		copy(vm.stack[frame.Base-1:], vm.stack[vm.sp-argc-1:vm.sp])
		vm.sp = frame.Base + argc
		frame.Closure = h
		frame.IP = 0
		vm.reserve(ch.MaxStack)
		return nil
	}

	if vm.MaxFrames > 0 && vm.fp+1 >= vm.MaxFrames {
		return runtimeErrorf(ErrRuntime, "call stack exhausted (%d frames)", vm.MaxFrames)
	}

	vm.frames = append(vm.frames, CallFrame{
		Closure: h,
		IP:      0,
		Base:    vm.sp - argc,
	})
	vm.fp++
	if vm.fp+1 > vm.FrameHighWater {
		vm.FrameHighWater = vm.fp + 1
	}
	vm.reserve(ch.MaxStack)
	return nil
}

// checkArity validates the argument count and collects rest arguments
// into a list, returning the effective argument count (the chunk's
// parameter count once a rest list is built).
func (vm *VM) checkArity(name string, numParams int, variadic bool, argc int) (int, error) {
	label := name
	if label == "" {
		label = "#<procedure>"
	}
	if !variadic {
		if argc != numParams {
			return 0, runtimeErrorf(ErrArity, "%s expects %d arguments, got %d", label, numParams, argc)
		}
		return argc, nil
	}
	min := numParams - 1
	if argc < min {
		return 0, runtimeErrorf(ErrArity, "%s expects at least %d arguments, got %d", label, min, argc)
	}
	// Collect the surplus arguments into a list occupying the rest slot.
	rest := Empty
	for i := argc - 1; i >= min; i-- {
		rest = vm.Cons(vm.stack[vm.sp-argc+i], rest)
	}
	vm.sp -= argc - min
	vm.push(rest)
	return numParams, nil
}

func (vm *VM) callNative(n *Native, argc int, tail bool) error {
	if !n.Variadic && argc != n.Arity {
		return runtimeErrorf(ErrArity, "%s expects %d arguments, got %d", n.Name, n.Arity, argc)
	}
	if n.Variadic && argc < n.Arity {
		return runtimeErrorf(ErrArity, "%s expects at least %d arguments, got %d", n.Name, n.Arity, argc)
	}

	args := vm.stack[vm.sp-argc : vm.sp]
	result, err := n.Fn(vm, args)
	if err != nil {
		return err
	}
	vm.sp -= argc + 1
	vm.push(result)

	if tail && vm.fp >= 0 {
		// A tail call to a native still returns from the current frame:
		// the native's result is this frame's result.
		frame := &vm.frames[vm.fp]
		vm.closeUpvalues(frame.Base)
		vm.stack[frame.Base-1] = vm.pop()
		vm.sp = frame.Base
		vm.frames = vm.frames[:vm.fp]
		vm.fp--
	}
	return nil
}

// applyControl implements (apply f arg ... lst): the final argument, a
// list, is spread onto the stack and the call is redispatched.
func (vm *VM) applyControl(n *Native, argc int, tail bool) error {
	if argc < 2 {
		return runtimeErrorf(ErrArity, "apply expects at least 2 arguments, got %d", argc)
	}
	fn := vm.stack[vm.sp-argc]
	mid := make([]Value, argc-2)
	copy(mid, vm.stack[vm.sp-argc+1:vm.sp-1])
	lst := vm.stack[vm.sp-1]

	var spread []Value
	for !lst.IsEmpty() {
		if !lst.IsObject() {
			return runtimeErrorf(ErrType, "apply: last argument must be a list")
		}
		p, ok := vm.Heap.Get(lst.Handle()).(*Pair)
		if !ok {
			return runtimeErrorf(ErrType, "apply: last argument must be a list")
		}
		spread = append(spread, p.Car)
		lst = p.Cdr
	}

	vm.sp -= argc + 1
	vm.push(fn)
	for _, v := range mid {
		vm.push(v)
	}
	for _, v := range spread {
		vm.push(v)
	}
	return vm.callValue(len(mid)+len(spread), tail)
}

// traceInstruction prints the stack and the next instruction, mirroring
// the chunk disassembler's operand rendering.
func (vm *VM) traceInstruction(ch *Chunk, ip int) {
	var sb strings.Builder
	sb.WriteString("          ")
	base := 0
	if vm.fp >= 0 {
		base = vm.frames[vm.fp].Base
	}
	for i := base; i < vm.sp; i++ {
		fmt.Fprintf(&sb, "[ %s ]", vm.WriteString(vm.stack[i]))
	}
	fmt.Println(sb.String())
	fmt.Print(vm.disassembleInstruction(ch, ip))
}
