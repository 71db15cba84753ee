package vm

import "sort"

// ---------------------------------------------------------------------------
// Upvalue lifecycle
// ---------------------------------------------------------------------------

// captureUpvalue returns an open upvalue for the given absolute stack
// slot, reusing an existing one so every closure capturing the same
// variable shares a single cell after it closes.
func (vm *VM) captureUpvalue(slot int) Handle {
	i := sort.Search(len(vm.openUpvalues), func(i int) bool {
		return vm.upvalue(vm.openUpvalues[i]).Slot >= slot
	})
	if i < len(vm.openUpvalues) && vm.upvalue(vm.openUpvalues[i]).Slot == slot {
		return vm.openUpvalues[i]
	}
	h := vm.Heap.Alloc(&Upvalue{Open: true, Slot: slot})
	vm.openUpvalues = append(vm.openUpvalues, 0)
	copy(vm.openUpvalues[i+1:], vm.openUpvalues[i:])
	vm.openUpvalues[i] = h
	return h
}

// closeUpvalues closes every open upvalue whose slot lies at or above
// from, copying the stack slot into the upvalue's owned cell.
func (vm *VM) closeUpvalues(from int) {
	i := sort.Search(len(vm.openUpvalues), func(i int) bool {
		return vm.upvalue(vm.openUpvalues[i]).Slot >= from
	})
	for _, h := range vm.openUpvalues[i:] {
		uv := vm.upvalue(h)
		uv.Cell = vm.stack[uv.Slot]
		uv.Open = false
	}
	vm.openUpvalues = vm.openUpvalues[:i]
}

// ---------------------------------------------------------------------------
// Continuations
// ---------------------------------------------------------------------------

// callCCControl implements (call/cc f): the whole VM state - frame stack,
// value stack contents, and open-upvalue list - is snapshotted into a
// Continuation, and f is called with it. Because invocation restores from
// fresh copies, the continuation may be invoked more than once.
//
// The stack on entry ends [call/cc f]; the snapshot excludes those two
// slots so that the delivered value lands exactly where the call's result
// belongs.
func (vm *VM) callCCControl(n *Native, argc int, tail bool) error {
	if argc != 1 {
		return runtimeErrorf(ErrArity, "%s expects 1 argument, got %d", n.Name, argc)
	}
	k := vm.captureContinuation(2)
	f := vm.stack[vm.sp-1]
	vm.sp -= 2
	vm.push(f)
	vm.push(FromObject(vm.Heap.Alloc(k)))
	return vm.callValue(1, tail)
}

// captureContinuation snapshots VM state, dropping the top drop stack
// slots.
func (vm *VM) captureContinuation(drop int) *Continuation {
	frames := make([]CallFrame, vm.fp+1)
	copy(frames, vm.frames[:vm.fp+1])
	stack := make([]Value, vm.sp-drop)
	copy(stack, vm.stack[:vm.sp-drop])
	open := make([]Handle, len(vm.openUpvalues))
	copy(open, vm.openUpvalues)
	return &Continuation{
		Frames:  frames,
		Stack:   stack,
		Open:    open,
		Barrier: len(vm.barriers),
	}
}

// invokeContinuation replaces the VM state with a fresh copy of the
// snapshot and delivers v as the value of the original call/cc call.
// A continuation may not cross a nested execution boundary: invoking one
// captured in a different Call nesting depth would corrupt the host's
// control state, so it is a runtime error.
func (vm *VM) invokeContinuation(k *Continuation, v Value) error {
	if k.Barrier != len(vm.barriers) {
		return runtimeErrorf(ErrRuntime,
			"continuation invoked outside the evaluation it was captured in")
	}

	vm.frames = vm.frames[:0]
	vm.frames = append(vm.frames, k.Frames...)
	vm.fp = len(k.Frames) - 1

	if len(vm.stack) < len(k.Stack)+1 {
		grown := make([]Value, len(k.Stack)+1)
		copy(grown, vm.stack)
		vm.stack = grown
	}
	copy(vm.stack, k.Stack)
	vm.sp = len(k.Stack)

	// Upvalues that closed between capture and invocation stay closed:
	// assigned variables live in boxes, so a closed upvalue can only
	// carry an immutable value and both copies agree.
	vm.openUpvalues = vm.openUpvalues[:0]
	for _, h := range k.Open {
		if vm.upvalue(h).Open {
			vm.openUpvalues = append(vm.openUpvalues, h)
		}
	}

	vm.push(v)
	return nil
}
