package vm

import "os"

// ---------------------------------------------------------------------------
// Control primitives
// ---------------------------------------------------------------------------

func registerControlPrimitives(vm *VM) {
	// apply and call/cc rearrange VM state instead of computing a value;
	// the interpreter dispatches them specially.
	vm.defineNativeControl("apply", 2, true, nil, ControlApply)
	vm.defineNativeControl("call/cc", 1, false, nil, ControlCallCC)
	vm.defineNativeControl("call-with-current-continuation", 1, false, nil, ControlCallCC)

	vm.DefineNative("values", 1, false, func(vm *VM, args []Value) (Value, error) {
		return args[0], nil
	})
	vm.DefineNative("call-with-values", 2, false, primCallWithValues)
	vm.DefineNative("exit", 0, true, primExit)
}

// primCallWithValues calls the producer thunk and hands its (single)
// result to the consumer. With the single-value values above this gives
// the common (call-with-values (lambda () (values x)) f) shape.
func primCallWithValues(vm *VM, args []Value) (Value, error) {
	produced, err := vm.Call(args[0])
	if err != nil {
		return Void, err
	}
	return vm.Call(args[1], produced)
}

func primExit(vm *VM, args []Value) (Value, error) {
	code := 0
	if len(args) > 0 && args[0].IsFloat() {
		code = int(args[0].AsFloat())
	}
	os.Exit(code)
	return Void, nil
}
