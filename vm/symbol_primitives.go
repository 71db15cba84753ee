package vm

// ---------------------------------------------------------------------------
// Symbol primitives
// ---------------------------------------------------------------------------

func registerSymbolPrimitives(vm *VM) {
	vm.DefineNative("symbol?", 1, false, func(vm *VM, args []Value) (Value, error) {
		return FromBool(args[0].IsSymbol()), nil
	})
	vm.DefineNative("symbol->string", 1, false, func(vm *VM, args []Value) (Value, error) {
		id, err := argSymbol(vm, "symbol->string", args, 0)
		if err != nil {
			return Void, err
		}
		return vm.StringValue(vm.Symbols.Name(id)), nil
	})
	vm.DefineNative("string->symbol", 1, false, func(vm *VM, args []Value) (Value, error) {
		s, err := argString(vm, "string->symbol", args, 0)
		if err != nil {
			return Void, err
		}
		return vm.Symbols.Symbol(s.String()), nil
	})
}
