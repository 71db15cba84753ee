package vm

// ---------------------------------------------------------------------------
// Primitive registry
// ---------------------------------------------------------------------------

// registerPrimitives installs the full built-in procedure surface. Each
// family lives in its own file.
func registerPrimitives(vm *VM) {
	registerNumberPrimitives(vm)
	registerPairPrimitives(vm)
	registerVectorPrimitives(vm)
	registerStringPrimitives(vm)
	registerCharPrimitives(vm)
	registerSymbolPrimitives(vm)
	registerEqualityPrimitives(vm)
	registerControlPrimitives(vm)
	registerIOPrimitives(vm)
	registerMetaPrimitives(vm)
}

// ---------------------------------------------------------------------------
// Argument helpers
// ---------------------------------------------------------------------------

func typeErrf(vm *VM, name, want string, got Value) error {
	return runtimeErrorf(ErrType, "%s: expected %s, got %s", name, want, vm.WriteString(got))
}

func argFloat(vm *VM, name string, args []Value, i int) (float64, error) {
	if !args[i].IsFloat() {
		return 0, typeErrf(vm, name, "number", args[i])
	}
	return args[i].AsFloat(), nil
}

func argIndex(vm *VM, name string, args []Value, i int) (int, error) {
	f, err := argFloat(vm, name, args, i)
	if err != nil {
		return 0, err
	}
	n := int(f)
	if float64(n) != f || n < 0 {
		return 0, runtimeErrorf(ErrType, "%s: %s is not a valid index", name, vm.WriteString(args[i]))
	}
	return n, nil
}

func argChar(vm *VM, name string, args []Value, i int) (rune, error) {
	if !args[i].IsChar() {
		return 0, typeErrf(vm, name, "character", args[i])
	}
	return args[i].AsChar(), nil
}

func argSymbol(vm *VM, name string, args []Value, i int) (uint32, error) {
	if !args[i].IsSymbol() {
		return 0, typeErrf(vm, name, "symbol", args[i])
	}
	return args[i].SymbolID(), nil
}

func argPair(vm *VM, name string, args []Value, i int) (*Pair, error) {
	if args[i].IsObject() {
		if p, ok := vm.Heap.Get(args[i].Handle()).(*Pair); ok {
			return p, nil
		}
	}
	return nil, typeErrf(vm, name, "pair", args[i])
}

func argVector(vm *VM, name string, args []Value, i int) (*Vector, error) {
	if args[i].IsObject() {
		if v, ok := vm.Heap.Get(args[i].Handle()).(*Vector); ok {
			return v, nil
		}
	}
	return nil, typeErrf(vm, name, "vector", args[i])
}

func argString(vm *VM, name string, args []Value, i int) (*MutString, error) {
	if args[i].IsObject() {
		if s, ok := vm.Heap.Get(args[i].Handle()).(*MutString); ok {
			return s, nil
		}
	}
	return nil, typeErrf(vm, name, "string", args[i])
}

func argPort(vm *VM, name string, args []Value, i int) (*Port, error) {
	if args[i].IsObject() {
		if p, ok := vm.Heap.Get(args[i].Handle()).(*Port); ok {
			return p, nil
		}
	}
	return nil, typeErrf(vm, name, "port", args[i])
}

// listElems walks a proper list into a slice, failing on improper lists.
func listElems(vm *VM, name string, v Value) ([]Value, error) {
	var out []Value
	for !v.IsEmpty() {
		if !v.IsObject() {
			return nil, runtimeErrorf(ErrType, "%s: improper list", name)
		}
		p, ok := vm.Heap.Get(v.Handle()).(*Pair)
		if !ok {
			return nil, runtimeErrorf(ErrType, "%s: improper list", name)
		}
		out = append(out, p.Car)
		v = p.Cdr
	}
	return out, nil
}

// isProcedure reports whether v is callable.
func isProcedure(vm *VM, v Value) bool {
	if !v.IsObject() {
		return false
	}
	switch vm.Heap.Get(v.Handle()).(type) {
	case *Closure, *Native, *Continuation:
		return true
	}
	return false
}
