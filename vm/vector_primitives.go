package vm

// ---------------------------------------------------------------------------
// Vector primitives
// ---------------------------------------------------------------------------

func registerVectorPrimitives(vm *VM) {
	vm.DefineNative("vector?", 1, false, func(vm *VM, args []Value) (Value, error) {
		_, err := argVector(vm, "vector?", args, 0)
		return FromBool(err == nil), nil
	})
	vm.DefineNative("make-vector", 1, true, primMakeVector)
	vm.DefineNative("vector", 0, true, func(vm *VM, args []Value) (Value, error) {
		elems := make([]Value, len(args))
		copy(elems, args)
		return FromObject(vm.Heap.Alloc(&Vector{Elems: elems})), nil
	})
	vm.DefineNative("vector-length", 1, false, func(vm *VM, args []Value) (Value, error) {
		v, err := argVector(vm, "vector-length", args, 0)
		if err != nil {
			return Void, err
		}
		return FromFloat(float64(len(v.Elems))), nil
	})
	vm.DefineNative("vector-ref", 2, false, primVectorRef)
	vm.DefineNative("vector-set!", 3, false, primVectorSet)
	vm.DefineNative("vector-fill!", 2, false, primVectorFill)
	vm.DefineNative("vector->list", 1, false, primVectorToList)
	vm.DefineNative("list->vector", 1, false, primListToVector)
}

func primMakeVector(vm *VM, args []Value) (Value, error) {
	n, err := argIndex(vm, "make-vector", args, 0)
	if err != nil {
		return Void, err
	}
	fill := Void
	if len(args) > 1 {
		fill = args[1]
	}
	elems := make([]Value, n)
	for i := range elems {
		elems[i] = fill
	}
	return FromObject(vm.Heap.Alloc(&Vector{Elems: elems})), nil
}

func primVectorRef(vm *VM, args []Value) (Value, error) {
	v, err := argVector(vm, "vector-ref", args, 0)
	if err != nil {
		return Void, err
	}
	i, err := argIndex(vm, "vector-ref", args, 1)
	if err != nil {
		return Void, err
	}
	if i >= len(v.Elems) {
		return Void, runtimeErrorf(ErrType, "vector-ref: index %d out of range for vector of length %d", i, len(v.Elems))
	}
	return v.Elems[i], nil
}

func primVectorSet(vm *VM, args []Value) (Value, error) {
	v, err := argVector(vm, "vector-set!", args, 0)
	if err != nil {
		return Void, err
	}
	i, err := argIndex(vm, "vector-set!", args, 1)
	if err != nil {
		return Void, err
	}
	if i >= len(v.Elems) {
		return Void, runtimeErrorf(ErrType, "vector-set!: index %d out of range for vector of length %d", i, len(v.Elems))
	}
	v.Elems[i] = args[2]
	return Void, nil
}

func primVectorFill(vm *VM, args []Value) (Value, error) {
	v, err := argVector(vm, "vector-fill!", args, 0)
	if err != nil {
		return Void, err
	}
	for i := range v.Elems {
		v.Elems[i] = args[1]
	}
	return Void, nil
}

func primVectorToList(vm *VM, args []Value) (Value, error) {
	v, err := argVector(vm, "vector->list", args, 0)
	if err != nil {
		return Void, err
	}
	return vm.ListValue(v.Elems...), nil
}

func primListToVector(vm *VM, args []Value) (Value, error) {
	elems, err := listElems(vm, "list->vector", args[0])
	if err != nil {
		return Void, err
	}
	return FromObject(vm.Heap.Alloc(&Vector{Elems: elems})), nil
}
