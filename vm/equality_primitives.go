package vm

// ---------------------------------------------------------------------------
// Equality primitives
// ---------------------------------------------------------------------------

func registerEqualityPrimitives(vm *VM) {
	vm.DefineNative("eq?", 2, false, func(vm *VM, args []Value) (Value, error) {
		return FromBool(eqValues(vm, args[0], args[1])), nil
	})
	vm.DefineNative("eqv?", 2, false, func(vm *VM, args []Value) (Value, error) {
		return FromBool(eqvValues(vm, args[0], args[1])), nil
	})
	vm.DefineNative("equal?", 2, false, func(vm *VM, args []Value) (Value, error) {
		return FromBool(equalValues(vm, args[0], args[1])), nil
	})
	vm.DefineNative("not", 1, false, func(vm *VM, args []Value) (Value, error) {
		return FromBool(args[0].IsFalsey()), nil
	})
	vm.DefineNative("boolean?", 1, false, func(vm *VM, args []Value) (Value, error) {
		return FromBool(args[0].IsBool()), nil
	})
	vm.DefineNative("procedure?", 1, false, func(vm *VM, args []Value) (Value, error) {
		return FromBool(isProcedure(vm, args[0])), nil
	})
}

// eqValues is identity equality: symbols by id, immediates by bits, heap
// objects by handle.
func eqValues(_ *VM, a, b Value) bool {
	return a == b
}

// eqvValues adds numeric comparison to eq?: distinct NaN boxings of the
// same number are already identical bit patterns, so only +0/-0 needs
// care.
func eqvValues(vm *VM, a, b Value) bool {
	if a.IsFloat() && b.IsFloat() {
		return a.AsFloat() == b.AsFloat()
	}
	return eqValues(vm, a, b)
}

// equalValues is structural equality over pairs, vectors and strings,
// with identity equality for everything else. Visited object pairs are
// tracked so cyclic structure terminates (coinductively equal).
func equalValues(vm *VM, a, b Value) bool {
	type pairKey struct{ a, b Handle }
	visited := make(map[pairKey]bool)

	var walk func(a, b Value) bool
	walk = func(a, b Value) bool {
		if eqvValues(vm, a, b) {
			return true
		}
		if !a.IsObject() || !b.IsObject() {
			return false
		}
		key := pairKey{a.Handle(), b.Handle()}
		if visited[key] {
			return true
		}
		visited[key] = true

		switch oa := vm.Heap.Get(a.Handle()).(type) {
		case *Pair:
			ob, ok := vm.Heap.Get(b.Handle()).(*Pair)
			if !ok {
				return false
			}
			return walk(oa.Car, ob.Car) && walk(oa.Cdr, ob.Cdr)
		case *Vector:
			ob, ok := vm.Heap.Get(b.Handle()).(*Vector)
			if !ok || len(oa.Elems) != len(ob.Elems) {
				return false
			}
			for i := range oa.Elems {
				if !walk(oa.Elems[i], ob.Elems[i]) {
					return false
				}
			}
			return true
		case *MutString:
			ob, ok := vm.Heap.Get(b.Handle()).(*MutString)
			return ok && oa.String() == ob.String()
		default:
			return false
		}
	}
	return walk(a, b)
}
