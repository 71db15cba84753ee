package vm

// ---------------------------------------------------------------------------
// Pair and list primitives
// ---------------------------------------------------------------------------

func registerPairPrimitives(vm *VM) {
	vm.DefineNative("cons", 2, false, func(vm *VM, args []Value) (Value, error) {
		return vm.Cons(args[0], args[1]), nil
	})
	vm.DefineNative("car", 1, false, func(vm *VM, args []Value) (Value, error) {
		p, err := argPair(vm, "car", args, 0)
		if err != nil {
			return Void, err
		}
		return p.Car, nil
	})
	vm.DefineNative("cdr", 1, false, func(vm *VM, args []Value) (Value, error) {
		p, err := argPair(vm, "cdr", args, 0)
		if err != nil {
			return Void, err
		}
		return p.Cdr, nil
	})
	vm.DefineNative("set-car!", 2, false, func(vm *VM, args []Value) (Value, error) {
		p, err := argPair(vm, "set-car!", args, 0)
		if err != nil {
			return Void, err
		}
		p.Car = args[1]
		return Void, nil
	})
	vm.DefineNative("set-cdr!", 2, false, func(vm *VM, args []Value) (Value, error) {
		p, err := argPair(vm, "set-cdr!", args, 0)
		if err != nil {
			return Void, err
		}
		p.Cdr = args[1]
		return Void, nil
	})
	vm.DefineNative("pair?", 1, false, func(vm *VM, args []Value) (Value, error) {
		_, err := argPair(vm, "pair?", args, 0)
		return FromBool(err == nil), nil
	})
	vm.DefineNative("null?", 1, false, func(vm *VM, args []Value) (Value, error) {
		return FromBool(args[0].IsEmpty()), nil
	})
	vm.DefineNative("list", 0, true, func(vm *VM, args []Value) (Value, error) {
		return vm.ListValue(args...), nil
	})
	vm.DefineNative("list?", 1, false, primIsList)
	vm.DefineNative("length", 1, false, primLength)
	vm.DefineNative("append", 0, true, primAppend)
	vm.DefineNative("reverse", 1, false, primReverse)
	vm.DefineNative("memq", 2, false, memberWith("memq", eqValues))
	vm.DefineNative("member", 2, false, memberWith("member", nil))
	vm.DefineNative("assq", 2, false, assocWith("assq", eqValues))
	vm.DefineNative("assoc", 2, false, assocWith("assoc", nil))
}

func primIsList(vm *VM, args []Value) (Value, error) {
	// Floyd cycle detection so circular lists answer #f instead of
	// spinning.
	slow, fast := args[0], args[0]
	for {
		if fast.IsEmpty() {
			return True, nil
		}
		fp, ok := pairAt(vm, fast)
		if !ok {
			return False, nil
		}
		fast = fp.Cdr
		if fast.IsEmpty() {
			return True, nil
		}
		fp, ok = pairAt(vm, fast)
		if !ok {
			return False, nil
		}
		fast = fp.Cdr

		sp, _ := pairAt(vm, slow)
		slow = sp.Cdr
		if slow == fast && slow.IsObject() {
			return False, nil
		}
	}
}

func pairAt(vm *VM, v Value) (*Pair, bool) {
	if !v.IsObject() {
		return nil, false
	}
	p, ok := vm.Heap.Get(v.Handle()).(*Pair)
	return p, ok
}

func primLength(vm *VM, args []Value) (Value, error) {
	elems, err := listElems(vm, "length", args[0])
	if err != nil {
		return Void, err
	}
	return FromFloat(float64(len(elems))), nil
}

func primAppend(vm *VM, args []Value) (Value, error) {
	if len(args) == 0 {
		return Empty, nil
	}
	// All but the last argument must be proper lists; the last is shared
	// as the tail of the result.
	var prefix []Value
	for i := 0; i < len(args)-1; i++ {
		elems, err := listElems(vm, "append", args[i])
		if err != nil {
			return Void, err
		}
		prefix = append(prefix, elems...)
	}
	out := args[len(args)-1]
	for i := len(prefix) - 1; i >= 0; i-- {
		out = vm.Cons(prefix[i], out)
	}
	return out, nil
}

func primReverse(vm *VM, args []Value) (Value, error) {
	elems, err := listElems(vm, "reverse", args[0])
	if err != nil {
		return Void, err
	}
	out := Empty
	for _, e := range elems {
		out = vm.Cons(e, out)
	}
	return out, nil
}

// memberWith builds memq/member. A nil comparator means equal?.
func memberWith(name string, cmp func(*VM, Value, Value) bool) NativeFn {
	return func(vm *VM, args []Value) (Value, error) {
		cur := args[1]
		for !cur.IsEmpty() {
			p, ok := pairAt(vm, cur)
			if !ok {
				return Void, runtimeErrorf(ErrType, "%s: improper list", name)
			}
			match := false
			if cmp != nil {
				match = cmp(vm, args[0], p.Car)
			} else {
				match = equalValues(vm, args[0], p.Car)
			}
			if match {
				return cur, nil
			}
			cur = p.Cdr
		}
		return False, nil
	}
}

// assocWith builds assq/assoc. A nil comparator means equal?.
func assocWith(name string, cmp func(*VM, Value, Value) bool) NativeFn {
	return func(vm *VM, args []Value) (Value, error) {
		cur := args[1]
		for !cur.IsEmpty() {
			p, ok := pairAt(vm, cur)
			if !ok {
				return Void, runtimeErrorf(ErrType, "%s: improper list", name)
			}
			entry, ok := pairAt(vm, p.Car)
			if !ok {
				return Void, runtimeErrorf(ErrType, "%s: entry is not a pair", name)
			}
			match := false
			if cmp != nil {
				match = cmp(vm, args[0], entry.Car)
			} else {
				match = equalValues(vm, args[0], entry.Car)
			}
			if match {
				return p.Car, nil
			}
			cur = p.Cdr
		}
		return False, nil
	}
}
