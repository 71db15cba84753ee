package vm

import "strings"

// ---------------------------------------------------------------------------
// String primitives
// ---------------------------------------------------------------------------

func registerStringPrimitives(vm *VM) {
	vm.DefineNative("string?", 1, false, func(vm *VM, args []Value) (Value, error) {
		_, err := argString(vm, "string?", args, 0)
		return FromBool(err == nil), nil
	})
	vm.DefineNative("make-string", 1, true, primMakeString)
	vm.DefineNative("string-length", 1, false, func(vm *VM, args []Value) (Value, error) {
		s, err := argString(vm, "string-length", args, 0)
		if err != nil {
			return Void, err
		}
		return FromFloat(float64(len(s.Runes))), nil
	})
	vm.DefineNative("string-ref", 2, false, primStringRef)
	vm.DefineNative("string-set!", 3, false, primStringSet)
	vm.DefineNative("string=?", 2, true, primStringEq)
	vm.DefineNative("string-append", 0, true, primStringAppend)
	vm.DefineNative("string->list", 1, false, primStringToList)
	vm.DefineNative("list->string", 1, false, primListToString)
}

func primMakeString(vm *VM, args []Value) (Value, error) {
	n, err := argIndex(vm, "make-string", args, 0)
	if err != nil {
		return Void, err
	}
	fill := ' '
	if len(args) > 1 {
		fill, err = argChar(vm, "make-string", args, 1)
		if err != nil {
			return Void, err
		}
	}
	runes := make([]rune, n)
	for i := range runes {
		runes[i] = fill
	}
	return FromObject(vm.Heap.Alloc(&MutString{Runes: runes})), nil
}

func primStringRef(vm *VM, args []Value) (Value, error) {
	s, err := argString(vm, "string-ref", args, 0)
	if err != nil {
		return Void, err
	}
	i, err := argIndex(vm, "string-ref", args, 1)
	if err != nil {
		return Void, err
	}
	if i >= len(s.Runes) {
		return Void, runtimeErrorf(ErrType, "string-ref: index %d out of range for string of length %d", i, len(s.Runes))
	}
	return FromChar(s.Runes[i]), nil
}

func primStringSet(vm *VM, args []Value) (Value, error) {
	s, err := argString(vm, "string-set!", args, 0)
	if err != nil {
		return Void, err
	}
	i, err := argIndex(vm, "string-set!", args, 1)
	if err != nil {
		return Void, err
	}
	c, err := argChar(vm, "string-set!", args, 2)
	if err != nil {
		return Void, err
	}
	if i >= len(s.Runes) {
		return Void, runtimeErrorf(ErrType, "string-set!: index %d out of range for string of length %d", i, len(s.Runes))
	}
	s.Runes[i] = c
	return Void, nil
}

func primStringEq(vm *VM, args []Value) (Value, error) {
	first, err := argString(vm, "string=?", args, 0)
	if err != nil {
		return Void, err
	}
	for i := 1; i < len(args); i++ {
		next, err := argString(vm, "string=?", args, i)
		if err != nil {
			return Void, err
		}
		if first.String() != next.String() {
			return False, nil
		}
	}
	return True, nil
}

func primStringAppend(vm *VM, args []Value) (Value, error) {
	var sb strings.Builder
	for i := range args {
		s, err := argString(vm, "string-append", args, i)
		if err != nil {
			return Void, err
		}
		sb.WriteString(s.String())
	}
	return vm.StringValue(sb.String()), nil
}

func primStringToList(vm *VM, args []Value) (Value, error) {
	s, err := argString(vm, "string->list", args, 0)
	if err != nil {
		return Void, err
	}
	elems := make([]Value, len(s.Runes))
	for i, r := range s.Runes {
		elems[i] = FromChar(r)
	}
	return vm.ListValue(elems...), nil
}

func primListToString(vm *VM, args []Value) (Value, error) {
	elems, err := listElems(vm, "list->string", args[0])
	if err != nil {
		return Void, err
	}
	runes := make([]rune, len(elems))
	for i, e := range elems {
		if !e.IsChar() {
			return Void, typeErrf(vm, "list->string", "character", e)
		}
		runes[i] = e.AsChar()
	}
	return FromObject(vm.Heap.Alloc(&MutString{Runes: runes})), nil
}
