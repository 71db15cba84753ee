package vm

import "unicode"

// ---------------------------------------------------------------------------
// Character primitives
// ---------------------------------------------------------------------------

func registerCharPrimitives(vm *VM) {
	vm.DefineNative("char?", 1, false, func(vm *VM, args []Value) (Value, error) {
		return FromBool(args[0].IsChar()), nil
	})
	vm.DefineNative("char=?", 2, false, charCompare("char=?", func(a, b rune) bool { return a == b }))
	vm.DefineNative("char<?", 2, false, charCompare("char<?", func(a, b rune) bool { return a < b }))
	vm.DefineNative("char>?", 2, false, charCompare("char>?", func(a, b rune) bool { return a > b }))
	vm.DefineNative("char<=?", 2, false, charCompare("char<=?", func(a, b rune) bool { return a <= b }))
	vm.DefineNative("char>=?", 2, false, charCompare("char>=?", func(a, b rune) bool { return a >= b }))

	vm.DefineNative("char-alphabetic?", 1, false, charPredicate("char-alphabetic?", unicode.IsLetter))
	vm.DefineNative("char-numeric?", 1, false, charPredicate("char-numeric?", unicode.IsDigit))
	vm.DefineNative("char-whitespace?", 1, false, charPredicate("char-whitespace?", unicode.IsSpace))
	vm.DefineNative("char-upper-case?", 1, false, charPredicate("char-upper-case?", unicode.IsUpper))
	vm.DefineNative("char-lower-case?", 1, false, charPredicate("char-lower-case?", unicode.IsLower))

	vm.DefineNative("char-upcase", 1, false, charMap("char-upcase", unicode.ToUpper))
	vm.DefineNative("char-downcase", 1, false, charMap("char-downcase", unicode.ToLower))

	vm.DefineNative("char->integer", 1, false, func(vm *VM, args []Value) (Value, error) {
		c, err := argChar(vm, "char->integer", args, 0)
		if err != nil {
			return Void, err
		}
		return FromFloat(float64(c)), nil
	})
	vm.DefineNative("integer->char", 1, false, func(vm *VM, args []Value) (Value, error) {
		n, err := argIndex(vm, "integer->char", args, 0)
		if err != nil {
			return Void, err
		}
		return FromChar(rune(n)), nil
	})
}

func charCompare(name string, cmp func(a, b rune) bool) NativeFn {
	return func(vm *VM, args []Value) (Value, error) {
		a, err := argChar(vm, name, args, 0)
		if err != nil {
			return Void, err
		}
		b, err := argChar(vm, name, args, 1)
		if err != nil {
			return Void, err
		}
		return FromBool(cmp(a, b)), nil
	}
}

func charPredicate(name string, pred func(rune) bool) NativeFn {
	return func(vm *VM, args []Value) (Value, error) {
		c, err := argChar(vm, name, args, 0)
		if err != nil {
			return Void, err
		}
		return FromBool(pred(c)), nil
	}
}

func charMap(name string, fn func(rune) rune) NativeFn {
	return func(vm *VM, args []Value) (Value, error) {
		c, err := argChar(vm, name, args, 0)
		if err != nil {
			return Void, err
		}
		return FromChar(fn(c)), nil
	}
}
