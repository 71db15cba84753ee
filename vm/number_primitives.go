package vm

import (
	"math"
	"strconv"

	"github.com/sadderchris/cheshire/pkg/datum"
)

// ---------------------------------------------------------------------------
// Numeric primitives
//
// The numeric tower is double-precision floating point only. Arithmetic
// follows IEEE 754: division by zero and domain errors produce
// infinities and NaNs rather than trapping.
// ---------------------------------------------------------------------------

func registerNumberPrimitives(vm *VM) {
	vm.DefineNative("+", 0, true, primAdd)
	vm.DefineNative("-", 1, true, primSub)
	vm.DefineNative("*", 0, true, primMul)
	vm.DefineNative("/", 1, true, primDiv)
	vm.DefineNative("=", 2, true, compareChain("=", func(a, b float64) bool { return a == b }))
	vm.DefineNative("<", 2, true, compareChain("<", func(a, b float64) bool { return a < b }))
	vm.DefineNative(">", 2, true, compareChain(">", func(a, b float64) bool { return a > b }))
	vm.DefineNative("<=", 2, true, compareChain("<=", func(a, b float64) bool { return a <= b }))
	vm.DefineNative(">=", 2, true, compareChain(">=", func(a, b float64) bool { return a >= b }))

	vm.DefineNative("number?", 1, false, func(vm *VM, args []Value) (Value, error) {
		return FromBool(args[0].IsFloat()), nil
	})
	vm.DefineNative("zero?", 1, false, func(vm *VM, args []Value) (Value, error) {
		f, err := argFloat(vm, "zero?", args, 0)
		return FromBool(f == 0), err
	})

	vm.DefineNative("min", 1, true, primMin)
	vm.DefineNative("max", 1, true, primMax)
	vm.DefineNative("abs", 1, false, mathUnary("abs", math.Abs))
	vm.DefineNative("floor", 1, false, mathUnary("floor", math.Floor))
	vm.DefineNative("ceiling", 1, false, mathUnary("ceiling", math.Ceil))
	vm.DefineNative("truncate", 1, false, mathUnary("truncate", math.Trunc))
	vm.DefineNative("round", 1, false, mathUnary("round", math.RoundToEven))
	vm.DefineNative("sqrt", 1, false, mathUnary("sqrt", math.Sqrt))
	vm.DefineNative("quotient", 2, false, primQuotient)
	vm.DefineNative("remainder", 2, false, primRemainder)
	vm.DefineNative("modulo", 2, false, primModulo)

	vm.DefineNative("number->string", 1, false, primNumberToString)
	vm.DefineNative("string->number", 1, false, primStringToNumber)
}

func primAdd(vm *VM, args []Value) (Value, error) {
	sum := 0.0
	for i := range args {
		f, err := argFloat(vm, "+", args, i)
		if err != nil {
			return Void, err
		}
		sum += f
	}
	return FromFloat(sum), nil
}

func primSub(vm *VM, args []Value) (Value, error) {
	first, err := argFloat(vm, "-", args, 0)
	if err != nil {
		return Void, err
	}
	if len(args) == 1 {
		return FromFloat(-first), nil
	}
	for i := 1; i < len(args); i++ {
		f, err := argFloat(vm, "-", args, i)
		if err != nil {
			return Void, err
		}
		first -= f
	}
	return FromFloat(first), nil
}

func primMul(vm *VM, args []Value) (Value, error) {
	product := 1.0
	for i := range args {
		f, err := argFloat(vm, "*", args, i)
		if err != nil {
			return Void, err
		}
		product *= f
	}
	return FromFloat(product), nil
}

func primDiv(vm *VM, args []Value) (Value, error) {
	first, err := argFloat(vm, "/", args, 0)
	if err != nil {
		return Void, err
	}
	if len(args) == 1 {
		return FromFloat(1 / first), nil
	}
	for i := 1; i < len(args); i++ {
		f, err := argFloat(vm, "/", args, i)
		if err != nil {
			return Void, err
		}
		first /= f
	}
	return FromFloat(first), nil
}

func compareChain(name string, cmp func(a, b float64) bool) NativeFn {
	return func(vm *VM, args []Value) (Value, error) {
		prev, err := argFloat(vm, name, args, 0)
		if err != nil {
			return Void, err
		}
		for i := 1; i < len(args); i++ {
			next, err := argFloat(vm, name, args, i)
			if err != nil {
				return Void, err
			}
			if !cmp(prev, next) {
				return False, nil
			}
			prev = next
		}
		return True, nil
	}
}

func mathUnary(name string, fn func(float64) float64) NativeFn {
	return func(vm *VM, args []Value) (Value, error) {
		f, err := argFloat(vm, name, args, 0)
		if err != nil {
			return Void, err
		}
		return FromFloat(fn(f)), nil
	}
}

func primMin(vm *VM, args []Value) (Value, error) {
	best, err := argFloat(vm, "min", args, 0)
	if err != nil {
		return Void, err
	}
	for i := 1; i < len(args); i++ {
		f, err := argFloat(vm, "min", args, i)
		if err != nil {
			return Void, err
		}
		if f < best {
			best = f
		}
	}
	return FromFloat(best), nil
}

func primMax(vm *VM, args []Value) (Value, error) {
	best, err := argFloat(vm, "max", args, 0)
	if err != nil {
		return Void, err
	}
	for i := 1; i < len(args); i++ {
		f, err := argFloat(vm, "max", args, i)
		if err != nil {
			return Void, err
		}
		if f > best {
			best = f
		}
	}
	return FromFloat(best), nil
}

func primQuotient(vm *VM, args []Value) (Value, error) {
	a, err := argFloat(vm, "quotient", args, 0)
	if err != nil {
		return Void, err
	}
	b, err := argFloat(vm, "quotient", args, 1)
	if err != nil {
		return Void, err
	}
	return FromFloat(math.Trunc(a / b)), nil
}

func primRemainder(vm *VM, args []Value) (Value, error) {
	a, err := argFloat(vm, "remainder", args, 0)
	if err != nil {
		return Void, err
	}
	b, err := argFloat(vm, "remainder", args, 1)
	if err != nil {
		return Void, err
	}
	return FromFloat(math.Mod(a, b)), nil
}

func primModulo(vm *VM, args []Value) (Value, error) {
	a, err := argFloat(vm, "modulo", args, 0)
	if err != nil {
		return Void, err
	}
	b, err := argFloat(vm, "modulo", args, 1)
	if err != nil {
		return Void, err
	}
	m := math.Mod(a, b)
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return FromFloat(m), nil
}

func primNumberToString(vm *VM, args []Value) (Value, error) {
	f, err := argFloat(vm, "number->string", args, 0)
	if err != nil {
		return Void, err
	}
	return vm.StringValue(datum.FormatNumber(f)), nil
}

func primStringToNumber(vm *VM, args []Value) (Value, error) {
	s, err := argString(vm, "string->number", args, 0)
	if err != nil {
		return Void, err
	}
	f, perr := strconv.ParseFloat(s.String(), 64)
	if perr != nil {
		return False, nil
	}
	return FromFloat(f), nil
}
