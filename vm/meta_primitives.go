package vm

import (
	"crypto/sha256"
	"os"

	"github.com/sadderchris/cheshire/pkg/datum"
	"github.com/sadderchris/cheshire/pkg/reader"
)

// ---------------------------------------------------------------------------
// Meta primitives: compile, disassemble, load
// ---------------------------------------------------------------------------

func registerMetaPrimitives(vm *VM) {
	vm.DefineNative("compile", 1, false, primCompile)
	vm.DefineNative("disassemble", 1, false, primDisassemble)
	vm.DefineNative("load", 1, false, primLoad)
}

// primCompile turns a datum into code and executes the resulting
// top-level thunk, so (compile '(lambda (x) ...)) yields the closure
// itself and ((compile '(lambda (x) (* x x))) 7) is 49.
func primCompile(vm *VM, args []Value) (Value, error) {
	if vm.Compile == nil {
		return Void, runtimeErrorf(ErrRuntime, "compile: no compiler installed")
	}
	d, err := vm.ValueToDatum(args[0])
	if err != nil {
		return Void, err
	}
	thunk, err := vm.Compile(vm, d)
	if err != nil {
		return Void, err
	}
	return vm.Call(thunk)
}

func primDisassemble(vm *VM, args []Value) (Value, error) {
	if !args[0].IsObject() {
		return Void, typeErrf(vm, "disassemble", "procedure", args[0])
	}
	cl, ok := vm.Heap.Get(args[0].Handle()).(*Closure)
	if !ok {
		return Void, typeErrf(vm, "disassemble", "procedure", args[0])
	}
	out := vm.CurrentOutputPort()
	if _, err := out.W.Write([]byte(vm.DisassembleChunk(vm.chunk(cl.Fn)))); err != nil {
		return Void, runtimeErrorf(ErrIO, "disassemble: %v", err)
	}
	return Void, nil
}

// primLoad reads a file, compiles each top-level form as a thunk, and
// executes them in sequence. When a compile cache is configured,
// compiled chunks are reused across runs keyed by the form's source.
func primLoad(vm *VM, args []Value) (Value, error) {
	s, err := argString(vm, "load", args, 0)
	if err != nil {
		return Void, err
	}
	return Void, vm.LoadFile(s.String())
}

// LoadFile is the load path: it also backs the CLI's script mode.
func (vm *VM) LoadFile(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return runtimeErrorf(ErrIO, "load: %v", err)
	}
	forms, err := reader.NewString(string(src)).ReadAll()
	if err != nil {
		return err
	}
	vm.log.Debugf("load %s: %d top-level forms", path, len(forms))
	for _, form := range forms {
		thunk, err := vm.compileForm(form)
		if err != nil {
			return err
		}
		if _, err := vm.Call(thunk); err != nil {
			return err
		}
	}
	return nil
}

// compileForm compiles one top-level form, consulting the compile cache
// when one is configured. A corrupt or stale cache entry falls back to
// compiling; it is never an error.
func (vm *VM) compileForm(form datum.Datum) (Value, error) {
	if vm.Compile == nil {
		return Void, runtimeErrorf(ErrRuntime, "load: no compiler installed")
	}
	if vm.Cache == nil {
		return vm.Compile(vm, form)
	}

	key := sha256.Sum256([]byte(datum.Format(form)))
	if blob, ok := vm.Cache.Get(key); ok {
		if h, err := DecodeChunk(vm, blob); err == nil {
			return vm.NewClosure(h), nil
		}
	}

	thunk, err := vm.Compile(vm, form)
	if err != nil {
		return Void, err
	}
	cl := vm.Heap.Get(thunk.Handle()).(*Closure)
	if blob, err := EncodeChunk(vm, vm.chunk(cl.Fn)); err == nil {
		vm.Cache.Put(key, blob)
	}
	return thunk, nil
}
