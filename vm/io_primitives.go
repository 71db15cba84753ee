package vm

import (
	"io"
	"os"

	"github.com/sadderchris/cheshire/pkg/reader"
)

// ---------------------------------------------------------------------------
// I/O and port primitives
// ---------------------------------------------------------------------------

func registerIOPrimitives(vm *VM) {
	vm.DefineNative("display", 1, true, primDisplay)
	vm.DefineNative("write", 1, true, primWrite)
	vm.DefineNative("newline", 0, true, primNewline)
	vm.DefineNative("write-char", 1, true, primWriteChar)

	vm.DefineNative("read", 0, true, primRead)
	vm.DefineNative("read-char", 0, true, primReadChar)
	vm.DefineNative("peek-char", 0, true, primPeekChar)
	vm.DefineNative("char-ready?", 0, true, primCharReady)
	vm.DefineNative("eof-object?", 1, false, func(vm *VM, args []Value) (Value, error) {
		return FromBool(args[0].IsEOF()), nil
	})

	vm.DefineNative("input-port?", 1, false, portPredicate(PortInput))
	vm.DefineNative("output-port?", 1, false, portPredicate(PortOutput))
	vm.DefineNative("current-input-port", 0, false, func(vm *VM, args []Value) (Value, error) {
		return vm.inPort, nil
	})
	vm.DefineNative("current-output-port", 0, false, func(vm *VM, args []Value) (Value, error) {
		return vm.outPort, nil
	})

	vm.DefineNative("open-input-file", 1, false, primOpenInputFile)
	vm.DefineNative("open-output-file", 1, false, primOpenOutputFile)
	vm.DefineNative("close-input-port", 1, false, closePort("close-input-port", PortInput))
	vm.DefineNative("close-output-port", 1, false, closePort("close-output-port", PortOutput))
}

func portPredicate(kind PortKind) NativeFn {
	return func(vm *VM, args []Value) (Value, error) {
		if args[0].IsObject() {
			if p, ok := vm.Heap.Get(args[0].Handle()).(*Port); ok {
				return FromBool(p.Kind == kind), nil
			}
		}
		return False, nil
	}
}

// outputPort resolves an optional trailing port argument, defaulting to
// the current output port.
func outputPort(vm *VM, name string, args []Value, at int) (*Port, error) {
	p := vm.CurrentOutputPort()
	if len(args) > at {
		var err error
		p, err = argPort(vm, name, args, at)
		if err != nil {
			return nil, err
		}
	}
	if p.Kind != PortOutput {
		return nil, runtimeErrorf(ErrType, "%s: not an output port", name)
	}
	if p.Closed {
		return nil, runtimeErrorf(ErrIO, "%s: port is closed", name)
	}
	return p, nil
}

func inputPort(vm *VM, name string, args []Value, at int) (*Port, error) {
	p := vm.CurrentInputPort()
	if len(args) > at {
		var err error
		p, err = argPort(vm, name, args, at)
		if err != nil {
			return nil, err
		}
	}
	if p.Kind != PortInput {
		return nil, runtimeErrorf(ErrType, "%s: not an input port", name)
	}
	if p.Closed {
		return nil, runtimeErrorf(ErrIO, "%s: port is closed", name)
	}
	return p, nil
}

func primDisplay(vm *VM, args []Value) (Value, error) {
	p, err := outputPort(vm, "display", args, 1)
	if err != nil {
		return Void, err
	}
	if _, err := io.WriteString(p.W, vm.DisplayString(args[0])); err != nil {
		return Void, runtimeErrorf(ErrIO, "display: %v", err)
	}
	return Void, nil
}

func primWrite(vm *VM, args []Value) (Value, error) {
	p, err := outputPort(vm, "write", args, 1)
	if err != nil {
		return Void, err
	}
	if _, err := io.WriteString(p.W, vm.WriteString(args[0])); err != nil {
		return Void, runtimeErrorf(ErrIO, "write: %v", err)
	}
	return Void, nil
}

func primNewline(vm *VM, args []Value) (Value, error) {
	p, err := outputPort(vm, "newline", args, 0)
	if err != nil {
		return Void, err
	}
	if _, err := io.WriteString(p.W, "\n"); err != nil {
		return Void, runtimeErrorf(ErrIO, "newline: %v", err)
	}
	return Void, nil
}

func primWriteChar(vm *VM, args []Value) (Value, error) {
	c, err := argChar(vm, "write-char", args, 0)
	if err != nil {
		return Void, err
	}
	p, err := outputPort(vm, "write-char", args, 1)
	if err != nil {
		return Void, err
	}
	if _, err := io.WriteString(p.W, string(c)); err != nil {
		return Void, runtimeErrorf(ErrIO, "write-char: %v", err)
	}
	return Void, nil
}

func primRead(vm *VM, args []Value) (Value, error) {
	p, err := inputPort(vm, "read", args, 0)
	if err != nil {
		return Void, err
	}
	d, rerr := reader.New(p.R).Read()
	if rerr == io.EOF {
		return EOF, nil
	}
	if rerr != nil {
		return Void, runtimeErrorf(ErrIO, "read: %v", rerr)
	}
	return vm.DatumToValue(d), nil
}

func primReadChar(vm *VM, args []Value) (Value, error) {
	p, err := inputPort(vm, "read-char", args, 0)
	if err != nil {
		return Void, err
	}
	c, _, rerr := p.R.ReadRune()
	if rerr == io.EOF {
		return EOF, nil
	}
	if rerr != nil {
		return Void, runtimeErrorf(ErrIO, "read-char: %v", rerr)
	}
	return FromChar(c), nil
}

func primPeekChar(vm *VM, args []Value) (Value, error) {
	p, err := inputPort(vm, "peek-char", args, 0)
	if err != nil {
		return Void, err
	}
	c, _, rerr := p.R.ReadRune()
	if rerr == io.EOF {
		return EOF, nil
	}
	if rerr != nil {
		return Void, runtimeErrorf(ErrIO, "peek-char: %v", rerr)
	}
	if err := p.R.UnreadRune(); err != nil {
		return Void, runtimeErrorf(ErrIO, "peek-char: %v", err)
	}
	return FromChar(c), nil
}

func primCharReady(vm *VM, args []Value) (Value, error) {
	p, err := inputPort(vm, "char-ready?", args, 0)
	if err != nil {
		return Void, err
	}
	return FromBool(p.R.Buffered() > 0), nil
}

func primOpenInputFile(vm *VM, args []Value) (Value, error) {
	s, err := argString(vm, "open-input-file", args, 0)
	if err != nil {
		return Void, err
	}
	f, oerr := os.Open(s.String())
	if oerr != nil {
		return Void, runtimeErrorf(ErrIO, "open-input-file: %v", oerr)
	}
	return FromObject(vm.Heap.Alloc(NewInputPort(s.String(), f, f))), nil
}

func primOpenOutputFile(vm *VM, args []Value) (Value, error) {
	s, err := argString(vm, "open-output-file", args, 0)
	if err != nil {
		return Void, err
	}
	f, oerr := os.Create(s.String())
	if oerr != nil {
		return Void, runtimeErrorf(ErrIO, "open-output-file: %v", oerr)
	}
	return FromObject(vm.Heap.Alloc(NewOutputPort(s.String(), f, f))), nil
}

func closePort(name string, kind PortKind) NativeFn {
	return func(vm *VM, args []Value) (Value, error) {
		p, err := argPort(vm, name, args, 0)
		if err != nil {
			return Void, err
		}
		if p.Kind != kind {
			return Void, runtimeErrorf(ErrType, "%s: wrong port direction", name)
		}
		if err := p.Close(); err != nil {
			return Void, runtimeErrorf(ErrIO, "%s: %v", name, err)
		}
		return Void, nil
	}
}
