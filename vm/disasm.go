package vm

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Disassembler
// ---------------------------------------------------------------------------

// DisassembleChunk returns a human-readable listing of a chunk: header,
// constant pool, upvalue descriptors, and instructions. Nested lambda
// chunks found in the constant pool are listed after their parent.
func (vm *VM) DisassembleChunk(ch *Chunk) string {
	var sb strings.Builder
	vm.disassembleInto(&sb, ch)

	for _, c := range ch.Constants {
		if !c.IsObject() {
			continue
		}
		if nested, ok := vm.Heap.Get(c.Handle()).(*Chunk); ok {
			sb.WriteByte('\n')
			vm.disassembleInto(&sb, nested)
		}
	}
	return sb.String()
}

func (vm *VM) disassembleInto(sb *strings.Builder, ch *Chunk) {
	name := ch.Name
	if name == "" {
		name = "<anonymous>"
	}
	fmt.Fprintf(sb, "; === %s ===\n", name)
	fmt.Fprintf(sb, "; arity: %d", ch.NumParams)
	if ch.Variadic {
		sb.WriteString("+ (rest)")
	}
	fmt.Fprintf(sb, ", max stack: %d\n", ch.MaxStack)

	if len(ch.Constants) > 0 {
		sb.WriteString("; constants:\n")
		for i, c := range ch.Constants {
			display := vm.WriteString(c)
			if len(display) > 40 {
				display = display[:37] + "..."
			}
			fmt.Fprintf(sb, ";   [%3d] %s\n", i, display)
		}
	}

	if len(ch.Upvalues) > 0 {
		sb.WriteString("; upvalues:\n")
		for i, u := range ch.Upvalues {
			src := "upvalue"
			if u.IsLocal {
				src = "local"
			}
			fmt.Fprintf(sb, ";   [%3d] %s %d\n", i, src, u.Index)
		}
	}

	for offset := 0; offset < len(ch.Code); {
		text := vm.disassembleInstruction(ch, offset)
		sb.WriteString(text)
		offset += vm.instructionLen(ch, offset)
	}
}

// disassembleInstruction renders one instruction at offset, including its
// operands, resolved constants and inline capture descriptors.
func (vm *VM) disassembleInstruction(ch *Chunk, offset int) string {
	op := Opcode(ch.Code[offset])
	info := GetOpcodeInfo(op)

	switch op {
	case OpConst, OpGetGlobal, OpDefineGlobal, OpSetGlobal:
		idx := ch.ReadU16(offset + 1)
		return fmt.Sprintf("%04x %-16s %4d  ; %s\n",
			offset, info.Name, idx, vm.WriteString(ch.Constants[idx]))

	case OpGetLocal, OpSetLocal, OpGetUpvalue, OpSetUpvalue, OpCall, OpTailCall:
		return fmt.Sprintf("%04x %-16s %4d\n", offset, info.Name, ch.Code[offset+1])

	case OpJump, OpJumpIfFalse:
		delta := ch.ReadU16(offset + 1)
		return fmt.Sprintf("%04x %-16s %4d  ; -> %04x\n",
			offset, info.Name, delta, offset+3+int(delta))

	case OpClosure:
		idx := ch.ReadU16(offset + 1)
		nested := vm.chunk(ch.Constants[idx].Handle())
		var sb strings.Builder
		fmt.Fprintf(&sb, "%04x %-16s %4d  ; %s\n",
			offset, info.Name, idx, vm.WriteString(ch.Constants[idx]))
		pos := offset + 3
		for i := range nested.Upvalues {
			isLocal := ch.Code[pos]
			index := ch.Code[pos+1]
			pos += 2
			src := "upvalue"
			if isLocal != 0 {
				src = "local"
			}
			fmt.Fprintf(&sb, "%04x      | capture %d: %s %d\n", pos-2, i, src, index)
		}
		return sb.String()

	default:
		return fmt.Sprintf("%04x %-16s\n", offset, info.Name)
	}
}

// instructionLen returns the full encoded length of the instruction at
// offset. OpClosure's inline capture descriptors are counted via the
// nested chunk's upvalue table.
func (vm *VM) instructionLen(ch *Chunk, offset int) int {
	op := Opcode(ch.Code[offset])
	if op != OpClosure {
		return 1 + op.OperandLen()
	}
	idx := ch.ReadU16(offset + 1)
	nested := vm.chunk(ch.Constants[idx].Handle())
	return 3 + 2*len(nested.Upvalues)
}
