package vm

import "fmt"

// Opcode represents a bytecode instruction.
// Opcodes are organized into ranges by category.
type Opcode byte

const (
	// ========================================================================
	// Stack manipulation (0x00-0x0F)
	// ========================================================================

	OpNop Opcode = 0x00 // No operation
	OpPop Opcode = 0x01 // Pop top of stack

	// ========================================================================
	// Constants (0x10-0x1F)
	// ========================================================================

	OpConst Opcode = 0x10 // Push constant from pool: OpConst <index:u16>
	OpNil   Opcode = 0x11 // Push the empty list
	OpTrue  Opcode = 0x12 // Push #t
	OpFalse Opcode = 0x13 // Push #f
	OpVoid  Opcode = 0x14 // Push the unspecified value

	// ========================================================================
	// Local variables (0x20-0x2F)
	// ========================================================================

	OpGetLocal Opcode = 0x20 // Push stack[base+slot]: OpGetLocal <slot:u8>
	OpSetLocal Opcode = 0x21 // Write top into stack[base+slot], top remains

	// ========================================================================
	// Upvalues (0x30-0x3F)
	// ========================================================================

	OpGetUpvalue Opcode = 0x30 // Push dereference of closure.upvalues[i]
	OpSetUpvalue Opcode = 0x31 // Write top into upvalue referent, top remains

	// ========================================================================
	// Globals (0x40-0x4F) - operand is a pool index holding the symbol
	// ========================================================================

	OpGetGlobal    Opcode = 0x40 // Push global binding; error if unbound
	OpDefineGlobal Opcode = 0x41 // Bind top globally (pops)
	OpSetGlobal    Opcode = 0x42 // Mutate existing global, top remains; error if unbound

	// ========================================================================
	// Control flow (0x80-0x8F) - displacements are forward-only
	// ========================================================================

	OpJump        Opcode = 0x80 // Relative forward jump: OpJump <delta:u16>
	OpJumpIfFalse Opcode = 0x81 // Pop; jump forward if #f

	// ========================================================================
	// Calls (0x90-0x9F)
	// ========================================================================

	OpCall     Opcode = 0x90 // Call stack[top-n] with n args: OpCall <n:u8>
	OpTailCall Opcode = 0x91 // Like OpCall but replaces the current frame

	// ========================================================================
	// Closures (0xA0-0xAF)
	// ========================================================================

	// OpClosure reads a chunk from the pool and consumes one inline
	// (is_local:u8, index:u8) pair per upvalue descriptor in that chunk.
	OpClosure Opcode = 0xA0

	// ========================================================================
	// Boxes (0xB0-0xBF)
	// ========================================================================

	OpMakeBox Opcode = 0xB0 // Replace top T with a fresh box holding T
	OpUnbox   Opcode = 0xB1 // Replace top box with its contents
	OpBoxSet  Opcode = 0xB2 // Pop box, write new top into it, top remains

	// ========================================================================
	// Return (0xF0-0xFF)
	// ========================================================================

	OpReturn Opcode = 0xF0 // Return top of stack to caller; close open upvalues
	OpHalt   Opcode = 0xF1 // Terminate the chunk; return top of stack
)

// OpcodeInfo provides metadata about each opcode for tracing, the
// disassembler, and the compiler's static stack-depth computation.
type OpcodeInfo struct {
	Name       string // Human-readable name
	StackPop   int    // Values popped (-1 = variable)
	StackPush  int    // Values pushed
	OperandLen int    // Operand bytes following the opcode (-1 = variable)
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpNop: {"NOP", 0, 0, 0},
	OpPop: {"POP", 1, 0, 0},

	OpConst: {"CONST", 0, 1, 2},
	OpNil:   {"NIL", 0, 1, 0},
	OpTrue:  {"TRUE", 0, 1, 0},
	OpFalse: {"FALSE", 0, 1, 0},
	OpVoid:  {"VOID", 0, 1, 0},

	OpGetLocal: {"GET_LOCAL", 0, 1, 1},
	OpSetLocal: {"SET_LOCAL", 1, 1, 1},

	OpGetUpvalue: {"GET_UPVALUE", 0, 1, 1},
	OpSetUpvalue: {"SET_UPVALUE", 1, 1, 1},

	OpGetGlobal:    {"GET_GLOBAL", 0, 1, 2},
	OpDefineGlobal: {"DEFINE_GLOBAL", 1, 0, 2},
	OpSetGlobal:    {"SET_GLOBAL", 1, 1, 2},

	OpJump:        {"JMP", 0, 0, 2},
	OpJumpIfFalse: {"JMP_IF_FALSE", 1, 0, 2},

	OpCall:     {"CALL", -1, 1, 1},
	OpTailCall: {"TAIL_CALL", -1, 1, 1},

	OpClosure: {"CLOSURE", 0, 1, -1},

	OpMakeBox: {"MAKE_BOX", 1, 1, 0},
	OpUnbox:   {"UNBOX", 1, 1, 0},
	OpBoxSet:  {"BOX_SET", 2, 1, 0},

	OpReturn: {"RETURN", 1, 0, 0},
	OpHalt:   {"HALT", 1, 0, 0},
}

// GetOpcodeInfo returns metadata for an opcode.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// OperandLen returns the number of fixed operand bytes for this opcode.
// OpClosure has a variable operand length and reports -1.
func (op Opcode) OperandLen() int {
	return GetOpcodeInfo(op).OperandLen
}

// IsJump returns true for forward-jump instructions.
func (op Opcode) IsJump() bool {
	return op == OpJump || op == OpJumpIfFalse
}

// IsCall returns true for call instructions.
func (op Opcode) IsCall() bool {
	return op == OpCall || op == OpTailCall
}

// AllOpcodes returns every defined opcode; used by tests to check that
// the metadata table is complete.
func AllOpcodes() []Opcode {
	ops := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		ops = append(ops, op)
	}
	return ops
}
