// Package vm implements the QuinLang bytecode format, the code generator
// that produces it, and the virtual machine that executes it.
package vm

// Opcode represents a single VM instruction.
type Opcode byte

const (
	// Stack manipulation
	OP_PUSH Opcode = iota // Push immediate (Arg)
	OP_POP                // Discard top of stack
	OP_DUP                // Duplicate top of stack
	OP_SWAP               // Exchange the top two values
	OP_OVER               // Push a copy of the value below the top

	// Locals (Arg = word slot in the current frame)
	OP_LOAD_LOCAL
	OP_STORE_LOCAL
	OP_ADDR_LOCAL // Push the byte address of a slot in data memory

	// Arrays (Arg = base slot, Aux = declared capacity in words)
	OP_ARR_LOAD  // Pop index, push element; faults OutOfBounds past Aux
	OP_ARR_STORE // Pop value then index, store element

	// Raw memory (addresses are byte offsets into data memory)
	OP_LOAD16  // Pop address, push the 16-bit word there
	OP_STORE16 // Pop value then address, store the word
	OP_MEMCPY  // Pop count, src, dst; overlap-safe byte copy
	OP_MEMSET  // Pop count, value, dst; fill count bytes

	// Arithmetic (16-bit wrapping)
	OP_ADD
	OP_SUB
	OP_MUL
	OP_DIV // unsigned; faults DivideByZero
	OP_NEG
	OP_NOT // Logical not: 0 -> 1, nonzero -> 0

	// Comparison (push 1 or 0)
	OP_CMP_EQ
	OP_CMP_NE
	OP_CMP_LT
	OP_CMP_LE
	OP_CMP_GT
	OP_CMP_GE

	// Control flow (Arg = instruction index)
	OP_JMP
	OP_JZ  // Pop, jump when zero
	OP_JNZ // Pop, jump when nonzero

	// Functions
	OP_CALL // Arg = function table index
	OP_RET  // Pop return value, restore caller, push value for caller

	// Output (string operands are string pool indices)
	OP_PRINT_INT
	OP_PRINT_BOOL
	OP_PRINT_STR
	OP_PRINTLN_INT
	OP_PRINTLN_BOOL
	OP_PRINTLN_STR
)

// OpcodeNames maps opcodes to their string names (for the disassembler).
var OpcodeNames = map[Opcode]string{
	OP_PUSH:         "PUSH",
	OP_POP:          "POP",
	OP_DUP:          "DUP",
	OP_SWAP:         "SWAP",
	OP_OVER:         "OVER",
	OP_LOAD_LOCAL:   "LOAD_LOCAL",
	OP_STORE_LOCAL:  "STORE_LOCAL",
	OP_ADDR_LOCAL:   "ADDR_LOCAL",
	OP_ARR_LOAD:     "ARR_LOAD",
	OP_ARR_STORE:    "ARR_STORE",
	OP_LOAD16:       "LOAD16",
	OP_STORE16:      "STORE16",
	OP_MEMCPY:       "MEMCPY",
	OP_MEMSET:       "MEMSET",
	OP_ADD:          "ADD",
	OP_SUB:          "SUB",
	OP_MUL:          "MUL",
	OP_DIV:          "DIV",
	OP_NEG:          "NEG",
	OP_NOT:          "NOT",
	OP_CMP_EQ:       "CMP_EQ",
	OP_CMP_NE:       "CMP_NE",
	OP_CMP_LT:       "CMP_LT",
	OP_CMP_LE:       "CMP_LE",
	OP_CMP_GT:       "CMP_GT",
	OP_CMP_GE:       "CMP_GE",
	OP_JMP:          "JMP",
	OP_JZ:           "JZ",
	OP_JNZ:          "JNZ",
	OP_CALL:         "CALL",
	OP_RET:          "RET",
	OP_PRINT_INT:    "PRINT_INT",
	OP_PRINT_BOOL:   "PRINT_BOOL",
	OP_PRINT_STR:    "PRINT_STR",
	OP_PRINTLN_INT:  "PRINTLN_INT",
	OP_PRINTLN_BOOL: "PRINTLN_BOOL",
	OP_PRINTLN_STR:  "PRINTLN_STR",
}

func (op Opcode) String() string {
	if name, ok := OpcodeNames[op]; ok {
		return name
	}
	return "INVALID"
}
