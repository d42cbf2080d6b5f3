package vm

import (
	"fmt"
	"strings"
)

// opcodes whose Arg is meaningful in a listing.
var hasArg = map[Opcode]bool{
	OP_PUSH:        true,
	OP_LOAD_LOCAL:  true,
	OP_STORE_LOCAL: true,
	OP_ADDR_LOCAL:  true,
	OP_ARR_LOAD:    true,
	OP_ARR_STORE:   true,
	OP_JMP:         true,
	OP_JZ:          true,
	OP_JNZ:         true,
	OP_CALL:        true,
}

// Disassemble renders a readable listing of the program: function entry
// markers, one instruction per line, and the string pool.
func Disassemble(prog *Program) string {
	entries := make(map[int]string)
	for _, fn := range prog.Functions {
		entries[fn.Entry] = fmt.Sprintf("%s (params=%d slots=%d)", fn.Name, fn.NumParams, fn.NumSlots)
	}

	var sb strings.Builder
	for i, instr := range prog.Code {
		if name, ok := entries[i]; ok {
			fmt.Fprintf(&sb, "\n%s:\n", name)
		}
		if !hasArg[instr.Op] {
			fmt.Fprintf(&sb, "%4d  %s\n", i, instr.Op)
			continue
		}
		switch instr.Op {
		case OP_ARR_LOAD, OP_ARR_STORE:
			fmt.Fprintf(&sb, "%4d  %-12s %d cap=%d\n", i, instr.Op, instr.Arg, instr.Aux)
		case OP_CALL:
			fmt.Fprintf(&sb, "%4d  %-12s %d (%s)\n", i, instr.Op, instr.Arg, prog.Functions[instr.Arg].Name)
		default:
			fmt.Fprintf(&sb, "%4d  %-12s %d\n", i, instr.Op, instr.Arg)
		}
	}

	if len(prog.Strings) > 0 {
		sb.WriteString("\nstrings:\n")
		for i, s := range prog.Strings {
			fmt.Fprintf(&sb, "%4d  %q\n", i, s)
		}
	}
	return sb.String()
}
